package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kozuki35/hot-desking/api"
	"github.com/kozuki35/hot-desking/config"
	"github.com/kozuki35/hot-desking/internal/auth"
	"github.com/kozuki35/hot-desking/internal/bootstrap"
	"github.com/kozuki35/hot-desking/internal/cache"
	"github.com/kozuki35/hot-desking/internal/events"
	"github.com/kozuki35/hot-desking/internal/logger"
	"github.com/kozuki35/hot-desking/internal/repository"
	"github.com/kozuki35/hot-desking/internal/service/booking"
	"github.com/kozuki35/hot-desking/internal/service/desks"
	"github.com/kozuki35/hot-desking/internal/service/users"
	"go.uber.org/zap"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zlog, err := logger.New(cfg.Log, "hot-desking-api")
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zlog); err != nil {
		zlog.Fatal("server error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, zlog *zap.Logger) error {
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	if cfg.Database.Migrate {
		if err := repository.Migrate(ctx, pool); err != nil {
			return err
		}
		zlog.Info("database schema applied")
	}

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.DesksCacheTTLSeconds)*time.Second)
	defer redisCache.Close()

	publisher, err := events.NewPublisher(cfg.Events, zlog)
	if err != nil {
		return fmt.Errorf("init events publisher: %w", err)
	}
	defer publisher.Close()

	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute)

	repos := repository.NewRepositories(pool)
	userService := users.NewUserService(repos.Users, tokens,
		users.WithAdminEmails(cfg.Auth.AdminEmails),
		users.WithLogger(zlog),
	)
	deskService := desks.NewDeskService(repos.Desks, repos.Bookings,
		desks.WithCache(redisCache),
		desks.WithLogger(zlog),
	)
	bookingService := booking.NewBookingService(
		repos.Bookings,
		repos.Desks,
		redisCache,
		publisher,
		cfg.Events.BookingTopic,
		time.Duration(cfg.Booking.SlotLockSeconds)*time.Second,
		booking.WithNotificationsTopic(cfg.Events.NotificationsTopic),
		booking.WithLogger(zlog),
	)

	router := api.NewRouter(cfg, api.RouterDeps{
		Users:    userService,
		Desks:    deskService,
		Bookings: bookingService,
		Tokens:   tokens,
		Log:      zlog,
		Ready: func(ctx context.Context) error {
			if err := pool.Ping(ctx); err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
			if err := redisCache.Ping(ctx); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
			return nil
		},
	})

	return bootstrap.Run(ctx, cfg, router, zlog)
}
