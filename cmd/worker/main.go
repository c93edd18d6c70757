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
	"github.com/kozuki35/hot-desking/config"
	"github.com/kozuki35/hot-desking/internal/cache"
	"github.com/kozuki35/hot-desking/internal/events"
	"github.com/kozuki35/hot-desking/internal/logger"
	"github.com/kozuki35/hot-desking/internal/notify"
	"github.com/kozuki35/hot-desking/internal/repository"
	"github.com/kozuki35/hot-desking/internal/service/booking"
	"github.com/kozuki35/hot-desking/internal/worker"
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

	zlog, err := logger.New(cfg.Log, "hot-desking-worker")
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zlog); err != nil {
		zlog.Fatal("worker error", zap.Error(err))
	}
	zlog.Info("worker stopped")
}

func run(ctx context.Context, cfg *config.Config, zlog *zap.Logger) error {
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	publisher, err := events.NewPublisher(cfg.Events, zlog)
	if err != nil {
		return fmt.Errorf("init events publisher: %w", err)
	}
	defer publisher.Close()

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.DesksCacheTTLSeconds)*time.Second)
	defer redisCache.Close()

	repos := repository.NewRepositories(pool)
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

	subscriber, err := events.NewSubscriber(cfg.Events, cfg.Events.NotificationsTopic, zlog)
	if err != nil {
		return fmt.Errorf("init events subscriber: %w", err)
	}
	defer subscriber.Close()

	consumeErr := make(chan error, 1)
	go func() {
		consumeErr <- worker.Notify(ctx, subscriber, notify.NewSender(zlog), zlog)
	}()

	go worker.SweepArchive(ctx, bookingService, time.Duration(cfg.Worker.ArchiveSweepMinutes)*time.Minute, zlog)

	select {
	case <-ctx.Done():
		return nil
	case err := <-consumeErr:
		if err != nil {
			return fmt.Errorf("notification consumer stopped: %w", err)
		}
		<-ctx.Done()
		return nil
	}
}
