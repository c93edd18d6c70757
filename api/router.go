package api

import (
	"context"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/kozuki35/hot-desking/config"
	"github.com/kozuki35/hot-desking/internal/service/booking"
	"github.com/kozuki35/hot-desking/internal/service/desks"
	"github.com/kozuki35/hot-desking/internal/service/users"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

type RouterDeps struct {
	Users    users.UserUseCase
	Desks    desks.DeskUseCase
	Bookings booking.BookingUseCase
	Tokens   TokenParser
	Log      *zap.Logger
	// Ready reports whether backing stores are reachable. Nil means always ready.
	Ready func(ctx context.Context) error
}

func NewRouter(cfg *config.Config, deps RouterDeps) *gin.Engine {
	RegisterValidators()
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(deps.Log))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(RateLimit(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst))

	router.GET("/health", health(deps.Ready))

	if cfg.HTTP.SwaggerDir != "" {
		router.StaticFile("/swagger/openapi.yaml", filepath.Join(cfg.HTTP.SwaggerDir, "openapi.yaml"))
		router.GET("/docs/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/swagger/openapi.yaml"))))
	}

	v1 := router.Group("/api/v1")
	private := v1.Group("", Authenticate(deps.Tokens, deps.Users))

	NewUserHandler(deps.Users).Register(v1.Group("/users"), private.Group("/users"))
	NewDeskHandler(deps.Desks).Register(private.Group("/desks"))

	bookings := NewBookingHandler(deps.Bookings)
	bookings.Register(private.Group("/bookings"))
	bookings.RegisterMine(private.Group("/my-bookings"))

	return router
}

func health(ready func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ready != nil {
			if err := ready(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
