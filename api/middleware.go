package api

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kozuki35/hot-desking/internal/apperr"
	"github.com/kozuki35/hot-desking/internal/auth"
	"github.com/kozuki35/hot-desking/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const actorKey = "actor"

type TokenParser interface {
	Parse(raw string) (*auth.Claims, error)
}

// RequestLogger logs one line per request once the handler chain returns.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		switch {
		case c.Writer.Status() >= 500:
			log.Error("request", fields...)
		case c.Writer.Status() >= 400:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}

type rateLimiterStore struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func (s *rateLimiterStore) get(ip string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	limiter, ok := s.limiters[ip]
	if !ok {
		limiter = rate.NewLimiter(s.limit, s.burst)
		s.limiters[ip] = limiter
	}
	return limiter
}

// RateLimit allows each client IP requestsPerMinute requests with the
// given burst. A non-positive rate disables limiting.
func RateLimit(requestsPerMinute, burst int) gin.HandlerFunc {
	if requestsPerMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	store := &rateLimiterStore{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Every(time.Minute / time.Duration(requestsPerMinute)),
		burst:    burst,
	}
	return func(c *gin.Context) {
		if !store.get(c.ClientIP()).Allow() {
			zap.L().Warn("rate limit exceeded", zap.String("ip", c.ClientIP()))
			writeError(c, apperr.RateLimited())
			return
		}
		c.Next()
	}
}

// UserLookup loads the stored account behind a token.
type UserLookup interface {
	Get(ctx context.Context, id string) (*domain.User, error)
}

// Authenticate requires a valid bearer token for an active account and
// stores the caller as the request's actor. The role comes from the stored
// account, so a deactivation or role change applies to tokens already issued.
func Authenticate(tokens TokenParser, users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			writeError(c, apperr.Unauthorized("Missing or invalid Authorization header"))
			return
		}

		claims, err := tokens.Parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeError(c, apperr.Unauthorized("Invalid token"))
			return
		}

		user, err := users.Get(c.Request.Context(), claims.UserID())
		if err != nil {
			if apperr.HasCode(err, apperr.CodeNotFound) {
				writeError(c, apperr.Unauthorized("Invalid token"))
				return
			}
			writeError(c, err)
			return
		}
		if user.Status != domain.UserStatusActive {
			writeError(c, apperr.Forbidden("Account is inactive"))
			return
		}

		c.Set(actorKey, domain.Actor{UserID: user.ID, Role: user.Role})
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !actorFrom(c).IsAdmin() {
			writeError(c, apperr.Forbidden("Administrator access required"))
			return
		}
		c.Next()
	}
}

func actorFrom(c *gin.Context) domain.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(domain.Actor); ok {
			return actor
		}
	}
	return domain.Actor{}
}
