package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kozuki35/hot-desking/config"
	"github.com/kozuki35/hot-desking/internal/apperr"
	"github.com/kozuki35/hot-desking/internal/auth"
	"github.com/kozuki35/hot-desking/internal/domain"
	"github.com/kozuki35/hot-desking/internal/service/desks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		CORS:      config.CORSConfig{AllowedOrigins: []string{"http://localhost:5173"}},
		RateLimit: config.RateLimitConfig{RequestsPerMinute: 600, Burst: 100},
	}
}

// newTestRouter stores u-1 as an active user and admin as an active admin.
func newTestRouter(t *testing.T, deskService *MockDeskUseCase, ready func(context.Context) error) (*gin.Engine, *auth.TokenIssuer) {
	t.Helper()
	userService := &MockUserUseCase{}
	userService.On("Get", mock.Anything, "u-1").Return(&domain.User{ID: "u-1", Role: domain.RoleUser, Status: domain.UserStatusActive}, nil)
	userService.On("Get", mock.Anything, "admin").Return(&domain.User{ID: "admin", Role: domain.RoleAdmin, Status: domain.UserStatusActive}, nil)
	return newTestRouterWithUsers(t, userService, deskService, ready)
}

func newTestRouterWithUsers(t *testing.T, userService *MockUserUseCase, deskService *MockDeskUseCase, ready func(context.Context) error) (*gin.Engine, *auth.TokenIssuer) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	tokens := auth.NewTokenIssuer("test-secret", "hot-desking", time.Hour)
	router := NewRouter(testConfig(), RouterDeps{
		Users:    userService,
		Desks:    deskService,
		Bookings: &MockBookingUseCase{},
		Tokens:   tokens,
		Ready:    ready,
	})
	return router, tokens
}

func bearer(t *testing.T, tokens *auth.TokenIssuer, user *domain.User) string {
	t.Helper()
	token, err := tokens.Issue(user)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestRouter_Health(t *testing.T) {
	router, _ := newTestRouter(t, &MockDeskUseCase{}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestRouter_HealthUnavailable(t *testing.T) {
	router, _ := newTestRouter(t, &MockDeskUseCase{}, func(context.Context) error { return errors.New("postgres down") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRouter_RequiresToken(t *testing.T) {
	router, _ := newTestRouter(t, &MockDeskUseCase{}, nil)

	for _, header := range []string{"", "Token abc", "Bearer not-a-jwt"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/desks", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code, header)
	}
}

func TestRouter_AuthenticatedRequestReachesHandler(t *testing.T) {
	deskService := &MockDeskUseCase{}
	router, tokens := newTestRouter(t, deskService, nil)
	deskService.On("List", mock.Anything, desks.ListFilter{}).Return([]domain.Desk{}, nil).Once()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/desks", nil)
	req.Header.Set("Authorization", bearer(t, tokens, &domain.User{ID: "u-1", Role: domain.RoleUser}))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	deskService.AssertExpectations(t)
}

func TestRouter_AdminRoutes(t *testing.T) {
	deskService := &MockDeskUseCase{}
	router, tokens := newTestRouter(t, deskService, nil)
	deskService.On("Get", mock.Anything, "d-1").Return(&domain.Desk{ID: "d-1"}, nil).Once()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/desks/d-1", nil)
	req.Header.Set("Authorization", bearer(t, tokens, &domain.User{ID: "u-1", Role: domain.RoleUser}))
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/desks/d-1", nil)
	req.Header.Set("Authorization", bearer(t, tokens, &domain.User{ID: "admin", Role: domain.RoleAdmin}))
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_StoredAccountOverridesToken(t *testing.T) {
	deskService := &MockDeskUseCase{}
	userService := &MockUserUseCase{}
	router, tokens := newTestRouterWithUsers(t, userService, deskService, nil)

	stored := &domain.User{ID: "u-1", Role: domain.RoleUser, Status: domain.UserStatusActive}
	userService.On("Get", mock.Anything, "u-1").Return(stored, nil)
	userService.On("Get", mock.Anything, "gone").Return(nil, apperr.NotFound("user"))
	deskService.On("List", mock.Anything, desks.ListFilter{}).Return([]domain.Desk{}, nil).Once()

	do := func(path, authHeader string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", authHeader)
		router.ServeHTTP(w, req)
		return w.Code
	}

	token := bearer(t, tokens, &domain.User{ID: "u-1", Role: domain.RoleUser})
	assert.Equal(t, http.StatusOK, do("/api/v1/desks", token))

	stored.Status = domain.UserStatusInactive
	assert.Equal(t, http.StatusForbidden, do("/api/v1/desks", token))

	demoted := bearer(t, tokens, &domain.User{ID: "u-1", Role: domain.RoleAdmin})
	stored.Status = domain.UserStatusActive
	assert.Equal(t, http.StatusForbidden, do("/api/v1/desks/d-1", demoted))

	assert.Equal(t, http.StatusUnauthorized, do("/api/v1/desks", bearer(t, tokens, &domain.User{ID: "gone", Role: domain.RoleUser})))
	deskService.AssertExpectations(t)
}

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RateLimit(1, 2))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
}
