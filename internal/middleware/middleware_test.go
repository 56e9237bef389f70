package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sinedi/config"
	"sinedi/internal/auth"
	"sinedi/internal/domain"
	"sinedi/internal/models"
)

func init() { gin.SetMode(gin.TestMode) }

type staticUsers map[string]*models.User

func (s staticUsers) Get(_ context.Context, id string) (*models.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, errors.New("not found")
}

func jwtCfg() *config.JWTConfig {
	return &config.JWTConfig{AccessSecret: "a", RefreshSecret: "r", AccessExpiry: time.Minute, RefreshExpiry: time.Hour, Issuer: "t"}
}

func TestAuthRequired(t *testing.T) {
	cfg := jwtCfg()
	users := staticUsers{"u1": {ID: "u1", Name: "Budi", Role: domain.RoleTutor}}

	r := gin.New()
	r.GET("/me", AuthRequired(cfg, users), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": GetUserID(c), "name": GetUser(c).Name})
	})
	r.GET("/admin", AuthRequired(cfg, users), AdminRequired(), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/tutor", AuthRequired(cfg, users), RequireRole(domain.RoleTutor), func(c *gin.Context) { c.Status(http.StatusOK) })

	good, err := auth.GenerateAccessToken(cfg, "u1", "budi", domain.RoleTutor)
	require.NoError(t, err)
	ghost, err := auth.GenerateAccessToken(cfg, "u2", "ghost", domain.RoleStudent)
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"no header", "/me", "", http.StatusUnauthorized},
		{"bad scheme", "/me", "Token " + good, http.StatusUnauthorized},
		{"garbage", "/me", "Bearer nope", http.StatusUnauthorized},
		{"unknown user", "/me", "Bearer " + ghost, http.StatusUnauthorized},
		{"ok", "/me", "Bearer " + good, http.StatusOK},
		{"query token", "/me?token=" + good, "", http.StatusOK},
		{"not admin", "/admin", "Bearer " + good, http.StatusForbidden},
		{"role ok", "/tutor", "Bearer " + good, http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestRateLimiter(t *testing.T) {
	l := NewInMemoryRateLimiter(2, time.Minute)
	defer l.Stop()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("ip"))
	assert.True(t, l.Allow("ip"))
	assert.False(t, l.Allow("ip"))
	assert.True(t, l.Allow("other"))

	now = now.Add(61 * time.Second)
	assert.True(t, l.Allow("ip"))
}

func TestRateLimitMiddleware(t *testing.T) {
	l := NewInMemoryRateLimiter(1, time.Minute)
	defer l.Stop()
	r := gin.New()
	r.Use(RateLimit(l))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}
