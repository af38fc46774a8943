package middleware

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stemsi/coursegrade/internal/model"
	"github.com/stemsi/coursegrade/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubValidator map[string]*service.Claims

func (s stubValidator) ValidateToken(token string) (*service.Claims, error) {
	if token == "expired" {
		return nil, fmt.Errorf("parse token: %w", jwt.ErrTokenExpired)
	}
	if c, ok := s[token]; ok {
		return c, nil
	}
	return nil, errors.New("bad token")
}

var tokens = stubValidator{
	"student":    {UserID: 1, Role: model.RoleStudent},
	"instructor": {UserID: 2, Role: model.RoleInstructor},
	"admin":      {UserID: 3, Role: model.RoleAdmin},
}

func serve(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireJWT(t *testing.T) {
	r := gin.New()
	r.GET("/me", RequireJWT(tokens), func(c *gin.Context) {
		actor, ok := GetActor(c)
		require.True(t, ok)
		c.String(http.StatusOK, "%d:%s", actor.ID, actor.Role)
	})

	w := serve(r, http.MethodGet, "/me", "instructor")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2:instructor", w.Body.String())

	w = serve(r, http.MethodGet, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "TOKEN_REQUIRED")

	w = serve(r, http.MethodGet, "/me", "nope")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "TOKEN_INVALID")

	w = serve(r, http.MethodGet, "/me", "expired")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "TOKEN_EXPIRED")
}

func TestRequireWSAuth_QueryToken(t *testing.T) {
	r := gin.New()
	r.GET("/ws", RequireWSAuth(tokens), RequireInstructor(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	w := serve(r, http.MethodGet, "/ws?token=admin", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = serve(r, http.MethodGet, "/ws?token=student", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = serve(r, http.MethodGet, "/ws", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRoleChecks(t *testing.T) {
	r := gin.New()
	r.GET("/student", RequireJWT(tokens), RequireStudent(), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/instructor", RequireJWT(tokens), RequireInstructor(), func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		path  string
		token string
		want  int
	}{
		{"/student", "student", http.StatusOK},
		{"/student", "instructor", http.StatusForbidden},
		{"/instructor", "instructor", http.StatusOK},
		{"/instructor", "admin", http.StatusOK},
		{"/instructor", "student", http.StatusForbidden},
	}
	for _, tc := range tests {
		w := serve(r, http.MethodGet, tc.path, tc.token)
		assert.Equalf(t, tc.want, w.Code, "%s as %s", tc.path, tc.token)
	}
}

func TestRateLimiter_PerUser(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)

	r := gin.New()
	r.POST("/submit", RequireJWT(tokens), rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusAccepted) })

	assert.Equal(t, http.StatusAccepted, serve(r, http.MethodPost, "/submit", "student").Code)
	assert.Equal(t, http.StatusAccepted, serve(r, http.MethodPost, "/submit", "student").Code)

	w := serve(r, http.MethodPost, "/submit", "student")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_LIMIT_EXCEEDED")

	// another user has their own bucket
	assert.Equal(t, http.StatusAccepted, serve(r, http.MethodPost, "/submit", "instructor").Code)
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(1, time.Second)
	rl.Allow("ip:1.2.3.4")
	rl.visitors["ip:1.2.3.4"].lastSeen = time.Now().Add(-2 * time.Minute)

	rl.cleanup()
	assert.Empty(t, rl.visitors)
}

func TestNoStore(t *testing.T) {
	r := gin.New()
	r.GET("/x", NoStore(), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, http.MethodGet, "/x", "")
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestBrotli(t *testing.T) {
	big := strings.Repeat("grading ", 500)

	r := gin.New()
	r.Use(BrotliWithConfig(BrotliConfig{MinLength: 256, SkipPaths: []string{"/metrics"}}))
	r.GET("/big", func(c *gin.Context) { c.String(http.StatusOK, big) })
	r.GET("/small", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", func(c *gin.Context) { c.String(http.StatusOK, big) })

	get := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Accept-Encoding", "gzip, br;q=1.0")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := get("/big")
	assert.Equal(t, "br", w.Header().Get("Content-Encoding"))
	plain, err := io.ReadAll(brotli.NewReader(bytes.NewReader(w.Body.Bytes())))
	require.NoError(t, err)
	assert.Equal(t, big, string(plain))

	w = get("/small")
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, "ok", w.Body.String())

	w = get("/metrics")
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, big, w.Body.String())

	// second request reuses a pooled writer
	w = get("/big")
	plain, err = io.ReadAll(brotli.NewReader(bytes.NewReader(w.Body.Bytes())))
	require.NoError(t, err)
	assert.Equal(t, big, string(plain))
}
