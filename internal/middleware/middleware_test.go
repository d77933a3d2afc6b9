package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"plantastic/internal/domain"
	"plantastic/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func init() { gin.SetMode(gin.TestMode) }

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuthMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/me", JWTAuthMiddleware(secret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetInt64(UserIDKey)})
	})

	t.Run("missing header", func(t *testing.T) {
		w := serve(r, httptest.NewRequest(http.MethodGet, "/me", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("bad token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer nope")
		assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := utils.GenerateJWT(utils.TelegramUser{ID: 77}, secret, time.Hour, time.Now())
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := serve(r, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"user_id":77}`, w.Body.String())
	})

	sign := func(claims utils.Claims) string {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Hour))
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
		require.NoError(t, err)
		return token
	}
	rejected := []struct {
		name   string
		header string
	}{
		{"empty bearer", "Bearer   "},
		{"basic scheme", "Basic dXNlcjpwYXNz"},
		{"not a telegram login", "Bearer " + sign(utils.Claims{UserID: 77})},
		{"no user id", "Bearer " + sign(utils.Claims{TelegramAuth: true})},
	}
	for _, tc := range rejected {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			req.Header.Set("Authorization", tc.header)
			assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)
		})
	}

	t.Run("scheme is case insensitive", func(t *testing.T) {
		token, err := utils.GenerateJWT(utils.TelegramUser{ID: 78}, secret, time.Hour, time.Now())
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "bearer "+token)
		w := serve(r, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"user_id":78}`, w.Body.String())
	})
}

func TestAdminOnlyMiddleware(t *testing.T) {
	withUser := func(u *domain.User) gin.HandlerFunc {
		return func(c *gin.Context) {
			if u != nil {
				c.Set(UserKey, u)
			}
		}
	}
	ok := func(c *gin.Context) { c.Status(http.StatusNoContent) }

	tests := []struct {
		name string
		user *domain.User
		want int
	}{
		{"no user", nil, http.StatusUnauthorized},
		{"regular user", &domain.User{UserID: 1, Role: "user"}, http.StatusForbidden},
		{"admin", &domain.User{UserID: 2, Role: "admin"}, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/admin", withUser(tt.user), AdminOnlyMiddleware(), ok)
			assert.Equal(t, tt.want, serve(r, httptest.NewRequest(http.MethodGet, "/admin", nil)).Code)
		})
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware(), LoggerMiddleware(), MetricsMiddleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDKey)) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Len(t, w.Header().Get("X-Request-ID"), 36)
	assert.Equal(t, w.Header().Get("X-Request-ID"), w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	assert.Equal(t, "abc-123", serve(r, req).Header().Get("X-Request-ID"))
}
