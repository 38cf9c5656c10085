package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/postfeed/utils"
)

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	r.GET("/whoami", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, ctx.GetString(ContextUserIDKey))
	})
	return r
}

func get(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	secret := []byte("mw-secret")
	r := newEngine(AuthRequired(secret))
	token, err := utils.GenerateToken(secret, "user-a", "alice", time.Hour)
	require.NoError(t, err)

	w := get(r, "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-a", w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, get(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "Token "+token).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "Bearer not-a-jwt").Code)
}

func TestRateLimitPerUser(t *testing.T) {
	secret := []byte("mw-secret")
	r := newEngine(AuthRequired(secret), RateLimitMiddleware(2))
	alice, err := utils.GenerateToken(secret, "user-a", "alice", time.Hour)
	require.NoError(t, err)
	bob, err := utils.GenerateToken(secret, "user-b", "bob", time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, get(r, "Bearer "+alice).Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "Bearer "+alice).Code)
	assert.Equal(t, http.StatusOK, get(r, "Bearer "+bob).Code, "buckets are per user")
}
