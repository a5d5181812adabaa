package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/tripquote_api/internal/models"
	"github.com/GTDGit/tripquote_api/internal/utils"
)

func newTestRouter(signer *utils.JWTSigner, limiter *InvalidAuthRateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	jwt := NewJWTMiddleware(signer, limiter)
	r.GET("/admin", jwt.Handle(), RequireRole(models.RoleAdmin), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("user_id"))
	})
	return r
}

func doGet(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTMiddlewareRoles(t *testing.T) {
	signer := utils.NewJWTSigner("test-secret", time.Hour)
	r := newTestRouter(signer, nil)

	adminToken, err := signer.Generate("admin-1", "a@example.com", "admin")
	require.NoError(t, err)
	agentToken, err := signer.Generate("agent-1", "b@example.com", "agent")
	require.NoError(t, err)

	w := doGet(r, adminToken)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin-1", w.Body.String())

	assert.Equal(t, http.StatusForbidden, doGet(r, agentToken).Code)
	assert.Equal(t, http.StatusUnauthorized, doGet(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, doGet(r, "not-a-token").Code)
}

func TestInvalidAttemptsAreRateLimited(t *testing.T) {
	signer := utils.NewJWTSigner("test-secret", time.Hour)
	limiter := NewInvalidAuthRateLimiter(3, time.Minute)
	r := newTestRouter(signer, limiter)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusUnauthorized, doGet(r, "garbage").Code)
	}
	good, err := signer.Generate("admin-1", "a@example.com", "admin")
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, doGet(r, good).Code)
}

func TestRateLimiterWindowResets(t *testing.T) {
	limiter := NewInvalidAuthRateLimiter(1, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	limiter.Record("10.0.0.1")
	assert.True(t, limiter.Blocked("10.0.0.1"))
	assert.False(t, limiter.Blocked("10.0.0.2"))

	now = now.Add(2 * time.Minute)
	assert.False(t, limiter.Blocked("10.0.0.1"))
}
