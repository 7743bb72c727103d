package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"furnace/internal/utils"
)

func newRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(MetricsMiddleware(), AuthMiddleware(secret, "/healthz"))
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/furnace/api/v1/status", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("subject")) })
	return r
}

func get(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthDisabledWithoutSecret(t *testing.T) {
	r := newRouter("")
	assert.Equal(t, http.StatusOK, get(r, "/furnace/api/v1/status", "").Code)
}

func TestAuthRequiresToken(t *testing.T) {
	r := newRouter("s3cret")

	assert.Equal(t, http.StatusOK, get(r, "/healthz", "").Code)

	w := get(r, "/furnace/api/v1/status", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "auth.missing_token")

	bad, err := utils.IssueToken("other", "cli", time.Minute)
	require.NoError(t, err)
	w = get(r, "/furnace/api/v1/status", bad)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "auth.invalid_token")

	good, err := utils.IssueToken("s3cret", "cli", time.Minute)
	require.NoError(t, err)
	w = get(r, "/furnace/api/v1/status", good)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cli", w.Body.String())
}
