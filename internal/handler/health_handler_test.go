package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func healthOf(t *testing.T, h *HealthHandler) (int, map[string]interface{}) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/v1/health", h.GetHealth)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/health", nil))

	var body struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body.Data
}

func TestHealthReportsDependencies(t *testing.T) {
	up := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("connection refused") })

	code, data := healthOf(t, NewHealthHandler(up, nil))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "disabled", data["redis"])

	code, data = healthOf(t, NewHealthHandler(up, down))
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "disconnected", data["redis"])
	assert.Equal(t, "connected", data["database"])

	code, data = healthOf(t, NewHealthHandler(down, up))
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", data["status"])
}
