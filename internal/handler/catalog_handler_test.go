package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/tripquote_api/internal/config"
	"github.com/GTDGit/tripquote_api/internal/currency"
	"github.com/GTDGit/tripquote_api/internal/models"
	"github.com/GTDGit/tripquote_api/internal/pricing"
	"github.com/GTDGit/tripquote_api/internal/repository"
	"github.com/GTDGit/tripquote_api/internal/service"
)

type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

// as fakes the JWT middleware.
func as(userID string, role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Set("role", string(role))
		c.Next()
	}
}

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	normalizer := currency.NewSingle("USD")
	inventory := service.NewInventoryService(repository.NewMemoryCatalogRepository(), repository.NewMemoryAuditLog(), nil, normalizer)
	rules := service.NewPricingRuleService(repository.NewMemoryPricingRuleRepository(), nil)
	require.NoError(t, rules.Seed(context.Background(), config.PricingConfig{}))
	pipeline := pricing.NewPipeline(inventory, normalizer, pricing.NewCalculator(4))
	quotes := service.NewQuoteService(pipeline, rules, repository.NewMemoryQuoteRepository())

	catalog := NewCatalogHandler(inventory)
	quoteHandler := NewQuoteHandler(quotes)

	r := gin.New()
	sup := r.Group("/supplier", as("supplier-1", models.RoleSupplier))
	sup.POST("/products", catalog.Submit)
	sup.GET("/products/:productId/versions", catalog.ListVersions)
	adm := r.Group("/admin", as("admin-1", models.RoleAdmin))
	adm.POST("/versions/:versionId/approve", catalog.Approve)
	adm.POST("/versions/:versionId/reject", catalog.Reject)
	agent := r.Group("/agent", as("agent-1", models.RoleAgent))
	agent.POST("/estimate", quoteHandler.Estimate)
	agent.GET("/products/:productId/versions", catalog.ListVersions)
	return r
}

func call(t *testing.T, r http.Handler, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w.Code, env
}

func TestSubmitApproveAndPriceOverHTTP(t *testing.T) {
	r := newTestServer(t)

	code, env := call(t, r, http.MethodPost, "/supplier/products", gin.H{
		"kind": "TRANSFER", "name": "Airport run", "netCost": "30", "vehicleCapacity": 4,
	})
	require.Equal(t, http.StatusCreated, code)
	var v models.ProductVersion
	require.NoError(t, json.Unmarshal(env.Data, &v))
	assert.Equal(t, models.StatusPendingApproval, v.Status)

	code, _ = call(t, r, http.MethodPost, "/admin/versions/"+v.VersionID+"/approve", nil)
	require.Equal(t, http.StatusOK, code)

	code, env = call(t, r, http.MethodPost, "/admin/versions/"+v.VersionID+"/approve", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "INVALID_STATE", env.Error.Code)

	code, env = call(t, r, http.MethodPost, "/agent/estimate", gin.H{
		"paxCount": 5,
		"days": []gin.H{{"dayNumber": 1, "services": []gin.H{
			{"productId": v.ProductID, "kind": "TRANSFER", "cost": "1"},
		}}},
	})
	require.Equal(t, http.StatusOK, code)
	var b models.PriceBreakdown
	require.NoError(t, json.Unmarshal(env.Data, &b))
	assert.Equal(t, "60", b.SupplierCost.String())
	assert.Equal(t, 2, b.Lines[0].Quantity)
}

func TestHandlerErrorMapping(t *testing.T) {
	r := newTestServer(t)

	code, env := call(t, r, http.MethodPost, "/supplier/products", gin.H{"kind": "HOTEL", "name": "No rate"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	code, env = call(t, r, http.MethodPost, "/admin/versions/missing/approve", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	code, _ = call(t, r, http.MethodPost, "/admin/versions/missing/reject", gin.H{})
	assert.Equal(t, http.StatusBadRequest, code)

	_, env = call(t, r, http.MethodPost, "/supplier/products", gin.H{"kind": "HOTEL", "name": "Villa", "netCost": 80})
	var v models.ProductVersion
	require.NoError(t, json.Unmarshal(env.Data, &v))

	code, _ = call(t, r, http.MethodGet, "/supplier/products/"+v.ProductID+"/versions", nil)
	assert.Equal(t, http.StatusOK, code)
	code, env = call(t, r, http.MethodGet, "/agent/products/"+v.ProductID+"/versions", nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.False(t, env.Success)
}
