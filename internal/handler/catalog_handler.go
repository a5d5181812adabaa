package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/tripquote_api/internal/models"
	"github.com/GTDGit/tripquote_api/internal/service"
	"github.com/GTDGit/tripquote_api/internal/utils"
)

// CatalogHandler exposes product submission and the admin approval queue.
type CatalogHandler struct {
	inventory *service.InventoryService
}

// NewCatalogHandler constructs a CatalogHandler.
func NewCatalogHandler(inventory *service.InventoryService) *CatalogHandler {
	return &CatalogHandler{inventory: inventory}
}

// Submit handles POST /v1/catalog/products
func (h *CatalogHandler) Submit(c *gin.Context) {
	var draft models.ProductDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body: "+err.Error())
		return
	}

	v, err := h.inventory.Submit(c.Request.Context(), actorFrom(c), draft)
	if err != nil {
		log.Error().Err(err).Str("product_id", draft.ProductID).Msg("Failed to submit product")
		utils.ErrorFrom(c, err, "Failed to submit product")
		return
	}

	utils.Success(c, 201, "Product version submitted for approval", v)
}

// ListMine handles GET /v1/catalog/products/mine
func (h *CatalogHandler) ListMine(c *gin.Context) {
	versions, err := h.inventory.ListByOwner(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		utils.ErrorFrom(c, err, "Failed to retrieve products")
		return
	}
	utils.Success(c, 200, "Products retrieved", versions)
}

// ListVersions handles GET /v1/catalog/products/:productId/versions
func (h *CatalogHandler) ListVersions(c *gin.Context) {
	versions, err := h.inventory.ListVersions(c.Request.Context(), c.Param("productId"))
	if err != nil {
		utils.ErrorFrom(c, err, "Failed to retrieve versions")
		return
	}

	actor := actorFrom(c)
	if actor.Role != models.RoleAdmin && versions[0].OwnerID != actor.ID {
		utils.Error(c, 403, "FORBIDDEN", "Product belongs to another owner")
		return
	}
	utils.Success(c, 200, "Versions retrieved", versions)
}

// Current handles GET /v1/catalog/products/:productId/current
func (h *CatalogHandler) Current(c *gin.Context) {
	kind := models.ProductKind(c.Query("kind"))
	rate, err := h.inventory.ResolveCurrentPrice(c.Request.Context(), c.Param("productId"), kind)
	if err != nil {
		utils.ErrorFrom(c, err, "Failed to resolve current price")
		return
	}
	utils.Success(c, 200, "Current rate retrieved", rate)
}

// ListPending handles GET /v1/admin/catalog/pending
func (h *CatalogHandler) ListPending(c *gin.Context) {
	versions, err := h.inventory.ListPending(c.Request.Context())
	if err != nil {
		utils.ErrorFrom(c, err, "Failed to retrieve approval queue")
		return
	}
	utils.Success(c, 200, "Approval queue retrieved", versions)
}

// Approve handles POST /v1/admin/catalog/versions/:versionId/approve
func (h *CatalogHandler) Approve(c *gin.Context) {
	versionID := c.Param("versionId")
	v, err := h.inventory.Approve(c.Request.Context(), versionID, c.GetString("user_id"))
	if err != nil {
		log.Error().Err(err).Str("version_id", versionID).Msg("Failed to approve version")
		utils.ErrorFrom(c, err, "Failed to approve version")
		return
	}
	utils.Success(c, 200, "Version approved", v)
}

// Reject handles POST /v1/admin/catalog/versions/:versionId/reject
func (h *CatalogHandler) Reject(c *gin.Context) {
	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Rejection reason is required")
		return
	}

	versionID := c.Param("versionId")
	v, err := h.inventory.Reject(c.Request.Context(), versionID, req.Reason, c.GetString("user_id"))
	if err != nil {
		log.Error().Err(err).Str("version_id", versionID).Msg("Failed to reject version")
		utils.ErrorFrom(c, err, "Failed to reject version")
		return
	}
	utils.Success(c, 200, "Version rejected", v)
}

// AuditTrail handles GET /v1/admin/catalog/products/:productId/audit
func (h *CatalogHandler) AuditTrail(c *gin.Context) {
	events, err := h.inventory.AuditTrail(c.Request.Context(), c.Param("productId"))
	if err != nil {
		utils.ErrorFrom(c, err, "Failed to retrieve audit trail")
		return
	}
	utils.Success(c, 200, "Audit trail retrieved", events)
}

// actorFrom reads the caller set by the JWT middleware.
func actorFrom(c *gin.Context) service.Actor {
	return service.Actor{ID: c.GetString("user_id"), Role: models.Role(c.GetString("role"))}
}
