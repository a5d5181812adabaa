package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/GTDGit/tripquote_api/internal/service"
	"github.com/GTDGit/tripquote_api/internal/utils"
)

// PricingRuleHandler exposes the global markup and tax rule to admins.
type PricingRuleHandler struct {
	rules *service.PricingRuleService
}

func NewPricingRuleHandler(rules *service.PricingRuleService) *PricingRuleHandler {
	return &PricingRuleHandler{rules: rules}
}

// Get handles GET /v1/admin/pricing-rule
func (h *PricingRuleHandler) Get(c *gin.Context) {
	rule, err := h.rules.Current(c.Request.Context())
	if err != nil {
		utils.ErrorFrom(c, err, "Failed to retrieve pricing rule")
		return
	}
	utils.Success(c, 200, "Pricing rule retrieved", rule)
}

// Update handles PUT /v1/admin/pricing-rule
func (h *PricingRuleHandler) Update(c *gin.Context) {
	var req service.UpdatePricingRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "All three percents are required")
		return
	}

	rule, err := h.rules.Update(c.Request.Context(), req, c.GetString("user_id"))
	if err != nil {
		utils.ErrorFrom(c, err, "Failed to update pricing rule")
		return
	}
	utils.Success(c, 200, "Pricing rule updated", rule)
}
