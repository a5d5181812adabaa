package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/GTDGit/tripquote_api/internal/service"
	"github.com/GTDGit/tripquote_api/internal/utils"
)

// QuoteHandler prices itineraries for agents.
type QuoteHandler struct {
	quotes *service.QuoteService
}

func NewQuoteHandler(quotes *service.QuoteService) *QuoteHandler {
	return &QuoteHandler{quotes: quotes}
}

// Estimate handles POST /v1/quotes/estimate. Nothing is stored.
func (h *QuoteHandler) Estimate(c *gin.Context) {
	var req service.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body: "+err.Error())
		return
	}

	breakdown, err := h.quotes.Estimate(c.Request.Context(), req)
	if err != nil {
		utils.ErrorFrom(c, err, "Failed to price itinerary")
		return
	}
	utils.Success(c, 200, "Estimate computed", breakdown)
}

// Create handles POST /v1/quotes
func (h *QuoteHandler) Create(c *gin.Context) {
	var req service.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body: "+err.Error())
		return
	}

	q, err := h.quotes.Finalize(c.Request.Context(), c.GetString("user_id"), req)
	if err != nil {
		utils.ErrorFrom(c, err, "Failed to save quote")
		return
	}
	utils.Success(c, 201, "Quote saved", q)
}

// Get handles GET /v1/quotes/:id
func (h *QuoteHandler) Get(c *gin.Context) {
	q, err := h.quotes.Get(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		utils.ErrorFrom(c, err, "Failed to retrieve quote")
		return
	}
	utils.Success(c, 200, "Quote retrieved", q)
}
