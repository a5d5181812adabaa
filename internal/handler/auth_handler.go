package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/tripquote_api/internal/middleware"
	"github.com/GTDGit/tripquote_api/internal/models"
	"github.com/GTDGit/tripquote_api/internal/service"
	"github.com/GTDGit/tripquote_api/internal/utils"
)

type AuthHandler struct {
	authService *service.AuthService
	rateLimiter *middleware.InvalidAuthRateLimiter
}

func NewAuthHandler(authService *service.AuthService, rateLimiter *middleware.InvalidAuthRateLimiter) *AuthHandler {
	return &AuthHandler{authService: authService, rateLimiter: rateLimiter}
}

// Login handles POST /v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	ip := c.ClientIP()
	if h.rateLimiter != nil && h.rateLimiter.Blocked(ip) {
		utils.Error(c, 429, "TOO_MANY_ATTEMPTS", "Too many failed login attempts")
		return
	}

	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	token, user, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, utils.ErrInvalidCredentials) && h.rateLimiter != nil {
			h.rateLimiter.Record(ip)
		}
		utils.ErrorFrom(c, err, "Login failed")
		return
	}

	utils.Success(c, 200, "Login successful", gin.H{
		"token": token,
		"user":  user,
	})
}

// CreateUser handles POST /v1/admin/users
func (h *AuthHandler) CreateUser(c *gin.Context) {
	var req struct {
		Email    string      `json:"email" binding:"required,email"`
		Password string      `json:"password" binding:"required"`
		Name     string      `json:"name" binding:"required"`
		Role     models.Role `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	user, err := h.authService.CreateUser(c.Request.Context(), req.Email, req.Password, req.Name, req.Role)
	if err != nil {
		utils.ErrorFrom(c, err, "Failed to create user")
		return
	}
	utils.Success(c, 201, "User created", user)
}
