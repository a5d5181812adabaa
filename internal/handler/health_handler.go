package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
)

var startTime = time.Now()

// Pinger is anything whose connectivity can be probed.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// HealthHandler provides health endpoint.
type HealthHandler struct {
	db    Pinger
	redis Pinger
}

// NewHealthHandler creates a new HealthHandler. redis may be nil.
func NewHealthHandler(db, redis Pinger) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

// GetHealth responds with service and dependency status.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := "healthy"
	dbStatus := "connected"
	if err := h.db.PingContext(ctx); err != nil {
		dbStatus = "disconnected"
		status = "degraded"
	}
	redisStatus := "disabled"
	if h.redis != nil {
		redisStatus = "connected"
		if err := h.redis.PingContext(ctx); err != nil {
			redisStatus = "disconnected"
			status = "degraded"
		}
	}

	code := 200
	if status != "healthy" {
		code = 503
	}
	c.JSON(code, gin.H{
		"success": status == "healthy",
		"code":    code,
		"message": "Service is " + status,
		"data": gin.H{
			"status":   status,
			"version":  "1.0.0",
			"uptime":   int(time.Since(startTime).Seconds()),
			"database": dbStatus,
			"redis":    redisStatus,
		},
	})
}
