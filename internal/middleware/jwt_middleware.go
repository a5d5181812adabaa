package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/tripquote_api/internal/models"
	"github.com/GTDGit/tripquote_api/internal/utils"
)

// JWTMiddleware authenticates bearer tokens and gates routes by role.
type JWTMiddleware struct {
	signer      *utils.JWTSigner
	rateLimiter *InvalidAuthRateLimiter
}

func NewJWTMiddleware(signer *utils.JWTSigner, rateLimiter *InvalidAuthRateLimiter) *JWTMiddleware {
	return &JWTMiddleware{signer: signer, rateLimiter: rateLimiter}
}

func (m *JWTMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if m.rateLimiter != nil && m.rateLimiter.Blocked(ip) {
			utils.Error(c, 429, "TOO_MANY_ATTEMPTS", "Too many invalid authentication attempts")
			c.Abort()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.Error(c, 401, "UNAUTHORIZED", "Missing authorization header")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			m.fail(ip)
			utils.Error(c, 401, "UNAUTHORIZED", "Invalid authorization header")
			c.Abort()
			return
		}

		claims, err := m.signer.Validate(parts[1])
		if err != nil {
			m.fail(ip)
			utils.Error(c, 401, "INVALID_TOKEN", "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)
		c.Set("role", claims.Role)
		c.Next()
	}
}

func (m *JWTMiddleware) fail(ip string) {
	if m.rateLimiter != nil {
		m.rateLimiter.Record(ip)
	}
}

// RequireRole lets the request through only for the listed roles. It must
// run after Handle.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[string(r)] = true
	}
	return func(c *gin.Context) {
		if !allowed[c.GetString("role")] {
			utils.Error(c, 403, "FORBIDDEN", "Your role may not perform this action")
			c.Abort()
			return
		}
		c.Next()
	}
}
