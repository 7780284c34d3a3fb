package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// KitchenRole labels a kitchen display connection from ?role=. It is a tag
// for logs, not an access check.
func KitchenRole() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.DefaultQuery("role", "kitchen")
		switch role {
		case "kitchen", "chef", "staff", "admin":
		default:
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown role"})
			return
		}
		c.Set("role", role)
		c.Next()
	}
}
