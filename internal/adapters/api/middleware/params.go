package middleware

import (
	"net/http"

	"flowboard/internal/infrastructure/validation"

	"github.com/gin-gonic/gin"
)

// ValidateParams rejects requests whose path parameters are not plain resource
// ids, so nothing but an id is ever spliced into an upstream URL.
func ValidateParams() gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, p := range c.Params {
			if err := validation.ValidateResourceID(p.Value); err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid " + p.Key + ": " + err.Error()})
				return
			}
		}
		c.Next()
	}
}
