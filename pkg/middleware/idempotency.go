package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	IdempotencyHeader     = "Idempotency-Key"
	ContextIdempotencyKey = "idempotency_key"

	maxIdempotencyKeyLength = 255
)

// RequireIdempotencyKey rejects mutating requests that do not carry an
// Idempotency-Key header and exposes the key to handlers.
func RequireIdempotencyKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(IdempotencyHeader))
		if key == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "idempotency_key_required", "message": "Idempotency-Key header is required"})
			c.Abort()
			return
		}
		if len(key) > maxIdempotencyKeyLength {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "Idempotency-Key is too long"})
			c.Abort()
			return
		}

		c.Set(ContextIdempotencyKey, key)
		c.Next()
	}
}
