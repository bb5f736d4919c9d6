package middleware

import "github.com/gin-gonic/gin"

// SecurityHeaders marks every response as uncacheable JSON. Checkout views
// and balances are per-user and must not be stored by intermediaries.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Cache-Control", "no-store")
		c.Header("Referrer-Policy", "no-referrer")
		c.Next()
	}
}
