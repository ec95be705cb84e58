package middlewares

import (
	"github.com/gin-gonic/gin"
)

const contentSecurityPolicy = "default-src 'self'; img-src 'self' data: https:; " +
	"style-src 'self' 'unsafe-inline'; script-src 'self' 'unsafe-inline'; connect-src 'self' ws: wss:"

// SecurityHeaders sets the browser hardening headers. HSTS is only sent
// when the site is served over TLS, otherwise local http setups would be
// pinned to https.
func SecurityHeaders(tls bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Content-Security-Policy", contentSecurityPolicy)
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		// the pickup scanner page reads the camera
		h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(self)")
		if tls {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}
