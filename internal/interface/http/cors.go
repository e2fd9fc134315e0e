package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const defaultAllowedMethods = "GET, POST, OPTIONS"

// corsMiddleware echoes allow-listed origins with credentials enabled. Requests
// from other origins get no CORS headers and are left to the browser to block.
func corsMiddleware(allowed []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		preflight := c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != ""

		if origin != "" && originAllowed(origin, allowed) {
			headers := c.Writer.Header()
			headers.Set("Access-Control-Allow-Origin", origin)
			headers.Set("Access-Control-Allow-Credentials", "true")
			headers.Add("Vary", "Origin")
			if preflight {
				methods := c.GetHeader("Access-Control-Request-Method")
				if methods == "" {
					methods = defaultAllowedMethods
				}
				headers.Set("Access-Control-Allow-Methods", methods)
				if requested := c.GetHeader("Access-Control-Request-Headers"); requested != "" {
					headers.Set("Access-Control-Allow-Headers", requested)
				}
				headers.Set("Access-Control-Max-Age", "600")
			}
		}

		if preflight {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func originAllowed(origin string, allowed []string) bool {
	origin = strings.TrimRight(origin, "/")
	for _, candidate := range allowed {
		if candidate == "*" || strings.EqualFold(candidate, origin) {
			return true
		}
	}
	return false
}
