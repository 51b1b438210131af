package server

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// maxBodyBytes caps every request body per spec §5's resource bounds.
const maxBodyBytes = 1 << 20

// authMiddleware enforces the bearer key on every route it is attached
// to. The header may be either the bare key or "Bearer <key>"; both
// forms are compared with constant time equality to avoid a timing
// side-channel on the key itself.
func authMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader("Authorization")
		got = strings.TrimPrefix(got, "Bearer ")
		if !constantTimeEqual(got, apiKey) {
			writeErr(c, http.StatusUnauthorized, "unauthorized")
			c.Abort()
			return
		}
		c.Next()
	}
}

func constantTimeEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func limitBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
		c.Next()
	}
}
