package middleware

import (
	"crypto/subtle"
	"net"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kiosk404/mirror/internal/pkg/core"
)

// TokenEnv is consulted when no token is configured.
const TokenEnv = "MIRROR_TOKEN"

// AuthConfig holds configuration for Bearer token authentication.
// The mirror's own browser talks over loopback and is never challenged.
type AuthConfig struct {
	// Token is the expected Bearer token value. Empty disables the check.
	Token string `json:"token"`
	// Public lists path prefixes served without a token.
	Public []string `json:"public"`
}

// ResolveToken returns the effective token, checking env vars as fallback.
func (c *AuthConfig) ResolveToken() string {
	if c.Token != "" {
		return c.Token
	}
	return os.Getenv(TokenEnv)
}

// BearerAuth returns a Gin middleware that enforces Bearer token
// authentication for requests from other hosts. A "token" query parameter
// is accepted as well, since EventSource cannot set headers.
func BearerAuth(cfg *AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := cfg.ResolveToken()
		if token == "" || isLocalRequest(c.Request) || cfg.isPublic(c.Request.URL.Path) {
			c.Next()
			return
		}

		provided := c.Query("token")
		if h := c.GetHeader("Authorization"); h != "" {
			const prefix = "Bearer "
			if !strings.HasPrefix(h, prefix) {
				abort(c, "invalid Authorization header format, expected 'Bearer <token>'")
				return
			}
			provided = h[len(prefix):]
		}
		if provided == "" {
			abort(c, "missing Authorization header")
			return
		}
		if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			abort(c, "invalid bearer token")
			return
		}
		c.Next()
	}
}

func (c *AuthConfig) isPublic(path string) bool {
	for _, p := range c.Public {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func abort(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, core.ErrResponse{
		Code:    http.StatusUnauthorized,
		Message: msg,
	})
}

// isLocalRequest checks if a request originates from loopback address.
func isLocalRequest(r *http.Request) bool {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return false
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback()
}
