package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/papyrus-app/papyrus/internal/authz"
	"github.com/papyrus-app/papyrus/internal/sessions"
)

// principalKey is the gin context key the auth middleware stores the
// verified principal under.
const principalKey = "principal"

// Verifier is the minimal credential interface the middleware depends on.
// JWT and OIDC verifiers both satisfy it.
type Verifier interface {
	Verify(ctx context.Context, raw string) (authz.Principal, error)
}

// AuthMiddleware verifies the Bearer token and stores the resulting
// principal in the request context. Blacklisted tokens are rejected even
// when they still verify.
func AuthMiddleware(ver Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or malformed Authorization header"})
			return
		}
		if black, err := sessions.IsAccessTokenBlacklisted(c.Request.Context(), raw); err == nil && black {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token revoked"})
			return
		}
		p, err := ver.Verify(c.Request.Context(), raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

// PrincipalFrom returns the principal the auth middleware stored, if any.
func PrincipalFrom(c *gin.Context) (authz.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return authz.Principal{}, false
	}
	p, ok := v.(authz.Principal)
	return p, ok
}

// BearerToken exposes the raw token for handlers that need it (logout
// blacklisting).
func BearerToken(c *gin.Context) (string, bool) {
	return bearerToken(c.GetHeader("Authorization"))
}

func bearerToken(header string) (string, bool) {
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
