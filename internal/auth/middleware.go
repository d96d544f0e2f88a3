package auth

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const principalKey = "auth.principal"

// Principal is the authenticated caller of an API request.
type Principal struct {
	UserID uint64
	Role   string
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// CanAccess reports whether the caller may act on a resource owned by userID.
func (p Principal) CanAccess(userID uint64) bool {
	return p.IsAdmin() || p.UserID == userID
}

func PrincipalFrom(c *gin.Context) (Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}

func WithPrincipal(c *gin.Context, p Principal) {
	c.Set(principalKey, p)
}

// Middleware requires a valid bearer token. When disabled every request runs
// as an admin.
func Middleware(j JWT, disabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if disabled {
			WithPrincipal(c, Principal{Role: RoleAdmin})
			c.Next()
			return
		}
		tok := bearerToken(c.GetHeader("Authorization"))
		if tok == "" {
			abort(c, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := j.Verify(tok)
		if err != nil {
			abort(c, http.StatusUnauthorized, "invalid token")
			return
		}
		userID, err := strconv.ParseUint(strings.TrimSpace(claims.Subject), 10, 64)
		if err != nil || userID == 0 {
			abort(c, http.StatusUnauthorized, "invalid subject")
			return
		}
		WithPrincipal(c, Principal{UserID: userID, Role: claims.Role})
		c.Next()
	}
}

// SharedSecret guards machine-to-machine routes such as the cron trigger.
// An empty secret rejects every request.
func SharedSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := bearerToken(c.GetHeader("Authorization"))
		if secret == "" || tok == "" || subtle.ConstantTimeCompare([]byte(tok), []byte(secret)) != 1 {
			abort(c, http.StatusUnauthorized, "unauthorized")
			return
		}
		c.Next()
	}
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"code": status, "message": message})
}

func bearerToken(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	parts := strings.SplitN(v, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
