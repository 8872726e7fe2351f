package auth

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

const principalKey = "auth.principal"

// RequireCustomer authenticates every request and stores the Principal on
// the gin context.
func RequireCustomer(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := a.Authenticate(c.Request)
		if err != nil {
			if !errors.Is(err, ErrUnauthenticated) {
				log.Printf("[auth] authenticate: %v", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrUnauthenticated.Error()})
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// RequireAdmin must run after RequireCustomer. Being authenticated is not
// enough; the stored role has to be admin.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := FromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrUnauthenticated.Error()})
			return
		}
		if !principal.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": ErrForbidden.Error()})
			return
		}
		c.Next()
	}
}

func FromContext(c *gin.Context) (Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return Principal{}, false
	}
	principal, ok := v.(Principal)
	return principal, ok
}
