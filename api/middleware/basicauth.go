package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/syncgate/syncgate/internal/logger"
	"github.com/syncgate/syncgate/internal/models"
	"github.com/syncgate/syncgate/internal/repository"
)

const principalContextKey = "authenticated-principal"

// BasicAuthMiddleware resolves HTTP Basic credentials to a principal.
// ActiveSync clients authenticate with the mailbox address as username.
func BasicAuthMiddleware(log logger.Logger, repos *repository.Repositories) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, password, ok := c.Request.BasicAuth()
		if !ok {
			unauthorized(c)
			return
		}
		principal, err := repos.PrincipalRepository.GetByEmail(c.Request.Context(), username)
		if err != nil {
			log.Errorf("auth lookup for %s failed: %v", username, err)
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		if principal == nil || principal.Secret != password {
			unauthorized(c)
			return
		}
		c.Set(principalContextKey, principal)
		c.Next()
	}
}

func unauthorized(c *gin.Context) {
	c.Header("WWW-Authenticate", `Basic realm="ActiveSync"`)
	c.AbortWithStatus(http.StatusUnauthorized)
}

// PrincipalFromContext returns the principal set by BasicAuthMiddleware.
func PrincipalFromContext(c *gin.Context) *models.Principal {
	v, ok := c.Get(principalContextKey)
	if !ok {
		return nil
	}
	principal, _ := v.(*models.Principal)
	return principal
}
