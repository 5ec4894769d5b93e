package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cl0udz1/cyber-guard-platfrom/internal/apperr"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/models"
)

const principalKey = "principal"

// TokenParser turns a bearer token into the caller it names.
type TokenParser interface {
	ParseToken(tokenString string) (*models.Principal, error)
}

// RequirePrincipal rejects requests without a valid bearer token.
func RequirePrincipal(parser TokenParser, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "Not authenticated.")
			return
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			unauthorized(c, "Authorization header format must be Bearer <token>.")
			return
		}

		principal, err := parser.ParseToken(parts[1])
		if err != nil {
			logger.Debug("Rejected bearer token", zap.Error(err))
			unauthorized(c, apperr.PublicDetail(err))
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// PrincipalFrom returns the caller stored by RequirePrincipal, or nil.
func PrincipalFrom(c *gin.Context) *models.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*models.Principal)
	return p
}

func unauthorized(c *gin.Context, detail string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": detail})
}
