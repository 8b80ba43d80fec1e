package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"starter-api/internal/domain"
	"starter-api/internal/service"
)

const authClaimsKey = "auth_claims"

// AuthMiddleware valida el access token y, si se indican roles, exige que el
// rol del token sea uno de ellos.
func AuthMiddleware(tokens *service.TokenService, roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokens == nil {
			respondError(c, http.StatusInternalServerError, "auth not configured")
			c.Abort()
			return
		}

		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			respondError(c, http.StatusUnauthorized, "You are not authorized!")
			c.Abort()
			return
		}

		token := strings.TrimSpace(header[len("Bearer "):])
		claims, err := tokens.VerifyAccess(token)
		if err != nil {
			respondError(c, http.StatusUnauthorized, "Unauthorized: Invalid or expired token")
			c.Abort()
			return
		}

		if len(roles) > 0 && !roleAllowed(claims.Role, roles) {
			respondError(c, http.StatusForbidden, "You are not authorized to perform this action!")
			c.Abort()
			return
		}

		c.Set(authClaimsKey, claims)
		c.Next()
	}
}

// GetAuthClaims obtiene claims del access token desde el contexto.
func GetAuthClaims(c *gin.Context) (service.Claims, bool) {
	val, ok := c.Get(authClaimsKey)
	if !ok {
		return service.Claims{}, false
	}
	claims, ok := val.(service.Claims)
	return claims, ok
}

func roleAllowed(role domain.Role, allowed []domain.Role) bool {
	for _, r := range allowed {
		if role == r {
			return true
		}
	}
	return false
}
