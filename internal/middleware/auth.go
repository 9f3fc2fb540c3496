package middleware

import (
	"net/http"
	"strings"

	"bank-payments-backend/internal/services/reconciliation"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// JWTAuth verifies HS256 access tokens issued by the hosted backend and only
// lets through callers whose role (top level or app_metadata) is in roles.
// The token's email, or its subject, becomes the audit actor.
func JWTAuth(secret []byte, roles []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if len(authHeader) < 8 || !strings.EqualFold(authHeader[:7], "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid Authorization header"})
			return
		}
		tokenString := authHeader[7:]

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrInvalidKeyType
			}
			return secret, nil
		}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		if !allowed[roleOf(claims)] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}

		actor, _ := claims["email"].(string)
		if actor == "" {
			actor, _ = claims.GetSubject()
		}
		c.Request = c.Request.WithContext(reconciliation.WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

func roleOf(claims jwt.MapClaims) string {
	if meta, ok := claims["app_metadata"].(map[string]interface{}); ok {
		if r, ok := meta["role"].(string); ok && r != "" {
			return r
		}
	}
	r, _ := claims["role"].(string)
	return r
}
