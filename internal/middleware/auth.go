package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TokenCookieName is the cookie the login handler sets; bearer headers take
// precedence when both are present.
const TokenCookieName = "fabrix_token"

func tokenFromRequest(c *gin.Context) string {
	raw := strings.TrimSpace(c.GetHeader("Authorization"))
	if raw != "" {
		parts := strings.Split(raw, " ")
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
		return ""
	}
	if cookie, err := c.Cookie(TokenCookieName); err == nil {
		return strings.TrimSpace(cookie)
	}
	return ""
}

func parseClaims(tokenString, secret string) (jwt.MapClaims, bool) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, false
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	return claims, ok
}

// AuthGuard validates the JWT from the bearer header or cookie and checks the
// role claim against allowedRoles when any are given. The customer id is
// stored in the context under "userId".
func AuthGuard(secret string, allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := tokenFromRequest(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		claims, ok := parseClaims(tokenString, secret)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		role, _ := claims["role"].(string)
		if len(allowedRoles) > 0 {
			match := false
			for _, r := range allowedRoles {
				if role == r {
					match = true
					break
				}
			}
			if !match {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
				return
			}
		}

		sub, _ := claims["sub"].(string)
		userID, err := primitive.ObjectIDFromHex(strings.TrimSpace(sub))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set("userId", userID)
		c.Set("role", role)
		c.Set("claims", claims)
		c.Next()
	}
}

// UserAuth admits any authenticated customer.
func UserAuth(secret string) gin.HandlerFunc {
	return AuthGuard(secret)
}

// AdminAuth admits administrative accounts only.
func AdminAuth(secret string) gin.HandlerFunc {
	return AuthGuard(secret, "admin")
}
