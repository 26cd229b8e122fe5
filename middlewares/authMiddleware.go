package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"citizenconnect/logging"
	"citizenconnect/models"
	authUtils "citizenconnect/utils"
)

// AuthCookie is the cookie name the login handler sets.
const AuthCookie = "auth_token"

// AuthMiddleware accepts a Bearer token or the auth cookie and stores the
// caller's user_id and role in the gin context.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		if authHeader := c.Request.Header.Get("Authorization"); authHeader != "" {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		} else if cookie, err := c.Cookie(AuthCookie); err == nil {
			tokenString = cookie
		}

		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "No authorization token provided"})
			return
		}

		if secret == "" {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "JWT secret not configured"})
			return
		}

		claims, err := authUtils.ParseToken(secret, tokenString)
		if err != nil {
			logging.Debug().Add(logging.Err(err)).Msg("token validation failed")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization token"})
			return
		}

		role := models.Role(claims.Role)
		if role == "" {
			role = models.RoleCitizen
		}
		c.Set("user_id", claims.UserID)
		c.Set("role", role)
		c.Next()
	}
}

// RequireRole rejects callers whose role is not listed.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.Get("role")
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "You are not allowed to perform this action"})
	}
}

// RequireOfficial admits officials and admins.
func RequireOfficial() gin.HandlerFunc {
	return RequireRole(models.RoleOfficial, models.RoleAdmin)
}
