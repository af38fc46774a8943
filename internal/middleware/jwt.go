package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stemsi/coursegrade/internal/model"
	"github.com/stemsi/coursegrade/internal/response"
	"github.com/stemsi/coursegrade/internal/service"
)

const (
	// ContextKeyClaims is the Gin context key for JWT claims.
	ContextKeyClaims = "claims"
)

// TokenValidator validates access tokens.
type TokenValidator interface {
	ValidateToken(tokenStr string) (*service.Claims, error)
}

// RequireJWT validates a bearer token from the Authorization header.
func RequireJWT(auth TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerToken(c)
		if tokenStr == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}
		if !authenticate(c, auth, tokenStr) {
			return
		}
		c.Next()
	}
}

// RequireWSAuth validates a token from the query param ?token=...
// Used for WebSocket upgrade requests, which cannot carry headers from browsers.
func RequireWSAuth(auth TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := c.Query("token")
		if tokenStr == "" {
			tokenStr = bearerToken(c)
		}
		if tokenStr == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}
		if !authenticate(c, auth, tokenStr) {
			return
		}
		c.Next()
	}
}

// RequireStudent allows only student tokens.
func RequireStudent() gin.HandlerFunc {
	return requireRole(response.ErrStudentAccessOnly, model.RoleStudent)
}

// RequireInstructor allows instructor and admin tokens.
func RequireInstructor() gin.HandlerFunc {
	return requireRole(response.ErrInstructorOnly, model.RoleInstructor, model.RoleAdmin)
}

func requireRole(code response.ErrCode, roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		for _, r := range roles {
			if claims.Role == r {
				c.Next()
				return
			}
		}

		response.AbortFail(c, http.StatusForbidden, code)
	}
}

// GetClaims retrieves the JWT claims from the Gin context.
func GetClaims(c *gin.Context) *service.Claims {
	val, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil
	}
	claims, ok := val.(*service.Claims)
	if !ok {
		return nil
	}
	return claims
}

// GetActor returns the authenticated actor. ok is false without claims.
func GetActor(c *gin.Context) (service.Actor, bool) {
	claims := GetClaims(c)
	if claims == nil {
		return service.Actor{}, false
	}
	return claims.Actor(), true
}

func authenticate(c *gin.Context, auth TokenValidator, tokenStr string) bool {
	claims, err := auth.ValidateToken(tokenStr)
	if err != nil {
		code := response.ErrTokenInvalid
		if errors.Is(err, jwt.ErrTokenExpired) {
			code = response.ErrTokenExpired
		}
		response.AbortFail(c, http.StatusUnauthorized, code)
		return false
	}
	c.Set(ContextKeyClaims, claims)
	return true
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// claimsKey identifies the caller for per-user limits.
func claimsKey(c *gin.Context) string {
	if claims := GetClaims(c); claims != nil {
		return fmt.Sprintf("user:%d", claims.UserID)
	}
	return "ip:" + c.ClientIP()
}
