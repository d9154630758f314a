package middleware

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kashmirtrails/packages-backend/pkg/jwt"
)

// UserContextKey is the key used to store user information in Gin context
const UserContextKey = "user"

// UserContext represents the authenticated user's information
type UserContext struct {
	UserID uuid.UUID `json:"user_id"`
	Phone  string    `json:"phone"`
}

// RequireAuth creates a middleware that validates JWT tokens and rejects
// unauthenticated requests
func RequireAuth(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, errCode := bearerToken(c)
		if errCode != "" {
			log.Printf("AUTH FAILED: %s - Path: %s, IP: %s", errCode, c.Request.URL.Path, c.ClientIP())
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "A valid Bearer token is required",
				"code":    errCode,
			})
			c.Abort()
			return
		}

		userCtx, ok := validateToken(c, jwtService, tokenString)
		if !ok {
			return
		}

		c.Set(UserContextKey, userCtx)
		c.Next()
	}
}

// OptionalAuth creates a middleware that validates a JWT token when one is
// presented but lets anonymous requests through without a user context. A
// malformed or invalid token is still rejected; only a missing header is
// treated as anonymous.
func OptionalAuth(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.Next()
			return
		}

		tokenString, errCode := bearerToken(c)
		if errCode != "" {
			log.Printf("AUTH FAILED: %s - Path: %s, IP: %s", errCode, c.Request.URL.Path, c.ClientIP())
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Invalid authorization header format. Expected: Bearer <token>",
				"code":    errCode,
			})
			c.Abort()
			return
		}

		userCtx, ok := validateToken(c, jwtService, tokenString)
		if !ok {
			return
		}

		c.Set(UserContextKey, userCtx)
		c.Next()
	}
}

// bearerToken extracts the token from the Authorization header, returning an
// error code when the header is missing or malformed.
func bearerToken(c *gin.Context) (string, string) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", "MISSING_AUTH_HEADER"
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", "INVALID_AUTH_FORMAT"
	}

	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return "", "INVALID_AUTH_FORMAT"
	}

	return tokenString, ""
}

// validateToken validates the token and writes the 401 response itself on
// failure.
func validateToken(c *gin.Context, jwtService *jwt.Service, tokenString string) (UserContext, bool) {
	claims, err := jwtService.ValidateAccessToken(tokenString)
	if err != nil {
		if jwtService.IsTokenExpired(tokenString) {
			log.Printf("AUTH FAILED: Token expired - Path: %s, IP: %s, Error: %v", c.Request.URL.Path, c.ClientIP(), err)
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "token_expired",
				"message": "Access token has expired. Please refresh your token.",
				"code":    "TOKEN_EXPIRED",
			})
		} else {
			log.Printf("AUTH FAILED: Invalid token - Path: %s, IP: %s, Error: %v", c.Request.URL.Path, c.ClientIP(), err)
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "invalid_token",
				"message": "Invalid access token",
				"code":    "INVALID_TOKEN",
			})
		}
		c.Abort()
		return UserContext{}, false
	}

	return UserContext{UserID: claims.UserID, Phone: claims.Phone}, true
}

// GetUserContext retrieves the user context from Gin context
func GetUserContext(c *gin.Context) (UserContext, bool) {
	value, exists := c.Get(UserContextKey)
	if !exists {
		return UserContext{}, false
	}

	userCtx, ok := value.(UserContext)
	if !ok {
		return UserContext{}, false
	}

	return userCtx, true
}

// CallerID returns a pointer to the authenticated user's ID, or nil for an
// anonymous request. Handlers pass this straight to the service layer, which
// treats nil as "not signed in".
func CallerID(c *gin.Context) *uuid.UUID {
	userCtx, exists := GetUserContext(c)
	if !exists {
		return nil
	}
	id := userCtx.UserID
	return &id
}
