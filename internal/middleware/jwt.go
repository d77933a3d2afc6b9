package middleware

import (
	"errors"
	"net/http"
	"strings"

	"plantastic/internal/utils"

	"github.com/gin-gonic/gin"
)

// Context keys shared with handlers
const (
	UserIDKey    = "userID"    // int64 Telegram user id
	ClaimsKey    = "claims"    // *utils.Claims of the session token
	UserKey      = "user"      // *domain.User loaded by ActiveUserMiddleware
	RequestIDKey = "requestID" // Request id string
)

var (
	errNoBearer      = errors.New("missing bearer token")
	errNotTelegram   = errors.New("token was not issued by the telegram login")
	errNoTelegramUID = errors.New("token carries no telegram user id")
)

// bearerToken pulls the token out of an Authorization header. The scheme is
// matched case-insensitively.
func bearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", errNoBearer
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", errNoBearer
	}
	return token, nil
}

// sessionClaims verifies a session token and checks it belongs to a Telegram login
func sessionClaims(token string, secret []byte) (*utils.Claims, error) {
	claims, err := utils.ParseJWT(token, secret)
	switch {
	case err != nil:
		return nil, err
	case !claims.TelegramAuth:
		return nil, errNotTelegram
	case claims.UserID <= 0:
		return nil, errNoTelegramUID
	}
	return claims, nil
}

// JWTAuthMiddleware admits requests carrying a session token minted by the
// Telegram login and exposes its user id under UserIDKey.
func JWTAuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header must carry a Bearer token"})
			return
		}
		claims, err := sessionClaims(token, secret)
		if err != nil {
			Logger(c).WithField("reason", err.Error()).Debug("Session token rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session expired, sign in through Telegram again"})
			return
		}
		c.Set(ClaimsKey, claims)
		c.Set(UserIDKey, claims.UserID)
		c.Next()
	}
}
