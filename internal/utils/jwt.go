package utils

import (
	"errors" // Sentinel errors
	"time"   // Time for token expiration

	"github.com/golang-jwt/jwt/v5" // JWT library
)

// ErrNotTelegramToken is returned for tokens not issued by the Telegram handshake
var ErrNotTelegramToken = errors.New("token was not issued by telegram auth")

// JWT Claims
type Claims struct {
	UserID               int64  `json:"user_id"`       // Telegram user id
	FirstName            string `json:"first_name"`    // First name at login time
	Username             string `json:"username"`      // Username at login time
	TelegramAuth         bool   `json:"telegram_auth"` // Marks tokens minted by the Telegram handshake
	jwt.RegisteredClaims        // Standard JWT claims
}

// GenerateJWT creates a session token for an authenticated Telegram user
func GenerateJWT(user TelegramUser, secret []byte, ttl time.Duration, now time.Time) (string, error) {
	// Set token claims
	claims := Claims{
		UserID:       user.ID,        // Custom claim for user ID
		FirstName:    user.FirstName, // First name
		Username:     user.Username,  // Username
		TelegramAuth: true,           // Issued by Telegram auth
		// Standard claims
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)), // Token expiry
			IssuedAt:  jwt.NewNumericDate(now),          // Issued at current time
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims) // Create token with claims
	return token.SignedString(secret)                          // Sign the token with the secret
}

// ParseJWT parses and validates a JWT token string
func ParseJWT(tokenStr string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		return secret, nil // Return the secret key for validation
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	// Check for parsing errors
	if err != nil {
		return nil, err // Return error if parsing fails
	}
	// Validate token and extract claims
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrSignatureInvalid // Return error if invalid
	}
	// Only tokens minted by the Telegram handshake are accepted
	if !claims.TelegramAuth {
		return nil, ErrNotTelegramToken
	}
	return claims, nil
}
