package utils

import (
	"crypto/hmac"   // HMAC signatures
	"crypto/sha256" // SHA-256 digest
	"encoding/hex"  // Hex encoding of the hash
	"encoding/json" // Decoding the user field
	"errors"        // Sentinel errors
	"net/url"       // Query string parsing
	"sort"          // Sorting keys
	"strconv"       // Parsing auth_date
	"strings"       // Building the data-check string
	"time"          // Freshness check
)

// Validation errors for Telegram WebApp initData
var (
	ErrMissingHash = errors.New("hash is missing from init data")
	ErrInvalidHash = errors.New("init data hash mismatch")
	ErrMissingUser = errors.New("user is missing from init data")
	ErrBadUser     = errors.New("user field is not valid JSON")
	ErrExpired     = errors.New("init data is expired")
	ErrBadInitData = errors.New("init data is not a valid query string")
)

// TelegramUser is the user object embedded in initData
type TelegramUser struct {
	ID           int64  `json:"id"`                      // Telegram user id
	FirstName    string `json:"first_name"`              // First name
	LastName     string `json:"last_name,omitempty"`     // Last name
	Username     string `json:"username,omitempty"`      // Username
	PhotoURL     string `json:"photo_url,omitempty"`     // Avatar
	LanguageCode string `json:"language_code,omitempty"` // Client language
	AuthDate     int64  `json:"-"`                       // auth_date of the payload
}

// WebAppSecret derives the signing key from the bot token: HMAC-SHA256("WebAppData", token)
func WebAppSecret(botToken string) []byte {
	mac := hmac.New(sha256.New, []byte("WebAppData"))
	mac.Write([]byte(botToken))
	return mac.Sum(nil)
}

// DataCheckString joins every pair except hash as key=value, sorted by key, separated by newlines
func DataCheckString(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k != "hash" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+values.Get(k))
	}
	return strings.Join(parts, "\n")
}

// SignInitData computes the hex hash Telegram would attach to values
func SignInitData(values url.Values, botToken string) string {
	mac := hmac.New(sha256.New, WebAppSecret(botToken))
	mac.Write([]byte(DataCheckString(values)))
	return hex.EncodeToString(mac.Sum(nil))
}

// ValidateInitData checks the signature and freshness of initData and returns its user
func ValidateInitData(initData, botToken string, maxAge time.Duration, now time.Time) (*TelegramUser, error) {
	values, err := url.ParseQuery(initData) // Parse and URL-decode the pairs
	if err != nil {
		return nil, ErrBadInitData
	}
	received := values.Get("hash")
	if received == "" {
		return nil, ErrMissingHash
	}
	expected := SignInitData(values, botToken)
	// Constant time comparison
	if !hmac.Equal([]byte(expected), []byte(received)) {
		return nil, ErrInvalidHash
	}
	rawUser := values.Get("user")
	if rawUser == "" {
		return nil, ErrMissingUser
	}
	var user TelegramUser
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil || user.ID == 0 {
		return nil, ErrBadUser
	}
	authDate, _ := strconv.ParseInt(values.Get("auth_date"), 10, 64) // Missing counts as 0
	if now.Sub(time.Unix(authDate, 0)) > maxAge {
		return nil, ErrExpired
	}
	user.AuthDate = authDate
	return &user, nil
}
