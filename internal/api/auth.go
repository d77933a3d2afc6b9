package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes
	"time"     // Token lifetime

	"plantastic/internal/domain" // Importing domain models
	"plantastic/internal/utils"  // Telegram validation and JWT

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Structured logging
	"gorm.io/gorm"                 // GORM ORM library
)

// AuthSettings groups what the Telegram handshake needs
type AuthSettings struct {
	BotToken  string        // Telegram bot token
	JWTSecret []byte        // Session signing key
	TokenTTL  time.Duration // Session lifetime
	MaxAge    time.Duration // Max initData age
}

// TelegramAuthRequest carries the raw initData string from the mini app
type TelegramAuthRequest struct {
	InitData string `json:"init_data" binding:"required"` // Telegram.WebApp.initData
}

// AuthResponse is returned after a successful handshake
type AuthResponse struct {
	Token string       `json:"token"` // JWT token
	User  *domain.User `json:"user"`  // Stored user
}

// TelegramAuthHandler exchanges signed initData for a session token
func TelegramAuthHandler(db *gorm.DB, rdb *redis.Client, settings AuthSettings) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TelegramAuthRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "init_data is required"})
			return
		}
		ts := now()
		tgUser, err := utils.ValidateInitData(req.InitData, settings.BotToken, settings.MaxAge, ts)
		if err != nil {
			logrus.WithFields(logrus.Fields{"error": err.Error(), "client_ip": c.ClientIP()}).Warn("Telegram init data rejected")
			respondError(c, err, "Authentication failed")
			return
		}
		user, err := upsertTelegramUser(dbFor(c, db), tgUser, ts)
		if err != nil {
			respondError(c, err, "Failed to store user")
			return
		}
		invalidateUsers(c, rdb) // Listing shows activity and usernames
		token, err := utils.GenerateJWT(*tgUser, settings.JWTSecret, settings.TokenTTL, ts)
		if err != nil {
			// If token generation fails, return internal server error
			respondError(c, err, "Failed to generate token")
			return
		}
		logrus.WithFields(logrus.Fields{
			"user_id":   user.UserID,             // Telegram user id
			"timestamp": ts.Format(time.RFC3339), // Current timestamp
		}).Info("User authenticated")
		c.JSON(http.StatusOK, AuthResponse{Token: token, User: user}) // Return the token in the response
	}
}

// upsertTelegramUser creates the user on first login and refreshes profile fields afterwards
func upsertTelegramUser(db *gorm.DB, tg *utils.TelegramUser, ts time.Time) (*domain.User, error) {
	var username *string
	if tg.Username != "" {
		username = &tg.Username
	}
	var user domain.User
	err := db.Transaction(func(tx *gorm.DB) error {
		if username != nil {
			// Usernames move between Telegram accounts, the latest holder keeps it
			err := tx.Model(&domain.User{}).Where("username = ? AND user_id <> ?", *username, tg.ID).Update("username", nil).Error
			if err != nil {
				return err
			}
		}
		err := tx.Where("user_id = ?", tg.ID).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			user = domain.User{
				UserID:           tg.ID,        // Telegram user id
				FirstName:        tg.FirstName, // First name
				Username:         username,     // Username, optional
				RegistrationDate: ts,           // First login
				LastActivityDate: ts,           // Last login
				Timezone:         "UTC",        // Until the client sets one
				Role:             "user",       // Default role
			}
			return tx.Create(&user).Error
		}
		if err != nil {
			return err
		}
		// Returning users get a fresh profile and a restored account
		if err := tx.Model(&user).Updates(map[string]any{
			"first_name":         tg.FirstName,
			"username":           username,
			"last_activity_date": ts,
			"deleted":            false,
		}).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ?", tg.ID).First(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}
