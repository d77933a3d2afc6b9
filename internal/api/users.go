package api

import (
	"net/http" // HTTP status codes
	"time"     // Timezone validation

	"plantastic/internal/domain" // Importing domain models

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Structured logging
	"gorm.io/gorm"                 // GORM ORM library
)

// UpdateUserRequest is a partial profile update
type UpdateUserRequest struct {
	Timezone *string        `json:"timezone"` // IANA timezone name
	Settings map[string]any `json:"settings"` // Replaces stored settings when present
}

// GetMeHandler returns the authenticated user
func GetMeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": currentUser(c)})
	}
}

// UpdateMeHandler changes timezone and settings of the authenticated user
func UpdateMeHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		var req UpdateUserRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		updates := map[string]any{}
		if req.Timezone != nil {
			// Validate the timezone name
			if _, err := time.LoadLocation(*req.Timezone); err != nil || *req.Timezone == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown timezone"})
				return
			}
			updates["timezone"] = *req.Timezone
		}
		if req.Settings != nil {
			updates["settings_json"] = domain.JSONMap(req.Settings)
		}
		if len(updates) == 0 {
			c.JSON(http.StatusOK, gin.H{"user": user}) // Nothing to change
			return
		}
		tx := dbFor(c, db)
		if err := tx.Model(user).Updates(updates).Error; err != nil {
			respondError(c, err, "Failed to update user")
			return
		}
		if err := tx.Where("user_id = ?", user.UserID).First(user).Error; err != nil {
			respondError(c, err, "Failed to load user")
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": user})
	}
}

// DeleteMeHandler soft-deletes the account together with its plants and tasks
func DeleteMeHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		// Atomic cascade
		err := dbFor(c, db).Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&domain.Task{}).Where("user_id = ?", user.UserID).Update("deleted", true).Error; err != nil {
				return err // Return error to rollback
			}
			if err := tx.Model(&domain.UserPlant{}).Where("user_id = ?", user.UserID).Update("deleted", true).Error; err != nil {
				return err // Return error to rollback
			}
			return tx.Model(&domain.User{}).Where("user_id = ?", user.UserID).Update("deleted", true).Error
		})
		if err != nil {
			respondError(c, err, "Failed to delete account")
			return
		}
		invalidateUsers(c, rdb)
		logrus.WithField("user_id", user.UserID).Info("Account deleted") // Log account deletion
		c.JSON(http.StatusOK, gin.H{"message": "Account deleted"})
	}
}
