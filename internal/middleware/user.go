package middleware

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes

	"plantastic/internal/domain" // Importing domain models

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Structured logging
	"gorm.io/gorm"               // GORM ORM library
)

// ActiveUserMiddleware loads the authenticated user and rejects deleted accounts
func ActiveUserMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get(UserIDKey) // Get userID from context
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var user domain.User // Fetch user from database
		err := db.WithContext(c.Request.Context()).Where("user_id = ? AND deleted = ?", userID, false).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Token outlived the account
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Account not found"})
			return
		}
		if err != nil {
			logrus.WithFields(logrus.Fields{"user_id": userID, "error": err.Error()}).Error("Failed to load user")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		c.Set(UserKey, &user) // Store user in context
		c.Next()
	}
}

// CurrentUser returns the user stored by ActiveUserMiddleware
func CurrentUser(c *gin.Context) *domain.User {
	if v, ok := c.Get(UserKey); ok {
		if u, ok := v.(*domain.User); ok {
			return u
		}
	}
	return nil
}
