package api

import (
	"context"  // Context for Redis operations
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Time durations

	"plantastic/internal/domain"     // Importing domain models
	"plantastic/internal/middleware" // Request-scoped logger
	"plantastic/internal/utils"      // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"gorm.io/gorm"                 // GORM ORM library
)

// adminUsersPrefix is the cache namespace of the admin user listing
const adminUsersPrefix = "admin:users:"

// invalidateUsers drops every cached page of the admin user listing
func invalidateUsers(c *gin.Context, rdb *redis.Client) {
	if err := utils.DeleteCachePrefix(context.Background(), rdb, adminUsersPrefix); err != nil {
		middleware.Logger(c).WithField("error", err.Error()).Warn("Cache invalidation failed")
	}
}

// UserAdminResponse represents the user data returned to admin
type UserAdminResponse struct {
	UserID           int64     `json:"user_id"`            // Telegram user id
	FirstName        string    `json:"first_name"`         // First name
	Username         *string   `json:"username"`           // Username
	Role             string    `json:"role"`               // User role
	Deleted          bool      `json:"deleted"`            // Soft delete flag
	RegistrationDate time.Time `json:"registration_date"`  // First login
	LastActivityDate time.Time `json:"last_activity_date"` // Last login
	PlantCount       int64     `json:"plant_count"`        // Live plants
}

// ListUsersHandler returns all users with their plant counts
func ListUsersHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.Background() // Use background context for Redis
		page, pageSize, offset := pagination(c)
		// Create a cache key based on pagination parameters
		cacheKey := adminUsersPrefix + "page=" + strconv.Itoa(page) + ":size=" + strconv.Itoa(pageSize)
		var cached struct {
			Users      []UserAdminResponse `json:"users"`       // List of users
			Page       int                 `json:"page"`        // Current page
			PageSize   int                 `json:"page_size"`   // Page size
			Total      int64               `json:"total"`       // Total number of users
			TotalPages int                 `json:"total_pages"` // Total pages
		}
		// If cached data found, return it
		found, err := utils.GetCache(ctx, rdb, cacheKey, &cached)
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{
				"users":       cached.Users,      // List of users
				"page":        cached.Page,       // Current page
				"page_size":   cached.PageSize,   // Page size
				"total":       cached.Total,      // Total number of users
				"total_pages": cached.TotalPages, // Total pages
				"cached":      true,              // Indicate response is from cache
			})
			return
		}
		tx := dbFor(c, db)
		var total int64 // Total user count
		if err := tx.Model(&domain.User{}).Count(&total).Error; err != nil {
			respondError(c, err, "Failed to count users")
			return
		}
		var users []domain.User // Slice to hold users
		if err := tx.Order("user_id").Offset(offset).Limit(pageSize).Find(&users).Error; err != nil {
			respondError(c, err, "Failed to fetch users")
			return
		}
		// Count live plants of the page in one query
		ids := make([]int64, len(users))
		for i, u := range users {
			ids[i] = u.UserID
		}
		var counts []struct {
			UserID int64
			N      int64
		}
		if len(ids) > 0 {
			if err := tx.Model(&domain.UserPlant{}).Select("user_id, count(*) as n").
				Where("user_id IN ? AND deleted = ?", ids, false).Group("user_id").Scan(&counts).Error; err != nil {
				respondError(c, err, "Failed to count plants")
				return
			}
		}
		byUser := make(map[int64]int64, len(counts))
		for _, row := range counts {
			byUser[row.UserID] = row.N
		}
		// Map users to response format
		resp := make([]UserAdminResponse, len(users))
		for i, u := range users {
			resp[i] = UserAdminResponse{
				UserID:           u.UserID,
				FirstName:        u.FirstName,
				Username:         u.Username,
				Role:             u.Role,
				Deleted:          u.Deleted,
				RegistrationDate: u.RegistrationDate,
				LastActivityDate: u.LastActivityDate,
				PlantCount:       byUser[u.UserID],
			}
		}
		respData := gin.H{
			"users":       resp,                        // List of users
			"page":        page,                        // Current page
			"page_size":   pageSize,                    // Page size
			"total":       total,                       // Total number of users
			"total_pages": totalPages(total, pageSize), // Total pages
			"cached":      false,                       // Indicate response is not from cache
		}
		// Cache the response for future requests
		_ = utils.SetCache(ctx, rdb, cacheKey, respData, 60*time.Second)
		c.JSON(http.StatusOK, respData) // Return the response
	}
}
