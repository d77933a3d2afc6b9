package api

import (
	"context"  // Context for Redis ping
	"net/http" // HTTP status codes
	"time"     // Timestamps

	"plantastic/internal/db" // Database ping

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"gorm.io/gorm"                 // GORM ORM library
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// HealthHandler reports database and cache connectivity; only the database decides the status
func HealthHandler(gdb *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		dbOK := db.Ping(gdb)
		cacheOK := false
		if rdb != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			cacheOK = rdb.Ping(ctx).Err() == nil
			cancel()
		}
		status, code := "healthy", http.StatusOK
		if !dbOK {
			status, code = "unhealthy", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":             status,
			"timestamp":          now().UTC().Format(time.RFC3339),
			"database_connected": dbOK,
			"cache_connected":    cacheOK,
			"version":            Version,
		})
	}
}
