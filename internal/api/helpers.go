package api

import (
	"strconv" // String conversion
	"strings" // String manipulation
	"time"    // Dates

	"plantastic/internal/domain"     // Importing domain models
	"plantastic/internal/middleware" // Context accessors

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// dateLayout is the wire format of calendar dates
const dateLayout = "2006-01-02"

// now is swapped in tests
var now = time.Now

// pagination reads page and page_size the way every list endpoint does
func pagination(c *gin.Context) (page, pageSize, offset int) {
	page = 1      // Default page number
	pageSize = 20 // Default page size
	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v // Set page if valid
		}
	}
	// Check and set page size within limits
	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v // Set page size
		}
	}
	return page, pageSize, (page - 1) * pageSize
}

// totalPages rounds up
func totalPages(total int64, pageSize int) int {
	return (int(total) + pageSize - 1) / pageSize
}

// paramID parses a positive numeric path parameter
func paramID(c *gin.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		return 0, invalid("Invalid " + name)
	}
	return uint(v), nil
}

// Calendar dates are stored as UTC midnight so they compare the same on every driver.

// calendarDate drops the clock and zone of t, keeping its calendar day
func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// todayFor returns the user's current calendar date
func todayFor(user *domain.User) time.Time {
	return calendarDate(user.Today(now()))
}

// parseDate reads a YYYY-MM-DD calendar date
func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, invalid("Dates must use the YYYY-MM-DD format")
	}
	return t, nil
}

// parseOptionalDate returns nil for a missing or empty string
func parseOptionalDate(s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	t, err := parseDate(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// parseIDList reads comma separated positive ids, skipping malformed entries
func parseIDList(s string) []uint {
	var ids []uint
	seen := map[uint]bool{}
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err != nil || v == 0 || seen[uint(v)] {
			continue
		}
		seen[uint(v)] = true
		ids = append(ids, uint(v))
	}
	return ids
}

// dbFor scopes db to the request context
func dbFor(c *gin.Context, db *gorm.DB) *gorm.DB {
	return db.WithContext(c.Request.Context())
}

// currentUser returns the authenticated user; routes using it sit behind ActiveUserMiddleware
func currentUser(c *gin.Context) *domain.User {
	return middleware.CurrentUser(c)
}

// loadUserPlant fetches a live user plant owned by user
func loadUserPlant(db *gorm.DB, user *domain.User, id uint) (*domain.UserPlant, error) {
	var up domain.UserPlant
	if err := db.Where("user_plant_id = ? AND deleted = ?", id, false).First(&up).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, notFound("User plant not found")
		}
		return nil, err
	}
	if up.UserID != user.UserID {
		return nil, forbidden("User plant belongs to another user")
	}
	return &up, nil
}

// loadTask fetches a live task owned by user
func loadTask(db *gorm.DB, user *domain.User, id uint) (*domain.Task, error) {
	var task domain.Task
	if err := db.Preload("TaskType").Where("id = ? AND deleted = ?", id, false).First(&task).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, notFound("Task not found")
		}
		return nil, err
	}
	if task.UserID != user.UserID {
		return nil, forbidden("Task belongs to another user")
	}
	return &task, nil
}
