package api

import (
	"errors"       // Error inspection
	"net/http"     // HTTP status codes
	"sort"         // Calendar ordering
	"strconv"      // String conversion
	"strings"      // String manipulation
	"time"         // Dates
	"unicode/utf8" // Description length

	"plantastic/internal/domain"   // Importing domain models
	"plantastic/internal/schedule" // Recurrence rules

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Structured logging
	"gorm.io/gorm"               // GORM ORM library
)

const (
	maxDescriptionLen = 1000 // Characters
	maxCalendarDays   = 92   // Widest calendar window
	weekDays          = 7    // Length of the week view after today
)

// CreateTaskRequest creates a one-off task, or a recurring series when a rule is given
type CreateTaskRequest struct {
	UserPlantID       uint           `json:"user_plant_id" binding:"required"`
	TaskTypeID        uint           `json:"task_type_id" binding:"required"`
	DueDate           string         `json:"due_date" binding:"required"`
	Description       string         `json:"description"`
	RecurrenceRule    *schedule.Rule `json:"recurrence_rule"`
	RecurrenceEndDate *string        `json:"recurrence_end_date"`
}

// UpdateTaskRequest is a partial update; rule and end date only apply to a series
type UpdateTaskRequest struct {
	Description       *string        `json:"description"`
	DueDate           *string        `json:"due_date"`
	TaskTypeID        *uint          `json:"task_type_id"`
	RecurrenceRule    *schedule.Rule `json:"recurrence_rule"`
	RecurrenceEndDate *string        `json:"recurrence_end_date"`
}

// CalendarEntry is a stored task or a projected occurrence of a series
type CalendarEntry struct {
	Date        string           `json:"date"`
	TaskID      *uint            `json:"task_id,omitempty"`
	SeriesID    *uint            `json:"series_id,omitempty"`
	UserPlantID uint             `json:"user_plant_id"`
	TaskType    *domain.TaskType `json:"task_type,omitempty"`
	Description string           `json:"description"`
	IsCompleted bool             `json:"is_completed"`
	Projected   bool             `json:"projected"`
}

// cleanDescription trims and length-checks a task description
func cleanDescription(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", invalid("description is required")
	}
	if utf8.RuneCountInString(s) > maxDescriptionLen {
		return "", invalid("description must be at most " + strconv.Itoa(maxDescriptionLen) + " characters")
	}
	return s, nil
}

// loadTaskType returns 404 when the task type does not exist
func loadTaskType(db *gorm.DB, id uint) (*domain.TaskType, error) {
	var tt domain.TaskType
	if err := db.First(&tt, "task_type_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("Task type not found")
		}
		return nil, err
	}
	return &tt, nil
}

// liveTasks scopes a query to the user's tasks that are not deleted
func liveTasks(db *gorm.DB, user *domain.User) *gorm.DB {
	return db.Model(&domain.Task{}).Where("user_id = ? AND deleted = ?", user.UserID, false)
}

// completeTask marks task done, moves the plant's watering date for watering tasks and
// spawns the next instance of a live series. It returns the spawned instance, if any.
func completeTask(tx *gorm.DB, task *domain.Task, today time.Time) (*domain.Task, error) {
	if task.IsRecurring {
		return nil, conflict("A recurring series cannot be completed, complete its instances")
	}
	if task.IsCompleted {
		return nil, conflict("Task is already completed")
	}
	done := now().UTC()
	if err := tx.Model(task).Updates(map[string]any{"is_completed": true, "completion_date": done}).Error; err != nil {
		return nil, err
	}
	task.IsCompleted = true
	task.CompletionDate = &done
	if task.TaskType != nil && task.TaskType.TaskName == domain.WateringTaskName {
		err := tx.Model(&domain.UserPlant{}).Where("user_plant_id = ?", task.UserPlantID).Update("last_watering_date", today).Error
		if err != nil {
			return nil, err
		}
	}
	if !task.IsInstance() {
		return nil, nil
	}
	var parent domain.Task
	err := tx.Where("id = ? AND deleted = ? AND is_recurring = ?", *task.OriginalTaskID, false, true).First(&parent).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Series was deleted
	}
	if err != nil {
		return nil, err
	}
	after := today
	if task.DueDate.After(after) {
		after = task.DueDate
	}
	due, ok := schedule.NextAfter(parent.RecurrenceRule, parent.DueDate, after, parent.RecurrenceEndDate)
	if !ok {
		return nil, nil // Series ended
	}
	var existing int64
	err = tx.Model(&domain.Task{}).
		Where("original_task_id = ? AND deleted = ? AND is_completed = ? AND due_date = ?", parent.ID, false, false, due).
		Count(&existing).Error
	if err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, nil
	}
	next := domain.Task{
		UserID:         parent.UserID,
		UserPlantID:    parent.UserPlantID,
		TaskTypeID:     parent.TaskTypeID,
		DueDate:        due,
		Description:    parent.Description,
		OriginalTaskID: &parent.ID,
	}
	if err := tx.Create(&next).Error; err != nil {
		return nil, err
	}
	return &next, nil
}

// CreateTaskHandler creates a one-off task or a series with its first instance
func CreateTaskHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateTaskRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		user := currentUser(c)
		description, err := cleanDescription(req.Description)
		if err != nil {
			respondError(c, err, "")
			return
		}
		due, err := parseDate(req.DueDate)
		if err != nil {
			respondError(c, err, "")
			return
		}
		if due.Before(todayFor(user)) {
			respondError(c, invalid("due_date cannot be in the past"), "")
			return
		}
		end, err := parseOptionalDate(req.RecurrenceEndDate)
		if err != nil {
			respondError(c, err, "")
			return
		}
		recurring := req.RecurrenceRule != nil && !req.RecurrenceRule.IsZero()
		if recurring {
			if err := req.RecurrenceRule.Validate(); err != nil {
				respondError(c, err, "")
				return
			}
			if end != nil && end.Before(due) {
				respondError(c, invalid("recurrence_end_date cannot be before due_date"), "")
				return
			}
		}
		var task, instance domain.Task
		err = dbFor(c, db).Transaction(func(tx *gorm.DB) error {
			up, err := loadUserPlant(tx, user, req.UserPlantID)
			if err != nil {
				return err
			}
			taskType, err := loadTaskType(tx, req.TaskTypeID)
			if err != nil {
				return err
			}
			task = domain.Task{
				UserID:      user.UserID,
				UserPlantID: up.ID,
				TaskTypeID:  taskType.ID,
				DueDate:     due,
				Description: description,
			}
			if recurring {
				task.IsRecurring = true
				task.RecurrenceRule = *req.RecurrenceRule
				task.RecurrenceEndDate = end
			}
			if err := tx.Omit("TaskType", "UserPlant").Create(&task).Error; err != nil {
				return err // Return error to rollback
			}
			task.TaskType = taskType
			if !recurring {
				return nil
			}
			instance = domain.Task{
				UserID:         user.UserID,
				UserPlantID:    up.ID,
				TaskTypeID:     taskType.ID,
				DueDate:        due,
				Description:    description,
				OriginalTaskID: &task.ID,
			}
			if err := tx.Omit("TaskType", "UserPlant").Create(&instance).Error; err != nil {
				return err // Return error to rollback
			}
			instance.TaskType = taskType
			return nil
		})
		if err != nil {
			respondError(c, err, "Failed to create task")
			return
		}
		logrus.WithFields(logrus.Fields{
			"user_id":       user.UserID,
			"task_id":       task.ID,
			"user_plant_id": task.UserPlantID,
			"recurring":     recurring,
			"due_date":      due.Format(dateLayout),
		}).Info("Task created")
		if recurring {
			c.JSON(http.StatusCreated, gin.H{"task": instance, "series": task})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"task": task})
	}
}

// ListTasksHandler lists one-off tasks and series instances with optional filters
func ListTasksHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		query := liveTasks(dbFor(c, db), user).Where("is_recurring = ?", false)
		if d := c.Query("date"); d != "" {
			day, err := parseDate(d)
			if err != nil {
				respondError(c, err, "")
				return
			}
			query = query.Where("due_date = ?", day)
		}
		if f := c.Query("from"); f != "" {
			from, err := parseDate(f)
			if err != nil {
				respondError(c, err, "")
				return
			}
			query = query.Where("due_date >= ?", from)
		}
		if t := c.Query("to"); t != "" {
			to, err := parseDate(t)
			if err != nil {
				respondError(c, err, "")
				return
			}
			query = query.Where("due_date <= ?", to)
		}
		if p := c.Query("user_plant_id"); p != "" {
			id, err := strconv.ParseUint(p, 10, 64)
			if err != nil || id == 0 {
				respondError(c, invalid("Invalid user_plant_id"), "")
				return
			}
			query = query.Where("user_plant_id = ?", id)
		}
		if v := c.Query("completed"); v != "" {
			completed, err := strconv.ParseBool(v)
			if err != nil {
				respondError(c, invalid("completed must be true or false"), "")
				return
			}
			query = query.Where("is_completed = ?", completed)
		}
		var tasks []domain.Task
		if err := query.Preload("TaskType").Order("due_date, id").Find(&tasks).Error; err != nil {
			respondError(c, err, "Failed to load tasks")
			return
		}
		c.JSON(http.StatusOK, gin.H{"tasks": tasks})
	}
}

// WeekTasksHandler lists tasks due from today through the next seven days
func WeekTasksHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		from := todayFor(user)
		to := from.AddDate(0, 0, weekDays)
		var tasks []domain.Task
		err := liveTasks(dbFor(c, db), user).
			Where("is_recurring = ? AND due_date >= ? AND due_date <= ?", false, from, to).
			Preload("TaskType").
			Order("due_date, id").
			Find(&tasks).Error
		if err != nil {
			respondError(c, err, "Failed to load tasks")
			return
		}
		c.JSON(http.StatusOK, gin.H{"from": from.Format(dateLayout), "to": to.Format(dateLayout), "tasks": tasks})
	}
}

// CalendarHandler merges stored tasks with projected occurrences of live series
func CalendarHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		from, err := parseDate(c.Query("from"))
		if err != nil {
			respondError(c, err, "")
			return
		}
		to, err := parseDate(c.Query("to"))
		if err != nil {
			respondError(c, err, "")
			return
		}
		if to.Before(from) {
			respondError(c, invalid("to cannot be before from"), "")
			return
		}
		if days := int(to.Sub(from)/(24*time.Hour)) + 1; days > maxCalendarDays { // Both ends inclusive
			respondError(c, invalid("Calendar range is limited to "+strconv.Itoa(maxCalendarDays)+" days"), "")
			return
		}
		user := currentUser(c)
		entries, err := buildCalendar(dbFor(c, db), user, from, to)
		if err != nil {
			respondError(c, err, "Failed to build calendar")
			return
		}
		c.JSON(http.StatusOK, gin.H{"from": from.Format(dateLayout), "to": to.Format(dateLayout), "entries": entries})
	}
}

// buildCalendar lists stored tasks in [from, to] and projects each live series forward
// from its latest stored instance
func buildCalendar(db *gorm.DB, user *domain.User, from, to time.Time) ([]CalendarEntry, error) {
	var stored []domain.Task
	err := liveTasks(db, user).
		Where("is_recurring = ? AND due_date >= ? AND due_date <= ?", false, from, to).
		Preload("TaskType").
		Find(&stored).Error
	if err != nil {
		return nil, err
	}
	entries := make([]CalendarEntry, 0, len(stored))
	for i := range stored {
		t := &stored[i]
		entries = append(entries, CalendarEntry{
			Date:        t.DueDate.Format(dateLayout),
			TaskID:      &t.ID,
			SeriesID:    t.OriginalTaskID,
			UserPlantID: t.UserPlantID,
			TaskType:    t.TaskType,
			Description: t.Description,
			IsCompleted: t.IsCompleted,
		})
	}

	var series []domain.Task
	if err := liveTasks(db, user).Where("is_recurring = ?", true).Preload("TaskType").Find(&series).Error; err != nil {
		return nil, err
	}
	for i := range series {
		s := &series[i]
		var latest domain.Task
		err := liveTasks(db, user).Where("original_task_id = ?", s.ID).Order("due_date DESC").First(&latest).Error
		start := s.DueDate
		if err == nil {
			start = latest.DueDate
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		for _, day := range schedule.Occurrences(s.RecurrenceRule, s.DueDate, from, to, s.RecurrenceEndDate) {
			if !day.After(start) {
				continue // Already stored
			}
			entries = append(entries, CalendarEntry{
				Date:        day.Format(dateLayout),
				SeriesID:    &s.ID,
				UserPlantID: s.UserPlantID,
				TaskType:    s.TaskType,
				Description: s.Description,
				Projected:   true,
			})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Date != entries[j].Date {
			return entries[i].Date < entries[j].Date
		}
		return entries[i].UserPlantID < entries[j].UserPlantID
	})
	return entries, nil
}

// GetTaskHandler returns one of the user's tasks
func GetTaskHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramID(c, "id")
		if err != nil {
			respondError(c, err, "")
			return
		}
		task, err := loadTask(dbFor(c, db), currentUser(c), id)
		if err != nil {
			respondError(c, err, "Failed to load task")
			return
		}
		c.JSON(http.StatusOK, gin.H{"task": task})
	}
}

// UpdateTaskHandler edits a task; on a series the changes carry over to its open instances
func UpdateTaskHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramID(c, "id")
		if err != nil {
			respondError(c, err, "")
			return
		}
		var req UpdateTaskRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		user := currentUser(c)
		var task *domain.Task
		err = dbFor(c, db).Transaction(func(tx *gorm.DB) error {
			loaded, err := loadTask(tx, user, id)
			if err != nil {
				return err
			}
			task = loaded
			updates, err := taskUpdates(tx, user, task, &req)
			if err != nil {
				return err
			}
			if len(updates) == 0 {
				return nil
			}
			if err := tx.Model(task).Updates(updates).Error; err != nil {
				return err // Return error to rollback
			}
			if !task.IsRecurring {
				return nil
			}
			// Open instances follow the series
			carried := map[string]any{}
			for _, k := range []string{"description", "task_type_id"} {
				if v, ok := updates[k]; ok {
					carried[k] = v
				}
			}
			open := tx.Model(&domain.Task{}).Where("original_task_id = ? AND deleted = ? AND is_completed = ?", task.ID, false, false)
			if len(carried) > 0 {
				if err := open.Session(&gorm.Session{}).Updates(carried).Error; err != nil {
					return err
				}
			}
			if end, ok := updates["recurrence_end_date"].(*time.Time); ok && end != nil {
				if err := open.Session(&gorm.Session{}).Where("due_date > ?", *end).Update("deleted", true).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			respondError(c, err, "Failed to update task")
			return
		}
		fresh, err := loadTask(dbFor(c, db), user, task.ID)
		if err != nil {
			respondError(c, err, "Failed to load task")
			return
		}
		logrus.WithFields(logrus.Fields{"user_id": user.UserID, "task_id": fresh.ID}).Info("Task updated")
		c.JSON(http.StatusOK, gin.H{"task": fresh})
	}
}

// taskUpdates validates req against task and returns the columns to write
func taskUpdates(tx *gorm.DB, user *domain.User, task *domain.Task, req *UpdateTaskRequest) (map[string]any, error) {
	if task.IsCompleted {
		return nil, conflict("Completed tasks cannot be changed")
	}
	updates := map[string]any{}
	if req.Description != nil {
		d, err := cleanDescription(*req.Description)
		if err != nil {
			return nil, err
		}
		updates["description"] = d
	}
	due := task.DueDate
	if req.DueDate != nil {
		d, err := parseDate(*req.DueDate)
		if err != nil {
			return nil, err
		}
		if d.Before(todayFor(user)) {
			return nil, invalid("due_date cannot be in the past")
		}
		due = d
		updates["due_date"] = d
	}
	if req.TaskTypeID != nil {
		tt, err := loadTaskType(tx, *req.TaskTypeID)
		if err != nil {
			return nil, err
		}
		updates["task_type_id"] = tt.ID
	}
	if req.RecurrenceRule == nil && req.RecurrenceEndDate == nil {
		return updates, nil
	}
	if !task.IsRecurring {
		return nil, invalid("Only a recurring series has a recurrence rule")
	}
	if req.RecurrenceRule != nil {
		if req.RecurrenceRule.IsZero() {
			return nil, invalid("recurrence_rule cannot be removed from a series")
		}
		if err := req.RecurrenceRule.Validate(); err != nil {
			return nil, err
		}
		updates["recurrence_rule"] = *req.RecurrenceRule
	}
	if req.RecurrenceEndDate != nil {
		end, err := parseOptionalDate(req.RecurrenceEndDate)
		if err != nil {
			return nil, err
		}
		if end != nil && end.Before(due) {
			return nil, invalid("recurrence_end_date cannot be before due_date")
		}
		updates["recurrence_end_date"] = end
	}
	return updates, nil
}

// CompleteTaskHandler completes a task and returns the next instance of its series
func CompleteTaskHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramID(c, "id")
		if err != nil {
			respondError(c, err, "")
			return
		}
		user := currentUser(c)
		var task, next *domain.Task
		err = dbFor(c, db).Transaction(func(tx *gorm.DB) error {
			loaded, err := loadTask(tx, user, id)
			if err != nil {
				return err
			}
			task = loaded
			next, err = completeTask(tx, task, todayFor(user))
			return err
		})
		if err != nil {
			respondError(c, err, "Failed to complete task")
			return
		}
		fields := logrus.Fields{"user_id": user.UserID, "task_id": task.ID}
		if next != nil {
			fields["next_task_id"] = next.ID
			fields["next_due_date"] = next.DueDate.Format(dateLayout)
		}
		logrus.WithFields(fields).Info("Task completed")
		c.JSON(http.StatusOK, gin.H{"task": task, "next_task": next})
	}
}

// DeleteTaskHandler soft-deletes a task; a series goes with all its instances, and so
// does an instance when series=true
func DeleteTaskHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramID(c, "id")
		if err != nil {
			respondError(c, err, "")
			return
		}
		wholeSeries, _ := strconv.ParseBool(c.DefaultQuery("series", "false"))
		user := currentUser(c)
		deleted := int64(0)
		err = dbFor(c, db).Transaction(func(tx *gorm.DB) error {
			task, err := loadTask(tx, user, id)
			if err != nil {
				return err
			}
			seriesID := uint(0)
			switch {
			case task.IsRecurring:
				seriesID = task.ID
			case wholeSeries && task.IsInstance():
				seriesID = *task.OriginalTaskID
			}
			if seriesID == 0 {
				res := tx.Model(task).Update("deleted", true)
				deleted = res.RowsAffected
				return res.Error
			}
			res := tx.Model(&domain.Task{}).
				Where("user_id = ? AND deleted = ? AND (id = ? OR original_task_id = ?)", user.UserID, false, seriesID, seriesID).
				Update("deleted", true)
			deleted = res.RowsAffected
			return res.Error
		})
		if err != nil {
			respondError(c, err, "Failed to delete task")
			return
		}
		logrus.WithFields(logrus.Fields{"user_id": user.UserID, "task_id": id, "deleted": deleted}).Info("Task deleted")
		c.JSON(http.StatusOK, gin.H{"message": "Task deleted", "deleted": deleted})
	}
}
