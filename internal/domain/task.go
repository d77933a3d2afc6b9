package domain

import (
	"time"

	"plantastic/internal/schedule"
)

// WateringTaskName is the task type that also moves a plant's last watering date
const WateringTaskName = "watering"

// TaskType Model
type TaskType struct {
	ID              uint   `gorm:"column:task_type_id;primaryKey" json:"task_type_id"`
	TaskName        string `gorm:"column:task_name;uniqueIndex;not null" json:"task_name"`
	TaskDescription string `gorm:"column:task_description;type:text" json:"task_description,omitempty"`
}

func (TaskType) TableName() string { return "task_types" }

// Task Model. A recurring series is a parent row (IsRecurring) holding the rule,
// and instance rows pointing back at it through OriginalTaskID.
type Task struct {
	ID                uint          `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UserID            int64         `gorm:"column:user_id;index;not null" json:"user_id"`
	UserPlantID       uint          `gorm:"column:user_plant_id;index;not null" json:"user_plant_id"`
	TaskTypeID        uint          `gorm:"column:task_type_id;not null" json:"task_type_id"`
	DueDate           time.Time     `gorm:"column:due_date;index;not null" json:"due_date"`
	Description       string        `gorm:"column:description;type:text" json:"description"`
	IsCompleted       bool          `gorm:"column:is_completed;index;default:false" json:"is_completed"`
	CompletionDate    *time.Time    `gorm:"column:completion_date" json:"completion_date,omitempty"`
	IsRecurring       bool          `gorm:"column:is_recurring;default:false" json:"is_recurring"`
	OriginalTaskID    *uint         `gorm:"column:original_task_id;index" json:"original_task_id,omitempty"`
	RecurrenceRule    schedule.Rule `gorm:"column:recurrence_rule" json:"recurrence_rule,omitzero"`
	RecurrenceEndDate *time.Time    `gorm:"column:recurrence_end_date" json:"recurrence_end_date,omitempty"`
	CreatedAt         time.Time     `gorm:"column:created_at" json:"created_at"`
	UpdatedAt         time.Time     `gorm:"column:updated_at" json:"updated_at"`
	Deleted           bool          `gorm:"column:deleted;not null;default:false" json:"-"`

	TaskType  *TaskType  `gorm:"foreignKey:TaskTypeID;references:ID" json:"task_type,omitempty"`
	UserPlant *UserPlant `gorm:"foreignKey:UserPlantID;references:ID" json:"-"`
}

func (Task) TableName() string { return "tasks" }

// IsInstance reports whether the task belongs to a recurring series
func (t *Task) IsInstance() bool { return t.OriginalTaskID != nil }
