package domain

import "time"

// User Model, keyed by the Telegram user id
type User struct {
	UserID           int64     `gorm:"column:user_id;primaryKey;autoIncrement:false" json:"user_id"` // Telegram user id
	FirstName        string    `gorm:"column:first_name" json:"first_name"`                          // First name from Telegram
	Username         *string   `gorm:"column:username;unique" json:"username,omitempty"`             // Telegram username, optional
	RegistrationDate time.Time `gorm:"column:registration_date" json:"registration_date"`            // First login
	LastActivityDate time.Time `gorm:"column:last_activity_date" json:"last_activity_date"`          // Last login
	Timezone         string    `gorm:"column:timezone;default:UTC" json:"timezone"`                  // IANA timezone name
	Settings         JSONMap   `gorm:"column:settings_json" json:"settings"`                         // Free-form client settings
	Role             string    `gorm:"column:role;default:user" json:"role"`                         // Role: user or admin
	Deleted          bool      `gorm:"column:deleted;not null;default:false" json:"-"`               // Soft delete flag

	UserPlants []UserPlant `gorm:"foreignKey:UserID;references:UserID" json:"-"` // Owned plants
	Tasks      []Task      `gorm:"foreignKey:UserID;references:UserID" json:"-"` // Care tasks
}

func (User) TableName() string { return "users" }

// Location returns the user's timezone, UTC when unknown
func (u *User) Location() *time.Location {
	if u == nil || u.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Today returns midnight of the current day in the user's timezone
func (u *User) Today(now time.Time) time.Time {
	return StartOfDay(now.In(u.Location()))
}

// StartOfDay truncates t to midnight in its own location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
