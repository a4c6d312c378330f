package models

import (
	"time"
)

// LogEntry is a single pin on the map. Rows are insert-only: the service
// never updates or deletes an entry once written.
type LogEntry struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Title       string    `gorm:"type:varchar(255);not null" json:"title"`
	Comments    string    `gorm:"type:text" json:"comments,omitempty"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	Rating      int       `gorm:"not null;default:0" json:"rating"`
	Latitude    float64   `gorm:"not null" json:"latitude"`
	Longitude   float64   `gorm:"not null" json:"longitude"`
	VisitDate   time.Time `gorm:"not null;index" json:"visitDate"`
	Image       string    `gorm:"type:varchar(1024)" json:"image,omitempty"`
	CreatedAt   time.Time `gorm:"index;not null" json:"createdAt"`
}

// RateLimitCounter tracks write attempts per client identity within the
// current window. Expired rows are reset in place by the limiter's upsert
// and swept by the background purger.
type RateLimitCounter struct {
	ClientKey   string    `gorm:"primaryKey;type:varchar(64)"`
	Count       int       `gorm:"not null;default:0"`
	WindowStart time.Time `gorm:"not null"`
	ExpiresAt   time.Time `gorm:"index;not null"`
}

type AccessLog struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	Timestamp time.Time `gorm:"index;not null"`
	Method    string    `gorm:"type:varchar(10);not null"`
	Path      string    `gorm:"type:text;not null"`
	Status    int       `gorm:"not null;index"`
	Duration  time.Duration
	ClientIP  string `gorm:"type:varchar(45);not null"`
	UserAgent string `gorm:"type:text"`
	BytesSent int    `gorm:"not null;default:0"`
}

func (LogEntry) TableName() string {
	return "log_entries"
}

func (RateLimitCounter) TableName() string {
	return "rate_limit_counters"
}

func (AccessLog) TableName() string {
	return "access_logs"
}
