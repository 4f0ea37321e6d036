package models

import "time"

// CodeEntry holds a live verification code when the database-backed code store
// is in use (no Redis configured). At most one row exists per key; the key is
// the composite captcha:email:<purpose>:<identifier> form used by the Redis
// store so the two backends stay interchangeable.
type CodeEntry struct {
	Key         string    `gorm:"primaryKey;size:256"`
	Code        string    `gorm:"size:16;not null"`
	Attempts    int       `gorm:"default:0"`
	MaxAttempts int       `gorm:"default:5"`
	ExpiresAt   time.Time `gorm:"index;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
