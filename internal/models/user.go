package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Gender enumerates the user gender values accepted by the API.
type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderOther   Gender = "other"
	GenderUnknown Gender = "unknown"
)

// Valid reports whether the gender is one of the accepted values.
func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther, GenderUnknown:
		return true
	}
	return false
}

// User describes a registered account. Accounts created through code login
// carry no password hash until one is explicitly set.
type User struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID string `gorm:"uniqueIndex;size:36;not null" json:"uuid"`

	Email    *string `gorm:"uniqueIndex;size:254" json:"email"`
	Phone    *string `gorm:"uniqueIndex;size:32" json:"phone,omitempty"`
	Username string  `gorm:"size:50" json:"username"`

	PasswordHash string `gorm:"size:255" json:"-"`

	Gender   Gender     `gorm:"size:16;default:unknown" json:"gender"`
	Birthday *time.Time `json:"birthday,omitempty"`
	Bio      string     `gorm:"size:255" json:"bio"`

	IsActive bool `gorm:"default:true" json:"is_active"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate ensures the external identifier and gender default are present.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UUID == "" {
		u.UUID = uuid.NewString()
	}
	if u.Gender == "" {
		u.Gender = GenderUnknown
	}
	return nil
}

// HasPassword reports whether the account can authenticate with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}
