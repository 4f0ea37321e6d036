package models

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestUserBeforeCreateDefaults(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&User{}))

	email := "new@example.com"
	user := &User{Email: &email}
	require.NoError(t, db.Create(user).Error)

	require.NotEmpty(t, user.UUID)
	require.Equal(t, GenderUnknown, user.Gender)
	require.False(t, user.HasPassword())
}

func TestUserEmailUniqueness(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&User{}))

	email := "dup@example.com"
	require.NoError(t, db.Create(&User{Email: &email}).Error)
	require.Error(t, db.Create(&User{Email: &email}).Error)
}

func TestGenderValid(t *testing.T) {
	require.True(t, GenderMale.Valid())
	require.True(t, GenderUnknown.Valid())
	require.False(t, Gender("robot").Valid())
}
