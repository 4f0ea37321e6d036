package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/phytul/nightingale-platform/internal/models"
	"github.com/phytul/nightingale-platform/pkg/crypto"
	apperrors "github.com/phytul/nightingale-platform/pkg/errors"
)

// CreateUserInput describes the fields accepted when creating a user.
// Password is optional: accounts created through code login have none until
// one is explicitly set. The plaintext never reaches the model; it is hashed
// here, on the only write path.
type CreateUserInput struct {
	Email    string
	Phone    string
	Username string
	Password string
	Gender   models.Gender
	Birthday *time.Time
	Bio      string
}

// UpdateUserInput enumerates mutable user attributes. Nil fields are left untouched.
type UpdateUserInput struct {
	Username *string
	Gender   *models.Gender
	Birthday *time.Time
	Bio      *string
	Password *string
}

// UserService manages CRUD lifecycle for user records keyed by email or id.
type UserService struct {
	db *gorm.DB
}

// NewUserService constructs a UserService instance.
func NewUserService(db *gorm.DB) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	return &UserService{db: db}, nil
}

// Create provisions a new user. A unique-constraint violation maps to a conflict.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, apperrors.NewBadRequest("email is required")
	}

	gender := input.Gender
	if gender == "" {
		gender = models.GenderUnknown
	}
	if !gender.Valid() {
		return nil, apperrors.NewBadRequest("invalid gender value")
	}

	user := &models.User{
		Email:    &email,
		Username: strings.TrimSpace(input.Username),
		Gender:   gender,
		Birthday: input.Birthday,
		Bio:      strings.TrimSpace(input.Bio),
		IsActive: true,
	}

	if phone := strings.TrimSpace(input.Phone); phone != "" {
		user.Phone = &phone
	}

	if input.Password != "" {
		hashed, err := crypto.HashPassword(input.Password)
		if err != nil {
			return nil, fmt.Errorf("user service: hash password: %w", err)
		}
		user.PasswordHash = hashed
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.ErrUserExists
		}
		return nil, fmt.Errorf("user service: create user: %w", err)
	}

	return user, nil
}

// FindByEmail loads a user by email address.
func (s *UserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	err := s.db.WithContext(ctx).Take(&user, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: find by email: %w", err)
	}
	return &user, nil
}

// FindByID loads a user by surrogate id.
func (s *UserService) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Take(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: find by id: %w", err)
	}
	return &user, nil
}

// ExistsByEmail reports whether an account exists for the email.
func (s *UserService) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ?", email).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("user service: exists by email: %w", err)
	}
	return count > 0, nil
}

// Update mutates the user identified by email. Password updates always re-hash.
func (s *UserService) Update(ctx context.Context, email string, input UpdateUserInput) (*models.User, error) {
	user, err := s.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Username != nil {
		updates["username"] = strings.TrimSpace(*input.Username)
	}
	if input.Gender != nil {
		if !input.Gender.Valid() {
			return nil, apperrors.NewBadRequest("invalid gender value")
		}
		updates["gender"] = *input.Gender
	}
	if input.Birthday != nil {
		updates["birthday"] = *input.Birthday
	}
	if input.Bio != nil {
		updates["bio"] = strings.TrimSpace(*input.Bio)
	}
	if input.Password != nil {
		hashed, err := crypto.HashPassword(*input.Password)
		if err != nil {
			return nil, fmt.Errorf("user service: hash password: %w", err)
		}
		updates["password_hash"] = hashed
	}

	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("user service: update user: %w", err)
	}

	return s.FindByID(ctx, user.ID)
}

// SetPassword stores a fresh hash for the user, the only password write path.
func (s *UserService) SetPassword(ctx context.Context, id uint, plaintext string) error {
	if plaintext == "" {
		return apperrors.NewBadRequest("password is required")
	}

	hashed, err := crypto.HashPassword(plaintext)
	if err != nil {
		return fmt.Errorf("user service: hash password: %w", err)
	}

	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("password_hash", hashed)
	if res.Error != nil {
		return fmt.Errorf("user service: set password: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

// Delete soft-deletes the user identified by email.
func (s *UserService) Delete(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	res := s.db.WithContext(ctx).Where("email = ?", email).Delete(&models.User{})
	if res.Error != nil {
		return fmt.Errorf("user service: delete user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

// List retrieves users with pagination, newest first.
func (s *UserService) List(ctx context.Context, page, perPage int) ([]models.User, int64, error) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 || perPage > 200 {
		perPage = 50
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("user service: count users: %w", err)
	}

	var users []models.User
	err := s.db.WithContext(ctx).
		Order("id DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("user service: list users: %w", err)
	}

	return users, total, nil
}
