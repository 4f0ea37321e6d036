package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/phytul/nightingale-platform/internal/middleware"
	"github.com/phytul/nightingale-platform/internal/models"
	"github.com/phytul/nightingale-platform/internal/services"
	"github.com/phytul/nightingale-platform/pkg/crypto"
	appErrors "github.com/phytul/nightingale-platform/pkg/errors"
	"github.com/phytul/nightingale-platform/pkg/response"
)

// ProfileHandler exposes current-user account management endpoints.
type ProfileHandler struct {
	users *services.UserService
}

// NewProfileHandler configures a profile handler with required services.
func NewProfileHandler(users *services.UserService) *ProfileHandler {
	return &ProfileHandler{users: users}
}

type updateProfileRequest struct {
	Username *string `json:"username" validate:"omitempty,max=50"`
	Gender   *string `json:"gender" validate:"omitempty,oneof=male female other unknown"`
	Birthday *string `json:"birthday" validate:"omitempty,datetime=2006-01-02"`
	Bio      *string `json:"bio" validate:"omitempty,max=255"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"omitempty,max=72"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

// Get returns the authenticated user's profile.
func (h *ProfileHandler) Get(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": user})
}

// Update modifies the authenticated user's profile details.
func (h *ProfileHandler) Update(c *gin.Context) {
	var body updateProfileRequest
	if !bindAndValidate(c, &body) {
		return
	}

	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	input := services.UpdateUserInput{
		Username: body.Username,
		Bio:      body.Bio,
	}
	if body.Gender != nil {
		gender := models.Gender(*body.Gender)
		input.Gender = &gender
	}
	if body.Birthday != nil {
		birthday, err := time.Parse("2006-01-02", *body.Birthday)
		if err != nil {
			response.Error(c, appErrors.NewBadRequest("birthday must be YYYY-MM-DD"))
			return
		}
		input.Birthday = &birthday
	}

	updated, err := h.users.Update(c.Request.Context(), *user.Email, input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user": updated})
}

// ChangePassword replaces the authenticated user's password. Accounts
// provisioned through code login have no password yet; those set one without
// presenting a current password.
func (h *ProfileHandler) ChangePassword(c *gin.Context) {
	var body changePasswordRequest
	if !bindAndValidate(c, &body) {
		return
	}

	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	if user.HasPassword() {
		if !crypto.VerifyPassword(user.PasswordHash, body.CurrentPassword) {
			response.Error(c, appErrors.ErrInvalidCredentials)
			return
		}
	}

	if err := h.users.SetPassword(c.Request.Context(), user.ID, body.NewPassword); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"changed": true})
}

func (h *ProfileHandler) currentUser(c *gin.Context) (*models.User, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, appErrors.ErrAccessTokenInvalid)
		return nil, false
	}

	user, err := h.users.FindByID(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	return user, true
}
