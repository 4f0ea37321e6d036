package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/phytul/nightingale-platform/internal/captcha"
	"github.com/phytul/nightingale-platform/internal/middleware"
	"github.com/phytul/nightingale-platform/internal/services"
	appErrors "github.com/phytul/nightingale-platform/pkg/errors"
	"github.com/phytul/nightingale-platform/pkg/response"
)

// AuthHandler manages authentication flows: code dispatch, the three login
// variants, token refresh and identity lookup.
type AuthHandler struct {
	auth  *services.AuthService
	codes *captcha.Service
	users *services.UserService
}

func NewAuthHandler(auth *services.AuthService, codes *captcha.Service, users *services.UserService) *AuthHandler {
	return &AuthHandler{auth: auth, codes: codes, users: users}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type sendCodeRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Purpose string `json:"purpose" validate:"required,oneof=register login reset_password bind_email"`
}

// POST /api/auth/send_code
func (h *AuthHandler) SendCode(c *gin.Context) {
	var req sendCodeRequest
	if !bindAndValidate(c, &req) {
		return
	}

	purpose, err := captcha.ParsePurpose(req.Purpose)
	if err != nil {
		response.Error(c, appErrors.NewBadRequest("unknown purpose"))
		return
	}

	if err := h.codes.Issue(c.Request.Context(), req.Email, purpose); err != nil {
		switch {
		case errors.Is(err, captcha.ErrRateLimited):
			response.Error(c, appErrors.ErrCodeRateLimited)
		case errors.Is(err, captcha.ErrSendFailed):
			response.Error(c, appErrors.ErrMailSendFailed.WithInternal(err))
		case errors.Is(err, captcha.ErrStoreUnavailable):
			response.Error(c, appErrors.ErrUpstreamUnavailable.WithInternal(err))
		default:
			response.Error(c, err)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"sent": true})
}

type loginPasswordRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// POST /api/auth/login_password
func (h *AuthHandler) LoginPassword(c *gin.Context) {
	var req loginPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.auth.LoginPassword(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, authPayload(result))
}

type loginCodeRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Code    string `json:"code" validate:"required,min=4,max=12,numeric"`
	Purpose string `json:"purpose" validate:"required,oneof=register login reset_password bind_email"`
}

// POST /api/auth/login_code
func (h *AuthHandler) LoginCode(c *gin.Context) {
	var req loginCodeRequest
	if !bindAndValidate(c, &req) {
		return
	}

	purpose, err := captcha.ParsePurpose(req.Purpose)
	if err != nil {
		response.Error(c, appErrors.NewBadRequest("unknown purpose"))
		return
	}

	result, err := h.auth.LoginWithCode(c.Request.Context(), req.Email, req.Code, purpose)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, authPayload(result))
}

type registerCodeRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Code     string `json:"code" validate:"required,min=4,max=12,numeric"`
	Purpose  string `json:"purpose" validate:"omitempty,oneof=register login reset_password bind_email"`
	Password string `json:"password" validate:"omitempty,min=8,max=72"`
	Username string `json:"username" validate:"omitempty,max=50"`
}

// POST /api/auth/register_code
func (h *AuthHandler) RegisterCode(c *gin.Context) {
	var req registerCodeRequest
	if !bindAndValidate(c, &req) {
		return
	}

	// Codes sent without an explicit purpose default to registration.
	purpose := captcha.PurposeRegister
	if req.Purpose != "" {
		parsed, err := captcha.ParsePurpose(req.Purpose)
		if err != nil {
			response.Error(c, appErrors.NewBadRequest("unknown purpose"))
			return
		}
		purpose = parsed
	}

	result, err := h.auth.RegisterWithCode(c.Request.Context(), services.RegisterInput{
		Email:    req.Email,
		Code:     req.Code,
		Purpose:  purpose,
		Password: req.Password,
		Username: req.Username,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, authPayload(result))
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"tokens": tokenResponse{
			AccessToken:  result.Tokens.AccessToken,
			RefreshToken: result.Tokens.RefreshToken,
		},
	})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, appErrors.ErrAccessTokenInvalid)
		return
	}

	user, err := h.users.FindByID(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user": user})
}

func authPayload(result *services.AuthResult) gin.H {
	return gin.H{
		"tokens": tokenResponse{
			AccessToken:  result.Tokens.AccessToken,
			RefreshToken: result.Tokens.RefreshToken,
		},
		"user": result.User,
	}
}
