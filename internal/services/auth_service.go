package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/phytul/nightingale-platform/internal/auth"
	"github.com/phytul/nightingale-platform/internal/captcha"
	"github.com/phytul/nightingale-platform/internal/models"
	"github.com/phytul/nightingale-platform/pkg/crypto"
	apperrors "github.com/phytul/nightingale-platform/pkg/errors"
	"github.com/phytul/nightingale-platform/pkg/logger"
	"github.com/phytul/nightingale-platform/pkg/metrics"
)

// CodeVerifier consumes one-time verification codes. Satisfied by *captcha.Service.
type CodeVerifier interface {
	Verify(ctx context.Context, identifier string, purpose captcha.Purpose, candidate string) error
}

// RegisterInput carries the fields of a code-backed registration request.
type RegisterInput struct {
	Email    string
	Code     string
	Purpose  captcha.Purpose
	Password string
	Username string
}

// AuthResult bundles the authenticated user with a freshly issued token pair.
type AuthResult struct {
	User   *models.User
	Tokens auth.TokenPair
}

// AuthService orchestrates the login, registration and refresh flows.
type AuthService struct {
	users  *UserService
	codes  CodeVerifier
	tokens *auth.TokenService
	log    *zap.Logger
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users *UserService, codes CodeVerifier, tokens *auth.TokenService) (*AuthService, error) {
	if users == nil {
		return nil, errors.New("auth service: user service is required")
	}
	if codes == nil {
		return nil, errors.New("auth service: code verifier is required")
	}
	if tokens == nil {
		return nil, errors.New("auth service: token service is required")
	}
	return &AuthService{
		users:  users,
		codes:  codes,
		tokens: tokens,
		log:    logger.WithModule("auth"),
	}, nil
}

// LoginPassword authenticates with an email and password. Accounts created
// through code login carry no hash and can never pass this check.
func (s *AuthService) LoginPassword(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("password", "failure").Inc()
		return nil, err
	}

	if !user.HasPassword() || !crypto.VerifyPassword(user.PasswordHash, password) {
		metrics.AuthAttempts.WithLabelValues("password", "failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}

	return s.finishLogin(ctx, user, "password")
}

// LoginWithCode authenticates with an emailed one-time code, provisioning a
// minimal account when none exists. The code is consumed before any account
// work, so a replayed request cannot create a duplicate. The purpose must
// match the one the code was issued under.
func (s *AuthService) LoginWithCode(ctx context.Context, email, code string, purpose captcha.Purpose) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if err := s.codes.Verify(ctx, email, purpose, code); err != nil {
		metrics.AuthAttempts.WithLabelValues("code", "failure").Inc()
		return nil, mapCodeError(err)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		user, err = s.users.Create(ctx, CreateUserInput{Email: email})
		if err != nil {
			metrics.AuthAttempts.WithLabelValues("code", "failure").Inc()
			return nil, fmt.Errorf("auth service: provision user: %w", err)
		}
		s.log.Info("user provisioned via code login", zap.Uint("user_id", user.ID))
	} else if err != nil {
		metrics.AuthAttempts.WithLabelValues("code", "failure").Inc()
		return nil, err
	}

	return s.finishLogin(ctx, user, "code")
}

// RegisterWithCode creates an account guarded by an emailed code. The
// existence check runs first, so a taken email conflicts before any code is
// spent or judged.
func (s *AuthService) RegisterWithCode(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("register", "failure").Inc()
		return nil, err
	}
	if exists {
		metrics.AuthAttempts.WithLabelValues("register", "failure").Inc()
		return nil, apperrors.ErrUserExists
	}

	purpose := input.Purpose
	if purpose == "" {
		purpose = captcha.PurposeRegister
	}
	if err := s.codes.Verify(ctx, email, purpose, input.Code); err != nil {
		metrics.AuthAttempts.WithLabelValues("register", "failure").Inc()
		return nil, mapCodeError(err)
	}

	user, err := s.users.Create(ctx, CreateUserInput{
		Email:    email,
		Username: input.Username,
		Password: input.Password,
	})
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("register", "failure").Inc()
		return nil, err
	}

	return s.finishLogin(ctx, user, "register")
}

// Refresh exchanges a valid refresh token for a fresh pair. The user must
// still exist and be active.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	userID, err := s.tokens.Decode(refreshToken, auth.KindRefresh)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("refresh", "failure").Inc()
		return nil, apperrors.ErrRefreshTokenInvalid.WithInternal(err)
	}

	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		metrics.AuthAttempts.WithLabelValues("refresh", "failure").Inc()
		return nil, apperrors.ErrRefreshTokenInvalid
	}
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("refresh", "failure").Inc()
		return nil, err
	}

	return s.finishLogin(ctx, user, "refresh")
}

func (s *AuthService) finishLogin(ctx context.Context, user *models.User, flow string) (*AuthResult, error) {
	if !user.IsActive {
		metrics.AuthAttempts.WithLabelValues(flow, "failure").Inc()
		return nil, apperrors.ErrAccountDisabled
	}

	pair, err := s.tokens.IssuePair(user.ID)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues(flow, "failure").Inc()
		return nil, fmt.Errorf("auth service: issue tokens: %w", err)
	}

	metrics.AuthAttempts.WithLabelValues(flow, "success").Inc()
	s.log.Info("authentication succeeded",
		zap.String("flow", flow),
		zap.Uint("user_id", user.ID),
	)

	return &AuthResult{User: user, Tokens: pair}, nil
}

func mapCodeError(err error) error {
	switch {
	case errors.Is(err, captcha.ErrCodeExpired),
		errors.Is(err, captcha.ErrCodeMismatch),
		errors.Is(err, captcha.ErrTooManyAttempts):
		return apperrors.ErrInvalidCode.WithInternal(err)
	case errors.Is(err, captcha.ErrStoreUnavailable):
		return apperrors.ErrUpstreamUnavailable.WithInternal(err)
	default:
		return fmt.Errorf("auth service: verify code: %w", err)
	}
}
