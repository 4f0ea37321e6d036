package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/phytul/nightingale-platform/internal/auth"
	"github.com/phytul/nightingale-platform/internal/captcha"
	"github.com/phytul/nightingale-platform/internal/database/testutil"
	apperrors "github.com/phytul/nightingale-platform/pkg/errors"
)

type authFixture struct {
	db     *gorm.DB
	users  *UserService
	store  *captcha.DatabaseStore
	auth   *AuthService
	tokens *auth.TokenService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	db := testutil.MustOpenTestDB(t)

	users, err := NewUserService(db)
	require.NoError(t, err)

	store := captcha.NewDatabaseStore(db)
	codes, err := captcha.NewService(store, nil)
	require.NoError(t, err)

	tokens, err := auth.NewTokenService(auth.Config{
		Secret: "auth-service-test-secret",
		Issuer: "nightingale-test",
	})
	require.NoError(t, err)

	svc, err := NewAuthService(users, codes, tokens)
	require.NoError(t, err)

	return &authFixture{db: db, users: users, store: store, auth: svc, tokens: tokens}
}

// putCode seeds a live verification code directly, sidestepping the mailer.
func (f *authFixture) putCode(t *testing.T, email string, purpose captcha.Purpose, code string) {
	t.Helper()
	require.NoError(t, f.store.Put(context.Background(), purpose, email, code, time.Minute))
}

func TestAuthServiceLoginPassword(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.users.Create(ctx, CreateUserInput{Email: "pw@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	result, err := f.auth.LoginPassword(ctx, "pw@example.com", "correct-horse")
	require.NoError(t, err)
	require.NotEmpty(t, result.Tokens.AccessToken)
	require.NotEmpty(t, result.Tokens.RefreshToken)
	require.Equal(t, "pw@example.com", *result.User.Email)

	userID, err := f.tokens.Decode(result.Tokens.AccessToken, auth.KindAccess)
	require.NoError(t, err)
	require.Equal(t, result.User.ID, userID)
}

func TestAuthServiceLoginPasswordWrongPassword(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.users.Create(ctx, CreateUserInput{Email: "pw@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	_, err = f.auth.LoginPassword(ctx, "pw@example.com", "battery-staple")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestAuthServiceLoginPasswordUnknownUser(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.auth.LoginPassword(context.Background(), "nobody@example.com", "whatever")
	require.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestAuthServiceLoginPasswordCodeOnlyAccount(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	// Provisioned through code login, so no password hash exists.
	_, err := f.users.Create(ctx, CreateUserInput{Email: "codeonly@example.com"})
	require.NoError(t, err)

	_, err = f.auth.LoginPassword(ctx, "codeonly@example.com", "")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestAuthServiceLoginPasswordDisabledAccount(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user, err := f.users.Create(ctx, CreateUserInput{Email: "off@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	require.NoError(t, f.db.Model(user).Update("is_active", false).Error)

	_, err = f.auth.LoginPassword(ctx, "off@example.com", "correct-horse")
	require.ErrorIs(t, err, apperrors.ErrAccountDisabled)
}

func TestAuthServiceLoginWithCodeCreatesUser(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.putCode(t, "new@example.com", captcha.PurposeLogin, "482913")

	result, err := f.auth.LoginWithCode(ctx, "new@example.com", "482913", captcha.PurposeLogin)
	require.NoError(t, err)
	require.NotZero(t, result.User.ID)
	require.False(t, result.User.HasPassword())
	require.NotEmpty(t, result.Tokens.AccessToken)

	// Replaying the same code must fail: it was consumed, and no duplicate
	// account may appear.
	_, err = f.auth.LoginWithCode(ctx, "new@example.com", "482913", captcha.PurposeLogin)
	require.ErrorIs(t, err, apperrors.ErrInvalidCode)

	_, total, err := f.users.List(ctx, 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
}

func TestAuthServiceLoginWithCodeExistingUser(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	created, err := f.users.Create(ctx, CreateUserInput{Email: "known@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	f.putCode(t, "known@example.com", captcha.PurposeLogin, "111222")

	result, err := f.auth.LoginWithCode(ctx, "known@example.com", "111222", captcha.PurposeLogin)
	require.NoError(t, err)
	require.Equal(t, created.ID, result.User.ID)
}

func TestAuthServiceLoginWithCodeWrongCode(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.putCode(t, "new@example.com", captcha.PurposeLogin, "482913")

	_, err := f.auth.LoginWithCode(ctx, "new@example.com", "000000", captcha.PurposeLogin)
	require.ErrorIs(t, err, apperrors.ErrInvalidCode)

	// A wrong candidate must not provision an account.
	_, total, err := f.users.List(ctx, 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 0, total)

	// The stored code survives a mismatch within the attempt budget.
	_, err = f.auth.LoginWithCode(ctx, "new@example.com", "482913", captcha.PurposeLogin)
	require.NoError(t, err)
}

func TestAuthServiceLoginWithCodePurposeIsolation(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.putCode(t, "new@example.com", captcha.PurposeRegister, "482913")

	// A registration code is not redeemable under the login purpose.
	_, err := f.auth.LoginWithCode(ctx, "new@example.com", "482913", captcha.PurposeLogin)
	require.ErrorIs(t, err, apperrors.ErrInvalidCode)

	// Presented under the purpose it was issued for, the same code works
	// and provisions the account.
	result, err := f.auth.LoginWithCode(ctx, "new@example.com", "482913", captcha.PurposeRegister)
	require.NoError(t, err)
	require.NotZero(t, result.User.ID)
}

func TestAuthServiceRegisterWithCode(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.putCode(t, "fresh@example.com", captcha.PurposeRegister, "654321")

	result, err := f.auth.RegisterWithCode(ctx, RegisterInput{
		Email:    "Fresh@Example.com",
		Code:     "654321",
		Password: "correct-horse",
		Username: "fresh",
	})
	require.NoError(t, err)
	require.Equal(t, "fresh@example.com", *result.User.Email)
	require.Equal(t, "fresh", result.User.Username)
	require.True(t, result.User.HasPassword())
	require.NotEmpty(t, result.Tokens.RefreshToken)

	// The new credentials work for password login immediately.
	_, err = f.auth.LoginPassword(ctx, "fresh@example.com", "correct-horse")
	require.NoError(t, err)
}

func TestAuthServiceRegisterWithCodeConflictBeforeCodeCheck(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.users.Create(ctx, CreateUserInput{Email: "taken@example.com"})
	require.NoError(t, err)

	f.putCode(t, "taken@example.com", captcha.PurposeRegister, "654321")

	// Existence wins: conflict is reported before the code is judged, and the
	// stored code is left untouched.
	_, err = f.auth.RegisterWithCode(ctx, RegisterInput{Email: "taken@example.com", Code: "000000"})
	require.ErrorIs(t, err, apperrors.ErrUserExists)

	require.NoError(t, f.store.Verify(ctx, captcha.PurposeRegister, "taken@example.com", "654321"))
}

func TestAuthServiceRegisterWithCodeWrongCode(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.putCode(t, "fresh@example.com", captcha.PurposeRegister, "654321")

	_, err := f.auth.RegisterWithCode(ctx, RegisterInput{Email: "fresh@example.com", Code: "999999"})
	require.ErrorIs(t, err, apperrors.ErrInvalidCode)

	exists, err := f.users.ExistsByEmail(ctx, "fresh@example.com")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestAuthServiceRefresh(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user, err := f.users.Create(ctx, CreateUserInput{Email: "fresh@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	first, err := f.auth.LoginPassword(ctx, "fresh@example.com", "correct-horse")
	require.NoError(t, err)

	result, err := f.auth.Refresh(ctx, first.Tokens.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, result.User.ID)
	require.NotEmpty(t, result.Tokens.AccessToken)

	userID, err := f.tokens.Decode(result.Tokens.AccessToken, auth.KindAccess)
	require.NoError(t, err)
	require.Equal(t, user.ID, userID)
}

func TestAuthServiceRefreshRejectsAccessToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.users.Create(ctx, CreateUserInput{Email: "fresh@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	result, err := f.auth.LoginPassword(ctx, "fresh@example.com", "correct-horse")
	require.NoError(t, err)

	_, err = f.auth.Refresh(ctx, result.Tokens.AccessToken)
	require.ErrorIs(t, err, apperrors.ErrRefreshTokenInvalid)
}

func TestAuthServiceRefreshGarbageToken(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.auth.Refresh(context.Background(), "not-a-token")
	require.ErrorIs(t, err, apperrors.ErrRefreshTokenInvalid)
}

func TestAuthServiceRefreshDeletedUser(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.users.Create(ctx, CreateUserInput{Email: "gone@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	result, err := f.auth.LoginPassword(ctx, "gone@example.com", "correct-horse")
	require.NoError(t, err)

	require.NoError(t, f.users.Delete(ctx, "gone@example.com"))

	_, err = f.auth.Refresh(ctx, result.Tokens.RefreshToken)
	require.ErrorIs(t, err, apperrors.ErrRefreshTokenInvalid)
}

func TestAuthServiceRefreshDisabledUser(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user, err := f.users.Create(ctx, CreateUserInput{Email: "off@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	result, err := f.auth.LoginPassword(ctx, "off@example.com", "correct-horse")
	require.NoError(t, err)

	require.NoError(t, f.db.Model(user).Update("is_active", false).Error)

	_, err = f.auth.Refresh(ctx, result.Tokens.RefreshToken)
	require.ErrorIs(t, err, apperrors.ErrAccountDisabled)
}
