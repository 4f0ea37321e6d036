package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/phytul/nightingale-platform/internal/api"
	iauth "github.com/phytul/nightingale-platform/internal/auth"
	"github.com/phytul/nightingale-platform/internal/captcha"
	dbtestutil "github.com/phytul/nightingale-platform/internal/database/testutil"
	"github.com/phytul/nightingale-platform/internal/services"
	"github.com/phytul/nightingale-platform/pkg/mail"
	"github.com/phytul/nightingale-platform/pkg/response"
)

var codePattern = regexp.MustCompile(`\d{6}`)

// CaptureMailer records outgoing messages instead of dialing SMTP.
type CaptureMailer struct {
	mu       sync.Mutex
	Messages []mail.Message
}

func (m *CaptureMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, msg)
	return nil
}

// LastCode extracts the verification code from the most recent message.
func (m *CaptureMailer) LastCode(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.Messages, "no mail was sent")
	code := codePattern.FindString(m.Messages[len(m.Messages)-1].Body)
	require.NotEmpty(t, code, "mail body carries no code")
	return code
}

// Env wires a complete HTTP stack over an in-memory database for handler tests.
type Env struct {
	T      *testing.T
	Router *gin.Engine
	DB     *gorm.DB
	Users  *services.UserService
	Auth   *services.AuthService
	Tokens *iauth.TokenService
	Store  *captcha.DatabaseStore
	Mailer *CaptureMailer
}

// NewEnv builds the full router with all real services behind it.
func NewEnv(t *testing.T) *Env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := dbtestutil.MustOpenTestDB(t)

	users, err := services.NewUserService(db)
	require.NoError(t, err)

	mailer := &CaptureMailer{}
	store := captcha.NewDatabaseStore(db)
	codes, err := captcha.NewService(store, mailer)
	require.NoError(t, err)

	tokens, err := iauth.NewTokenService(iauth.Config{
		Secret:    "handler-test-secret",
		Issuer:    "nightingale-test",
		AccessTTL: 15 * time.Minute,
	})
	require.NoError(t, err)

	authSvc, err := services.NewAuthService(users, codes, tokens)
	require.NoError(t, err)

	router, err := api.NewRouter(api.Deps{
		Tokens: tokens,
		Auth:   authSvc,
		Users:  users,
		Codes:  codes,
	})
	require.NoError(t, err)

	return &Env{
		T:      t,
		Router: router,
		DB:     db,
		Users:  users,
		Auth:   authSvc,
		Tokens: tokens,
		Store:  store,
		Mailer: mailer,
	}
}

// Request performs an in-process HTTP request with an optional JSON payload
// and bearer token.
func (e *Env) Request(method, path string, payload any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(e.T, err)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

// DecodeResponse parses the standard API envelope.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto re-marshals the envelope data into a typed destination.
func DecodeInto(t *testing.T, data any, dest any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, dest))
}
