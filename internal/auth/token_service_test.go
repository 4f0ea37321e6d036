package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, clock func() time.Time) *TokenService {
	t.Helper()

	svc, err := NewTokenService(Config{
		Secret:     "test-secret",
		Issuer:     "nightingale",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 720 * time.Hour,
		Clock:      clock,
	})
	require.NoError(t, err)
	return svc
}

func TestNewTokenServiceRequiresSecret(t *testing.T) {
	_, err := NewTokenService(Config{})
	require.Error(t, err)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := newTestService(t, nil)

	token, err := svc.IssueAccess(42)
	require.NoError(t, err)

	userID, err := svc.Decode(token, KindAccess)
	require.NoError(t, err)
	require.Equal(t, uint(42), userID)
}

func TestDecodeRejectsWrongKind(t *testing.T) {
	svc := newTestService(t, nil)

	access, err := svc.IssueAccess(7)
	require.NoError(t, err)
	refresh, err := svc.IssueRefresh(7)
	require.NoError(t, err)

	_, err = svc.Decode(access, KindRefresh)
	require.ErrorIs(t, err, ErrTokenWrongKind)

	_, err = svc.Decode(refresh, KindAccess)
	require.ErrorIs(t, err, ErrTokenWrongKind)
}

func TestDecodeRejectsExpiredToken(t *testing.T) {
	current := time.Now()
	svc := newTestService(t, func() time.Time { return current })

	token, err := svc.IssueAccess(7)
	require.NoError(t, err)

	current = current.Add(16 * time.Minute)
	_, err = svc.Decode(token, KindAccess)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestDecodeRejectsTamperedToken(t *testing.T) {
	svc := newTestService(t, nil)

	token, err := svc.IssueAccess(7)
	require.NoError(t, err)

	_, err = svc.Decode(token+"x", KindAccess)
	require.ErrorIs(t, err, ErrTokenMalformed)

	_, err = svc.Decode("", KindAccess)
	require.ErrorIs(t, err, ErrTokenMalformed)
}

func TestDecodeRejectsForeignIssuer(t *testing.T) {
	svc := newTestService(t, nil)

	other, err := NewTokenService(Config{Secret: "test-secret", Issuer: "someone-else"})
	require.NoError(t, err)

	token, err := other.IssueAccess(7)
	require.NoError(t, err)

	_, err = svc.Decode(token, KindAccess)
	require.ErrorIs(t, err, ErrTokenMalformed)
}

func TestIssuePairTokensAreDistinguishable(t *testing.T) {
	svc := newTestService(t, nil)

	pair, err := svc.IssuePair(9)
	require.NoError(t, err)
	require.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	userID, err := svc.Decode(pair.RefreshToken, KindRefresh)
	require.NoError(t, err)
	require.Equal(t, uint(9), userID)
}

func TestIssueRejectsZeroUserID(t *testing.T) {
	svc := newTestService(t, nil)

	_, err := svc.IssueAccess(0)
	require.Error(t, err)
}
