package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default validity periods applied when configuration omits them.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 720 * time.Hour
)

// Kind distinguishes the two token variants so one can never stand in for the other.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

var (
	// ErrTokenExpired indicates the token was valid but is past its expiry.
	ErrTokenExpired = errors.New("token: expired")
	// ErrTokenWrongKind indicates an access token was presented where a refresh
	// token was expected, or vice versa.
	ErrTokenWrongKind = errors.New("token: wrong kind")
	// ErrTokenMalformed covers bad signatures and corrupt token structure.
	ErrTokenMalformed = errors.New("token: malformed")
)

// Config bundles the configuration required to build a TokenService.
type Config struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Clock      func() time.Time
}

// Claims represents the custom claims embedded in issued JWTs.
type Claims struct {
	UserID uint `json:"uid"`
	Kind   Kind `json:"kind"`
	jwt.RegisteredClaims
}

// TokenPair carries the access/refresh tokens returned by login flows.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// TokenService issues and validates the signed access and refresh tokens.
// One instance is constructed at process start and shared by reference.
type TokenService struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenService constructs a TokenService when provided with the required configuration.
func NewTokenService(cfg Config) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token: secret must be provided")
	}

	accessTTL := cfg.AccessTTL
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenTTL
	}
	refreshTTL := cfg.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenTTL
	}

	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	return &TokenService{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        now,
	}, nil
}

// IssueAccess signs a short-lived access token for the given user.
func (s *TokenService) IssueAccess(userID uint) (string, error) {
	return s.issue(userID, KindAccess, s.accessTTL)
}

// IssueRefresh signs a refresh token for the given user.
func (s *TokenService) IssueRefresh(userID uint) (string, error) {
	return s.issue(userID, KindRefresh, s.refreshTTL)
}

// IssuePair signs a fresh access/refresh token pair.
func (s *TokenService) IssuePair(userID uint) (TokenPair, error) {
	access, err := s.IssueAccess(userID)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.IssueRefresh(userID)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *TokenService) issue(userID uint, kind Kind, ttl time.Duration) (string, error) {
	if userID == 0 {
		return "", errors.New("token: user id is required")
	}

	now := s.now()
	claims := &Claims{
		UserID: userID,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    s.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}

	return signed, nil
}

// Decode parses and validates a signed token, enforcing the expected kind, and
// returns the embedded user id.
func (s *TokenService) Decode(tokenString string, expected Kind) (uint, error) {
	if tokenString == "" {
		return 0, ErrTokenMalformed
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)

	var claims Claims
	_, err := parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrTokenExpired
		}
		return 0, ErrTokenMalformed
	}

	if s.issuer != "" && claims.Issuer != s.issuer {
		return 0, ErrTokenMalformed
	}
	if claims.UserID == 0 {
		return 0, ErrTokenMalformed
	}
	if claims.Kind != expected {
		return 0, ErrTokenWrongKind
	}

	return claims.UserID, nil
}
