package captcha

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Verification failures are distinct from backing-store unavailability so
// callers can map them to different HTTP semantics.
var (
	// ErrCodeExpired is returned when no live code exists for the key.
	ErrCodeExpired = errors.New("captcha: code expired or missing")
	// ErrCodeMismatch is returned when the candidate does not match. The stored
	// code survives so the sender can retry within the attempt budget.
	ErrCodeMismatch = errors.New("captcha: code mismatch")
	// ErrTooManyAttempts is returned once the attempt budget is exhausted; the
	// stored code is deleted at that point.
	ErrTooManyAttempts = errors.New("captcha: too many attempts")
	// ErrStoreUnavailable signals a transient backing-store failure, safe to retry.
	ErrStoreUnavailable = errors.New("captcha: store unavailable")
)

// DefaultMaxAttempts bounds how many mismatched candidates a single code tolerates.
const DefaultMaxAttempts = 5

// Store persists short-lived verification codes keyed by (purpose, identifier).
//
// Verify consumes the code on success; the fetch-compare-delete sequence is
// atomic per key in every implementation, so two concurrent verifications of
// the same code cannot both succeed. Increment maintains expiring counters and
// backs the per-identifier send rate limit.
type Store interface {
	Put(ctx context.Context, purpose Purpose, identifier, code string, ttl time.Duration) error
	Verify(ctx context.Context, purpose Purpose, identifier, candidate string) error
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
}

// codeKey builds the composite storage key. The email channel prefix matches
// the historical key layout so deployed stores keep working across upgrades.
func codeKey(purpose Purpose, identifier string) string {
	return fmt.Sprintf("captcha:email:%s:%s", purpose, identifier)
}

// rateKey builds the counter key limiting sends per identifier and purpose.
func rateKey(purpose Purpose, identifier string) string {
	return fmt.Sprintf("rl:em:%s:%s", purpose, identifier)
}

// codePayload is the JSON document stored per live code.
type codePayload struct {
	Code        string `json:"code"`
	CreatedAt   int64  `json:"created_at"`
	Attempts    int    `json:"attempts"`
	MaxAttempts int    `json:"max_attempts"`
}
