package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// verifyScript runs the fetch-compare-delete sequence server-side so that two
// concurrent verifications of the same code cannot both observe it as valid.
// Mismatches burn an attempt; the code is dropped once the budget runs out.
var verifyScript = redis.NewScript(`
local payload = redis.call('GET', KEYS[1])
if not payload then
  return 'missing'
end
local data = cjson.decode(payload)
if tostring(data.code) == ARGV[1] then
  redis.call('DEL', KEYS[1])
  return 'ok'
end
data.attempts = data.attempts + 1
if data.attempts >= data.max_attempts then
  redis.call('DEL', KEYS[1])
  return 'exhausted'
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl > 0 then
  redis.call('SET', KEYS[1], cjson.encode(data), 'PX', ttl)
end
return 'mismatch'
`)

// RedisStore keeps verification codes in Redis with native TTL expiry.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore wraps an established Redis client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// Put stores a code under (purpose, identifier), overwriting any prior live code.
func (s *RedisStore) Put(ctx context.Context, purpose Purpose, identifier, code string, ttl time.Duration) error {
	payload, err := json.Marshal(codePayload{
		Code:        code,
		CreatedAt:   time.Now().Unix(),
		Attempts:    0,
		MaxAttempts: DefaultMaxAttempts,
	})
	if err != nil {
		return fmt.Errorf("captcha: marshal payload: %w", err)
	}

	if err := s.client.Set(ctx, codeKey(purpose, identifier), payload, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Verify checks the candidate against the stored code, consuming it on success.
func (s *RedisStore) Verify(ctx context.Context, purpose Purpose, identifier, candidate string) error {
	result, err := verifyScript.Run(ctx, s.client, []string{codeKey(purpose, identifier)}, candidate).Text()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCodeExpired
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	switch result {
	case "ok":
		return nil
	case "missing":
		return ErrCodeExpired
	case "exhausted":
		return ErrTooManyAttempts
	default:
		return ErrCodeMismatch
	}
}

// Increment bumps an expiring counter, starting the window on first use.
func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if count == 1 {
		if err := s.client.PExpire(ctx, key, window).Err(); err != nil {
			return count, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}
	return count, nil
}
