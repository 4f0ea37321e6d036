package captcha

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/phytul/nightingale-platform/internal/models"
)

// DatabaseStore implements the code store on the primary SQL database for
// deployments that run without Redis. Row-level locking inside a transaction
// stands in for the Lua script's per-key atomicity.
type DatabaseStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewDatabaseStore constructs a database-backed Store.
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	if db == nil {
		return nil
	}
	return &DatabaseStore{db: db, now: time.Now}
}

// Put stores a code, overwriting any prior live code for the same key.
func (s *DatabaseStore) Put(ctx context.Context, purpose Purpose, identifier, code string, ttl time.Duration) error {
	if s == nil {
		return errors.New("captcha: database store not initialised")
	}

	entry := models.CodeEntry{
		Key:         codeKey(purpose, identifier),
		Code:        code,
		Attempts:    0,
		MaxAttempts: DefaultMaxAttempts,
		ExpiresAt:   s.now().Add(ttl),
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"code", "attempts", "max_attempts", "expires_at", "updated_at"}),
		}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Verify checks the candidate against the stored code, consuming it on success.
func (s *DatabaseStore) Verify(ctx context.Context, purpose Purpose, identifier, candidate string) error {
	if s == nil {
		return errors.New("captcha: database store not initialised")
	}

	key := codeKey(purpose, identifier)
	var outcome error

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry models.CodeEntry
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Take(&entry, "key = ?", key).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			outcome = ErrCodeExpired
			return nil
		}
		if err != nil {
			return err
		}

		if s.now().After(entry.ExpiresAt) {
			outcome = ErrCodeExpired
			return tx.Delete(&models.CodeEntry{}, "key = ?", key).Error
		}

		if entry.Code == candidate {
			outcome = nil
			return tx.Delete(&models.CodeEntry{}, "key = ?", key).Error
		}

		entry.Attempts++
		if entry.Attempts >= entry.MaxAttempts {
			outcome = ErrTooManyAttempts
			return tx.Delete(&models.CodeEntry{}, "key = ?", key).Error
		}

		outcome = ErrCodeMismatch
		return tx.Save(&entry).Error
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return outcome
}

// Increment bumps an expiring counter stored alongside the codes.
func (s *DatabaseStore) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	if s == nil {
		return 0, errors.New("captcha: database store not initialised")
	}
	if window <= 0 {
		window = time.Minute
	}

	now := s.now()
	var count int64

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry models.CodeEntry
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Take(&entry, "key = ?", key).Error
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && now.After(entry.ExpiresAt)) {
			count = 1
			entry = models.CodeEntry{
				Key:       key,
				Code:      "1",
				ExpiresAt: now.Add(window),
			}
			return tx.Save(&entry).Error
		}
		if err != nil {
			return err
		}

		current, _ := strconv.ParseInt(entry.Code, 10, 64)
		count = current + 1
		entry.Code = strconv.FormatInt(count, 10)
		return tx.Save(&entry).Error
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return count, nil
}

// PurgeExpired removes entries past their expiry, returning how many were deleted.
// The maintenance cleaner calls this on a schedule; Redis handles it natively.
func (s *DatabaseStore) PurgeExpired(ctx context.Context) (int64, error) {
	if s == nil {
		return 0, errors.New("captcha: database store not initialised")
	}

	res := s.db.WithContext(ctx).
		Where("expires_at < ?", s.now()).
		Delete(&models.CodeEntry{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
