package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/phytul/nightingale-platform/internal/captcha"
	"github.com/phytul/nightingale-platform/internal/models"
	"github.com/phytul/nightingale-platform/pkg/logger"
)

const (
	defaultSchedule          = "@every 10m"
	defaultUserRetentionDays = 30
)

// Cleaner runs background maintenance: purging expired verification codes
// from the database store and hard-deleting accounts that have stayed
// soft-deleted past the retention window.
type Cleaner struct {
	db    *gorm.DB
	codes *captcha.DatabaseStore
	cron  *cron.Cron
	now   func() time.Time
	log   *zap.Logger

	schedule  string
	retention int
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for retention comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithSchedule overrides the cron specification for the cleanup job.
func WithSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.schedule = spec
		}
	}
}

// WithUserRetentionDays adjusts how long soft-deleted accounts are kept.
func WithUserRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.retention = days
		}
	}
}

// NewCleaner constructs a Cleaner. A nil code store skips code purging; the
// user sweep always runs.
func NewCleaner(db *gorm.DB, codes *captcha.DatabaseStore, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		db:        db,
		codes:     codes,
		now:       time.Now,
		schedule:  defaultSchedule,
		retention: defaultUserRetentionDays,
		log:       logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers the cleanup job with the cron scheduler and launches it.
func (c *Cleaner) Start() error {
	if _, err := c.cron.AddFunc(c.schedule, func() {
		if err := c.RunOnce(context.Background()); err != nil {
			c.log.Warn("cleanup run failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all cleanup routines sequentially. Used by the scheduled
// job, during graceful shutdown, and in tests.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.codes != nil {
		purged, err := c.codes.PurgeExpired(ctx)
		if err != nil {
			errs = multierr.Append(errs, err)
		} else if purged > 0 {
			c.log.Info("expired codes purged", zap.Int64("count", purged))
		}
	}

	if c.db != nil && c.retention > 0 {
		cutoff := c.now().AddDate(0, 0, -c.retention)
		result := c.db.WithContext(ctx).Unscoped().
			Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).
			Delete(&models.User{})
		if result.Error != nil {
			errs = multierr.Append(errs, result.Error)
		} else if result.RowsAffected > 0 {
			c.log.Info("stale deleted accounts removed", zap.Int64("count", result.RowsAffected))
		}
	}

	return errs
}
