package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("testdata"))
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.Equal(t, 20, cfg.Server.RateLimit.MaxRequests)
	require.Equal(t, 30*time.Second, cfg.Server.RateLimit.Window)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.True(t, cfg.Database.Postgres.Enabled)
	require.Equal(t, "db.example.com", cfg.Database.Postgres.Host)
	require.Equal(t, 5433, cfg.Database.Postgres.Port)

	require.True(t, cfg.Redis.Enabled)
	require.Equal(t, "cache.example.com:6380", cfg.Redis.Address)
	require.Equal(t, 2, cfg.Redis.DB)
	require.Equal(t, 2*time.Second, cfg.Redis.Timeout)

	require.Equal(t, "jwt-secret", cfg.Auth.JWT.Secret)
	require.Equal(t, "nightingale-stage", cfg.Auth.JWT.Issuer)
	require.Equal(t, 5*time.Minute, cfg.Auth.JWT.AccessTTL)
	require.Equal(t, 48*time.Hour, cfg.Auth.JWT.RefreshTTL)

	require.Equal(t, 8, cfg.Captcha.CodeLength)
	require.Equal(t, 3, cfg.Captcha.SendLimit)
	require.Equal(t, 30*time.Minute, cfg.Captcha.SendWindow)

	require.True(t, cfg.Email.SMTP.Enabled)
	require.Equal(t, "smtp.example.com", cfg.Email.SMTP.Host)
	require.Equal(t, 15*time.Second, cfg.Email.SMTP.Timeout)

	require.False(t, cfg.Maintenance.Enabled)
	require.Equal(t, "@every 1h", cfg.Maintenance.Schedule)

	require.NoError(t, cfg.Validate())
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "info", cfg.Server.LogLevel)
	require.Equal(t, 100, cfg.Server.RateLimit.MaxRequests)
	require.Equal(t, time.Minute, cfg.Server.RateLimit.Window)

	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.False(t, cfg.Redis.Enabled)

	require.Equal(t, "nightingale", cfg.Auth.JWT.Issuer)
	require.Equal(t, 15*time.Minute, cfg.Auth.JWT.AccessTTL)
	require.Equal(t, 720*time.Hour, cfg.Auth.JWT.RefreshTTL)

	require.Equal(t, 6, cfg.Captcha.CodeLength)
	require.Equal(t, 5, cfg.Captcha.SendLimit)
	require.Equal(t, time.Hour, cfg.Captcha.SendWindow)

	require.False(t, cfg.Email.SMTP.Enabled)
	require.True(t, cfg.Maintenance.Enabled)
	require.Equal(t, "@every 10m", cfg.Maintenance.Schedule)

	// No secret configured; the config cannot stand up a server.
	require.Error(t, cfg.Validate())
}

func TestStoreConfigBridge(t *testing.T) {
	dc := DatabaseConfig{
		Driver: "sqlite",
		Path:   "./x.sqlite",
		Postgres: DBAuthConfig{
			Enabled:  true,
			Host:     "pg.internal",
			Port:     5432,
			Database: "app",
			Username: "svc",
			Password: "pw",
		},
	}

	sc := dc.StoreConfig()
	require.Equal(t, "postgres", sc.Driver)
	require.Equal(t, "pg.internal", sc.Host)
	require.Equal(t, 5432, sc.Port)
	require.Equal(t, "app", sc.Name)
}
