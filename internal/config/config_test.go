package config

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reclaimAPI/internal/docstore"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CLERK_SECRET_KEY", "sk_test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3333", cfg.Port)
	assert.Equal(t, docstore.DriverFirestore, cfg.Store.Driver)
	assert.Equal(t, AuthModeClerk, cfg.AuthMode)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, 30*time.Minute, cfg.CatalogCacheTTL)
	assert.Equal(t, 5, cfg.RoomAttempts)
	assert.Equal(t, 5*time.Minute, cfg.RoomAttemptWindow)
	assert.Equal(t, time.Hour, cfg.StreakInterval)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/reclaim")
	t.Setenv("AUTH_MODE", "header")
	t.Setenv("APP_TIMEZONE", "Asia/Kolkata")
	t.Setenv("ROOM_ATTEMPTS", "10")
	t.Setenv("STREAK_INTERVAL", "15m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, docstore.DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/reclaim", cfg.Store.DatabaseURL)
	assert.Equal(t, AuthModeHeader, cfg.AuthMode)
	assert.Equal(t, "Asia/Kolkata", cfg.Location.String())
	assert.Equal(t, 10, cfg.RoomAttempts)
	assert.Equal(t, 15*time.Minute, cfg.StreakInterval)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("AUTH_MODE", "clerk")
	t.Setenv("CLERK_SECRET_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "CLERK_SECRET_KEY")
}

func TestLoadRejectsUnknownTimezone(t *testing.T) {
	t.Setenv("AUTH_MODE", "header")
	t.Setenv("APP_TIMEZONE", "Mars/Olympus")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadAdminIgnoresAuthSettings(t *testing.T) {
	t.Setenv("AUTH_MODE", "clerk")
	t.Setenv("CLERK_SECRET_KEY", "")
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := LoadAdmin()
	require.NoError(t, err)
	assert.Equal(t, docstore.DriverMemory, cfg.Store.Driver)

	t.Setenv("STORE_DRIVER", "postgres")
	_, err = LoadAdmin()
	assert.ErrorContains(t, err, "DATABASE_URL")
}

func TestLoadTrustedProxies(t *testing.T) {
	t.Setenv("AUTH_MODE", "header")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.0.2.10")

	cfg, err := Load()
	require.NoError(t, err)
	require.Len(t, cfg.TrustedProxies, 2)
	assert.True(t, cfg.TrustedProxies[0].Contains(netip.MustParseAddr("10.1.2.3")))
	assert.True(t, cfg.TrustedProxies[1].Contains(netip.MustParseAddr("192.0.2.10")))
	assert.False(t, cfg.TrustedProxies[1].Contains(netip.MustParseAddr("192.0.2.11")))

	t.Setenv("TRUSTED_PROXIES", "not-an-ip")
	_, err = Load()
	assert.ErrorContains(t, err, "TRUSTED_PROXIES")
}

func TestLoadDefaultsTrustNoProxy(t *testing.T) {
	t.Setenv("AUTH_MODE", "header")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.TrustedProxies)
}
