// Package config loads service configuration from the environment, after
// layering in a .env file when one is present.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"reclaimAPI/internal/docstore"
)

const (
	AuthModeClerk  = "clerk"
	AuthModeHeader = "header"
)

type Config struct {
	Port            string
	LogMode         string
	ShutdownTimeout time.Duration

	Store    docstore.Options
	RedisURL string

	AuthMode       string
	ClerkSecretKey string

	// Timezone defines "today" when a caller does not send its own.
	Timezone string
	Location *time.Location

	CatalogCacheTTL  time.Duration
	CatalogCacheSize int

	RoomAttempts      int
	RoomAttemptWindow time.Duration

	StreakInterval time.Duration

	MetricsUser string
	MetricsPass string
	PprofSecret string

	// TrustedProxies are the peers whose X-Forwarded-For is honoured.
	TrustedProxies []netip.Prefix
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "3333")
	v.SetDefault("log_mode", "production")
	v.SetDefault("shutdown_timeout", 30*time.Second)
	v.SetDefault("store_driver", docstore.DriverFirestore)
	v.SetDefault("firebase_credentials_file", "./serviceAccountKey.json")
	v.SetDefault("auth_mode", AuthModeClerk)
	v.SetDefault("app_timezone", "UTC")
	v.SetDefault("catalog_cache_ttl", 30*time.Minute)
	v.SetDefault("catalog_cache_size", 64)
	v.SetDefault("room_attempts", 5)
	v.SetDefault("room_attempt_window", 5*time.Minute)
	v.SetDefault("streak_interval", time.Hour)
}

// Load reads .env (if any) and the process environment and validates the
// full server configuration.
func Load() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadAdmin is Load for the admin CLI, which needs the store but not the
// HTTP auth settings.
func LoadAdmin() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if err := cfg.validateStore(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		Port:            v.GetString("port"),
		LogMode:         v.GetString("log_mode"),
		ShutdownTimeout: v.GetDuration("shutdown_timeout"),
		Store: docstore.Options{
			Driver:      v.GetString("store_driver"),
			DatabaseURL: v.GetString("database_url"),
			Firestore: docstore.FirestoreConfig{
				ProjectID:       v.GetString("firebase_project_id"),
				CredentialsJSON: v.GetString("firebase_credentials_json"),
				CredentialsFile: v.GetString("firebase_credentials_file"),
			},
		},
		RedisURL:          v.GetString("redis_url"),
		AuthMode:          v.GetString("auth_mode"),
		ClerkSecretKey:    v.GetString("clerk_secret_key"),
		Timezone:          v.GetString("app_timezone"),
		CatalogCacheTTL:   v.GetDuration("catalog_cache_ttl"),
		CatalogCacheSize:  v.GetInt("catalog_cache_size"),
		RoomAttempts:      v.GetInt("room_attempts"),
		RoomAttemptWindow: v.GetDuration("room_attempt_window"),
		StreakInterval:    v.GetDuration("streak_interval"),
		MetricsUser:       v.GetString("metrics_user"),
		MetricsPass:       v.GetString("metrics_pass"),
		PprofSecret:       v.GetString("pprof_secret"),
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE %q: %w", cfg.Timezone, err)
	}
	cfg.Location = loc

	proxies, err := ParseTrustedProxies(v.GetString("trusted_proxies"))
	if err != nil {
		return nil, err
	}
	cfg.TrustedProxies = proxies
	return cfg, nil
}

// ParseTrustedProxies reads a comma-separated list of IPs and CIDRs.
func ParseTrustedProxies(list string) ([]netip.Prefix, error) {
	var prefixes []netip.Prefix
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q: %w", entry, err)
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q: %w", entry, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

func (c *Config) validateStore() error {
	switch c.Store.Driver {
	case docstore.DriverFirestore, docstore.DriverMemory:
	case docstore.DriverPostgres:
		if c.Store.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error

	if err := c.validateStore(); err != nil {
		errs = append(errs, err)
	}

	switch c.AuthMode {
	case AuthModeClerk:
		if c.ClerkSecretKey == "" {
			errs = append(errs, errors.New("CLERK_SECRET_KEY is required when AUTH_MODE=clerk"))
		}
	case AuthModeHeader:
	default:
		errs = append(errs, fmt.Errorf("unknown AUTH_MODE %q", c.AuthMode))
	}

	if c.CatalogCacheSize <= 0 {
		errs = append(errs, errors.New("CATALOG_CACHE_SIZE must be positive"))
	}
	if c.RoomAttempts <= 0 || c.RoomAttemptWindow <= 0 {
		errs = append(errs, errors.New("ROOM_ATTEMPTS and ROOM_ATTEMPT_WINDOW must be positive"))
	}
	if c.StreakInterval <= 0 {
		errs = append(errs, errors.New("STREAK_INTERVAL must be positive"))
	}

	return errors.Join(errs...)
}
