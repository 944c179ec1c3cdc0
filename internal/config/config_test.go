package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		AppEnv:          "dev",
		ServerPort:      8080,
		ShutdownTimeout: 5 * time.Second,
		DatabaseURL:     "crm.db",
		JWTSecret:       defaultJWTSecret,
		SessionTTL:      time.Hour,
		CookieName:      defaultCookieName,
		MediaDir:        "./media",
		MediaURL:        "/media",
		PageSize:        100,
		Timezone:        "UTC",
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("PAGE_SIZE", "")
	t.Setenv("TIMEZONE", "UTC")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, defaultPageSize, cfg.PageSize)
	assert.Equal(t, "/media/", cfg.MediaURL)
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("PAGE_SIZE", "20")
	t.Setenv("TIMEZONE", "UTC")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 20, cfg.PageSize)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"ok", func(c *Config) {}, ""},
		{"zero ttl", func(c *Config) { c.SessionTTL = 0 }, "SESSION_TTL"},
		{"zero page size", func(c *Config) { c.PageSize = 0 }, "PAGE_SIZE"},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, "TIMEZONE"},
		{"prod default secret", func(c *Config) {
			c.AppEnv = "production"
			c.CookieSecure = true
		}, "JWT_SECRET"},
		{"prod insecure cookie", func(c *Config) {
			c.AppEnv = "prod"
			c.JWTSecret = "a-real-secret"
		}, "COOKIE_SECURE"},
		{"prod ok", func(c *Config) {
			c.AppEnv = "release"
			c.JWTSecret = "a-real-secret"
			c.CookieSecure = true
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_NormalizesMediaURL(t *testing.T) {
	c := validConfig()
	require.NoError(t, c.Validate())
	assert.Equal(t, "/media/", c.MediaURL)
}
