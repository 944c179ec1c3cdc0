package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultJWTSecret  = "change-me-jwt-secret"
	defaultPageSize   = 100
	defaultTimezone   = "Europe/Kyiv"
	defaultCookieName = "crm_session"
)

// Config is the runtime configuration. Keys are read from an optional
// config.yaml and overridden by environment variables of the same name
// in upper case (database_url -> DATABASE_URL).
type Config struct {
	AppEnv             string        `mapstructure:"app_env"`
	ServerPort         int           `mapstructure:"server_port"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout"`
	DatabaseURL        string        `mapstructure:"database_url"`
	JWTSecret          string        `mapstructure:"jwt_secret"`
	SessionTTL         time.Duration `mapstructure:"session_ttl"`
	CookieSecure       bool          `mapstructure:"cookie_secure"`
	CookieName         string        `mapstructure:"cookie_name"`
	MediaDir           string        `mapstructure:"media_dir"`
	MediaURL           string        `mapstructure:"media_url"`
	LogLevel           string        `mapstructure:"log_level"`
	LogFormat          string        `mapstructure:"log_format"`
	PageSize           int           `mapstructure:"page_size"`
	Timezone           string        `mapstructure:"timezone"`
	CORSAllowedOrigins []string      `mapstructure:"cors_allowed_origins"`

	location *time.Location
}

// Load reads .env (if present), config.yaml (if present) and the environment.
func Load() (*Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_env", "dev")
	v.SetDefault("server_port", 8080)
	v.SetDefault("shutdown_timeout", "15s")
	v.SetDefault("database_url", "crm.db")
	v.SetDefault("jwt_secret", defaultJWTSecret)
	v.SetDefault("session_ttl", "24h")
	v.SetDefault("cookie_secure", false)
	v.SetDefault("cookie_name", defaultCookieName)
	v.SetDefault("media_dir", "./media")
	v.SetDefault("media_url", "/media/")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("page_size", defaultPageSize)
	v.SetDefault("timezone", defaultTimezone)
	v.SetDefault("cors_allowed_origins", []string{"http://localhost:3000", "http://127.0.0.1:3000"})
}

// Validate checks the values and resolves the time zone.
func (c *Config) Validate() error {
	c.AppEnv = strings.ToLower(strings.TrimSpace(c.AppEnv))
	c.JWTSecret = strings.TrimSpace(c.JWTSecret)

	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("SERVER_PORT must be in 1..65535")
	}
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be > 0")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("PAGE_SIZE must be > 0")
	}
	if strings.TrimSpace(c.CookieName) == "" {
		return fmt.Errorf("COOKIE_NAME must not be empty")
	}
	if strings.TrimSpace(c.MediaDir) == "" {
		return fmt.Errorf("MEDIA_DIR must not be empty")
	}
	if !strings.HasSuffix(c.MediaURL, "/") {
		c.MediaURL += "/"
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	c.location = loc

	if IsProdLike(c.AppEnv) {
		if c.JWTSecret == "" || c.JWTSecret == defaultJWTSecret {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if !c.CookieSecure {
			return fmt.Errorf("in prod/release COOKIE_SECURE must be true")
		}
	}
	return nil
}

// Location is the zone "today" is computed in for date filters.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

func IsProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}
