package infra

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/nysc/volunteers/internal/guard"
)

const insecureAdminPassword = "change-me-now"

// Config holds all application configuration parsed from environment variables.
type Config struct {
	// Database
	DatabaseURL string `env:"DATABASE_URL"`
	PGHost      string `env:"PGHOST" envDefault:"localhost"`
	PGPort      int    `env:"PGPORT" envDefault:"5432"`
	PGUser      string `env:"PGUSER" envDefault:"volunteers"`
	PGPassword  string `env:"PGPASSWORD" envDefault:"volunteers"`
	PGDatabase  string `env:"PGDATABASE" envDefault:"volunteers"`

	// Cache
	CacheBackend string `env:"CACHE_BACKEND" envDefault:"redis"`
	RedisURL     string `env:"REDIS_URL" envDefault:"redis://localhost:6379"`
	BadgerDir    string `env:"BADGER_DIR" envDefault:"data/cache"`

	StatsCacheTTL time.Duration `env:"STATS_CACHE_TTL" envDefault:"300s"`
	ListCacheTTL  time.Duration `env:"LIST_CACHE_TTL" envDefault:"60s"`

	// Server
	APIPort            int    `env:"API_PORT" envDefault:"3100"`
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000"`
	LogLevel           string `env:"LOG_LEVEL" envDefault:"info"`
	// TrustProxyHeaders takes the client IP from True-Client-IP, X-Real-IP or
	// X-Forwarded-For. Enable only behind a proxy that overwrites them.
	TrustProxyHeaders bool `env:"TRUST_PROXY_HEADERS" envDefault:"false"`

	// Sessions
	CookieSecure         bool          `env:"COOKIE_SECURE" envDefault:"false"`
	SessionTTL           time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	SessionSweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"10m"`

	// Rate limits
	LoginRateLimit     int           `env:"LOGIN_RATE_LIMIT" envDefault:"5"`
	LoginRateWindow    time.Duration `env:"LOGIN_RATE_WINDOW" envDefault:"15m"`
	RegisterRateLimit  int           `env:"REGISTER_RATE_LIMIT" envDefault:"10"`
	RegisterRateWindow time.Duration `env:"REGISTER_RATE_WINDOW" envDefault:"1m"`
	AdminRateLimit     int           `env:"ADMIN_RATE_LIMIT" envDefault:"120"`

	// Captcha
	CaptchaSecret    string `env:"CAPTCHA_SECRET"`
	CaptchaVerifyURL string `env:"CAPTCHA_VERIFY_URL"`

	// Kafka
	KafkaBrokers     string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	KafkaEnabled     bool   `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaTopicPrefix string `env:"KAFKA_TOPIC_PREFIX" envDefault:"nysc."`

	// Default admin for volunteerctl seed-admin
	DefaultAdminEmail    string `env:"DEFAULT_ADMIN_EMAIL" envDefault:"admin@nysc.lk"`
	DefaultAdminPassword string `env:"DEFAULT_ADMIN_PASSWORD" envDefault:"change-me-now"`
	DefaultAdminName     string `env:"DEFAULT_ADMIN_NAME" envDefault:"NYSC Admin"`

	// Dev
	AllowInsecureDefaults bool `env:"ALLOW_INSECURE_DEFAULTS" envDefault:"false"`
}

// LoadConfig parses environment variables into a Config struct.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate rejects unusable values and, unless ALLOW_INSECURE_DEFAULTS=true,
// configuration that must not run in production.
func (c *Config) Validate() error {
	switch c.CacheBackend {
	case "redis", "badger":
	default:
		return fmt.Errorf("CACHE_BACKEND must be redis or badger, got %q", c.CacheBackend)
	}
	if c.StatsCacheTTL <= 0 || c.ListCacheTTL <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}
	if c.SessionTTL <= 0 || c.SessionSweepInterval <= 0 {
		return fmt.Errorf("SESSION_TTL and SESSION_SWEEP_INTERVAL must be positive")
	}
	if c.LoginRateLimit <= 0 || c.RegisterRateLimit <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}
	if c.LoginRateWindow <= 0 || c.RegisterRateWindow <= 0 {
		return fmt.Errorf("rate limit windows must be positive")
	}
	if c.AdminRateLimit < 0 {
		return fmt.Errorf("ADMIN_RATE_LIMIT must not be negative")
	}

	if c.AllowInsecureDefaults {
		return nil
	}
	if c.DefaultAdminPassword == insecureAdminPassword {
		return fmt.Errorf("DEFAULT_ADMIN_PASSWORD is set to the insecure default; set a strong password or set ALLOW_INSECURE_DEFAULTS=true for local dev")
	}
	if !c.CookieSecure {
		return fmt.Errorf("COOKIE_SECURE must be true outside local dev; set ALLOW_INSECURE_DEFAULTS=true to bypass")
	}
	return nil
}

// DSN returns the PostgreSQL connection string, preferring DATABASE_URL if set.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase)
}

// LoginPolicy is the per-IP budget for admin login attempts.
func (c *Config) LoginPolicy() guard.Policy {
	return guard.Policy{Action: "login", MaxRequests: c.LoginRateLimit, Window: c.LoginRateWindow}
}

// RegisterPolicy is the per-IP budget for volunteer registrations.
func (c *Config) RegisterPolicy() guard.Policy {
	return guard.Policy{Action: "register", MaxRequests: c.RegisterRateLimit, Window: c.RegisterRateWindow}
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// NewLogger builds the JSON stdout logger every command installs as the default.
func NewLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
