// Package config loads process configuration from the environment.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvProduction is the COURSEPLAYER_ENV value that enables production checks.
const EnvProduction = "production"

// Config holds every tunable of the server. Values are read once at startup
// and injected into the components that need them.
type Config struct {
	Env  string `env:"COURSEPLAYER_ENV" envDefault:"development"`
	Addr string `env:"COURSEPLAYER_ADDR" envDefault:":8080"`

	DBPath       string `env:"COURSEPLAYER_DB_PATH" envDefault:"courseplayer.db"`
	TemplatesDir string `env:"COURSEPLAYER_TEMPLATES_DIR" envDefault:"internal/adapters/http/templates"`
	StaticDir    string `env:"COURSEPLAYER_STATIC_DIR" envDefault:"static"`
	BaseURL      string `env:"COURSEPLAYER_BASE_URL"`

	// OverrideEnabled toggles the custom course-player template.
	OverrideEnabled bool   `env:"COURSEPLAYER_OVERRIDE_ENABLED" envDefault:"true"`
	PlayerTemplate  string `env:"COURSEPLAYER_PLAYER_TEMPLATE" envDefault:"course_player.html"`
	Debug           bool   `env:"COURSEPLAYER_DEBUG"`

	Currency      string `env:"COURSEPLAYER_CURRENCY" envDefault:"USD"`
	GuestCheckout bool   `env:"COURSEPLAYER_GUEST_CHECKOUT"`

	SlowQueryMs   int `env:"COURSEPLAYER_SLOW_QUERY_MS" envDefault:"50"`
	SlowRequestMs int `env:"COURSEPLAYER_SLOW_REQUEST_MS" envDefault:"200"`
	RateLimit     int `env:"COURSEPLAYER_RATE_LIMIT" envDefault:"10"`

	AdminEmail    string `env:"COURSEPLAYER_ADMIN_EMAIL" envDefault:"admin@courseplayer.local"`
	AdminPassword string `env:"COURSEPLAYER_ADMIN_PASSWORD"`
	SeedDemo      bool   `env:"COURSEPLAYER_SEED_DEMO" envDefault:"true"`

	// CSRFKey is 64 hex characters. Empty means a random key per process.
	CSRFKey string `env:"COURSEPLAYER_CSRF_KEY"`

	OTelEndpoint string `env:"COURSEPLAYER_OTEL_ENDPOINT"`
	ServiceName  string `env:"COURSEPLAYER_SERVICE_NAME" envDefault:"courseplayer"`
}

var (
	ErrCSRFKeyRequired = errors.New("COURSEPLAYER_CSRF_KEY is required in production")
	ErrCSRFKeyInvalid  = errors.New("COURSEPLAYER_CSRF_KEY must be 64 hex characters (32 bytes)")
	ErrAdminPassword   = errors.New("COURSEPLAYER_ADMIN_PASSWORD is required in production")
)

// Load reads an optional .env file, then parses the environment.
// PRE: none
// POST: returns a validated Config or an error naming the bad variable
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse builds a Config from the current environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.Currency = strings.ToUpper(strings.TrimSpace(cfg.Currency))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// IsProduction reports whether production checks apply.
func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Validate checks values env tags cannot express.
func (c Config) Validate() error {
	if c.CSRFKey != "" {
		if key, err := hex.DecodeString(c.CSRFKey); err != nil || len(key) != 32 {
			return ErrCSRFKeyInvalid
		}
	} else if c.IsProduction() {
		return ErrCSRFKeyRequired
	}
	if c.IsProduction() && c.AdminPassword == "" {
		return ErrAdminPassword
	}
	if c.PlayerTemplate == "" {
		return errors.New("COURSEPLAYER_PLAYER_TEMPLATE cannot be empty")
	}
	return nil
}

// CSRFKeyBytes returns the decoded CSRF key, or nil when unset.
// PRE: Validate has passed
func (c Config) CSRFKeyBytes() []byte {
	if c.CSRFKey == "" {
		return nil
	}
	key, _ := hex.DecodeString(c.CSRFKey)
	return key
}

// LogLevel is Debug when the debug flag is set, Info otherwise.
func (c Config) LogLevel() slog.Level {
	if c.Debug {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// NewLogger returns a JSON logger in production and a text logger otherwise.
func (c Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel()}
	if c.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
