// Package config loads runtime configuration from COURTSIDE_* environment
// variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// App holds everything the server needs to boot.
type App struct {
	Addr string `envconfig:"ADDR" default:":8080"`
	Env  string `envconfig:"ENV" default:"development"`

	DBPath string `envconfig:"DB_PATH" default:"courtside.db"`

	// JWTSecret signs access tokens. A default exists so development boots
	// without setup; production refuses it.
	JWTSecret string `envconfig:"JWT_SECRET" default:"dev-only-secret"`

	// RabbitURL enables the AMQP event publisher when non-empty.
	RabbitURL      string `envconfig:"RABBIT_URL"`
	RabbitExchange string `envconfig:"RABBIT_EXCHANGE" default:"courtside.events"`

	CleanupInterval time.Duration `envconfig:"CLEANUP_INTERVAL" default:"1h"`

	RateLimitPerSecond int `envconfig:"RATE_LIMIT_PER_SECOND" default:"10"`
}

// Load reads the environment.
//
// POST: In production Env the default JWT secret is rejected.
func Load() (App, error) {
	var app App
	if err := envconfig.Process("COURTSIDE", &app); err != nil {
		return App{}, fmt.Errorf("failed to load config: %w", err)
	}
	if app.Env == "production" && app.JWTSecret == "dev-only-secret" {
		return App{}, fmt.Errorf("COURTSIDE_JWT_SECRET must be set in production")
	}
	return app, nil
}

// IsProduction reports whether the server runs with production hardening.
func (a App) IsProduction() bool {
	return a.Env == "production"
}

// DSN returns the sqlite connection string with WAL mode, foreign keys and
// a busy timeout enabled.
func (a App) DSN() string {
	return a.DBPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"
}
