// Package config defines the server configuration and its layered
// loading: defaults, an optional YAML file, then environment variables.
package config

import (
	"time"

	"github.com/chessarena/live-server/pkg/clock"
)

// Config contains process configuration.
type Config struct {
	// Port is the HTTP listen port.
	Port string `koanf:"port"`

	// Debug switches the logger to development output.
	Debug bool `koanf:"debug"`

	// FrontendOrigin is the origin allowed to open websocket
	// connections. Empty allows none.
	FrontendOrigin string `koanf:"frontend_origin"`

	// APIKeys lists the keys accepted by the authentication
	// middleware. Empty disables authentication.
	APIKeys []string `koanf:"api_keys"`

	// RedisURL configures the live snapshot store. Empty falls back to
	// the in-memory store.
	RedisURL string `koanf:"redis_url"`

	// DatabaseURL configures the Postgres game archive. Empty falls
	// back to the in-memory store.
	DatabaseURL string `koanf:"database_url"`

	// Default time control for rooms created without an explicit one.
	InitialTimeSec int `koanf:"initial_time_sec"`
	IncrementSec   int `koanf:"increment_sec"`
	DelaySec       int `koanf:"delay_sec"`

	// EloExpandIntervalSec schedules the rated-range widening job.
	EloExpandIntervalSec int `koanf:"elo_expand_interval_sec"`

	// TimeoutSweepIntervalMs schedules the room timeout sweep.
	TimeoutSweepIntervalMs int `koanf:"timeout_sweep_interval_ms"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:                   "8080",
		InitialTimeSec:         300,
		IncrementSec:           2,
		DelaySec:               0,
		EloExpandIntervalSec:   60,
		TimeoutSweepIntervalMs: 1000,
	}
}

// TimeControl builds the default room time control.
func (c *Config) TimeControl() clock.TimeControl {
	return clock.TimeControl{
		InitialTime: time.Duration(c.InitialTimeSec) * time.Second,
		Increment:   time.Duration(c.IncrementSec) * time.Second,
		Delay:       time.Duration(c.DelaySec) * time.Second,
	}
}

// EloExpandInterval is the period of the rated-range widening job.
func (c *Config) EloExpandInterval() time.Duration {
	return time.Duration(c.EloExpandIntervalSec) * time.Second
}

// TimeoutSweepInterval is the period of the room timeout sweep.
func (c *Config) TimeoutSweepInterval() time.Duration {
	return time.Duration(c.TimeoutSweepIntervalMs) * time.Millisecond
}
