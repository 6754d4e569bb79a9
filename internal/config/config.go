// Package config loads daemon settings from the environment and simulation
// tuning from an optional YAML file.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the daemon's environment-driven configuration.
type Config struct {
	DBPath     string `env:"NPCSIM_DB_PATH" envDefault:"npcsim.db"`
	ListenAddr string `env:"NPCSIM_LISTEN_ADDR" envDefault:":8080"`
	AdminToken string `env:"NPCSIM_ADMIN_TOKEN"`
	TuningPath string `env:"NPCSIM_TUNING_PATH"`
	LogLevel   string `env:"NPCSIM_LOG_LEVEL" envDefault:"info"`
	Seed       int64  `env:"NPCSIM_SEED" envDefault:"0"`

	RequestsPerSec float64       `env:"NPCSIM_API_RPS" envDefault:"20"`
	ShutdownGrace  time.Duration `env:"NPCSIM_SHUTDOWN_GRACE" envDefault:"10s"`
}

// Load parses configuration from the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
