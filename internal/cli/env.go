package cli

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvConfig holds flag defaults read from the environment. Flags given on
// the command line override them.
type EnvConfig struct {
	Format   string `env:"STATEBOX_FORMAT"  envDefault:"text"`
	Verbose  bool   `env:"STATEBOX_VERBOSE"`
	Database string `env:"STATEBOX_DB"`
}

// ParseEnv reads EnvConfig from the process environment.
func ParseEnv() (EnvConfig, error) {
	var cfg EnvConfig
	if err := env.Parse(&cfg); err != nil {
		return EnvConfig{Format: "text"}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
