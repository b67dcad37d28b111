package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Env holds the defaults treegen reads from the environment. Command-line
// flags override them.
type Env struct {
	Config   string `env:"TREEGEN_CONFIG"`
	LogLevel string `env:"TREEGEN_LOG_LEVEL" envDefault:"info"`
	NoColor  bool   `env:"TREEGEN_NO_COLOR"`
}

func LoadEnv() (Env, error) {
	cfg, err := env.ParseAs[Env]()
	if err != nil {
		return Env{}, fmt.Errorf("failed to read environment: %w", err)
	}
	return cfg, nil
}
