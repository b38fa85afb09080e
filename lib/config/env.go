// Package config loads server settings from the environment.
package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ErrMissingKey is returned when no state encryption key is configured.
var ErrMissingKey = errors.New("config: WEBCMP_KEY is required")

// Server configures the webcmp server command.
type Server struct {
	Addr        string `env:"WEBCMP_ADDR" envDefault:":8080"`
	Key         string `env:"WEBCMP_KEY"`
	Manifest    string `env:"WEBCMP_MANIFEST" envDefault:"webcmp.yaml"`
	Prefix      string `env:"WEBCMP_PREFIX" envDefault:"/_c/"`
	ServiceName string `env:"WEBCMP_SERVICE_NAME" envDefault:"webcmp"`

	OTelEndpoint string `env:"WEBCMP_OTEL_ENDPOINT"`
	OTelEnabled  bool   `env:"WEBCMP_OTEL_ENABLED" envDefault:"true"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadServer parses and validates the server configuration.
func LoadServer() (Server, error) {
	var cfg Server
	if err := ParseEnv(&cfg); err != nil {
		return Server{}, err
	}
	if cfg.Key == "" {
		return Server{}, ErrMissingKey
	}
	return cfg, nil
}
