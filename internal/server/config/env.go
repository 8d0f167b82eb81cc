package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	envPrefix  = "MAILPROOF_"
	dotEnvFile = ".env"
)

// parseEnv overlays MAILPROOF_* environment variables onto config. Variables
// from dotenvPath are loaded first without overriding the real environment;
// a missing file is not an error. A non-nil environ replaces the process
// environment, which tests use.
func parseEnv(config *Config, dotenvPath string, environ map[string]string) error {
	if environ == nil && dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", dotenvPath, err)
		}
	}

	opts := env.Options{Prefix: envPrefix}
	if environ != nil {
		opts.Environment = environ
	}

	if err := env.ParseWithOptions(config, opts); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
