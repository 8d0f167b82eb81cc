package config

import (
	"encoding/json"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/dmitrijs2005/mailproof/internal/flagx"
	"github.com/dmitrijs2005/mailproof/internal/timex"
)

const envPrefix = "MAILPROOF_"

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify timeouts either as
// strings like "3s" or as integer nanoseconds. Pointer fields tell an
// absent key from an empty one.
type JsonConfig struct {
	ServerURL      *string         `json:"server_url"`
	KeyDir         *string         `json:"key_dir"`
	SecretKey      *string         `json:"secret_key"`
	Token          *string         `json:"token"`
	RequestTimeout *timex.Duration `json:"request_timeout"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// -c or -config in args. Keys missing from the file keep their current
// values. Panics on read or unmarshal errors.
func parseJson(cfg *Config, args []string) {
	jsonConfigFile := flagx.ConfigFileFlag(args)
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerURL != nil {
		cfg.ServerURL = *jc.ServerURL
	}
	if jc.KeyDir != nil {
		cfg.KeyDir = *jc.KeyDir
	}
	if jc.SecretKey != nil {
		cfg.SecretKey = *jc.SecretKey
	}
	if jc.Token != nil {
		cfg.Token = *jc.Token
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
}

// parseEnv overlays MAILPROOF_-prefixed environment variables. A nil environ
// reads the process environment.
func parseEnv(cfg *Config, environ map[string]string) error {
	opts := env.Options{Prefix: envPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	return env.ParseWithOptions(cfg, opts)
}
