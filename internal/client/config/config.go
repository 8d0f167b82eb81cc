package config

import "time"

// Config holds runtime settings for the MailProof CLI.
//
// Fields:
//   - ServerURL: base URL of the MailProof HTTP API, used by remote commands.
//   - KeyDir: key directory for local signing and verification.
//   - SecretKey: HMAC secret used by the token command. Must match the server's.
//   - Token: access token sent with remote send requests.
//   - RequestTimeout: deadline for one remote call.
type Config struct {
	ServerURL      string        `env:"SERVER_URL"`
	KeyDir         string        `env:"KEY_DIR"`
	SecretKey      string        `env:"SECRET_KEY"`
	Token          string        `env:"TOKEN"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.KeyDir = "keys/private"
	c.SecretKey = "secretKey"
	c.RequestTimeout = 10 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), the environment and the global flags in args. Later
// sources take precedence over earlier ones. It returns the arguments left
// after the global flags: the subcommand and its own flags.
func LoadConfig(args []string) (*Config, []string) {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, args)
	if err := parseEnv(cfg, nil); err != nil {
		panic(err)
	}
	rest := parseFlags(cfg, args)
	return cfg, rest
}
