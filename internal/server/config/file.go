package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/mailproof/internal/flagx"
	"github.com/dmitrijs2005/mailproof/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk form of Config. Durations are timex.Duration so
// that both "24h" and integer nanoseconds are accepted.
type FileConfig struct {
	HTTPAddr                    string         `json:"http_addr" yaml:"http_addr"`
	GRPCAddr                    string         `json:"grpc_addr" yaml:"grpc_addr"`
	Env                         string         `json:"env" yaml:"env"`
	KeyBackend                  string         `json:"key_backend" yaml:"key_backend"`
	KeyDir                      string         `json:"key_dir" yaml:"key_dir"`
	CacheKeys                   bool           `json:"cache_keys" yaml:"cache_keys"`
	DatabaseDSN                 string         `json:"database_dsn" yaml:"database_dsn"`
	SQLitePath                  string         `json:"sqlite_path" yaml:"sqlite_path"`
	SecretKey                   string         `json:"secret_key" yaml:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration" yaml:"access_token_validity_duration"`
	S3RootUser                  string         `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword              string         `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket                    string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region                    string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint              string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	SMTPHost                    string         `json:"smtp_host" yaml:"smtp_host"`
	SMTPPort                    int            `json:"smtp_port" yaml:"smtp_port"`
	SelfURL                     string         `json:"self_url" yaml:"self_url"`
	SignatureQuote              string         `json:"signature_quote" yaml:"signature_quote"`
	SignatureTemplate           string         `json:"signature_template" yaml:"signature_template"`
	RateLimitRPS                float64        `json:"rate_limit_rps" yaml:"rate_limit_rps"`
	RateLimitBurst              int            `json:"rate_limit_burst" yaml:"rate_limit_burst"`
}

func fileConfigFrom(c *Config) *FileConfig {
	return &FileConfig{
		HTTPAddr:                    c.HTTPAddr,
		GRPCAddr:                    c.GRPCAddr,
		Env:                         c.Env,
		KeyBackend:                  c.KeyBackend,
		KeyDir:                      c.KeyDir,
		CacheKeys:                   c.CacheKeys,
		DatabaseDSN:                 c.DatabaseDSN,
		SQLitePath:                  c.SQLitePath,
		SecretKey:                   c.SecretKey,
		AccessTokenValidityDuration: timex.Duration{Duration: c.AccessTokenValidityDuration},
		S3RootUser:                  c.S3RootUser,
		S3RootPassword:              c.S3RootPassword,
		S3Bucket:                    c.S3Bucket,
		S3Region:                    c.S3Region,
		S3BaseEndpoint:              c.S3BaseEndpoint,
		SMTPHost:                    c.SMTPHost,
		SMTPPort:                    c.SMTPPort,
		SelfURL:                     c.SelfURL,
		SignatureQuote:              c.SignatureQuote,
		SignatureTemplate:           c.SignatureTemplate,
		RateLimitRPS:                c.RateLimitRPS,
		RateLimitBurst:              c.RateLimitBurst,
	}
}

func (f *FileConfig) apply(c *Config) {
	c.HTTPAddr = f.HTTPAddr
	c.GRPCAddr = f.GRPCAddr
	c.Env = f.Env
	c.KeyBackend = f.KeyBackend
	c.KeyDir = f.KeyDir
	c.CacheKeys = f.CacheKeys
	c.DatabaseDSN = f.DatabaseDSN
	c.SQLitePath = f.SQLitePath
	c.SecretKey = f.SecretKey
	c.AccessTokenValidityDuration = f.AccessTokenValidityDuration.Duration
	c.S3RootUser = f.S3RootUser
	c.S3RootPassword = f.S3RootPassword
	c.S3Bucket = f.S3Bucket
	c.S3Region = f.S3Region
	c.S3BaseEndpoint = f.S3BaseEndpoint
	c.SMTPHost = f.SMTPHost
	c.SMTPPort = f.SMTPPort
	c.SelfURL = f.SelfURL
	c.SignatureQuote = f.SignatureQuote
	c.SignatureTemplate = f.SignatureTemplate
	c.RateLimitRPS = f.RateLimitRPS
	c.RateLimitBurst = f.RateLimitBurst
}

// parseFile loads configuration values from a JSON or YAML file into config.
//
// The file path comes from the -c or -config flag; without it nothing is
// loaded. Files ending in .yaml or .yml are decoded as YAML, everything else
// as JSON. Keys missing from the file keep their current values. If the file
// cannot be read or decoded, the function panics.
func parseFile(config *Config, args []string) {
	path := flagx.ConfigFileFlag(args)

	// nothing to load
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	fc := fileConfigFrom(config)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, fc)
	default:
		err = json.Unmarshal(data, fc)
	}
	if err != nil {
		panic(err)
	}

	fc.apply(config)
}
