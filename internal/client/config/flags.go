package config

import (
	"flag"
	"io"
	"time"
)

// parseFlags populates Config from the global flags at the head of args and
// returns the remaining arguments.
//
// Supported flags (short forms):
//
//	-a string   base URL of the MailProof HTTP API
//	-k string   key directory for local commands
//	-s string   JWT secret for the token command
//	-t int      request timeout (in seconds)
//	-c/-config  config file, read by parseJson
//
// Parsing stops at the first non-flag argument, which is the subcommand.
func parseFlags(cfg *Config, args []string) []string {
	fs := flag.NewFlagSet("mailproof-cli", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the MailProof HTTP API")
	fs.StringVar(&cfg.KeyDir, "k", cfg.KeyDir, "key directory")
	fs.StringVar(&cfg.SecretKey, "s", cfg.SecretKey, "JWT secret")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.String("c", "", "config file")
	fs.String("config", "", "config file")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			cfg.RequestTimeout = time.Duration(*timeout) * time.Second
		}
	})
	return fs.Args()
}
