package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/mailproof/internal/flagx"
)

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-g string   gRPC bind address (e.g., ":50051")
//	-m string   environment (dev, test, prod)
//	-b string   key backend (file, postgres, sqlite, s3)
//	-k string   key directory (file backend)
//	-cache      cache loaded keys in memory
//	-d string   PostgreSQL DSN
//	-sqlite     SQLite database path
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-u string   S3 root user
//	-p string   S3 root password
//	-n string   S3 bucket name
//	-r string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-h string   SMTP host
//	-o int      SMTP port
//	-l string   public base URL
//	-q string   signature quote
//	-x string   signature template path
//	-rps float  rate limit, requests per second
//	-burst int  rate limit burst
//
// Notes:
//   - args are first filtered to only the flags recognized here using
//     flagx.FilterArgs, avoiding collisions with other components.
//   - The token validity flag is accepted as an integer in minutes and only
//     applied when given, so sub-minute values from other layers survive.
func parseFlags(config *Config, args []string) {
	// Filter args to include only the flags handled here.
	args = flagx.FilterArgs(args, []string{
		"-a", "-g", "-m", "-b", "-k", "-cache", "-d", "-sqlite", "-s", "-t",
		"-u", "-p", "-n", "-r", "-e", "-h", "-o", "-l", "-q", "-x", "-rps", "-burst",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "HTTP address and port")
	fs.StringVar(&config.GRPCAddr, "g", config.GRPCAddr, "gRPC address and port")
	fs.StringVar(&config.Env, "m", config.Env, "environment (dev, test, prod)")
	fs.StringVar(&config.KeyBackend, "b", config.KeyBackend, "key backend (file, postgres, sqlite, s3)")
	fs.StringVar(&config.KeyDir, "k", config.KeyDir, "key directory")
	fs.BoolVar(&config.CacheKeys, "cache", config.CacheKeys, "cache loaded keys")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SQLitePath, "sqlite", config.SQLitePath, "SQLite database path")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "n", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "r", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.SMTPHost, "h", config.SMTPHost, "SMTP host")
	fs.IntVar(&config.SMTPPort, "o", config.SMTPPort, "SMTP port")
	fs.StringVar(&config.SelfURL, "l", config.SelfURL, "public base URL")
	fs.StringVar(&config.SignatureQuote, "q", config.SignatureQuote, "signature quote")
	fs.StringVar(&config.SignatureTemplate, "x", config.SignatureTemplate, "signature template path")
	fs.Float64Var(&config.RateLimitRPS, "rps", config.RateLimitRPS, "rate limit, requests per second")
	fs.IntVar(&config.RateLimitBurst, "burst", config.RateLimitBurst, "rate limit burst")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
		}
	})
}
