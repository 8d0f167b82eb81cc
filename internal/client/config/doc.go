// Package config loads runtime configuration for the MailProof CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. MAILPROOF_-prefixed environment variables (MAILPROOF_SERVER_URL,
//     MAILPROOF_KEY_DIR, MAILPROOF_SECRET_KEY, MAILPROOF_TOKEN,
//     MAILPROOF_REQUEST_TIMEOUT).
//  4. Global command-line flags (see parseFlags), which override earlier values.
//
// # JSON schema
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "key_dir": "keys/private",
//	  "secret_key": "secretKey",
//	  "token": "",
//	  "request_timeout": "10s"
//	}
package config
