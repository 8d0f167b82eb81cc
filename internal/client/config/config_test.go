package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://127.0.0.1:8080", c.ServerURL)
	assert.Equal(t, "keys/private", c.KeyDir)
	assert.Equal(t, 10*time.Second, c.RequestTimeout)
	assert.Empty(t, c.Token)
}

func TestLoadConfig_Layers(t *testing.T) {
	path := writeTempJSON(t, "", "", map[string]any{
		"server_url":      "http://file:1",
		"key_dir":         "/from/file",
		"request_timeout": "1500ms",
	})
	t.Setenv("MAILPROOF_KEY_DIR", "/from/env")
	t.Setenv("MAILPROOF_TOKEN", "tok")

	cfg, rest := LoadConfig([]string{"-config", path, "-a", "http://flag:2", "verify", "-identity", "a@b.c"})

	assert.Equal(t, "http://flag:2", cfg.ServerURL)
	assert.Equal(t, "/from/env", cfg.KeyDir)
	assert.Equal(t, "tok", cfg.Token)
	assert.Equal(t, 1500*time.Millisecond, cfg.RequestTimeout, "-t not given, file value kept")
	assert.Equal(t, []string{"verify", "-identity", "a@b.c"}, rest)
}

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"server_url":      "http://www.example:9000",
		"request_timeout": "3s",
	})

	t.Run("loads from flags", func(t *testing.T) {
		cfg := &Config{KeyDir: "keep"}
		parseJson(cfg, []string{"-config", pathFlag})

		assert.Equal(t, "http://www.example:9000", cfg.ServerURL)
		assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
		assert.Equal(t, "keep", cfg.KeyDir, "missing keys keep their values")
	})

	t.Run("no config flag → no changes", func(t *testing.T) {
		cfg := &Config{ServerURL: "http://defaults:1234", RequestTimeout: 42 * time.Second}
		parseJson(cfg, nil)

		assert.Equal(t, "http://defaults:1234", cfg.ServerURL)
		assert.Equal(t, 42*time.Second, cfg.RequestTimeout)
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg, []string{"-c", bad}) })
	})

	t.Run("missing file → panics", func(t *testing.T) {
		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg, []string{"-c", filepath.Join(dir, "nope.json")}) })
	})
}

func Test_parseEnv(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	err := parseEnv(cfg, map[string]string{
		"MAILPROOF_SERVER_URL":      "http://env:3",
		"MAILPROOF_REQUEST_TIMEOUT": "2s",
	})
	require.NoError(t, err)
	assert.Equal(t, "http://env:3", cfg.ServerURL)
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "keys/private", cfg.KeyDir)

	err = parseEnv(cfg, map[string]string{"MAILPROOF_REQUEST_TIMEOUT": "soon"})
	assert.Error(t, err)
}
