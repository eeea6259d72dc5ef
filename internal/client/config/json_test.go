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

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	b, err := json.Marshal(data)
	require.NoError(t, err)
	return writeFile(t, dir, name, string(b))
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func Test_parseJson(t *testing.T) {
	dir := t.TempDir()

	t.Run("overlays present keys only", func(t *testing.T) {
		path := writeTempJSON(t, dir, "partial.json", map[string]any{
			"api_base_url":    "https://auth.example.com/fullstack_authentication",
			"resend_cooldown": 2_000_000_000,
		})

		cfg := &Config{LogLevel: "warn", RequestTimeout: 7 * time.Second}
		require.NoError(t, parseJson(cfg, []string{"-config", path}))

		assert.Equal(t, "https://auth.example.com/fullstack_authentication", cfg.APIBaseURL)
		assert.Equal(t, 2*time.Second, cfg.ResendCooldown)
		assert.Equal(t, "warn", cfg.LogLevel)
		assert.Equal(t, 7*time.Second, cfg.RequestTimeout)
	})

	t.Run("no flag leaves config alone", func(t *testing.T) {
		cfg := &Config{APIBaseURL: "keep"}
		require.NoError(t, parseJson(cfg, nil))
		assert.Equal(t, "keep", cfg.APIBaseURL)
	})

	t.Run("invalid json", func(t *testing.T) {
		bad := writeFile(t, dir, "bad.json", `{ this is not valid json`)
		require.Error(t, parseJson(&Config{}, []string{"-c", bad}))
	})

	t.Run("missing file", func(t *testing.T) {
		require.Error(t, parseJson(&Config{}, []string{"-c", filepath.Join(dir, "missing.json")}))
	})
}
