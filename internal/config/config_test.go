package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, "database:\n  path: "+filepath.Join(dir, "data", "test.db")+"\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "http://localhost:8080", cfg.Server.BaseURL)
	assert.Equal(t, 90, cfg.Booking.HorizonDays)
	assert.Equal(t, 60, cfg.Booking.SlotMinutes)
	assert.Equal(t, "America/Sao_Paulo", cfg.Booking.Timezone)
	assert.Equal(t, time.Duration(0), cfg.SlotsCacheTTL())

	// The database directory is created on load.
	_, err = os.Stat(filepath.Join(dir, "data"))
	assert.NoError(t, err)
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("TEST_RESEND_KEY", "re_secret")
	dir := t.TempDir()
	path := writeConfig(t, `
server:
  port: 9000
  base_url: "https://mentorasi.example"
database:
  path: `+filepath.Join(dir, "test.db")+`
redis:
  slots_ttl_seconds: 15
booking:
  horizon_days: 30
  require_verification: true
  timezone: "UTC"
email:
  resend_api_key: "${TEST_RESEND_KEY}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "https://mentorasi.example", cfg.Server.BaseURL)
	assert.Equal(t, 30, cfg.Booking.HorizonDays)
	assert.True(t, cfg.Booking.RequireVerification)
	assert.Equal(t, "re_secret", cfg.Email.ResendAPIKey)
	assert.Equal(t, 15*time.Second, cfg.SlotsCacheTTL())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLocationInvalid(t *testing.T) {
	cfg := &Config{}
	cfg.Booking.Timezone = "Mars/Olympus"
	_, err := cfg.Location()
	assert.Error(t, err)
}
