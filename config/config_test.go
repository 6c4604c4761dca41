package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ".", cfg.RootPath)
	assert.Equal(t, "0.0.0.0:8080", cfg.ListenAddr)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, 250*time.Millisecond, cfg.TickInterval)
	assert.False(t, cfg.RemoteEnabled())
}

func TestLoadFromEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("RD_ROOT_PATH", "/srv/display")
	t.Setenv("RD_POLL_INTERVAL", "5s")
	t.Setenv("RD_S3_BUCKET", "promo-bucket")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/srv/display", cfg.RootPath)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.True(t, cfg.RemoteEnabled())
}

func TestLoadRejectsNonPositiveInterval(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("RD_TICK_INTERVAL", "0s")

	_, err := Load()
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	cfg := &Config{LogLevel: "debug", LogFormat: "json"}
	logger := cfg.NewLogger()
	assert.NotNil(t, logger)
}
