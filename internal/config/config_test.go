package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, UserAgent, cfg.Browser.UserAgent)
	assert.Equal(t, "de-DE", cfg.Browser.Lang)
	assert.Equal(t, 5*time.Second, cfg.Browser.ScriptTimeout)
	assert.Equal(t, 30*time.Second, cfg.Navigation.Timeout)
	assert.Equal(t, time.Duration(0), cfg.Navigation.Wait)
	assert.False(t, cfg.Navigation.CloseAlert)
}

func TestValidate(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		assert.NoError(t, Default().Validate())
	})

	t.Run("window size", func(t *testing.T) {
		cfg := Default()
		cfg.Browser.WindowWidth = 0
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "browser.window_width")
	})

	t.Run("negative wait", func(t *testing.T) {
		cfg := Default()
		cfg.Navigation.Wait = -time.Second
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "navigation.wait")
	})

	t.Run("log format", func(t *testing.T) {
		cfg := Default()
		cfg.Logger.Format = "xml"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "logger.format")
	})
}

func TestNewReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "domlens.yaml")
	content := []byte(`
browser:
  headless: false
  window_width: 800
navigation:
  wait: 2s
  close_alert: true
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	v, err := New(path)
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 800, cfg.Browser.WindowWidth)
	assert.Equal(t, 720, cfg.Browser.WindowHeight)
	assert.Equal(t, 2*time.Second, cfg.Navigation.Wait)
	assert.True(t, cfg.Navigation.CloseAlert)
}

func TestNewMissingExplicitFile(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("DOMLENS_BROWSER_LANG", "en-US")

	v, err := New("")
	require.NoError(t, err)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "en-US", cfg.Browser.Lang)
}
