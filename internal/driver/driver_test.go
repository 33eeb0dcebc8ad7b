package driver

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/v0xg/domlens/internal/config"
	"go.uber.org/zap/zaptest"
)

func TestBundledPath(t *testing.T) {
	assert.Equal(t, filepath.Join("drv", "windows", "chrome.exe"), BundledPath("drv", "windows"))
	assert.Equal(t, filepath.Join("drv", "linux", "chrome"), BundledPath("drv", "linux"))
	assert.Equal(t, filepath.Join("drv", "darwin", "chrome"), BundledPath("drv", "darwin"))
}

func TestBundledPathDefaultsNextToExecutable(t *testing.T) {
	exe, err := os.Executable()
	require.NoError(t, err)

	got := BundledPath("", "linux")
	assert.Equal(t, filepath.Join(filepath.Dir(exe), "driver", "linux", "chrome"), got)
}

func TestResolveBinPrefersConfigured(t *testing.T) {
	cfg := config.Default().Browser
	cfg.Bin = "/opt/custom/chrome"
	assert.Equal(t, "/opt/custom/chrome", ResolveBin(cfg))
}

func TestResolveBinUsesBundled(t *testing.T) {
	dir := t.TempDir()
	bundled := BundledPath(dir, runtimeGOOS())
	require.NoError(t, os.MkdirAll(filepath.Dir(bundled), 0o755))
	require.NoError(t, os.WriteFile(bundled, []byte("#!/bin/sh\n"), 0o755))

	cfg := config.Default().Browser
	cfg.DriverDir = dir
	assert.Equal(t, bundled, ResolveBin(cfg))
}

func TestLaunch(t *testing.T) {
	if _, has := launcher.LookPath(); !has {
		t.Skip("no local browser found")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><p id="ua"></p><script>
			document.getElementById('ua').textContent = navigator.userAgent;
		</script></body></html>`))
	}))
	defer srv.Close()

	cfg := config.Default().Browser
	cfg.NoSandbox = true
	session, err := Launch(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer session.Close()

	require.NoError(t, session.Navigate(srv.URL, wrapperOpts()))

	el, err := session.FindByID("ua")
	require.NoError(t, err)
	text, err := el.Text()
	require.NoError(t, err)
	assert.Equal(t, config.UserAgent, text)
}
