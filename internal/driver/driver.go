package driver

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/v0xg/domlens/internal/config"
	"github.com/v0xg/domlens/internal/wrapper"
	"go.uber.org/zap"
)

// Launch starts a browser as described by cfg and returns a Session on a blank
// page. Closing the Session stops the browser.
func Launch(cfg config.BrowserConfig, logger *zap.Logger) (*wrapper.Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	bin := ResolveBin(cfg)
	logger.Debug("launching browser", zap.String("bin", bin), zap.Bool("headless", cfg.Headless))

	l := newLauncher(cfg, bin)
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	shutdown := func() {
		if err := browser.Close(); err != nil {
			logger.Debug("closing browser failed", zap.Error(err))
		}
		l.Kill()
		l.Cleanup()
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		shutdown()
		return nil, fmt.Errorf("open page: %w", err)
	}

	if cfg.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      cfg.UserAgent,
			AcceptLanguage: cfg.Lang,
		}); err != nil {
			shutdown()
			return nil, fmt.Errorf("set user agent: %w", err)
		}
	}

	session := wrapper.NewSession(page,
		wrapper.WithLogger(logger),
		wrapper.WithScriptTimeout(cfg.ScriptTimeout),
		wrapper.WithCloser(shutdown),
	)

	if err := session.SetWindowSize(cfg.WindowWidth, cfg.WindowHeight); err != nil {
		// headless shells may not expose a window
		logger.Debug("setting window size failed", zap.Error(err))
	}

	return session, nil
}

func newLauncher(cfg config.BrowserConfig, bin string) *launcher.Launcher {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox).
		Set("lang", cfg.Lang).
		Set("window-size", fmt.Sprintf("%d,%d", cfg.WindowWidth, cfg.WindowHeight))

	if cfg.UserAgent != "" {
		l = l.Set("user-agent", cfg.UserAgent)
	}
	if bin != "" {
		l = l.Bin(bin)
	}
	if cfg.UserDataDir != "" {
		l = l.UserDataDir(cfg.UserDataDir)
	}
	return l
}

// ResolveBin picks the browser executable: the configured path, then a bundled
// binary under the driver directory, then a system browser. An empty result
// lets rod download its own build.
func ResolveBin(cfg config.BrowserConfig) string {
	if cfg.Bin != "" {
		return cfg.Bin
	}

	if bundled := BundledPath(cfg.DriverDir, runtime.GOOS); bundled != "" {
		if info, err := os.Stat(bundled); err == nil && !info.IsDir() {
			return bundled
		}
	}

	if path, has := launcher.LookPath(); has {
		return path
	}
	return ""
}

// BundledPath returns where a bundled browser for goos is expected. dir
// defaults to a "driver" directory next to the running executable.
func BundledPath(dir, goos string) string {
	if dir == "" {
		exe, err := os.Executable()
		if err != nil {
			return ""
		}
		dir = filepath.Join(filepath.Dir(exe), "driver")
	}

	if goos == "windows" {
		return filepath.Join(dir, "windows", "chrome.exe")
	}
	return filepath.Join(dir, goos, "chrome")
}
