package render

import (
	"errors"
	"fmt"

	"github.com/go-rod/rod/lib/launcher"
)

// ErrBrowserNotFound is returned when no Chrome executable is available and
// downloading one is not allowed.
var ErrBrowserNotFound = errors.New("render: no chrome executable found")

// resolveBrowser returns the executable to launch. An explicit path wins,
// then the standard install locations, then (optionally) a downloaded
// Chromium cached under ~/.cache/rod/browser.
func resolveBrowser(cfg chromeConfig) (string, error) {
	if cfg.chromePath != "" {
		return cfg.chromePath, nil
	}
	if path, ok := launcher.LookPath(); ok {
		return path, nil
	}
	if !cfg.autoDownload {
		return "", ErrBrowserNotFound
	}
	path, err := launcher.NewBrowser().Get()
	if err != nil {
		return "", fmt.Errorf("render: downloading browser: %w", err)
	}
	return path, nil
}
