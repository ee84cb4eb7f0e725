package render

import "time"

type chromeConfig struct {
	chromePath   string
	remoteURL    string
	autoDownload bool
	noSandbox    bool
	startTimeout time.Duration
	paperWidth   float64
	paperHeight  float64
	margin       float64
}

func defaultConfig() chromeConfig {
	return chromeConfig{
		startTimeout: 30 * time.Second,
		// A4 in inches
		paperWidth:  8.27,
		paperHeight: 11.69,
		margin:      0.4,
	}
}

// Option configures a Chrome renderer.
type Option func(*chromeConfig)

// WithChromePath sets the Chrome or Chromium executable. When empty the
// renderer looks in the standard install locations.
func WithChromePath(path string) Option {
	return func(c *chromeConfig) {
		c.chromePath = path
	}
}

// WithRemoteURL connects to an already running browser over its DevTools
// websocket or HTTP endpoint instead of launching one.
func WithRemoteURL(url string) Option {
	return func(c *chromeConfig) {
		c.remoteURL = url
	}
}

// WithAutoDownload allows fetching a Chromium build when no local browser
// can be found.
func WithAutoDownload(enabled bool) Option {
	return func(c *chromeConfig) {
		c.autoDownload = enabled
	}
}

// WithNoSandbox disables the Chrome sandbox. Required when running as root
// inside a container.
func WithNoSandbox(enabled bool) Option {
	return func(c *chromeConfig) {
		c.noSandbox = enabled
	}
}

// WithStartTimeout bounds how long the eager browser start may take.
func WithStartTimeout(d time.Duration) Option {
	return func(c *chromeConfig) {
		c.startTimeout = d
	}
}
