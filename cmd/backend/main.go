package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"doc-convert/internal/convert"
	"doc-convert/internal/logging"
	"doc-convert/internal/raster"
	"doc-convert/internal/render"
	"doc-convert/internal/server"
	"doc-convert/internal/storage"
)

const (
	breakerFailures = 5
	breakerCooldown = 30 * time.Second
)

func main() {
	ctx := context.Background()
	log := logging.Default

	if err := server.ValidateAllConfiguration(); err != nil {
		log.Error(ctx, "invalid_configuration", nil, err)
		os.Exit(1)
	}
	server.WarnOnOptionalMissingConfig()

	addr := getenvDefault("CONVERT_ADDR", ":8080")

	build := server.BuildInfo{
		Version: getenvDefault("CONVERT_VERSION", "dev"),
		Commit:  getenvDefault("CONVERT_COMMIT", "unknown"),
	}

	workers := getenvInt("CONVERT_WORKERS", runtime.NumCPU())
	timeout := getenvDuration("CONVERT_TIMEOUT", server.DefaultConversionTimeout)

	areas, err := storage.NewAreas(
		getenvDefault("CONVERT_UPLOAD_DIR", "uploads"),
		getenvDefault("CONVERT_DOWNLOAD_DIR", "downloads"),
	)
	if err != nil {
		log.Error(ctx, "storage_init_failed", nil, err)
		os.Exit(1)
	}

	// The browser is started eagerly; refuse to run without one.
	chrome, err := render.NewChrome(
		render.WithChromePath(os.Getenv("CONVERT_CHROME_PATH")),
		render.WithRemoteURL(os.Getenv("CONVERT_CHROME_REMOTE_URL")),
		render.WithAutoDownload(getenvBool("CONVERT_CHROME_AUTO_DOWNLOAD", false)),
		render.WithNoSandbox(getenvBool("CONVERT_CHROME_NO_SANDBOX", false)),
	)
	if err != nil {
		log.Error(ctx, "renderer_start_failed", nil, err)
		os.Exit(1)
	}
	defer func() { _ = chrome.Close() }()

	rasterizer, err := raster.New(raster.Config{
		Instances:    workers,
		InstanceWait: timeout,
	})
	if err != nil {
		log.Error(ctx, "rasterizer_start_failed", nil, err)
		_ = chrome.Close()
		os.Exit(1)
	}
	defer func() { _ = rasterizer.Close() }()

	breaker := server.NewCircuitBreaker(breakerFailures, breakerCooldown)
	registry := convert.NewRegistry(convert.Dependencies{
		Renderer:   server.NewGuardedRenderer(chrome, breaker),
		Rasterizer: rasterizer,
	})
	pipeline := convert.NewPipeline(areas, convert.PipelineConfig{
		Workers: int64(workers),
		Timeout: timeout,
	}, log)

	retentionCtx, stopRetention := context.WithCancel(ctx)
	defer stopRetention()
	if _, err := server.StartRetention(retentionCtx, areas, server.RetentionConfig{
		Enabled:  getenvBool("CONVERT_RETENTION_ENABLED", true),
		Schedule: getenvDefault("CONVERT_RETENTION_SCHEDULE", "@every 1h"),
		MaxAge:   getenvDuration("CONVERT_RETENTION_MAX_AGE", server.DefaultRetentionMaxAge),
		MinAge:   timeout,
	}, server.GetMetrics(), log); err != nil {
		log.Error(ctx, "retention_start_failed", nil, err)
		os.Exit(1)
	}

	srv := server.New(server.Config{
		Addr:           addr,
		Build:          build,
		Areas:          areas,
		Registry:       registry,
		Pipeline:       pipeline,
		Breaker:        breaker,
		MaxUploadBytes: int64(getenvInt("CONVERT_MAX_UPLOAD_BYTES", 50<<20)),
		RateLimit:      getenvInt("CONVERT_RATE_LIMIT", 60),
		Metrics:        server.GetMetrics(),
		Log:            log,
	})

	// Start the HTTP server in a background goroutine.
	// This allows us to listen for OS signals while the server runs.
	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting", logging.Fields{
			"addr":    addr,
			"version": build.Version,
			"commit":  build.Commit,
			"workers": workers,
			"timeout": timeout.String(),
		})
		errCh <- srv.Start()
	}()

	// Set up signal handling for graceful shutdown on SIGINT (Ctrl+C) or SIGTERM (container stop).
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info(ctx, "shutting_down", logging.Fields{"signal": sig.String()})
		// In-flight conversions get the full conversion timeout to finish.
		shutdownCtx, cancel := context.WithTimeout(ctx, timeout+5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error(ctx, "shutdown_error", nil, err)
			return
		}
		log.Info(ctx, "shutdown_complete", nil)
	case err := <-errCh:
		if err != nil {
			log.Error(ctx, "server_error", nil, err)
			stopRetention()
			_ = rasterizer.Close()
			_ = chrome.Close()
			os.Exit(1)
		}
	}
}

// getenvDefault reads an environment variable and returns a default value if not set.
func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

// getenvInt parses an integer variable; values were checked by
// ValidateAllConfiguration, so a parse failure falls back to def.
func getenvInt(key string, def int) int {
	n, err := strconv.Atoi(getenvDefault(key, strconv.Itoa(def)))
	if err != nil {
		return def
	}
	return n
}

func getenvBool(key string, def bool) bool {
	b, err := strconv.ParseBool(getenvDefault(key, strconv.FormatBool(def)))
	if err != nil {
		return def
	}
	return b
}

func getenvDuration(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(getenvDefault(key, def.String()))
	if err != nil {
		return def
	}
	return d
}
