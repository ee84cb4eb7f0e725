package server

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"doc-convert/internal/logging"
	"doc-convert/internal/storage"
)

// Defaults shared by the binary and configuration validation.
const (
	DefaultConversionTimeout = 2 * time.Minute
	DefaultRetentionMaxAge   = 24 * time.Hour
)

// RetentionConfig holds configuration for the retention job
type RetentionConfig struct {
	Enabled  bool
	Schedule string        // cron spec or "@every <duration>"
	MaxAge   time.Duration // files older than this are removed
	MinAge   time.Duration // lower bound for MaxAge, the conversion timeout
}

// Retention runs the sweep of both areas on a cron schedule.
type Retention struct {
	cron    *cron.Cron
	areas   *storage.Areas
	maxAge  time.Duration
	metrics *Metrics
	log     *logging.Logger
	now     func() time.Time
}

// StartRetention schedules periodic eviction of uploads and artifacts older
// than cfg.MaxAge and runs one sweep immediately. It returns nil when
// retention is disabled. The job stops when ctx is cancelled or Stop is called.
func StartRetention(ctx context.Context, areas *storage.Areas, cfg RetentionConfig, m *Metrics, log *logging.Logger) (*Retention, error) {
	if log == nil {
		log = logging.Default
	}
	if !cfg.Enabled {
		log.Info(ctx, "retention_disabled", nil)
		return nil, nil
	}
	if cfg.MaxAge <= 0 {
		return nil, fmt.Errorf("retention: max age must be positive, got %s", cfg.MaxAge)
	}
	if cfg.MaxAge < cfg.MinAge {
		return nil, fmt.Errorf("retention: max age %s is shorter than the conversion timeout %s", cfg.MaxAge, cfg.MinAge)
	}
	if m == nil {
		m = GetMetrics()
	}

	cl := cronLogger{log: log}
	r := &Retention{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		areas:   areas,
		maxAge:  cfg.MaxAge,
		metrics: m,
		log:     log,
		now:     time.Now,
	}
	if _, err := r.cron.AddFunc(cfg.Schedule, func() { r.RunOnce(ctx) }); err != nil {
		return nil, fmt.Errorf("retention: schedule %q: %w", cfg.Schedule, err)
	}

	log.Info(ctx, "retention_starting", logging.Fields{
		"schedule": cfg.Schedule,
		"max_age":  cfg.MaxAge.String(),
	})

	// Run immediately on start
	r.RunOnce(ctx)
	r.cron.Start()

	go func() {
		<-ctx.Done()
		r.Stop()
	}()
	return r, nil
}

// RunOnce sweeps both areas once.
func (r *Retention) RunOnce(ctx context.Context) storage.SweepResult {
	start := r.now()
	res := r.areas.Sweep(start.Add(-r.maxAge))
	r.metrics.RecordRetention(res)

	for _, err := range res.Errors {
		r.log.Warn(ctx, "retention_remove_failed", logging.Fields{"error": err.Error()})
	}
	r.log.Info(ctx, "retention_complete", logging.Fields{
		"removed":     res.Removed,
		"bytes":       res.Bytes,
		"errors":      len(res.Errors),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return res
}

// Stop halts the schedule and waits for a running sweep to finish.
func (r *Retention) Stop() {
	<-r.cron.Stop().Done()
}

// cronLogger adapts the structured logger to cron.Logger.
type cronLogger struct {
	log *logging.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.log.Debug(context.Background(), "cron_"+msg, kvFields(keysAndValues))
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.log.Error(context.Background(), "cron_"+msg, kvFields(keysAndValues), err)
}

func kvFields(kv []any) logging.Fields {
	if len(kv) == 0 {
		return nil
	}
	f := make(logging.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}
