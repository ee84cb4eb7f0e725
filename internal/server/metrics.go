package server

import (
	"sort"
	"sync"
	"time"

	"doc-convert/internal/convert"
	"doc-convert/internal/storage"
)

// Metrics holds application metrics
type Metrics struct {
	mu sync.RWMutex

	// Conversion metrics, keyed by route name
	routes map[string]*routeStats

	// Failures by error kind across all routes
	failuresByKind map[convert.Kind]int64

	// Retention metrics
	retentionRuns    int64
	retentionRemoved int64
	retentionBytes   int64
	retentionErrors  int64

	// System metrics
	requestsTotal    int64
	requestErrors5xx int64
	requestErrors4xx int64
	rateLimitedTotal int64
}

type routeStats struct {
	total         int64
	failed        int64
	bytesIn       int64
	bytesOut      int64
	durationTotal time.Duration
}

var globalMetrics = NewMetrics()

// NewMetrics returns an empty metrics set.
func NewMetrics() *Metrics {
	return &Metrics{
		routes:         make(map[string]*routeStats),
		failuresByKind: make(map[convert.Kind]int64),
	}
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	return globalMetrics
}

func (m *Metrics) route(name string) *routeStats {
	rs, ok := m.routes[name]
	if !ok {
		rs = &routeStats{}
		m.routes[name] = rs
	}
	return rs
}

// RecordConversion records a successful conversion
func (m *Metrics) RecordConversion(route string, bytesIn, bytesOut int64, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rs := m.route(route)
	rs.total++
	rs.bytesIn += bytesIn
	rs.bytesOut += bytesOut
	rs.durationTotal += duration
}

// RecordConversionError records a failed conversion
func (m *Metrics) RecordConversionError(route string, kind convert.Kind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.route(route).failed++
	m.failuresByKind[kind]++
}

// RecordRateLimited records a request rejected by a rate limiter
func (m *Metrics) RecordRateLimited() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rateLimitedTotal++
}

// RecordRetention records one retention sweep
func (m *Metrics) RecordRetention(res storage.SweepResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retentionRuns++
	m.retentionRemoved += int64(res.Removed)
	m.retentionBytes += res.Bytes
	m.retentionErrors += int64(len(res.Errors))
}

// RecordRequest records an HTTP request
func (m *Metrics) RecordRequest(statusCode int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestsTotal++

	if statusCode >= 500 {
		m.requestErrors5xx++
	} else if statusCode >= 400 {
		m.requestErrors4xx++
	}
}

// Snapshot returns a snapshot of current metrics
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := MetricsSnapshot{
		FailuresByKind:   make(map[string]int64, len(m.failuresByKind)),
		RetentionRuns:    m.retentionRuns,
		RetentionRemoved: m.retentionRemoved,
		RetentionBytes:   m.retentionBytes,
		RetentionErrors:  m.retentionErrors,
		RequestsTotal:    m.requestsTotal,
		RequestErrors5xx: m.requestErrors5xx,
		RequestErrors4xx: m.requestErrors4xx,
		RateLimitedTotal: m.rateLimitedTotal,
	}
	for name, rs := range m.routes {
		snap.Routes = append(snap.Routes, RouteSnapshot{
			Route:         name,
			Total:         rs.total,
			Failed:        rs.failed,
			BytesIn:       rs.bytesIn,
			BytesOut:      rs.bytesOut,
			AvgDurationMs: avgDuration(rs.durationTotal, rs.total),
		})
		snap.ConversionsTotal += rs.total
		snap.ConversionErrors += rs.failed
	}
	sort.Slice(snap.Routes, func(i, j int) bool { return snap.Routes[i].Route < snap.Routes[j].Route })
	for kind, n := range m.failuresByKind {
		snap.FailuresByKind[string(kind)] = n
	}
	return snap
}

// MetricsSnapshot represents a point-in-time snapshot of metrics
type MetricsSnapshot struct {
	// Conversion metrics
	ConversionsTotal int64            `json:"conversions_total"`
	ConversionErrors int64            `json:"conversion_errors_total"`
	Routes           []RouteSnapshot  `json:"routes"`
	FailuresByKind   map[string]int64 `json:"failures_by_kind"`

	// Retention metrics
	RetentionRuns    int64 `json:"retention_runs_total"`
	RetentionRemoved int64 `json:"retention_removed_total"`
	RetentionBytes   int64 `json:"retention_bytes_total"`
	RetentionErrors  int64 `json:"retention_errors_total"`

	// System metrics
	RequestsTotal    int64 `json:"requests_total"`
	RequestErrors5xx int64 `json:"request_errors_5xx"`
	RequestErrors4xx int64 `json:"request_errors_4xx"`
	RateLimitedTotal int64 `json:"rate_limited_total"`
}

// RouteSnapshot is the per-route slice of a MetricsSnapshot.
type RouteSnapshot struct {
	Route         string  `json:"route"`
	Total         int64   `json:"total"`
	Failed        int64   `json:"failed"`
	BytesIn       int64   `json:"bytes_in"`
	BytesOut      int64   `json:"bytes_out"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
}

func avgDuration(total time.Duration, count int64) float64 {
	if count == 0 {
		return 0
	}
	return float64(total.Milliseconds()) / float64(count)
}
