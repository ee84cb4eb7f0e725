// prometheus.go - Prometheus metrics exporter
package server

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

var serverStartTime = time.Now()

// PrometheusExporter converts internal metrics to Prometheus format
type PrometheusExporter struct {
	metrics *Metrics
	build   BuildInfo
	gauges  func() map[string]float64
}

// NewPrometheusExporter creates a new Prometheus exporter. gauges is sampled
// on every scrape and may be nil.
func NewPrometheusExporter(m *Metrics, build BuildInfo, gauges func() map[string]float64) *PrometheusExporter {
	if m == nil {
		m = GetMetrics()
	}
	return &PrometheusExporter{metrics: m, build: build, gauges: gauges}
}

// Handler returns an HTTP handler for the /metrics endpoint
func (p *PrometheusExporter) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		snapshot := p.metrics.Snapshot()

		var output strings.Builder

		header := func(name, typ, help string) {
			fmt.Fprintf(&output, "# HELP %s %s\n# TYPE %s %s\n", name, help, name, typ)
		}

		header("convert_info", "gauge", "Application version info")
		fmt.Fprintf(&output, "convert_info{version=\"%s\",commit=\"%s\"} 1\n\n",
			prometheusLabel(p.build.Version), prometheusLabel(p.build.Commit))

		// Request metrics
		header("convert_requests_total", "counter", "Total number of HTTP requests")
		fmt.Fprintf(&output, "convert_requests_total %d\n\n", snapshot.RequestsTotal)

		header("convert_request_errors_total", "counter", "HTTP responses by status class")
		fmt.Fprintf(&output, "convert_request_errors_total{class=\"4xx\"} %d\n", snapshot.RequestErrors4xx)
		fmt.Fprintf(&output, "convert_request_errors_total{class=\"5xx\"} %d\n\n", snapshot.RequestErrors5xx)

		header("convert_rate_limited_total", "counter", "Requests rejected by rate limiting")
		fmt.Fprintf(&output, "convert_rate_limited_total %d\n\n", snapshot.RateLimitedTotal)

		// Conversion metrics
		header("convert_conversions_total", "counter", "Successful conversions by route")
		for _, rs := range snapshot.Routes {
			fmt.Fprintf(&output, "convert_conversions_total{route=\"%s\"} %d\n", prometheusLabel(rs.Route), rs.Total)
		}
		output.WriteString("\n")

		header("convert_conversion_failures_total", "counter", "Failed conversions by route")
		for _, rs := range snapshot.Routes {
			fmt.Fprintf(&output, "convert_conversion_failures_total{route=\"%s\"} %d\n", prometheusLabel(rs.Route), rs.Failed)
		}
		output.WriteString("\n")

		header("convert_bytes_in_total", "counter", "Uploaded bytes of successful conversions by route")
		for _, rs := range snapshot.Routes {
			fmt.Fprintf(&output, "convert_bytes_in_total{route=\"%s\"} %d\n", prometheusLabel(rs.Route), rs.BytesIn)
		}
		output.WriteString("\n")

		header("convert_bytes_out_total", "counter", "Artifact bytes served by route")
		for _, rs := range snapshot.Routes {
			fmt.Fprintf(&output, "convert_bytes_out_total{route=\"%s\"} %d\n", prometheusLabel(rs.Route), rs.BytesOut)
		}
		output.WriteString("\n")

		header("convert_duration_avg_ms", "gauge", "Average conversion duration by route in milliseconds")
		for _, rs := range snapshot.Routes {
			fmt.Fprintf(&output, "convert_duration_avg_ms{route=\"%s\"} %.2f\n", prometheusLabel(rs.Route), rs.AvgDurationMs)
		}
		output.WriteString("\n")

		header("convert_failures_by_kind_total", "counter", "Failed conversions by error kind")
		kinds := make([]string, 0, len(snapshot.FailuresByKind))
		for k := range snapshot.FailuresByKind {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			fmt.Fprintf(&output, "convert_failures_by_kind_total{kind=\"%s\"} %d\n", prometheusLabel(k), snapshot.FailuresByKind[k])
		}
		output.WriteString("\n")

		// Retention metrics
		header("convert_retention_runs_total", "counter", "Completed retention sweeps")
		fmt.Fprintf(&output, "convert_retention_runs_total %d\n\n", snapshot.RetentionRuns)

		header("convert_retention_removed_total", "counter", "Files removed by retention")
		fmt.Fprintf(&output, "convert_retention_removed_total %d\n\n", snapshot.RetentionRemoved)

		header("convert_retention_bytes_total", "counter", "Bytes reclaimed by retention")
		fmt.Fprintf(&output, "convert_retention_bytes_total %d\n\n", snapshot.RetentionBytes)

		if p.gauges != nil {
			g := p.gauges()
			names := make([]string, 0, len(g))
			for name := range g {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(&output, "# TYPE %s gauge\n%s %g\n\n", name, name, g[name])
			}
		}

		header("convert_uptime_seconds", "counter", "Application uptime in seconds")
		fmt.Fprintf(&output, "convert_uptime_seconds %.0f\n", time.Since(serverStartTime).Seconds())

		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte(output.String()))
		}
	}
}

// Helper function to format label safely for Prometheus
func prometheusLabel(value string) string {
	// Escape quotes and backslashes
	value = strings.ReplaceAll(value, "\\", "\\\\")
	value = strings.ReplaceAll(value, "\"", "\\\"")
	value = strings.ReplaceAll(value, "\n", "\\n")
	return value
}
