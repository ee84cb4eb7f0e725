package server

import (
	"encoding/json"
	"net/http"
	"time"
)

// HealthStatus represents the overall health of the system
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// ComponentStatus represents the health of an individual component
type ComponentStatus string

const (
	ComponentStatusUp       ComponentStatus = "up"
	ComponentStatusDown     ComponentStatus = "down"
	ComponentStatusDegraded ComponentStatus = "degraded"
)

// busyThreshold is the worker utilisation above which the pool reports degraded.
const busyThreshold = 1.0

// Health represents the complete health check response
type Health struct {
	Status     HealthStatus               `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents the health of a single system component
type ComponentHealth struct {
	Status    ComponentStatus `json:"status"`
	Message   string          `json:"message,omitempty"`
	LatencyMs float64         `json:"latency_ms,omitempty"`
	Details   any             `json:"details,omitempty"`
}

// WorkerDetails reports conversion slot usage.
type WorkerDetails struct {
	Workers  int64 `json:"workers"`
	InFlight int   `json:"in_flight"`
}

// HandleHealth provides a detailed health check endpoint
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	health := s.checkHealth()

	statusCode := http.StatusOK // degraded still answers 200
	if health.Status == HealthStatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(health)
}

// HandleReady provides a readiness probe for load balancers: the areas must
// be writable and the renderer circuit must not be open.
func (s *Server) HandleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.areas.Writable(); err != nil {
		s.log.Warn(r.Context(), "not_ready", map[string]any{"reason": "storage", "error": err.Error()})
		writeProbe(w, http.StatusServiceUnavailable, "not_ready", "storage unavailable")
		return
	}
	if s.breaker != nil && s.breaker.GetState() == StateOpen {
		writeProbe(w, http.StatusServiceUnavailable, "not_ready", "renderer unavailable")
		return
	}
	writeProbe(w, http.StatusOK, "ok", "")
}

// HandleLive provides a liveness probe (is the process running?)
func (s *Server) HandleLive(w http.ResponseWriter, r *http.Request) {
	writeProbe(w, http.StatusOK, "alive", "")
}

func writeProbe(w http.ResponseWriter, code int, status, message string) {
	body := map[string]string{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if message != "" {
		body["message"] = message
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// checkHealth performs comprehensive health checks on all components
func (s *Server) checkHealth() Health {
	health := Health{
		Timestamp:  time.Now(),
		Version:    s.build.Version,
		Components: make(map[string]ComponentHealth),
	}

	health.Components["storage"] = s.checkStorageHealth()
	health.Components["renderer"] = s.checkRendererHealth()
	health.Components["workers"] = s.checkWorkerHealth()

	health.Status = s.determineOverallHealth(health.Components)

	return health
}

// checkStorageHealth probes both areas with a throwaway file
func (s *Server) checkStorageHealth() ComponentHealth {
	start := time.Now()
	if err := s.areas.Writable(); err != nil {
		return ComponentHealth{
			Status:  ComponentStatusDown,
			Message: "storage not writable",
		}
	}
	return ComponentHealth{
		Status:    ComponentStatusUp,
		Message:   "storage healthy",
		LatencyMs: float64(time.Since(start).Microseconds()) / 1000,
		Details: map[string]string{
			"intake": s.areas.Intake,
			"output": s.areas.Output,
		},
	}
}

// checkRendererHealth reports the circuit state of the browser renderer.
// An open circuit degrades the service: image and CSV routes still work.
func (s *Server) checkRendererHealth() ComponentHealth {
	if s.breaker == nil {
		return ComponentHealth{Status: ComponentStatusUp, Message: "renderer unguarded"}
	}
	stats := s.breaker.GetStats()
	switch s.breaker.GetState() {
	case StateOpen:
		return ComponentHealth{Status: ComponentStatusDegraded, Message: "renderer circuit open", Details: stats}
	case StateHalfOpen:
		return ComponentHealth{Status: ComponentStatusDegraded, Message: "renderer recovering", Details: stats}
	default:
		return ComponentHealth{Status: ComponentStatusUp, Message: "renderer healthy", Details: stats}
	}
}

// checkWorkerHealth reports how many conversion slots are busy
func (s *Server) checkWorkerHealth() ComponentHealth {
	details := WorkerDetails{
		Workers:  s.pipeline.Workers(),
		InFlight: s.pipeline.InFlight(),
	}
	if details.Workers > 0 && float64(details.InFlight)/float64(details.Workers) >= busyThreshold {
		return ComponentHealth{Status: ComponentStatusDegraded, Message: "all workers busy", Details: details}
	}
	return ComponentHealth{Status: ComponentStatusUp, Message: "workers available", Details: details}
}

// determineOverallHealth calculates overall health from component statuses
func (s *Server) determineOverallHealth(components map[string]ComponentHealth) HealthStatus {
	var (
		downCount     int
		degradedCount int
	)

	for _, component := range components {
		switch component.Status {
		case ComponentStatusDown:
			downCount++
		case ComponentStatusDegraded:
			degradedCount++
		}
	}

	if downCount > 0 {
		return HealthStatusUnhealthy
	}
	if degradedCount > 0 {
		return HealthStatusDegraded
	}
	return HealthStatusHealthy
}
