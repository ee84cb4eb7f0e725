package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"doc-convert/internal/convert"
	"doc-convert/internal/logging"
	"doc-convert/internal/storage"
)

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Version string
	Commit  string
}

type Config struct {
	Addr           string // e.g. ":8080"
	Build          BuildInfo
	Areas          *storage.Areas
	Registry       *convert.Registry
	Pipeline       *convert.Pipeline
	Breaker        *CircuitBreaker // guards the renderer; may be nil
	MaxUploadBytes int64
	RateLimit      int // conversions per minute per client IP; 0 disables
	Metrics        *Metrics
	Log            *logging.Logger
}

type Server struct {
	httpServer *http.Server
	handler    http.Handler

	build     BuildInfo
	areas     *storage.Areas
	registry  *convert.Registry
	pipeline  *convert.Pipeline
	breaker   *CircuitBreaker
	maxUpload int64
	metrics   *Metrics
	log       *logging.Logger
}

func New(cfg Config) *Server {
	s := &Server{
		build:     cfg.Build,
		areas:     cfg.Areas,
		registry:  cfg.Registry,
		pipeline:  cfg.Pipeline,
		breaker:   cfg.Breaker,
		maxUpload: cfg.MaxUploadBytes,
		metrics:   cfg.Metrics,
		log:       cfg.Log,
	}
	if s.metrics == nil {
		s.metrics = GetMetrics()
	}
	if s.log == nil {
		s.log = logging.Default
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/{$}", s.handleRoutes)
	mux.HandleFunc("/routes", s.handleRoutes)
	mux.HandleFunc("/health", s.HandleHealth)
	mux.HandleFunc("/ready", s.HandleReady)
	mux.HandleFunc("/live", s.HandleLive)
	mux.Handle("/metrics", NewPrometheusExporter(s.metrics, s.build, s.gauges).Handler())

	for _, route := range s.registry.Routes() {
		mux.Handle("/"+route.Name, s.conversionHandler(route, ""))
	}
	for _, alias := range convert.LegacyAliases {
		if route, ok := s.registry.Lookup(alias.Route); ok {
			mux.Handle("/"+alias.Path, s.conversionHandler(route, alias.Format))
		}
	}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, r, http.StatusNotFound, convert.KindClientInput, "no such endpoint: "+r.URL.Path)
	})

	// Wrap middleware: requestID -> logging -> security -> rate limit -> compression -> mux
	var handler http.Handler = mux
	handler = CompressionMiddleware(handler)
	handler = NewEndpointRateLimiter(s.registry, cfg.RateLimit, s.metrics).Middleware(handler)
	handler = securityHeadersMiddleware(handler)
	handler = loggingMiddleware(s.log, s.metrics, handler)
	handler = requestIDMiddleware(handler)
	s.handler = handler

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.httpServer.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) gauges() map[string]float64 {
	g := map[string]float64{
		"convert_workers":   float64(s.pipeline.Workers()),
		"convert_in_flight": float64(s.pipeline.InFlight()),
	}
	if s.breaker != nil {
		g["convert_renderer_circuit_open"] = 0
		if s.breaker.GetState() == StateOpen {
			g["convert_renderer_circuit_open"] = 1
		}
	}
	return g
}
