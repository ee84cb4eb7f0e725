// endpoint_ratelimit.go - Per-endpoint rate limiting.
//
// Conversions are expensive, so their routes get their own (tighter) bucket;
// probes and the metrics scrape are never limited.
package server

import (
	"net/http"
	"strings"
	"time"

	"doc-convert/internal/convert"
	"doc-convert/internal/logging"
)

// apiRateMultiplier scales the conversion limit for cheap read-only endpoints.
const apiRateMultiplier = 5

// EndpointRateLimiter manages rate limits for different endpoint types.
type EndpointRateLimiter struct {
	convertLimiter *rateLimiter // conversion routes and their aliases
	apiLimiter     *rateLimiter // route listing and everything else
	conversions    map[string]bool
	metrics        *Metrics
}

// NewEndpointRateLimiter creates a limiter allowing perMinute conversions per
// client IP. A perMinute of zero or less disables limiting.
func NewEndpointRateLimiter(reg *convert.Registry, perMinute int, m *Metrics) *EndpointRateLimiter {
	erl := &EndpointRateLimiter{
		conversions: make(map[string]bool),
		metrics:     m,
	}
	if perMinute <= 0 {
		return erl
	}
	for _, route := range reg.Routes() {
		erl.conversions["/"+route.Name] = true
	}
	for _, alias := range convert.LegacyAliases {
		erl.conversions["/"+alias.Path] = true
	}
	erl.convertLimiter = newRateLimiter(perMinute, time.Minute)
	erl.apiLimiter = newRateLimiter(perMinute*apiRateMultiplier, time.Minute)
	return erl
}

// Middleware returns an HTTP middleware that applies endpoint-specific rate limits.
func (erl *EndpointRateLimiter) Middleware(next http.Handler) http.Handler {
	if erl.convertLimiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimSuffix(r.URL.Path, "/")

		var limiter *rateLimiter
		var limitType string

		switch {
		case isProbe(path):
			next.ServeHTTP(w, r)
			return
		case erl.conversions[path]:
			limiter = erl.convertLimiter
			limitType = "conversion"
		default:
			limiter = erl.apiLimiter
			limitType = "api"
		}

		ip := getClientIP(r)
		ok, retryAfter := limiter.allow(ip)
		if !ok {
			logging.Warn(r.Context(), "rate_limit_exceeded", logging.Fields{
				"ip":         ip,
				"path":       r.URL.Path,
				"method":     r.Method,
				"limit_type": limitType,
			})
			if erl.metrics != nil {
				erl.metrics.RecordRateLimited()
			}
			w.Header().Set("X-RateLimit-Limit-Type", limitType)
			writeRateLimited(w, r, retryAfter)
			return
		}

		next.ServeHTTP(w, r)
	})
}
