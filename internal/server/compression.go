// compression.go - gzip compression for JSON and metrics responses.
//
// Converted artifacts are streamed untouched: most are already compressed
// containers and their Content-Length must stay exact.
package server

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
)

// compressionResponseWriter wraps http.ResponseWriter to compress responses.
type compressionResponseWriter struct {
	http.ResponseWriter
	writer io.Writer
}

// Write compresses data before writing to the underlying writer.
func (crw *compressionResponseWriter) Write(b []byte) (int, error) {
	return crw.writer.Write(b)
}

func (crw *compressionResponseWriter) WriteHeader(code int) {
	crw.ResponseWriter.Header().Del("Content-Length") // Length will change with compression
	crw.ResponseWriter.WriteHeader(code)
}

// CompressionMiddleware returns middleware that compresses HTTP responses.
func CompressionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Accept-Encoding")

		// Check if client accepts compression
		if !acceptsCompression(r) || shouldSkipCompression(r) {
			next.ServeHTTP(w, r)
			return
		}

		gz := gzip.NewWriter(w)
		defer gz.Close()

		w.Header().Set("Content-Encoding", "gzip")

		crw := &compressionResponseWriter{
			ResponseWriter: w,
			writer:         gz,
		}

		next.ServeHTTP(crw, r)
	})
}

// acceptsCompression checks if the client accepts gzip encoding.
func acceptsCompression(r *http.Request) bool {
	acceptEncoding := r.Header.Get("Accept-Encoding")
	return strings.Contains(acceptEncoding, "gzip")
}

// shouldSkipCompression determines if compression should be skipped for this request.
func shouldSkipCompression(r *http.Request) bool {
	// Conversions answer with binary attachments
	if r.Method == http.MethodPost {
		return true
	}
	// HEAD has no body to compress
	return r.Method == http.MethodHead
}
