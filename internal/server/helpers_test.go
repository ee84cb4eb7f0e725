package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"doc-convert/internal/convert"
	"doc-convert/internal/logging"
	"doc-convert/internal/ooxml"
	"doc-convert/internal/raster"
	"doc-convert/internal/storage"
)

// stubRenderer returns a minimal PDF for any markup, or err when set.
type stubRenderer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *stubRenderer) RenderFile(ctx context.Context, htmlPath string) ([]byte, error) {
	if _, err := os.Stat(htmlPath); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []byte("%PDF-1.4\n% stub\n%%EOF\n"), nil
}

// stubRasterizer yields small blank pages without PDFium.
type stubRasterizer struct {
	pages int
}

func (s *stubRasterizer) Rasterize(ctx context.Context, data []byte, fn raster.PageFunc) error {
	for i := 1; i <= s.pages; i++ {
		img := image.NewGray(image.Rect(0, 0, 4, 4))
		if err := fn(i, s.pages, img); err != nil {
			return err
		}
	}
	return nil
}

type testServer struct {
	srv      *Server
	areas    *storage.Areas
	renderer *stubRenderer
	breaker  *CircuitBreaker
	metrics  *Metrics
}

type serverOption func(*Config)

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()
	dir := t.TempDir()
	areas, err := storage.NewAreas(filepath.Join(dir, "uploads"), filepath.Join(dir, "downloads"))
	if err != nil {
		t.Fatalf("NewAreas: %v", err)
	}
	log := logging.New(io.Discard, logging.LevelError, false)
	rend := &stubRenderer{}
	breaker := NewCircuitBreaker(3, time.Minute)
	reg := convert.NewRegistry(convert.Dependencies{
		Renderer:   NewGuardedRenderer(rend, breaker),
		Rasterizer: &stubRasterizer{pages: 3},
	})
	cfg := Config{
		Addr:           ":0",
		Build:          BuildInfo{Version: "test", Commit: "abc123"},
		Areas:          areas,
		Registry:       reg,
		Pipeline:       convert.NewPipeline(areas, convert.PipelineConfig{Workers: 4, Timeout: 10 * time.Second}, log),
		Breaker:        breaker,
		MaxUploadBytes: 10 << 20,
		Metrics:        NewMetrics(),
		Log:            log,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &testServer{
		srv:      New(cfg),
		areas:    areas,
		renderer: rend,
		breaker:  breaker,
		metrics:  cfg.Metrics,
	}
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	return httpDo(ts.srv, req)
}

// uploadRequest builds a multipart POST. fields are written before the file.
func uploadRequest(t *testing.T, path, filename string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := fw.Write(data); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.RemoteAddr = "192.0.2.10:4711"
	return req
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) errorResp {
	t.Helper()
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("error Content-Type = %q, want application/json (body %q)", ct, rr.Body.String())
	}
	var resp errorResp
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body %q: %v", rr.Body.String(), err)
	}
	return resp
}

func docxBytes(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := ooxml.WriteDocument(&buf, paragraphs); err != nil {
		t.Fatalf("WriteDocument: %v", err)
	}
	return buf.Bytes()
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.NRGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func httpDo(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	return rr
}
