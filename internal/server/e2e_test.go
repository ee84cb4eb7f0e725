//go:build e2e

// End-to-end conversions against a real headless Chrome started with
// dockertest and a real PDFium. Requires Docker:
//
//	go test -tags e2e -run TestE2E ./internal/server
//
// CONVERT_E2E_CHROME_TAG overrides the chromedp/headless-shell image tag.
package server

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/xuri/excelize/v2"

	"doc-convert/internal/convert"
	"doc-convert/internal/logging"
	"doc-convert/internal/ooxml"
	"doc-convert/internal/raster"
	"doc-convert/internal/render"
	"doc-convert/internal/storage"
)

func startHeadlessChrome(t *testing.T) string {
	t.Helper()
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("could not connect to docker: %v", err)
	}
	pool.MaxWait = 2 * time.Minute

	tag := os.Getenv("CONVERT_E2E_CHROME_TAG")
	if tag == "" {
		tag = "latest"
	}
	res, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository:   "chromedp/headless-shell",
		Tag:          tag,
		ExposedPorts: []string{"9222/tcp"},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("could not start headless chrome: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(res) })

	hostPort := "localhost:" + res.GetPort("9222/tcp")
	if err := pool.Retry(func() error {
		resp, err := http.Get("http://" + hostPort + "/json/version")
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("chrome not ready: %d", resp.StatusCode)
		}
		return nil
	}); err != nil {
		t.Fatalf("chrome not ready: %v", err)
	}
	return "ws://" + hostPort
}

func newE2EServer(t *testing.T) *Server {
	t.Helper()
	chrome, err := render.NewChrome(render.WithRemoteURL(startHeadlessChrome(t)), render.WithStartTimeout(time.Minute))
	if err != nil {
		t.Fatalf("NewChrome: %v", err)
	}
	t.Cleanup(func() { _ = chrome.Close() })

	rasterizer, err := raster.New(raster.Config{Instances: 1, InstanceWait: 30 * time.Second})
	if err != nil {
		t.Fatalf("raster.New: %v", err)
	}
	t.Cleanup(func() { _ = rasterizer.Close() })

	dir := t.TempDir()
	areas, err := storage.NewAreas(filepath.Join(dir, "uploads"), filepath.Join(dir, "downloads"))
	if err != nil {
		t.Fatal(err)
	}
	log := logging.New(io.Discard, logging.LevelError, false)
	breaker := NewCircuitBreaker(3, time.Minute)
	reg := convert.NewRegistry(convert.Dependencies{
		Renderer:   NewGuardedRenderer(chrome, breaker),
		Rasterizer: rasterizer,
	})
	return New(Config{
		Areas:          areas,
		Registry:       reg,
		Pipeline:       convert.NewPipeline(areas, convert.PipelineConfig{Workers: 2, Timeout: time.Minute}, log),
		Breaker:        breaker,
		MaxUploadBytes: 10 << 20,
		Metrics:        NewMetrics(),
		Log:            log,
	})
}

func TestE2E_RealRenderer(t *testing.T) {
	srv := newE2EServer(t)

	var pdfBuf bytes.Buffer
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetFont("Helvetica", "", 14)
	for _, text := range []string{"First page", "Second page"} {
		doc.AddPage()
		doc.Text(20, 20, text)
	}
	if err := doc.Output(&pdfBuf); err != nil {
		t.Fatal(err)
	}

	xlsx := excelize.NewFile()
	_ = xlsx.SetSheetRow("Sheet1", "A1", &[]any{"fruit", "count"})
	_ = xlsx.SetSheetRow("Sheet1", "A2", &[]any{"apple", 3})
	var xlsxBuf bytes.Buffer
	if err := xlsx.Write(&xlsxBuf); err != nil {
		t.Fatal(err)
	}

	var docx bytes.Buffer
	if err := ooxml.WriteDocument(&docx, []string{"Rendered by Chrome", "Second paragraph"}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		path     string
		filename string
		data     []byte
		check    func(t *testing.T, body []byte)
	}{
		{"/word-to-pdf", "memo.docx", docx.Bytes(), expectPDF},
		{"/spreadsheet-to-pdf", "stock.xlsx", xlsxBuf.Bytes(), expectPDF},
		{"/pdf-to-image", "two.pdf", pdfBuf.Bytes(), func(t *testing.T, body []byte) {
			zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
			if err != nil {
				t.Fatalf("zip: %v", err)
			}
			if len(zr.File) != 2 || zr.File[0].Name != "page_1.png" || zr.File[1].Name != "page_2.png" {
				for _, f := range zr.File {
					t.Logf("entry %s", f.Name)
				}
				t.Fatalf("unexpected zip entries")
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.path[1:], func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			req := uploadRequest(t, tt.path, tt.filename, tt.data, nil).WithContext(ctx)
			rr := httpDo(srv, req)
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d, body %q", rr.Code, rr.Body.String())
			}
			tt.check(t, rr.Body.Bytes())
		})
	}
}

func expectPDF(t *testing.T, body []byte) {
	t.Helper()
	if !bytes.HasPrefix(body, []byte("%PDF-")) || len(body) < 500 {
		t.Fatalf("not a rendered PDF (%d bytes)", len(body))
	}
}
