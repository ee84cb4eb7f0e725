package convert

import (
	"archive/zip"
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/xuri/excelize/v2"

	"doc-convert/internal/logging"
	"doc-convert/internal/ooxml"
	"doc-convert/internal/raster"
	"doc-convert/internal/storage"
)

// fakeRenderer records the HTML it was asked to print and returns a tiny
// PDF-looking payload.
type fakeRenderer struct {
	mu    sync.Mutex
	html  []string
	paths []string
	err   error
}

func (f *fakeRenderer) RenderFile(ctx context.Context, htmlPath string) ([]byte, error) {
	data, err := os.ReadFile(htmlPath)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.html = append(f.html, string(data))
	f.paths = append(f.paths, htmlPath)
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.4\n% fake\n%%EOF\n"), nil
}

// fakeRasterizer hands out small grey pages without touching PDFium.
type fakeRasterizer struct {
	pages int
	err   error
}

func (f *fakeRasterizer) Rasterize(ctx context.Context, data []byte, fn raster.PageFunc) error {
	if f.err != nil {
		return f.err
	}
	for i := 1; i <= f.pages; i++ {
		img := image.NewGray(image.Rect(0, 0, 4, 6))
		for p := range img.Pix {
			img.Pix[p] = uint8(i)
		}
		if err := fn(i, f.pages, img); err != nil {
			return err
		}
	}
	return nil
}

type testEnv struct {
	areas    *storage.Areas
	pipeline *Pipeline
	registry *Registry
	renderer *fakeRenderer
}

func newTestEnv(t *testing.T, cfg PipelineConfig) *testEnv {
	t.Helper()
	root := t.TempDir()
	areas, err := storage.NewAreas(root+"/uploads", root+"/downloads")
	if err != nil {
		t.Fatalf("NewAreas: %v", err)
	}
	if cfg.Workers == 0 {
		cfg.Workers = 2
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	r := &fakeRenderer{}
	return &testEnv{
		areas:    areas,
		pipeline: NewPipeline(areas, cfg, logging.New(io.Discard, logging.LevelError, false)),
		registry: NewRegistry(Dependencies{Renderer: r, Rasterizer: &fakeRasterizer{pages: 3}}),
		renderer: r,
	}
}

func (e *testEnv) route(t *testing.T, name string) *Route {
	t.Helper()
	r, ok := e.registry.Lookup(name)
	if !ok {
		t.Fatalf("route %q not registered", name)
	}
	return r
}

func (e *testEnv) run(t *testing.T, route, filename string, data []byte, format string) (*Artifact, error) {
	t.Helper()
	return e.pipeline.Run(context.Background(), e.route(t, route), Input{
		Filename: filename,
		Body:     bytes.NewReader(data),
		Format:   format,
	})
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir %s: %v", dir, err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func docxFixture(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := ooxml.WriteDocument(&buf, paragraphs); err != nil {
		t.Fatalf("WriteDocument: %v", err)
	}
	return buf.Bytes()
}

func pptxFixture(t *testing.T, slides int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := ooxml.WritePresentation(&buf, slides, 9144000, 6858000); err != nil {
		t.Fatalf("WritePresentation: %v", err)
	}
	return buf.Bytes()
}

// pdfFixture writes one page per entry; empty entries become blank pages.
func pdfFixture(t *testing.T, pages ...string) []byte {
	t.Helper()
	doc := fpdf.New("P", "pt", "A4", "")
	doc.SetFont("Helvetica", "", 16)
	for _, text := range pages {
		doc.AddPage()
		if text != "" {
			doc.Text(72, 72, text)
		}
	}
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		t.Fatalf("fpdf output: %v", err)
	}
	return buf.Bytes()
}

// pngFixture is a w x h image with a transparent left half.
func pngFixture(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x >= w/2 {
				img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 30, B: 30, A: 255})
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func xlsxFixture(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf.Bytes()
}

// zipFixture is a zip holding a single file.
func zipFixture(t *testing.T, name, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	fw, err := zw.Create(name)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte(body)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}
