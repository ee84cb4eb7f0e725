package raster

import (
	"bytes"
	"context"
	"errors"
	"image"
	"testing"

	"github.com/go-pdf/fpdf"
)

func TestPageName(t *testing.T) {
	tests := []struct {
		n, total int
		want     string
	}{
		{1, 1, "page_1.png"},
		{3, 9, "page_3.png"},
		{3, 10, "page_03.png"},
		{10, 10, "page_10.png"},
		{7, 120, "page_007.png"},
	}
	for _, tt := range tests {
		if got := PageName(tt.n, tt.total); got != tt.want {
			t.Errorf("PageName(%d, %d) = %q, want %q", tt.n, tt.total, got, tt.want)
		}
	}
}

func samplePDF(t *testing.T, pages int) []byte {
	t.Helper()
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetFont("Helvetica", "", 14)
	for i := 0; i < pages; i++ {
		pdf.AddPage()
		pdf.Cell(100, 20, "page")
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatalf("fpdf output: %v", err)
	}
	return buf.Bytes()
}

func newRasterizer(t *testing.T) *Rasterizer {
	t.Helper()
	r, err := New(Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRasterize_PagesInOrder(t *testing.T) {
	r := newRasterizer(t)

	var seen []int
	err := r.Rasterize(context.Background(), samplePDF(t, 3), func(page, total int, img image.Image) error {
		if total != 3 {
			t.Errorf("total = %d, want 3", total)
		}
		b := img.Bounds()
		// A4 at 72 DPI is 595.28 x 841.89 points
		if abs(b.Dx()-595) > 1 || abs(b.Dy()-842) > 1 {
			t.Errorf("page %d size = %dx%d, want about 595x842", page, b.Dx(), b.Dy())
		}
		seen = append(seen, page)
		return nil
	})
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	if len(seen) != 3 || seen[0] != 1 || seen[2] != 3 {
		t.Errorf("pages = %v, want [1 2 3]", seen)
	}
}

func TestRasterize_CorruptInput(t *testing.T) {
	r := newRasterizer(t)
	err := r.Rasterize(context.Background(), []byte("%PDF-1.4 garbage"), func(int, int, image.Image) error {
		t.Fatal("callback must not run")
		return nil
	})
	if err == nil {
		t.Fatal("expected error for corrupt pdf")
	}
}

func TestRasterize_StopsOnCallbackError(t *testing.T) {
	r := newRasterizer(t)
	stop := errors.New("stop")
	calls := 0
	err := r.Rasterize(context.Background(), samplePDF(t, 4), func(int, int, image.Image) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) {
		t.Errorf("err = %v, want stop", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRasterize_CancelledContext(t *testing.T) {
	r := newRasterizer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := r.Rasterize(ctx, samplePDF(t, 2), func(int, int, image.Image) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
