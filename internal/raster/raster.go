// Package raster renders PDF pages to images with PDFium compiled to
// WebAssembly, so no native library or cgo is required.
package raster

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strconv"
	"time"

	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/klippa-app/go-pdfium/webassembly"
)

// DefaultDPI is PDFium's native resolution, one pixel per point.
const DefaultDPI = 72

// ErrNoPages is returned for documents that open but contain no pages.
var ErrNoPages = errors.New("raster: document has no pages")

// PageFunc receives each rendered page in document order. page counts from 1.
// img is only valid until PageFunc returns.
type PageFunc func(page, total int, img image.Image) error

// Config tunes the PDFium instance pool.
type Config struct {
	Instances    int
	InstanceWait time.Duration
	DPI          int
}

// Rasterizer owns a pool of PDFium instances.
type Rasterizer struct {
	pool pdfium.Pool
	wait time.Duration
	dpi  int
}

// New starts the PDFium pool.
func New(cfg Config) (*Rasterizer, error) {
	if cfg.Instances <= 0 {
		cfg.Instances = 1
	}
	if cfg.InstanceWait <= 0 {
		cfg.InstanceWait = 30 * time.Second
	}
	if cfg.DPI <= 0 {
		cfg.DPI = DefaultDPI
	}

	pool, err := webassembly.Init(webassembly.Config{
		MinIdle:  1,
		MaxIdle:  cfg.Instances,
		MaxTotal: cfg.Instances,
	})
	if err != nil {
		return nil, fmt.Errorf("raster: init pdfium: %w", err)
	}
	return &Rasterizer{pool: pool, wait: cfg.InstanceWait, dpi: cfg.DPI}, nil
}

// Close tears down the pool.
func (r *Rasterizer) Close() error {
	return r.pool.Close()
}

// Rasterize renders every page of the PDF in data and hands each image to
// fn. The context is checked between pages.
func (r *Rasterizer) Rasterize(ctx context.Context, data []byte, fn PageFunc) error {
	wait := r.wait
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < wait {
			wait = left
		}
	}
	if wait <= 0 {
		return ctx.Err()
	}

	instance, err := r.pool.GetInstance(wait)
	if err != nil {
		return fmt.Errorf("raster: get pdfium instance: %w", err)
	}
	defer instance.Close()

	doc, err := instance.OpenDocument(&requests.OpenDocument{File: &data})
	if err != nil {
		return fmt.Errorf("raster: open pdf: %w", err)
	}
	defer instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{Document: doc.Document})

	count, err := instance.FPDF_GetPageCount(&requests.FPDF_GetPageCount{Document: doc.Document})
	if err != nil {
		return fmt.Errorf("raster: page count: %w", err)
	}
	if count.PageCount == 0 {
		return ErrNoPages
	}

	for i := 0; i < count.PageCount; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		rendered, err := instance.RenderPageInDPI(&requests.RenderPageInDPI{
			DPI: r.dpi,
			Page: requests.Page{
				ByIndex: &requests.PageByIndex{Document: doc.Document, Index: i},
			},
		})
		if err != nil {
			return fmt.Errorf("raster: render page %d: %w", i+1, err)
		}
		err = fn(i+1, count.PageCount, rendered.Result.Image)
		rendered.Cleanup()
		if err != nil {
			return err
		}
	}
	return nil
}

// PageName names page n of total as page_N.png, zero-padded to the width of
// total so lexical order matches page order.
func PageName(n, total int) string {
	width := len(strconv.Itoa(total))
	return fmt.Sprintf("page_%0*d.png", width, n)
}
