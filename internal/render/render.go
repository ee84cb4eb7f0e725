// Package render turns HTML intermediates into PDF documents using a
// long-lived headless Chrome.
package render

import (
	"context"
	"errors"
)

// Renderer prints an HTML file to PDF bytes.
type Renderer interface {
	RenderFile(ctx context.Context, htmlPath string) ([]byte, error)
}

// ErrClosed is returned when the renderer has been shut down.
var ErrClosed = errors.New("render: renderer is closed")
