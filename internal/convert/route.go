package convert

import (
	"context"

	"doc-convert/internal/raster"
	"doc-convert/internal/render"
	"doc-convert/internal/storage"
)

// Strategy performs one format-pair conversion. It reads req.Upload.Path and
// writes req.OutputPath. Intermediates must be registered on req.Tracker.
type Strategy interface {
	Convert(ctx context.Context, req *Request) error
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(ctx context.Context, req *Request) error

func (f StrategyFunc) Convert(ctx context.Context, req *Request) error {
	return f(ctx, req)
}

// Rasterizer renders PDF pages to images.
type Rasterizer interface {
	Rasterize(ctx context.Context, data []byte, fn raster.PageFunc) error
}

// Upload is the stored client file.
type Upload struct {
	OriginalName string
	Name         string // sanitized, no workspace token
	Path         string
	Size         int64
	MIME         string
}

// Request is everything a strategy needs for one conversion.
type Request struct {
	Route      string
	Upload     *Upload
	Target     Target
	OutputName string
	OutputPath string
	Workspace  *storage.Workspace
	Tracker    *storage.Tracker
}

// Artifact is a finished conversion result.
type Artifact struct {
	Path        string
	Name        string // download name shown to the client
	ContentType string
	Size        int64
}

// Route binds a URL path to a source format, its targets and a strategy.
type Route struct {
	Name     string
	Source   Source
	Targets  []Target
	Strategy Strategy
}

// Target resolves the requested output format. Routes with a single
// target ignore format.
func (r *Route) Target(format string) (Target, error) {
	if len(r.Targets) == 1 {
		return r.Targets[0], nil
	}
	return selectTarget(r.Targets, format)
}

// Alias maps an older path onto a route, optionally pinning the format.
type Alias struct {
	Path   string
	Route  string
	Format string
}

// LegacyAliases keeps the original underscore-style paths working.
var LegacyAliases = []Alias{
	{Path: "word_to_pdf", Route: "word-to-pdf"},
	{Path: "pdf_to_word", Route: "pdf-to-word"},
	{Path: "img_to_pdf", Route: "image-to-pdf"},
	{Path: "pdf_to_img", Route: "pdf-to-image"},
	{Path: "ppt_to_pdf", Route: "presentation-to-pdf"},
	{Path: "excel_to_pdf", Route: "spreadsheet-to-pdf"},
	{Path: "csv_to_doc", Route: "csv-to-document"},
	{Path: "doc_to_csv", Route: "document-to-csv"},
	{Path: "jpg_to_png", Route: "image-to-image", Format: "png"},
}

// Dependencies are the long-lived engines shared by strategies.
type Dependencies struct {
	Renderer   render.Renderer
	Rasterizer Rasterizer
}

// Registry holds every conversion route in a fixed order.
type Registry struct {
	routes []*Route
	byName map[string]*Route
}

// NewRegistry builds the registry of all supported conversions.
func NewRegistry(deps Dependencies) *Registry {
	reg := &Registry{byName: make(map[string]*Route)}
	for _, r := range []*Route{
		{Name: "word-to-pdf", Source: sourceDOCX, Targets: []Target{targetPDF}, Strategy: &wordToPDF{renderer: deps.Renderer}},
		{Name: "pdf-to-word", Source: sourcePDF, Targets: []Target{targetDOCX}, Strategy: StrategyFunc(pdfToWord)},
		{Name: "image-to-pdf", Source: sourceImage, Targets: []Target{targetPDF}, Strategy: StrategyFunc(imageToPDF)},
		{Name: "pdf-to-image", Source: sourcePDF, Targets: []Target{targetZIP}, Strategy: &pdfToImages{rasterizer: deps.Rasterizer}},
		{Name: "presentation-to-pdf", Source: sourcePPTX, Targets: []Target{targetPDF}, Strategy: StrategyFunc(presentationToPDF)},
		{Name: "spreadsheet-to-pdf", Source: sourceSheet, Targets: []Target{targetPDF}, Strategy: &spreadsheetToPDF{renderer: deps.Renderer}},
		{Name: "csv-to-document", Source: sourceCSV, Targets: []Target{targetDOCX}, Strategy: StrategyFunc(csvToDocument)},
		{Name: "document-to-csv", Source: sourceDOCX, Targets: []Target{targetCSV}, Strategy: StrategyFunc(documentToCSV)},
		{
			Name:     "image-to-image",
			Source:   sourceImage,
			Targets:  []Target{targetPNG, targetJPEG, targetGIF, targetBMP, targetTIFF},
			Strategy: StrategyFunc(imageToImage),
		},
	} {
		reg.routes = append(reg.routes, r)
		reg.byName[r.Name] = r
	}
	return reg
}

// Routes returns the routes in registration order.
func (r *Registry) Routes() []*Route {
	return r.routes
}

// Lookup finds a route by name.
func (r *Registry) Lookup(name string) (*Route, bool) {
	route, ok := r.byName[name]
	return route, ok
}
