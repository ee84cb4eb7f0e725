package convert

import (
	"context"

	"github.com/go-pdf/fpdf"

	"doc-convert/internal/ooxml"
)

// presentationToPDF is a placeholder: it emits one blank page per slide at
// the deck's slide size. Slide content is not rendered.
func presentationToPDF(ctx context.Context, req *Request) error {
	f, err := openUpload(req.Upload.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fsErr("stat upload", err)
	}
	deck, err := ooxml.ReadPresentation(f, info.Size())
	if err != nil {
		return contentErr("read pptx", err)
	}

	size := fpdf.SizeType{Wd: deck.WidthPt, Ht: deck.HeightPt}
	if size.Wd <= 0 || size.Ht <= 0 {
		// A4 in points
		size = fpdf.SizeType{Wd: 595.28, Ht: 841.89}
	}
	doc := fpdf.NewCustom(&fpdf.InitType{UnitStr: "pt", Size: size})
	doc.SetAutoPageBreak(false, 0)

	pages := max(len(deck.Slides), 1)
	for range pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		doc.AddPageFormat("P", size)
	}
	if err := doc.Error(); err != nil {
		return contentErr("build pdf", err)
	}

	return writeFile(req.OutputPath, "write pdf", doc.Output)
}
