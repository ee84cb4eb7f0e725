package convert

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"

	"doc-convert/internal/ooxml"
	"doc-convert/internal/render"
	"doc-convert/internal/storage"
)

// wordToPDF renders DOCX body paragraphs through an HTML intermediate.
type wordToPDF struct {
	renderer render.Renderer
}

func (s *wordToPDF) Convert(ctx context.Context, req *Request) error {
	paragraphs, err := readDocxParagraphs(req.Upload.Path)
	if err != nil {
		return err
	}
	doc := render.ParagraphDocument(req.Upload.Name, paragraphs)
	return renderIntermediate(ctx, s.renderer, req, func(w io.Writer) error {
		return render.WriteDocument(w, doc)
	})
}

// renderIntermediate writes the HTML intermediate into the intake area,
// prints it and stores the PDF as the output.
func renderIntermediate(ctx context.Context, r render.Renderer, req *Request, write func(io.Writer) error) error {
	if r == nil {
		return &Error{Kind: KindRendererUnavailable, Op: "render pdf", Err: errors.New("no renderer configured")}
	}
	htmlPath := req.Workspace.IntakePath(storage.WithExtension(req.Upload.Name, "html"))
	req.Tracker.Track(htmlPath)
	if err := writeFile(htmlPath, "write html", write); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := r.RenderFile(ctx, htmlPath)
	if err != nil {
		return rendererErr(err)
	}
	return writeFile(req.OutputPath, "write pdf", func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

func readDocxParagraphs(path string) ([]string, error) {
	f, err := openUpload(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, fsErr("stat upload", err)
	}
	paragraphs, err := ooxml.ReadParagraphs(f, info.Size())
	if err != nil {
		return nil, contentErr("read docx", err)
	}
	return paragraphs, nil
}

// pdfToWord emits one paragraph per page that has extractable text, in page
// order. A failure on any page fails the conversion.
func pdfToWord(ctx context.Context, req *Request) error {
	data, err := readUpload(req.Upload.Path)
	if err != nil {
		return err
	}
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return contentErr("open pdf", err)
	}

	var paragraphs []string
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return contentErr(fmt.Sprintf("extract text from page %d", i), err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		paragraphs = append(paragraphs, text)
	}

	return writeFile(req.OutputPath, "write docx", func(w io.Writer) error {
		return ooxml.WriteDocument(w, paragraphs)
	})
}

// documentToCSV writes each body paragraph as a single-column row.
func documentToCSV(ctx context.Context, req *Request) error {
	paragraphs, err := readDocxParagraphs(req.Upload.Path)
	if err != nil {
		return err
	}
	return writeFile(req.OutputPath, "write csv", func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"paragraph"}); err != nil {
			return err
		}
		for _, p := range paragraphs {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := cw.Write([]string{p}); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

// csvToDocument writes one paragraph per data row holding the row's
// header-to-value mapping.
func csvToDocument(ctx context.Context, req *Request) error {
	raw, err := readUpload(req.Upload.Path)
	if err != nil {
		return err
	}
	text, err := decodeText(raw)
	if err != nil {
		return contentErr("decode csv", err)
	}

	cr := csv.NewReader(strings.NewReader(text))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	records, err := cr.ReadAll()
	if err != nil {
		return contentErr("parse csv", err)
	}
	if len(records) == 0 {
		return contentErr("parse csv", errors.New("no header row"))
	}

	header := records[0]
	paragraphs := make([]string, 0, len(records)-1)
	for _, row := range records[1:] {
		if err := ctx.Err(); err != nil {
			return err
		}
		paragraphs = append(paragraphs, rowMapping(header, row))
	}

	return writeFile(req.OutputPath, "write docx", func(w io.Writer) error {
		return ooxml.WriteDocument(w, paragraphs)
	})
}

// rowMapping formats row as {col: value, ...} in header order. Missing
// cells are empty and unnamed columns are numbered from 1.
func rowMapping(header, row []string) string {
	var b strings.Builder
	b.WriteByte('{')
	for i := range max(len(header), len(row)) {
		if i > 0 {
			b.WriteString(", ")
		}
		name := ""
		if i < len(header) {
			name = strings.TrimSpace(header[i])
		}
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		b.WriteString(name)
		b.WriteString(": ")
		if i < len(row) {
			b.WriteString(row[i])
		}
	}
	b.WriteByte('}')
	return b.String()
}

// decodeText returns data as UTF-8. A BOM wins, then plain UTF-8, then the
// most confident charset reported by the detector.
func decodeText(data []byte) (string, error) {
	if enc := bomEncoding(data); enc != nil {
		out, err := enc.NewDecoder().Bytes(data)
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
	if utf8.Valid(data) {
		return string(data), nil
	}

	results, err := chardet.NewTextDetector().DetectAll(data)
	if err != nil {
		return "", fmt.Errorf("detect charset: %w", err)
	}
	for _, r := range results {
		enc, err := htmlindex.Get(r.Charset)
		if err != nil || enc == nil {
			continue
		}
		out, err := enc.NewDecoder().Bytes(data)
		if err == nil {
			return string(out), nil
		}
	}
	return "", errors.New("unrecognised text encoding")
}

func bomEncoding(data []byte) encoding.Encoding {
	switch {
	case bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}):
		return unicode.UTF8BOM
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}):
		return unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM)
	case bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		return unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM)
	}
	return nil
}
