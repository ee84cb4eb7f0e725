package convert

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimePPTX = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeXLS  = "application/vnd.ms-excel"
	mimeOLE  = "application/x-ole-storage"
	mimeZIP  = "application/zip"
	mimePDF  = "application/pdf"
)

// Source describes what a route accepts. Office formats also accept a bare
// zip (or OLE container for XLS) because content sniffing cannot always see
// far enough into the archive; the reader library has the final word.
type Source struct {
	Name       string
	Extensions []string
	MIMEs      []string
}

// containerMIMEs are generic archive types that more specific formats
// descend from.
var containerMIMEs = []string{mimeZIP, mimeOLE}

// Accepts reports whether the sniffed type is one the source allows. A
// parent type also counts, except for the generic containers: those match
// only when sniffing found nothing more specific, so a PPTX is never taken
// for a DOCX just because both are zip archives.
func (s Source) Accepts(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		for _, allowed := range s.MIMEs {
			if !m.Is(allowed) {
				continue
			}
			if m != mt && isContainer(allowed) {
				continue
			}
			return true
		}
	}
	return false
}

func isContainer(mime string) bool {
	for _, c := range containerMIMEs {
		if mime == c {
			return true
		}
	}
	return false
}

// Target describes one output format of a route.
type Target struct {
	Format      string
	Ext         string
	ContentType string
}

var (
	sourceDOCX = Source{Name: "docx", Extensions: []string{".docx"}, MIMEs: []string{mimeDOCX, mimeZIP}}
	sourcePDF  = Source{Name: "pdf", Extensions: []string{".pdf"}, MIMEs: []string{mimePDF}}
	sourcePPTX = Source{Name: "pptx", Extensions: []string{".pptx"}, MIMEs: []string{mimePPTX, mimeZIP}}
	sourceCSV  = Source{
		Name:       "csv",
		Extensions: []string{".csv", ".txt"},
		MIMEs:      []string{"text/csv", "text/tab-separated-values", "text/plain"},
	}
	sourceSheet = Source{
		Name:       "spreadsheet",
		Extensions: []string{".xlsx", ".xls"},
		MIMEs:      []string{mimeXLSX, mimeXLS, mimeZIP, mimeOLE},
	}
	sourceImage = Source{
		Name:       "image",
		Extensions: []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff", ".webp"},
		MIMEs:      []string{"image/jpeg", "image/png", "image/gif", "image/bmp", "image/tiff", "image/webp"},
	}
)

var (
	targetPDF  = Target{Format: "pdf", Ext: "pdf", ContentType: mimePDF}
	targetDOCX = Target{Format: "docx", Ext: "docx", ContentType: mimeDOCX}
	targetCSV  = Target{Format: "csv", Ext: "csv", ContentType: "text/csv; charset=utf-8"}
	targetZIP  = Target{Format: "zip", Ext: "zip", ContentType: mimeZIP}

	targetPNG  = Target{Format: "png", Ext: "png", ContentType: "image/png"}
	targetJPEG = Target{Format: "jpeg", Ext: "jpg", ContentType: "image/jpeg"}
	targetGIF  = Target{Format: "gif", Ext: "gif", ContentType: "image/gif"}
	targetBMP  = Target{Format: "bmp", Ext: "bmp", ContentType: "image/bmp"}
	targetTIFF = Target{Format: "tiff", Ext: "tiff", ContentType: "image/tiff"}
)

var formatAliases = map[string]string{
	"jpg": "jpeg",
	"tif": "tiff",
}

// selectTarget picks the target named by format from targets. An empty
// format selects the first (default) target.
func selectTarget(targets []Target, format string) (Target, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		return targets[0], nil
	}
	if alias, ok := formatAliases[format]; ok {
		format = alias
	}
	var names []string
	for _, t := range targets {
		if t.Format == format {
			return t, nil
		}
		names = append(names, t.Format)
	}
	return Target{}, fmt.Errorf("unsupported output format %q (want one of %s)", format, strings.Join(names, ", "))
}

func isLegacyExcel(mime string) bool {
	return strings.HasPrefix(mime, mimeXLS) || strings.HasPrefix(mime, mimeOLE)
}
