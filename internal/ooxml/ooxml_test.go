package ooxml

import (
	"archive/zip"
	"bytes"
	"reflect"
	"testing"
)

func TestWriteDocumentThenReadParagraphs(t *testing.T) {
	in := []string{"First paragraph", "", "tab\there", "line one\nline two", "<escaped & safe>"}

	var buf bytes.Buffer
	if err := WriteDocument(&buf, in); err != nil {
		t.Fatalf("WriteDocument: %v", err)
	}

	got, err := ReadParagraphs(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("ReadParagraphs: %v", err)
	}
	if !reflect.DeepEqual(got, in) {
		t.Errorf("paragraphs = %q, want %q", got, in)
	}
}

func TestReadParagraphs_SkipsTableParagraphs(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
  <w:p><w:pPr><w:tabs><w:tab w:val="left" w:pos="720"/></w:tabs></w:pPr><w:r><w:t>Intro</w:t></w:r><w:r><w:t xml:space="preserve"> text</w:t></w:r></w:p>
  <w:tbl><w:tr><w:tc><w:p><w:r><w:t>cell</w:t></w:r></w:p></w:tc></w:tr></w:tbl>
  <w:p><w:r><w:t>Outro</w:t></w:r></w:p>
  <w:sectPr/>
</w:body>
</w:document>`

	data := buildZip(t, map[string]string{"word/document.xml": doc})
	got, err := ReadParagraphs(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("ReadParagraphs: %v", err)
	}
	want := []string{"Intro text", "Outro"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("paragraphs = %q, want %q", got, want)
	}
}

func TestReadParagraphs_SkipsTextBoxContent(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
  <w:p>
    <w:r><w:t>Before</w:t></w:r>
    <w:r><w:pict><w:txbxContent><w:p><w:r><w:t>boxed</w:t><w:tab/></w:r></w:p></w:txbxContent></w:pict></w:r>
    <w:r><w:t xml:space="preserve"> after</w:t></w:r>
  </w:p>
  <w:p><w:r><w:t>Next</w:t></w:r></w:p>
</w:body>
</w:document>`

	data := buildZip(t, map[string]string{"word/document.xml": doc})
	got, err := ReadParagraphs(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("ReadParagraphs: %v", err)
	}
	want := []string{"Before after", "Next"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("paragraphs = %q, want %q", got, want)
	}
}

func TestReadParagraphs_RejectsOtherPackages(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePresentation(&buf, 2, 9144000, 5143500); err != nil {
		t.Fatalf("WritePresentation: %v", err)
	}
	if _, err := ReadParagraphs(bytes.NewReader(buf.Bytes()), int64(buf.Len())); err == nil {
		t.Fatal("expected error reading a presentation as a document")
	}

	// Main part present at the default name but with the wrong root.
	data := buildZip(t, map[string]string{"word/document.xml": "<workbook/>"})
	if _, err := ReadParagraphs(bytes.NewReader(data), int64(len(data))); err == nil {
		t.Fatal("expected error for a non-document root")
	}
}

func TestReadPresentation_RejectsDocuments(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteDocument(&buf, []string{"hello"}); err != nil {
		t.Fatalf("WriteDocument: %v", err)
	}
	if _, err := ReadPresentation(bytes.NewReader(buf.Bytes()), int64(buf.Len())); err == nil {
		t.Fatal("expected error reading a document as a presentation")
	}
}

func TestReadParagraphs_NotAZip(t *testing.T) {
	data := []byte("definitely not a docx")
	if _, err := ReadParagraphs(bytes.NewReader(data), int64(len(data))); err == nil {
		t.Fatal("expected error for non-zip input")
	}
}

func TestReadParagraphs_MissingDocumentPart(t *testing.T) {
	data := buildZip(t, map[string]string{"other.xml": "<x/>"})
	if _, err := ReadParagraphs(bytes.NewReader(data), int64(len(data))); err == nil {
		t.Fatal("expected error for missing word/document.xml")
	}
}

func TestWritePresentationThenRead(t *testing.T) {
	var buf bytes.Buffer
	// 16:9 at 10in x 5.625in
	if err := WritePresentation(&buf, 3, 9144000, 5143500); err != nil {
		t.Fatalf("WritePresentation: %v", err)
	}

	p, err := ReadPresentation(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("ReadPresentation: %v", err)
	}
	want := []string{"ppt/slides/slide1.xml", "ppt/slides/slide2.xml", "ppt/slides/slide3.xml"}
	if !reflect.DeepEqual(p.Slides, want) {
		t.Errorf("slides = %v, want %v", p.Slides, want)
	}
	if p.WidthPt != 720 || p.HeightPt != 405 {
		t.Errorf("size = %vx%v, want 720x405", p.WidthPt, p.HeightPt)
	}
}

func TestReadPresentation_FallsBackToSlideParts(t *testing.T) {
	data := buildZip(t, map[string]string{
		"ppt/presentation.xml":    `<p:presentation xmlns:p="` + NSPresentationML + `"/>`,
		"ppt/slides/slide2.xml":   "<p:sld/>",
		"ppt/slides/slide1.xml":   "<p:sld/>",
		"ppt/slideLayouts/x1.xml": "<p:sldLayout/>",
	})
	p, err := ReadPresentation(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("ReadPresentation: %v", err)
	}
	if len(p.Slides) != 2 || p.Slides[0] != "ppt/slides/slide1.xml" {
		t.Errorf("slides = %v", p.Slides)
	}
	if p.WidthPt != 0 {
		t.Errorf("expected zero width without sldSz, got %v", p.WidthPt)
	}
}

func TestResolveTarget(t *testing.T) {
	tests := []struct{ base, target, want string }{
		{"ppt/presentation.xml", "slides/slide1.xml", "ppt/slides/slide1.xml"},
		{"ppt/slides/slide1.xml", "../media/image1.png", "ppt/media/image1.png"},
		{"", "word/document.xml", "word/document.xml"},
		{"ppt/presentation.xml", "/ppt/slides/slide9.xml", "ppt/slides/slide9.xml"},
	}
	for _, tt := range tests {
		if got := ResolveTarget(tt.base, tt.target); got != tt.want {
			t.Errorf("ResolveTarget(%q, %q) = %q, want %q", tt.base, tt.target, got, tt.want)
		}
	}
}

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}
