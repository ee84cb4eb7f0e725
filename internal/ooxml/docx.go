package ooxml

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// ReadParagraphs returns the text of every paragraph that is a direct child
// of the document body, in order. Paragraphs inside tables, text boxes and
// headers are not included, nor is text box content anchored inside a body
// paragraph. Tabs become "\t" and line breaks "\n". A main part whose root
// is not w:document is rejected.
func ReadParagraphs(r io.ReaderAt, size int64) ([]string, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("ooxml: open DOCX: %w", err)
	}

	docPart := mainPart(zr, "word/document.xml")
	rc, err := OpenPart(zr, docPart)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	var (
		stack      []string
		paragraphs []string
		current    *strings.Builder
		inText     bool
		inTextBox  int
		sawRoot    bool
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ooxml: parse %s: %w", docPart, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			local := t.Name.Local
			if len(stack) == 0 {
				if local != "document" {
					return nil, fmt.Errorf("ooxml: %s is a %s part, not a word document", docPart, local)
				}
				sawRoot = true
			}
			if local == "txbxContent" {
				inTextBox++
			}
			if local == "p" && len(stack) >= 2 && stack[len(stack)-1] == "body" && stack[len(stack)-2] == "document" {
				current = &strings.Builder{}
			}
			if current != nil && inTextBox == 0 {
				switch local {
				case "t":
					inText = true
				case "tab":
					// w:tab inside w:tabs (paragraph properties) is a tab stop, not text.
					if len(stack) > 0 && stack[len(stack)-1] == "r" {
						current.WriteByte('\t')
					}
				case "br", "cr":
					current.WriteByte('\n')
				}
			}
			stack = append(stack, local)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			switch t.Name.Local {
			case "txbxContent":
				inTextBox--
			case "t":
				inText = false
			case "p":
				if current != nil && len(stack) == 2 {
					paragraphs = append(paragraphs, current.String())
					current = nil
				}
			}
		case xml.CharData:
			if current != nil && inText && inTextBox == 0 {
				current.Write(t)
			}
		}
	}

	if !sawRoot {
		return nil, fmt.Errorf("ooxml: %s has no root element", docPart)
	}
	return paragraphs, nil
}

// WriteDocument writes a minimal DOCX package containing one paragraph per
// entry. Newlines inside an entry become line breaks and tabs become tab
// characters within the same paragraph.
func WriteDocument(w io.Writer, paragraphs []string) error {
	zw := zip.NewWriter(w)

	parts := []struct {
		name string
		body []byte
	}{
		{"[Content_Types].xml", []byte(contentTypesXML)},
		{"_rels/.rels", []byte(rootRelsXML)},
		{"word/document.xml", documentXML(paragraphs)},
	}
	for _, p := range parts {
		fw, err := zw.Create(p.name)
		if err != nil {
			return fmt.Errorf("ooxml: create %s: %w", p.name, err)
		}
		if _, err := fw.Write(p.body); err != nil {
			return fmt.Errorf("ooxml: write %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("ooxml: finish DOCX: %w", err)
	}
	return nil
}

const contentTypesXML = xml.Header + `<Types xmlns="` + NSContentTypes + `">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/word/document.xml" ContentType="` + contentTypeMainWP + `"/>` +
	`</Types>`

const rootRelsXML = xml.Header + `<Relationships xmlns="` + NSRelationships + `">` +
	`<Relationship Id="rId1" Type="` + RelTypeOfficeDoc + `" Target="word/document.xml"/>` +
	`</Relationships>`

func documentXML(paragraphs []string) []byte {
	var b bytes.Buffer
	b.WriteString(xml.Header)
	b.WriteString(`<w:document xmlns:w="` + NSWordprocessing + `"><w:body>`)
	for _, p := range paragraphs {
		b.WriteString("<w:p>")
		if p != "" {
			b.WriteString("<w:r>")
			writeRunContent(&b, p)
			b.WriteString("</w:r>")
		}
		b.WriteString("</w:p>")
	}
	b.WriteString("<w:sectPr/></w:body></w:document>")
	return b.Bytes()
}

func writeRunContent(b *bytes.Buffer, text string) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var seg strings.Builder
	flush := func() {
		if seg.Len() == 0 {
			return
		}
		b.WriteString(`<w:t xml:space="preserve">`)
		_ = xml.EscapeText(b, []byte(seg.String()))
		b.WriteString("</w:t>")
		seg.Reset()
	}
	for _, r := range text {
		switch r {
		case '\n', '\r':
			flush()
			b.WriteString("<w:br/>")
		case '\t':
			flush()
			b.WriteString("<w:tab/>")
		default:
			seg.WriteRune(r)
		}
	}
	flush()
}
