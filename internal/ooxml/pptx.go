package ooxml

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"
)

// emuPerPoint converts EMU (English Metric Units) to PDF points.
const emuPerPoint = 12700

// Presentation is the slide metadata needed to lay out one output page per slide.
type Presentation struct {
	Slides []string // slide part names in presentation order
	// Slide size in points; zero when presentation.xml has no sldSz.
	WidthPt  float64
	HeightPt float64
}

type presentationXML struct {
	XMLName  xml.Name
	SlideIDs []struct {
		RID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sldIdLst>sldId"`
	SlideSize struct {
		CX int64 `xml:"cx,attr"`
		CY int64 `xml:"cy,attr"`
	} `xml:"sldSz"`
}

// ReadPresentation returns slide order and slide size from a PPTX package.
// A main part whose root is not p:presentation is rejected.
func ReadPresentation(r io.ReaderAt, size int64) (*Presentation, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("ooxml: open PPTX: %w", err)
	}

	presPart := mainPart(zr, "ppt/presentation.xml")
	data, err := ReadFile(zr, presPart)
	if err != nil {
		return nil, err
	}

	var px presentationXML
	if err := xml.NewDecoder(bytes.NewReader(data)).Decode(&px); err != nil {
		return nil, fmt.Errorf("ooxml: parse %s: %w", presPart, err)
	}
	if px.XMLName.Local != "presentation" {
		return nil, fmt.Errorf("ooxml: %s is a %s part, not a presentation", presPart, px.XMLName.Local)
	}

	relsPath := relsPathFor(presPart)
	rels, err := ReadRelationships(zr, relsPath)
	if err != nil {
		return nil, err
	}

	p := &Presentation{
		WidthPt:  float64(px.SlideSize.CX) / emuPerPoint,
		HeightPt: float64(px.SlideSize.CY) / emuPerPoint,
	}
	for _, id := range px.SlideIDs {
		if rel, ok := rels[id.RID]; ok && rel.Type == RelTypeSlide {
			p.Slides = append(p.Slides, ResolveTarget(presPart, rel.Target))
		}
	}

	// Packages written by some tools omit sldIdLst; count slide parts instead.
	if len(p.Slides) == 0 {
		for _, f := range zr.File {
			if strings.HasPrefix(f.Name, "ppt/slides/slide") && strings.HasSuffix(f.Name, ".xml") {
				p.Slides = append(p.Slides, f.Name)
			}
		}
		sort.Strings(p.Slides)
	}

	return p, nil
}

func relsPathFor(part string) string {
	i := strings.LastIndex(part, "/")
	if i < 0 {
		return "_rels/" + part + ".rels"
	}
	return part[:i] + "/_rels/" + part[i+1:] + ".rels"
}

// WritePresentation writes a bare PPTX package with n empty slides of the
// given size in EMU. It carries just enough structure for ReadPresentation
// and is used to build fixtures.
func WritePresentation(w io.Writer, n int, cx, cy int64) error {
	zw := zip.NewWriter(w)

	var ct, presRels, ids strings.Builder
	ct.WriteString(xml.Header + `<Types xmlns="` + NSContentTypes + `">` +
		`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
		`<Default Extension="xml" ContentType="application/xml"/>` +
		`<Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/>`)
	presRels.WriteString(xml.Header + `<Relationships xmlns="` + NSRelationships + `">`)

	for i := 1; i <= n; i++ {
		fmt.Fprintf(&ct, `<Override PartName="/ppt/slides/slide%d.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slide+xml"/>`, i)
		fmt.Fprintf(&presRels, `<Relationship Id="rId%d" Type="%s" Target="slides/slide%d.xml"/>`, i, RelTypeSlide, i)
		fmt.Fprintf(&ids, `<p:sldId id="%d" r:id="rId%d"/>`, 255+i, i)
	}
	ct.WriteString(`</Types>`)
	presRels.WriteString(`</Relationships>`)

	parts := map[string]string{
		"[Content_Types].xml": ct.String(),
		"_rels/.rels": xml.Header + `<Relationships xmlns="` + NSRelationships + `">` +
			`<Relationship Id="rId1" Type="` + RelTypeOfficeDoc + `" Target="ppt/presentation.xml"/></Relationships>`,
		"ppt/_rels/presentation.xml.rels": presRels.String(),
		"ppt/presentation.xml": fmt.Sprintf(xml.Header+`<p:presentation xmlns:p="%s" xmlns:r="%s">`+
			`<p:sldIdLst>%s</p:sldIdLst><p:sldSz cx="%d" cy="%d"/></p:presentation>`,
			NSPresentationML, NSOfficeDocRels, ids.String(), cx, cy),
	}
	for i := 1; i <= n; i++ {
		parts[fmt.Sprintf("ppt/slides/slide%d.xml", i)] = xml.Header +
			`<p:sld xmlns:p="` + NSPresentationML + `"><p:cSld><p:spTree/></p:cSld></p:sld>`
	}

	names := make([]string, 0, len(parts))
	for name := range parts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fw, err := zw.Create(name)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(fw, parts[name]); err != nil {
			return err
		}
	}
	return zw.Close()
}
