// Package ooxml reads and writes the small subset of Office Open XML
// packages the converters need: DOCX body paragraphs, minimal DOCX output and
// PPTX slide metadata.
package ooxml

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"
)

const (
	NSRelationships   = "http://schemas.openxmlformats.org/package/2006/relationships"
	NSContentTypes    = "http://schemas.openxmlformats.org/package/2006/content-types"
	NSWordprocessing  = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	NSOfficeDocRels   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	NSPresentationML  = "http://schemas.openxmlformats.org/presentationml/2006/main"
	RelTypeOfficeDoc  = NSOfficeDocRels + "/officeDocument"
	RelTypeSlide      = NSOfficeDocRels + "/slide"
	ContentTypeDocx   = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	ContentTypePptx   = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	contentTypeMainWP = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
)

// Relationship is one entry of a .rels part.
type Relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr,omitempty"`
}

type relationships struct {
	XMLName       xml.Name       `xml:"Relationships"`
	Relationships []Relationship `xml:"Relationship"`
}

// ReadRelationships parses relsPath from the package. A missing part yields
// an empty map.
func ReadRelationships(zr *zip.Reader, relsPath string) (map[string]Relationship, error) {
	f := findFile(zr, relsPath)
	if f == nil {
		return map[string]Relationship{}, nil
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var rels relationships
	if err := xml.NewDecoder(rc).Decode(&rels); err != nil {
		return nil, fmt.Errorf("ooxml: decode %s: %w", relsPath, err)
	}
	out := make(map[string]Relationship, len(rels.Relationships))
	for _, rel := range rels.Relationships {
		out[rel.ID] = rel
	}
	return out, nil
}

// ReadFile returns the bytes of a package part.
func ReadFile(zr *zip.Reader, name string) ([]byte, error) {
	f := findFile(zr, name)
	if f == nil {
		return nil, fmt.Errorf("ooxml: part %q not found", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// OpenPart opens a package part for streaming.
func OpenPart(zr *zip.Reader, name string) (io.ReadCloser, error) {
	f := findFile(zr, name)
	if f == nil {
		return nil, fmt.Errorf("ooxml: part %q not found", name)
	}
	return f.Open()
}

func findFile(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// ResolveTarget resolves a relationship target relative to the part that owns it.
func ResolveTarget(basePart, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Join(path.Dir(basePart), target)
}

// mainPart finds the office document part through _rels/.rels, falling back
// to the conventional location.
func mainPart(zr *zip.Reader, fallback string) string {
	rels, err := ReadRelationships(zr, "_rels/.rels")
	if err == nil {
		for _, rel := range rels {
			if rel.Type == RelTypeOfficeDoc {
				return ResolveTarget("", rel.Target)
			}
		}
	}
	return fallback
}
