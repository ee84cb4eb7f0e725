package storage

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	maxNameLen   = 255
	fallbackName = "unnamed"
)

var windowsDeviceNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true,
	"LPT1": true, "LPT2": true, "LPT3": true,
}

// Sanitize reduces a client-supplied filename to a name that is safe to join
// onto an area path. The result is deterministic and never empty.
func Sanitize(raw string) string {
	// Clients (old IE in particular) send full paths; keep the last element.
	raw = strings.ReplaceAll(raw, "\\", "/")
	if i := strings.LastIndex(raw, "/"); i >= 0 {
		raw = raw[i+1:]
	}

	var b strings.Builder
	lastUnderscore := false
	for _, r := range norm.NFKD.String(raw) {
		switch {
		case r == 0:
			continue
		case r > unicode.MaxASCII:
			// Combining marks left by NFKD and anything non-ASCII are dropped.
			continue
		case unicode.IsSpace(r):
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
			lastUnderscore = r == '_'
		}
	}

	name := strings.Trim(b.String(), "._")

	if base := strings.ToUpper(strings.SplitN(name, ".", 2)[0]); windowsDeviceNames[base] {
		name = "_" + name
	}

	if len(name) > maxNameLen {
		ext := filepath.Ext(name)
		if len(ext) >= maxNameLen {
			ext = ""
		}
		name = name[:maxNameLen-len(ext)] + ext
	}

	if name == "" {
		return fallbackName
	}
	return name
}

// WithExtension replaces everything after the last "." in name with ext, or
// appends "."+ext when name has no dot.
func WithExtension(name, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[:i+1] + ext
	}
	return name + "." + ext
}

// Base returns name without its final extension.
func Base(name string) string {
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[:i]
	}
	return name
}
