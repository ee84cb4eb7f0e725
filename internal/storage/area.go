// Package storage owns the intake and output areas on disk: placing uploads,
// naming derived artifacts, tracking intermediates for removal and evicting
// old files.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Areas holds the two directories every conversion works in.
type Areas struct {
	Intake string // uploaded originals and intermediate markup
	Output string // converted artifacts and page-image staging
}

// NewAreas creates both directories if they are missing.
func NewAreas(intake, output string) (*Areas, error) {
	for _, dir := range []string{intake, output} {
		if err := EnsureArea(dir); err != nil {
			return nil, err
		}
	}
	return &Areas{Intake: intake, Output: output}, nil
}

// EnsureArea creates dir (and parents) if absent. It is idempotent.
func EnsureArea(dir string) error {
	if dir == "" {
		return fmt.Errorf("storage: empty area path")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: create area %s: %w", dir, err)
	}
	return nil
}

// Write copies r into area/name, replacing any existing file, and returns
// the full path and the number of bytes written.
func (a *Areas) Write(area, name string, r io.Reader) (string, int64, error) {
	path := filepath.Join(area, name)
	f, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("storage: create %s: %w", path, err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", n, fmt.Errorf("storage: write %s: %w", path, err)
	}
	return path, n, nil
}

// Open opens a produced artifact for reading.
func (a *Areas) Open(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	return f, nil
}

// Writable reports whether a probe file can be created in each area.
func (a *Areas) Writable() error {
	for _, dir := range []string{a.Intake, a.Output} {
		f, err := os.CreateTemp(dir, ".probe-*")
		if err != nil {
			return fmt.Errorf("storage: area %s not writable: %w", dir, err)
		}
		name := f.Name()
		_ = f.Close()
		_ = os.Remove(name)
	}
	return nil
}
