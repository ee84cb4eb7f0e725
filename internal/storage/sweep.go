package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// SweepResult summarises one retention pass.
type SweepResult struct {
	Removed int
	Bytes   int64
	Errors  []error
}

// Sweep removes entries directly under each area whose modification time is
// before cutoff. Page-image staging directories are removed as a whole.
func (a *Areas) Sweep(cutoff time.Time) SweepResult {
	var res SweepResult
	for _, dir := range []string{a.Intake, a.Output} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			res.Errors = append(res.Errors, err)
			continue
		}
		for _, e := range entries {
			info, err := e.Info()
			if err != nil {
				if !errors.Is(err, fs.ErrNotExist) {
					res.Errors = append(res.Errors, err)
				}
				continue
			}
			if !info.ModTime().Before(cutoff) {
				continue
			}
			path := filepath.Join(dir, e.Name())
			if err := os.RemoveAll(path); err != nil {
				res.Errors = append(res.Errors, err)
				continue
			}
			res.Removed++
			if !info.IsDir() {
				res.Bytes += info.Size()
			}
		}
	}
	return res
}
