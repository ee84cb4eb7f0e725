package storage

import (
	"io"
	"path/filepath"

	"github.com/google/uuid"
)

// Workspace scopes every path a single request creates under a unique token,
// so concurrent uploads with the same client filename never share a file.
type Workspace struct {
	areas *Areas
	token string
}

// NewWorkspace returns a workspace with a fresh random token.
func (a *Areas) NewWorkspace() *Workspace {
	return &Workspace{areas: a, token: uuid.NewString()}
}

// Token returns the workspace token.
func (w *Workspace) Token() string {
	return w.token
}

func (w *Workspace) scoped(name string) string {
	return w.token + "_" + name
}

// IntakePath returns the intake-area path for name within this workspace.
func (w *Workspace) IntakePath(name string) string {
	return filepath.Join(w.areas.Intake, w.scoped(name))
}

// OutputPath returns the output-area path for name within this workspace.
func (w *Workspace) OutputPath(name string) string {
	return filepath.Join(w.areas.Output, w.scoped(name))
}

// StoreUpload writes the upload bytes into the intake area.
func (w *Workspace) StoreUpload(name string, r io.Reader) (string, int64, error) {
	return w.areas.Write(w.areas.Intake, w.scoped(name), r)
}
