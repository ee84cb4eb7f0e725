package convert

import (
	"archive/zip"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"doc-convert/internal/raster"
	"doc-convert/internal/storage"
)

// pdfToImages rasterizes every page into a staging directory and zips the
// pages in order. The staging directory is tracked and removed afterwards.
type pdfToImages struct {
	rasterizer Rasterizer
}

func (s *pdfToImages) Convert(ctx context.Context, req *Request) error {
	if s.rasterizer == nil {
		return contentErr("rasterize pdf", errors.New("no rasterizer configured"))
	}
	data, err := readUpload(req.Upload.Path)
	if err != nil {
		return err
	}

	staging := req.Workspace.OutputPath(storage.Base(req.Upload.Name) + "_pages")
	req.Tracker.TrackDir(staging)
	if err := os.Mkdir(staging, 0o755); err != nil {
		return fsErr("create page directory", err)
	}

	var pages []string
	err = s.rasterizer.Rasterize(ctx, data, func(page, total int, img image.Image) error {
		name := raster.PageName(page, total)
		path := filepath.Join(staging, name)
		if err := writeFile(path, "write page image", func(w io.Writer) error {
			return png.Encode(w, img)
		}); err != nil {
			return err
		}
		pages = append(pages, name)
		return nil
	})
	if err != nil {
		if _, ok := AsError(err); ok {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
		return contentErr("rasterize pdf", err)
	}

	return writeFile(req.OutputPath, "write zip", func(w io.Writer) error {
		zw := zip.NewWriter(w)
		for _, name := range pages {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := addFile(zw, filepath.Join(staging, name), name); err != nil {
				return err
			}
		}
		return zw.Close()
	})
}

func addFile(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	// PNG is already compressed.
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store})
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}
