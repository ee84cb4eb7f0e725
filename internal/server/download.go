package server

import (
	"mime"
	"net/http"
	"strconv"

	"doc-convert/internal/convert"
)

// serveArtifact streams a finished conversion as an attachment. The file
// stays in the output area until the retention sweep removes it.
func (s *Server) serveArtifact(w http.ResponseWriter, r *http.Request, art *convert.Artifact) error {
	f, err := s.areas.Open(art.Path)
	if err != nil {
		writeJSONError(w, r, http.StatusInternalServerError, convert.KindFilesystem, "converted file is not available")
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeJSONError(w, r, http.StatusInternalServerError, convert.KindFilesystem, "converted file is not available")
		return err
	}
	digest, _, err := artifactDigest(f)
	if err != nil {
		writeJSONError(w, r, http.StatusInternalServerError, convert.KindFilesystem, "converted file is not available")
		return err
	}

	w.Header().Set("Content-Type", art.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": art.Name}))
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("ETag", etag(digest))
	w.Header().Set("X-Content-SHA256", digest)
	http.ServeContent(w, r, art.Name, info.ModTime(), f)
	return nil
}
