package server

import (
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"doc-convert/internal/convert"
	"doc-convert/internal/logging"
)

// conversionHandler handles POST /<route> with a multipart body. The file
// travels in the "file" field; image-to-image also reads "format" from the
// query string or from a form field sent before the file. A non-empty
// pinned format overrides both.
func (s *Server) conversionHandler(route *convert.Route, pinned string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeJSONError(w, r, http.StatusMethodNotAllowed, convert.KindClientInput, "method not allowed")
			return
		}
		if s.maxUpload > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
		}

		format := r.URL.Query().Get("format")
		mr, err := multipartReader(r)
		if err != nil {
			s.metrics.RecordConversionError(route.Name, convert.KindClientInput)
			writeJSONError(w, r, http.StatusBadRequest, convert.KindClientInput, err.Error())
			return
		}

		var filePart *multipart.Part
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				status, kind := statusFor(err)
				s.metrics.RecordConversionError(route.Name, kind)
				msg := "bad multipart body"
				if status == http.StatusRequestEntityTooLarge {
					msg = publicMessage(err)
				}
				writeJSONError(w, r, status, kind, msg)
				return
			}
			defer func() { _ = part.Close() }()

			switch part.FormName() {
			case "format":
				if format == "" {
					format, err = readField(part)
					if err != nil {
						writeConversionError(w, r, err)
						return
					}
				}
				continue
			case "file":
				filePart = part
			default:
				continue
			}
			break
		}

		if filePart == nil {
			s.metrics.RecordConversionError(route.Name, convert.KindClientInput)
			writeJSONError(w, r, http.StatusBadRequest, convert.KindClientInput, `missing file field "file"`)
			return
		}
		if pinned != "" {
			format = pinned
		}

		art, err := s.pipeline.Run(r.Context(), route, convert.Input{
			Filename: filePart.FileName(),
			Body:     filePart,
			Format:   format,
		})
		if err != nil {
			_, kind := statusFor(err)
			s.metrics.RecordConversionError(route.Name, kind)
			writeConversionError(w, r, err)
			return
		}

		if err := s.serveArtifact(w, r, art); err != nil {
			s.log.Error(r.Context(), "artifact_send_failed", logging.Fields{"route": route.Name}, err)
			s.metrics.RecordConversionError(route.Name, convert.KindFilesystem)
			return
		}
		s.metrics.RecordConversion(route.Name, uploadSize(r), art.Size, time.Since(start))
	})
}

func uploadSize(r *http.Request) int64 {
	if r.ContentLength > 0 {
		return r.ContentLength
	}
	return 0
}
