// validation.go - Request shape validation for conversion uploads
package server

import (
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"doc-convert/internal/convert"
)

// maxFormatFieldBytes bounds the "format" form field; the longest valid
// value is four characters.
const maxFormatFieldBytes = 32

var errNotMultipart = errors.New("expected a multipart/form-data body")

// multipartReader checks the request carries a multipart/form-data body
// with a boundary and returns a streaming reader over its parts.
func multipartReader(r *http.Request) (*multipart.Reader, error) {
	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || !strings.EqualFold(mediaType, "multipart/form-data") {
		return nil, errNotMultipart
	}
	if params["boundary"] == "" {
		return nil, errors.New("multipart body has no boundary")
	}
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, errors.New("bad multipart body")
	}
	return mr, nil
}

// readField reads a short text form field.
func readField(part *multipart.Part) (string, error) {
	b, err := io.ReadAll(io.LimitReader(part, maxFormatFieldBytes+1))
	if err != nil {
		return "", &convert.Error{Kind: convert.KindClientInput, Op: "read format", Err: err}
	}
	if len(b) > maxFormatFieldBytes {
		return "", &convert.Error{Kind: convert.KindClientInput, Op: "read format", Err: errors.New("format value too long")}
	}
	return strings.ToLower(strings.TrimSpace(string(b))), nil
}
