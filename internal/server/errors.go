package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"doc-convert/internal/convert"
	"doc-convert/internal/logging"
)

// errorResp is the JSON body of every failed request.
type errorResp struct {
	Error     string       `json:"error"`
	Kind      convert.Kind `json:"kind"`
	RequestID string       `json:"request_id,omitempty"`
}

// statusFor maps a conversion failure to its HTTP status. Failures caused by
// the upload or its content are 4xx. Storage faults (500) and an unusable
// renderer (503) are the only 5xx answers; neither depends on the request.
func statusFor(err error) (int, convert.Kind) {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return http.StatusRequestEntityTooLarge, convert.KindClientInput
	}
	kind := convert.KindOf(err)
	switch kind {
	case convert.KindClientInput:
		return http.StatusBadRequest, kind
	case convert.KindUnsupportedContent, convert.KindTimeout:
		return http.StatusUnprocessableEntity, kind
	case convert.KindRendererUnavailable:
		return http.StatusServiceUnavailable, kind
	default:
		return http.StatusInternalServerError, convert.KindFilesystem
	}
}

// publicMessage is the client-facing text for err.
func publicMessage(err error) string {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return "file too large"
	}
	if ce, ok := convert.AsError(err); ok {
		return ce.Public()
	}
	return "conversion failed"
}

func writeConversionError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := statusFor(err)
	writeJSONError(w, r, status, kind, publicMessage(err))
}

func writeJSONError(w http.ResponseWriter, r *http.Request, status int, kind convert.Kind, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResp{
		Error:     msg,
		Kind:      kind,
		RequestID: logging.RequestID(r.Context()),
	})
}
