package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/raveportal/pageshare/internal/dom"
	"github.com/raveportal/pageshare/internal/eventloop"
	"github.com/raveportal/pageshare/internal/page"
	"github.com/raveportal/pageshare/internal/session"
	"github.com/raveportal/pageshare/internal/validation"
)

// maxBodySize is the maximum allowed request body size (1 MB). It also caps
// inbound live channel messages.
const maxBodySize = 1 << 20

// errorEnvelope is the standard error response shape.
type errorEnvelope struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// writeError writes a JSON error response with the given status code.
func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeErrorDetail(w, statusCode, errorDetail{Code: code, Message: message})
}

func writeErrorDetail(w http.ResponseWriter, statusCode int, detail errorDetail) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorEnvelope{Error: detail})
}

// writeValidationError reports which request fields were rejected.
func writeValidationError(w http.ResponseWriter, err error) {
	detail := errorDetail{Code: "validation_error", Message: err.Error()}
	var verr *validation.Error
	if errors.As(err, &verr) {
		detail.Fields = verr.Fields
	}
	writeErrorDetail(w, http.StatusBadRequest, detail)
}

// writeSessionError maps session and event errors to HTTP responses.
func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "session not found")
	case errors.Is(err, eventloop.ErrClosed):
		writeError(w, http.StatusGone, "session_closed", "session is closed")
	case errors.Is(err, dom.ErrNoHandler):
		writeError(w, http.StatusNotFound, "unknown_binding", err.Error())
	case errors.Is(err, page.ErrUnknownAction):
		writeError(w, http.StatusBadRequest, "unknown_action", err.Error())
	default:
		slog.Error("session request failed", "error", err)
		writeError(w, http.StatusBadRequest, "event_failed", err.Error())
	}
}

// writeJSON writes a JSON response with the given status code and data.
func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// readJSON decodes the request body into v, enforcing a size limit.
func readJSON(r *http.Request, v any) error {
	lr := io.LimitReader(r.Body, maxBodySize)
	return json.NewDecoder(lr).Decode(v)
}
