package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mobility-sharing/backend/internal/domain"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a stable machine-readable code and a human message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorMapping pairs a domain sentinel with its HTTP status and code.
// Order matters only for errors wrapping more than one sentinel.
var errorMapping = []struct {
	target error
	status int
	code   string
}{
	{domain.ErrValidation, http.StatusUnprocessableEntity, "validation_error"},
	{domain.ErrNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrInvalidState, http.StatusConflict, "invalid_state"},
	{domain.ErrDuplicate, http.StatusConflict, "duplicate"},
	{domain.ErrUnauthorized, http.StatusForbidden, "forbidden"},
	{domain.ErrInsufficientFunds, http.StatusPaymentRequired, "insufficient_funds"},
}

// classify returns the status and body for err. Anything that is not a
// domain error is an internal error and its text is not exposed.
func classify(err error) (int, ErrorResponse) {
	for _, m := range errorMapping {
		if errors.Is(err, m.target) {
			return m.status, ErrorResponse{Error: ErrorDetail{Code: m.code, Message: unwrapMessage(err, m.target)}}
		}
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, ErrorResponse{Error: ErrorDetail{Code: "payload_too_large", Message: "request body too large"}}
	}
	return http.StatusInternalServerError, ErrorResponse{Error: ErrorDetail{Code: "internal_error", Message: "internal server error"}}
}

// writeError maps err to a response. Internal errors are logged with the
// request context so the request id travels with them.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, body)
}

// badRequest reports input rejected before reaching the service layer,
// such as a malformed path parameter or JSON body.
func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: ErrorDetail{Code: "bad_request", Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck
	json.NewEncoder(w).Encode(v)
}

// unwrapMessage extracts the human-readable part from a wrapped sentinel error.
// e.g. "service.TravelService.PublishSingle: validation error: origin is required" → "origin is required"
func unwrapMessage(err, sentinel error) string {
	msg := err.Error()
	prefix := sentinel.Error() + ": "
	if i := strings.Index(msg, prefix); i >= 0 && len(msg) > i+len(prefix) {
		return msg[i+len(prefix):]
	}
	return sentinel.Error()
}
