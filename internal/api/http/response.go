package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"locar-backend/internal/domain"
	"locar-backend/internal/idempotency"
	"locar-backend/internal/logger"
	"locar-backend/internal/storage"
)

const maxJSONBody = 1 << 20

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Status    string `json:"status"`
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// statusFor maps a failure to its HTTP status code.
func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindStateConflict, domain.KindReferentialIntegrity:
		return http.StatusConflict
	case domain.KindNotFound:
		return http.StatusNotFound
	}
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrInvalidKey), errors.Is(err, idempotency.ErrInvalidKey):
		return http.StatusBadRequest
	case errors.Is(err, idempotency.ErrInProgress):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func codeFor(err error) string {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return "UPLOAD_TOO_LARGE"
	case errors.Is(err, storage.ErrNotFound):
		return "ATTACHMENT_NOT_FOUND"
	case errors.Is(err, storage.ErrInvalidKey):
		return "INVALID_ATTACHMENT_KEY"
	case errors.Is(err, idempotency.ErrInvalidKey):
		return "INVALID_IDEMPOTENCY_KEY"
	case errors.Is(err, idempotency.ErrInProgress):
		return "IDEMPOTENCY_KEY_CONFLICT"
	}
	return domain.CodeOf(err)
}

// writeError renders err. Unclassified errors are logged and hidden from
// the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
		message = "internal server error"
	} else {
		logger.DebugContext(r.Context(), "Request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, ErrorResponse{
		Status:    "error",
		ErrorCode: codeFor(err),
		Message:   message,
		RequestID: logger.RequestID(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response", "error", err)
	}
}

// decodeJSON reads a single JSON object, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.Invalid("malformed request body: %v", err)
	}
	return nil
}

func pathID(r *http.Request, name string) (int32, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || id <= 0 {
		return 0, domain.Invalid("invalid %s %q", name, raw)
	}
	return int32(id), nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.Invalid("invalid %s %q", name, raw)
	}
	return n, nil
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, ErrorResponse{
		Status: "error", ErrorCode: "ENDPOINT_NOT_FOUND",
		Message: fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path), RequestID: logger.RequestID(r.Context()),
	})
}

func methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{
		Status: "error", ErrorCode: "METHOD_NOT_ALLOWED",
		Message: "method not allowed", RequestID: logger.RequestID(r.Context()),
	})
}
