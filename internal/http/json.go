package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/target/snowdash/internal/errors"
)

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g., client disconnect) can't be recovered from here.
		return
	}
}

// Client-facing error strings. Causes are logged, never returned.
const (
	ErrorUnauthorized   = "Unauthorized"
	ErrorSessionExpired = "SessionExpired"
)

// StatusForError maps an application error code to an HTTP status.
func StatusForError(err error) int {
	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeUnauthorized, apperrors.ErrCodeSessionExpired, apperrors.ErrCodeAuthFailure:
		return http.StatusUnauthorized
	case apperrors.ErrCodeValidation:
		return http.StatusBadRequest
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// WriteAppError writes {"error": "..."} for err. Upstream and internal failures
// get the generic fallback message; the cause stays server-side.
func WriteAppError(w http.ResponseWriter, err error, fallback string) {
	status := StatusForError(err)

	msg := fallback
	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeUnauthorized:
		msg = ErrorUnauthorized
	case apperrors.ErrCodeSessionExpired:
		msg = ErrorSessionExpired
	case apperrors.ErrCodeAuthFailure:
		msg = "Invalid credentials"
	case apperrors.ErrCodeValidation, apperrors.ErrCodeNotFound:
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Message != "" {
			msg = appErr.Message
		}
	}
	if msg == "" {
		msg = http.StatusText(status)
	}

	WriteJSON(w, status, map[string]string{"error": msg})
}
