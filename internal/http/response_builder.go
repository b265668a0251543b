package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"homeledger/internal/auth"
	"homeledger/internal/core"
	"homeledger/internal/log"
)

// Error kinds that only exist at the HTTP boundary.
const (
	kindUnauthorized = "unauthorized"
	kindRateLimited  = "rate_limited"
)

// ErrorBody is the envelope of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// MessageResponse acknowledges a mutation. Title or Category echo the
// record's label the way the create and update endpoints report it.
type MessageResponse struct {
	ID       int64  `json:"id,omitempty"`
	Title    string `json:"title,omitempty"`
	Category string `json:"category,omitempty"`
	Message  string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind string) int {
	switch kind {
	case core.KindValidation, core.KindInvalidAmount:
		return http.StatusBadRequest
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindConflict:
		return http.StatusConflict
	case kindUnauthorized:
		return http.StatusUnauthorized
	case kindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// messageFor returns the text shown to the caller. Internal failures never
// leak their cause.
func messageFor(kind string, err error, notFound string) string {
	switch kind {
	case core.KindNotFound:
		return notFound
	case core.KindConflict:
		if errors.Is(err, core.ErrBudgetExists) {
			return "A budget already exists for this category, month, year, and property"
		}
		return "The request conflicts with an existing record"
	case core.KindInternal:
		return "Internal server error"
	}
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	return err.Error()
}

// writeError maps err onto the error envelope. notFound names the missing
// thing, e.g. "Expense not found".
func writeError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	kind := core.ErrorKind(err)
	status := statusFor(kind)

	logger := log.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed",
			log.NewFields().WithError(err).WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent()).ToSlice()...)
	} else {
		logger.DebugContext(r.Context(), "Request rejected", log.FieldError, err, log.FieldErrorType, kind)
	}

	writeJSON(w, status, ErrorBody{Error: ErrorDetail{Type: kind, Message: messageFor(kind, err, notFound)}})
}

// writeAuthError answers a request that carried no usable token.
func writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	msg := "Missing or invalid authorization token"
	if errors.Is(err, auth.ErrMissingToken) {
		msg = "Missing authorization token"
	}
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	writeJSON(w, http.StatusUnauthorized, ErrorBody{Error: ErrorDetail{Type: kindUnauthorized, Message: msg}})
}

// writeRateLimited answers a request rejected by the rate limiter.
func writeRateLimited(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusTooManyRequests, ErrorBody{Error: ErrorDetail{Type: kindRateLimited, Message: "Rate limit exceeded. Please try again later."}})
}
