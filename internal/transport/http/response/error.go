package response

import (
	"errors"
	"net/http"

	"github.com/tenantcare/auth-service/internal/domain"
)

type ErrorBody struct {
	Error ErrorPayload `json:"error"`
}

type ErrorPayload struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Meta      map[string]string `json:"meta,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteError converts a domain error into a consistent JSON HTTP error response.
// Non-domain errors are treated as internal errors (500) without leaking details.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message, meta := describe(err)

	w.Header().Set("Content-Type", contentTypeJSON)
	WriteJSON(w, status, ErrorBody{
		Error: ErrorPayload{
			Code:      code,
			Message:   message,
			Meta:      meta,
			RequestID: RequestIDFromContext(r),
		},
	})
}

// DetailBody is the flat error shape of the confirm endpoint.
type DetailBody struct {
	Detail    string `json:"detail"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// WriteDetailError writes err as {"detail", "code", "request_id"}.
// Status mapping and message hiding follow WriteError.
func WriteDetailError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message, _ := describe(err)

	w.Header().Set("Content-Type", contentTypeJSON)
	WriteJSON(w, status, DetailBody{
		Detail:    message,
		Code:      code,
		RequestID: RequestIDFromContext(r),
	})
}

// StatusOf returns the HTTP status WriteError would use for err.
func StatusOf(err error) int {
	status, _, _, _ := describe(err)
	return status
}

func describe(err error) (status int, code, message string, meta map[string]string) {
	status = http.StatusInternalServerError
	code = "internal_error"
	message = "internal error"

	var de *domain.Error
	if errors.As(err, &de) {
		status = statusFromKind(de.Kind)
		code = de.Code
		message = de.Message
		meta = de.Meta
	}
	return status, code, message, meta
}

// statusFromKind maps domain error kinds to HTTP status codes.
func statusFromKind(kind domain.ErrKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindInvalidToken:
		return http.StatusBadRequest
	case domain.KindAuth:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindTooLarge:
		return http.StatusRequestEntityTooLarge
	case domain.KindRateLimited:
		return http.StatusTooManyRequests
	case domain.KindInfrastructure:
		return http.StatusServiceUnavailable
	case domain.KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
