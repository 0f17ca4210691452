package response

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/tenantcare/auth-service/internal/domain"
)

var (
	errEmptyBody    = errors.New("empty body")
	errTrailingData = errors.New("multiple JSON values")
)

// DecodeJSON decodes exactly one JSON value from the request body into dst.
// Empty bodies, unknown fields and trailing values are invalid_json; a body
// cut off by BodyLimit is payload_too_large.
func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return domain.ErrInvalidJSON(errEmptyBody)
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return decodeError(err)
	}

	// Anything but EOF after the first value is rejected.
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err != nil {
			return decodeError(err)
		}
		return domain.ErrInvalidJSON(errTrailingData)
	}
	return nil
}

func decodeError(err error) error {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return domain.ErrPayloadTooLarge(tooLarge.Limit)
	case errors.Is(err, io.EOF):
		return domain.ErrInvalidJSON(errEmptyBody)
	default:
		return domain.ErrInvalidJSON(err)
	}
}
