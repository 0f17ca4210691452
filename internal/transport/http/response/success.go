package response

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/tenantcare/auth-service/internal/logger"
)

const contentTypeJSON = "application/json; charset=utf-8"

// fallbackBody is sent when a response value cannot be encoded.
const fallbackBody = `{"error":{"code":"internal_error","message":"internal error"}}` + "\n"

// WriteJSON writes v with status. The body is encoded before the header goes
// out, so an unencodable value becomes a plain 500 instead of a torn response.
// An existing Content-Type is kept.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		logger.Logger.Error().Err(err).Int("status", status).Msg("encode response body")
		status = http.StatusInternalServerError
		buf.Reset()
		buf.WriteString(fallbackBody)
	}

	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", contentTypeJSON)
	}
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
