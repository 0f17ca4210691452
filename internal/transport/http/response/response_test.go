package response

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenantcare/auth-service/internal/domain"
	appCtx "github.com/tenantcare/auth-service/internal/pkg/context"
)

type confirmBody struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func postBody(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/auth/v1/password/reset/confirm", strings.NewReader(body))
}

func withRequestID(r *http.Request, id string) *http.Request {
	return r.WithContext(appCtx.WithRequestID(r.Context(), id))
}

// ---------- DecodeJSON ----------

func TestDecodeJSON_ConfirmBody(t *testing.T) {
	var dst confirmBody
	require.NoError(t, DecodeJSON(postBody(`{"token":"tok-1","new_password":"Abcdefg1"}`+"\n\t "), &dst))
	assert.Equal(t, confirmBody{Token: "tok-1", NewPassword: "Abcdefg1"}, dst)
}

func TestDecodeJSON_Rejections(t *testing.T) {
	cases := map[string]string{
		"unknown field":   `{"token":"t","new_password":"p","tenant":"acme"}`,
		"truncated":       `{"token":"t",`,
		"whitespace only": "  \n",
		"second object":   `{"token":"t"}{"token":"u"}`,
		"trailing junk":   `{"token":"t"} nope`,
		"wrong type":      `{"token":42}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			var dst confirmBody
			err := DecodeJSON(postBody(body), &dst)
			assert.True(t, domain.Is(err, "invalid_json"), "got %v", err)
			assert.Equal(t, http.StatusBadRequest, StatusOf(err))
		})
	}
}

func TestDecodeJSON_NoBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/x", nil)

	var dst confirmBody
	err := DecodeJSON(req, &dst)
	require.True(t, domain.Is(err, "invalid_json"), "got %v", err)
	assert.ErrorIs(t, err, errEmptyBody)
}

func TestDecodeJSON_BodyOverLimit_ReturnsPayloadTooLarge(t *testing.T) {
	req := postBody(`{"token":"` + strings.Repeat("x", 64) + `"}`)
	req.Body = http.MaxBytesReader(httptest.NewRecorder(), req.Body, 16)

	var dst confirmBody
	err := DecodeJSON(req, &dst)
	require.True(t, domain.Is(err, "payload_too_large"), "got %v", err)
	assert.Equal(t, http.StatusRequestEntityTooLarge, StatusOf(err))

	var de *domain.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "16", de.Meta["limit_bytes"])
}

// ---------- WriteError ----------

func TestWriteError_ResetFlowErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrEmailOrUsernameRequired(), http.StatusBadRequest, "email_or_username_required"},
		{domain.ErrTenantNotFound("nowhere.test"), http.StatusNotFound, "tenant_not_found"},
		{domain.ErrAccountLocked(), http.StatusForbidden, "account_locked"},
		{domain.ErrIPBlocked(), http.StatusForbidden, "ip_blocked"},
		{domain.ErrTokenMissing(), http.StatusUnauthorized, "token_missing"},
		{domain.ErrPayloadTooLarge(1 << 20), http.StatusRequestEntityTooLarge, "payload_too_large"},
		{domain.ErrRateLimited("auth.password_reset.request"), http.StatusTooManyRequests, "rate_limited"},
		{domain.ErrDBUnavailable(errors.New("dial")), http.StatusServiceUnavailable, "db_unavailable"},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			rr := httptest.NewRecorder()
			WriteError(rr, withRequestID(postBody(""), "rid-1"), tc.err)

			assert.Equal(t, tc.status, rr.Code)
			assert.Equal(t, contentTypeJSON, rr.Header().Get("Content-Type"))

			var body ErrorBody
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, tc.code, body.Error.Code)
			assert.Equal(t, "rid-1", body.Error.RequestID)
		})
	}
}

func TestWriteError_TenantNotFound_CarriesDomainMeta(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, postBody(""), domain.ErrTenantNotFound("nowhere.test"))

	var body ErrorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "No tenant found for email domain: nowhere.test", body.Error.Message)
	assert.Equal(t, map[string]string{"domain": "nowhere.test"}, body.Error.Meta)
}

func TestWriteError_UnexpectedError_HidesCause(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, postBody(""), errors.New("pq: relation users does not exist"))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "relation")

	var body ErrorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "internal_error", body.Error.Code)
	assert.Empty(t, body.Error.Meta)
}

func TestStatusFromKind_Mapping(t *testing.T) {
	cases := map[domain.ErrKind]int{
		domain.KindValidation:     http.StatusBadRequest,
		domain.KindInvalidToken:   http.StatusBadRequest,
		domain.KindAuth:           http.StatusUnauthorized,
		domain.KindForbidden:      http.StatusForbidden,
		domain.KindNotFound:       http.StatusNotFound,
		domain.KindConflict:       http.StatusConflict,
		domain.KindTooLarge:       http.StatusRequestEntityTooLarge,
		domain.KindRateLimited:    http.StatusTooManyRequests,
		domain.KindInfrastructure: http.StatusServiceUnavailable,
		domain.KindInternal:       http.StatusInternalServerError,
		"unknown":                 http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, statusFromKind(kind), "kind=%s", kind)
	}
}

// ---------- WriteDetailError ----------

func TestWriteDetailError_TokenFailuresShareMessage(t *testing.T) {
	for _, err := range []error{
		domain.ErrResetTokenInvalid(),
		domain.ErrResetTokenUsed(),
		domain.ErrResetTokenExpired(),
	} {
		rr := httptest.NewRecorder()
		WriteDetailError(rr, withRequestID(postBody(""), "rid-9"), err)

		require.Equal(t, http.StatusBadRequest, rr.Code)

		var body DetailBody
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, "Invalid or expired token.", body.Detail)
		assert.Equal(t, "rid-9", body.RequestID)
		assert.True(t, domain.Is(err, body.Code), "code %q", body.Code)
	}
}

func TestWriteDetailError_ResetFailed_IsGeneric(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteDetailError(rr, postBody(""), domain.ErrResetFailed(errors.New("bcrypt: cost out of range")))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "bcrypt")

	var body DetailBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, DetailBody{Detail: "Password reset failed.", Code: "password_reset_failed"}, body)
}

func TestWriteDetailError_NoMetaInBody(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteDetailError(rr, postBody(""), domain.ErrWeakPassword("min length 8"))

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &raw))
	assert.NotContains(t, raw, "meta")
	assert.Equal(t, "weak_password", raw["code"])
}

// ---------- WriteJSON ----------

func TestWriteJSON_DefaultAndExistingContentType(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteJSON(rr, http.StatusOK, map[string]bool{"valid": true})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, contentTypeJSON, rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"valid":true}`, rr.Body.String())

	rr = httptest.NewRecorder()
	rr.Header().Set("Content-Type", "application/problem+json")
	WriteJSON(rr, http.StatusAccepted, map[string]int{"x": 1})
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
}

func TestWriteJSON_UnencodableValue_Writes500(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteJSON(rr, http.StatusOK, map[string]float64{"x": math.Inf(1)})

	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	var body ErrorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "internal_error", body.Error.Code)
}

func TestRequestIDFromContext(t *testing.T) {
	assert.Empty(t, RequestIDFromContext(postBody("")))
	assert.Equal(t, "rid-1", RequestIDFromContext(withRequestID(postBody(""), "rid-1")))
}
