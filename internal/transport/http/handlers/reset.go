package http_handlers

import (
	"net/http"
	"strings"

	"github.com/tenantcare/auth-service/internal/application/reset"
	"github.com/tenantcare/auth-service/internal/domain"
	"github.com/tenantcare/auth-service/internal/logger"
	"github.com/tenantcare/auth-service/internal/metrics"
	"github.com/tenantcare/auth-service/internal/transport/http/dto"
	"github.com/tenantcare/auth-service/internal/transport/http/middleware"
	"github.com/tenantcare/auth-service/internal/transport/http/response"
)

type ResetHandler struct {
	svc *reset.Service
}

func NewResetHandler(svc *reset.Service) *ResetHandler {
	return &ResetHandler{svc: svc}
}

// requestMeta captures the client details recorded with every activity.
func requestMeta(r *http.Request) reset.RequestMeta {
	return reset.RequestMeta{
		IP:        middleware.ClientIPFromRequest(r),
		UserAgent: r.UserAgent(),
		Origin:    strings.TrimSpace(r.Header.Get("Origin")),
		Host:      r.Host,
	}
}

// PasswordResetRequest handles POST /password/reset/request
func (h *ResetHandler) PasswordResetRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenant := middleware.TenantFromContext(ctx)
	meta := requestMeta(r)

	fail := func(err error) {
		metrics.PasswordResetRequestsTotal.WithLabelValues(metrics.Outcome(err)).Inc()
		response.WriteError(w, r, err)
	}

	var req dto.PasswordResetRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		fail(err)
		return
	}
	req.Normalize()
	if err := dto.Validate(req); err != nil {
		h.svc.RecordRejected(ctx, domain.ActionPasswordResetRequest, tenant, meta, err)
		fail(err)
		return
	}

	res, err := h.svc.RequestReset(ctx, reset.ResetRequestInput{
		Email:    req.Email,
		Username: req.Username,
		Tenant:   tenant,
		Meta:     meta,
	})
	if err != nil {
		fail(err)
		return
	}
	metrics.PasswordResetRequestsTotal.WithLabelValues(metrics.Outcome(nil)).Inc()

	logger.WithCtx(ctx).Info().
		Str("user_id", res.User.ID).
		Str("tenant_id", res.Tenant.ID).
		Msg("password_reset_requested")

	response.WriteJSON(w, http.StatusOK, dto.PasswordResetRequestResponse{
		Detail:       dto.MsgResetTokenGenerated,
		TenantSchema: res.Tenant.Schema,
		Email:        res.User.Email,
		Username:     res.User.Username,
	})
}

// PasswordResetConfirm handles POST /password/reset/confirm.
// Errors use the flat {detail, code, request_id} body.
func (h *ResetHandler) PasswordResetConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenant := middleware.TenantFromContext(ctx)
	meta := requestMeta(r)

	fail := func(err error) {
		metrics.PasswordResetConfirmsTotal.WithLabelValues(metrics.Outcome(err)).Inc()
		response.WriteDetailError(w, r, err)
	}

	var req dto.PasswordResetConfirmRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		fail(err)
		return
	}
	if err := dto.Validate(req); err != nil {
		h.svc.RecordRejected(ctx, domain.ActionPasswordResetConfirm, tenant, meta, err)
		fail(err)
		return
	}

	err := h.svc.ConfirmReset(ctx, reset.ConfirmInput{
		Token:       req.Token,
		NewPassword: req.NewPassword,
		Tenant:      tenant,
		Meta:        meta,
	})
	if err != nil {
		fail(err)
		return
	}
	metrics.PasswordResetConfirmsTotal.WithLabelValues(metrics.Outcome(nil)).Inc()

	logger.WithCtx(ctx).Info().Msg("password_reset_confirmed")

	response.WriteJSON(w, http.StatusOK, dto.DetailResponse{Detail: dto.MsgPasswordReset})
}

// PasswordResetValidate handles GET /password/reset/validate?token=...
func (h *ResetHandler) PasswordResetValidate(w http.ResponseWriter, r *http.Request) {
	q := dto.PasswordResetValidateQuery{Token: strings.TrimSpace(r.URL.Query().Get("token"))}
	if err := dto.Validate(q); err != nil {
		response.WriteDetailError(w, r, err)
		return
	}

	tok, err := h.svc.ValidateToken(r.Context(), middleware.TenantFromContext(r.Context()), q.Token)
	if err != nil {
		response.WriteDetailError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, dto.TokenValidResponse{Valid: true, ExpiresAt: tok.ExpiresAt})
}
