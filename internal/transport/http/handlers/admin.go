package http_handlers

import (
	"net/http"

	"github.com/tenantcare/auth-service/internal/application/reset"
	"github.com/tenantcare/auth-service/internal/domain"
	"github.com/tenantcare/auth-service/internal/logger"
	"github.com/tenantcare/auth-service/internal/metrics"
	"github.com/tenantcare/auth-service/internal/transport/http/dto"
	"github.com/tenantcare/auth-service/internal/transport/http/middleware"
	"github.com/tenantcare/auth-service/internal/transport/http/response"
)

type AdminHandler struct {
	svc *reset.Service
}

func NewAdminHandler(svc *reset.Service) *AdminHandler {
	return &AdminHandler{svc: svc}
}

// RegeneratePassword handles POST /admin/password/regenerate.
// Requires Auth middleware.
func (h *AdminHandler) RegeneratePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	fail := func(err error) {
		metrics.PasswordResetRegenerationsTotal.WithLabelValues(metrics.Outcome(err)).Inc()
		response.WriteError(w, r, err)
	}

	claims, ok := middleware.ClaimsFromContext(ctx)
	if !ok {
		fail(domain.ErrTokenMissing())
		return
	}
	meta := requestMeta(r)

	var req dto.PasswordRegenerateRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		fail(err)
		return
	}
	req.Normalize()
	if err := dto.Validate(req); err != nil {
		h.svc.RecordRejected(ctx, domain.ActionPasswordResetRegenerate, &domain.Tenant{ID: claims.TenantID}, meta, err)
		fail(err)
		return
	}

	res, err := h.svc.RegeneratePassword(ctx, reset.RegenerateInput{
		ActorID:       claims.UserID,
		ActorTenantID: claims.TenantID,
		Email:         req.Email,
		Meta:          meta,
	})
	if err != nil {
		fail(err)
		return
	}
	metrics.PasswordResetRegenerationsTotal.WithLabelValues(metrics.Outcome(nil)).Inc()

	logger.WithCtx(ctx).Info().
		Str("actor_id", claims.UserID).
		Str("target_user_id", res.User.ID).
		Msg("password_reset_regenerated")

	response.WriteJSON(w, http.StatusOK, dto.PasswordRegenerateResponse{
		Detail:       dto.MsgResetTokenIssued,
		UserID:       res.User.ID,
		Email:        res.User.Email,
		TenantSchema: res.Tenant.Schema,
		ExpiresAt:    res.Token.ExpiresAt,
	})
}
