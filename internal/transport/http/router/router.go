package router

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HealthHandler interface {
	Healthz(w http.ResponseWriter, r *http.Request)
	Readyz(w http.ResponseWriter, r *http.Request)
}

type ResetHandler interface {
	PasswordResetRequest(w http.ResponseWriter, r *http.Request)
	PasswordResetConfirm(w http.ResponseWriter, r *http.Request)
	PasswordResetValidate(w http.ResponseWriter, r *http.Request)
}

type AdminHandler interface {
	RegeneratePassword(w http.ResponseWriter, r *http.Request)
}

type Middleware = func(http.Handler) http.Handler

type Deps struct {
	Health HealthHandler
	Reset  ResetHandler
	Admin  AdminHandler

	RequestIDMW   Middleware
	ClientIPMW    Middleware
	TenantMW      Middleware
	TokenTenantMW Middleware
	AuthMW        Middleware

	// Optional
	MetricsMW      Middleware
	SecurityMW     Middleware
	BodyLimitMW    Middleware
	RLResetRequest Middleware
	RLResetConfirm Middleware
	RLAdmin        Middleware
	Metrics        http.Handler
}

func New(deps Deps) (http.Handler, error) {
	if deps.Health == nil {
		return nil, fmt.Errorf("nil Health handler")
	}
	if deps.Reset == nil {
		return nil, fmt.Errorf("nil Reset handler")
	}
	if deps.Admin == nil {
		return nil, fmt.Errorf("nil Admin handler")
	}
	if deps.RequestIDMW == nil {
		return nil, fmt.Errorf("nil RequestID middleware")
	}
	if deps.ClientIPMW == nil {
		return nil, fmt.Errorf("nil ClientIP middleware")
	}
	if deps.TenantMW == nil {
		return nil, fmt.Errorf("nil Tenant middleware")
	}
	if deps.TokenTenantMW == nil {
		return nil, fmt.Errorf("nil TokenTenant middleware")
	}
	if deps.AuthMW == nil {
		return nil, fmt.Errorf("nil Auth middleware")
	}

	metricsHandler := deps.Metrics
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}

	r := chi.NewRouter()
	r.Use(deps.RequestIDMW)
	r.Use(chimw.Recoverer)
	if deps.MetricsMW != nil {
		r.Use(deps.MetricsMW)
	}
	r.Use(deps.ClientIPMW)
	r.Use(optional(deps.SecurityMW, deps.BodyLimitMW)...)

	r.Get("/healthz", deps.Health.Healthz)
	r.Get("/readyz", deps.Health.Readyz)
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route("/auth/v1", func(r chi.Router) {
		// --- Password reset (public, tenant scoped) ---
		r.Route("/password/reset", func(r chi.Router) {
			r.Use(deps.TenantMW)

			r.With(optional(deps.RLResetRequest)...).
				Post("/request", deps.Reset.PasswordResetRequest)
			r.With(append([]Middleware{deps.TokenTenantMW}, optional(deps.RLResetConfirm)...)...).
				Post("/confirm", deps.Reset.PasswordResetConfirm)
			r.With(deps.TokenTenantMW).
				Get("/validate", deps.Reset.PasswordResetValidate) // ?token=...
		})

		// --- Admin (privileged) ---
		// Role checks run in the service against the stored actor so that
		// rejections are audited.
		r.Route("/admin", func(r chi.Router) {
			r.Use(deps.AuthMW)

			r.With(optional(deps.RLAdmin)...).
				Post("/password/regenerate", deps.Admin.RegeneratePassword)
		})
	})

	return r, nil
}

func optional(mws ...Middleware) []Middleware {
	out := make([]Middleware, 0, len(mws))
	for _, mw := range mws {
		if mw != nil {
			out = append(out, mw)
		}
	}
	return out
}
