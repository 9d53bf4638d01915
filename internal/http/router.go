// Package http arma el router del servicio: middlewares globales, rutas
// públicas con rate limiting por categoría y rutas protegidas por JWT.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/authcore/internal/domain/repository"
	adminctl "github.com/dropDatabas3/authcore/internal/http/controllers/admin"
	authctl "github.com/dropDatabas3/authcore/internal/http/controllers/auth"
	healthctl "github.com/dropDatabas3/authcore/internal/http/controllers/health"
	otpctl "github.com/dropDatabas3/authcore/internal/http/controllers/otp"
	sessionctl "github.com/dropDatabas3/authcore/internal/http/controllers/session"
	httperrors "github.com/dropDatabas3/authcore/internal/http/errors"
	mw "github.com/dropDatabas3/authcore/internal/http/middlewares"
	"github.com/dropDatabas3/authcore/internal/rate"
)

// RouterConfig agrupa todo lo que necesita el router.
type RouterConfig struct {
	Auth    *authctl.Controllers
	Otp     *otpctl.Controller
	Session *sessionctl.Controller
	Health  *healthctl.Controller
	Admin   *adminctl.Controller

	AuthMW mw.AuthConfig

	// RateLimiter nil desactiva el rate limiting.
	RateLimiter rate.Limiter

	// MetricsHandler sirve /metrics. nil lo omite.
	MetricsHandler http.Handler

	CORSAllowedOrigins []string
}

// NewRouter construye el router HTTP completo.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.WithRequestID())
	r.Use(mw.WithRecover())
	r.Use(mw.WithLogging())
	r.Use(mw.WithSecurityHeaders())
	r.Use(mw.WithCORS(cfg.CORSAllowedOrigins))
	r.Use(WithMetrics)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	// Observabilidad
	r.Get("/healthz", cfg.Health.Live)
	r.Get("/readyz", cfg.Health.Ready)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	r.Route("/v1", func(r chi.Router) {
		// Endpoints de credenciales: límite agresivo y sin cache
		r.Group(func(r chi.Router) {
			r.Use(rateLimit(cfg.RateLimiter, rate.CategoryAuth))
			r.Use(mw.WithNoStore())

			r.Post("/auth/login", cfg.Auth.Login.Login)
			r.Post("/auth/login/federated", cfg.Auth.Login.Federated)
			r.Post("/auth/register", cfg.Auth.Register.Register)
			r.Post("/auth/refresh", cfg.Auth.Refresh.Refresh)
			r.Post("/auth/logout", cfg.Auth.Refresh.Logout)
			r.Post("/auth/reset/request", cfg.Auth.Reset.Request)
			r.Post("/auth/reset/confirm", cfg.Auth.Reset.Confirm)
		})

		// OTP: su propia categoría, el cooldown de emisión hace el resto
		r.Group(func(r chi.Router) {
			r.Use(rateLimit(cfg.RateLimiter, rate.CategoryOTP))
			r.Use(mw.WithNoStore())

			r.Post("/otp/request", cfg.Otp.Request)
			r.Post("/otp/verify", cfg.Otp.Verify)
		})

		// Rutas autenticadas
		r.Group(func(r chi.Router) {
			r.Use(rateLimit(cfg.RateLimiter, rate.CategoryGeneral))
			r.Use(mw.RequireAuth(cfg.AuthMW))

			r.Get("/auth/me", cfg.Auth.Me.Me)

			r.Get("/sessions", cfg.Session.List)
			r.Delete("/sessions", cfg.Session.RevokeAll)
			r.Delete("/sessions/{id}", cfg.Session.Revoke)
			r.Post("/sessions/revoke-others", cfg.Session.RevokeOthers)

			r.Get("/devices", cfg.Session.ListDevices)
			r.Post("/devices/trust", cfg.Session.Trust)
			r.Delete("/devices/{id}", cfg.Session.Untrust)

			// Operaciones administrativas: mismo grupo autenticado, rol aparte
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(repository.RoleAdmin, repository.RoleITAdmin))
				r.Post("/admin/users/{id}/disable", cfg.Admin.DisableUser)
			})
		})
	})

	return r
}

func rateLimit(limiter rate.Limiter, category rate.Category) mw.Middleware {
	if limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return mw.WithRateLimit(mw.RateLimitConfig{
		Limiter:  limiter,
		Category: category,
	})
}
