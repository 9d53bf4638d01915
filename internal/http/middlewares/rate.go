package middlewares

import (
	"net/http"
	"strconv"

	"github.com/dropDatabas3/authcore/internal/http/errors"
	"github.com/dropDatabas3/authcore/internal/http/helpers"
	"github.com/dropDatabas3/authcore/internal/metrics"
	"github.com/dropDatabas3/authcore/internal/observability/logger"
	"github.com/dropDatabas3/authcore/internal/rate"
)

// RateLimitConfig configura el comportamiento del middleware de rate limiting.
type RateLimitConfig struct {
	Limiter  rate.Limiter
	Category rate.Category
	// Paths que se excluyen del rate limiting (ej: /healthz)
	Whitelist []string
}

// WithRateLimit crea un middleware de rate limiting por IP para la categoría
// dada. Un error del limiter rechaza el request (503): ante un backend que no
// responde no hay forma de saber cuánto presupuesto le queda al cliente.
func WithRateLimit(cfg RateLimitConfig) Middleware {
	if cfg.Limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if cfg.Category == "" {
		cfg.Category = rate.CategoryGeneral
	}

	whitelistSet := make(map[string]struct{})
	for _, p := range cfg.Whitelist {
		whitelistSet[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := whitelistSet[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			key := helpers.ClientIP(r)
			res, err := cfg.Limiter.Allow(r.Context(), key, cfg.Category)
			if err != nil {
				logger.From(r.Context()).Warn("rate limiter error",
					logger.Category(string(cfg.Category)),
					logger.Err(err),
				)
				metrics.RateLimitDeniedTotal.WithLabelValues(string(cfg.Category)).Inc()
				errors.WriteError(w, errors.ErrServiceUnavailable)
				return
			}

			if !res.Allowed {
				metrics.RateLimitDeniedTotal.WithLabelValues(string(cfg.Category)).Inc()
				if res.RetryAfter > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())))
				}
				errors.WriteError(w, errors.ErrRateLimitExceeded)
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			next.ServeHTTP(w, r)
		})
	}
}
