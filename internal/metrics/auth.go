package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Auth-related Prometheus metrics. These are defined in a standalone package to avoid
// import cycles between service and HTTP packages.

var (
	LoginsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_logins_total",
		Help: "Intentos de login por método y resultado",
	}, []string{"method", "result"}) // method: password|otp|federated; result: ok|denied|error

	RefreshRotationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_refresh_rotations_total",
		Help: "Rotaciones de refresh token exitosas",
	})

	RefreshReuseDetectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_refresh_reuse_detected_total",
		Help: "Presentaciones de un refresh token ya rotado (señal de robo)",
	})

	OtpIssuedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_otp_issued_total",
		Help: "Desafíos OTP emitidos por propósito",
	}, []string{"purpose"})

	OtpVerifiedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_otp_verified_total",
		Help: "Verificaciones de OTP por propósito y resultado",
	}, []string{"purpose", "result"}) // result: ok|mismatch|expired|exhausted|not_found

	RateLimitDeniedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_rate_limit_denied_total",
		Help: "Requests rechazadas por rate limiting, por categoría",
	}, []string{"category"})

	SessionsRevokedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_sessions_revoked_total",
		Help: "Sesiones revocadas por motivo",
	}, []string{"reason"})

	SweepDeletedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_sweep_deleted_total",
		Help: "Filas purgadas por el janitor, por entidad",
	}, []string{"entity"}) // entity: tokens|otps|sessions
)

// RegisterAuth registers the auth metrics on the given registry (or default if nil).
func RegisterAuth(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	collectors := []prometheus.Collector{
		LoginsTotal,
		RefreshRotationsTotal,
		RefreshReuseDetectedTotal,
		OtpIssuedTotal,
		OtpVerifiedTotal,
		RateLimitDeniedTotal,
		SessionsRevokedTotal,
		SweepDeletedTotal,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
