// Package app arma la aplicación completa: store, cache, servicios,
// controllers, router y janitor, a partir de la configuración.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dropDatabas3/authcore/internal/cache"
	"github.com/dropDatabas3/authcore/internal/config"
	"github.com/dropDatabas3/authcore/internal/domain/repository"
	"github.com/dropDatabas3/authcore/internal/email"
	"github.com/dropDatabas3/authcore/internal/federation"
	httpx "github.com/dropDatabas3/authcore/internal/http"
	adminctl "github.com/dropDatabas3/authcore/internal/http/controllers/admin"
	authctl "github.com/dropDatabas3/authcore/internal/http/controllers/auth"
	healthctl "github.com/dropDatabas3/authcore/internal/http/controllers/health"
	otpctl "github.com/dropDatabas3/authcore/internal/http/controllers/otp"
	sessionctl "github.com/dropDatabas3/authcore/internal/http/controllers/session"
	mw "github.com/dropDatabas3/authcore/internal/http/middlewares"
	adminsvc "github.com/dropDatabas3/authcore/internal/http/services/admin"
	authsvc "github.com/dropDatabas3/authcore/internal/http/services/auth"
	healthsvc "github.com/dropDatabas3/authcore/internal/http/services/health"
	otpsvc "github.com/dropDatabas3/authcore/internal/http/services/otp"
	sessionsvc "github.com/dropDatabas3/authcore/internal/http/services/session"
	jwtx "github.com/dropDatabas3/authcore/internal/jwt"
	"github.com/dropDatabas3/authcore/internal/metrics"
	"github.com/dropDatabas3/authcore/internal/observability/logger"
	otpx "github.com/dropDatabas3/authcore/internal/otp"
	"github.com/dropDatabas3/authcore/internal/rate"
	"github.com/dropDatabas3/authcore/internal/security/password"
	"github.com/dropDatabas3/authcore/internal/store"
	"github.com/dropDatabas3/authcore/internal/store/pg"
	"github.com/dropDatabas3/authcore/internal/sweep"
	"github.com/prometheus/client_golang/prometheus"
	rdb "github.com/redis/go-redis/v9"
)

// Version se inyecta en el build con -ldflags.
var Version = "dev"

// App agrupa los componentes de runtime del servicio.
type App struct {
	Config  *config.Config
	Store   store.Store
	Cache   cache.Client
	Handler http.Handler

	janitor *sweep.Janitor
}

// New construye la aplicación. No arranca ningún loop.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	st, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("app: store: %w", err)
	}

	cacheClient, err := cache.New(cache.Config{
		Kind:     cfg.Cache.Kind,
		Addr:     cfg.Cache.Redis.Addr,
		DB:       cfg.Cache.Redis.DB,
		Prefix:   cfg.Cache.Redis.Prefix,
		Password: "",
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("app: cache: %w", err)
	}

	codec, err := jwtx.NewCodec([]byte(cfg.JWT.SigningKey), cfg.JWT.Issuer, cfg.AccessTTL())
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("app: jwt: %w", err)
	}

	engine := otpx.NewEngine(st.Otps(), otpDefaults(cfg), otpOverrides(cfg))

	// Servicios
	sessionSvc := sessionsvc.NewService(sessionsvc.Deps{
		Store:      st,
		Codec:      codec,
		Cache:      cacheClient,
		RefreshTTL: cfg.RefreshTTL(),
		SessionTTL: cfg.SessionTTL(),
	})
	otpService := otpsvc.NewService(otpsvc.Deps{
		Store:    st,
		Engine:   engine,
		Cache:    cacheClient,
		Sender:   newSender(cfg),
		AppName:  "authcore",
		Cooldown: parseDur(cfg.OTP.ResendCooldown, time.Minute),
	})
	authServices := authsvc.New(authsvc.Deps{
		Store:      st,
		Codec:      codec,
		Sessions:   sessionSvc,
		Otp:        otpService,
		Policy:     passwordPolicy(cfg),
		Federation: federation.NewRegistry(federation.NewGoogle(), federation.NewGitHub()),
		RefreshTTL: cfg.RefreshTTL(),
	})
	healthService := healthsvc.NewService(healthsvc.Deps{
		Store:   st,
		Cache:   cacheClient,
		Version: Version,
	})

	// Métricas
	metrics.RegisterAuth(prometheus.DefaultRegisterer)
	metricsCfg := httpx.MetricsConfig{}
	if pgStore, ok := st.(*pg.Store); ok {
		metricsCfg.Pool = pgStore.Pool
	}
	metricsHandler, err := httpx.RegisterMetrics(metricsCfg)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("app: metrics: %w", err)
	}

	limiter, err := newLimiter(cfg)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("app: rate: %w", err)
	}

	authMW := mw.AuthConfig{Codec: codec}
	if cfg.Security.RecheckUserStatus {
		authMW.StatusChecker = userStatusChecker{users: st.Users()}
	}

	handler := httpx.NewRouter(httpx.RouterConfig{
		Auth:               authctl.NewControllers(authServices, st.Users()),
		Otp:                otpctl.NewController(otpService, authServices.Login),
		Session:            sessionctl.NewController(sessionSvc),
		Admin:              adminctl.NewController(adminsvc.NewService(adminsvc.Deps{Store: st})),
		Health:             healthctl.NewController(healthService),
		AuthMW:             authMW,
		RateLimiter:        limiter,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
	})

	app := &App{
		Config:  cfg,
		Store:   st,
		Cache:   cacheClient,
		Handler: handler,
	}
	if cfg.Sweep.Enabled {
		app.janitor = sweep.New(st, sweep.Config{
			Interval:         parseDur(cfg.Sweep.Interval, 10*time.Minute),
			RevokedRetention: parseDur(cfg.Sweep.RevokedRetention, 24*time.Hour),
		})
	}
	return app, nil
}

// Janitor retorna el janitor de limpieza, o nil si está deshabilitado.
func (a *App) Janitor() *sweep.Janitor { return a.janitor }

// Close libera store y cache.
func (a *App) Close() {
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			logger.L().Warn("cache close", logger.Err(err))
		}
	}
	a.Store.Close()
}

// userStatusChecker adapta el repositorio de usuarios al middleware de auth.
type userStatusChecker struct {
	users repository.UserRepository
}

func (c userStatusChecker) IsActive(ctx context.Context, userID string) (bool, error) {
	user, err := c.users.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.IsActive(), nil
}

func otpDefaults(cfg *config.Config) otpx.PurposeConfig {
	return otpx.PurposeConfig{
		Length:      cfg.OTP.Length,
		MaxAttempts: cfg.OTP.MaxAttempts,
		TTL:         parseDur(cfg.OTP.TTL, 5*time.Minute),
	}
}

func otpOverrides(cfg *config.Config) map[repository.OtpPurpose]otpx.PurposeConfig {
	if len(cfg.OTP.Purposes) == 0 {
		return nil
	}
	out := make(map[repository.OtpPurpose]otpx.PurposeConfig, len(cfg.OTP.Purposes))
	for name, c := range cfg.OTP.Purposes {
		out[repository.OtpPurpose(name)] = otpx.PurposeConfig{
			Length:      c.Length,
			MaxAttempts: c.MaxAttempts,
			TTL:         parseDur(c.TTL, 0),
		}
	}
	return out
}

func passwordPolicy(cfg *config.Config) password.Policy {
	return password.Policy{
		MinLength:    cfg.Security.PasswordPolicy.MinLength,
		RequireUpper: cfg.Security.PasswordPolicy.RequireUpper,
		RequireLower: cfg.Security.PasswordPolicy.RequireLower,
		RequireDigit: cfg.Security.PasswordPolicy.RequireDigit,
	}
}

func newSender(cfg *config.Config) email.Sender {
	if cfg.SMTP.Host == "" {
		return email.LogSender{}
	}
	s := email.FromConfig(email.SMTPConfig{
		Host:      cfg.SMTP.Host,
		Port:      cfg.SMTP.Port,
		Username:  cfg.SMTP.Username,
		Password:  cfg.SMTP.Password,
		FromEmail: cfg.SMTP.From,
		TLSMode:   cfg.SMTP.TLS,
	})
	s.InsecureSkipVerify = cfg.SMTP.InsecureSkipVerify
	return s
}

func newLimiter(cfg *config.Config) (rate.Limiter, error) {
	if !cfg.Rate.Enabled {
		return nil, nil
	}
	limits := map[rate.Category]rate.Limit{
		rate.CategoryAuth:    {Capacity: cfg.Rate.Auth.Capacity, Window: parseDur(cfg.Rate.Auth.Window, time.Minute)},
		rate.CategoryOTP:     {Capacity: cfg.Rate.OTP.Capacity, Window: parseDur(cfg.Rate.OTP.Window, time.Minute)},
		rate.CategoryGeneral: {Capacity: cfg.Rate.General.Capacity, Window: parseDur(cfg.Rate.General.Window, time.Minute)},
	}
	switch cfg.Rate.Backend {
	case "", "memory":
		return rate.NewMemoryLimiter(limits), nil
	case "redis":
		client := rdb.NewClient(&rdb.Options{
			Addr: cfg.Cache.Redis.Addr,
			DB:   cfg.Cache.Redis.DB,
		})
		return rate.NewRedisLimiter(client, cfg.Cache.Redis.Prefix, limits), nil
	default:
		return nil, fmt.Errorf("unknown rate backend %q", cfg.Rate.Backend)
	}
}

func parseDur(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
