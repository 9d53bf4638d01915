package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dropDatabas3/authcore/internal/audit"
	"github.com/dropDatabas3/authcore/internal/domain/repository"
	"github.com/dropDatabas3/authcore/internal/federation"
	dto "github.com/dropDatabas3/authcore/internal/http/dto/auth"
	otpsvc "github.com/dropDatabas3/authcore/internal/http/services/otp"
	"github.com/dropDatabas3/authcore/internal/http/services/session"
	"github.com/dropDatabas3/authcore/internal/metrics"
	"github.com/dropDatabas3/authcore/internal/observability/logger"
	otpx "github.com/dropDatabas3/authcore/internal/otp"
	"github.com/dropDatabas3/authcore/internal/security/password"
)

// Errores de login
var (
	ErrMissingFields      = fmt.Errorf("missing required fields")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrUserDisabled       = fmt.Errorf("user account disabled")
	ErrProviderConflict   = fmt.Errorf("email already registered with another method")
	ErrUnknownProvider    = fmt.Errorf("unknown federated provider")
)

// RequestMeta transporta metadatos de red del request hacia la sesión.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// LoginService define los métodos de autenticación.
type LoginService interface {
	// LoginPassword autentica por email y contraseña. Los fallos de
	// credenciales no distinguen entre cuenta inexistente y contraseña
	// incorrecta.
	LoginPassword(ctx context.Context, in dto.LoginRequest, meta RequestMeta) (*dto.LoginResult, error)

	// LoginOtp autentica por código de un solo uso (login_email o
	// login_phone).
	LoginOtp(ctx context.Context, target string, purpose repository.OtpPurpose, code string, device dto.DeviceInfo, meta RequestMeta) (*dto.LoginResult, error)

	// LoginFederated autentica con una identidad externa ya validada por
	// la capa de integración. Crea la cuenta si no existe.
	LoginFederated(ctx context.Context, in dto.FederatedLoginRequest, meta RequestMeta) (*dto.LoginResult, error)
}

type loginService struct {
	deps Deps
}

// NewLoginService crea el servicio de login.
func NewLoginService(deps Deps) LoginService {
	return &loginService{deps: deps}
}

func (s *loginService) LoginPassword(ctx context.Context, in dto.LoginRequest, meta RequestMeta) (*dto.LoginResult, error) {
	email := otpx.NormalizeTarget(in.Email)
	if email == "" || in.Password == "" {
		return nil, ErrMissingFields
	}

	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth"),
		logger.Op("LoginPassword"),
	)

	user, err := s.deps.Store.Users().GetByEmail(ctx, email)
	if err != nil {
		if repository.IsNotFound(err) {
			metrics.LoginsTotal.WithLabelValues("password", "invalid").Inc()
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive() {
		metrics.LoginsTotal.WithLabelValues("password", "disabled").Inc()
		return nil, ErrUserDisabled
	}
	// cuentas federadas sin contraseña local fallan igual que una
	// contraseña incorrecta
	if user.PasswordHash == nil || !password.Verify(in.Password, *user.PasswordHash) {
		metrics.LoginsTotal.WithLabelValues("password", "invalid").Inc()
		return nil, ErrInvalidCredentials
	}

	result, err := s.deps.Sessions.Open(ctx, session.OpenInput{
		User:      user,
		Device:    in.Device,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	})
	if err != nil {
		return nil, err
	}

	metrics.LoginsTotal.WithLabelValues("password", "ok").Inc()
	log.Info("login ok", logger.UserID(user.ID), logger.String("method", "password"))
	audit.Log(ctx, audit.EventLogin, logger.UserID(user.ID), logger.String("method", "password"))
	return result, nil
}

func (s *loginService) LoginOtp(ctx context.Context, target string, purpose repository.OtpPurpose, code string, device dto.DeviceInfo, meta RequestMeta) (*dto.LoginResult, error) {
	user, err := s.deps.Otp.Verify(ctx, target, purpose, code)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("otp", "invalid").Inc()
		switch err {
		case otpsvc.ErrUserNotFound:
			return nil, ErrInvalidCredentials
		default:
			return nil, err
		}
	}
	if !user.IsActive() {
		metrics.LoginsTotal.WithLabelValues("otp", "disabled").Inc()
		return nil, ErrUserDisabled
	}

	result, err := s.deps.Sessions.Open(ctx, session.OpenInput{
		User:      user,
		Device:    device,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	})
	if err != nil {
		return nil, err
	}

	metrics.LoginsTotal.WithLabelValues("otp", "ok").Inc()
	audit.Log(ctx, audit.EventLogin, logger.UserID(user.ID), logger.String("method", "otp"))
	logger.From(ctx).Info("login ok",
		logger.Component("auth"),
		logger.UserID(user.ID),
		logger.String("method", "otp"),
	)
	return result, nil
}

func (s *loginService) LoginFederated(ctx context.Context, in dto.FederatedLoginRequest, meta RequestMeta) (*dto.LoginResult, error) {
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	uid := strings.TrimSpace(in.ProviderUID)
	email := otpx.NormalizeTarget(in.Email)

	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth"),
		logger.Op("LoginFederated"),
		logger.String("provider", provider),
	)

	if in.AccessToken != "" {
		identity, err := s.deps.Federation.Resolve(ctx, provider, in.AccessToken)
		if err != nil {
			log.Debug("provider verification failed", logger.Err(err))
			switch {
			case errors.Is(err, federation.ErrUnknownProvider):
				return nil, ErrUnknownProvider
			case errors.Is(err, federation.ErrTokenRejected), errors.Is(err, federation.ErrNoEmail):
				metrics.LoginsTotal.WithLabelValues("federated", "invalid").Inc()
				return nil, ErrInvalidCredentials
			default:
				return nil, err
			}
		}
		uid = identity.UID
		email = otpx.NormalizeTarget(identity.Email)
	}
	if provider == "" || uid == "" || email == "" {
		return nil, ErrMissingFields
	}

	user, err := s.deps.Store.Users().GetByProvider(ctx, provider, uid)
	if err != nil {
		if !repository.IsNotFound(err) {
			return nil, err
		}
		user, err = s.createFederated(ctx, provider, uid, email)
		if err != nil {
			return nil, err
		}
		log.Info("federated account created", logger.UserID(user.ID))
	}
	if !user.IsActive() {
		metrics.LoginsTotal.WithLabelValues("federated", "disabled").Inc()
		return nil, ErrUserDisabled
	}

	result, err := s.deps.Sessions.Open(ctx, session.OpenInput{
		User:      user,
		Device:    in.Device,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	})
	if err != nil {
		return nil, err
	}

	metrics.LoginsTotal.WithLabelValues("federated", "ok").Inc()
	log.Info("login ok", logger.UserID(user.ID), logger.String("method", "federated"))
	audit.Log(ctx, audit.EventLogin, logger.UserID(user.ID), logger.String("method", "federated"))
	return result, nil
}

func (s *loginService) createFederated(ctx context.Context, provider, uid, email string) (*repository.User, error) {
	user, err := s.deps.Store.Users().Create(ctx, repository.CreateUserInput{
		Email:       email,
		Role:        repository.RoleUser,
		Provider:    provider,
		ProviderUID: uid,
	})
	if err != nil {
		// el email ya pertenece a una cuenta con otro método de acceso
		if repository.IsConflict(err) {
			return nil, ErrProviderConflict
		}
		return nil, err
	}
	// el IdP ya validó la casilla
	if err := s.deps.Store.Users().SetEmailVerified(ctx, user.ID); err == nil {
		user.EmailVerified = true
	}
	return user, nil
}
