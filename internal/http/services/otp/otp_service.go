// Package otp expone el flujo de desafíos OTP sobre HTTP: emisión con
// cooldown de reenvío y verificación con efectos por propósito.
package otp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/authcore/internal/cache"
	"github.com/dropDatabas3/authcore/internal/domain/repository"
	"github.com/dropDatabas3/authcore/internal/email"
	dto "github.com/dropDatabas3/authcore/internal/http/dto/otp"
	"github.com/dropDatabas3/authcore/internal/metrics"
	"github.com/dropDatabas3/authcore/internal/observability/logger"
	otpx "github.com/dropDatabas3/authcore/internal/otp"
	"github.com/dropDatabas3/authcore/internal/store"
	"github.com/dropDatabas3/authcore/internal/util"
)

// Errores del flujo OTP
var (
	ErrInvalidPurpose = fmt.Errorf("invalid otp purpose")
	ErrInvalidTarget  = fmt.Errorf("invalid otp target")
	ErrCooldown       = fmt.Errorf("otp resend cooldown active")
	ErrCodeInvalid    = fmt.Errorf("otp code invalid")
	ErrCodeExpired    = fmt.Errorf("otp code expired")
	ErrCodeExhausted  = fmt.Errorf("otp attempts exhausted")
	ErrUserNotFound   = fmt.Errorf("otp user not found")
)

// Service define las operaciones OTP a nivel de aplicación.
type Service interface {
	// Request emite un código para (target, purpose) y lo envía por el
	// canal del target. No revela si la cuenta existe: los targets sin
	// cuenta reciben la misma respuesta sin envío real.
	Request(ctx context.Context, in dto.RequestOtpRequest) (*dto.RequestOtpResult, error)

	// Verify valida el código y aplica el efecto del propósito sobre el
	// usuario (marcar email/teléfono verificado). Retorna el usuario
	// resuelto por el target.
	Verify(ctx context.Context, target string, purpose repository.OtpPurpose, code string) (*repository.User, error)
}

// Deps contiene las dependencias del servicio.
type Deps struct {
	Store    store.Store
	Engine   *otpx.Engine
	Cache    cache.Client
	Sender   email.Sender
	AppName  string
	Cooldown time.Duration
}

type service struct {
	deps Deps
}

// NewService crea el servicio OTP.
func NewService(deps Deps) Service {
	return &service{deps: deps}
}

// purposes que acepta el endpoint público.
var knownPurposes = map[repository.OtpPurpose]bool{
	repository.OtpLoginEmail:    true,
	repository.OtpLoginPhone:    true,
	repository.OtpVerifyEmail:   true,
	repository.OtpVerifyPhone:   true,
	repository.OtpPasswordReset: true,
}

// ParsePurpose valida el propósito recibido por la API.
func ParsePurpose(s string) (repository.OtpPurpose, error) {
	p := repository.OtpPurpose(strings.ToLower(strings.TrimSpace(s)))
	if !knownPurposes[p] {
		return "", ErrInvalidPurpose
	}
	return p, nil
}

func (s *service) Request(ctx context.Context, in dto.RequestOtpRequest) (*dto.RequestOtpResult, error) {
	purpose, err := ParsePurpose(in.Purpose)
	if err != nil {
		return nil, err
	}
	target := otpx.NormalizeTarget(in.Target)
	if target == "" {
		return nil, ErrInvalidTarget
	}

	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("otp"),
		logger.Op("Request"),
		logger.Purpose(string(purpose)),
	)

	// el cooldown aplica exista o no la cuenta, para que el timing no
	// distinga targets registrados
	cdKey := cooldownKey(target, purpose)
	if s.deps.Cache != nil {
		if ok, err := s.deps.Cache.Exists(ctx, cdKey); err == nil && ok {
			return nil, ErrCooldown
		}
	}

	result := &dto.RequestOtpResult{
		Sent:      true,
		ResendIn:  int64(s.deps.Cooldown / time.Second),
		ExpiresIn: s.deps.Engine.ExpirySeconds(purpose),
	}

	user, err := s.resolveTarget(ctx, target, purpose)
	if err != nil && !repository.IsNotFound(err) {
		return nil, err
	}
	sendable := err == nil && user.IsActive()

	if sendable {
		_, code, err := s.deps.Engine.Create(ctx, user.ID, target, purpose)
		if err != nil {
			log.Error("otp create failed", logger.Err(err))
			return nil, err
		}
		s.deliver(ctx, target, purpose, code)
		metrics.OtpIssuedTotal.WithLabelValues(string(purpose)).Inc()
		log.Info("otp issued", logger.UserID(user.ID), logger.String("target", util.MaskTarget(target)))
	} else {
		log.Info("otp request for unknown or disabled target")
	}

	if s.deps.Cache != nil && s.deps.Cooldown > 0 {
		_ = s.deps.Cache.Set(ctx, cdKey, "1", s.deps.Cooldown)
	}
	return result, nil
}

func (s *service) Verify(ctx context.Context, target string, purpose repository.OtpPurpose, code string) (*repository.User, error) {
	target = otpx.NormalizeTarget(target)
	if target == "" {
		return nil, ErrInvalidTarget
	}
	if !knownPurposes[purpose] {
		return nil, ErrInvalidPurpose
	}

	if err := s.deps.Engine.Verify(ctx, target, purpose, code); err != nil {
		metrics.OtpVerifiedTotal.WithLabelValues(string(purpose), "fail").Inc()
		switch {
		case errors.Is(err, otpx.ErrExpired):
			return nil, ErrCodeExpired
		case errors.Is(err, otpx.ErrExhausted):
			return nil, ErrCodeExhausted
		default:
			return nil, ErrCodeInvalid
		}
	}
	metrics.OtpVerifiedTotal.WithLabelValues(string(purpose), "ok").Inc()

	user, err := s.resolveTarget(ctx, target, purpose)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	// el código probado demuestra posesión del canal
	switch purpose {
	case repository.OtpVerifyEmail, repository.OtpLoginEmail:
		if !user.EmailVerified {
			if err := s.deps.Store.Users().SetEmailVerified(ctx, user.ID); err == nil {
				user.EmailVerified = true
			}
		}
	case repository.OtpVerifyPhone, repository.OtpLoginPhone:
		if !user.PhoneVerified {
			if err := s.deps.Store.Users().SetPhoneVerified(ctx, user.ID); err == nil {
				user.PhoneVerified = true
			}
		}
	}

	logger.From(ctx).Info("otp verified",
		logger.Component("otp"),
		logger.Purpose(string(purpose)),
		logger.UserID(user.ID),
	)
	return user, nil
}

// resolveTarget resuelve el usuario dueño del target según el canal del
// propósito.
func (s *service) resolveTarget(ctx context.Context, target string, purpose repository.OtpPurpose) (*repository.User, error) {
	switch purpose {
	case repository.OtpLoginPhone, repository.OtpVerifyPhone:
		return s.deps.Store.Users().GetByPhone(ctx, target)
	default:
		return s.deps.Store.Users().GetByEmail(ctx, target)
	}
}

// deliver envía el código por el canal que corresponde al target. Los
// targets telefónicos quedan en el log hasta integrar un proveedor SMS.
func (s *service) deliver(ctx context.Context, target string, purpose repository.OtpPurpose, code string) {
	if strings.Contains(target, "@") {
		subject, html, text, err := email.RenderOtp(purpose, s.deps.AppName, code, s.deps.Engine.Config(purpose).TTL)
		if err == nil {
			err = s.deps.Sender.Send(target, subject, html, text)
		}
		if err != nil {
			logger.From(ctx).Warn("otp email delivery failed",
				logger.Component("otp"),
				logger.Err(err),
			)
		}
		return
	}
	// TODO: integrar proveedor SMS para login_phone / verify_phone
	logger.From(ctx).Info("otp sms (log only)",
		logger.Component("otp"),
		logger.Purpose(string(purpose)),
	)
}

func cooldownKey(target string, purpose repository.OtpPurpose) string {
	return "otp:cd:" + string(purpose) + ":" + target
}
