package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/dropDatabas3/authcore/internal/audit"
	"github.com/dropDatabas3/authcore/internal/domain/repository"
	dto "github.com/dropDatabas3/authcore/internal/http/dto/auth"
	otpdto "github.com/dropDatabas3/authcore/internal/http/dto/otp"
	"github.com/dropDatabas3/authcore/internal/metrics"
	"github.com/dropDatabas3/authcore/internal/observability/logger"
	otpx "github.com/dropDatabas3/authcore/internal/otp"
	"github.com/dropDatabas3/authcore/internal/security/password"
)

// ErrResetInvalid cubre código inválido y cuenta inexistente por igual.
var ErrResetInvalid = fmt.Errorf("password reset invalid")

// ResetService implementa la recuperación de contraseña por OTP.
type ResetService interface {
	// Request dispara el OTP de reseteo. La respuesta no revela si la
	// cuenta existe.
	Request(ctx context.Context, in dto.ResetRequestRequest) (*otpdto.RequestOtpResult, error)

	// Confirm valida el código, cambia la contraseña y cierra todas las
	// sesiones del usuario.
	Confirm(ctx context.Context, in dto.ResetConfirmRequest) error
}

type resetService struct {
	deps Deps
}

// NewResetService crea el servicio de reseteo.
func NewResetService(deps Deps) ResetService {
	return &resetService{deps: deps}
}

func (s *resetService) Request(ctx context.Context, in dto.ResetRequestRequest) (*otpdto.RequestOtpResult, error) {
	return s.deps.Otp.Request(ctx, otpdto.RequestOtpRequest{
		Target:  in.Email,
		Purpose: string(repository.OtpPasswordReset),
	})
}

func (s *resetService) Confirm(ctx context.Context, in dto.ResetConfirmRequest) error {
	email := otpx.NormalizeTarget(in.Email)
	if email == "" || in.Code == "" {
		return ErrResetInvalid
	}
	if ok, reasons := s.deps.Policy.Validate(in.NewPassword); !ok {
		return fmt.Errorf("%w: %s", ErrWeakPassword, strings.Join(reasons, "; "))
	}

	user, err := s.deps.Otp.Verify(ctx, email, repository.OtpPasswordReset, in.Code)
	if err != nil {
		return err
	}

	hash, err := password.HashDefault(in.NewPassword)
	if err != nil {
		return err
	}
	if err := s.deps.Store.Users().SetPasswordHash(ctx, user.ID, hash); err != nil {
		return err
	}

	// la contraseña cambió: nada emitido antes sigue siendo válido
	if _, err := s.deps.Store.Tokens().RevokeAllByUser(ctx, user.ID, repository.RevokeReasonAdmin); err != nil {
		return err
	}
	if n, err := s.deps.Store.Sessions().RevokeAllByUser(ctx, user.ID, "password_reset"); err == nil && n > 0 {
		metrics.SessionsRevokedTotal.WithLabelValues("password_reset").Add(float64(n))
	}

	logger.From(ctx).Info("password reset",
		logger.Layer("service"),
		logger.Component("auth"),
		logger.Op("ResetConfirm"),
		logger.UserID(user.ID),
	)
	audit.Log(ctx, audit.EventPasswordReset, logger.UserID(user.ID))
	return nil
}
