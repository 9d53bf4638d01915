package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/dropDatabas3/authcore/internal/audit"
	"github.com/dropDatabas3/authcore/internal/domain/repository"
	dto "github.com/dropDatabas3/authcore/internal/http/dto/auth"
	otpdto "github.com/dropDatabas3/authcore/internal/http/dto/otp"
	"github.com/dropDatabas3/authcore/internal/observability/logger"
	otpx "github.com/dropDatabas3/authcore/internal/otp"
	"github.com/dropDatabas3/authcore/internal/security/password"
)

// Errores de registro
var (
	ErrEmailTaken   = fmt.Errorf("email already registered")
	ErrInvalidEmail = fmt.Errorf("invalid email")
	ErrWeakPassword = fmt.Errorf("password does not meet policy")
)

// RegisterService crea cuentas locales.
type RegisterService interface {
	// Register crea la cuenta y dispara el OTP de verificación de email.
	Register(ctx context.Context, in dto.RegisterRequest) (*dto.RegisterResult, error)
}

type registerService struct {
	deps Deps
}

// NewRegisterService crea el servicio de registro.
func NewRegisterService(deps Deps) RegisterService {
	return &registerService{deps: deps}
}

func (s *registerService) Register(ctx context.Context, in dto.RegisterRequest) (*dto.RegisterResult, error) {
	email := otpx.NormalizeTarget(in.Email)
	if !validEmail(email) {
		return nil, ErrInvalidEmail
	}
	if ok, reasons := s.deps.Policy.Validate(in.Password); !ok {
		return nil, fmt.Errorf("%w: %s", ErrWeakPassword, strings.Join(reasons, "; "))
	}

	hash, err := password.HashDefault(in.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.deps.Store.Users().Create(ctx, repository.CreateUserInput{
		Email:        email,
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: hash,
		Role:         repository.RoleUser,
	})
	if err != nil {
		if repository.IsConflict(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	logger.From(ctx).Info("user registered",
		logger.Layer("service"),
		logger.Component("auth"),
		logger.Op("Register"),
		logger.UserID(user.ID),
	)
	audit.Log(ctx, audit.EventRegister, logger.UserID(user.ID))

	// best-effort: el usuario puede pedir el reenvío
	sent := true
	if _, err := s.deps.Otp.Request(ctx, otpdto.RequestOtpRequest{
		Target:  email,
		Purpose: string(repository.OtpVerifyEmail),
	}); err != nil {
		sent = false
	}

	return &dto.RegisterResult{
		UserID:           user.ID,
		Email:            user.Email,
		VerificationSent: sent,
	}, nil
}

// validEmail hace la validación mínima de forma; la prueba real de la
// casilla es el OTP de verificación.
func validEmail(s string) bool {
	at := strings.IndexByte(s, '@')
	if at <= 0 || at == len(s)-1 {
		return false
	}
	return strings.IndexByte(s[at+1:], '.') > 0
}
