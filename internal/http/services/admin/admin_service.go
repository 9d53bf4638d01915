// Package admin implementa las operaciones administrativas sobre cuentas.
// Son las mismas transiciones que ofrece la CLI, expuestas por HTTP para
// operadores con rol suficiente.
package admin

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/authcore/internal/audit"
	"github.com/dropDatabas3/authcore/internal/domain/repository"
	dto "github.com/dropDatabas3/authcore/internal/http/dto/admin"
	"github.com/dropDatabas3/authcore/internal/metrics"
	"github.com/dropDatabas3/authcore/internal/observability/logger"
	"github.com/dropDatabas3/authcore/internal/store"
)

var ErrUserNotFound = fmt.Errorf("user not found")

// Service expone las operaciones administrativas.
type Service interface {
	// DisableUser deshabilita la cuenta y revoca todos sus refresh tokens
	// y sesiones. Idempotente sobre cuentas ya deshabilitadas.
	DisableUser(ctx context.Context, userID string) (*dto.DisableUserResult, error)
}

// Deps contiene las dependencias del servicio.
type Deps struct {
	Store store.Store
}

type service struct {
	deps Deps
}

// NewService crea el servicio administrativo.
func NewService(deps Deps) Service {
	return &service{deps: deps}
}

func (s *service) DisableUser(ctx context.Context, userID string) (*dto.DisableUserResult, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("admin"),
		logger.Op("DisableUser"),
	)

	user, err := s.deps.Store.Users().GetByID(ctx, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if err := s.deps.Store.Users().Disable(ctx, user.ID); err != nil {
		return nil, err
	}
	nTokens, err := s.deps.Store.Tokens().RevokeAllByUser(ctx, user.ID, repository.RevokeReasonAdmin)
	if err != nil {
		log.Error("revoke tokens failed", logger.Err(err))
	}
	nSessions, err := s.deps.Store.Sessions().RevokeAllByUser(ctx, user.ID, "account_disabled")
	if err != nil {
		log.Error("revoke sessions failed", logger.Err(err))
	}
	if nSessions > 0 {
		metrics.SessionsRevokedTotal.WithLabelValues("account_disabled").Add(float64(nSessions))
	}

	audit.Log(ctx, audit.EventUserDisabled, logger.UserID(user.ID))
	log.Info("user disabled",
		logger.UserID(user.ID),
		logger.Int("revoked_tokens", nTokens),
		logger.Int("revoked_sessions", nSessions),
	)

	return &dto.DisableUserResult{
		UserID:          user.ID,
		RevokedTokens:   nTokens,
		RevokedSessions: nSessions,
	}, nil
}
