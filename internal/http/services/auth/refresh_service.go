package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/authcore/internal/audit"
	"github.com/dropDatabas3/authcore/internal/domain/repository"
	dto "github.com/dropDatabas3/authcore/internal/http/dto/auth"
	jwtx "github.com/dropDatabas3/authcore/internal/jwt"
	"github.com/dropDatabas3/authcore/internal/metrics"
	"github.com/dropDatabas3/authcore/internal/observability/logger"
	tokens "github.com/dropDatabas3/authcore/internal/security/token"
)

// Errores de rotación
var (
	ErrRefreshInvalid = fmt.Errorf("refresh token invalid")
	ErrRefreshReused  = fmt.Errorf("refresh token reuse detected")
)

// RefreshService rota refresh tokens y cierra sesiones.
type RefreshService interface {
	// Refresh consume el refresh token presentado y emite el par sucesor.
	// Cada token rota exactamente una vez: ante presentaciones
	// concurrentes gana una sola, y presentar un token ya rotado dispara
	// la revocación de todos los tokens del usuario.
	Refresh(ctx context.Context, in dto.RefreshRequest) (*dto.RefreshResult, error)

	// Logout revoca el refresh token y cierra su sesión. Idempotente:
	// un token desconocido o ya revocado no es un error.
	Logout(ctx context.Context, in dto.LogoutRequest) error
}

type refreshService struct {
	deps Deps

	// refreshTTL se toma del servicio de sesiones vía Open; acá se
	// necesita para el sucesor.
	refreshTTL time.Duration
}

// NewRefreshService crea el servicio de rotación.
func NewRefreshService(deps Deps) RefreshService {
	return &refreshService{deps: deps, refreshTTL: deps.RefreshTTL}
}

func (s *refreshService) Refresh(ctx context.Context, in dto.RefreshRequest) (*dto.RefreshResult, error) {
	if in.RefreshToken == "" {
		return nil, ErrRefreshInvalid
	}
	hash := tokens.SHA256Hex(in.RefreshToken)

	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth"),
		logger.Op("Refresh"),
	)

	// los expirados se revocan con su propia razón para que una
	// re-presentación posterior no parezca robo
	if prior, err := s.deps.Store.Tokens().GetByHash(ctx, hash); err == nil {
		if prior.RevokedAt == nil && time.Now().UTC().After(prior.ExpiresAt) {
			_ = s.deps.Store.Tokens().Revoke(ctx, prior.ID, repository.RevokeReasonExpired)
			return nil, ErrRefreshInvalid
		}
	} else if repository.IsNotFound(err) {
		return nil, ErrRefreshInvalid
	} else {
		return nil, err
	}

	prev, err := s.deps.Store.Tokens().RevokeActive(ctx, hash, repository.RevokeReasonRotated)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyRevoked) {
			return nil, s.handleRevoked(ctx, hash, log)
		}
		if repository.IsNotFound(err) {
			return nil, ErrRefreshInvalid
		}
		return nil, err
	}

	user, err := s.deps.Store.Users().GetByID(ctx, prev.UserID)
	if err != nil {
		return nil, ErrRefreshInvalid
	}
	if !user.IsActive() {
		_, _ = s.deps.Store.Tokens().RevokeAllByUser(ctx, user.ID, repository.RevokeReasonAdmin)
		_, _ = s.deps.Store.Sessions().RevokeAllByUser(ctx, user.ID, "account_disabled")
		return nil, ErrUserDisabled
	}

	now := time.Now().UTC()
	rawNext, err := tokens.GenerateOpaqueToken(32)
	if err != nil {
		return nil, err
	}
	create := repository.CreateRefreshTokenInput{
		UserID:      prev.UserID,
		TokenHash:   tokens.SHA256Hex(rawNext),
		ExpiresAt:   now.Add(s.refreshTTL),
		RotatedFrom: prev.ID,
	}
	if prev.SessionID != nil {
		create.SessionID = *prev.SessionID
	}
	nextID, err := s.deps.Store.Tokens().Create(ctx, create)
	if err != nil {
		return nil, err
	}
	if prev.SessionID != nil {
		if err := s.deps.Store.Sessions().LinkRefreshToken(ctx, *prev.SessionID, nextID); err != nil && !repository.IsNotFound(err) {
			log.Warn("session link failed", logger.Err(err))
		}
		_ = s.deps.Store.Sessions().UpdateActivity(ctx, *prev.SessionID, now)
	}

	access, _, err := s.deps.Codec.Issue(user.ID, user.Email, user.Role, jwtx.TokenAccess)
	if err != nil {
		return nil, err
	}

	metrics.RefreshRotationsTotal.Inc()
	log.Info("refresh rotated", logger.UserID(user.ID))

	return &dto.RefreshResult{
		AccessToken:  access,
		RefreshToken: rawNext,
		TokenType:    "Bearer",
		ExpiresIn:    s.deps.Codec.ExpirySeconds(jwtx.TokenAccess),
	}, nil
}

// handleRevoked decide si la presentación de un token revocado es ruido
// (logout repetido, expirado) o señal de robo (el token ya rotó, alguien
// conserva una copia vieja).
func (s *refreshService) handleRevoked(ctx context.Context, hash string, log *zap.Logger) error {
	prior, err := s.deps.Store.Tokens().GetByHash(ctx, hash)
	if err != nil {
		return ErrRefreshInvalid
	}
	if prior.RevokeReason == nil || *prior.RevokeReason != repository.RevokeReasonRotated {
		return ErrRefreshInvalid
	}

	metrics.RefreshReuseDetectedTotal.Inc()
	log.Warn("refresh reuse detected, revoking all user tokens", logger.UserID(prior.UserID))
	audit.Log(ctx, audit.EventRefreshReuse, logger.UserID(prior.UserID))

	if _, err := s.deps.Store.Tokens().RevokeAllByUser(ctx, prior.UserID, repository.RevokeReasonReuse); err != nil {
		log.Error("revoke all tokens failed", logger.Err(err))
	}
	if n, err := s.deps.Store.Sessions().RevokeAllByUser(ctx, prior.UserID, "token_reuse"); err == nil && n > 0 {
		metrics.SessionsRevokedTotal.WithLabelValues("token_reuse").Add(float64(n))
	}
	return ErrRefreshReused
}

func (s *refreshService) Logout(ctx context.Context, in dto.LogoutRequest) error {
	if in.RefreshToken == "" {
		return nil
	}
	hash := tokens.SHA256Hex(in.RefreshToken)

	t, err := s.deps.Store.Tokens().GetByHash(ctx, hash)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil
		}
		return err
	}

	if in.All {
		if _, err := s.deps.Store.Tokens().RevokeAllByUser(ctx, t.UserID, repository.RevokeReasonLogout); err != nil {
			return err
		}
		n, err := s.deps.Store.Sessions().RevokeAllByUser(ctx, t.UserID, "logout")
		if err != nil {
			return err
		}
		if n > 0 {
			metrics.SessionsRevokedTotal.WithLabelValues("logout").Add(float64(n))
		}
		return nil
	}

	if err := s.deps.Store.Tokens().Revoke(ctx, t.ID, repository.RevokeReasonLogout); err != nil && !errors.Is(err, repository.ErrAlreadyRevoked) && !repository.IsNotFound(err) {
		return err
	}
	if t.SessionID != nil {
		if err := s.deps.Store.Sessions().Revoke(ctx, *t.SessionID, "logout"); err == nil {
			metrics.SessionsRevokedTotal.WithLabelValues("logout").Inc()
		}
	}

	logger.From(ctx).Info("logout",
		logger.Component("auth"),
		logger.UserID(t.UserID),
	)
	return nil
}
