// Package bootstrap crea el primer usuario admin cuando el servicio
// arranca sobre un store vacío.
package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/dropDatabas3/authcore/internal/domain/repository"
	"github.com/dropDatabas3/authcore/internal/observability/logger"
	"github.com/dropDatabas3/authcore/internal/security/password"
	"github.com/dropDatabas3/authcore/internal/store"
)

// AdminConfig define el admin inicial. Ambos campos vacíos desactivan el
// bootstrap.
type AdminConfig struct {
	Email    string
	Password string
}

// EnsureAdmin crea el admin configurado si todavía no existe. Idempotente:
// si la cuenta ya está registrada no toca nada.
func EnsureAdmin(ctx context.Context, st store.Store, cfg AdminConfig) error {
	email := strings.ToLower(strings.TrimSpace(cfg.Email))
	if email == "" {
		return nil
	}
	if cfg.Password == "" {
		return fmt.Errorf("bootstrap: admin password vacío")
	}

	if _, err := st.Users().GetByEmail(ctx, email); err == nil {
		return nil
	} else if !repository.IsNotFound(err) {
		return fmt.Errorf("bootstrap: %w", err)
	}

	hash, err := password.HashDefault(cfg.Password)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	user, err := st.Users().Create(ctx, repository.CreateUserInput{
		Email:        email,
		PasswordHash: hash,
		Role:         repository.RoleAdmin,
	})
	if err != nil {
		// otra réplica pudo ganar la carrera
		if repository.IsConflict(err) {
			return nil
		}
		return fmt.Errorf("bootstrap: %w", err)
	}
	_ = st.Users().SetEmailVerified(ctx, user.ID)

	logger.L().Info("admin bootstrapped",
		logger.Component("bootstrap"),
		logger.UserID(user.ID),
	)
	return nil
}
