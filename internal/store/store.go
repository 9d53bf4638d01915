// Package store expone la fachada de persistencia y la selección de driver.
package store

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/authcore/internal/config"
	"github.com/dropDatabas3/authcore/internal/domain/repository"
	"github.com/dropDatabas3/authcore/internal/store/memory"
	"github.com/dropDatabas3/authcore/internal/store/pg"
)

// Store agrupa los repositorios de dominio. El Credential Store es la única
// fuente de verdad y el árbitro de mutación concurrente (updates atómicos a
// nivel de fila); los services no serializan nada por fuera de él.
type Store interface {
	Users() repository.UserRepository
	Tokens() repository.TokenRepository
	Otps() repository.OtpRepository
	Sessions() repository.SessionRepository
	Devices() repository.DeviceRepository

	Ping(ctx context.Context) error
	Close()
}

// Open crea el store según la configuración.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Storage.Driver {
	case "memory":
		return memory.New(), nil
	case "postgres":
		return pg.Open(ctx, pg.Config{
			DSN:             cfg.Storage.DSN,
			MaxConns:        cfg.Storage.Postgres.MaxConns,
			ConnMaxLifetime: cfg.Storage.Postgres.ConnMaxLifetime,
		})
	default:
		return nil, fmt.Errorf("store: unknown driver %q", cfg.Storage.Driver)
	}
}
