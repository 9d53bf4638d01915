// Package sweep ejecuta la limpieza periódica de registros vencidos:
// refresh tokens, desafíos OTP y sesiones.
package sweep

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/authcore/internal/metrics"
	"github.com/dropDatabas3/authcore/internal/observability/logger"
	"github.com/dropDatabas3/authcore/internal/store"
)

// Config configura el janitor.
type Config struct {
	Interval time.Duration
	// RevokedRetention es cuánto se conservan los tokens revocados antes
	// de borrarlos. La retención mantiene auditable la detección de reuso.
	RevokedRetention time.Duration
}

// Janitor borra registros vencidos en intervalos regulares.
type Janitor struct {
	store store.Store
	cfg   Config
}

// New crea el janitor.
func New(st store.Store, cfg Config) *Janitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Minute
	}
	return &Janitor{store: st, cfg: cfg}
}

// Run ejecuta el loop de limpieza hasta que el contexto se cancele.
func (j *Janitor) Run(ctx context.Context) error {
	log := logger.L().With(logger.Component("sweep"))
	log.Info("janitor started", logger.Any("interval", j.cfg.Interval.String()))

	ticker := time.NewTicker(j.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("janitor stopped")
			return ctx.Err()
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

// sweep corre las tres limpiezas en paralelo. Un fallo en una entidad no
// frena a las demás.
func (j *Janitor) sweep(ctx context.Context) {
	log := logger.L().With(logger.Component("sweep"))
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := j.store.Tokens().DeleteExpired(ctx, j.cfg.RevokedRetention)
		j.report(log, "tokens", n, err)
		return nil
	})
	g.Go(func() error {
		n, err := j.store.Otps().DeleteExpired(ctx)
		j.report(log, "otps", n, err)
		return nil
	})
	g.Go(func() error {
		n, err := j.store.Sessions().DeleteExpired(ctx)
		j.report(log, "sessions", n, err)
		return nil
	})

	_ = g.Wait()
}

func (j *Janitor) report(log *zap.Logger, entity string, n int, err error) {
	if err != nil {
		log.Warn("sweep failed", logger.String("entity", entity), logger.Err(err))
		return
	}
	if n > 0 {
		metrics.SweepDeletedTotal.WithLabelValues(entity).Add(float64(n))
		log.Info("sweep deleted", logger.String("entity", entity), logger.Count(n))
	}
}
