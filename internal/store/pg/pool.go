// Package pg implementa los repositorios de dominio sobre PostgreSQL (pgx).
package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/authcore/internal/domain/repository"
)

// Config de conexión.
type Config struct {
	DSN             string
	MaxConns        int
	ConnMaxLifetime string
}

// Store implementa store.Store sobre un pgxpool compartido.
type Store struct {
	pool *pgxpool.Pool
}

// Open crea el pool y verifica conectividad.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("pg: empty DSN")
	}
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.ConnMaxLifetime != "" {
		if d, err := time.ParseDuration(cfg.ConnMaxLifetime); err == nil {
			pc.MaxConnLifetime = d
		}
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("pg: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Users() repository.UserRepository       { return &userRepo{pool: s.pool} }
func (s *Store) Tokens() repository.TokenRepository     { return &tokenRepo{pool: s.pool} }
func (s *Store) Otps() repository.OtpRepository         { return &otpRepo{pool: s.pool} }
func (s *Store) Sessions() repository.SessionRepository { return &sessionRepo{pool: s.pool} }
func (s *Store) Devices() repository.DeviceRepository   { return &deviceRepo{pool: s.pool} }

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }
func (s *Store) Close()                         { s.pool.Close() }

// Pool expone el pool para collectors de métricas.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// ───────── helpers ─────────

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// mapErr traduce errores de pgx a los sentinelas de dominio.
func mapErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
		return repository.ErrConflict
	}
	return err
}
