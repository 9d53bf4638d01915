package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/authcore/internal/domain/repository"
)

type otpRepo struct {
	pool *pgxpool.Pool
}

const otpCols = `id, user_id, target, purpose, code_hash, attempts, expires_at, used_at, created_at`

func scanOtp(row pgx.Row) (*repository.OtpChallenge, error) {
	var ch repository.OtpChallenge
	err := row.Scan(
		&ch.ID, &ch.UserID, &ch.Target, &ch.Purpose, &ch.CodeHash,
		&ch.Attempts, &ch.ExpiresAt, &ch.UsedAt, &ch.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan otp challenge: %w", err)
	}
	return &ch, nil
}

// Create invalida los pendientes del par y crea el nuevo en una transacción:
// nunca quedan dos desafíos pendientes para el mismo (target, purpose).
func (r *otpRepo) Create(ctx context.Context, in repository.CreateOtpInput) (*repository.OtpChallenge, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("otp create: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		UPDATE otp_challenges SET used_at = NOW()
		WHERE target = $1 AND purpose = $2 AND used_at IS NULL`,
		in.Target, string(in.Purpose)); err != nil {
		return nil, fmt.Errorf("otp create: invalidate previous: %w", err)
	}

	ch, err := scanOtp(tx.QueryRow(ctx, `
		INSERT INTO otp_challenges (user_id, target, purpose, code_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING `+otpCols,
		nullIfEmpty(in.UserID), in.Target, string(in.Purpose), in.CodeHash, in.ExpiresAt))
	if err != nil {
		return nil, mapErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("otp create: commit: %w", err)
	}
	return ch, nil
}

func (r *otpRepo) GetLatestPending(ctx context.Context, target string, purpose repository.OtpPurpose) (*repository.OtpChallenge, error) {
	return scanOtp(r.pool.QueryRow(ctx, `
		SELECT `+otpCols+` FROM otp_challenges
		WHERE target = $1 AND purpose = $2 AND used_at IS NULL
		ORDER BY created_at DESC LIMIT 1`,
		target, string(purpose)))
}

// IncrementAttempts: attempts = attempts + 1 en una sola sentencia; dos
// verificaciones concurrentes reciben contadores distintos.
func (r *otpRepo) IncrementAttempts(ctx context.Context, id string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		UPDATE otp_challenges SET attempts = attempts + 1
		WHERE id = $1
		RETURNING attempts`, id).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, repository.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (r *otpRepo) MarkUsed(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE otp_challenges SET used_at = NOW()
		WHERE id = $1 AND used_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM otp_challenges WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return repository.ErrNotFound
		}
		return repository.ErrAlreadyRevoked
	}
	return nil
}

func (r *otpRepo) DeleteExpired(ctx context.Context) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM otp_challenges WHERE used_at IS NOT NULL OR expires_at < NOW()`)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
