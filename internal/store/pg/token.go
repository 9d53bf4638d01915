package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/authcore/internal/domain/repository"
)

type tokenRepo struct {
	pool *pgxpool.Pool
}

const tokenCols = `id, user_id, session_id, token_hash, issued_at, expires_at,
	rotated_from, revoked_at, revoke_reason`

func scanToken(row pgx.Row) (*repository.RefreshToken, error) {
	var t repository.RefreshToken
	err := row.Scan(
		&t.ID, &t.UserID, &t.SessionID, &t.TokenHash, &t.IssuedAt, &t.ExpiresAt,
		&t.RotatedFrom, &t.RevokedAt, &t.RevokeReason,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan refresh token: %w", err)
	}
	return &t, nil
}

func (r *tokenRepo) Create(ctx context.Context, in repository.CreateRefreshTokenInput) (string, error) {
	query := `
		INSERT INTO refresh_tokens (user_id, session_id, token_hash, issued_at, expires_at, rotated_from)
		VALUES ($1, $2, $3, NOW(), $4, $5)
		RETURNING id`

	var id string
	err := r.pool.QueryRow(ctx, query,
		in.UserID,
		nullIfEmpty(in.SessionID),
		in.TokenHash,
		in.ExpiresAt,
		nullIfEmpty(in.RotatedFrom),
	).Scan(&id)
	if err != nil {
		return "", mapErr(err)
	}
	return id, nil
}

func (r *tokenRepo) GetByHash(ctx context.Context, tokenHash string) (*repository.RefreshToken, error) {
	return scanToken(r.pool.QueryRow(ctx,
		`SELECT `+tokenCols+` FROM refresh_tokens WHERE token_hash = $1`, tokenHash))
}

// RevokeActive es el update condicional del que depende la rotación: la fila
// se revoca solo si revoked_at IS NULL, en una única sentencia, así que de N
// rotaciones concurrentes sobre el mismo hash exactamente una afecta la fila.
// Los perdedores caen al SELECT y reciben ErrAlreadyRevoked.
func (r *tokenRepo) RevokeActive(ctx context.Context, tokenHash, reason string) (*repository.RefreshToken, error) {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = NOW(), revoke_reason = $2
		WHERE token_hash = $1 AND revoked_at IS NULL
		RETURNING id, user_id, session_id, token_hash, issued_at, expires_at,
			rotated_from, NULL::timestamptz, NULL::text`

	t, err := scanToken(r.pool.QueryRow(ctx, query, tokenHash, reason))
	if err == nil {
		return t, nil
	}
	if !repository.IsNotFound(err) {
		return nil, err
	}

	// 0 filas: o no existe, o ya estaba revocado
	t, err = r.GetByHash(ctx, tokenHash)
	if err != nil {
		return nil, err
	}
	return t, repository.ErrAlreadyRevoked
}

func (r *tokenRepo) Revoke(ctx context.Context, tokenID, reason string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = NOW(), revoke_reason = $2
		WHERE id = $1 AND revoked_at IS NULL`, tokenID, reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// idempotente si ya estaba revocado; error solo si no existe
		var exists bool
		if err := r.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM refresh_tokens WHERE id = $1)`, tokenID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return repository.ErrNotFound
		}
	}
	return nil
}

func (r *tokenRepo) RevokeAllByUser(ctx context.Context, userID, reason string) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = NOW(), revoke_reason = $2
		WHERE user_id = $1 AND revoked_at IS NULL`, userID, reason)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *tokenRepo) RevokeAllByUserExceptSession(ctx context.Context, userID, sessionID, reason string) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = NOW(), revoke_reason = $3
		WHERE user_id = $1 AND revoked_at IS NULL
		  AND (session_id IS NULL OR session_id <> $2)`, userID, sessionID, reason)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *tokenRepo) DeleteExpired(ctx context.Context, keep time.Duration) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM refresh_tokens
		WHERE expires_at < NOW()
		   OR (revoked_at IS NOT NULL AND revoked_at < NOW() - $1::interval)`,
		fmt.Sprintf("%d seconds", int(keep.Seconds())))
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
