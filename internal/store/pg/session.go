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

type sessionRepo struct {
	pool *pgxpool.Pool
}

// ip_address se castea a text: la columna es inet y el dominio la maneja como string.
const sessionCols = `id, user_id, device_id, refresh_token_id, ip_address::text, user_agent,
	platform, is_trusted, created_at, last_activity, expires_at, revoked_at, revoke_reason`

func scanSession(row pgx.Row) (*repository.Session, error) {
	var s repository.Session
	err := row.Scan(
		&s.ID, &s.UserID, &s.DeviceID, &s.RefreshTokenID, &s.IPAddress, &s.UserAgent,
		&s.Platform, &s.IsTrusted, &s.CreatedAt, &s.LastActivity, &s.ExpiresAt,
		&s.RevokedAt, &s.RevokeReason,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return &s, nil
}

// Upsert reactiva la sesión del par (user_id, device_id) si existe,
// re-vinculando el refresh token vigente.
func (r *sessionRepo) Upsert(ctx context.Context, in repository.UpsertSessionInput) (*repository.Session, error) {
	query := `
		INSERT INTO sessions (
			user_id, device_id, refresh_token_id, ip_address, user_agent,
			platform, is_trusted, created_at, last_activity, expires_at
		) VALUES ($1, $2, $3, $4::inet, $5, $6, $7, NOW(), NOW(), $8)
		ON CONFLICT (user_id, device_id) DO UPDATE SET
			refresh_token_id = EXCLUDED.refresh_token_id,
			ip_address       = COALESCE(EXCLUDED.ip_address, sessions.ip_address),
			user_agent       = COALESCE(EXCLUDED.user_agent, sessions.user_agent),
			platform         = COALESCE(EXCLUDED.platform, sessions.platform),
			is_trusted       = EXCLUDED.is_trusted,
			last_activity    = NOW(),
			expires_at       = EXCLUDED.expires_at,
			revoked_at       = NULL,
			revoke_reason    = NULL
		RETURNING ` + sessionCols

	s, err := scanSession(r.pool.QueryRow(ctx, query,
		in.UserID,
		in.DeviceID,
		nullIfEmpty(in.RefreshTokenID),
		nullIfEmpty(in.IPAddress),
		nullIfEmpty(in.UserAgent),
		nullIfEmpty(in.Platform),
		in.IsTrusted,
		in.ExpiresAt,
	))
	if err != nil {
		return nil, mapErr(err)
	}
	return s, nil
}

func (r *sessionRepo) Get(ctx context.Context, id string) (*repository.Session, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionCols+` FROM sessions WHERE id = $1`, id))
}

func (r *sessionRepo) ListActiveByUser(ctx context.Context, userID string) ([]repository.Session, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+sessionCols+` FROM sessions
		WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > NOW()
		ORDER BY last_activity DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *sessionRepo) LinkRefreshToken(ctx context.Context, id, refreshTokenID string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE sessions SET refresh_token_id = $2 WHERE id = $1`, id, refreshTokenID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *sessionRepo) UpdateActivity(ctx context.Context, id string, lastActivity time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE sessions SET last_activity = $2 WHERE id = $1`, id, lastActivity)
	return err
}

func (r *sessionRepo) Revoke(ctx context.Context, id, reason string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE sessions SET revoked_at = NOW(), revoke_reason = $2
		WHERE id = $1 AND revoked_at IS NULL`, id, reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM sessions WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return repository.ErrNotFound
		}
	}
	return nil
}

func (r *sessionRepo) RevokeAllByUser(ctx context.Context, userID, reason string) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE sessions SET revoked_at = NOW(), revoke_reason = $2
		WHERE user_id = $1 AND revoked_at IS NULL`, userID, reason)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *sessionRepo) RevokeAllByUserExceptDevice(ctx context.Context, userID, deviceID, reason string) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE sessions SET revoked_at = NOW(), revoke_reason = $3
		WHERE user_id = $1 AND device_id <> $2 AND revoked_at IS NULL`,
		userID, deviceID, reason)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *sessionRepo) DeleteExpired(ctx context.Context) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM sessions WHERE revoked_at IS NOT NULL OR expires_at < NOW()`)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
