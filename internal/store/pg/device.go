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

type deviceRepo struct {
	pool *pgxpool.Pool
}

const deviceCols = `id, user_id, device_id, label, last_used_at, revoked_at, created_at`

func scanDevice(row pgx.Row) (*repository.TrustedDevice, error) {
	var d repository.TrustedDevice
	err := row.Scan(&d.ID, &d.UserID, &d.DeviceID, &d.Label, &d.LastUsedAt, &d.RevokedAt, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan trusted device: %w", err)
	}
	return &d, nil
}

func (r *deviceRepo) Upsert(ctx context.Context, in repository.UpsertTrustedDeviceInput) (*repository.TrustedDevice, error) {
	query := `
		INSERT INTO trusted_devices (user_id, device_id, label, last_used_at, created_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (user_id, device_id) DO UPDATE SET
			label        = COALESCE(EXCLUDED.label, trusted_devices.label),
			last_used_at = NOW(),
			revoked_at   = NULL
		RETURNING ` + deviceCols

	d, err := scanDevice(r.pool.QueryRow(ctx, query,
		in.UserID, in.DeviceID, nullIfEmpty(in.Label)))
	if err != nil {
		return nil, mapErr(err)
	}
	return d, nil
}

func (r *deviceRepo) Get(ctx context.Context, userID, deviceID string) (*repository.TrustedDevice, error) {
	return scanDevice(r.pool.QueryRow(ctx,
		`SELECT `+deviceCols+` FROM trusted_devices WHERE user_id = $1 AND device_id = $2`,
		userID, deviceID))
}

func (r *deviceRepo) ListByUser(ctx context.Context, userID string) ([]repository.TrustedDevice, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+deviceCols+` FROM trusted_devices
		WHERE user_id = $1 AND revoked_at IS NULL
		ORDER BY last_used_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.TrustedDevice
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (r *deviceRepo) TouchLastUsed(ctx context.Context, userID, deviceID string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE trusted_devices SET last_used_at = $3
		WHERE user_id = $1 AND device_id = $2`, userID, deviceID, at)
	return err
}

func (r *deviceRepo) Revoke(ctx context.Context, userID, deviceID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE trusted_devices SET revoked_at = NOW()
		WHERE user_id = $1 AND device_id = $2 AND revoked_at IS NULL`,
		userID, deviceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `
			SELECT EXISTS(SELECT 1 FROM trusted_devices WHERE user_id = $1 AND device_id = $2)`,
			userID, deviceID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return repository.ErrNotFound
		}
	}
	return nil
}

func (r *deviceRepo) RevokeAllByUser(ctx context.Context, userID string) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE trusted_devices SET revoked_at = NOW()
		WHERE user_id = $1 AND revoked_at IS NULL`, userID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
