package pg

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/authcore/internal/domain/repository"
)

type userRepo struct {
	pool *pgxpool.Pool
}

const userCols = `id, email, phone, password_hash, role, email_verified, phone_verified,
	provider, provider_uid, last_login_at, disabled_at, created_at`

func scanUser(row pgx.Row) (*repository.User, error) {
	var u repository.User
	err := row.Scan(
		&u.ID, &u.Email, &u.Phone, &u.PasswordHash, &u.Role,
		&u.EmailVerified, &u.PhoneVerified,
		&u.Provider, &u.ProviderUID, &u.LastLoginAt, &u.DisabledAt, &u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

func (r *userRepo) Create(ctx context.Context, in repository.CreateUserInput) (*repository.User, error) {
	role := in.Role
	if role == "" {
		role = repository.RoleUser
	}
	query := `
		INSERT INTO users (email, phone, password_hash, role, provider, provider_uid, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING ` + userCols

	row := r.pool.QueryRow(ctx, query,
		strings.ToLower(strings.TrimSpace(in.Email)),
		nullIfEmpty(in.Phone),
		nullIfEmpty(in.PasswordHash),
		string(role),
		nullIfEmpty(in.Provider),
		nullIfEmpty(in.ProviderUID),
	)
	u, err := scanUser(row)
	if err != nil {
		return nil, mapErr(err)
	}
	return u, nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*repository.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE id = $1`, id))
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*repository.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE email = lower($1)`, strings.TrimSpace(email)))
}

func (r *userRepo) GetByPhone(ctx context.Context, phone string) (*repository.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE phone = $1`, phone))
}

func (r *userRepo) GetByProvider(ctx context.Context, provider, providerUID string) (*repository.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE provider = $1 AND provider_uid = $2`,
		provider, providerUID))
}

func (r *userRepo) SetEmailVerified(ctx context.Context, userID string) error {
	return r.exec(ctx, `UPDATE users SET email_verified = TRUE WHERE id = $1`, userID)
}

func (r *userRepo) SetPhoneVerified(ctx context.Context, userID string) error {
	return r.exec(ctx, `UPDATE users SET phone_verified = TRUE WHERE id = $1`, userID)
}

func (r *userRepo) SetPasswordHash(ctx context.Context, userID, hash string) error {
	return r.exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, userID, hash)
}

func (r *userRepo) TouchLastLogin(ctx context.Context, userID string, at time.Time) error {
	return r.exec(ctx, `UPDATE users SET last_login_at = $2 WHERE id = $1`, userID, at)
}

func (r *userRepo) Disable(ctx context.Context, userID string) error {
	return r.exec(ctx, `UPDATE users SET disabled_at = COALESCE(disabled_at, NOW()) WHERE id = $1`, userID)
}

func (r *userRepo) exec(ctx context.Context, query string, args ...any) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
