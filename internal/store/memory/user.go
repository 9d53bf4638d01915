package memory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/authcore/internal/domain/repository"
)

type userRepo struct{ s *Store }

func (r *userRepo) Create(_ context.Context, in repository.CreateUserInput) (*repository.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, repository.ErrInvalidInput
	}
	if _, dup := r.s.usersByMail[email]; dup {
		return nil, repository.ErrConflict
	}
	if in.Phone != "" {
		for _, u := range r.s.users {
			if u.Phone != nil && *u.Phone == in.Phone {
				return nil, repository.ErrConflict
			}
		}
	}

	role := in.Role
	if role == "" {
		role = repository.RoleUser
	}
	u := &repository.User{
		ID:        uuid.NewString(),
		Email:     email,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	if in.Phone != "" {
		p := in.Phone
		u.Phone = &p
	}
	if in.PasswordHash != "" {
		h := in.PasswordHash
		u.PasswordHash = &h
	}
	if in.Provider != "" {
		prov, uid := in.Provider, in.ProviderUID
		u.Provider, u.ProviderUID = &prov, &uid
	}

	r.s.users[u.ID] = u
	r.s.usersByMail[email] = u.ID
	return cloneUser(u), nil
}

func (r *userRepo) GetByID(_ context.Context, id string) (*repository.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*repository.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.usersByMail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneUser(r.s.users[id]), nil
}

func (r *userRepo) GetByPhone(_ context.Context, phone string) (*repository.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Phone != nil && *u.Phone == phone {
			return cloneUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepo) GetByProvider(_ context.Context, provider, providerUID string) (*repository.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Provider != nil && *u.Provider == provider &&
			u.ProviderUID != nil && *u.ProviderUID == providerUID {
			return cloneUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepo) SetEmailVerified(_ context.Context, userID string) error {
	return r.mutate(userID, func(u *repository.User) { u.EmailVerified = true })
}

func (r *userRepo) SetPhoneVerified(_ context.Context, userID string) error {
	return r.mutate(userID, func(u *repository.User) { u.PhoneVerified = true })
}

func (r *userRepo) SetPasswordHash(_ context.Context, userID, hash string) error {
	return r.mutate(userID, func(u *repository.User) { u.PasswordHash = &hash })
}

func (r *userRepo) TouchLastLogin(_ context.Context, userID string, at time.Time) error {
	return r.mutate(userID, func(u *repository.User) { u.LastLoginAt = &at })
}

func (r *userRepo) Disable(_ context.Context, userID string) error {
	now := time.Now().UTC()
	return r.mutate(userID, func(u *repository.User) {
		if u.DisabledAt == nil {
			u.DisabledAt = &now
		}
	})
}

func (r *userRepo) mutate(userID string, fn func(*repository.User)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	fn(u)
	return nil
}

func cloneUser(u *repository.User) *repository.User {
	c := *u
	return &c
}
