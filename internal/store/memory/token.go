package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/authcore/internal/domain/repository"
)

type tokenRepo struct{ s *Store }

func (r *tokenRepo) Create(_ context.Context, in repository.CreateRefreshTokenInput) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if in.TokenHash == "" || in.UserID == "" {
		return "", repository.ErrInvalidInput
	}
	if _, dup := r.s.tokenByHash[in.TokenHash]; dup {
		return "", repository.ErrConflict
	}

	t := &repository.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    in.UserID,
		TokenHash: in.TokenHash,
		IssuedAt:  time.Now().UTC(),
		ExpiresAt: in.ExpiresAt,
	}
	if in.SessionID != "" {
		sid := in.SessionID
		t.SessionID = &sid
	}
	if in.RotatedFrom != "" {
		rf := in.RotatedFrom
		t.RotatedFrom = &rf
	}
	r.s.tokens[t.ID] = t
	r.s.tokenByHash[t.TokenHash] = t.ID
	return t.ID, nil
}

func (r *tokenRepo) GetByHash(_ context.Context, tokenHash string) (*repository.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.tokenByHash[tokenHash]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneToken(r.s.tokens[id]), nil
}

// RevokeActive: la condición y la mutación ocurren bajo el mismo lock, así
// que exactamente un caller concurrente observa el token activo.
func (r *tokenRepo) RevokeActive(_ context.Context, tokenHash, reason string) (*repository.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	id, ok := r.s.tokenByHash[tokenHash]
	if !ok {
		return nil, repository.ErrNotFound
	}
	t := r.s.tokens[id]
	if t.RevokedAt != nil {
		return cloneToken(t), repository.ErrAlreadyRevoked
	}
	prev := cloneToken(t)
	now := time.Now().UTC()
	t.RevokedAt = &now
	t.RevokeReason = &reason
	return prev, nil
}

func (r *tokenRepo) Revoke(_ context.Context, tokenID, reason string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tokens[tokenID]
	if !ok {
		return repository.ErrNotFound
	}
	if t.RevokedAt == nil {
		now := time.Now().UTC()
		t.RevokedAt = &now
		t.RevokeReason = &reason
	}
	return nil
}

func (r *tokenRepo) RevokeAllByUser(_ context.Context, userID, reason string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.revokeAllLocked(userID, "", reason), nil
}

func (r *tokenRepo) RevokeAllByUserExceptSession(_ context.Context, userID, sessionID, reason string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.revokeAllLocked(userID, sessionID, reason), nil
}

func (r *tokenRepo) revokeAllLocked(userID, keepSessionID, reason string) int {
	now := time.Now().UTC()
	n := 0
	for _, t := range r.s.tokens {
		if t.UserID != userID || t.RevokedAt != nil {
			continue
		}
		if keepSessionID != "" && t.SessionID != nil && *t.SessionID == keepSessionID {
			continue
		}
		t.RevokedAt = &now
		rsn := reason
		t.RevokeReason = &rsn
		n++
	}
	return n
}

func (r *tokenRepo) DeleteExpired(_ context.Context, keep time.Duration) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now().UTC()
	n := 0
	for id, t := range r.s.tokens {
		expired := now.After(t.ExpiresAt)
		revokedOld := t.RevokedAt != nil && now.Sub(*t.RevokedAt) > keep
		if expired || revokedOld {
			delete(r.s.tokenByHash, t.TokenHash)
			delete(r.s.tokens, id)
			n++
		}
	}
	return n, nil
}

func cloneToken(t *repository.RefreshToken) *repository.RefreshToken {
	c := *t
	return &c
}
