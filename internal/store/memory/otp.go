package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/authcore/internal/domain/repository"
)

type otpRepo struct{ s *Store }

func (r *otpRepo) Create(_ context.Context, in repository.CreateOtpInput) (*repository.OtpChallenge, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if in.Target == "" || in.CodeHash == "" {
		return nil, repository.ErrInvalidInput
	}

	now := time.Now().UTC()
	// invalidar pendientes previos del mismo (target, purpose)
	for _, ch := range r.s.otps {
		if ch.Target == in.Target && ch.Purpose == in.Purpose && ch.UsedAt == nil {
			at := now
			ch.UsedAt = &at
		}
	}

	ch := &repository.OtpChallenge{
		ID:        uuid.NewString(),
		Target:    in.Target,
		Purpose:   in.Purpose,
		CodeHash:  in.CodeHash,
		ExpiresAt: in.ExpiresAt,
		CreatedAt: now,
	}
	if in.UserID != "" {
		uid := in.UserID
		ch.UserID = &uid
	}
	r.s.otps = append(r.s.otps, ch)
	return cloneOtp(ch), nil
}

func (r *otpRepo) GetLatestPending(_ context.Context, target string, purpose repository.OtpPurpose) (*repository.OtpChallenge, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := len(r.s.otps) - 1; i >= 0; i-- {
		ch := r.s.otps[i]
		if ch.Target == target && ch.Purpose == purpose && ch.UsedAt == nil {
			return cloneOtp(ch), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *otpRepo) IncrementAttempts(_ context.Context, id string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, ch := range r.s.otps {
		if ch.ID == id {
			ch.Attempts++
			return ch.Attempts, nil
		}
	}
	return 0, repository.ErrNotFound
}

func (r *otpRepo) MarkUsed(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, ch := range r.s.otps {
		if ch.ID == id {
			if ch.UsedAt != nil {
				return repository.ErrAlreadyRevoked
			}
			now := time.Now().UTC()
			ch.UsedAt = &now
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *otpRepo) DeleteExpired(_ context.Context) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now().UTC()
	kept := r.s.otps[:0]
	n := 0
	for _, ch := range r.s.otps {
		if ch.UsedAt != nil || now.After(ch.ExpiresAt) {
			n++
			continue
		}
		kept = append(kept, ch)
	}
	r.s.otps = kept
	return n, nil
}

func cloneOtp(ch *repository.OtpChallenge) *repository.OtpChallenge {
	c := *ch
	return &c
}
