package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/authcore/internal/domain/repository"
)

type sessionRepo struct{ s *Store }

func (r *sessionRepo) Upsert(_ context.Context, in repository.UpsertSessionInput) (*repository.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if in.UserID == "" || in.DeviceID == "" {
		return nil, repository.ErrInvalidInput
	}

	now := time.Now().UTC()
	key := devKey(in.UserID, in.DeviceID)

	var sess *repository.Session
	if id, ok := r.s.sessionByDev[key]; ok {
		// reactivar la sesión existente del dispositivo
		sess = r.s.sessions[id]
		sess.RevokedAt = nil
		sess.RevokeReason = nil
	} else {
		sess = &repository.Session{
			ID:        uuid.NewString(),
			UserID:    in.UserID,
			DeviceID:  in.DeviceID,
			CreatedAt: now,
		}
		r.s.sessions[sess.ID] = sess
		r.s.sessionByDev[key] = sess.ID
	}

	if in.RefreshTokenID != "" {
		rt := in.RefreshTokenID
		sess.RefreshTokenID = &rt
	}
	setOpt(&sess.IPAddress, in.IPAddress)
	setOpt(&sess.UserAgent, in.UserAgent)
	setOpt(&sess.Platform, in.Platform)
	sess.IsTrusted = in.IsTrusted
	sess.LastActivity = now
	sess.ExpiresAt = in.ExpiresAt
	return cloneSession(sess), nil
}

func (r *sessionRepo) Get(_ context.Context, id string) (*repository.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneSession(sess), nil
}

func (r *sessionRepo) ListActiveByUser(_ context.Context, userID string) ([]repository.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now().UTC()
	var out []repository.Session
	for _, sess := range r.s.sessions {
		if sess.UserID == userID && sess.Status(now) == "active" {
			out = append(out, *cloneSession(sess))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActivity.After(out[j].LastActivity) })
	return out, nil
}

func (r *sessionRepo) LinkRefreshToken(_ context.Context, id, refreshTokenID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[id]
	if !ok {
		return repository.ErrNotFound
	}
	rt := refreshTokenID
	sess.RefreshTokenID = &rt
	return nil
}

func (r *sessionRepo) UpdateActivity(_ context.Context, id string, lastActivity time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[id]
	if !ok {
		return repository.ErrNotFound
	}
	sess.LastActivity = lastActivity
	return nil
}

func (r *sessionRepo) Revoke(_ context.Context, id, reason string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[id]
	if !ok {
		return repository.ErrNotFound
	}
	revokeSessionLocked(sess, reason)
	return nil
}

func (r *sessionRepo) RevokeAllByUser(_ context.Context, userID, reason string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, sess := range r.s.sessions {
		if sess.UserID == userID && sess.RevokedAt == nil {
			revokeSessionLocked(sess, reason)
			n++
		}
	}
	return n, nil
}

func (r *sessionRepo) RevokeAllByUserExceptDevice(_ context.Context, userID, deviceID, reason string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, sess := range r.s.sessions {
		if sess.UserID == userID && sess.DeviceID != deviceID && sess.RevokedAt == nil {
			revokeSessionLocked(sess, reason)
			n++
		}
	}
	return n, nil
}

func (r *sessionRepo) DeleteExpired(_ context.Context) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now().UTC()
	n := 0
	for id, sess := range r.s.sessions {
		if sess.RevokedAt != nil || now.After(sess.ExpiresAt) {
			delete(r.s.sessionByDev, devKey(sess.UserID, sess.DeviceID))
			delete(r.s.sessions, id)
			n++
		}
	}
	return n, nil
}

func revokeSessionLocked(sess *repository.Session, reason string) {
	now := time.Now().UTC()
	sess.RevokedAt = &now
	sess.RevokeReason = &reason
}

func setOpt(dst **string, v string) {
	if v != "" {
		s := v
		*dst = &s
	}
}

func cloneSession(s *repository.Session) *repository.Session {
	c := *s
	return &c
}
