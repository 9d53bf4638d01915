package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/authcore/internal/domain/repository"
)

type deviceRepo struct{ s *Store }

func (r *deviceRepo) Upsert(_ context.Context, in repository.UpsertTrustedDeviceInput) (*repository.TrustedDevice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if in.UserID == "" || in.DeviceID == "" {
		return nil, repository.ErrInvalidInput
	}

	now := time.Now().UTC()
	key := devKey(in.UserID, in.DeviceID)
	d, ok := r.s.devices[key]
	if !ok {
		d = &repository.TrustedDevice{
			ID:        uuid.NewString(),
			UserID:    in.UserID,
			DeviceID:  in.DeviceID,
			CreatedAt: now,
		}
		r.s.devices[key] = d
	}
	d.RevokedAt = nil
	d.LastUsedAt = now
	if in.Label != "" {
		l := in.Label
		d.Label = &l
	}
	return cloneDevice(d), nil
}

func (r *deviceRepo) Get(_ context.Context, userID, deviceID string) (*repository.TrustedDevice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.devices[devKey(userID, deviceID)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneDevice(d), nil
}

func (r *deviceRepo) ListByUser(_ context.Context, userID string) ([]repository.TrustedDevice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []repository.TrustedDevice
	for _, d := range r.s.devices {
		if d.UserID == userID && d.RevokedAt == nil {
			out = append(out, *cloneDevice(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastUsedAt.After(out[j].LastUsedAt) })
	return out, nil
}

func (r *deviceRepo) TouchLastUsed(_ context.Context, userID, deviceID string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.devices[devKey(userID, deviceID)]
	if !ok {
		return repository.ErrNotFound
	}
	d.LastUsedAt = at
	return nil
}

func (r *deviceRepo) Revoke(_ context.Context, userID, deviceID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.devices[devKey(userID, deviceID)]
	if !ok {
		return repository.ErrNotFound
	}
	if d.RevokedAt == nil {
		now := time.Now().UTC()
		d.RevokedAt = &now
	}
	return nil
}

func (r *deviceRepo) RevokeAllByUser(_ context.Context, userID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now().UTC()
	n := 0
	for _, d := range r.s.devices {
		if d.UserID == userID && d.RevokedAt == nil {
			at := now
			d.RevokedAt = &at
			n++
		}
	}
	return n, nil
}

func cloneDevice(d *repository.TrustedDevice) *repository.TrustedDevice {
	c := *d
	return &c
}
