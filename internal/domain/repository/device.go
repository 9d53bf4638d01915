package repository

import (
	"context"
	"time"
)

// TrustedDevice representa un dispositivo confirmado por el usuario.
// Independiente de Session: el trust sobrevive a la rotación de sesiones.
type TrustedDevice struct {
	ID         string
	UserID     string
	DeviceID   string // único por usuario
	Label      *string
	LastUsedAt time.Time
	RevokedAt  *time.Time
	CreatedAt  time.Time
}

// Trusted indica si el dispositivo sigue siendo de confianza.
func (d *TrustedDevice) Trusted() bool { return d.RevokedAt == nil }

// UpsertTrustedDeviceInput contiene los datos para confiar un dispositivo.
type UpsertTrustedDeviceInput struct {
	UserID   string
	DeviceID string
	Label    string
}

// DeviceRepository define operaciones sobre dispositivos de confianza.
type DeviceRepository interface {
	// Upsert registra o reactiva el trust de (userID, deviceID) y
	// actualiza LastUsedAt.
	Upsert(ctx context.Context, input UpsertTrustedDeviceInput) (*TrustedDevice, error)

	// Get busca el registro de trust de (userID, deviceID).
	// Retorna ErrNotFound si nunca fue confiado.
	Get(ctx context.Context, userID, deviceID string) (*TrustedDevice, error)

	// ListByUser retorna los dispositivos confiados (no revocados) del usuario.
	ListByUser(ctx context.Context, userID string) ([]TrustedDevice, error)

	// TouchLastUsed actualiza LastUsedAt. Best-effort.
	TouchLastUsed(ctx context.Context, userID, deviceID string, at time.Time) error

	// Revoke retira el trust de un dispositivo. Idempotente.
	Revoke(ctx context.Context, userID, deviceID string) error

	// RevokeAllByUser retira el trust de todos los dispositivos del usuario.
	// Retorna el número de dispositivos revocados.
	RevokeAllByUser(ctx context.Context, userID string) (int, error)
}
