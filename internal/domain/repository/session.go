package repository

import (
	"context"
	"time"
)

// Session representa una sesión de usuario vinculada a un dispositivo.
// Una sesión es válida si no está revocada, no expiró y su refresh token
// vinculado (si lo hay) sigue activo.
type Session struct {
	ID             string
	UserID         string
	DeviceID       string
	RefreshTokenID *string

	// Metadata del cliente
	IPAddress *string
	UserAgent *string
	Platform  *string // web, ios, android, desktop, unknown

	IsTrusted bool // snapshot del trust del dispositivo al abrir la sesión

	CreatedAt    time.Time
	LastActivity time.Time
	ExpiresAt    time.Time
	RevokedAt    *time.Time
	RevokeReason *string
}

// Status calcula el estado de la sesión.
func (s *Session) Status(now time.Time) string {
	if s.RevokedAt != nil {
		return "revoked"
	}
	if now.After(s.ExpiresAt) {
		return "expired"
	}
	return "active"
}

// UpsertSessionInput contiene los datos para crear o reactivar una sesión.
type UpsertSessionInput struct {
	UserID         string
	DeviceID       string
	RefreshTokenID string
	IPAddress      string
	UserAgent      string
	Platform       string
	IsTrusted      bool
	ExpiresAt      time.Time
}

// SessionRepository define operaciones para gestionar sesiones.
type SessionRepository interface {
	// Upsert crea la sesión o reactiva la existente para (userID, deviceID),
	// re-vinculando el refresh token actual y limpiando la revocación previa.
	Upsert(ctx context.Context, input UpsertSessionInput) (*Session, error)

	// Get obtiene una sesión por ID. Retorna ErrNotFound si no existe.
	Get(ctx context.Context, id string) (*Session, error)

	// ListActiveByUser retorna las sesiones activas de un usuario,
	// la más reciente primero.
	ListActiveByUser(ctx context.Context, userID string) ([]Session, error)

	// LinkRefreshToken vincula la sesión con su refresh token vigente.
	// Se llama al abrir la sesión y en cada rotación.
	LinkRefreshToken(ctx context.Context, id, refreshTokenID string) error

	// UpdateActivity actualiza el timestamp de última actividad. Best-effort.
	UpdateActivity(ctx context.Context, id string, lastActivity time.Time) error

	// Revoke marca una sesión como revocada. Idempotente.
	Revoke(ctx context.Context, id, reason string) error

	// RevokeAllByUser revoca todas las sesiones activas de un usuario.
	// Retorna el número de sesiones revocadas.
	RevokeAllByUser(ctx context.Context, userID, reason string) (int, error)

	// RevokeAllByUserExceptDevice revoca todas las sesiones activas del
	// usuario salvo la del dispositivo indicado.
	RevokeAllByUserExceptDevice(ctx context.Context, userID, deviceID, reason string) (int, error)

	// DeleteExpired elimina sesiones expiradas o revocadas.
	// Retorna el número de filas eliminadas.
	DeleteExpired(ctx context.Context) (int, error)
}
