package repository

import (
	"context"
	"time"
)

// Razones de revocación de un refresh token. "rotated" es especial: una
// segunda presentación de un token revocado por rotación es señal de robo.
const (
	RevokeReasonRotated = "rotated"
	RevokeReasonLogout  = "logout"
	RevokeReasonExpired = "expired"
	RevokeReasonReuse   = "reuse"
	RevokeReasonAdmin   = "admin"
	RevokeReasonSession = "session_revoked"
)

// RefreshToken representa un token de refresco persistido.
// El token crudo nunca se guarda: solo su hash sha256.
type RefreshToken struct {
	ID           string
	UserID       string
	SessionID    *string
	TokenHash    string
	IssuedAt     time.Time
	ExpiresAt    time.Time
	RotatedFrom  *string // ID del token al que sucede, nil para el primero de la cadena
	RevokedAt    *time.Time
	RevokeReason *string
}

// Active indica si el token puede ser rotado.
func (t *RefreshToken) Active(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

// CreateRefreshTokenInput contiene los datos para crear un refresh token.
type CreateRefreshTokenInput struct {
	UserID      string
	SessionID   string // opcional
	TokenHash   string
	ExpiresAt   time.Time
	RotatedFrom string // opcional: ID del token que rota
}

// TokenRepository define operaciones sobre refresh tokens.
type TokenRepository interface {
	// Create crea un nuevo refresh token. Retorna el ID del token creado.
	Create(ctx context.Context, input CreateRefreshTokenInput) (string, error)

	// GetByHash busca un token por su hash. Retorna ErrNotFound si no existe.
	GetByHash(ctx context.Context, tokenHash string) (*RefreshToken, error)

	// RevokeActive revoca el token con ese hash SOLO si sigue activo, en una
	// única operación condicional, y retorna el estado previo a la revocación.
	//
	// Resultados:
	//   - token activo:       lo revoca con reason y retorna el registro (winner)
	//   - token ya revocado:  retorna el registro tal cual y ErrAlreadyRevoked
	//   - token inexistente:  retorna ErrNotFound
	//
	// Dos llamadas concurrentes sobre el mismo hash: exactamente una gana.
	RevokeActive(ctx context.Context, tokenHash, reason string) (*RefreshToken, error)

	// Revoke revoca un token por ID sin condición. Idempotente.
	Revoke(ctx context.Context, tokenID, reason string) error

	// RevokeAllByUser revoca todos los tokens activos de un usuario.
	// Retorna el número de tokens revocados.
	RevokeAllByUser(ctx context.Context, userID, reason string) (int, error)

	// RevokeAllByUserExceptSession revoca todos los tokens activos del usuario
	// salvo el vinculado a la sesión indicada.
	RevokeAllByUserExceptSession(ctx context.Context, userID, sessionID, reason string) (int, error)

	// DeleteExpired elimina tokens expirados o revocados hace más de keep.
	// Retorna el número de filas eliminadas.
	DeleteExpired(ctx context.Context, keep time.Duration) (int, error)
}
