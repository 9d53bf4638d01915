package repository

import (
	"context"
	"time"
)

// OtpPurpose indica el propósito de un desafío OTP.
// Un solo tipo de desafío parametrizado por propósito, con configuración
// (TTL, longitud, intentos) por propósito en internal/otp.
type OtpPurpose string

const (
	OtpLoginEmail    OtpPurpose = "login_email"
	OtpLoginPhone    OtpPurpose = "login_phone"
	OtpPasswordReset OtpPurpose = "password_reset"
	OtpVerifyEmail   OtpPurpose = "verify_email"
	OtpVerifyPhone   OtpPurpose = "verify_phone"
)

// OtpChallenge representa un desafío OTP persistido.
// El código nunca se guarda en claro: solo su hash sha256.
//
// Estados: pendiente (UsedAt == nil, no expirado) y terminales
// (verificado, expirado o agotado por intentos). Un desafío terminal
// jamás vuelve a ser verificable; Attempts solo crece.
type OtpChallenge struct {
	ID        string
	UserID    *string // nil si el target aún no corresponde a un usuario
	Target    string  // email o teléfono, normalizado
	Purpose   OtpPurpose
	CodeHash  string
	Attempts  int
	ExpiresAt time.Time
	UsedAt    *time.Time // verificado o invalidado por uno más nuevo
	CreatedAt time.Time
}

// CreateOtpInput contiene los datos para crear un desafío OTP.
type CreateOtpInput struct {
	UserID    string // opcional
	Target    string
	Purpose   OtpPurpose
	CodeHash  string
	ExpiresAt time.Time
}

// OtpRepository define operaciones sobre desafíos OTP.
type OtpRepository interface {
	// Create crea un desafío nuevo, invalidando antes (UsedAt) cualquier
	// desafío pendiente para el mismo (target, purpose). A lo sumo un
	// desafío pendiente por par en todo momento.
	Create(ctx context.Context, input CreateOtpInput) (*OtpChallenge, error)

	// GetLatestPending retorna el desafío más reciente con UsedAt == nil
	// para (target, purpose); la transición por expiración la aplica el
	// engine. Retorna ErrNotFound si no hay ninguno.
	GetLatestPending(ctx context.Context, target string, purpose OtpPurpose) (*OtpChallenge, error)

	// IncrementAttempts incrementa el contador de intentos de forma atómica
	// y retorna el valor resultante. Dos verificaciones concurrentes nunca
	// observan el mismo contador.
	IncrementAttempts(ctx context.Context, id string) (int, error)

	// MarkUsed marca el desafío como usado (verificado o invalidado) solo si
	// aún no lo estaba. Retorna ErrAlreadyRevoked si ya era terminal.
	MarkUsed(ctx context.Context, id string) error

	// DeleteExpired elimina desafíos expirados o usados.
	// Retorna el número de filas eliminadas.
	DeleteExpired(ctx context.Context) (int, error)
}
