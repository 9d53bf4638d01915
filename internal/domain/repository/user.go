package repository

import (
	"context"
	"time"
)

// Role es el rol de un usuario dentro del sistema. Enumeración cerrada.
type Role string

const (
	RoleUser            Role = "USER"
	RoleServiceProvider Role = "SERVICE_PROVIDER"
	RoleAdmin           Role = "ADMIN"
	RoleSupport         Role = "SUPPORT"
	RoleITAdmin         Role = "IT_ADMIN"
)

// ValidRole verifica que el rol pertenezca a la enumeración.
func ValidRole(r Role) bool {
	switch r {
	case RoleUser, RoleServiceProvider, RoleAdmin, RoleSupport, RoleITAdmin:
		return true
	}
	return false
}

// User representa un usuario del sistema.
//
// PasswordHash es nil para cuentas solo-federadas. Para que un login por
// password tenga éxito debe existir el hash; para login federado debe existir
// (Provider, ProviderUID). Los usuarios nunca se borran físicamente: se
// desactivan con DisabledAt.
type User struct {
	ID            string
	Email         string
	Phone         *string
	PasswordHash  *string
	Role          Role
	EmailVerified bool
	PhoneVerified bool
	Provider      *string // "google", "github", ... nil si no es federado
	ProviderUID   *string
	LastLoginAt   *time.Time
	DisabledAt    *time.Time
	CreatedAt     time.Time
}

// IsActive indica si la cuenta puede autenticarse.
func (u *User) IsActive() bool { return u.DisabledAt == nil }

// CreateUserInput contiene los datos para crear un usuario.
type CreateUserInput struct {
	Email        string
	Phone        string
	PasswordHash string // vacío para cuentas federadas
	Role         Role
	Provider     string
	ProviderUID  string
}

// UserRepository define operaciones sobre usuarios.
type UserRepository interface {
	// Create crea un usuario. Retorna ErrConflict si el email (o phone) ya existe.
	Create(ctx context.Context, input CreateUserInput) (*User, error)

	// GetByID busca un usuario por ID. Retorna ErrNotFound si no existe.
	GetByID(ctx context.Context, id string) (*User, error)

	// GetByEmail busca un usuario por email (case-insensitive).
	// Retorna ErrNotFound si no existe.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByPhone busca un usuario por teléfono. Retorna ErrNotFound si no existe.
	GetByPhone(ctx context.Context, phone string) (*User, error)

	// GetByProvider busca un usuario federado por (provider, providerUID).
	GetByProvider(ctx context.Context, provider, providerUID string) (*User, error)

	// SetEmailVerified marca el email como verificado.
	SetEmailVerified(ctx context.Context, userID string) error

	// SetPhoneVerified marca el teléfono como verificado.
	SetPhoneVerified(ctx context.Context, userID string) error

	// SetPasswordHash reemplaza el hash de password (reset de contraseña).
	SetPasswordHash(ctx context.Context, userID, hash string) error

	// TouchLastLogin actualiza el timestamp de último login. Best-effort.
	TouchLastLogin(ctx context.Context, userID string, at time.Time) error

	// Disable desactiva la cuenta (soft-delete). Idempotente.
	Disable(ctx context.Context, userID string) error
}
