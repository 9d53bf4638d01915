// Package auth agrupa los servicios del flujo de autenticación: login por
// contraseña, OTP y federado, registro, rotación de refresh, logout y
// recuperación de contraseña.
package auth

import (
	"time"

	"github.com/dropDatabas3/authcore/internal/federation"
	"github.com/dropDatabas3/authcore/internal/http/services/otp"
	"github.com/dropDatabas3/authcore/internal/http/services/session"
	jwtx "github.com/dropDatabas3/authcore/internal/jwt"
	"github.com/dropDatabas3/authcore/internal/security/password"
	"github.com/dropDatabas3/authcore/internal/store"
)

// Deps contiene las dependencias compartidas por los servicios de auth.
type Deps struct {
	Store      store.Store
	Codec      *jwtx.Codec
	Sessions   session.Service
	Otp        otp.Service
	Policy     password.Policy
	Federation federation.Registry
	RefreshTTL time.Duration
}

// Services agrupa los servicios del dominio auth.
type Services struct {
	Login    LoginService
	Register RegisterService
	Refresh  RefreshService
	Reset    ResetService
}

// New construye los servicios de auth con dependencias compartidas.
func New(deps Deps) *Services {
	return &Services{
		Login:    NewLoginService(deps),
		Register: NewRegisterService(deps),
		Refresh:  NewRefreshService(deps),
		Reset:    NewResetService(deps),
	}
}
