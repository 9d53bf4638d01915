// Package auth contiene los controllers del flujo de autenticación.
package auth

import (
	svc "github.com/dropDatabas3/authcore/internal/http/services/auth"
)

// Controllers agrupa todos los controllers del dominio auth.
type Controllers struct {
	Login    *LoginController
	Register *RegisterController
	Refresh  *RefreshController
	Reset    *ResetController
	Me       *MeController
}

// NewControllers crea el agregador de controllers auth.
func NewControllers(s *svc.Services, users UserGetter) *Controllers {
	return &Controllers{
		Login:    NewLoginController(s.Login),
		Register: NewRegisterController(s.Register),
		Refresh:  NewRefreshController(s.Refresh),
		Reset:    NewResetController(s.Reset),
		Me:       NewMeController(users),
	}
}
