package auth

import (
	"errors"
	"net/http"

	dto "github.com/dropDatabas3/authcore/internal/http/dto/auth"
	httperrors "github.com/dropDatabas3/authcore/internal/http/errors"
	"github.com/dropDatabas3/authcore/internal/http/helpers"
	svc "github.com/dropDatabas3/authcore/internal/http/services/auth"
	"github.com/dropDatabas3/authcore/internal/observability/logger"
)

// LoginController maneja los logins por contraseña y federados.
type LoginController struct {
	service svc.LoginService
}

// NewLoginController crea el controller de login.
func NewLoginController(service svc.LoginService) *LoginController {
	return &LoginController{service: service}
}

// Login maneja POST /v1/auth/login
func (c *LoginController) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("LoginController.Login"))

	var req dto.LoginRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	result, err := c.service.LoginPassword(ctx, req, requestMeta(r))
	if err != nil {
		log.Debug("login failed", logger.Err(err))
		writeLoginError(w, err)
		return
	}

	helpers.WriteJSON(w, http.StatusOK, result)
}

// Federated maneja POST /v1/auth/login/federated
func (c *LoginController) Federated(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("LoginController.Federated"))

	var req dto.FederatedLoginRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	result, err := c.service.LoginFederated(ctx, req, requestMeta(r))
	if err != nil {
		log.Debug("federated login failed", logger.Err(err))
		writeLoginError(w, err)
		return
	}

	helpers.WriteJSON(w, http.StatusOK, result)
}

// requestMeta extrae IP y user agent del request.
func requestMeta(r *http.Request) svc.RequestMeta {
	return svc.RequestMeta{
		IPAddress: helpers.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
}

// ─── Error Mapping ───

func writeLoginError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, svc.ErrMissingFields):
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("email y password son obligatorios"))

	case errors.Is(err, svc.ErrInvalidCredentials):
		httperrors.WriteError(w, httperrors.ErrInvalidCredentials)

	case errors.Is(err, svc.ErrUserDisabled):
		httperrors.WriteError(w, httperrors.ErrAccountDisabled)

	case errors.Is(err, svc.ErrUnknownProvider):
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("proveedor no soportado"))

	case errors.Is(err, svc.ErrProviderConflict):
		httperrors.WriteError(w, httperrors.ErrEmailAlreadyInUse.WithDetail("el email ya está registrado con otro método"))

	default:
		httperrors.WriteError(w, err)
	}
}
