// Package otp contiene los controllers del flujo OTP.
package otp

import (
	"errors"
	"net/http"

	"github.com/dropDatabas3/authcore/internal/domain/repository"
	dto "github.com/dropDatabas3/authcore/internal/http/dto/otp"
	httperrors "github.com/dropDatabas3/authcore/internal/http/errors"
	"github.com/dropDatabas3/authcore/internal/http/helpers"
	authsvc "github.com/dropDatabas3/authcore/internal/http/services/auth"
	svc "github.com/dropDatabas3/authcore/internal/http/services/otp"
	"github.com/dropDatabas3/authcore/internal/observability/logger"
)

// Controller maneja la emisión y verificación de códigos OTP.
type Controller struct {
	service svc.Service
	login   authsvc.LoginService
}

// NewController crea el controller OTP. Los propósitos de login delegan la
// verificación en el servicio de login para que además abra sesión.
func NewController(service svc.Service, login authsvc.LoginService) *Controller {
	return &Controller{service: service, login: login}
}

// Request maneja POST /v1/otp/request
func (c *Controller) Request(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("OtpController.Request"))

	var req dto.RequestOtpRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	result, err := c.service.Request(ctx, req)
	if err != nil {
		log.Debug("otp request failed", logger.Err(err))
		writeOtpError(w, err)
		return
	}

	helpers.WriteJSON(w, http.StatusOK, result)
}

// Verify maneja POST /v1/otp/verify
func (c *Controller) Verify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("OtpController.Verify"))

	var req dto.VerifyOtpRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	purpose, err := svc.ParsePurpose(req.Purpose)
	if err != nil {
		writeOtpError(w, err)
		return
	}

	// los propósitos de login abren sesión además de verificar
	if purpose == repository.OtpLoginEmail || purpose == repository.OtpLoginPhone {
		meta := authsvc.RequestMeta{IPAddress: helpers.ClientIP(r), UserAgent: r.UserAgent()}
		login, err := c.login.LoginOtp(ctx, req.Target, purpose, req.Code, req.Device, meta)
		if err != nil {
			log.Debug("otp login failed", logger.Err(err))
			writeOtpError(w, err)
			return
		}
		helpers.WriteJSON(w, http.StatusOK, dto.VerifyOtpResult{Verified: true, Login: login})
		return
	}

	if _, err := c.service.Verify(ctx, req.Target, purpose, req.Code); err != nil {
		log.Debug("otp verify failed", logger.Err(err))
		writeOtpError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.VerifyOtpResult{Verified: true})
}

// ─── Error Mapping ───

func writeOtpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, svc.ErrInvalidPurpose), errors.Is(err, svc.ErrInvalidTarget):
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("target o purpose inválido"))

	case errors.Is(err, svc.ErrCooldown):
		httperrors.WriteError(w, httperrors.ErrOtpCooldown)

	case errors.Is(err, svc.ErrCodeExpired):
		httperrors.WriteError(w, httperrors.ErrOtpExpired)

	case errors.Is(err, svc.ErrCodeExhausted):
		httperrors.WriteError(w, httperrors.ErrOtpExhausted)

	case errors.Is(err, svc.ErrCodeInvalid), errors.Is(err, svc.ErrUserNotFound):
		httperrors.WriteError(w, httperrors.ErrOtpInvalid)

	case errors.Is(err, authsvc.ErrInvalidCredentials):
		httperrors.WriteError(w, httperrors.ErrInvalidCredentials)

	case errors.Is(err, authsvc.ErrUserDisabled):
		httperrors.WriteError(w, httperrors.ErrAccountDisabled)

	default:
		httperrors.WriteError(w, err)
	}
}
