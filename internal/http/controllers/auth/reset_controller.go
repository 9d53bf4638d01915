package auth

import (
	"errors"
	"net/http"

	dto "github.com/dropDatabas3/authcore/internal/http/dto/auth"
	httperrors "github.com/dropDatabas3/authcore/internal/http/errors"
	"github.com/dropDatabas3/authcore/internal/http/helpers"
	svc "github.com/dropDatabas3/authcore/internal/http/services/auth"
	otpsvc "github.com/dropDatabas3/authcore/internal/http/services/otp"
	"github.com/dropDatabas3/authcore/internal/observability/logger"
)

// ResetController maneja la recuperación de contraseña.
type ResetController struct {
	service svc.ResetService
}

// NewResetController crea el controller de reseteo.
func NewResetController(service svc.ResetService) *ResetController {
	return &ResetController{service: service}
}

// Request maneja POST /v1/auth/reset/request
func (c *ResetController) Request(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req dto.ResetRequestRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	result, err := c.service.Request(ctx, req)
	if err != nil {
		logger.From(ctx).Debug("reset request failed",
			logger.Layer("controller"),
			logger.Err(err),
		)
		writeResetError(w, err)
		return
	}

	helpers.WriteJSON(w, http.StatusOK, result)
}

// Confirm maneja POST /v1/auth/reset/confirm
func (c *ResetController) Confirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req dto.ResetConfirmRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	if err := c.service.Confirm(ctx, req); err != nil {
		logger.From(ctx).Debug("reset confirm failed",
			logger.Layer("controller"),
			logger.Err(err),
		)
		writeResetError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ─── Error Mapping ───

func writeResetError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, svc.ErrResetInvalid), errors.Is(err, otpsvc.ErrUserNotFound):
		httperrors.WriteError(w, httperrors.ErrOtpInvalid)

	case errors.Is(err, svc.ErrWeakPassword):
		httperrors.WriteError(w, httperrors.ErrPasswordTooWeak.WithDetail(err.Error()))

	case errors.Is(err, otpsvc.ErrCodeExpired):
		httperrors.WriteError(w, httperrors.ErrOtpExpired)

	case errors.Is(err, otpsvc.ErrCodeExhausted):
		httperrors.WriteError(w, httperrors.ErrOtpExhausted)

	case errors.Is(err, otpsvc.ErrCodeInvalid):
		httperrors.WriteError(w, httperrors.ErrOtpInvalid)

	case errors.Is(err, otpsvc.ErrCooldown):
		httperrors.WriteError(w, httperrors.ErrOtpCooldown)

	default:
		httperrors.WriteError(w, err)
	}
}
