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

// RefreshController maneja la rotación de refresh tokens y el logout.
type RefreshController struct {
	service svc.RefreshService
}

// NewRefreshController crea el controller de refresh.
func NewRefreshController(service svc.RefreshService) *RefreshController {
	return &RefreshController{service: service}
}

// Refresh maneja POST /v1/auth/refresh
func (c *RefreshController) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("RefreshController.Refresh"))

	var req dto.RefreshRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	result, err := c.service.Refresh(ctx, req)
	if err != nil {
		log.Debug("refresh failed", logger.Err(err))
		writeRefreshError(w, err)
		return
	}

	helpers.WriteJSON(w, http.StatusOK, result)
}

// Logout maneja POST /v1/auth/logout
func (c *RefreshController) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req dto.LogoutRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	if err := c.service.Logout(ctx, req); err != nil {
		logger.From(ctx).Debug("logout failed",
			logger.Layer("controller"),
			logger.Err(err),
		)
		httperrors.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ─── Error Mapping ───

func writeRefreshError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, svc.ErrRefreshInvalid):
		httperrors.WriteError(w, httperrors.ErrRefreshTokenInvalid)

	case errors.Is(err, svc.ErrRefreshReused):
		// misma respuesta que un token inválido: no se le confirma al
		// portador que disparó una revocación masiva
		httperrors.WriteError(w, httperrors.ErrRefreshTokenInvalid)

	case errors.Is(err, svc.ErrUserDisabled):
		httperrors.WriteError(w, httperrors.ErrAccountDisabled)

	default:
		httperrors.WriteError(w, err)
	}
}
