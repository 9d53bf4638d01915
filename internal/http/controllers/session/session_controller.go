// Package session contiene los controllers de sesiones y dispositivos.
package session

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	dto "github.com/dropDatabas3/authcore/internal/http/dto/session"
	httperrors "github.com/dropDatabas3/authcore/internal/http/errors"
	"github.com/dropDatabas3/authcore/internal/http/helpers"
	"github.com/dropDatabas3/authcore/internal/http/middlewares"
	svc "github.com/dropDatabas3/authcore/internal/http/services/session"
	"github.com/dropDatabas3/authcore/internal/observability/logger"
)

// Controller maneja las operaciones de sesiones del usuario autenticado.
type Controller struct {
	service svc.Service
}

// NewController crea el controller de sesiones.
func NewController(service svc.Service) *Controller {
	return &Controller{service: service}
}

// List maneja GET /v1/sessions
func (c *Controller) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middlewares.GetUserID(ctx)
	if userID == "" {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	result, err := c.service.List(ctx, userID, r.Header.Get("X-Device-ID"))
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, result)
}

// Revoke maneja DELETE /v1/sessions/{id}
func (c *Controller) Revoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middlewares.GetUserID(ctx)
	if userID == "" {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}
	sessionID := chi.URLParam(r, "id")
	if sessionID == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("session id requerido"))
		return
	}

	if err := c.service.Revoke(ctx, userID, sessionID); err != nil {
		logger.From(ctx).Debug("session revoke failed",
			logger.Layer("controller"),
			logger.Err(err),
		)
		writeSessionError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.RevokeResult{Revoked: 1})
}

// RevokeAll maneja DELETE /v1/sessions
func (c *Controller) RevokeAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middlewares.GetUserID(ctx)
	if userID == "" {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	n, err := c.service.RevokeAll(ctx, userID, "user_revoked")
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.RevokeResult{Revoked: n})
}

// RevokeOthers maneja POST /v1/sessions/revoke-others
func (c *Controller) RevokeOthers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middlewares.GetUserID(ctx)
	if userID == "" {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}
	deviceID := r.Header.Get("X-Device-ID")
	if deviceID == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("header X-Device-ID requerido"))
		return
	}

	n, err := c.service.RevokeOthers(ctx, userID, deviceID)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.RevokeResult{Revoked: n})
}

// ListDevices maneja GET /v1/devices
func (c *Controller) ListDevices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middlewares.GetUserID(ctx)
	if userID == "" {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	result, err := c.service.ListDevices(ctx, userID)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, result)
}

// Trust maneja POST /v1/devices/trust
func (c *Controller) Trust(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middlewares.GetUserID(ctx)
	if userID == "" {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	var req dto.TrustRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if req.DeviceID == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("device_id es obligatorio"))
		return
	}

	dev, err := c.service.Trust(ctx, userID, req.DeviceID, req.Label)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dev)
}

// Untrust maneja DELETE /v1/devices/{id}
func (c *Controller) Untrust(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middlewares.GetUserID(ctx)
	if userID == "" {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}
	deviceID := chi.URLParam(r, "id")
	if deviceID == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("device id requerido"))
		return
	}

	if err := c.service.Untrust(ctx, userID, deviceID); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Error Mapping ───

func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, svc.ErrSessionNotFound):
		httperrors.WriteError(w, httperrors.ErrSessionNotFound)

	case errors.Is(err, svc.ErrNotOwner):
		// al dueño de otra sesión se le responde como si no existiera
		httperrors.WriteError(w, httperrors.ErrSessionNotFound)

	default:
		httperrors.WriteError(w, err)
	}
}
