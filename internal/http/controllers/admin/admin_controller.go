// Package admin contiene los controllers de administración de cuentas.
package admin

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	httperrors "github.com/dropDatabas3/authcore/internal/http/errors"
	"github.com/dropDatabas3/authcore/internal/http/helpers"
	svc "github.com/dropDatabas3/authcore/internal/http/services/admin"
	"github.com/dropDatabas3/authcore/internal/observability/logger"
)

// Controller maneja las operaciones administrativas. El router lo monta
// detrás de RequireAuth + RequireRole.
type Controller struct {
	service svc.Service
}

// NewController crea el controller administrativo.
func NewController(service svc.Service) *Controller {
	return &Controller{service: service}
}

// DisableUser maneja POST /v1/admin/users/{id}/disable
func (c *Controller) DisableUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "id")
	if userID == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("user id requerido"))
		return
	}

	result, err := c.service.DisableUser(ctx, userID)
	if err != nil {
		logger.From(ctx).Debug("disable user failed",
			logger.Layer("controller"),
			logger.Err(err),
		)
		writeAdminError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, result)
}

// ─── Error Mapping ───

func writeAdminError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, svc.ErrUserNotFound):
		httperrors.WriteError(w, httperrors.ErrNotFound.WithDetail("usuario no encontrado"))
	default:
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
	}
}
