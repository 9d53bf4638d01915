// Package health contiene los controllers de liveness y readiness.
package health

import (
	"net/http"

	"github.com/dropDatabas3/authcore/internal/http/helpers"
	svc "github.com/dropDatabas3/authcore/internal/http/services/health"
)

// Controller maneja los endpoints de salud.
type Controller struct {
	service svc.Service
}

// NewController crea el controller de salud.
func NewController(service svc.Service) *Controller {
	return &Controller{service: service}
}

// Live maneja GET /healthz
func (c *Controller) Live(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, c.service.Live())
}

// Ready maneja GET /readyz
func (c *Controller) Ready(w http.ResponseWriter, r *http.Request) {
	result, ready := c.service.Ready(r.Context())
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	helpers.WriteJSON(w, status, result)
}
