// Package health contiene los DTOs de health check.
package health

// ComponentStatus describe el estado de un componente individual.
type ComponentStatus struct {
	Name   string `json:"name"`
	Status string `json:"status"` // ok | degraded | unavailable
	Detail string `json:"detail,omitempty"`
}

// HealthResponse es la respuesta de GET /readyz.
type HealthResponse struct {
	Status     string            `json:"status"` // ready | degraded | unavailable
	Version    string            `json:"version,omitempty"`
	Components []ComponentStatus `json:"components,omitempty"`
}
