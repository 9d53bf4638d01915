// Package health reporta el estado del proceso y de sus dependencias.
package health

import (
	"context"
	"time"

	"github.com/dropDatabas3/authcore/internal/cache"
	dto "github.com/dropDatabas3/authcore/internal/http/dto/health"
	"github.com/dropDatabas3/authcore/internal/store"
)

const pingTimeout = 2 * time.Second

// Service expone los chequeos de salud.
type Service interface {
	// Live responde si el proceso está vivo. No toca dependencias.
	Live() *dto.HealthResponse

	// Ready verifica store y cache. El booleano indica si el servicio
	// puede recibir tráfico.
	Ready(ctx context.Context) (*dto.HealthResponse, bool)
}

// Deps contiene las dependencias del servicio.
type Deps struct {
	Store   store.Store
	Cache   cache.Client
	Version string
}

type service struct {
	deps Deps
}

// NewService crea el servicio de salud.
func NewService(deps Deps) Service {
	return &service{deps: deps}
}

func (s *service) Live() *dto.HealthResponse {
	return &dto.HealthResponse{Status: "ok", Version: s.deps.Version}
}

func (s *service) Ready(ctx context.Context) (*dto.HealthResponse, bool) {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	out := &dto.HealthResponse{Status: "ok", Version: s.deps.Version}
	ready := true

	storage := dto.ComponentStatus{Name: "storage", Status: "ok"}
	if err := s.deps.Store.Ping(ctx); err != nil {
		storage.Status = "down"
		storage.Detail = err.Error()
		ready = false
	}
	out.Components = append(out.Components, storage)

	if s.deps.Cache != nil {
		c := dto.ComponentStatus{Name: "cache", Status: "ok"}
		if err := s.deps.Cache.Ping(ctx); err != nil {
			// el cache es acelerador, no dependencia dura
			c.Status = "degraded"
			c.Detail = err.Error()
		}
		out.Components = append(out.Components, c)
	}

	if !ready {
		out.Status = "down"
	}
	return out, ready
}
