// Package federation resuelve identidades externas: dado un access token
// emitido por un proveedor (Google, GitHub), obtiene el UID y el email
// verificados contra la API del proveedor. El servicio nunca confía en un
// UID declarado por el cliente cuando hay token para verificar.
package federation

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// Errores de verificación
var (
	ErrUnknownProvider = errors.New("federation: unknown provider")
	ErrTokenRejected   = errors.New("federation: provider rejected the token")
	ErrNoEmail         = errors.New("federation: no email available")
)

// Identity es la identidad confirmada por el proveedor.
type Identity struct {
	Provider string
	UID      string
	Email    string
}

// Provider verifica access tokens contra la API de un proveedor concreto.
type Provider interface {
	Name() string
	// Identity valida el token y retorna la identidad del dueño.
	Identity(ctx context.Context, accessToken string) (*Identity, error)
}

// Registry indexa proveedores por nombre.
type Registry map[string]Provider

// NewRegistry registra los proveedores soportados.
func NewRegistry(providers ...Provider) Registry {
	r := make(Registry, len(providers))
	for _, p := range providers {
		r[p.Name()] = p
	}
	return r
}

// Resolve busca el proveedor y verifica el token.
func (r Registry) Resolve(ctx context.Context, provider, accessToken string) (*Identity, error) {
	p, ok := r[provider]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return p.Identity(ctx, accessToken)
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}
