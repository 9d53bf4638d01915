// Package rate implementa admission control por (clientKey, categoría) con
// buckets que se rellenan por tiempo transcurrido.
//
// El estado en memoria es local al proceso: en despliegues multi-instancia
// cada instancia limita por separado (limitación de escalado conocida, no un
// defecto). Para límite compartido existe RedisLimiter detrás de la misma
// interfaz, sin tocar call sites.
package rate

import (
	"context"
	"sync"
	"time"
)

// Category clasifica el endpoint. La clasificación por path la decide el
// caller (router) antes de consultar el limiter.
type Category string

const (
	CategoryAuth    Category = "auth"    // endpoints de autenticación (estricto)
	CategoryOTP     Category = "otp"     // emisión/verificación OTP (el más estricto)
	CategoryGeneral Category = "general" // API general (laxo)
)

// Limit es capacidad C por ventana W: el bucket arranca lleno con C y se
// rellena a razón de C por W.
type Limit struct {
	Capacity int
	Window   time.Duration
}

// Result contiene el resultado de una consulta al limiter.
type Result struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

// Limiter define la interfaz mínima de admission control.
// Ante ambigüedad (error de backend) el caller debe fallar cerrado.
type Limiter interface {
	Allow(ctx context.Context, key string, cat Category) (Result, error)
}

// ───────────────────────────────────────────────────────────────
// In-memory token bucket
// ───────────────────────────────────────────────────────────────

type bucket struct {
	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// MemoryLimiter mantiene un bucket por (key, categoría). Los buckets se
// crean lazy en el primer uso y nunca se desalojan acá: el barrido de
// buckets ociosos es responsabilidad operacional externa.
type MemoryLimiter struct {
	limits map[Category]Limit

	mu      sync.RWMutex
	buckets map[string]*bucket

	// inyectable en tests
	now func() time.Time
}

// NewMemoryLimiter crea el limiter con los límites por categoría dados.
func NewMemoryLimiter(limits map[Category]Limit) *MemoryLimiter {
	return &MemoryLimiter{
		limits:  limits,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Allow rellena el bucket según el tiempo transcurrido y descuenta un token
// si hay disponible. Atómico por bucket; buckets de claves distintas no se
// coordinan entre sí.
func (m *MemoryLimiter) Allow(_ context.Context, key string, cat Category) (Result, error) {
	lim, ok := m.limits[cat]
	if !ok {
		lim = m.limits[CategoryGeneral]
	}
	if lim.Capacity <= 0 || lim.Window <= 0 {
		// sin límite configurado: admitir
		return Result{Allowed: true, Remaining: -1}, nil
	}

	b := m.bucketFor(key + "|" + string(cat))

	b.mu.Lock()
	defer b.mu.Unlock()

	now := m.now()
	if b.lastRefill.IsZero() {
		// bucket nuevo: arranca lleno
		b.tokens = float64(lim.Capacity)
		b.lastRefill = now
	} else if elapsed := now.Sub(b.lastRefill); elapsed > 0 {
		refill := elapsed.Seconds() * float64(lim.Capacity) / lim.Window.Seconds()
		b.tokens += refill
		if b.tokens > float64(lim.Capacity) {
			b.tokens = float64(lim.Capacity)
		}
		b.lastRefill = now
	}

	if b.tokens >= 1 {
		b.tokens--
		return Result{Allowed: true, Remaining: int64(b.tokens)}, nil
	}

	// tiempo hasta que se acumule 1 token
	perToken := lim.Window.Seconds() / float64(lim.Capacity)
	wait := time.Duration((1 - b.tokens) * perToken * float64(time.Second))
	return Result{Allowed: false, Remaining: 0, RetryAfter: wait}, nil
}

func (m *MemoryLimiter) bucketFor(k string) *bucket {
	m.mu.RLock()
	b, ok := m.buckets[k]
	m.mu.RUnlock()
	if ok {
		return b
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	// double-check: otro goroutine pudo crearlo entre locks
	if b, ok = m.buckets[k]; !ok {
		b = &bucket{}
		m.buckets[k] = b
	}
	return b
}
