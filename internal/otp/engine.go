// Package otp implementa el motor de desafíos OTP: códigos numéricos cortos
// ligados a un contacto (email/teléfono) y un propósito, con expiración y
// límite de intentos.
//
// Un solo tipo de desafío parametrizado por propósito (login, reset,
// verificación) con configuración por propósito, en vez de entidades
// paralelas casi idénticas.
package otp

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dropDatabas3/authcore/internal/domain/repository"
	"github.com/dropDatabas3/authcore/internal/observability/logger"
	tokens "github.com/dropDatabas3/authcore/internal/security/token"
)

// Errores de verificación. El contador de intentos (no un chequeo único)
// es lo que acota el brute-force de un código corto.
var (
	ErrNotFound  = errors.New("otp: no pending challenge")
	ErrExpired   = errors.New("otp: challenge expired")
	ErrExhausted = errors.New("otp: attempts exhausted")
	ErrMismatch  = errors.New("otp: code mismatch")
)

// PurposeConfig es la configuración de un propósito concreto.
type PurposeConfig struct {
	Length      int
	MaxAttempts int
	TTL         time.Duration
}

// Engine crea y verifica desafíos contra el OtpRepository.
type Engine struct {
	repo     repository.OtpRepository
	defaults PurposeConfig
	perPurp  map[repository.OtpPurpose]PurposeConfig
}

// NewEngine crea el engine. overrides puede ser nil.
func NewEngine(repo repository.OtpRepository, defaults PurposeConfig, overrides map[repository.OtpPurpose]PurposeConfig) *Engine {
	return &Engine{repo: repo, defaults: defaults, perPurp: overrides}
}

// Config retorna la configuración efectiva para un propósito.
func (e *Engine) Config(p repository.OtpPurpose) PurposeConfig {
	cfg := e.defaults
	if o, ok := e.perPurp[p]; ok {
		if o.Length > 0 {
			cfg.Length = o.Length
		}
		if o.MaxAttempts > 0 {
			cfg.MaxAttempts = o.MaxAttempts
		}
		if o.TTL > 0 {
			cfg.TTL = o.TTL
		}
	}
	return cfg
}

// ExpirySeconds expone el TTL del propósito para reportar "expires_in".
func (e *Engine) ExpirySeconds(p repository.OtpPurpose) int64 {
	return int64(e.Config(p).TTL.Seconds())
}

// Create genera un desafío nuevo para (target, purpose). El repo invalida
// cualquier desafío pendiente previo del par: re-emitir deja un solo código
// vigente, y el anterior deja de ser verificable aunque no haya expirado.
//
// Retorna el desafío y el código en claro (para el sender). El código jamás
// se persiste ni se loguea.
func (e *Engine) Create(ctx context.Context, userID, target string, purpose repository.OtpPurpose) (*repository.OtpChallenge, string, error) {
	cfg := e.Config(purpose)
	target = NormalizeTarget(target)

	code, err := tokens.GenerateNumericCode(cfg.Length)
	if err != nil {
		return nil, "", err
	}

	ch, err := e.repo.Create(ctx, repository.CreateOtpInput{
		UserID:    userID,
		Target:    target,
		Purpose:   purpose,
		CodeHash:  tokens.SHA256Hex(code),
		ExpiresAt: time.Now().UTC().Add(cfg.TTL),
	})
	if err != nil {
		return nil, "", err
	}

	logger.From(ctx).Debug("otp challenge created",
		logger.Component("otp"),
		logger.Purpose(string(purpose)),
		logger.ID(ch.ID),
	)
	return ch, code, nil
}

// Verify busca el último desafío pendiente de (target, purpose) y compara
// el código en tiempo constante.
//
// El intento se consume ANTES de comparar: el contador atómico del store es
// la única fuente del límite, así que de K verificaciones concurrentes cada
// una recibe un número distinto y a lo sumo MaxAttempts llegan a la
// comparación. El N-ésimo intento fallido (N = MaxAttempts) aún reporta
// Mismatch; recién el siguiente reporta Exhausted.
func (e *Engine) Verify(ctx context.Context, target string, purpose repository.OtpPurpose, suppliedCode string) error {
	cfg := e.Config(purpose)
	target = NormalizeTarget(target)

	ch, err := e.repo.GetLatestPending(ctx, target, purpose)
	if err != nil {
		if repository.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}

	now := time.Now().UTC()
	if now.After(ch.ExpiresAt) {
		// transición terminal; best-effort, el desafío ya no es verificable
		_ = e.repo.MarkUsed(ctx, ch.ID)
		return ErrExpired
	}

	n, err := e.repo.IncrementAttempts(ctx, ch.ID)
	if err != nil {
		if repository.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	if n > cfg.MaxAttempts {
		_ = e.repo.MarkUsed(ctx, ch.ID)
		return ErrExhausted
	}

	if !tokens.ConstantTimeEqualHex(tokens.SHA256Hex(suppliedCode), ch.CodeHash) {
		return ErrMismatch
	}

	// match: marcar verificado; si otro caller ganó la carrera, para este
	// ya no hay desafío pendiente
	if err := e.repo.MarkUsed(ctx, ch.ID); err != nil {
		if errors.Is(err, repository.ErrAlreadyRevoked) {
			return ErrNotFound
		}
		return err
	}

	logger.From(ctx).Info("otp verified",
		logger.Component("otp"),
		logger.Purpose(string(purpose)),
		logger.ID(ch.ID),
	)
	return nil
}

// NormalizeTarget normaliza un contacto: trim + lowercase para emails,
// trim y sin espacios internos para teléfonos.
func NormalizeTarget(t string) string {
	t = strings.TrimSpace(t)
	if strings.Contains(t, "@") {
		return strings.ToLower(t)
	}
	return strings.ReplaceAll(t, " ", "")
}
