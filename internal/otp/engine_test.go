package otp_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dropDatabas3/authcore/internal/domain/repository"
	"github.com/dropDatabas3/authcore/internal/otp"
	"github.com/dropDatabas3/authcore/internal/store/memory"
)

func newEngine(t *testing.T, max int, ttl time.Duration) (*otp.Engine, *memory.Store) {
	t.Helper()
	st := memory.New()
	e := otp.NewEngine(st.Otps(), otp.PurposeConfig{Length: 6, MaxAttempts: max, TTL: ttl}, nil)
	return e, st
}

func TestCreateVerify_HappyPath(t *testing.T) {
	e, _ := newEngine(t, 5, 5*time.Minute)
	ctx := context.Background()

	ch, code, err := e.Create(ctx, "", "A@X.com", repository.OtpLoginEmail)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("code %q, want 6 digits", code)
	}
	if ch.Target != "a@x.com" {
		t.Fatalf("target %q not normalized", ch.Target)
	}

	if err := e.Verify(ctx, "a@x.com", repository.OtpLoginEmail, code); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	// un desafío verificado es terminal
	if err := e.Verify(ctx, "a@x.com", repository.OtpLoginEmail, code); !errors.Is(err, otp.ErrNotFound) {
		t.Fatalf("re-verify: want ErrNotFound, got %v", err)
	}
}

func TestVerify_AttemptBound(t *testing.T) {
	const max = 3
	e, _ := newEngine(t, max, 5*time.Minute)
	ctx := context.Background()

	_, _, err := e.Create(ctx, "", "a@x.com", repository.OtpLoginEmail)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// los N primeros intentos errados reportan Mismatch
	for i := 1; i <= max; i++ {
		if err := e.Verify(ctx, "a@x.com", repository.OtpLoginEmail, "000000"); !errors.Is(err, otp.ErrMismatch) {
			t.Fatalf("attempt %d: want ErrMismatch, got %v", i, err)
		}
	}
	// el N+1-ésimo reporta Exhausted
	if err := e.Verify(ctx, "a@x.com", repository.OtpLoginEmail, "000000"); !errors.Is(err, otp.ErrExhausted) {
		t.Fatalf("attempt %d: want ErrExhausted, got %v", max+1, err)
	}
	// y el desafío quedó terminal incluso para el código correcto
	if err := e.Verify(ctx, "a@x.com", repository.OtpLoginEmail, "000000"); !errors.Is(err, otp.ErrNotFound) {
		t.Fatalf("after exhausted: want ErrNotFound, got %v", err)
	}
}

// gatedOtps retiene cada lectura de GetLatestPending hasta que todos los
// lectores llegaron: es el peor interleaving legal entre lectura e
// incremento, ya que el engine no sostiene ningún lock entre ambas.
type gatedOtps struct {
	repository.OtpRepository
	arrived *sync.WaitGroup
	release chan struct{}
}

func (g *gatedOtps) GetLatestPending(ctx context.Context, target string, purpose repository.OtpPurpose) (*repository.OtpChallenge, error) {
	ch, err := g.OtpRepository.GetLatestPending(ctx, target, purpose)
	g.arrived.Done()
	<-g.release
	return ch, err
}

func TestVerify_ConcurrentAttemptBound(t *testing.T) {
	const max, guesses = 3, 10
	st := memory.New()

	var arrived sync.WaitGroup
	arrived.Add(guesses)
	gated := &gatedOtps{
		OtpRepository: st.Otps(),
		arrived:       &arrived,
		release:       make(chan struct{}),
	}
	e := otp.NewEngine(gated, otp.PurposeConfig{Length: 6, MaxAttempts: max, TTL: 5 * time.Minute}, nil)
	ctx := context.Background()

	_, code, err := e.Create(ctx, "", "a@x.com", repository.OtpLoginEmail)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	wrong := "000000"
	if wrong == code {
		wrong = "111111"
	}

	errs := make(chan error, guesses)
	for i := 0; i < guesses; i++ {
		go func() {
			errs <- e.Verify(ctx, "a@x.com", repository.OtpLoginEmail, wrong)
		}()
	}
	arrived.Wait()
	close(gated.release)

	var mismatch, exhausted int
	for i := 0; i < guesses; i++ {
		switch err := <-errs; {
		case errors.Is(err, otp.ErrMismatch):
			mismatch++
		case errors.Is(err, otp.ErrExhausted):
			exhausted++
		default:
			t.Fatalf("resultado inesperado: %v", err)
		}
	}
	// el contador atómico es el límite: aunque todos leyeron attempts=0,
	// solo MaxAttempts adivinanzas llegan a la comparación
	if mismatch != max {
		t.Fatalf("%d adivinanzas pasaron el límite de intentos, want %d", mismatch, max)
	}
	if exhausted != guesses-max {
		t.Fatalf("exhausted = %d, want %d", exhausted, guesses-max)
	}
}

func TestVerify_Expired(t *testing.T) {
	e, _ := newEngine(t, 5, -time.Minute) // nace expirado
	ctx := context.Background()

	_, code, err := e.Create(ctx, "", "a@x.com", repository.OtpLoginEmail)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := e.Verify(ctx, "a@x.com", repository.OtpLoginEmail, code); !errors.Is(err, otp.ErrExpired) {
		t.Fatalf("want ErrExpired, got %v", err)
	}
	// la expiración es terminal: el siguiente intento ya no encuentra desafío
	if err := e.Verify(ctx, "a@x.com", repository.OtpLoginEmail, code); !errors.Is(err, otp.ErrNotFound) {
		t.Fatalf("want ErrNotFound after expiry transition, got %v", err)
	}
}

func TestCreate_InvalidatesPrevious(t *testing.T) {
	e, _ := newEngine(t, 5, 5*time.Minute)
	ctx := context.Background()

	_, code1, err := e.Create(ctx, "", "a@x.com", repository.OtpLoginEmail)
	if err != nil {
		t.Fatalf("Create 1: %v", err)
	}
	_, code2, err := e.Create(ctx, "", "a@x.com", repository.OtpLoginEmail)
	if err != nil {
		t.Fatalf("Create 2: %v", err)
	}

	// el código viejo ya no verifica aunque no haya expirado...
	if code1 != code2 {
		if err := e.Verify(ctx, "a@x.com", repository.OtpLoginEmail, code1); err == nil {
			t.Fatal("old code verified, want failure")
		}
	}
	// ...y el nuevo sí
	if err := e.Verify(ctx, "a@x.com", repository.OtpLoginEmail, code2); err != nil {
		t.Fatalf("new code: %v", err)
	}
}

func TestCreate_PurposesIndependent(t *testing.T) {
	e, _ := newEngine(t, 5, 5*time.Minute)
	ctx := context.Background()

	_, codeLogin, _ := e.Create(ctx, "", "a@x.com", repository.OtpLoginEmail)
	_, codeReset, _ := e.Create(ctx, "", "a@x.com", repository.OtpPasswordReset)

	// crear para un propósito no invalida el otro
	if err := e.Verify(ctx, "a@x.com", repository.OtpLoginEmail, codeLogin); err != nil {
		t.Fatalf("login purpose: %v", err)
	}
	if err := e.Verify(ctx, "a@x.com", repository.OtpPasswordReset, codeReset); err != nil {
		t.Fatalf("reset purpose: %v", err)
	}
}

func TestVerify_NoChallenge(t *testing.T) {
	e, _ := newEngine(t, 5, 5*time.Minute)
	if err := e.Verify(context.Background(), "nobody@x.com", repository.OtpLoginEmail, "123456"); !errors.Is(err, otp.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestConfig_PerPurposeOverride(t *testing.T) {
	st := memory.New()
	e := otp.NewEngine(st.Otps(),
		otp.PurposeConfig{Length: 6, MaxAttempts: 5, TTL: 5 * time.Minute},
		map[repository.OtpPurpose]otp.PurposeConfig{
			repository.OtpPasswordReset: {Length: 8, TTL: time.Hour},
		})

	cfg := e.Config(repository.OtpPasswordReset)
	if cfg.Length != 8 || cfg.TTL != time.Hour || cfg.MaxAttempts != 5 {
		t.Fatalf("override mal aplicado: %+v", cfg)
	}
	if got := e.ExpirySeconds(repository.OtpLoginEmail); got != 300 {
		t.Fatalf("ExpirySeconds = %d, want 300", got)
	}
}
