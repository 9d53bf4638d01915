package auth_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dropDatabas3/authcore/internal/domain/repository"
	dto "github.com/dropDatabas3/authcore/internal/http/dto/auth"
	authsvc "github.com/dropDatabas3/authcore/internal/http/services/auth"
	"github.com/dropDatabas3/authcore/internal/http/services/session"
	tokens "github.com/dropDatabas3/authcore/internal/security/token"
)

func openSession(t *testing.T, f *fixture, email string) *dto.LoginResult {
	t.Helper()
	u := f.createUser(t, email, "Secreta123")
	res, err := f.sessions.Open(context.Background(), session.OpenInput{User: u})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return res
}

func TestRefresh_RotatesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	login := openSession(t, f, "ana@example.com")

	rotated, err := f.svc.Refresh.Refresh(ctx, dto.RefreshRequest{RefreshToken: login.RefreshToken})
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if rotated.RefreshToken == "" || rotated.RefreshToken == login.RefreshToken {
		t.Fatalf("successor must be a fresh token")
	}
	if rotated.AccessToken == "" {
		t.Fatalf("missing access token")
	}

	// el sucesor rota normalmente
	if _, err := f.svc.Refresh.Refresh(ctx, dto.RefreshRequest{RefreshToken: rotated.RefreshToken}); err != nil {
		t.Fatalf("successor Refresh: %v", err)
	}
}

func TestRefresh_ReuseRevokesEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	login := openSession(t, f, "ana@example.com")

	rotated, err := f.svc.Refresh.Refresh(ctx, dto.RefreshRequest{RefreshToken: login.RefreshToken})
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	// re-presentar el token ya rotado es señal de robo
	_, err = f.svc.Refresh.Refresh(ctx, dto.RefreshRequest{RefreshToken: login.RefreshToken})
	if !errors.Is(err, authsvc.ErrRefreshReused) {
		t.Fatalf("got %v, want ErrRefreshReused", err)
	}

	// la revocación alcanza también al sucesor legítimo
	_, err = f.svc.Refresh.Refresh(ctx, dto.RefreshRequest{RefreshToken: rotated.RefreshToken})
	if !errors.Is(err, authsvc.ErrRefreshInvalid) {
		t.Fatalf("successor after reuse: got %v, want ErrRefreshInvalid", err)
	}

	// y a las sesiones del usuario
	sess, err := f.store.Sessions().ListActiveByUser(ctx, login.UserID)
	if err != nil {
		t.Fatalf("ListActiveByUser: %v", err)
	}
	if len(sess) != 0 {
		t.Fatalf("expected no active sessions, got %d", len(sess))
	}
}

// N rotaciones concurrentes del mismo token: exactamente una gana; las
// demás caen en la detección de reuso y disparan la revocación masiva.
func TestRefresh_ConcurrentSingleWinner(t *testing.T) {
	const callers = 8
	f := newFixture(t)
	ctx := context.Background()
	login := openSession(t, f, "ana@example.com")

	var start sync.WaitGroup
	start.Add(1)
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		go func() {
			start.Wait()
			_, err := f.svc.Refresh.Refresh(ctx, dto.RefreshRequest{RefreshToken: login.RefreshToken})
			errs <- err
		}()
	}
	start.Done()

	var wins, reused int
	for i := 0; i < callers; i++ {
		switch err := <-errs; {
		case err == nil:
			wins++
		case errors.Is(err, authsvc.ErrRefreshReused):
			reused++
		default:
			t.Fatalf("resultado inesperado: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("%d rotaciones ganaron, want exactamente 1", wins)
	}
	if reused != callers-1 {
		t.Fatalf("reused = %d, want %d", reused, callers-1)
	}

	// el token presentado quedó terminal
	tok, err := f.store.Tokens().GetByHash(ctx, tokens.SHA256Hex(login.RefreshToken))
	if err != nil {
		t.Fatalf("GetByHash: %v", err)
	}
	if tok.RevokedAt == nil {
		t.Fatalf("presented token must end revoked")
	}
	// y la cascada de reuso cerró las sesiones del usuario
	sess, err := f.store.Sessions().ListActiveByUser(ctx, login.UserID)
	if err != nil {
		t.Fatalf("ListActiveByUser: %v", err)
	}
	if len(sess) != 0 {
		t.Fatalf("expected no active sessions, got %d", len(sess))
	}
}

func TestRefresh_UnknownToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Refresh.Refresh(context.Background(), dto.RefreshRequest{RefreshToken: "inventado"})
	if !errors.Is(err, authsvc.ErrRefreshInvalid) {
		t.Fatalf("got %v, want ErrRefreshInvalid", err)
	}
}

func TestRefresh_ExpiredIsNotReuse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.createUser(t, "ana@example.com", "Secreta123")

	// token ya vencido, emitido directo contra el store
	raw, err := tokens.GenerateOpaqueToken(32)
	if err != nil {
		t.Fatalf("GenerateOpaqueToken: %v", err)
	}
	if _, err := f.store.Tokens().Create(ctx, repository.CreateRefreshTokenInput{
		UserID:    u.ID,
		TokenHash: tokens.SHA256Hex(raw),
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
	}); err != nil {
		t.Fatalf("Create token: %v", err)
	}

	// presentarlo dos veces reporta inválido ambas, nunca robo
	for i := 0; i < 2; i++ {
		_, err := f.svc.Refresh.Refresh(ctx, dto.RefreshRequest{RefreshToken: raw})
		if !errors.Is(err, authsvc.ErrRefreshInvalid) {
			t.Fatalf("attempt %d: got %v, want ErrRefreshInvalid", i+1, err)
		}
	}
}

func TestRefresh_DisabledUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	login := openSession(t, f, "ana@example.com")

	if err := f.store.Users().Disable(ctx, login.UserID); err != nil {
		t.Fatalf("Disable: %v", err)
	}
	_, err := f.svc.Refresh.Refresh(ctx, dto.RefreshRequest{RefreshToken: login.RefreshToken})
	if !errors.Is(err, authsvc.ErrUserDisabled) {
		t.Fatalf("got %v, want ErrUserDisabled", err)
	}
}

func TestLogout_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	login := openSession(t, f, "ana@example.com")

	for i := 0; i < 2; i++ {
		if err := f.svc.Refresh.Logout(ctx, dto.LogoutRequest{RefreshToken: login.RefreshToken}); err != nil {
			t.Fatalf("Logout %d: %v", i+1, err)
		}
	}
	// también para tokens que nunca existieron
	if err := f.svc.Refresh.Logout(ctx, dto.LogoutRequest{RefreshToken: "inventado"}); err != nil {
		t.Fatalf("Logout unknown: %v", err)
	}

	// el logout no es robo: refrescar después reporta inválido
	_, err := f.svc.Refresh.Refresh(ctx, dto.RefreshRequest{RefreshToken: login.RefreshToken})
	if !errors.Is(err, authsvc.ErrRefreshInvalid) {
		t.Fatalf("got %v, want ErrRefreshInvalid", err)
	}
}

func TestLogout_AllClosesEverySession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.createUser(t, "ana@example.com", "Secreta123")

	first, err := f.sessions.Open(ctx, session.OpenInput{User: u, Device: dto.DeviceInfo{DeviceID: "laptop"}})
	if err != nil {
		t.Fatalf("Open laptop: %v", err)
	}
	if _, err := f.sessions.Open(ctx, session.OpenInput{User: u, Device: dto.DeviceInfo{DeviceID: "phone"}}); err != nil {
		t.Fatalf("Open phone: %v", err)
	}

	if err := f.svc.Refresh.Logout(ctx, dto.LogoutRequest{RefreshToken: first.RefreshToken, All: true}); err != nil {
		t.Fatalf("Logout all: %v", err)
	}
	sess, err := f.store.Sessions().ListActiveByUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListActiveByUser: %v", err)
	}
	if len(sess) != 0 {
		t.Fatalf("expected no active sessions, got %d", len(sess))
	}
}
