package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dropDatabas3/authcore/internal/cache"
	"github.com/dropDatabas3/authcore/internal/domain/repository"
	authdto "github.com/dropDatabas3/authcore/internal/http/dto/auth"
	"github.com/dropDatabas3/authcore/internal/http/services/session"
	jwtx "github.com/dropDatabas3/authcore/internal/jwt"
	"github.com/dropDatabas3/authcore/internal/security/password"
	tokens "github.com/dropDatabas3/authcore/internal/security/token"
	"github.com/dropDatabas3/authcore/internal/store/memory"
)

func newService(t *testing.T) (session.Service, *memory.Store) {
	t.Helper()
	st := memory.New()
	codec, err := jwtx.NewCodec([]byte("clave-de-firma-solo-para-tests-0123456789"), "authcore", 15*time.Minute)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	svc := session.NewService(session.Deps{
		Store:      st,
		Codec:      codec,
		Cache:      cache.NewMemory("test"),
		RefreshTTL: time.Hour,
		SessionTTL: 24 * time.Hour,
	})
	return svc, st
}

func newUser(t *testing.T, st *memory.Store, email string) *repository.User {
	t.Helper()
	hash, err := password.HashDefault("Secreta123")
	if err != nil {
		t.Fatalf("HashDefault: %v", err)
	}
	u, err := st.Users().Create(context.Background(), repository.CreateUserInput{
		Email:        email,
		PasswordHash: hash,
		Role:         repository.RoleUser,
	})
	if err != nil {
		t.Fatalf("Create user: %v", err)
	}
	return u
}

func TestOpen_LinksRefreshToken(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	u := newUser(t, st, "ana@example.com")

	res, err := svc.Open(ctx, session.OpenInput{User: u, IPAddress: "10.0.0.1"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if res.DeviceID == "" {
		t.Fatalf("server must generate a device id")
	}

	sess, err := st.Sessions().Get(ctx, res.SessionID)
	if err != nil {
		t.Fatalf("Get session: %v", err)
	}
	if sess.RefreshTokenID == nil {
		t.Fatalf("session not linked to its refresh token")
	}
	tok, err := st.Tokens().GetByHash(ctx, tokens.SHA256Hex(res.RefreshToken))
	if err != nil {
		t.Fatalf("GetByHash: %v", err)
	}
	if tok.ID != *sess.RefreshTokenID {
		t.Fatalf("link mismatch: session has %s, token is %s", *sess.RefreshTokenID, tok.ID)
	}
	if tok.SessionID == nil || *tok.SessionID != sess.ID {
		t.Fatalf("token not bound to session")
	}
}

func TestOpen_ReusesSessionRowPerDevice(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	u := newUser(t, st, "ana@example.com")
	dev := authdto.DeviceInfo{DeviceID: "laptop"}

	first, err := svc.Open(ctx, session.OpenInput{User: u, Device: dev})
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	second, err := svc.Open(ctx, session.OpenInput{User: u, Device: dev})
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	if first.SessionID != second.SessionID {
		t.Fatalf("same device must reuse the session row")
	}
	if first.RefreshToken == second.RefreshToken {
		t.Fatalf("each open must issue a fresh refresh token")
	}
}

func TestRevoke_CascadesToToken(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	u := newUser(t, st, "ana@example.com")

	res, err := svc.Open(ctx, session.OpenInput{User: u})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := svc.Revoke(ctx, u.ID, res.SessionID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	tok, err := st.Tokens().GetByHash(ctx, tokens.SHA256Hex(res.RefreshToken))
	if err != nil {
		t.Fatalf("GetByHash: %v", err)
	}
	if tok.RevokedAt == nil {
		t.Fatalf("linked refresh token must be revoked with the session")
	}
}

func TestRevoke_OwnershipAndMissing(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	owner := newUser(t, st, "ana@example.com")
	other := newUser(t, st, "eva@example.com")

	res, err := svc.Open(ctx, session.OpenInput{User: owner})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := svc.Revoke(ctx, other.ID, res.SessionID); !errors.Is(err, session.ErrNotOwner) {
		t.Fatalf("foreign session: got %v, want ErrNotOwner", err)
	}
	if err := svc.Revoke(ctx, owner.ID, "no-existe"); !errors.Is(err, session.ErrSessionNotFound) {
		t.Fatalf("missing session: got %v, want ErrSessionNotFound", err)
	}
}

func TestRevokeOthers_KeepsCurrentDevice(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	u := newUser(t, st, "ana@example.com")

	keep, err := svc.Open(ctx, session.OpenInput{User: u, Device: authdto.DeviceInfo{DeviceID: "laptop"}})
	if err != nil {
		t.Fatalf("Open laptop: %v", err)
	}
	if _, err := svc.Open(ctx, session.OpenInput{User: u, Device: authdto.DeviceInfo{DeviceID: "phone"}}); err != nil {
		t.Fatalf("Open phone: %v", err)
	}
	if _, err := svc.Open(ctx, session.OpenInput{User: u, Device: authdto.DeviceInfo{DeviceID: "tablet"}}); err != nil {
		t.Fatalf("Open tablet: %v", err)
	}

	n, err := svc.RevokeOthers(ctx, u.ID, "laptop")
	if err != nil {
		t.Fatalf("RevokeOthers: %v", err)
	}
	if n != 2 {
		t.Fatalf("revoked %d sessions, want 2", n)
	}

	active, err := st.Sessions().ListActiveByUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListActiveByUser: %v", err)
	}
	if len(active) != 1 || active[0].DeviceID != "laptop" {
		t.Fatalf("surviving sessions: %+v", active)
	}
	// el refresh token de la sesión superviviente sigue activo
	tok, err := st.Tokens().GetByHash(ctx, tokens.SHA256Hex(keep.RefreshToken))
	if err != nil {
		t.Fatalf("GetByHash: %v", err)
	}
	if tok.RevokedAt != nil {
		t.Fatalf("surviving device token must stay active")
	}
}

func TestList_MarksCurrent(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	u := newUser(t, st, "ana@example.com")

	if _, err := svc.Open(ctx, session.OpenInput{User: u, Device: authdto.DeviceInfo{DeviceID: "laptop"}}); err != nil {
		t.Fatalf("Open laptop: %v", err)
	}
	if _, err := svc.Open(ctx, session.OpenInput{User: u, Device: authdto.DeviceInfo{DeviceID: "phone"}}); err != nil {
		t.Fatalf("Open phone: %v", err)
	}

	list, err := svc.List(ctx, u.ID, "phone")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list.Sessions) != 2 {
		t.Fatalf("got %d sessions, want 2", len(list.Sessions))
	}
	for _, s := range list.Sessions {
		if want := s.DeviceID == "phone"; s.IsCurrent != want {
			t.Fatalf("device %s: IsCurrent=%v", s.DeviceID, s.IsCurrent)
		}
	}
}

func TestTrust_RoundTrip(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	u := newUser(t, st, "ana@example.com")

	if svc.IsTrusted(ctx, u.ID, "laptop") {
		t.Fatalf("untrusted device reported as trusted")
	}

	dev, err := svc.Trust(ctx, u.ID, "laptop", "mi notebook")
	if err != nil {
		t.Fatalf("Trust: %v", err)
	}
	if dev.Label != "mi notebook" {
		t.Fatalf("label %q", dev.Label)
	}
	// el cache negativo previo no debe sobrevivir al Trust
	if !svc.IsTrusted(ctx, u.ID, "laptop") {
		t.Fatalf("trusted device reported as untrusted")
	}

	// una sesión nueva desde el dispositivo confiado nace trusted
	res, err := svc.Open(ctx, session.OpenInput{User: u, Device: authdto.DeviceInfo{DeviceID: "laptop"}})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	sess, err := st.Sessions().Get(ctx, res.SessionID)
	if err != nil {
		t.Fatalf("Get session: %v", err)
	}
	if !sess.IsTrusted {
		t.Fatalf("session must carry the trust snapshot")
	}

	if err := svc.Untrust(ctx, u.ID, "laptop"); err != nil {
		t.Fatalf("Untrust: %v", err)
	}
	if svc.IsTrusted(ctx, u.ID, "laptop") {
		t.Fatalf("untrust must invalidate the cached hint")
	}
}

// La confianza del dispositivo sobrevive a la revocación masiva de sesiones:
// son registros independientes, y el próximo login desde ese dispositivo
// nace confiado sin más trámite.
func TestRevokeAll_KeepsTrustedDevices(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	u := newUser(t, st, "ana@example.com")

	if _, err := svc.Trust(ctx, u.ID, "laptop", "mi notebook"); err != nil {
		t.Fatalf("Trust: %v", err)
	}
	if _, err := svc.Open(ctx, session.OpenInput{User: u, Device: authdto.DeviceInfo{DeviceID: "laptop"}}); err != nil {
		t.Fatalf("Open laptop: %v", err)
	}
	if _, err := svc.Open(ctx, session.OpenInput{User: u, Device: authdto.DeviceInfo{DeviceID: "phone"}}); err != nil {
		t.Fatalf("Open phone: %v", err)
	}

	n, err := svc.RevokeAll(ctx, u.ID, "logout_all")
	if err != nil {
		t.Fatalf("RevokeAll: %v", err)
	}
	if n != 2 {
		t.Fatalf("revoked %d sessions, want 2", n)
	}
	if active, _ := st.Sessions().ListActiveByUser(ctx, u.ID); len(active) != 0 {
		t.Fatalf("active sessions after RevokeAll: %+v", active)
	}

	// el registro de confianza no se tocó
	if !svc.IsTrusted(ctx, u.ID, "laptop") {
		t.Fatalf("trusted device lost after revoking sessions")
	}
	list, err := svc.ListDevices(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListDevices: %v", err)
	}
	if len(list.Devices) != 1 || list.Devices[0].DeviceID != "laptop" {
		t.Fatalf("trusted devices after RevokeAll: %+v", list.Devices)
	}

	// y la sesión nueva desde ese dispositivo nace confiada
	res, err := svc.Open(ctx, session.OpenInput{User: u, Device: authdto.DeviceInfo{DeviceID: "laptop"}})
	if err != nil {
		t.Fatalf("re-Open: %v", err)
	}
	sess, err := st.Sessions().Get(ctx, res.SessionID)
	if err != nil {
		t.Fatalf("Get session: %v", err)
	}
	if !sess.IsTrusted {
		t.Fatalf("fresh session from trusted device must be born trusted")
	}
}

func TestListDevices(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	u := newUser(t, st, "ana@example.com")

	if _, err := svc.Trust(ctx, u.ID, "laptop", ""); err != nil {
		t.Fatalf("Trust laptop: %v", err)
	}
	if _, err := svc.Trust(ctx, u.ID, "phone", "celular"); err != nil {
		t.Fatalf("Trust phone: %v", err)
	}

	list, err := svc.ListDevices(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListDevices: %v", err)
	}
	if len(list.Devices) != 2 {
		t.Fatalf("got %d devices, want 2", len(list.Devices))
	}
}
