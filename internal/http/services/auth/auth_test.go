package auth_test

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/dropDatabas3/authcore/internal/cache"
	"github.com/dropDatabas3/authcore/internal/domain/repository"
	"github.com/dropDatabas3/authcore/internal/federation"
	authsvc "github.com/dropDatabas3/authcore/internal/http/services/auth"
	otpsvc "github.com/dropDatabas3/authcore/internal/http/services/otp"
	"github.com/dropDatabas3/authcore/internal/http/services/session"
	jwtx "github.com/dropDatabas3/authcore/internal/jwt"
	otpx "github.com/dropDatabas3/authcore/internal/otp"
	"github.com/dropDatabas3/authcore/internal/security/password"
	"github.com/dropDatabas3/authcore/internal/store/memory"
)

// captureSender retiene el último mail "enviado" para que los tests puedan
// extraer el código OTP del cuerpo, igual que lo haría el destinatario.
type captureSender struct {
	mu   sync.Mutex
	to   string
	text string
}

func (s *captureSender) Send(to, subject, htmlBody, textBody string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.to = to
	s.text = textBody
	return nil
}

var codeRe = regexp.MustCompile(`\b\d{6}\b`)

func (s *captureSender) lastCode(t *testing.T) string {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	code := codeRe.FindString(s.text)
	if code == "" {
		t.Fatalf("no OTP code in captured mail body: %q", s.text)
	}
	return code
}

// fakeProvider responde como lo haría la API de un proveedor real: acepta
// un único token y rechaza el resto.
type fakeProvider struct {
	name     string
	token    string
	identity federation.Identity
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Identity(_ context.Context, accessToken string) (*federation.Identity, error) {
	if accessToken != p.token {
		return nil, federation.ErrTokenRejected
	}
	id := p.identity
	return &id, nil
}

type fixture struct {
	store    *memory.Store
	sessions session.Service
	otp      otpsvc.Service
	sender   *captureSender
	provider *fakeProvider
	svc      *authsvc.Services
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st := memory.New()
	codec, err := jwtx.NewCodec([]byte("clave-de-firma-solo-para-tests-0123456789"), "authcore", 15*time.Minute)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	c := cache.NewMemory("test")

	sessions := session.NewService(session.Deps{
		Store:      st,
		Codec:      codec,
		Cache:      c,
		RefreshTTL: time.Hour,
		SessionTTL: 24 * time.Hour,
	})

	engine := otpx.NewEngine(st.Otps(), otpx.PurposeConfig{Length: 6, MaxAttempts: 5, TTL: 5 * time.Minute}, nil)
	sender := &captureSender{}
	otpService := otpsvc.NewService(otpsvc.Deps{
		Store:   st,
		Engine:  engine,
		Cache:   c,
		Sender:  sender,
		AppName: "authcore",
		// sin cooldown: los tests piden códigos en ráfaga
		Cooldown: 0,
	})

	provider := &fakeProvider{
		name:     "fake",
		token:    "token-valido",
		identity: federation.Identity{Provider: "fake", UID: "uid-123", Email: "fed@example.com"},
	}

	svc := authsvc.New(authsvc.Deps{
		Store:      st,
		Codec:      codec,
		Sessions:   sessions,
		Otp:        otpService,
		Policy:     password.Policy{MinLength: 8},
		Federation: federation.NewRegistry(provider),
		RefreshTTL: time.Hour,
	})

	return &fixture{store: st, sessions: sessions, otp: otpService, sender: sender, provider: provider, svc: svc}
}

func (f *fixture) createUser(t *testing.T, email, pass string) *repository.User {
	t.Helper()
	hash, err := password.HashDefault(pass)
	if err != nil {
		t.Fatalf("HashDefault: %v", err)
	}
	u, err := f.store.Users().Create(context.Background(), repository.CreateUserInput{
		Email:        email,
		PasswordHash: hash,
		Role:         repository.RoleUser,
	})
	if err != nil {
		t.Fatalf("Create user: %v", err)
	}
	return u
}
