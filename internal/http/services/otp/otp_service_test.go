package otp_test

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/dropDatabas3/authcore/internal/cache"
	"github.com/dropDatabas3/authcore/internal/domain/repository"
	dto "github.com/dropDatabas3/authcore/internal/http/dto/otp"
	otpsvc "github.com/dropDatabas3/authcore/internal/http/services/otp"
	otpx "github.com/dropDatabas3/authcore/internal/otp"
	"github.com/dropDatabas3/authcore/internal/store/memory"
)

type recordingSender struct {
	mu   sync.Mutex
	sent int
	to   string
	text string
}

func (s *recordingSender) Send(to, subject, htmlBody, textBody string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent++
	s.to = to
	s.text = textBody
	return nil
}

var codeRe = regexp.MustCompile(`\b\d{6}\b`)

func (s *recordingSender) lastCode(t *testing.T) string {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	code := codeRe.FindString(s.text)
	if code == "" {
		t.Fatalf("no OTP code in mail body: %q", s.text)
	}
	return code
}

func newService(t *testing.T) (otpsvc.Service, *memory.Store, *recordingSender) {
	t.Helper()
	st := memory.New()
	engine := otpx.NewEngine(st.Otps(), otpx.PurposeConfig{Length: 6, MaxAttempts: 3, TTL: 5 * time.Minute}, nil)
	sender := &recordingSender{}
	svc := otpsvc.NewService(otpsvc.Deps{
		Store:    st,
		Engine:   engine,
		Cache:    cache.NewMemory("test"),
		Sender:   sender,
		AppName:  "authcore",
		Cooldown: time.Minute,
	})
	return svc, st, sender
}

func createUser(t *testing.T, st *memory.Store, email, phone string) *repository.User {
	t.Helper()
	u, err := st.Users().Create(context.Background(), repository.CreateUserInput{
		Email: email,
		Phone: phone,
		Role:  repository.RoleUser,
	})
	if err != nil {
		t.Fatalf("Create user: %v", err)
	}
	return u
}

func TestRequestVerify_EmailFlow(t *testing.T) {
	svc, st, sender := newService(t)
	ctx := context.Background()
	u := createUser(t, st, "ana@example.com", "")

	res, err := svc.Request(ctx, dto.RequestOtpRequest{Target: "Ana@Example.com", Purpose: "verify_email"})
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if !res.Sent || res.ExpiresIn != 300 || res.ResendIn != 60 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if sender.to != "ana@example.com" {
		t.Fatalf("delivered to %q", sender.to)
	}

	got, err := svc.Verify(ctx, "ana@example.com", repository.OtpVerifyEmail, sender.lastCode(t))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("resolved user %q, want %q", got.ID, u.ID)
	}
	// probar posesión del canal marca el email como verificado
	if !got.EmailVerified {
		t.Fatalf("email must be marked verified")
	}
	fresh, err := st.Users().GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !fresh.EmailVerified {
		t.Fatalf("verified flag must persist")
	}
}

func TestRequest_UnknownTargetFakeSuccess(t *testing.T) {
	svc, _, sender := newService(t)
	ctx := context.Background()

	res, err := svc.Request(ctx, dto.RequestOtpRequest{Target: "nadie@example.com", Purpose: "login_email"})
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	// misma respuesta que para una cuenta real, sin envío
	if !res.Sent {
		t.Fatalf("unknown target must get the same response")
	}
	if sender.sent != 0 {
		t.Fatalf("nothing should be delivered, sent=%d", sender.sent)
	}

	// el cooldown también aplica para targets sin cuenta
	_, err = svc.Request(ctx, dto.RequestOtpRequest{Target: "nadie@example.com", Purpose: "login_email"})
	if !errors.Is(err, otpsvc.ErrCooldown) {
		t.Fatalf("got %v, want ErrCooldown", err)
	}
}

func TestRequest_Cooldown(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()
	createUser(t, st, "ana@example.com", "")

	if _, err := svc.Request(ctx, dto.RequestOtpRequest{Target: "ana@example.com", Purpose: "login_email"}); err != nil {
		t.Fatalf("first Request: %v", err)
	}
	_, err := svc.Request(ctx, dto.RequestOtpRequest{Target: "ana@example.com", Purpose: "login_email"})
	if !errors.Is(err, otpsvc.ErrCooldown) {
		t.Fatalf("got %v, want ErrCooldown", err)
	}

	// el cooldown es por (target, purpose): otro propósito no se bloquea
	if _, err := svc.Request(ctx, dto.RequestOtpRequest{Target: "ana@example.com", Purpose: "password_reset"}); err != nil {
		t.Fatalf("other purpose: %v", err)
	}
}

func TestRequest_InvalidInput(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	if _, err := svc.Request(ctx, dto.RequestOtpRequest{Target: "a@b.com", Purpose: "hackear"}); !errors.Is(err, otpsvc.ErrInvalidPurpose) {
		t.Fatalf("got %v, want ErrInvalidPurpose", err)
	}
	if _, err := svc.Request(ctx, dto.RequestOtpRequest{Target: "   ", Purpose: "login_email"}); !errors.Is(err, otpsvc.ErrInvalidTarget) {
		t.Fatalf("got %v, want ErrInvalidTarget", err)
	}
}

func TestVerify_WrongAndExhausted(t *testing.T) {
	svc, st, sender := newService(t)
	ctx := context.Background()
	createUser(t, st, "ana@example.com", "")

	if _, err := svc.Request(ctx, dto.RequestOtpRequest{Target: "ana@example.com", Purpose: "login_email"}); err != nil {
		t.Fatalf("Request: %v", err)
	}
	wrong := "000000"
	if wrong == sender.lastCode(t) {
		wrong = "111111"
	}

	// MaxAttempts=3: los primeros intentos reportan código inválido
	for i := 0; i < 3; i++ {
		if _, err := svc.Verify(ctx, "ana@example.com", repository.OtpLoginEmail, wrong); !errors.Is(err, otpsvc.ErrCodeInvalid) {
			t.Fatalf("attempt %d: got %v, want ErrCodeInvalid", i+1, err)
		}
	}
	// agotado, ni siquiera el código correcto entra
	if _, err := svc.Verify(ctx, "ana@example.com", repository.OtpLoginEmail, sender.lastCode(t)); !errors.Is(err, otpsvc.ErrCodeExhausted) {
		t.Fatalf("got %v, want ErrCodeExhausted", err)
	}
}

func TestRequest_PhoneTargetLogOnly(t *testing.T) {
	svc, st, sender := newService(t)
	ctx := context.Background()
	createUser(t, st, "ana@example.com", "+5491155550000")

	res, err := svc.Request(ctx, dto.RequestOtpRequest{Target: "+5491155550000", Purpose: "login_phone"})
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if !res.Sent {
		t.Fatalf("unexpected result: %+v", res)
	}
	// sin integración SMS, nada sale por el sender de email
	if sender.sent != 0 {
		t.Fatalf("phone target must not email, sent=%d", sender.sent)
	}
}
