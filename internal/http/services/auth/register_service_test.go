package auth_test

import (
	"context"
	"errors"
	"testing"

	dto "github.com/dropDatabas3/authcore/internal/http/dto/auth"
	authsvc "github.com/dropDatabas3/authcore/internal/http/services/auth"
)

func TestRegister_HappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Register.Register(ctx, dto.RegisterRequest{
		Email:    "Nuevo@Example.com",
		Password: "Secreta123",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if res.Email != "nuevo@example.com" {
		t.Fatalf("email %q not normalized", res.Email)
	}
	if !res.VerificationSent {
		t.Fatalf("verification mail not sent")
	}
	if f.sender.lastCode(t) == "" {
		t.Fatalf("no code delivered")
	}

	// el registro no abre sesión
	sess, err := f.store.Sessions().ListActiveByUser(ctx, res.UserID)
	if err != nil {
		t.Fatalf("ListActiveByUser: %v", err)
	}
	if len(sess) != 0 {
		t.Fatalf("register must not open a session, got %d", len(sess))
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createUser(t, "ana@example.com", "Secreta123")

	_, err := f.svc.Register.Register(ctx, dto.RegisterRequest{
		Email:    "ANA@example.com",
		Password: "OtraClave9",
	})
	if !errors.Is(err, authsvc.ErrEmailTaken) {
		t.Fatalf("got %v, want ErrEmailTaken", err)
	}
}

func TestRegister_WeakPassword(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Register.Register(context.Background(), dto.RegisterRequest{
		Email:    "ana@example.com",
		Password: "corta",
	})
	if !errors.Is(err, authsvc.ErrWeakPassword) {
		t.Fatalf("got %v, want ErrWeakPassword", err)
	}
}

func TestRegister_InvalidEmail(t *testing.T) {
	f := newFixture(t)

	for _, email := range []string{"", "sin-arroba", "a@b"} {
		_, err := f.svc.Register.Register(context.Background(), dto.RegisterRequest{
			Email:    email,
			Password: "Secreta123",
		})
		if !errors.Is(err, authsvc.ErrInvalidEmail) {
			t.Fatalf("email %q: got %v, want ErrInvalidEmail", email, err)
		}
	}
}
