package auth_test

import (
	"context"
	"errors"
	"testing"

	dto "github.com/dropDatabas3/authcore/internal/http/dto/auth"
	authsvc "github.com/dropDatabas3/authcore/internal/http/services/auth"
	otpsvc "github.com/dropDatabas3/authcore/internal/http/services/otp"
	"github.com/dropDatabas3/authcore/internal/security/password"
)

func TestReset_FullFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	login := openSession(t, f, "ana@example.com")

	if _, err := f.svc.Reset.Request(ctx, dto.ResetRequestRequest{Email: "ana@example.com"}); err != nil {
		t.Fatalf("Request: %v", err)
	}
	code := f.sender.lastCode(t)

	if err := f.svc.Reset.Confirm(ctx, dto.ResetConfirmRequest{
		Email:       "ana@example.com",
		Code:        code,
		NewPassword: "NuevaClave7",
	}); err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	// la contraseña nueva rige, la vieja no
	if _, err := f.svc.Login.LoginPassword(ctx, dto.LoginRequest{
		Email: "ana@example.com", Password: "NuevaClave7",
	}, authsvc.RequestMeta{}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	if _, err := f.svc.Login.LoginPassword(ctx, dto.LoginRequest{
		Email: "ana@example.com", Password: "Secreta123",
	}, authsvc.RequestMeta{}); !errors.Is(err, authsvc.ErrInvalidCredentials) {
		t.Fatalf("old password: got %v, want ErrInvalidCredentials", err)
	}

	// lo emitido antes del reset queda revocado
	if _, err := f.svc.Refresh.Refresh(ctx, dto.RefreshRequest{RefreshToken: login.RefreshToken}); !errors.Is(err, authsvc.ErrRefreshInvalid) {
		t.Fatalf("pre-reset refresh token: got %v, want ErrRefreshInvalid", err)
	}
}

func TestReset_WrongCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.createUser(t, "ana@example.com", "Secreta123")

	if _, err := f.svc.Reset.Request(ctx, dto.ResetRequestRequest{Email: "ana@example.com"}); err != nil {
		t.Fatalf("Request: %v", err)
	}
	wrong := "000000"
	if wrong == f.sender.lastCode(t) {
		wrong = "111111"
	}
	err := f.svc.Reset.Confirm(ctx, dto.ResetConfirmRequest{
		Email:       "ana@example.com",
		Code:        wrong,
		NewPassword: "NuevaClave7",
	})
	if !errors.Is(err, otpsvc.ErrCodeInvalid) {
		t.Fatalf("got %v, want ErrCodeInvalid", err)
	}

	// la contraseña no cambió
	got, err := f.store.Users().GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.PasswordHash == nil || !password.Verify("Secreta123", *got.PasswordHash) {
		t.Fatalf("password must be unchanged")
	}
}

func TestReset_RequestHidesUnknownAccounts(t *testing.T) {
	f := newFixture(t)

	// la respuesta para un target sin cuenta es la misma que para uno real
	res, err := f.svc.Reset.Request(context.Background(), dto.ResetRequestRequest{Email: "nadie@example.com"})
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if !res.Sent {
		t.Fatalf("unknown target must get the same response")
	}
	if f.sender.to != "" {
		t.Fatalf("nothing should be delivered to %q", f.sender.to)
	}
}
