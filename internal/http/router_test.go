package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/authcore/internal/cache"
	"github.com/dropDatabas3/authcore/internal/domain/repository"
	httpx "github.com/dropDatabas3/authcore/internal/http"
	adminctl "github.com/dropDatabas3/authcore/internal/http/controllers/admin"
	authctl "github.com/dropDatabas3/authcore/internal/http/controllers/auth"
	healthctl "github.com/dropDatabas3/authcore/internal/http/controllers/health"
	otpctl "github.com/dropDatabas3/authcore/internal/http/controllers/otp"
	sessionctl "github.com/dropDatabas3/authcore/internal/http/controllers/session"
	mw "github.com/dropDatabas3/authcore/internal/http/middlewares"
	adminsvc "github.com/dropDatabas3/authcore/internal/http/services/admin"
	authsvc "github.com/dropDatabas3/authcore/internal/http/services/auth"
	healthsvc "github.com/dropDatabas3/authcore/internal/http/services/health"
	otpsvc "github.com/dropDatabas3/authcore/internal/http/services/otp"
	"github.com/dropDatabas3/authcore/internal/http/services/session"
	jwtx "github.com/dropDatabas3/authcore/internal/jwt"
	otpx "github.com/dropDatabas3/authcore/internal/otp"
	"github.com/dropDatabas3/authcore/internal/rate"
	"github.com/dropDatabas3/authcore/internal/security/password"
	"github.com/dropDatabas3/authcore/internal/store/memory"
)

type nullSender struct{}

func (nullSender) Send(to, subject, htmlBody, textBody string) error { return nil }

func newTestHandler(t *testing.T, limiter rate.Limiter) (http.Handler, *memory.Store) {
	t.Helper()

	st := memory.New()
	codec, err := jwtx.NewCodec([]byte("clave-de-firma-solo-para-tests-0123456789"), "authcore", 15*time.Minute)
	require.NoError(t, err)
	c := cache.NewMemory("test")

	sessions := session.NewService(session.Deps{
		Store:      st,
		Codec:      codec,
		Cache:      c,
		RefreshTTL: time.Hour,
		SessionTTL: 24 * time.Hour,
	})
	engine := otpx.NewEngine(st.Otps(), otpx.PurposeConfig{Length: 6, MaxAttempts: 5, TTL: 5 * time.Minute}, nil)
	otpService := otpsvc.NewService(otpsvc.Deps{
		Store:   st,
		Engine:  engine,
		Cache:   c,
		Sender:  nullSender{},
		AppName: "authcore",
	})
	services := authsvc.New(authsvc.Deps{
		Store:      st,
		Codec:      codec,
		Sessions:   sessions,
		Otp:        otpService,
		Policy:     password.Policy{MinLength: 8},
		RefreshTTL: time.Hour,
	})
	health := healthsvc.NewService(healthsvc.Deps{Store: st, Cache: c, Version: "test"})

	h := httpx.NewRouter(httpx.RouterConfig{
		Auth:        authctl.NewControllers(services, st.Users()),
		Otp:         otpctl.NewController(otpService, services.Login),
		Session:     sessionctl.NewController(sessions),
		Admin:       adminctl.NewController(adminsvc.NewService(adminsvc.Deps{Store: st})),
		Health:      healthctl.NewController(health),
		AuthMW:      mw.AuthConfig{Codec: codec},
		RateLimiter: limiter,
	})
	return h, st
}

func doJSON(t *testing.T, h http.Handler, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

type tokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	SessionID    string `json:"session_id"`
	DeviceID     string `json:"device_id"`
}

func TestRouter_AuthLifecycle(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	// alta de la cuenta
	rec := doJSON(t, h, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"email":    "ana@example.com",
		"password": "Secreta123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// login por contraseña
	rec = doJSON(t, h, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"email":    "ana@example.com",
		"password": "Secreta123",
		"device":   map[string]string{"device_id": "laptop"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	login := decode[tokenPair](t, rec)
	require.Equal(t, "Bearer", login.TokenType)
	require.NotEmpty(t, login.RefreshToken)

	// el access token abre las rutas protegidas
	rec = doJSON(t, h, http.MethodGet, "/v1/auth/me", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	me := decode[map[string]any](t, rec)
	require.Equal(t, "ana@example.com", me["email"])

	rec = doJSON(t, h, http.MethodGet, "/v1/sessions", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// rotación
	rec = doJSON(t, h, http.MethodPost, "/v1/auth/refresh", "", map[string]string{
		"refresh_token": login.RefreshToken,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rotated := decode[tokenPair](t, rec)
	require.NotEqual(t, login.RefreshToken, rotated.RefreshToken)

	// re-presentar el token rotado responde igual que uno inválido
	rec = doJSON(t, h, http.MethodPost, "/v1/auth/refresh", "", map[string]string{
		"refresh_token": login.RefreshToken,
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code, rec.Body.String())

	// y dejó revocado también al sucesor
	rec = doJSON(t, h, http.MethodPost, "/v1/auth/refresh", "", map[string]string{
		"refresh_token": rotated.RefreshToken,
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code, rec.Body.String())
}

func TestRouter_LoginFailuresAreUniform(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	rec := doJSON(t, h, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"email":    "ana@example.com",
		"password": "Secreta123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	missing := doJSON(t, h, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email": "nadie@example.com", "password": "loquesea1",
	})
	wrong := doJSON(t, h, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email": "ana@example.com", "password": "incorrecta",
	})
	require.Equal(t, http.StatusUnauthorized, missing.Code)
	require.Equal(t, http.StatusUnauthorized, wrong.Code)
	// mismo cuerpo de error para ambos casos
	require.JSONEq(t, missing.Body.String(), wrong.Body.String())
}

func TestRouter_ProtectedRequiresToken(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	rec := doJSON(t, h, http.MethodGet, "/v1/auth/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/v1/sessions", "token-falso", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_Health(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	rec := doJSON(t, h, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, h, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_NotFound(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	rec := doJSON(t, h, http.MethodGet, "/v1/no-existe", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_AdminDisableUser(t *testing.T) {
	h, st := newTestHandler(t, nil)
	ctx := context.Background()

	hash, err := password.HashDefault("ClaveAdmin123")
	require.NoError(t, err)
	_, err = st.Users().Create(ctx, repository.CreateUserInput{
		Email:        "root@example.com",
		PasswordHash: hash,
		Role:         repository.RoleAdmin,
	})
	require.NoError(t, err)

	rec := doJSON(t, h, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"email":    "ana@example.com",
		"password": "Secreta123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, h, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email":    "ana@example.com",
		"password": "Secreta123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	userLogin := decode[tokenPair](t, rec)

	target, err := st.Users().GetByEmail(ctx, "ana@example.com")
	require.NoError(t, err)

	// un rol regular no alcanza para las rutas de administración
	rec = doJSON(t, h, http.MethodPost, "/v1/admin/users/"+target.ID+"/disable", userLogin.AccessToken, nil)
	require.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())

	rec = doJSON(t, h, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email":    "root@example.com",
		"password": "ClaveAdmin123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	adminLogin := decode[tokenPair](t, rec)

	rec = doJSON(t, h, http.MethodPost, "/v1/admin/users/"+target.ID+"/disable", adminLogin.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[map[string]any](t, rec)
	require.Equal(t, target.ID, res["user_id"])

	// la cuenta deshabilitada ya no puede autenticarse
	rec = doJSON(t, h, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email":    "ana@example.com",
		"password": "Secreta123",
	})
	require.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())

	rec = doJSON(t, h, http.MethodPost, "/v1/admin/users/no-existe/disable", adminLogin.AccessToken, nil)
	require.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
}

func TestRouter_RateLimit(t *testing.T) {
	limiter := rate.NewMemoryLimiter(map[rate.Category]rate.Limit{
		rate.CategoryAuth:    {Capacity: 2, Window: time.Minute},
		rate.CategoryOTP:     {Capacity: 2, Window: time.Minute},
		rate.CategoryGeneral: {Capacity: 100, Window: time.Minute},
	})
	h, _ := newTestHandler(t, limiter)

	body := map[string]string{"email": "ana@example.com", "password": "incorrecta"}
	for i := 0; i < 2; i++ {
		rec := doJSON(t, h, http.MethodPost, "/v1/auth/login", "", body)
		require.Equal(t, http.StatusUnauthorized, rec.Code, "request %d", i+1)
	}
	rec := doJSON(t, h, http.MethodPost, "/v1/auth/login", "", body)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
}
