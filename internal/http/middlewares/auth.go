package middlewares

import (
	"context"
	"net/http"
	"strings"

	"github.com/dropDatabas3/authcore/internal/domain/repository"
	"github.com/dropDatabas3/authcore/internal/http/errors"
	jwtx "github.com/dropDatabas3/authcore/internal/jwt"
)

// UserStatusChecker re-verifica el estado del usuario contra el store.
// Implementado por UserRepository via adaptador en el wiring.
type UserStatusChecker interface {
	IsActive(ctx context.Context, userID string) (bool, error)
}

// AuthConfig configura el middleware de autenticación.
type AuthConfig struct {
	Codec *jwtx.Codec
	// Opcional: si no es nil, cada request verifica que el usuario siga
	// activo. Convierte la verificación de token en una consulta al store;
	// se habilita con security.recheck_user_status.
	StatusChecker UserStatusChecker
}

// RequireAuth valida Authorization: Bearer <JWT> y guarda las claims en el contexto.
// Si el token es inválido o no está presente, responde 401.
func RequireAuth(cfg AuthConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ah := strings.TrimSpace(r.Header.Get("Authorization"))
			if ah == "" || !strings.HasPrefix(strings.ToLower(ah), "bearer ") {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token", error_description="missing bearer token"`)
				errors.WriteError(w, errors.ErrTokenMissing)
				return
			}
			raw := strings.TrimSpace(ah[len("Bearer "):])

			claims, err := cfg.Codec.Verify(raw)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token"`)
				switch err {
				case jwtx.ErrExpired:
					errors.WriteError(w, errors.ErrTokenExpired)
				default:
					errors.WriteError(w, errors.ErrTokenInvalid)
				}
				return
			}

			if cfg.StatusChecker != nil {
				active, err := cfg.StatusChecker.IsActive(r.Context(), claims.UserID)
				if err != nil && !repository.IsNotFound(err) {
					errors.WriteError(w, errors.ErrInternalServerError.WithCause(err))
					return
				}
				if err != nil || !active {
					errors.WriteError(w, errors.ErrAccountDisabled)
					return
				}
			}

			ctx := WithClaims(r.Context(), claims)
			ctx = WithUserID(ctx, claims.UserID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole exige que el usuario autenticado tenga alguno de los roles dados.
// Debe usarse después de RequireAuth.
func RequireRole(roles ...repository.Role) Middleware {
	allowed := make(map[repository.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaims(r.Context())
			if claims == nil {
				errors.WriteError(w, errors.ErrUnauthorized)
				return
			}
			if _, ok := allowed[claims.Role]; !ok {
				errors.WriteError(w, errors.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
