package auth

import (
	"context"
	"net/http"

	"github.com/dropDatabas3/authcore/internal/domain/repository"
	dto "github.com/dropDatabas3/authcore/internal/http/dto/auth"
	httperrors "github.com/dropDatabas3/authcore/internal/http/errors"
	"github.com/dropDatabas3/authcore/internal/http/helpers"
	"github.com/dropDatabas3/authcore/internal/http/middlewares"
)

// UserGetter es el subconjunto del repositorio de usuarios que necesita Me.
type UserGetter interface {
	GetByID(ctx context.Context, id string) (*repository.User, error)
}

// MeController responde el perfil del usuario autenticado.
type MeController struct {
	users UserGetter
}

// NewMeController crea el controller de perfil.
func NewMeController(users UserGetter) *MeController {
	return &MeController{users: users}
}

// Me maneja GET /v1/auth/me
func (c *MeController) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := middlewares.GetUserID(ctx)
	if userID == "" {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	user, err := c.users.GetByID(ctx, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			httperrors.WriteError(w, httperrors.ErrUnauthorized)
			return
		}
		httperrors.WriteError(w, err)
		return
	}

	helpers.WriteJSON(w, http.StatusOK, dto.MeResult{
		UserID:        user.ID,
		Email:         user.Email,
		Role:          string(user.Role),
		EmailVerified: user.EmailVerified,
		PhoneVerified: user.PhoneVerified,
	})
}
