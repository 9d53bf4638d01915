package auth

// RegisterRequest es el body de POST /v1/auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
}

// RegisterResult es la respuesta del registro. No abre sesión: el usuario
// debe verificar su email con el código enviado.
type RegisterResult struct {
	UserID           string `json:"user_id"`
	Email            string `json:"email"`
	VerificationSent bool   `json:"verification_sent"`
}
