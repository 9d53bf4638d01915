package auth

// ResetRequestRequest es el body de POST /v1/auth/reset/request.
// La respuesta es idéntica exista o no la cuenta.
type ResetRequestRequest struct {
	Email string `json:"email"`
}

// ResetConfirmRequest es el body de POST /v1/auth/reset/confirm.
type ResetConfirmRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

// MeResult es la respuesta de GET /v1/auth/me.
type MeResult struct {
	UserID        string `json:"user_id"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	EmailVerified bool   `json:"email_verified"`
	PhoneVerified bool   `json:"phone_verified"`
}
