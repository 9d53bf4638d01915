package auth

// RefreshRequest es el body de POST /v1/auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshResult es la respuesta de una rotación exitosa. El refresh token
// devuelto reemplaza al presentado, que queda revocado.
type RefreshResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// LogoutRequest es el body de POST /v1/auth/logout.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
	// Si true, cierra todas las sesiones del usuario, no solo la actual.
	All bool `json:"all,omitempty"`
}
