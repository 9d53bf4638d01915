// Package auth contiene los DTOs de autenticación.
package auth

// DeviceInfo describe el dispositivo desde el que se inicia sesión.
// DeviceID es un identificador estable generado por el cliente; si viene
// vacío el servidor genera uno y lo devuelve en el resultado.
type DeviceInfo struct {
	DeviceID   string `json:"device_id,omitempty"`
	DeviceName string `json:"device_name,omitempty"`
	Platform   string `json:"platform,omitempty"` // web | ios | android | cli
}

// LoginRequest es el body de POST /v1/auth/login.
type LoginRequest struct {
	Email    string     `json:"email"`
	Password string     `json:"password"`
	Device   DeviceInfo `json:"device"`
}

// FederatedLoginRequest es el body de POST /v1/auth/login/federated.
// Con access_token presente, la identidad se verifica contra la API del
// proveedor y provider_uid/email se ignoran. Sin access_token se consume
// una identidad ya verificada por un gateway de confianza.
type FederatedLoginRequest struct {
	Provider    string     `json:"provider"` // google | github
	AccessToken string     `json:"access_token,omitempty"`
	ProviderUID string     `json:"provider_uid,omitempty"`
	Email       string     `json:"email,omitempty"`
	Device      DeviceInfo `json:"device"`
}

// LoginResult es la respuesta de cualquier flujo que abre sesión.
type LoginResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"` // "Bearer"
	ExpiresIn    int64  `json:"expires_in"` // segundos del access token
	SessionID    string `json:"session_id"`
	DeviceID     string `json:"device_id"`
	UserID       string `json:"user_id"`
}
