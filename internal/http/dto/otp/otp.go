// Package otp contiene los DTOs de desafíos OTP.
package otp

import auth "github.com/dropDatabas3/authcore/internal/http/dto/auth"

// RequestOtpRequest es el body de POST /v1/otp/request.
// Target es el email o teléfono destino; Purpose decide el template y la
// configuración (TTL, intentos).
type RequestOtpRequest struct {
	Target  string `json:"target"`
	Purpose string `json:"purpose"` // login_email | login_phone | password_reset | verify_email | verify_phone
}

// RequestOtpResult informa TTL y cooldown. No confirma que el target exista.
type RequestOtpResult struct {
	Sent      bool  `json:"sent"`
	ExpiresIn int64 `json:"expires_in"` // segundos
	ResendIn  int64 `json:"resend_in"`  // segundos hasta poder pedir otro
}

// VerifyOtpRequest es el body de POST /v1/otp/verify.
// Device solo aplica a propósitos de login, que abren sesión al verificar.
type VerifyOtpRequest struct {
	Target  string          `json:"target"`
	Purpose string          `json:"purpose"`
	Code    string          `json:"code"`
	Device  auth.DeviceInfo `json:"device"`
}

// VerifyOtpResult es la respuesta de una verificación exitosa. Login incluye
// los tokens de sesión; los propósitos de verificación solo Verified.
type VerifyOtpResult struct {
	Verified bool              `json:"verified"`
	Login    *auth.LoginResult `json:"login,omitempty"`
}
