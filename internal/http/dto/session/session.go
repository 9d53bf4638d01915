// Package session contiene los DTOs de gestión de sesiones y dispositivos.
package session

import "time"

// SessionInfo describe una sesión activa del usuario.
type SessionInfo struct {
	SessionID    string    `json:"session_id"`
	DeviceID     string    `json:"device_id"`
	Platform     string    `json:"platform,omitempty"`
	IPAddress    string    `json:"ip_address,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
	IsTrusted    bool      `json:"is_trusted"`
	IsCurrent    bool      `json:"is_current"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

// ListResult es la respuesta de GET /v1/sessions.
type ListResult struct {
	Sessions []SessionInfo `json:"sessions"`
}

// RevokeResult informa cuántas sesiones se cerraron.
type RevokeResult struct {
	Revoked int `json:"revoked"`
}

// DeviceInfo describe un dispositivo de confianza registrado.
type DeviceInfo struct {
	DeviceID   string    `json:"device_id"`
	Label      string    `json:"label,omitempty"`
	TrustedAt  time.Time `json:"trusted_at"`
	LastUsedAt time.Time `json:"last_used_at"`
}

// TrustRequest es el body de POST /v1/devices/trust.
type TrustRequest struct {
	DeviceID string `json:"device_id"`
	Label    string `json:"label,omitempty"`
}

// DeviceListResult es la respuesta de GET /v1/devices.
type DeviceListResult struct {
	Devices []DeviceInfo `json:"devices"`
}
