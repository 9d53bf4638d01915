// Package admin define los contratos JSON de los endpoints administrativos.
package admin

// DisableUserResult es la respuesta de POST /v1/admin/users/{id}/disable.
type DisableUserResult struct {
	UserID          string `json:"user_id"`
	RevokedTokens   int    `json:"revoked_tokens"`
	RevokedSessions int    `json:"revoked_sessions"`
}
