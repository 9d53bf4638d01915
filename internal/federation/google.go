package federation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const googleUserinfoEndpoint = "https://www.googleapis.com/oauth2/v3/userinfo"

// Google verifica access tokens OAuth2 de Google contra el endpoint
// estándar de userinfo.
type Google struct {
	http     *http.Client
	endpoint string
}

// NewGoogle crea el proveedor Google.
func NewGoogle() *Google {
	return &Google{http: newHTTPClient(), endpoint: googleUserinfoEndpoint}
}

func (g *Google) Name() string { return "google" }

func (g *Google) Identity(ctx context.Context, accessToken string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrTokenRejected
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("federation: google userinfo status %d", resp.StatusCode)
	}

	var info struct {
		Sub           string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("federation: decode userinfo: %w", err)
	}
	if info.Sub == "" {
		return nil, ErrTokenRejected
	}
	if info.Email == "" || !info.EmailVerified {
		return nil, ErrNoEmail
	}

	return &Identity{Provider: g.Name(), UID: info.Sub, Email: info.Email}, nil
}
