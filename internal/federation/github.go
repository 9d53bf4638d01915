package federation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

const (
	githubUserEndpoint  = "https://api.github.com/user"
	githubEmailEndpoint = "https://api.github.com/user/emails"
)

// GitHub verifica access tokens de GitHub. A diferencia de Google, el user
// endpoint puede no traer email (casillas privadas), así que se consulta
// /user/emails como fallback.
type GitHub struct {
	http          *http.Client
	userEndpoint  string
	emailEndpoint string
}

// NewGitHub crea el proveedor GitHub.
func NewGitHub() *GitHub {
	return &GitHub{
		http:          newHTTPClient(),
		userEndpoint:  githubUserEndpoint,
		emailEndpoint: githubEmailEndpoint,
	}
}

func (g *GitHub) Name() string { return "github" }

func (g *GitHub) Identity(ctx context.Context, accessToken string) (*Identity, error) {
	var user struct {
		ID    int64  `json:"id"`
		Email string `json:"email"`
	}
	if err := g.get(ctx, g.userEndpoint, accessToken, &user); err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, ErrTokenRejected
	}

	email := user.Email
	if email == "" {
		var err error
		email, err = g.primaryEmail(ctx, accessToken)
		if err != nil {
			return nil, err
		}
	}

	return &Identity{
		Provider: g.Name(),
		UID:      strconv.FormatInt(user.ID, 10),
		Email:    email,
	}, nil
}

// primaryEmail busca el email primario verificado, con fallback a
// cualquier verificado.
func (g *GitHub) primaryEmail(ctx context.Context, accessToken string) (string, error) {
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := g.get(ctx, g.emailEndpoint, accessToken, &emails); err != nil {
		return "", err
	}

	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email, nil
		}
	}
	return "", ErrNoEmail
}

func (g *GitHub) get(ctx context.Context, url, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrTokenRejected
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("federation: github api status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
