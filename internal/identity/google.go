package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// ErrProviderNotConfigured is returned when no OAuth client credentials are set.
var ErrProviderNotConfigured = errors.New("oauth provider not configured")

// Provider is an OAuth identity provider that can exchange an authorization
// code for the identity of the signed-in account.
type Provider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (Identity, error)
}

// OAuthClientConfig holds OAuth client credentials for a provider.
type OAuthClientConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// GoogleProvider signs users in with Google accounts.
type GoogleProvider struct {
	cfg         *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

// NewGoogleProvider returns ErrProviderNotConfigured when credentials are missing.
func NewGoogleProvider(c OAuthClientConfig) (*GoogleProvider, error) {
	if c.ClientID == "" || c.ClientSecret == "" {
		return nil, ErrProviderNotConfigured
	}
	return &GoogleProvider{
		cfg: &oauth2.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			RedirectURL:  c.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		userInfoURL: googleUserInfoURL,
		httpClient:  http.DefaultClient,
	}, nil
}

// AuthCodeURL returns the consent screen URL for state.
func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.cfg.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades an authorization code for the account's identity.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (Identity, error) {
	tok, err := p.cfg.Exchange(ctx, code)
	if err != nil {
		return Identity{}, fmt.Errorf("exchange code: %w", err)
	}

	body, err := p.apiGet(ctx, p.userInfoURL, tok.AccessToken)
	if err != nil {
		return Identity{}, err
	}
	var info struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return Identity{}, fmt.Errorf("parse google user info: %w", err)
	}
	if info.ID == "" {
		return Identity{}, fmt.Errorf("google user info has no account id")
	}
	return Identity{ID: IDFromProvider("google", info.ID), Email: info.Email}, nil
}

func (p *GoogleProvider) apiGet(ctx context.Context, url, accessToken string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api get %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("api returned %d: %s", resp.StatusCode, body)
	}
	return body, nil
}
