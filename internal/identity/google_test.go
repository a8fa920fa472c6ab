package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

func newTestGoogle(t *testing.T, handler http.HandlerFunc) *GoogleProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := NewGoogleProvider(OAuthClientConfig{ClientID: "cid", ClientSecret: "secret", RedirectURL: "http://app/auth/callback"})
	if err != nil {
		t.Fatalf("NewGoogleProvider: %v", err)
	}
	p.cfg.Endpoint = oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"}
	p.userInfoURL = srv.URL + "/userinfo"
	return p
}

func TestNewGoogleProvider_RequiresCredentials(t *testing.T) {
	if _, err := NewGoogleProvider(OAuthClientConfig{}); !errors.Is(err, ErrProviderNotConfigured) {
		t.Fatalf("expected ErrProviderNotConfigured, got %v", err)
	}
}

func TestGoogleProvider_Exchange(t *testing.T) {
	p := newTestGoogle(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/token":
			w.Write([]byte(`{"access_token":"at-1","token_type":"Bearer","expires_in":3600}`)) //nolint:errcheck
		case "/userinfo":
			if r.Header.Get("Authorization") != "Bearer at-1" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte(`{"id":"g-42","email":"a@example.com","verified_email":true}`)) //nolint:errcheck
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	id, err := p.Exchange(context.Background(), "code-1")
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if id.ID != IDFromProvider("google", "g-42") || id.Email != "a@example.com" {
		t.Errorf("unexpected identity: %+v", id)
	}
}

func TestGoogleProvider_ExchangeRejected(t *testing.T) {
	p := newTestGoogle(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant"}`)) //nolint:errcheck
	})

	if _, err := p.Exchange(context.Background(), "bad"); err == nil {
		t.Fatal("expected exchange error")
	}
}

func TestGoogleProvider_AuthCodeURLCarriesState(t *testing.T) {
	p := newTestGoogle(t, func(http.ResponseWriter, *http.Request) {})
	u := p.AuthCodeURL("st-1")
	if !strings.Contains(u, "state=st-1") || !strings.Contains(u, "client_id=cid") {
		t.Errorf("unexpected auth url %q", u)
	}
}
