package auth

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/jmerrifield20/linkaday/internal/identity"
	"github.com/jmerrifield20/linkaday/internal/profiles"
	"go.uber.org/zap"
)

// ── Stubs ─────────────────────────────────────────────────────────────────

type stubProvider struct {
	id    identity.Identity
	err   error
	calls int
}

func (p *stubProvider) AuthCodeURL(state string) string { return "https://idp/auth?state=" + state }

func (p *stubProvider) Exchange(_ context.Context, code string) (identity.Identity, error) {
	p.calls++
	if p.err != nil {
		return identity.Identity{}, p.err
	}
	return p.id, nil
}

// failingStore wraps a MemoryStore and fails selected operations.
type failingStore struct {
	*profiles.MemoryStore
	getErr    error
	createErr error
	fillErr   error
}

func (s *failingStore) Get(ctx context.Context, id string) (*profiles.Profile, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.MemoryStore.Get(ctx, id)
}

func (s *failingStore) Create(ctx context.Context, p *profiles.Profile) error {
	if s.createErr != nil {
		return s.createErr
	}
	return s.MemoryStore.Create(ctx, p)
}

func (s *failingStore) FillMissingDocuments(ctx context.Context, id string) error {
	if s.fillErr != nil {
		return s.fillErr
	}
	return s.MemoryStore.FillMissingDocuments(ctx, id)
}

// ── Setup ─────────────────────────────────────────────────────────────────

const testSecret = "0123456789abcdef0123456789abcdef"

var alice = identity.Identity{ID: "u1", Email: "alice@example.com"}

func newCallback(t *testing.T, p identity.Provider, store profiles.Store) (*Callback, *identity.SessionIssuer) {
	t.Helper()
	sessions := identity.NewSessionIssuer(testSecret, "http://test", time.Hour)
	return NewCallback(p, sessions, store, DefaultPaths, false, zap.NewNop()), sessions
}

func validState(t *testing.T, s *identity.SessionIssuer, next string) string {
	t.Helper()
	st, err := s.IssueOAuthState(next)
	if err != nil {
		t.Fatalf("IssueOAuthState: %v", err)
	}
	return st
}

func readyProfile(id string) *profiles.Profile {
	p := profiles.NewDefault(id, id+"@example.com")
	contact := "contact@example.com"
	p.ContactEmail = &contact
	p.OnboardingCompleted = true
	return p
}

func loginError(t *testing.T, redirect string) string {
	t.Helper()
	u, err := url.Parse(redirect)
	if err != nil {
		t.Fatalf("parse redirect %q: %v", redirect, err)
	}
	if u.Path != "/login" {
		t.Fatalf("expected redirect to /login, got %q", redirect)
	}
	return u.Query().Get("error")
}

// ── Tests ─────────────────────────────────────────────────────────────────

func TestComplete_MissingCode(t *testing.T) {
	prov := &stubProvider{id: alice}
	cb, s := newCallback(t, prov, profiles.NewMemoryStore())

	out := cb.Complete(context.Background(), CallbackParams{State: validState(t, s, "")})

	if out.State != ExchangeFailed || out.Token != "" {
		t.Fatalf("expected ExchangeFailed without token, got %s", out.State)
	}
	if code := loginError(t, out.Redirect); code != ErrCodeMissingCode {
		t.Errorf("error = %q", code)
	}
	if prov.calls != 0 {
		t.Error("provider must not be called without a code")
	}
}

func TestComplete_ProviderError(t *testing.T) {
	cb, s := newCallback(t, &stubProvider{id: alice}, profiles.NewMemoryStore())

	out := cb.Complete(context.Background(), CallbackParams{Error: "access_denied", State: validState(t, s, "")})
	if code := loginError(t, out.Redirect); code != ErrCodeAccessDenied {
		t.Errorf("error = %q", code)
	}

	out = cb.Complete(context.Background(), CallbackParams{Error: "<script>", State: validState(t, s, "")})
	if code := loginError(t, out.Redirect); code != ErrCodeAccessDenied {
		t.Errorf("unsanitized provider error leaked: %q", code)
	}
}

func TestComplete_InvalidState(t *testing.T) {
	prov := &stubProvider{id: alice}
	cb, _ := newCallback(t, prov, profiles.NewMemoryStore())

	out := cb.Complete(context.Background(), CallbackParams{Code: "c1", State: "forged"})
	if code := loginError(t, out.Redirect); code != ErrCodeInvalidState {
		t.Errorf("error = %q", code)
	}
	if prov.calls != 0 {
		t.Error("provider must not be called with an invalid state")
	}
}

func TestComplete_ExchangeRejected(t *testing.T) {
	cb, s := newCallback(t, &stubProvider{err: errors.New("invalid_grant")}, profiles.NewMemoryStore())

	out := cb.Complete(context.Background(), CallbackParams{Code: "c1", State: validState(t, s, "")})
	if out.State != ExchangeFailed || out.Token != "" {
		t.Fatalf("expected ExchangeFailed without token, got %s", out.State)
	}
	if code := loginError(t, out.Redirect); code != ErrCodeExchangeFailed {
		t.Errorf("error = %q", code)
	}
}

func TestComplete_DebugAddsDescription(t *testing.T) {
	sessions := identity.NewSessionIssuer(testSecret, "http://test", time.Hour)
	cb := NewCallback(&stubProvider{err: errors.New("boom")}, sessions, profiles.NewMemoryStore(), DefaultPaths, true, zap.NewNop())

	out := cb.Complete(context.Background(), CallbackParams{Code: "c1", State: validState(t, sessions, "")})
	u, _ := url.Parse(out.Redirect)
	if u.Query().Get("error_description") == "" {
		t.Errorf("expected error_description in %q", out.Redirect)
	}
}

func TestComplete_FirstLoginCreatesProfileAndRoutesToOnboarding(t *testing.T) {
	store := profiles.NewMemoryStore()
	cb, s := newCallback(t, &stubProvider{id: alice}, store)

	out := cb.Complete(context.Background(), CallbackParams{Code: "c1", State: validState(t, s, "")})

	if out.State != RouteToOnboarding || out.Redirect != "/profile" {
		t.Fatalf("expected onboarding route, got %s %q", out.State, out.Redirect)
	}
	if out.Token == "" {
		t.Fatal("expected a session token")
	}
	p, ok := store.Snapshot("u1")
	if !ok {
		t.Fatal("default profile was not created")
	}
	if p.Plan != profiles.PlanFree || p.IsActive || p.OnboardingCompleted || p.MissingDocuments() {
		t.Errorf("unexpected default profile: %+v", p)
	}

	want := []State{AwaitingCode, ExchangingCode, SessionEstablished, ProfileResolved, RouteToOnboarding}
	if len(out.Trace) != len(want) {
		t.Fatalf("trace = %v", out.Trace)
	}
	for i := range want {
		if out.Trace[i] != want[i] {
			t.Errorf("trace[%d] = %s, want %s", i, out.Trace[i], want[i])
		}
	}
}

func TestComplete_OnboardedUserRoutesToDashboard(t *testing.T) {
	store := profiles.NewMemoryStore()
	store.Put(readyProfile("u1"))
	cb, s := newCallback(t, &stubProvider{id: alice}, store)

	out := cb.Complete(context.Background(), CallbackParams{Code: "c1", State: validState(t, s, "")})
	if out.State != RouteToDashboard || out.Redirect != "/dashboard" {
		t.Fatalf("expected dashboard route, got %s %q", out.State, out.Redirect)
	}
}

func TestComplete_IncompleteOnboardingIgnoresMissingNext(t *testing.T) {
	store := profiles.NewMemoryStore()
	p := readyProfile("u1")
	p.OnboardingCompleted = false
	store.Put(p)
	cb, s := newCallback(t, &stubProvider{id: alice}, store)

	out := cb.Complete(context.Background(), CallbackParams{Code: "c1", State: validState(t, s, "")})
	if out.Redirect != "/profile" {
		t.Errorf("redirect = %q, want /profile", out.Redirect)
	}
}

func TestComplete_NextOverridesDestination(t *testing.T) {
	store := profiles.NewMemoryStore()
	cb, s := newCallback(t, &stubProvider{id: alice}, store)

	out := cb.Complete(context.Background(), CallbackParams{Code: "c1", State: validState(t, s, "/billing")})
	if out.Redirect != "/billing" {
		t.Errorf("state next: redirect = %q", out.Redirect)
	}

	out = cb.Complete(context.Background(), CallbackParams{Code: "c1", State: validState(t, s, "/billing"), Next: "/connect-telegram"})
	if out.Redirect != "/connect-telegram" {
		t.Errorf("query next: redirect = %q", out.Redirect)
	}
}

func TestComplete_UnsafeNextIgnored(t *testing.T) {
	store := profiles.NewMemoryStore()
	store.Put(readyProfile("u1"))
	cb, s := newCallback(t, &stubProvider{id: alice}, store)

	for _, next := range []string{"//evil.com", "https://evil.com", `/\evil.com`, "dashboard"} {
		out := cb.Complete(context.Background(), CallbackParams{Code: "c1", State: validState(t, s, ""), Next: next})
		if out.Redirect != "/dashboard" {
			t.Errorf("next %q: redirect = %q", next, out.Redirect)
		}
	}
}

func TestComplete_CreateFailureIsTolerated(t *testing.T) {
	store := &failingStore{MemoryStore: profiles.NewMemoryStore(), createErr: errors.New("db down")}
	cb, s := newCallback(t, &stubProvider{id: alice}, store)

	out := cb.Complete(context.Background(), CallbackParams{Code: "c1", State: validState(t, s, "")})
	if out.State != RouteToOnboarding || out.Token == "" {
		t.Fatalf("expected onboarding route with session, got %s", out.State)
	}
}

func TestComplete_LookupFailure(t *testing.T) {
	store := &failingStore{MemoryStore: profiles.NewMemoryStore(), getErr: errors.New("db down")}
	cb, s := newCallback(t, &stubProvider{id: alice}, store)

	out := cb.Complete(context.Background(), CallbackParams{Code: "c1", State: validState(t, s, "")})
	if out.State != ExchangeFailed || out.Token != "" {
		t.Fatalf("expected ExchangeFailed, got %s", out.State)
	}
	if code := loginError(t, out.Redirect); code != ErrCodeProfileUnavailable {
		t.Errorf("error = %q", code)
	}
}

func TestComplete_FillsNullDocuments(t *testing.T) {
	store := profiles.NewMemoryStore()
	legacy := readyProfile("u1")
	legacy.DirectiveJSON, legacy.ProfileJSON = nil, nil
	store.Put(legacy)
	cb, s := newCallback(t, &stubProvider{id: alice}, store)

	out := cb.Complete(context.Background(), CallbackParams{Code: "c1", State: validState(t, s, "")})
	if out.Failed() {
		t.Fatalf("unexpected failure: %v", out.Err)
	}
	p, _ := store.Snapshot("u1")
	if p.MissingDocuments() {
		t.Error("null documents were not filled")
	}
	if !p.OnboardingCompleted || p.ContactEmail == nil {
		t.Error("filling documents changed other columns")
	}
	if out.Profile.MissingDocuments() {
		t.Error("outcome profile still has null documents")
	}
}

func TestComplete_FillFailure(t *testing.T) {
	legacy := readyProfile("u1")
	legacy.OnboardingJSON = nil
	store := &failingStore{MemoryStore: profiles.NewMemoryStore(), fillErr: errors.New("db down")}
	store.Put(legacy)
	cb, s := newCallback(t, &stubProvider{id: alice}, store)

	out := cb.Complete(context.Background(), CallbackParams{Code: "c1", State: validState(t, s, "")})
	if !out.Failed() {
		t.Fatalf("expected failure, got %s", out.State)
	}
}

func TestSafeNext(t *testing.T) {
	tests := map[string]string{
		"/billing":           "/billing",
		"/profile?tab=voice": "/profile?tab=voice",
		"":                   "",
		"//evil.com":         "",
		"https://evil.com":   "",
		"billing":            "",
		`/\evil.com`:         "",
	}
	for in, want := range tests {
		if got := SafeNext(in); got != want {
			t.Errorf("SafeNext(%q) = %q, want %q", in, got, want)
		}
	}
}
