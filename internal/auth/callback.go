package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jmerrifield20/linkaday/internal/identity"
	"github.com/jmerrifield20/linkaday/internal/profiles"
	"go.uber.org/zap"
)

// State is a step of the OAuth callback.
type State string

const (
	AwaitingCode       State = "awaiting_code"
	ExchangingCode     State = "exchanging_code"
	SessionEstablished State = "session_established"
	ExchangeFailed     State = "exchange_failed"
	ProfileResolved    State = "profile_resolved"
	RouteToOnboarding  State = "route_to_onboarding"
	RouteToDashboard   State = "route_to_dashboard"
)

// Login error codes placed in the "error" query parameter.
const (
	ErrCodeAccessDenied       = "access_denied"
	ErrCodeMissingCode        = "missing_code"
	ErrCodeInvalidState       = "invalid_state"
	ErrCodeExchangeFailed     = "exchange_failed"
	ErrCodeSessionFailed      = "session_failed"
	ErrCodeProfileUnavailable = "profile_unavailable"
)

var providerErrCode = regexp.MustCompile(`^[a-z_]{1,64}$`)

// CallbackParams are the query parameters of the provider redirect.
type CallbackParams struct {
	Code             string
	Error            string
	ErrorDescription string
	State            string
	Next             string
}

// Outcome is the terminal result of a callback. Token is set only on success.
type Outcome struct {
	State    State
	Redirect string
	Token    string
	Identity identity.Identity
	Profile  *profiles.Profile
	// Trace lists the states visited, in order.
	Trace []State
	Err   error
}

// Failed reports whether sign-in failed.
func (o *Outcome) Failed() bool { return o.State == ExchangeFailed }

// Callback completes the OAuth code exchange, makes sure the user has a
// profile record, and picks the post-login destination.
type Callback struct {
	provider identity.Provider
	sessions *identity.SessionIssuer
	store    profiles.Store
	paths    Paths
	debug    bool
	logger   *zap.Logger
}

// NewCallback creates a Callback. debug adds provider error details to
// failure redirects.
func NewCallback(provider identity.Provider, sessions *identity.SessionIssuer, store profiles.Store, paths Paths, debug bool, logger *zap.Logger) *Callback {
	return &Callback{
		provider: provider,
		sessions: sessions,
		store:    store,
		paths:    paths,
		debug:    debug,
		logger:   logger,
	}
}

// Complete runs the callback for p.
func (cb *Callback) Complete(ctx context.Context, p CallbackParams) *Outcome {
	out := &Outcome{}
	out.enter(AwaitingCode)

	if p.Error != "" {
		code := ErrCodeAccessDenied
		if providerErrCode.MatchString(p.Error) {
			code = p.Error
		}
		return cb.fail(out, code, fmt.Errorf("provider returned %q: %s", p.Error, p.ErrorDescription))
	}
	if strings.TrimSpace(p.Code) == "" {
		return cb.fail(out, ErrCodeMissingCode, errors.New("callback has no authorization code"))
	}

	stateNext, err := cb.sessions.VerifyOAuthState(p.State)
	if err != nil {
		return cb.fail(out, ErrCodeInvalidState, err)
	}
	next := SafeNext(p.Next)
	if next == "" {
		next = SafeNext(stateNext)
	}

	out.enter(ExchangingCode)
	id, err := cb.provider.Exchange(ctx, p.Code)
	if err != nil {
		return cb.fail(out, ErrCodeExchangeFailed, err)
	}
	token, err := cb.sessions.Issue(id)
	if err != nil {
		return cb.fail(out, ErrCodeSessionFailed, err)
	}
	out.enter(SessionEstablished)
	out.Identity = id

	profile, err := cb.resolveProfile(identity.NewContext(ctx, id), id)
	if err != nil {
		return cb.fail(out, ErrCodeProfileUnavailable, err)
	}
	out.enter(ProfileResolved)
	out.Profile = profile
	out.Token = token

	state, target := cb.paths.Destination(profile, next)
	out.enter(state)
	out.Redirect = target
	return out
}

// resolveProfile loads the caller's profile, creating the default record on
// first login and filling null documents on older records.
func (cb *Callback) resolveProfile(ctx context.Context, id identity.Identity) (*profiles.Profile, error) {
	p, err := cb.store.Get(ctx, id.ID)
	switch {
	case errors.Is(err, profiles.ErrNotFound):
		p = profiles.NewDefault(id.ID, id.Email)
		if err := cb.store.Create(ctx, p); err != nil {
			// Routing continues with the in-memory default; the record is
			// created again on the next login.
			cb.logger.Warn("create default profile", zap.String("user_id", id.ID), zap.Error(err))
		}
		return p, nil
	case err != nil:
		return nil, fmt.Errorf("load profile: %w", err)
	}

	if p.MissingDocuments() {
		if err := cb.store.FillMissingDocuments(ctx, id.ID); err != nil {
			return nil, fmt.Errorf("fill profile documents: %w", err)
		}
		fresh := profiles.NewDefault(p.ID, p.Email)
		if p.DirectiveJSON == nil {
			p.DirectiveJSON = fresh.DirectiveJSON
		}
		if p.OnboardingJSON == nil {
			p.OnboardingJSON = fresh.OnboardingJSON
		}
		if p.ProfileJSON == nil {
			p.ProfileJSON = fresh.ProfileJSON
		}
	}
	return p, nil
}

func (cb *Callback) fail(out *Outcome, code string, err error) *Outcome {
	out.enter(ExchangeFailed)
	out.Err = err
	out.Token = ""

	description := ""
	if cb.debug && err != nil {
		description = err.Error()
	}
	out.Redirect = cb.paths.LoginError(code, description)
	cb.logger.Warn("oauth callback failed", zap.String("code", code), zap.Error(err))
	return out
}

func (o *Outcome) enter(s State) {
	o.State = s
	o.Trace = append(o.Trace, s)
}
