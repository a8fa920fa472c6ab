package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/checkout/session"

	"github.com/jmerrifield20/linkaday/internal/profiles"
)

var (
	// ErrOnboardingIncomplete is returned when checkout is requested before
	// onboarding is finished.
	ErrOnboardingIncomplete = errors.New("onboarding must be completed before subscribing")
	// ErrAlreadySubscribed is returned when the profile already has an active plan.
	ErrAlreadySubscribed = errors.New("subscription already active")
)

// SessionCreator creates Stripe Checkout Sessions. Satisfied by
// *session.Client.
type SessionCreator interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// CheckoutConfig holds the Stripe settings checkout needs.
type CheckoutConfig struct {
	SecretKey string
	PriceID   string
	// AppURL is the public base URL the provider sends the browser back to.
	AppURL string
}

// Configured reports whether every required setting is present.
func (c CheckoutConfig) Configured() bool {
	return c.SecretKey != "" && c.PriceID != "" && c.AppURL != ""
}

// Checkout opens subscription checkout sessions.
type Checkout struct {
	cfg     CheckoutConfig
	creator SessionCreator
}

// NewCheckout creates a Checkout backed by the Stripe API.
func NewCheckout(cfg CheckoutConfig) *Checkout {
	var creator SessionCreator
	if cfg.SecretKey != "" {
		creator = &session.Client{B: stripe.GetBackend(stripe.APIBackend), Key: cfg.SecretKey}
	}
	return NewCheckoutWithCreator(cfg, creator)
}

// NewCheckoutWithCreator creates a Checkout using creator.
func NewCheckoutWithCreator(cfg CheckoutConfig, creator SessionCreator) *Checkout {
	cfg.AppURL = strings.TrimRight(cfg.AppURL, "/")
	return &Checkout{cfg: cfg, creator: creator}
}

// Start validates that p may subscribe and returns the hosted checkout URL.
func (c *Checkout) Start(ctx context.Context, p *profiles.Profile) (string, error) {
	if !p.OnboardingCompleted {
		return "", ErrOnboardingIncomplete
	}
	if p.IsSubscribed() {
		return "", ErrAlreadySubscribed
	}
	if !c.cfg.Configured() || c.creator == nil {
		return "", ErrNotConfigured
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(c.cfg.PriceID), Quantity: stripe.Int64(1)},
		},
		ClientReferenceID: stripe.String(p.ID),
		SuccessURL:        stripe.String(c.cfg.AppURL + "/connect-telegram?success=1"),
		CancelURL:         stripe.String(c.cfg.AppURL + "/billing?canceled=1"),
		Metadata: map[string]string{
			"user_id": p.ID,
			"email":   p.Email,
		},
	}
	if p.Email != "" {
		params.CustomerEmail = stripe.String(p.Email)
	}
	params.Context = ctx

	s, err := c.creator.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	if s.URL == "" {
		return "", fmt.Errorf("create checkout session: provider returned no url")
	}
	return s.URL, nil
}
