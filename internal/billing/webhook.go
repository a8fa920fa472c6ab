// Package billing verifies payment notifications, activates subscriptions,
// and opens checkout sessions with Stripe.
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"

	"github.com/jmerrifield20/linkaday/internal/profiles"
)

// Verdict classifies an incoming notification before it is interpreted.
type Verdict int

const (
	VerdictValid Verdict = iota
	VerdictMalformed
	VerdictInvalid
)

func (v Verdict) String() string {
	switch v {
	case VerdictValid:
		return "valid"
	case VerdictMalformed:
		return "malformed"
	default:
		return "invalid"
	}
}

// ErrNotConfigured is returned when the Stripe keys a call needs are not set.
var ErrNotConfigured = errors.New("stripe is not configured")

// Verifier checks Stripe-Signature headers against the endpoint secret.
type Verifier struct {
	secret string
}

// NewVerifier creates a Verifier for the webhook signing secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: secret}
}

// Configured reports whether a signing secret is set.
func (v *Verifier) Configured() bool { return v.secret != "" }

// Verify authenticates payload and decodes the event. A missing or
// unparseable header is malformed; a bad signature, stale timestamp or
// undecodable body is invalid.
func (v *Verifier) Verify(payload []byte, header string) (stripe.Event, Verdict, error) {
	if !v.Configured() {
		return stripe.Event{}, VerdictInvalid, ErrNotConfigured
	}
	if strings.TrimSpace(header) == "" {
		return stripe.Event{}, VerdictMalformed, webhook.ErrNotSigned
	}
	event, err := webhook.ConstructEventWithOptions(payload, header, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidHeader) || errors.Is(err, webhook.ErrNotSigned) {
			return stripe.Event{}, VerdictMalformed, err
		}
		return stripe.Event{}, VerdictInvalid, err
	}
	return event, VerdictValid, nil
}

// Action is what processing an event did.
type Action string

const (
	ActionActivated    Action = "activated"
	ActionIgnored      Action = "ignored"
	ActionUnresolvable Action = "unresolvable"
	ActionUnknownUser  Action = "unknown_user"
	ActionDuplicate    Action = "duplicate"
	ActionFailed       Action = "failed"
)

// Result describes the processing of one event.
type Result struct {
	Action Action
	UserID string
	Err    error
}

// UserIDFromSession returns metadata.user_id, falling back to the client
// reference id. Empty when neither is set.
func UserIDFromSession(s *stripe.CheckoutSession) string {
	if s == nil {
		return ""
	}
	if id := strings.TrimSpace(s.Metadata["user_id"]); id != "" {
		return id
	}
	return strings.TrimSpace(s.ClientReferenceID)
}

// Processor applies verified events to profiles.
type Processor struct {
	activator profiles.PlanActivator
	dedupe    Deduper
	logger    *zap.Logger
}

// NewProcessor creates a Processor. dedupe may be nil.
func NewProcessor(activator profiles.PlanActivator, dedupe Deduper, logger *zap.Logger) *Processor {
	if dedupe == nil {
		dedupe = NoopDeduper{}
	}
	return &Processor{activator: activator, dedupe: dedupe, logger: logger}
}

// Process interprets a verified event. Only checkout.session.completed
// changes state: the referenced user is moved to the active paid plan.
func (p *Processor) Process(ctx context.Context, event stripe.Event) Result {
	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		return Result{Action: ActionIgnored}
	}

	var session stripe.CheckoutSession
	if event.Data == nil || json.Unmarshal(event.Data.Raw, &session) != nil {
		p.logger.Warn("stripe webhook: undecodable checkout session", zap.String("event_id", event.ID))
		return Result{Action: ActionUnresolvable}
	}
	userID := UserIDFromSession(&session)
	if userID == "" {
		p.logger.Warn("stripe webhook: checkout session without user reference",
			zap.String("event_id", event.ID),
			zap.String("session_id", session.ID),
		)
		return Result{Action: ActionUnresolvable}
	}

	if event.ID != "" {
		first, err := p.dedupe.FirstSeen(ctx, event.ID)
		if err != nil {
			p.logger.Warn("stripe webhook: dedupe lookup failed", zap.String("event_id", event.ID), zap.Error(err))
		} else if !first {
			return Result{Action: ActionDuplicate, UserID: userID}
		}
	}

	activated, err := p.activator.ActivatePlan(ctx, userID)
	if err != nil {
		p.logger.Error("stripe webhook: activate plan",
			zap.String("event_id", event.ID),
			zap.String("user_id", userID),
			zap.Error(err),
		)
		if event.ID != "" {
			p.dedupe.Forget(ctx, event.ID)
		}
		return Result{Action: ActionFailed, UserID: userID, Err: err}
	}
	if !activated {
		p.logger.Warn("stripe webhook: no profile for user", zap.String("user_id", userID))
		return Result{Action: ActionUnknownUser, UserID: userID}
	}

	p.logger.Info("subscription activated", zap.String("user_id", userID), zap.String("event_id", event.ID))
	return Result{Action: ActionActivated, UserID: userID}
}
