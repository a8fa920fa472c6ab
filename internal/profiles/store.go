package profiles

import (
	"context"
	"errors"

	"github.com/jmerrifield20/linkaday/internal/identity"
)

var (
	// ErrNotFound is returned when no profile exists for the id.
	ErrNotFound = errors.New("profile not found")
	// ErrUnauthenticated is returned by owner-scoped stores when the context
	// carries no identity.
	ErrUnauthenticated = errors.New("no authenticated identity in context")
	// ErrForbidden is returned when the target id is not the caller's own.
	ErrForbidden = errors.New("profile belongs to another user")
)

// Store is the owner-scoped profile store. Every call acts on behalf of the
// identity in ctx (see identity.NewContext) and may only touch that
// identity's own record.
type Store interface {
	Get(ctx context.Context, id string) (*Profile, error)
	// Create inserts p. An existing record for p.ID is left as is.
	Create(ctx context.Context, p *Profile) error
	// FillMissingDocuments sets null directive, onboarding and profile
	// documents to their empty defaults. Other columns are untouched.
	FillMissingDocuments(ctx context.Context, id string) error
	Update(ctx context.Context, id string, u *Update) error
}

// PlanActivator grants the paid plan. Implementations bypass ownership and
// must only be reachable from verified payment notifications.
type PlanActivator interface {
	// ActivatePlan sets plan=pro and is_active=true. activated is false when
	// no profile exists for id.
	ActivatePlan(ctx context.Context, id string) (activated bool, err error)
}

// authorize checks that ctx belongs to the owner of id.
func authorize(ctx context.Context, id string) error {
	caller, ok := identity.FromContext(ctx)
	if !ok {
		return ErrUnauthenticated
	}
	if caller.ID != id {
		return ErrForbidden
	}
	return nil
}
