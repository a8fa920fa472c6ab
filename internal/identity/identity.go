// Package identity issues and verifies user sessions and talks to the OAuth
// identity provider.
package identity

import (
	"context"

	"github.com/google/uuid"
)

// Identity is the authenticated principal behind a request.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// idNamespace scopes derived user ids to this application.
var idNamespace = uuid.MustParse("6f1c1a4e-2f0b-5d4c-9a77-1f6f0c7d2b10")

// IDFromProvider derives the stable user id for an account at an identity
// provider. The same provider subject always maps to the same id.
func IDFromProvider(provider, subject string) string {
	return uuid.NewSHA1(idNamespace, []byte(provider+":"+subject)).String()
}

type ctxKey struct{}

// NewContext returns a copy of ctx carrying id.
func NewContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity stored by NewContext.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok && id.ID != ""
}
