// Package identity carries the acting principal through request contexts.
package identity

import (
	"context"

	"github.com/dmitrijs2005/voternet/internal/server/models"
)

// Identity is the authenticated caller as seen by the services.
type Identity struct {
	UserID   string
	Role     models.Role
	IsActive bool
}

type ctxKey struct{}

func NewContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity stored in ctx, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}
