package application

import (
	"context"

	"github.com/oksasatya/go-auth-service/internal/domain/entity"
)

// Identity is the authenticated caller. Role is empty until the user record is loaded.
type Identity struct {
	UserID string
	Role   entity.Role
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && id.UserID != ""
}
