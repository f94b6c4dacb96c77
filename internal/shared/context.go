package shared

import "context"

// Identity is the tenant and actor a request runs on behalf of. It is resolved upstream
// by the gateway that owns authentication.
type Identity struct {
	OrgID   int64
	ActorID int64
}

type identityContextKey struct{}

// ContextWithIdentity stores the identity in context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the identity from context.
func IdentityFromContext(ctx context.Context) (Identity, error) {
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	if !ok || id.OrgID <= 0 || id.ActorID <= 0 {
		return Identity{}, ErrMissingIdentity
	}
	return id, nil
}
