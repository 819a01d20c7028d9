package access

import (
	"context"
	"errors"

	"trendmart/internal/models"
)

type PrincipalLookup interface {
	PrincipalByEmail(ctx context.Context, email string) (*models.Principal, error)
}

// Resolver looks a caller's role up on every call; nothing is cached.
type Resolver struct {
	principals PrincipalLookup
}

func NewResolver(principals PrincipalLookup) *Resolver {
	return &Resolver{principals: principals}
}

// ResolveRole returns RoleUnset, not an error, for an unknown email or a
// principal whose stored role is missing or not exactly one of the known
// roles.
func (r *Resolver) ResolveRole(ctx context.Context, email string) (models.Role, error) {
	p, err := r.principals.PrincipalByEmail(ctx, email)
	if errors.Is(err, models.ErrNotFound) {
		return models.RoleUnset, nil
	}
	if err != nil {
		return models.RoleUnset, err
	}
	return models.StoredRole(string(p.Role)), nil
}
