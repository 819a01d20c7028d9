// Package access decides whether a request may reach a protected operation.
//
// A Chain is an ordered list of Guards. Evaluate runs them in order and stops
// at the first rejection. Authenticate always comes first: the role guards
// reject any request that has no verified identity yet.
package access

import (
	"context"
	"errors"

	"trendmart/internal/auth"
	"trendmart/internal/models"
)

type Reason int

const (
	ReasonNone Reason = iota
	ReasonMissingToken
	ReasonMalformedToken
	ReasonInvalidToken
	ReasonForbidden
	ReasonUnavailable
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonMissingToken:
		return "missing token"
	case ReasonMalformedToken:
		return "malformed token"
	case ReasonInvalidToken:
		return "invalid token"
	case ReasonForbidden:
		return "forbidden"
	case ReasonUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Unauthenticated reports whether the caller failed to present a usable
// credential, as opposed to presenting one without enough privilege.
func (r Reason) Unauthenticated() bool {
	return r == ReasonMissingToken || r == ReasonMalformedToken || r == ReasonInvalidToken
}

type Outcome struct {
	Allowed bool
	Reason  Reason
	// Err is the underlying failure for ReasonUnavailable.
	Err error
}

func Allow() Outcome { return Outcome{Allowed: true} }

func Reject(reason Reason, err error) Outcome {
	return Outcome{Reason: reason, Err: err}
}

// Request is the state a chain works on. Guards fill in Identity and Role as
// they establish them.
type Request struct {
	Authorization string
	Identity      *auth.Identity
	Role          models.Role
}

type Guard func(ctx context.Context, req *Request) Outcome

type Chain []Guard

func (c Chain) Evaluate(ctx context.Context, req *Request) Outcome {
	for _, g := range c {
		if out := g(ctx, req); !out.Allowed {
			return out
		}
	}
	return Allow()
}

type Verifier interface {
	Verify(token string) (auth.Identity, error)
}

func Authenticate(v Verifier) Guard {
	return func(_ context.Context, req *Request) Outcome {
		token, err := auth.BearerToken(req.Authorization)
		switch {
		case errors.Is(err, auth.ErrMissingToken):
			return Reject(ReasonMissingToken, err)
		case err != nil:
			return Reject(ReasonMalformedToken, err)
		}

		id, err := v.Verify(token)
		if err != nil {
			return Reject(ReasonInvalidToken, err)
		}
		req.Identity = &id
		return Allow()
	}
}

// RequireRole admits only callers whose stored role is exactly want. A
// missing principal counts as the wrong role.
func RequireRole(r *Resolver, want models.Role) Guard {
	return func(ctx context.Context, req *Request) Outcome {
		if req.Identity == nil {
			return Reject(ReasonMissingToken, auth.ErrMissingToken)
		}
		role, err := r.ResolveRole(ctx, req.Identity.Email)
		if err != nil {
			return Reject(ReasonUnavailable, err)
		}
		req.Role = role
		if role == models.RoleUnset || role != want {
			return Reject(ReasonForbidden, nil)
		}
		return Allow()
	}
}

func RequireAdmin(r *Resolver) Guard  { return RequireRole(r, models.RoleAdmin) }
func RequireVendor(r *Resolver) Guard { return RequireRole(r, models.RoleVendor) }

func AdminChain(v Verifier, r *Resolver) Chain {
	return Chain{Authenticate(v), RequireAdmin(r)}
}

func VendorChain(v Verifier, r *Resolver) Chain {
	return Chain{Authenticate(v), RequireVendor(r)}
}
