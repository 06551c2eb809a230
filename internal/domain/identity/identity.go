// Package identity carries the request principal. Authentication itself is
// external: the gateway forwards a short username header and this service
// provisions a user row for it on first sight.
package identity

import "context"

// Roles known to the review gate.
const (
	RoleUser     = "user"
	RoleReviewer = "reviewer"
	RoleAdmin    = "admin"
)

// SystemUsername is the sentinel actor recorded when no authenticated
// identity is available.
const SystemUsername = "system"

// Principal is an authenticated (header-provisioned) user.
type Principal struct {
	Username string
	Role     string
}

// CanReview reports whether the principal may approve or reject.
func (p Principal) CanReview() bool {
	return p.Role == RoleReviewer || p.Role == RoleAdmin
}

type principalKey struct{}

// WithPrincipal binds the principal to the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the bound principal, if any.
func FromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// UsernameOrSystem returns the bound username, falling back to the system
// sentinel for unauthenticated requests.
func UsernameOrSystem(ctx context.Context) string {
	if p, ok := FromContext(ctx); ok && p.Username != "" {
		return p.Username
	}
	return SystemUsername
}
