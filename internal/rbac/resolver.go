package rbac

import "time"

// Subject is the effective view of an authenticated actor used for all
// permission decisions. The session layer implements it; the overlay rules
// (expiry, escalation rejection) live there, so the resolver stays a pure
// function of the catalog.
type Subject interface {
	// EffectiveRole returns the role used for authorization decisions.
	EffectiveRole(now time.Time) Role
	// EffectiveOrg returns the organization scope; ok=false means
	// platform-wide scope.
	EffectiveOrg(now time.Time) (int64, bool)
}

// Resolver answers capability and hierarchy checks against the catalog.
type Resolver struct {
	now func() time.Time
}

// NewResolver constructs a Resolver.
func NewResolver() *Resolver {
	return &Resolver{now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (r *Resolver) WithNow(now func() time.Time) {
	if now != nil {
		r.now = now
	}
}

// HasPermission reports whether the subject's effective role grants the
// permission.
func (r *Resolver) HasPermission(sub Subject, perm Permission) bool {
	if sub == nil {
		return false
	}
	for _, p := range PermissionsOf(sub.EffectiveRole(r.now())) {
		if p == perm {
			return true
		}
	}
	return false
}

// HasRoleAtLeast reports whether the subject's effective role sits at or
// above the required role in the hierarchy.
func (r *Resolver) HasRoleAtLeast(sub Subject, required Role) bool {
	if sub == nil {
		return false
	}
	return LevelOf(sub.EffectiveRole(r.now())) >= LevelOf(required)
}
