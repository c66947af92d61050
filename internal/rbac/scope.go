package rbac

import "time"

// ScopeGuard confines non-platform actors to their own organization. Every
// organization-scoped read or write must pass through CanAccessOrg before
// touching storage; client-supplied organization identifiers never bypass it.
type ScopeGuard struct {
	now func() time.Time
}

// NewScopeGuard constructs a ScopeGuard.
func NewScopeGuard() *ScopeGuard {
	return &ScopeGuard{now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (g *ScopeGuard) WithNow(now func() time.Time) {
	if now != nil {
		g.now = now
	}
}

// CanAccessOrg reports whether the subject may touch data belonging to the
// target organization.
func (g *ScopeGuard) CanAccessOrg(sub Subject, targetOrgID int64) bool {
	if sub == nil {
		return false
	}
	org, scoped := sub.EffectiveOrg(g.now())
	if !scoped {
		// Platform-wide scope.
		return true
	}
	return org == targetOrgID
}
