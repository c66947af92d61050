// Package session derives the per-request security context from a decoded
// bearer token: the real identity, the organization scope, and the optional
// impersonation overlay. The real identity is always retained for audit
// attribution; only the effective role/org ever changes.
package session

import (
	"time"

	"github.com/paylane-hq/paylane/internal/rbac"
)

// Identity is the authenticated actor. OrgID nil means platform scope.
// Immutable for the lifetime of a session token.
type Identity struct {
	UserID int64
	OrgID  *int64
	Role   rbac.Role
}

// Overlay is a time-bounded impersonation grant. The target role's hierarchy
// level must not exceed the real identity's level; a violating overlay is
// rejected outright, never downgraded.
type Overlay struct {
	TargetOrgID *int64
	TargetRole  rbac.Role
	ExpiresAt   time.Time
}

// Context is the security context of one request.
type Context struct {
	Identity  Identity
	Overlay   *Overlay
	TokenID   string
	ExpiresAt time.Time
}

// Expired reports whether the session token itself has expired.
func (c *Context) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// overlayLive reports whether an overlay is attached and unexpired,
// independent of the escalation check.
func (c *Context) overlayLive(now time.Time) bool {
	return c.Overlay != nil && now.Before(c.Overlay.ExpiresAt)
}

// Escalated reports whether a live overlay targets a role above the real
// identity's level. Such an overlay should never be constructible; callers
// must treat it as a security event and record it.
func (c *Context) Escalated(now time.Time) bool {
	return c.overlayLive(now) && rbac.LevelOf(c.Overlay.TargetRole) > rbac.LevelOf(c.Identity.Role)
}

// Impersonating reports whether a valid overlay currently shapes the
// effective role and org.
func (c *Context) Impersonating(now time.Time) bool {
	return c.overlayLive(now) && !c.Escalated(now)
}

// EffectiveRole returns the overlay's role while a valid overlay is active,
// else the real identity's role.
func (c *Context) EffectiveRole(now time.Time) rbac.Role {
	if c.Impersonating(now) {
		return c.Overlay.TargetRole
	}
	return c.Identity.Role
}

// EffectiveOrg returns the organization scope used for authorization.
// ok=false means platform-wide scope.
func (c *Context) EffectiveOrg(now time.Time) (int64, bool) {
	if c.Impersonating(now) {
		if c.Overlay.TargetOrgID == nil {
			return 0, false
		}
		return *c.Overlay.TargetOrgID, true
	}
	if c.Identity.OrgID == nil {
		return 0, false
	}
	return *c.Identity.OrgID, true
}
