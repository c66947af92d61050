package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/paylane-hq/paylane/internal/rbac"
	"github.com/paylane-hq/paylane/internal/session"
	"github.com/paylane-hq/paylane/internal/shared"
)

// maxOverlayTTL caps how long an impersonation token stays valid.
const maxOverlayTTL = time.Hour

// ImpersonateInput names the organization and role the caller wants to act
// as, and for how long.
type ImpersonateInput struct {
	TargetOrgID int64
	TargetRole  rbac.Role
	TTL         time.Duration
}

// Impersonate issues a new token carrying an impersonation overlay on top of
// the caller's real identity. The overlay can never grant more than the
// caller's real role: a target above the caller's level is refused at
// issuance, and the verifier independently voids it at use.
func (s *Service) Impersonate(ctx context.Context, sctx *session.Context, in ImpersonateInput) (LoginResult, error) {
	if sctx.Impersonating(time.Now()) {
		return LoginResult{}, fmt.Errorf("%w: impersonation sessions cannot be nested", shared.ErrPermissionDenied)
	}
	if !hasRealPermission(sctx.Identity.Role, rbac.PermImpersonateUsers) {
		s.recordAudit(ctx, sctx, "impersonation.start_denied", shared.AuditResultDenied, in)
		return LoginResult{}, shared.ErrPermissionDenied
	}
	if !rbac.Known(in.TargetRole) {
		return LoginResult{}, fmt.Errorf("%w: unknown role %q", shared.ErrPermissionDenied, in.TargetRole)
	}
	if rbac.LevelOf(in.TargetRole) > rbac.LevelOf(sctx.Identity.Role) {
		s.recordAudit(ctx, sctx, "impersonation.escalation_refused", shared.AuditResultSecurity, in)
		return LoginResult{}, shared.ErrImpersonationEscalation
	}
	ttl := in.TTL
	if ttl <= 0 || ttl > maxOverlayTTL {
		ttl = maxOverlayTTL
	}
	overlay := &session.Overlay{
		TargetOrgID: &in.TargetOrgID,
		TargetRole:  in.TargetRole,
		ExpiresAt:   time.Now().Add(ttl),
	}
	token, err := s.codec.Issue(sctx.Identity, overlay, ttl)
	if err != nil {
		return LoginResult{}, err
	}
	s.recordAudit(ctx, sctx, "impersonation.start", shared.AuditResultAllowed, in)
	return LoginResult{Token: token, ExpiresAt: overlay.ExpiresAt}, nil
}

func hasRealPermission(role rbac.Role, perm rbac.Permission) bool {
	if !rbac.Known(role) {
		return false
	}
	for _, p := range rbac.PermissionsOf(role) {
		if p == perm {
			return true
		}
	}
	return false
}

func (s *Service) recordAudit(ctx context.Context, sctx *session.Context, action, result string, in ImpersonateInput) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditEvent{
		ActorID:     sctx.Identity.UserID,
		RealActorID: sctx.Identity.UserID,
		Action:      action,
		Entity:      "session",
		Result:      result,
		Meta: map[string]any{
			"target_org_id": in.TargetOrgID,
			"target_role":   string(in.TargetRole),
		},
		At: time.Now(),
	})
}
