// Package authz wires the permission resolver and organization scope guard
// into chi middleware. Every denial produces exactly one audit record naming
// what was required; scope violations are recorded at security weight and
// surfaced as not-found.
package authz

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/paylane-hq/paylane/internal/platform/httpx"
	"github.com/paylane-hq/paylane/internal/rbac"
	"github.com/paylane-hq/paylane/internal/session"
	"github.com/paylane-hq/paylane/internal/shared"
)

// Middleware bundles the authorization helpers used by HTTP handlers.
type Middleware struct {
	Resolver *rbac.Resolver
	Guard    *rbac.ScopeGuard
	Audit    shared.AuditSink
	Logger   *slog.Logger
}

// RequirePermission ensures the effective role grants the permission.
func (m Middleware) RequirePermission(perm rbac.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sctx := session.FromContext(r.Context())
			if sctx == nil {
				httpx.RespondError(w, shared.ErrAuthenticationExpired)
				return
			}
			if !m.Resolver.HasPermission(sctx, perm) {
				m.recordDenial(r, sctx, "authz.permission_denied", map[string]any{
					"required_permission": string(perm),
					"effective_role":      string(sctx.EffectiveRole(time.Now())),
				})
				httpx.RespondError(w, shared.ErrPermissionDenied)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRoleAtLeast ensures the effective role sits at or above the
// required hierarchy level.
func (m Middleware) RequireRoleAtLeast(required rbac.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sctx := session.FromContext(r.Context())
			if sctx == nil {
				httpx.RespondError(w, shared.ErrAuthenticationExpired)
				return
			}
			if !m.Resolver.HasRoleAtLeast(sctx, required) {
				m.recordDenial(r, sctx, "authz.role_denied", map[string]any{
					"required_role":  string(required),
					"effective_role": string(sctx.EffectiveRole(time.Now())),
				})
				httpx.RespondError(w, shared.ErrPermissionDenied)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireOrgParam confines the request to the organization named by the URL
// parameter. Violations respond exactly like a missing resource.
func (m Middleware) RequireOrgParam(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sctx := session.FromContext(r.Context())
			if sctx == nil {
				httpx.RespondError(w, shared.ErrAuthenticationExpired)
				return
			}
			orgID, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
			if err != nil || orgID <= 0 {
				httpx.RespondError(w, shared.ErrNotFound)
				return
			}
			if !m.Guard.CanAccessOrg(sctx, orgID) {
				m.recordViolation(r, sctx, orgID)
				httpx.RespondError(w, shared.ErrOrgScopeViolation)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) recordDenial(r *http.Request, sctx *session.Context, action string, meta map[string]any) {
	if m.Audit == nil {
		return
	}
	meta["path"] = r.URL.Path
	event := shared.AuditEvent{
		ActorID:     sctx.Identity.UserID,
		RealActorID: sctx.Identity.UserID,
		Action:      action,
		Entity:      "http_request",
		EntityID:    r.URL.Path,
		Result:      shared.AuditResultDenied,
		Meta:        meta,
	}
	if err := m.Audit.Record(r.Context(), event); err != nil && m.Logger != nil {
		m.Logger.Error("record authz denial", slog.Any("error", err))
	}
}

func (m Middleware) recordViolation(r *http.Request, sctx *session.Context, orgID int64) {
	if m.Logger != nil {
		org, scoped := sctx.EffectiveOrg(time.Now())
		m.Logger.Warn("organization scope violation",
			slog.Int64("user_id", sctx.Identity.UserID),
			slog.Int64("target_org", orgID),
			slog.Int64("effective_org", org),
			slog.Bool("org_scoped", scoped))
	}
	if m.Audit == nil {
		return
	}
	event := shared.AuditEvent{
		ActorID:     sctx.Identity.UserID,
		RealActorID: sctx.Identity.UserID,
		Action:      "authz.org_scope_violation",
		Entity:      "organization",
		EntityID:    strconv.FormatInt(orgID, 10),
		Result:      shared.AuditResultSecurity,
		Meta:        map[string]any{"path": r.URL.Path},
	}
	if err := m.Audit.Record(r.Context(), event); err != nil && m.Logger != nil {
		m.Logger.Error("record scope violation", slog.Any("error", err))
	}
}
