package shared

import "errors"

// Sentinel errors for the authorization and approval core.
var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAuthenticationExpired indicates the session token has expired or been revoked.
	ErrAuthenticationExpired = errors.New("session expired")
	// ErrPermissionDenied indicates the resolver denied a capability or hierarchy check.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrOrgScopeViolation indicates a cross-organization access attempt.
	// Surfaced to callers as not-found so resource existence does not leak.
	ErrOrgScopeViolation = errors.New("organization scope violation")
	// ErrInvalidTransition indicates a workflow transition from the wrong state,
	// by the wrong actor, or out of sequence.
	ErrInvalidTransition = errors.New("invalid workflow transition")
	// ErrStaleState indicates a concurrent transition won the race; the caller
	// must reload current state before retrying.
	ErrStaleState = errors.New("stale state conflict")
	// ErrImpersonationEscalation indicates an overlay targeting a role above the
	// real identity's level. The overlay is voided, never downgraded-and-allowed.
	ErrImpersonationEscalation = errors.New("impersonation escalation rejected")
	// ErrApproverInactive indicates the designated approver account is deactivated,
	// leaving the workflow blocked.
	ErrApproverInactive = errors.New("designated approver is deactivated")
)
