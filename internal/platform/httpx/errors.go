package httpx

import (
	"errors"
	"net/http"

	"github.com/paylane-hq/paylane/internal/shared"
)

// Sentinel errors raised by handlers and validation layers.
var (
	ErrValidation = errors.New("validation failed")
	ErrDuplicate  = errors.New("duplicate entry")
)

// RespondError maps domain errors to HTTP responses using RFC7807.
// Scope violations and missing resources produce identical responses so an
// unauthorized caller cannot probe for resources in other organizations.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound), errors.Is(err, shared.ErrOrgScopeViolation):
		Problem(w, http.StatusNotFound, "Not Found", "resource not found")
	case errors.Is(err, shared.ErrAuthenticationExpired):
		Problem(w, http.StatusUnauthorized, "Session Expired", err.Error())
	case errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, shared.ErrPermissionDenied), errors.Is(err, shared.ErrImpersonationEscalation):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, shared.ErrStaleState):
		Problem(w, http.StatusConflict, "Stale State", "state changed concurrently; reload and retry against current state")
	case errors.Is(err, shared.ErrInvalidTransition), errors.Is(err, shared.ErrApproverInactive):
		Problem(w, http.StatusConflict, "Invalid Transition", err.Error())
	case errors.Is(err, ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
