package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/paylane-hq/paylane/internal/platform/httpx"
	"github.com/paylane-hq/paylane/internal/rbac"
	"github.com/paylane-hq/paylane/internal/session"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	verifier  *session.Verifier
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, verifier *session.Verifier) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		verifier:  verifier,
		validator: validator.New(),
	}
}

// MountRoutes registers auth routes. Login is additionally rate limited at
// the router level.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Post("/impersonate", h.handleImpersonate)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	result, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

type impersonateRequest struct {
	TargetOrgID int64  `json:"target_org_id" validate:"required,gt=0"`
	TargetRole  string `json:"target_role" validate:"required"`
	TTLMinutes  int    `json:"ttl_minutes" validate:"gte=0,lte=60"`
}

func (h *Handler) handleImpersonate(w http.ResponseWriter, r *http.Request) {
	sctx := session.FromContext(r.Context())
	if sctx == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	var req impersonateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	result, err := h.service.Impersonate(r.Context(), sctx, ImpersonateInput{
		TargetOrgID: req.TargetOrgID,
		TargetRole:  rbac.Role(req.TargetRole),
		TTL:         time.Duration(req.TTLMinutes) * time.Minute,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sctx := session.FromContext(r.Context())
	if sctx != nil {
		if err := h.verifier.Revoke(r.Context(), sctx); err != nil {
			h.logger.Warn("revoke session", slog.Any("error", err))
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
