package audit

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/paylane-hq/paylane/internal/authz"
	"github.com/paylane-hq/paylane/internal/platform/httpx"
	"github.com/paylane-hq/paylane/internal/rbac"
)

// Handler serves the audit trail. The trail spans every organization, so
// access requires platform auditor level or above.
type Handler struct {
	logger *slog.Logger
	repo   *Repository
	authz  authz.Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, repo *Repository, mw authz.Middleware) *Handler {
	return &Handler{logger: logger, repo: repo, authz: mw}
}

// MountRoutes registers the audit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/audit", func(r chi.Router) {
		r.Use(h.authz.RequireRoleAtLeast(rbac.RolePlatformAuditor))
		r.Get("/", h.list)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	actorID, _ := strconv.ParseInt(q.Get("actor_id"), 10, 64)
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	events, err := h.repo.List(r.Context(), Filter{
		ActorID: actorID,
		Action:  q.Get("action"),
		Entity:  q.Get("entity"),
		Result:  q.Get("result"),
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		h.logger.Error("list audit events", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"events": events})
}
