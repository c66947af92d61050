package orgs

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/paylane-hq/paylane/internal/authz"
	"github.com/paylane-hq/paylane/internal/platform/httpx"
	"github.com/paylane-hq/paylane/internal/rbac"
	"github.com/paylane-hq/paylane/internal/shared"
)

// Handler manages organization endpoints. Creation and listing are platform
// actions; reading and updating a single organization is org-scoped.
type Handler struct {
	logger  *slog.Logger
	service *Service
	authz   authz.Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, authz: mw}
}

// MountRoutes registers organization routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/orgs", func(r chi.Router) {
		r.With(h.authz.RequirePermission(rbac.PermManageOrganizations)).Post("/", h.create)
		r.With(h.authz.RequireRoleAtLeast(rbac.RolePlatformAuditor)).Get("/", h.list)
		r.Route("/{orgID}", func(r chi.Router) {
			r.Use(h.authz.RequireOrgParam("orgID"))
			r.Get("/", h.get)
			r.With(h.authz.RequirePermission(rbac.PermManageOrganizations)).Put("/", h.update)
		})
	})
}

type orgRequest struct {
	Name    string `json:"name"`
	Slug    string `json:"slug"`
	Country string `json:"country"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req orgRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	org, err := h.service.Create(r.Context(), Organization{Name: req.Name, Slug: req.Slug, Country: req.Country})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, org)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	organizations, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("list organizations", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"organizations": organizations})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orgID(w, r)
	if !ok {
		return
	}
	org, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, org)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orgID(w, r)
	if !ok {
		return
	}
	var req orgRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	org, err := h.service.Update(r.Context(), Organization{ID: id, Name: req.Name, Country: req.Country})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, org)
}

func (h *Handler) orgID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "orgID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, shared.ErrNotFound)
		return 0, false
	}
	return id, true
}
