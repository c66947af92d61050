package payroll

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/paylane-hq/paylane/internal/platform/httpx"
	"github.com/paylane-hq/paylane/internal/session"
	"github.com/paylane-hq/paylane/internal/shared"
)

// IdempotencyKeeper guards submissions against replays. A failed submission
// releases its key so the corrected retry is not refused.
type IdempotencyKeeper interface {
	CheckAndInsert(ctx context.Context, key, scope string) error
	Delete(ctx context.Context, key string) error
}

// Handler wires HTTP endpoints for pay runs and the approval workflow.
type Handler struct {
	logger      *slog.Logger
	engine      *Engine
	idempotency IdempotencyKeeper
	validator   *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, engine *Engine, idempotency IdempotencyKeeper) *Handler {
	return &Handler{
		logger:      logger,
		engine:      engine,
		idempotency: idempotency,
		validator:   validator.New(),
	}
}

// MountRoutes registers payroll routes. Authorization runs inside the engine
// against each run's owning organization, so no permission middleware sits
// in front of these.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/payruns", h.createRun)
	r.Get("/orgs/{orgID}/payruns", h.listRuns)
	r.Get("/payruns/{id}", h.viewRun)
	r.Post("/payruns/{id}/submit", h.submit)
	r.Post("/payruns/{id}/steps/{stepID}/approve", h.approveStep)
	r.Post("/payruns/{id}/steps/{stepID}/reject", h.rejectStep)
	r.Post("/payruns/{id}/lock", h.lock)
	r.Post("/payruns/{id}/resubmit", h.resubmit)
	r.Post("/payruns/{id}/force-unlock", h.forceUnlock)
}

type createRunRequest struct {
	OrgID       int64   `json:"org_id" validate:"required,gt=0"`
	PayGroupID  int64   `json:"pay_group_id" validate:"required,gt=0"`
	PeriodLabel string  `json:"period_label" validate:"required"`
	TotalNet    float64 `json:"total_net" validate:"gte=0"`
}

func (h *Handler) createRun(w http.ResponseWriter, r *http.Request) {
	sctx := session.FromContext(r.Context())
	var req createRunRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	run, err := h.engine.CreateRun(r.Context(), sctx, CreatePayRunInput{
		OrgID:       req.OrgID,
		PayGroupID:  req.PayGroupID,
		PeriodLabel: req.PeriodLabel,
		TotalNet:    req.TotalNet,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, run)
}

func (h *Handler) listRuns(w http.ResponseWriter, r *http.Request) {
	sctx := session.FromContext(r.Context())
	orgID, err := strconv.ParseInt(chi.URLParam(r, "orgID"), 10, 64)
	if err != nil || orgID <= 0 {
		httpx.RespondError(w, shared.ErrNotFound)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	runs, err := h.engine.ListRuns(r.Context(), sctx, orgID, limit, offset)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"pay_runs": runs})
}

func (h *Handler) viewRun(w http.ResponseWriter, r *http.Request) {
	sctx := session.FromContext(r.Context())
	runID, ok := h.runID(w, r)
	if !ok {
		return
	}
	view, err := h.engine.View(r.Context(), sctx, runID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

type submitStepRequest struct {
	ApproverID   *int64 `json:"approver_id"`
	ApproverRole string `json:"approver_role"`
}

type submitRequest struct {
	Steps []submitStepRequest `json:"steps" validate:"required,min=1,dive"`
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	sctx := session.FromContext(r.Context())
	runID, ok := h.runID(w, r)
	if !ok {
		return
	}
	var req submitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	key := r.Header.Get("Idempotency-Key")
	if key != "" && h.idempotency != nil {
		if err := h.idempotency.CheckAndInsert(r.Context(), key, "payroll.submit"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				httpx.Problem(w, http.StatusConflict, "Duplicate Request", "this submission was already processed")
				return
			}
			h.respondError(w, err)
			return
		}
	}

	steps := make([]StepDefinition, 0, len(req.Steps))
	for _, s := range req.Steps {
		steps = append(steps, StepDefinition{
			ApproverID:   s.ApproverID,
			ApproverRole: roleFromDB(s.ApproverRole),
		})
	}
	view, err := h.engine.Submit(r.Context(), sctx, runID, steps)
	if err != nil {
		// Release the key so a corrected retry is not mistaken for a replay.
		if key != "" && h.idempotency != nil {
			_ = h.idempotency.Delete(r.Context(), key)
		}
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

type actionRequest struct {
	Comment string `json:"comment"`
}

func (h *Handler) approveStep(w http.ResponseWriter, r *http.Request) {
	h.stepAction(w, r, true)
}

func (h *Handler) rejectStep(w http.ResponseWriter, r *http.Request) {
	h.stepAction(w, r, false)
}

func (h *Handler) stepAction(w http.ResponseWriter, r *http.Request, approve bool) {
	sctx := session.FromContext(r.Context())
	runID, ok := h.runID(w, r)
	if !ok {
		return
	}
	stepID, err := uuid.Parse(chi.URLParam(r, "stepID"))
	if err != nil {
		httpx.RespondError(w, shared.ErrNotFound)
		return
	}
	var req actionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil && r.ContentLength > 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	var view WorkflowView
	if approve {
		view, err = h.engine.Approve(r.Context(), sctx, runID, stepID, req.Comment)
	} else {
		view, err = h.engine.Reject(r.Context(), sctx, runID, stepID, req.Comment)
	}
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) lock(w http.ResponseWriter, r *http.Request) {
	sctx := session.FromContext(r.Context())
	runID, ok := h.runID(w, r)
	if !ok {
		return
	}
	run, err := h.engine.Lock(r.Context(), sctx, runID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, run)
}

func (h *Handler) resubmit(w http.ResponseWriter, r *http.Request) {
	sctx := session.FromContext(r.Context())
	runID, ok := h.runID(w, r)
	if !ok {
		return
	}
	run, err := h.engine.Resubmit(r.Context(), sctx, runID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, run)
}

type forceUnlockRequest struct {
	Reason string `json:"reason" validate:"required"`
}

func (h *Handler) forceUnlock(w http.ResponseWriter, r *http.Request) {
	sctx := session.FromContext(r.Context())
	runID, ok := h.runID(w, r)
	if !ok {
		return
	}
	var req forceUnlockRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	run, err := h.engine.ForceUnlock(r.Context(), sctx, runID, req.Reason)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, run)
}

func (h *Handler) runID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, shared.ErrNotFound)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var invalid *InvalidTransitionError
	if errors.As(err, &invalid) {
		httpx.Problem(w, http.StatusConflict, "Invalid Transition", invalid.Error())
		return
	}
	httpx.RespondError(w, err)
}
