package payroll

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/paylane-hq/paylane/internal/rbac"
	"github.com/paylane-hq/paylane/internal/session"
	"github.com/paylane-hq/paylane/internal/shared"
)

// DirectoryEntry is the subset of a user account the engine needs.
type DirectoryEntry struct {
	ID     int64
	Name   string
	Email  string
	Active bool
}

// UserDirectory resolves approver accounts. The users module implements it.
type UserDirectory interface {
	Lookup(ctx context.Context, userID int64) (DirectoryEntry, error)
}

// Engine drives the pay run approval state machine. All authorization runs
// here, against the run's own organization, before any state is touched: the
// scope guard first, then capability checks, then the state machine.
type Engine struct {
	repo      Repository
	directory UserDirectory
	resolver  *rbac.Resolver
	guard     *rbac.ScopeGuard
	audit     shared.AuditSink
	notifier  NotificationPublisher
	cache     *ViewCache
	logger    *slog.Logger
	now       func() time.Time
}

// NewEngine constructs an Engine.
func NewEngine(repo Repository, directory UserDirectory, resolver *rbac.Resolver, guard *rbac.ScopeGuard, audit shared.AuditSink, notifier NotificationPublisher, logger *slog.Logger) *Engine {
	return &Engine{
		repo:      repo,
		directory: directory,
		resolver:  resolver,
		guard:     guard,
		audit:     audit,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
	}
}

// WithNow overrides the clock for deterministic tests.
func (e *Engine) WithNow(now func() time.Time) {
	if now != nil {
		e.now = now
	}
}

// SetViewCache enables cached workflow reads. Authorization always runs
// before the cache is consulted.
func (e *Engine) SetViewCache(cache *ViewCache) {
	e.cache = cache
}

// CreateRun creates a draft pay run.
func (e *Engine) CreateRun(ctx context.Context, sctx *session.Context, in CreatePayRunInput) (PayRun, error) {
	if err := e.authorize(ctx, sctx, in.OrgID, rbac.PermProcessPayroll); err != nil {
		return PayRun{}, err
	}
	if in.PayGroupID == 0 || in.PeriodLabel == "" {
		return PayRun{}, errors.New("payroll: pay group and period required")
	}
	in.CreatedBy = sctx.Identity.UserID
	run, err := e.repo.CreatePayRun(ctx, in)
	if err != nil {
		return PayRun{}, err
	}
	e.recordTransition(ctx, sctx, run, "payroll.run_created", nil)
	return run, nil
}

// Submit moves a draft run to pending approval and atomically instantiates
// the ordered step chain: step 1 pending, the rest waiting. A partially
// created chain is never observable.
func (e *Engine) Submit(ctx context.Context, sctx *session.Context, runID uuid.UUID, steps []StepDefinition) (WorkflowView, error) {
	run, err := e.loadAuthorized(ctx, sctx, runID, rbac.PermProcessPayroll)
	if err != nil {
		return WorkflowView{}, err
	}
	if err := ValidateChain(steps); err != nil {
		return WorkflowView{}, err
	}

	workflowID := uuid.New()
	var chain []ApprovalStep
	err = e.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetPayRunForUpdate(ctx, runID)
		if err != nil {
			return err
		}
		if current.Status != RunStatusDraft {
			return &InvalidTransitionError{
				Expected: string(RunStatusDraft),
				Actual:   string(current.Status),
				ActorID:  sctx.Identity.UserID,
				Reason:   "only a draft run can be submitted for approval",
			}
		}
		ok, err := tx.TransitionRun(ctx, runID, RunStatusDraft, RunStatusPendingApproval)
		if err != nil {
			return err
		}
		if !ok {
			return shared.ErrStaleState
		}
		chain = make([]ApprovalStep, 0, len(steps))
		for i, def := range steps {
			status := StepStatusWaiting
			if i == 0 {
				status = StepStatusPending
			}
			chain = append(chain, ApprovalStep{
				ID:           uuid.New(),
				PayRunID:     runID,
				WorkflowID:   workflowID,
				Seq:          i + 1,
				ApproverID:   def.ApproverID,
				ApproverRole: def.ApproverRole,
				Status:       status,
			})
		}
		if err := tx.InsertSteps(ctx, chain); err != nil {
			return err
		}
		return tx.SetWorkflow(ctx, runID, &workflowID)
	})
	if err != nil {
		return WorkflowView{}, err
	}

	run.Status = RunStatusPendingApproval
	run.WorkflowID = &workflowID
	e.recordTransition(ctx, sctx, run, "payroll.submitted", map[string]any{"workflow_id": workflowID.String(), "steps": len(chain)})
	e.notifyStepPending(ctx, run, chain[0])
	return WorkflowView{Run: run, Steps: chain}, nil
}

// Approve actions the current pending step. Exactly one of two concurrent
// requests on the same step succeeds; the loser gets a stale-state conflict.
func (e *Engine) Approve(ctx context.Context, sctx *session.Context, runID, stepID uuid.UUID, comment string) (WorkflowView, error) {
	return e.actionStep(ctx, sctx, runID, stepID, comment, true)
}

// Reject actions the current pending step and terminates the workflow. All
// subsequent steps stay waiting permanently; only an explicit resubmission
// can restart the run.
func (e *Engine) Reject(ctx context.Context, sctx *session.Context, runID, stepID uuid.UUID, reason string) (WorkflowView, error) {
	if reason == "" {
		return WorkflowView{}, errors.New("payroll: rejection requires a reason")
	}
	return e.actionStep(ctx, sctx, runID, stepID, reason, false)
}

func (e *Engine) actionStep(ctx context.Context, sctx *session.Context, runID, stepID uuid.UUID, comment string, approve bool) (WorkflowView, error) {
	run, err := e.loadAuthorized(ctx, sctx, runID, "")
	if err != nil {
		return WorkflowView{}, err
	}

	now := e.now()
	actorID := sctx.Identity.UserID
	var (
		actioned  ApprovalStep
		nextStep  *ApprovalStep
		finalized RunStatus
	)
	err = e.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetPayRunForUpdate(ctx, runID)
		if err != nil {
			return err
		}
		if current.Status != RunStatusPendingApproval || current.WorkflowID == nil {
			return &InvalidTransitionError{
				Expected: string(RunStatusPendingApproval),
				Actual:   string(current.Status),
				ActorID:  actorID,
				Reason:   "run is not awaiting approval",
			}
		}
		step, err := tx.GetStep(ctx, stepID)
		if err != nil {
			return err
		}
		if step.PayRunID != runID || step.WorkflowID != *current.WorkflowID {
			// Steps of a superseded workflow are audit history, not actionable.
			return shared.ErrNotFound
		}
		switch step.Status {
		case StepStatusWaiting:
			return &InvalidTransitionError{
				Expected: string(StepStatusPending),
				Actual:   string(step.Status),
				ActorID:  actorID,
				Reason:   "step is not the current pending step",
			}
		case StepStatusApproved, StepStatusRejected:
			return &InvalidTransitionError{
				Expected: string(StepStatusPending),
				Actual:   string(step.Status),
				ActorID:  actorID,
				Reason:   "step has already been actioned",
			}
		}
		if err := e.checkDesignatedApprover(ctx, sctx, step); err != nil {
			return err
		}

		target := StepStatusApproved
		if !approve {
			target = StepStatusRejected
		}
		ok, err := tx.TransitionStep(ctx, stepID, StepStatusPending, target, actorID, comment, now)
		if err != nil {
			return err
		}
		if !ok {
			return shared.ErrStaleState
		}
		step.Status = target
		step.Comment = comment
		step.ActionedBy = &actorID
		step.ActionedAt = &now
		actioned = step

		if !approve {
			ok, err := tx.TransitionRun(ctx, runID, RunStatusPendingApproval, RunStatusRejected)
			if err != nil {
				return err
			}
			if !ok {
				return shared.ErrStaleState
			}
			finalized = RunStatusRejected
			return nil
		}

		next, err := tx.StepBySeq(ctx, *current.WorkflowID, step.Seq+1)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				ok, err := tx.TransitionRun(ctx, runID, RunStatusPendingApproval, RunStatusApproved)
				if err != nil {
					return err
				}
				if !ok {
					return shared.ErrStaleState
				}
				finalized = RunStatusApproved
				return nil
			}
			return err
		}
		ok, err = tx.ActivateStep(ctx, next.ID)
		if err != nil {
			return err
		}
		if !ok {
			return shared.ErrStaleState
		}
		next.Status = StepStatusPending
		nextStep = &next
		return nil
	})
	if err != nil {
		return WorkflowView{}, err
	}

	action := "payroll.step_approved"
	if !approve {
		action = "payroll.step_rejected"
	}
	if finalized != "" {
		run.Status = finalized
	}
	e.recordTransition(ctx, sctx, run, action, map[string]any{
		"step_id": stepID.String(),
		"seq":     actioned.Seq,
	})

	actorName := e.lookupName(ctx, actorID)
	switch {
	case !approve:
		e.notify(ctx, func() error {
			return e.notifier.RunRejected(ctx, RunRejectedEvent{
				PayRunID:  runID,
				OrgName:   run.OrgName,
				PayPeriod: run.PeriodLabel,
				ActorName: actorName,
				Reason:    comment,
			})
		})
	case nextStep != nil:
		e.notifyStepPending(ctx, run, *nextStep)
	default:
		e.notify(ctx, func() error {
			return e.notifier.RunApproved(ctx, RunApprovedEvent{
				PayRunID:  runID,
				OrgName:   run.OrgName,
				PayPeriod: run.PeriodLabel,
				TotalNet:  run.TotalNet,
				ActorName: actorName,
			})
		})
	}

	// Reassemble the view from storage; authorization already ran above.
	updated, err := e.repo.GetPayRun(ctx, runID)
	if err != nil {
		return WorkflowView{}, err
	}
	steps, err := e.repo.ListSteps(ctx, actioned.WorkflowID)
	if err != nil {
		return WorkflowView{}, err
	}
	return WorkflowView{Run: updated, Steps: steps}, nil
}

// Lock moves an approved run to its terminal locked state prior to payment
// export. Requires both the payroll processing permission and the explicit
// final-lock capability.
func (e *Engine) Lock(ctx context.Context, sctx *session.Context, runID uuid.UUID) (PayRun, error) {
	run, err := e.loadAuthorized(ctx, sctx, runID, rbac.PermProcessPayroll)
	if err != nil {
		return PayRun{}, err
	}
	if !e.resolver.HasPermission(sctx, rbac.PermLockPayroll) {
		e.recordDenied(ctx, sctx, run, string(rbac.PermLockPayroll))
		return PayRun{}, shared.ErrPermissionDenied
	}
	now := e.now()
	err = e.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetPayRunForUpdate(ctx, runID)
		if err != nil {
			return err
		}
		if current.Status != RunStatusApproved {
			return &InvalidTransitionError{
				Expected: string(RunStatusApproved),
				Actual:   string(current.Status),
				ActorID:  sctx.Identity.UserID,
				Reason:   "only a fully approved run can be locked",
			}
		}
		ok, err := tx.TransitionRun(ctx, runID, RunStatusApproved, RunStatusLocked)
		if err != nil {
			return err
		}
		if !ok {
			return shared.ErrStaleState
		}
		return tx.MarkLocked(ctx, runID, sctx.Identity.UserID, now)
	})
	if err != nil {
		return PayRun{}, err
	}
	run.Status = RunStatusLocked
	e.recordTransition(ctx, sctx, run, "payroll.locked", nil)
	return run, nil
}

// Resubmit returns a rejected run to draft. The superseded workflow's steps
// are retained for audit; the next submission instantiates a fresh chain
// with new identifiers.
func (e *Engine) Resubmit(ctx context.Context, sctx *session.Context, runID uuid.UUID) (PayRun, error) {
	run, err := e.loadAuthorized(ctx, sctx, runID, rbac.PermProcessPayroll)
	if err != nil {
		return PayRun{}, err
	}
	err = e.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetPayRunForUpdate(ctx, runID)
		if err != nil {
			return err
		}
		if current.Status != RunStatusRejected {
			return &InvalidTransitionError{
				Expected: string(RunStatusRejected),
				Actual:   string(current.Status),
				ActorID:  sctx.Identity.UserID,
				Reason:   "only a rejected run can be resubmitted",
			}
		}
		ok, err := tx.TransitionRun(ctx, runID, RunStatusRejected, RunStatusDraft)
		if err != nil {
			return err
		}
		if !ok {
			return shared.ErrStaleState
		}
		return tx.SetWorkflow(ctx, runID, nil)
	})
	if err != nil {
		return PayRun{}, err
	}
	run.Status = RunStatusDraft
	run.WorkflowID = nil
	e.recordTransition(ctx, sctx, run, "payroll.resubmitted", nil)
	return run, nil
}

// ForceUnlock is the administrative override: it returns a locked run to
// approved independent of the step chain. Restricted to org-admin level and
// above; the scope guard still applies to organization actors, and the
// action is always recorded with full attribution.
func (e *Engine) ForceUnlock(ctx context.Context, sctx *session.Context, runID uuid.UUID, reason string) (PayRun, error) {
	run, err := e.loadAuthorized(ctx, sctx, runID, rbac.PermForceUnlockPayroll)
	if err != nil {
		return PayRun{}, err
	}
	if !e.resolver.HasRoleAtLeast(sctx, rbac.RoleOrgAdmin) {
		e.recordDenied(ctx, sctx, run, "role:"+string(rbac.RoleOrgAdmin))
		return PayRun{}, shared.ErrPermissionDenied
	}
	if reason == "" {
		return PayRun{}, errors.New("payroll: force unlock requires a reason")
	}
	err = e.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetPayRunForUpdate(ctx, runID)
		if err != nil {
			return err
		}
		if current.Status != RunStatusLocked {
			return &InvalidTransitionError{
				Expected: string(RunStatusLocked),
				Actual:   string(current.Status),
				ActorID:  sctx.Identity.UserID,
				Reason:   "only a locked run can be force unlocked",
			}
		}
		ok, err := tx.TransitionRun(ctx, runID, RunStatusLocked, RunStatusApproved)
		if err != nil {
			return err
		}
		if !ok {
			return shared.ErrStaleState
		}
		return nil
	})
	if err != nil {
		return PayRun{}, err
	}
	run.Status = RunStatusApproved
	e.recordTransition(ctx, sctx, run, "payroll.force_unlocked", map[string]any{"reason": reason})
	return run, nil
}

// View returns the run with its active chain. Blocked reports a pending step
// whose designated approver account has been deactivated.
func (e *Engine) View(ctx context.Context, sctx *session.Context, runID uuid.UUID) (WorkflowView, error) {
	run, err := e.loadAuthorized(ctx, sctx, runID, rbac.PermViewPayroll)
	if err != nil {
		return WorkflowView{}, err
	}
	if e.cache != nil {
		return e.cache.Get(ctx, runID, func(ctx context.Context) (WorkflowView, error) {
			return e.buildView(ctx, run)
		})
	}
	return e.buildView(ctx, run)
}

func (e *Engine) buildView(ctx context.Context, run PayRun) (WorkflowView, error) {
	view := WorkflowView{Run: run}
	if run.WorkflowID == nil {
		return view, nil
	}
	steps, err := e.repo.ListSteps(ctx, *run.WorkflowID)
	if err != nil {
		return WorkflowView{}, err
	}
	view.Steps = steps
	for _, step := range steps {
		if step.Status != StepStatusPending || step.ApproverID == nil {
			continue
		}
		entry, err := e.directory.Lookup(ctx, *step.ApproverID)
		if err != nil {
			return WorkflowView{}, err
		}
		view.Blocked = !entry.Active
	}
	return view, nil
}

// ListRuns returns an organization's runs for callers with view access.
func (e *Engine) ListRuns(ctx context.Context, sctx *session.Context, orgID int64, limit, offset int) ([]PayRun, error) {
	if err := e.authorize(ctx, sctx, orgID, rbac.PermViewPayroll); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return e.repo.ListPayRuns(ctx, orgID, limit, offset)
}

// loadAuthorized loads a run and authorizes the caller against its owning
// organization. The scope guard runs before any permission or state check,
// and an out-of-scope run is indistinguishable from a missing one.
func (e *Engine) loadAuthorized(ctx context.Context, sctx *session.Context, runID uuid.UUID, perm rbac.Permission) (PayRun, error) {
	if sctx == nil {
		return PayRun{}, shared.ErrAuthenticationExpired
	}
	run, err := e.repo.GetPayRun(ctx, runID)
	if err != nil {
		return PayRun{}, err
	}
	if err := e.authorize(ctx, sctx, run.OrgID, perm); err != nil {
		return PayRun{}, err
	}
	return run, nil
}

func (e *Engine) authorize(ctx context.Context, sctx *session.Context, orgID int64, perm rbac.Permission) error {
	if sctx == nil {
		return shared.ErrAuthenticationExpired
	}
	if !e.guard.CanAccessOrg(sctx, orgID) {
		e.recordAudit(ctx, shared.AuditEvent{
			ActorID:     sctx.Identity.UserID,
			RealActorID: sctx.Identity.UserID,
			Action:      "authz.org_scope_violation",
			Entity:      "organization",
			EntityID:    strconv.FormatInt(orgID, 10),
			Result:      shared.AuditResultSecurity,
		})
		return shared.ErrOrgScopeViolation
	}
	if perm == "" {
		return nil
	}
	if !e.resolver.HasPermission(sctx, perm) {
		e.recordAudit(ctx, shared.AuditEvent{
			ActorID:     sctx.Identity.UserID,
			RealActorID: sctx.Identity.UserID,
			Action:      "authz.permission_denied",
			Entity:      "organization",
			EntityID:    strconv.FormatInt(orgID, 10),
			Result:      shared.AuditResultDenied,
			Meta:        map[string]any{"required_permission": string(perm)},
		})
		return shared.ErrPermissionDenied
	}
	return nil
}

// checkDesignatedApprover enforces that the actor is the step's designated
// approver identity, or holds its designated role. A deactivated designated
// approver hard-blocks the step for everyone.
func (e *Engine) checkDesignatedApprover(ctx context.Context, sctx *session.Context, step ApprovalStep) error {
	if step.ApproverID != nil {
		entry, err := e.directory.Lookup(ctx, *step.ApproverID)
		if err != nil {
			return err
		}
		if !entry.Active {
			return shared.ErrApproverInactive
		}
		if *step.ApproverID != sctx.Identity.UserID {
			return &InvalidTransitionError{
				Expected: string(StepStatusPending),
				Actual:   string(StepStatusPending),
				ActorID:  sctx.Identity.UserID,
				Reason:   "actor is not the step's designated approver",
			}
		}
		return nil
	}
	if sctx.EffectiveRole(e.now()) != step.ApproverRole {
		return &InvalidTransitionError{
			Expected: string(StepStatusPending),
			Actual:   string(StepStatusPending),
			ActorID:  sctx.Identity.UserID,
			Reason:   "actor does not hold the step's designated role",
		}
	}
	return nil
}

func (e *Engine) recordTransition(ctx context.Context, sctx *session.Context, run PayRun, action string, meta map[string]any) {
	e.cache.Invalidate(ctx, run.ID)
	if meta == nil {
		meta = map[string]any{}
	}
	meta["org_id"] = run.OrgID
	meta["effective_role"] = string(sctx.EffectiveRole(e.now()))
	e.recordAudit(ctx, shared.AuditEvent{
		ActorID:     sctx.Identity.UserID,
		RealActorID: sctx.Identity.UserID,
		Action:      action,
		Entity:      "pay_run",
		EntityID:    run.ID.String(),
		Result:      shared.AuditResultAllowed,
		Meta:        meta,
	})
}

func (e *Engine) recordDenied(ctx context.Context, sctx *session.Context, run PayRun, required string) {
	e.recordAudit(ctx, shared.AuditEvent{
		ActorID:     sctx.Identity.UserID,
		RealActorID: sctx.Identity.UserID,
		Action:      "authz.permission_denied",
		Entity:      "pay_run",
		EntityID:    run.ID.String(),
		Result:      shared.AuditResultDenied,
		Meta:        map[string]any{"required": required},
	})
}

func (e *Engine) recordAudit(ctx context.Context, event shared.AuditEvent) {
	if e.audit == nil {
		return
	}
	if err := e.audit.Record(ctx, event); err != nil && e.logger != nil {
		e.logger.Error("record payroll audit", slog.Any("error", err))
	}
}

func (e *Engine) notifyStepPending(ctx context.Context, run PayRun, step ApprovalStep) {
	evt := StepPendingEvent{
		PayRunID:   run.ID,
		WorkflowID: step.WorkflowID,
		Seq:        step.Seq,
		OrgName:    run.OrgName,
		PayPeriod:  run.PeriodLabel,
		TotalNet:   run.TotalNet,
	}
	if step.ApproverID != nil {
		evt.ApproverID = *step.ApproverID
		evt.ApproverName = e.lookupName(ctx, *step.ApproverID)
	} else {
		evt.ApproverName = string(step.ApproverRole)
	}
	e.notify(ctx, func() error {
		return e.notifier.StepPending(ctx, evt)
	})
}

func (e *Engine) notify(ctx context.Context, fn func() error) {
	if e.notifier == nil {
		return
	}
	if err := fn(); err != nil && e.logger != nil {
		e.logger.Error("publish payroll notification", slog.Any("error", err))
	}
}

func (e *Engine) lookupName(ctx context.Context, userID int64) string {
	if e.directory == nil {
		return ""
	}
	entry, err := e.directory.Lookup(ctx, userID)
	if err != nil {
		return ""
	}
	return entry.Name
}
