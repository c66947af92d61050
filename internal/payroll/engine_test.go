package payroll

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paylane-hq/paylane/internal/rbac"
	"github.com/paylane-hq/paylane/internal/session"
	"github.com/paylane-hq/paylane/internal/shared"
)

// ============================================================================
// IN-MEMORY REPOSITORY
// ============================================================================

type memRepo struct {
	runs     map[uuid.UUID]*PayRun
	steps    map[uuid.UUID]*ApprovalStep
	orgNames map[int64]string

	// Error injection
	stepTransitionLoses bool
	runTransitionLoses  bool
}

func newMemRepo() *memRepo {
	return &memRepo{
		runs:     make(map[uuid.UUID]*PayRun),
		steps:    make(map[uuid.UUID]*ApprovalStep),
		orgNames: map[int64]string{1: "Acme GmbH", 2: "Globex Ltd"},
	}
}

func (m *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memTx{repo: m})
}

func (m *memRepo) CreatePayRun(_ context.Context, in CreatePayRunInput) (PayRun, error) {
	run := PayRun{
		ID:          uuid.New(),
		OrgID:       in.OrgID,
		OrgName:     m.orgNames[in.OrgID],
		PayGroupID:  in.PayGroupID,
		PeriodLabel: in.PeriodLabel,
		TotalNet:    in.TotalNet,
		Status:      RunStatusDraft,
		CreatedBy:   in.CreatedBy,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	m.runs[run.ID] = &run
	return run, nil
}

func (m *memRepo) GetPayRun(_ context.Context, id uuid.UUID) (PayRun, error) {
	run, ok := m.runs[id]
	if !ok {
		return PayRun{}, shared.ErrNotFound
	}
	return *run, nil
}

func (m *memRepo) ListPayRuns(_ context.Context, orgID int64, limit, offset int) ([]PayRun, error) {
	var out []PayRun
	for _, run := range m.runs {
		if run.OrgID == orgID {
			out = append(out, *run)
		}
	}
	return out, nil
}

func (m *memRepo) ListSteps(_ context.Context, workflowID uuid.UUID) ([]ApprovalStep, error) {
	var out []ApprovalStep
	for _, step := range m.steps {
		if step.WorkflowID == workflowID {
			out = append(out, *step)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

type memTx struct {
	repo *memRepo
}

func (t *memTx) GetPayRunForUpdate(ctx context.Context, id uuid.UUID) (PayRun, error) {
	return t.repo.GetPayRun(ctx, id)
}

func (t *memTx) GetStep(_ context.Context, id uuid.UUID) (ApprovalStep, error) {
	step, ok := t.repo.steps[id]
	if !ok {
		return ApprovalStep{}, shared.ErrNotFound
	}
	return *step, nil
}

func (t *memTx) StepBySeq(_ context.Context, workflowID uuid.UUID, seq int) (ApprovalStep, error) {
	for _, step := range t.repo.steps {
		if step.WorkflowID == workflowID && step.Seq == seq {
			return *step, nil
		}
	}
	return ApprovalStep{}, shared.ErrNotFound
}

func (t *memTx) TransitionRun(_ context.Context, id uuid.UUID, from, to RunStatus) (bool, error) {
	if t.repo.runTransitionLoses {
		return false, nil
	}
	run, ok := t.repo.runs[id]
	if !ok || run.Status != from {
		return false, nil
	}
	run.Status = to
	run.UpdatedAt = time.Now()
	return true, nil
}

func (t *memTx) SetWorkflow(_ context.Context, runID uuid.UUID, workflowID *uuid.UUID) error {
	run, ok := t.repo.runs[runID]
	if !ok {
		return shared.ErrNotFound
	}
	run.WorkflowID = workflowID
	return nil
}

func (t *memTx) InsertSteps(_ context.Context, steps []ApprovalStep) error {
	for _, step := range steps {
		copied := step
		copied.CreatedAt = time.Now()
		t.repo.steps[step.ID] = &copied
	}
	return nil
}

func (t *memTx) TransitionStep(_ context.Context, stepID uuid.UUID, from, to StepStatus, actorID int64, comment string, at time.Time) (bool, error) {
	if t.repo.stepTransitionLoses {
		return false, nil
	}
	step, ok := t.repo.steps[stepID]
	if !ok || step.Status != from {
		return false, nil
	}
	step.Status = to
	step.Comment = comment
	step.ActionedBy = &actorID
	step.ActionedAt = &at
	return true, nil
}

func (t *memTx) ActivateStep(_ context.Context, stepID uuid.UUID) (bool, error) {
	step, ok := t.repo.steps[stepID]
	if !ok || step.Status != StepStatusWaiting {
		return false, nil
	}
	step.Status = StepStatusPending
	return true, nil
}

func (t *memTx) MarkLocked(_ context.Context, runID uuid.UUID, actorID int64, at time.Time) error {
	run, ok := t.repo.runs[runID]
	if !ok {
		return shared.ErrNotFound
	}
	run.LockedBy = &actorID
	run.LockedAt = &at
	return nil
}

// ============================================================================
// FAKES
// ============================================================================

type memDirectory struct {
	entries map[int64]DirectoryEntry
}

func (d *memDirectory) Lookup(_ context.Context, userID int64) (DirectoryEntry, error) {
	entry, ok := d.entries[userID]
	if !ok {
		return DirectoryEntry{}, shared.ErrNotFound
	}
	return entry, nil
}

type recordingSink struct {
	events []shared.AuditEvent
}

func (s *recordingSink) Record(_ context.Context, event shared.AuditEvent) error {
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) actions() []string {
	var out []string
	for _, e := range s.events {
		out = append(out, e.Action)
	}
	return out
}

type recordingNotifier struct {
	pending  []StepPendingEvent
	approved []RunApprovedEvent
	rejected []RunRejectedEvent
}

func (n *recordingNotifier) StepPending(_ context.Context, evt StepPendingEvent) error {
	n.pending = append(n.pending, evt)
	return nil
}

func (n *recordingNotifier) RunApproved(_ context.Context, evt RunApprovedEvent) error {
	n.approved = append(n.approved, evt)
	return nil
}

func (n *recordingNotifier) RunRejected(_ context.Context, evt RunRejectedEvent) error {
	n.rejected = append(n.rejected, evt)
	return nil
}

// ============================================================================
// FIXTURE
// ============================================================================

type fixture struct {
	engine   *Engine
	repo     *memRepo
	dir      *memDirectory
	sink     *recordingSink
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newMemRepo()
	dir := &memDirectory{entries: map[int64]DirectoryEntry{
		10: {ID: 10, Name: "Pia Processor", Email: "pia@acme.test", Active: true},
		11: {ID: 11, Name: "Hanna HR", Email: "hanna@acme.test", Active: true},
		12: {ID: 12, Name: "Finn Finance", Email: "finn@acme.test", Active: true},
		13: {ID: 13, Name: "Ada Admin", Email: "ada@acme.test", Active: true},
	}}
	sink := &recordingSink{}
	notifier := &recordingNotifier{}
	engine := NewEngine(repo, dir, rbac.NewResolver(), rbac.NewScopeGuard(), sink, notifier, slog.Default())
	return &fixture{engine: engine, repo: repo, dir: dir, sink: sink, notifier: notifier}
}

func actor(userID, orgID int64, role rbac.Role) *session.Context {
	return &session.Context{
		Identity:  session.Identity{UserID: userID, OrgID: &orgID, Role: role},
		TokenID:   uuid.NewString(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func idPtr(id int64) *int64 { return &id }

func (f *fixture) submittedRun(t *testing.T) (WorkflowView, *session.Context) {
	t.Helper()
	processor := actor(10, 1, rbac.RoleOrgFinanceController)
	ctx := context.Background()
	run, err := f.engine.CreateRun(ctx, processor, CreatePayRunInput{
		OrgID:       1,
		PayGroupID:  3,
		PeriodLabel: "2026-08",
		TotalNet:    125000.50,
	})
	require.NoError(t, err)
	view, err := f.engine.Submit(ctx, processor, run.ID, []StepDefinition{
		{ApproverID: idPtr(11)},
		{ApproverID: idPtr(12)},
		{ApproverRole: rbac.RoleOrgAdmin},
	})
	require.NoError(t, err)
	return view, processor
}

// ============================================================================
// TESTS
// ============================================================================

func TestSubmitInstantiatesOrderedChain(t *testing.T) {
	f := newFixture(t)
	view, _ := f.submittedRun(t)

	assert.Equal(t, RunStatusPendingApproval, view.Run.Status)
	require.NotNil(t, view.Run.WorkflowID)
	require.Len(t, view.Steps, 3)
	assert.Equal(t, StepStatusPending, view.Steps[0].Status)
	assert.Equal(t, StepStatusWaiting, view.Steps[1].Status)
	assert.Equal(t, StepStatusWaiting, view.Steps[2].Status)

	require.Len(t, f.notifier.pending, 1)
	assert.Equal(t, int64(11), f.notifier.pending[0].ApproverID)
	assert.Contains(t, f.sink.actions(), "payroll.submitted")
}

func TestSubmitRequiresDraft(t *testing.T) {
	f := newFixture(t)
	view, processor := f.submittedRun(t)

	_, err := f.engine.Submit(context.Background(), processor, view.Run.ID, []StepDefinition{{ApproverID: idPtr(11)}})
	var ite *InvalidTransitionError
	require.ErrorAs(t, err, &ite)
	assert.True(t, errors.Is(err, shared.ErrInvalidTransition))
}

func TestSubmitRejectsEmptyChain(t *testing.T) {
	f := newFixture(t)
	processor := actor(10, 1, rbac.RoleOrgFinanceController)
	run, err := f.engine.CreateRun(context.Background(), processor, CreatePayRunInput{OrgID: 1, PayGroupID: 3, PeriodLabel: "2026-08"})
	require.NoError(t, err)
	_, err = f.engine.Submit(context.Background(), processor, run.ID, nil)
	assert.Error(t, err)
}

func TestApproveInOrderUntilApproved(t *testing.T) {
	f := newFixture(t)
	view, _ := f.submittedRun(t)
	ctx := context.Background()
	runID := view.Run.ID

	v1, err := f.engine.Approve(ctx, actor(11, 1, rbac.RoleOrgHRAdmin), runID, view.Steps[0].ID, "ok")
	require.NoError(t, err)
	assert.Equal(t, StepStatusApproved, v1.Steps[0].Status)
	assert.Equal(t, StepStatusPending, v1.Steps[1].Status)
	assert.Equal(t, RunStatusPendingApproval, v1.Run.Status)

	v2, err := f.engine.Approve(ctx, actor(12, 1, rbac.RoleOrgFinanceController), runID, view.Steps[1].ID, "ok")
	require.NoError(t, err)
	assert.Equal(t, StepStatusPending, v2.Steps[2].Status)

	// Final step is role-designated.
	v3, err := f.engine.Approve(ctx, actor(13, 1, rbac.RoleOrgAdmin), runID, view.Steps[2].ID, "ok")
	require.NoError(t, err)
	assert.Equal(t, RunStatusApproved, v3.Run.Status)

	require.Len(t, f.notifier.approved, 1)
	assert.Equal(t, runID, f.notifier.approved[0].PayRunID)
	// One step-pending notification per activation: submit, step 2, step 3.
	assert.Len(t, f.notifier.pending, 3)
}

func TestApproveOutOfOrderIsRejected(t *testing.T) {
	f := newFixture(t)
	view, _ := f.submittedRun(t)

	_, err := f.engine.Approve(context.Background(), actor(12, 1, rbac.RoleOrgFinanceController), view.Run.ID, view.Steps[1].ID, "skipping ahead")
	var ite *InvalidTransitionError
	require.ErrorAs(t, err, &ite)
	assert.Equal(t, string(StepStatusWaiting), ite.Actual)

	// Nothing moved.
	steps, err := f.repo.ListSteps(context.Background(), *view.Run.WorkflowID)
	require.NoError(t, err)
	assert.Equal(t, StepStatusPending, steps[0].Status)
	assert.Equal(t, StepStatusWaiting, steps[1].Status)
}

func TestApproveTwiceIsRejected(t *testing.T) {
	f := newFixture(t)
	view, _ := f.submittedRun(t)
	ctx := context.Background()
	approver := actor(11, 1, rbac.RoleOrgHRAdmin)

	_, err := f.engine.Approve(ctx, approver, view.Run.ID, view.Steps[0].ID, "ok")
	require.NoError(t, err)

	_, err = f.engine.Approve(ctx, approver, view.Run.ID, view.Steps[0].ID, "again")
	var ite *InvalidTransitionError
	require.ErrorAs(t, err, &ite)
	assert.Equal(t, string(StepStatusApproved), ite.Actual)
}

func TestConcurrentLoserGetsStaleState(t *testing.T) {
	f := newFixture(t)
	view, _ := f.submittedRun(t)
	ctx := context.Background()
	approver := actor(11, 1, rbac.RoleOrgHRAdmin)

	auditBefore := len(f.sink.events)
	pendingBefore := len(f.notifier.pending)

	// Simulate losing the conditional write to a concurrent transaction.
	f.repo.stepTransitionLoses = true
	_, err := f.engine.Approve(ctx, approver, view.Run.ID, view.Steps[0].ID, "ok")
	assert.True(t, errors.Is(err, shared.ErrStaleState))

	// The winner of the race lands the transition.
	f.repo.stepTransitionLoses = false
	_, err = f.engine.Approve(ctx, approver, view.Run.ID, view.Steps[0].ID, "ok")
	require.NoError(t, err)

	// One approval between the two attempts, so exactly one audit record and
	// one next-step notification. The loser leaves no trace.
	var approvals int
	for _, e := range f.sink.events[auditBefore:] {
		if e.Action == "payroll.step_approved" {
			approvals++
		}
	}
	assert.Equal(t, 1, approvals)
	assert.Len(t, f.notifier.pending[pendingBefore:], 1)
}

func TestRejectIsTerminal(t *testing.T) {
	f := newFixture(t)
	view, _ := f.submittedRun(t)
	ctx := context.Background()

	_, err := f.engine.Approve(ctx, actor(11, 1, rbac.RoleOrgHRAdmin), view.Run.ID, view.Steps[0].ID, "ok")
	require.NoError(t, err)

	v, err := f.engine.Reject(ctx, actor(12, 1, rbac.RoleOrgFinanceController), view.Run.ID, view.Steps[1].ID, "numbers are off")
	require.NoError(t, err)
	assert.Equal(t, RunStatusRejected, v.Run.Status)
	assert.Equal(t, StepStatusWaiting, v.Steps[2].Status)

	require.Len(t, f.notifier.rejected, 1)
	assert.Equal(t, "numbers are off", f.notifier.rejected[0].Reason)

	// The remaining step never becomes actionable.
	_, err = f.engine.Approve(ctx, actor(13, 1, rbac.RoleOrgAdmin), view.Run.ID, view.Steps[2].ID, "ok")
	var ite *InvalidTransitionError
	require.ErrorAs(t, err, &ite)
	assert.Equal(t, string(RunStatusRejected), ite.Actual)
}

func TestRejectRequiresReason(t *testing.T) {
	f := newFixture(t)
	view, _ := f.submittedRun(t)
	_, err := f.engine.Reject(context.Background(), actor(11, 1, rbac.RoleOrgHRAdmin), view.Run.ID, view.Steps[0].ID, "")
	assert.Error(t, err)
}

func TestResubmitStartsFreshWorkflow(t *testing.T) {
	f := newFixture(t)
	view, processor := f.submittedRun(t)
	ctx := context.Background()

	_, err := f.engine.Reject(ctx, actor(11, 1, rbac.RoleOrgHRAdmin), view.Run.ID, view.Steps[0].ID, "redo")
	require.NoError(t, err)

	run, err := f.engine.Resubmit(ctx, processor, view.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusDraft, run.Status)
	assert.Nil(t, run.WorkflowID)

	fresh, err := f.engine.Submit(ctx, processor, view.Run.ID, []StepDefinition{{ApproverID: idPtr(12)}})
	require.NoError(t, err)
	require.NotNil(t, fresh.Run.WorkflowID)
	assert.NotEqual(t, *view.Run.WorkflowID, *fresh.Run.WorkflowID)

	// Steps of the superseded workflow are history, not actionable.
	_, err = f.engine.Approve(ctx, actor(11, 1, rbac.RoleOrgHRAdmin), view.Run.ID, view.Steps[0].ID, "ok")
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestResubmitOnlyFromRejected(t *testing.T) {
	f := newFixture(t)
	view, processor := f.submittedRun(t)
	_, err := f.engine.Resubmit(context.Background(), processor, view.Run.ID)
	var ite *InvalidTransitionError
	require.ErrorAs(t, err, &ite)
}

func TestDeactivatedApproverBlocksStep(t *testing.T) {
	f := newFixture(t)
	view, _ := f.submittedRun(t)
	ctx := context.Background()

	entry := f.dir.entries[11]
	entry.Active = false
	f.dir.entries[11] = entry

	_, err := f.engine.Approve(ctx, actor(11, 1, rbac.RoleOrgHRAdmin), view.Run.ID, view.Steps[0].ID, "ok")
	assert.True(t, errors.Is(err, shared.ErrApproverInactive))

	// Nobody else can action it either, and the view surfaces the dead end.
	_, err = f.engine.Approve(ctx, actor(13, 1, rbac.RoleOrgAdmin), view.Run.ID, view.Steps[0].ID, "covering")
	assert.True(t, errors.Is(err, shared.ErrApproverInactive))

	v, err := f.engine.View(ctx, actor(13, 1, rbac.RoleOrgAdmin), view.Run.ID)
	require.NoError(t, err)
	assert.True(t, v.Blocked)
}

func TestWrongActorCannotApproveDesignatedStep(t *testing.T) {
	f := newFixture(t)
	view, _ := f.submittedRun(t)

	_, err := f.engine.Approve(context.Background(), actor(12, 1, rbac.RoleOrgFinanceController), view.Run.ID, view.Steps[0].ID, "not mine")
	var ite *InvalidTransitionError
	require.ErrorAs(t, err, &ite)
}

func TestRoleDesignatedStepChecksEffectiveRole(t *testing.T) {
	f := newFixture(t)
	view, _ := f.submittedRun(t)
	ctx := context.Background()

	_, err := f.engine.Approve(ctx, actor(11, 1, rbac.RoleOrgHRAdmin), view.Run.ID, view.Steps[0].ID, "ok")
	require.NoError(t, err)
	_, err = f.engine.Approve(ctx, actor(12, 1, rbac.RoleOrgFinanceController), view.Run.ID, view.Steps[1].ID, "ok")
	require.NoError(t, err)

	// Step 3 is designated to org-admin; a finance controller holds the
	// approve permission but not the designated role.
	_, err = f.engine.Approve(ctx, actor(12, 1, rbac.RoleOrgFinanceController), view.Run.ID, view.Steps[2].ID, "ok")
	var ite *InvalidTransitionError
	require.ErrorAs(t, err, &ite)
}

func TestOrgScopeViolationLooksLikeNotFound(t *testing.T) {
	f := newFixture(t)
	view, _ := f.submittedRun(t)

	outsider := actor(20, 2, rbac.RoleOrgAdmin)
	_, err := f.engine.View(context.Background(), outsider, view.Run.ID)
	assert.True(t, errors.Is(err, shared.ErrOrgScopeViolation))

	var security []shared.AuditEvent
	for _, e := range f.sink.events {
		if e.Result == shared.AuditResultSecurity {
			security = append(security, e)
		}
	}
	require.Len(t, security, 1)
	assert.Equal(t, "authz.org_scope_violation", security[0].Action)
}

func TestEveryOrgScopedRoleDeniedAcrossOrgs(t *testing.T) {
	f := newFixture(t)
	view, _ := f.submittedRun(t)

	for _, role := range rbac.AllRoles() {
		if rbac.Platform(role) {
			continue
		}
		outsider := actor(20, 2, role)
		_, err := f.engine.View(context.Background(), outsider, view.Run.ID)
		// Scope is checked before permissions, so every org-bound role fails
		// the same way regardless of what it may hold.
		assert.Truef(t, errors.Is(err, shared.ErrOrgScopeViolation),
			"role %s crossed into a foreign org: %v", role, err)
	}
}

func TestPlatformActorCrossesOrgs(t *testing.T) {
	f := newFixture(t)
	view, _ := f.submittedRun(t)

	platform := &session.Context{
		Identity:  session.Identity{UserID: 99, Role: rbac.RolePlatformAuditor},
		ExpiresAt: time.Now().Add(time.Hour),
	}
	v, err := f.engine.View(context.Background(), platform, view.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, view.Run.ID, v.Run.ID)
}

func TestSubmitDeniedWithoutProcessPermission(t *testing.T) {
	f := newFixture(t)
	viewer := actor(30, 1, rbac.RoleOrgViewer)
	_, err := f.engine.CreateRun(context.Background(), viewer, CreatePayRunInput{OrgID: 1, PayGroupID: 3, PeriodLabel: "2026-08"})
	assert.True(t, errors.Is(err, shared.ErrPermissionDenied))
	assert.Contains(t, f.sink.actions(), "authz.permission_denied")
}

func TestLockApprovedRun(t *testing.T) {
	f := newFixture(t)
	view, _ := f.submittedRun(t)
	ctx := context.Background()
	runID := view.Run.ID

	_, err := f.engine.Approve(ctx, actor(11, 1, rbac.RoleOrgHRAdmin), runID, view.Steps[0].ID, "ok")
	require.NoError(t, err)
	_, err = f.engine.Approve(ctx, actor(12, 1, rbac.RoleOrgFinanceController), runID, view.Steps[1].ID, "ok")
	require.NoError(t, err)
	_, err = f.engine.Approve(ctx, actor(13, 1, rbac.RoleOrgAdmin), runID, view.Steps[2].ID, "ok")
	require.NoError(t, err)

	locker := actor(12, 1, rbac.RoleOrgFinanceController)
	run, err := f.engine.Lock(ctx, locker, runID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusLocked, run.Status)

	stored, err := f.repo.GetPayRun(ctx, runID)
	require.NoError(t, err)
	require.NotNil(t, stored.LockedBy)
	assert.Equal(t, int64(12), *stored.LockedBy)

	// A locked run accepts no further step actions.
	_, err = f.engine.Approve(ctx, actor(13, 1, rbac.RoleOrgAdmin), runID, view.Steps[2].ID, "late")
	var ite *InvalidTransitionError
	require.ErrorAs(t, err, &ite)
}

func TestLockRequiresApprovedRun(t *testing.T) {
	f := newFixture(t)
	view, _ := f.submittedRun(t)
	_, err := f.engine.Lock(context.Background(), actor(12, 1, rbac.RoleOrgFinanceController), view.Run.ID)
	var ite *InvalidTransitionError
	require.ErrorAs(t, err, &ite)
}

func TestForceUnlock(t *testing.T) {
	f := newFixture(t)
	view, _ := f.submittedRun(t)
	ctx := context.Background()
	runID := view.Run.ID

	_, err := f.engine.Approve(ctx, actor(11, 1, rbac.RoleOrgHRAdmin), runID, view.Steps[0].ID, "ok")
	require.NoError(t, err)
	_, err = f.engine.Approve(ctx, actor(12, 1, rbac.RoleOrgFinanceController), runID, view.Steps[1].ID, "ok")
	require.NoError(t, err)
	_, err = f.engine.Approve(ctx, actor(13, 1, rbac.RoleOrgAdmin), runID, view.Steps[2].ID, "ok")
	require.NoError(t, err)
	_, err = f.engine.Lock(ctx, actor(12, 1, rbac.RoleOrgFinanceController), runID)
	require.NoError(t, err)

	admin := actor(13, 1, rbac.RoleOrgAdmin)

	_, err = f.engine.ForceUnlock(ctx, admin, runID, "")
	assert.Error(t, err)

	run, err := f.engine.ForceUnlock(ctx, admin, runID, "bank file regenerated")
	require.NoError(t, err)
	assert.Equal(t, RunStatusApproved, run.Status)
	assert.Contains(t, f.sink.actions(), "payroll.force_unlocked")
}

func TestForceUnlockDeniedBelowOrgAdmin(t *testing.T) {
	f := newFixture(t)
	view, _ := f.submittedRun(t)

	// The finance controller lacks the force-unlock capability entirely.
	_, err := f.engine.ForceUnlock(context.Background(), actor(12, 1, rbac.RoleOrgFinanceController), view.Run.ID, "please")
	assert.True(t, errors.Is(err, shared.ErrPermissionDenied))
}

func TestListRunsRequiresViewPermission(t *testing.T) {
	f := newFixture(t)
	f.submittedRun(t)
	ctx := context.Background()

	runs, err := f.engine.ListRuns(ctx, actor(11, 1, rbac.RoleOrgHRAdmin), 1, 10, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	_, err = f.engine.ListRuns(ctx, actor(40, 1, rbac.RoleSelfUser), 1, 10, 0)
	assert.True(t, errors.Is(err, shared.ErrPermissionDenied))
}
