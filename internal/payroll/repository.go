package payroll

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paylane-hq/paylane/internal/rbac"
	"github.com/paylane-hq/paylane/internal/shared"
)

// CreatePayRunInput captures fields for a new draft run.
type CreatePayRunInput struct {
	OrgID       int64
	PayGroupID  int64
	PeriodLabel string
	TotalNet    float64
	CreatedBy   int64
}

// Repository defines data access for pay runs and approval steps.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	CreatePayRun(ctx context.Context, in CreatePayRunInput) (PayRun, error)
	GetPayRun(ctx context.Context, id uuid.UUID) (PayRun, error)
	ListPayRuns(ctx context.Context, orgID int64, limit, offset int) ([]PayRun, error)
	ListSteps(ctx context.Context, workflowID uuid.UUID) ([]ApprovalStep, error)
}

// TxRepository exposes the mutations that must share one transaction. The
// Transition* methods are conditional writes keyed on the expected prior
// status; false means a concurrent transition already changed the row.
type TxRepository interface {
	GetPayRunForUpdate(ctx context.Context, id uuid.UUID) (PayRun, error)
	GetStep(ctx context.Context, id uuid.UUID) (ApprovalStep, error)
	StepBySeq(ctx context.Context, workflowID uuid.UUID, seq int) (ApprovalStep, error)
	TransitionRun(ctx context.Context, id uuid.UUID, from, to RunStatus) (bool, error)
	SetWorkflow(ctx context.Context, runID uuid.UUID, workflowID *uuid.UUID) error
	InsertSteps(ctx context.Context, steps []ApprovalStep) error
	TransitionStep(ctx context.Context, stepID uuid.UUID, from, to StepStatus, actorID int64, comment string, at time.Time) (bool, error)
	ActivateStep(ctx context.Context, stepID uuid.UUID) (bool, error)
	MarkLocked(ctx context.Context, runID uuid.UUID, actorID int64, at time.Time) error
}

// PGRepository is the PostgreSQL implementation.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

type pgTx struct {
	tx pgx.Tx
}

// WithTx runs fn inside a RepeatableRead transaction.
func (r *PGRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const payRunColumns = `pr.id, pr.org_id, o.name, pr.pay_group_id, pr.period_label, pr.total_net, pr.status,
pr.workflow_id, pr.created_by, pr.locked_by, pr.locked_at, pr.created_at, pr.updated_at`

func scanPayRun(row pgx.Row) (PayRun, error) {
	var run PayRun
	var status string
	err := row.Scan(&run.ID, &run.OrgID, &run.OrgName, &run.PayGroupID, &run.PeriodLabel, &run.TotalNet, &status,
		&run.WorkflowID, &run.CreatedBy, &run.LockedBy, &run.LockedAt, &run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PayRun{}, shared.ErrNotFound
		}
		return PayRun{}, err
	}
	run.Status = RunStatus(status)
	return run, nil
}

// CreatePayRun inserts a new draft run.
func (r *PGRepository) CreatePayRun(ctx context.Context, in CreatePayRunInput) (PayRun, error) {
	id := uuid.New()
	_, err := r.pool.Exec(ctx, `INSERT INTO pay_runs (id, org_id, pay_group_id, period_label, total_net, status, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7)`, id, in.OrgID, in.PayGroupID, in.PeriodLabel, in.TotalNet, string(RunStatusDraft), in.CreatedBy)
	if err != nil {
		return PayRun{}, err
	}
	return r.GetPayRun(ctx, id)
}

// GetPayRun loads a run with its organization name.
func (r *PGRepository) GetPayRun(ctx context.Context, id uuid.UUID) (PayRun, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+payRunColumns+`
FROM pay_runs pr JOIN organizations o ON o.id = pr.org_id WHERE pr.id = $1`, id)
	return scanPayRun(row)
}

// ListPayRuns returns runs for an organization, newest first.
func (r *PGRepository) ListPayRuns(ctx context.Context, orgID int64, limit, offset int) ([]PayRun, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+payRunColumns+`
FROM pay_runs pr JOIN organizations o ON o.id = pr.org_id
WHERE pr.org_id = $1 ORDER BY pr.created_at DESC LIMIT $2 OFFSET $3`, orgID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var runs []PayRun
	for rows.Next() {
		run, err := scanPayRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

const stepColumns = `id, pay_run_id, workflow_id, seq, approver_id, approver_role, status, comment, actioned_by, actioned_at, created_at`

func scanStep(row pgx.Row) (ApprovalStep, error) {
	var step ApprovalStep
	var status, role string
	err := row.Scan(&step.ID, &step.PayRunID, &step.WorkflowID, &step.Seq, &step.ApproverID, &role,
		&status, &step.Comment, &step.ActionedBy, &step.ActionedAt, &step.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ApprovalStep{}, shared.ErrNotFound
		}
		return ApprovalStep{}, err
	}
	step.Status = StepStatus(status)
	step.ApproverRole = roleFromDB(role)
	return step, nil
}

// ListSteps returns the steps of one workflow instance in sequence order.
func (r *PGRepository) ListSteps(ctx context.Context, workflowID uuid.UUID) ([]ApprovalStep, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+stepColumns+`
FROM approval_steps WHERE workflow_id = $1 ORDER BY seq ASC`, workflowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var steps []ApprovalStep
	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

func (t *pgTx) GetPayRunForUpdate(ctx context.Context, id uuid.UUID) (PayRun, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+payRunColumns+`
FROM pay_runs pr JOIN organizations o ON o.id = pr.org_id WHERE pr.id = $1 FOR UPDATE OF pr`, id)
	return scanPayRun(row)
}

func (t *pgTx) GetStep(ctx context.Context, id uuid.UUID) (ApprovalStep, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+stepColumns+` FROM approval_steps WHERE id = $1`, id)
	return scanStep(row)
}

func (t *pgTx) StepBySeq(ctx context.Context, workflowID uuid.UUID, seq int) (ApprovalStep, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+stepColumns+` FROM approval_steps WHERE workflow_id = $1 AND seq = $2`, workflowID, seq)
	return scanStep(row)
}

// TransitionRun performs the conditional status write for a run.
func (t *pgTx) TransitionRun(ctx context.Context, id uuid.UUID, from, to RunStatus) (bool, error) {
	tag, err := t.tx.Exec(ctx, `UPDATE pay_runs SET status = $1, updated_at = NOW()
WHERE id = $2 AND status = $3`, string(to), id, string(from))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (t *pgTx) SetWorkflow(ctx context.Context, runID uuid.UUID, workflowID *uuid.UUID) error {
	_, err := t.tx.Exec(ctx, `UPDATE pay_runs SET workflow_id = $1, updated_at = NOW() WHERE id = $2`, workflowID, runID)
	return err
}

func (t *pgTx) InsertSteps(ctx context.Context, steps []ApprovalStep) error {
	for _, step := range steps {
		_, err := t.tx.Exec(ctx, `INSERT INTO approval_steps (id, pay_run_id, workflow_id, seq, approver_id, approver_role, status)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			step.ID, step.PayRunID, step.WorkflowID, step.Seq, step.ApproverID, string(step.ApproverRole), string(step.Status))
		if err != nil {
			return err
		}
	}
	return nil
}

// TransitionStep performs the conditional status write for a step. Zero rows
// affected means a concurrent transition won; the caller maps that to a
// stale-state conflict.
func (t *pgTx) TransitionStep(ctx context.Context, stepID uuid.UUID, from, to StepStatus, actorID int64, comment string, at time.Time) (bool, error) {
	tag, err := t.tx.Exec(ctx, `UPDATE approval_steps
SET status = $1, comment = $2, actioned_by = $3, actioned_at = $4
WHERE id = $5 AND status = $6`, string(to), comment, actorID, at, stepID, string(from))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ActivateStep promotes a waiting step to pending.
func (t *pgTx) ActivateStep(ctx context.Context, stepID uuid.UUID) (bool, error) {
	tag, err := t.tx.Exec(ctx, `UPDATE approval_steps SET status = $1 WHERE id = $2 AND status = $3`,
		string(StepStatusPending), stepID, string(StepStatusWaiting))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (t *pgTx) MarkLocked(ctx context.Context, runID uuid.UUID, actorID int64, at time.Time) error {
	_, err := t.tx.Exec(ctx, `UPDATE pay_runs SET locked_by = $1, locked_at = $2, updated_at = NOW() WHERE id = $3`, actorID, at, runID)
	return err
}

func roleFromDB(raw string) rbac.Role {
	return rbac.Role(raw)
}
