// Package payroll implements the pay run approval workflow: an ordered,
// non-skippable chain of sign-off steps gating a pay run from draft to a
// locked, payable state.
package payroll

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/paylane-hq/paylane/internal/rbac"
	"github.com/paylane-hq/paylane/internal/shared"
)

// RunStatus enumerates the pay run lifecycle.
type RunStatus string

const (
	RunStatusDraft           RunStatus = "DRAFT"
	RunStatusPendingApproval RunStatus = "PENDING_APPROVAL"
	RunStatusApproved        RunStatus = "APPROVED"
	RunStatusRejected        RunStatus = "REJECTED"
	RunStatusLocked          RunStatus = "LOCKED"
)

// StepStatus enumerates approval step states. At most one step of a workflow
// is PENDING at any time; steps before it are APPROVED, steps after it
// WAITING.
type StepStatus string

const (
	StepStatusWaiting  StepStatus = "WAITING"
	StepStatusPending  StepStatus = "PENDING"
	StepStatusApproved StepStatus = "APPROVED"
	StepStatusRejected StepStatus = "REJECTED"
)

// PayRun is one payroll run for a pay group and period, owned by an
// organization.
type PayRun struct {
	ID          uuid.UUID
	OrgID       int64
	OrgName     string
	PayGroupID  int64
	PeriodLabel string
	TotalNet    float64
	Status      RunStatus
	WorkflowID  *uuid.UUID
	CreatedBy   int64
	LockedBy    *int64
	LockedAt    *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ApprovalStep is one ordered sign-off gate. A step is designated either to
// a specific approver identity or to a role. Steps are never deleted; a
// superseded workflow keeps its steps for audit.
type ApprovalStep struct {
	ID           uuid.UUID
	PayRunID     uuid.UUID
	WorkflowID   uuid.UUID
	Seq          int
	ApproverID   *int64
	ApproverRole rbac.Role
	Status       StepStatus
	Comment      string
	ActionedBy   *int64
	ActionedAt   *time.Time
	CreatedAt    time.Time
}

// StepDefinition describes one step of a chain to be instantiated on submit.
type StepDefinition struct {
	ApproverID   *int64
	ApproverRole rbac.Role
}

// Validate checks a chain definition before instantiation.
func ValidateChain(steps []StepDefinition) error {
	if len(steps) == 0 {
		return errors.New("payroll: approval chain requires at least one step")
	}
	for i, def := range steps {
		if def.ApproverID == nil && def.ApproverRole == "" {
			return fmt.Errorf("payroll: step %d needs a designated approver or role", i+1)
		}
		if def.ApproverRole != "" && !rbac.Known(def.ApproverRole) {
			return fmt.Errorf("payroll: step %d has unknown approver role %q", i+1, def.ApproverRole)
		}
	}
	return nil
}

// WorkflowView is the read model of a run and its active chain. Blocked is
// set when the current pending step's designated approver is deactivated: a
// dead-end that must be surfaced, never silently skipped.
type WorkflowView struct {
	Run     PayRun
	Steps   []ApprovalStep
	Blocked bool
}

// InvalidTransitionError names the state the workflow expected and the actor
// whose request was rejected.
type InvalidTransitionError struct {
	Expected string
	Actual   string
	ActorID  int64
	Reason   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("payroll: invalid transition by actor %d: expected %s, found %s: %s",
		e.ActorID, e.Expected, e.Actual, e.Reason)
}

// Unwrap ties the rich error into the shared taxonomy.
func (e *InvalidTransitionError) Unwrap() error {
	return shared.ErrInvalidTransition
}
