package payroll

import (
	"context"

	"github.com/google/uuid"
)

// StepPendingEvent is emitted when a step becomes the current pending gate.
type StepPendingEvent struct {
	PayRunID     uuid.UUID
	WorkflowID   uuid.UUID
	Seq          int
	OrgName      string
	PayPeriod    string
	TotalNet     float64
	ApproverID   int64
	ApproverName string
}

// RunApprovedEvent is emitted when the final step approves the run.
type RunApprovedEvent struct {
	PayRunID  uuid.UUID
	OrgName   string
	PayPeriod string
	TotalNet  float64
	ActorName string
}

// RunRejectedEvent is emitted when any step rejects the run.
type RunRejectedEvent struct {
	PayRunID  uuid.UUID
	OrgName   string
	PayPeriod string
	ActorName string
	Reason    string
}

// NotificationPublisher receives workflow events for delivery to recipients.
// Delivery mechanics (templates, email transport) live behind it.
type NotificationPublisher interface {
	StepPending(ctx context.Context, evt StepPendingEvent) error
	RunApproved(ctx context.Context, evt RunApprovedEvent) error
	RunRejected(ctx context.Context, evt RunRejectedEvent) error
}
