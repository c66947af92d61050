package jobs

import (
	"context"
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/paylane-hq/paylane/internal/payroll"
)

// RecipientDirectory resolves a user id to an email address.
type RecipientDirectory interface {
	EmailOf(ctx context.Context, userID int64) (string, error)
}

// Notifier turns payroll workflow events into queued emails. It implements
// payroll.NotificationPublisher.
type Notifier struct {
	client    *Client
	directory RecipientDirectory
	fallback  string
	printer   *message.Printer
}

// NewNotifier constructs a Notifier. Events without a resolvable recipient
// go to the fallback address (the payroll operations inbox).
func NewNotifier(client *Client, directory RecipientDirectory, fallback string) *Notifier {
	return &Notifier{
		client:    client,
		directory: directory,
		fallback:  fallback,
		printer:   message.NewPrinter(language.English),
	}
}

// StepPending emails the approver whose step just became actionable.
func (n *Notifier) StepPending(ctx context.Context, evt payroll.StepPendingEvent) error {
	to := n.fallback
	if evt.ApproverID != 0 && n.directory != nil {
		if email, err := n.directory.EmailOf(ctx, evt.ApproverID); err == nil && email != "" {
			to = email
		}
	}
	subject := fmt.Sprintf("Payroll approval needed: %s %s", evt.OrgName, evt.PayPeriod)
	body := n.printer.Sprintf("Pay run %s for %s (%s) is waiting on approval step %d. Net total: %.2f.",
		evt.PayRunID, evt.OrgName, evt.PayPeriod, evt.Seq, evt.TotalNet)
	return n.send(ctx, to, subject, body)
}

// RunApproved emails the operations inbox when the final step approves.
func (n *Notifier) RunApproved(ctx context.Context, evt payroll.RunApprovedEvent) error {
	subject := fmt.Sprintf("Payroll approved: %s %s", evt.OrgName, evt.PayPeriod)
	body := n.printer.Sprintf("Pay run %s for %s (%s) was fully approved by %s. Net total: %.2f.",
		evt.PayRunID, evt.OrgName, evt.PayPeriod, evt.ActorName, evt.TotalNet)
	return n.send(ctx, n.fallback, subject, body)
}

// RunRejected emails the operations inbox when a step rejects the run.
func (n *Notifier) RunRejected(ctx context.Context, evt payroll.RunRejectedEvent) error {
	subject := fmt.Sprintf("Payroll rejected: %s %s", evt.OrgName, evt.PayPeriod)
	body := fmt.Sprintf("Pay run %s for %s (%s) was rejected by %s. Reason: %s",
		evt.PayRunID, evt.OrgName, evt.PayPeriod, evt.ActorName, evt.Reason)
	return n.send(ctx, n.fallback, subject, body)
}

func (n *Notifier) send(ctx context.Context, to, subject, body string) error {
	if n.client == nil {
		return nil
	}
	_, err := n.client.EnqueueSendEmail(ctx, SendEmailPayload{To: to, Subject: subject, Body: body})
	return err
}
