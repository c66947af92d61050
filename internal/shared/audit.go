package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Audit result values.
const (
	AuditResultAllowed  = "ALLOWED"
	AuditResultDenied   = "DENIED"
	AuditResultSecurity = "SECURITY"
)

// AuditEvent represents a record stored in audit_events. ActorID is the
// effective actor; RealActorID is the authenticated identity, which differs
// from ActorID only while impersonating.
type AuditEvent struct {
	ActorID     int64
	RealActorID int64
	Action      string
	Entity      string
	EntityID    string
	Result      string
	Meta        map[string]any
	At          time.Time
}

// AuditSink receives authorization decisions and workflow transitions.
type AuditSink interface {
	Record(ctx context.Context, event AuditEvent) error
}

// AuditLogger writes records into audit_events.
type AuditLogger struct {
	pool *pgxpool.Pool
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Record persists the event.
func (l *AuditLogger) Record(ctx context.Context, event AuditEvent) error {
	if l == nil {
		return errors.New("audit logger not initialised")
	}
	if event.Action == "" || event.Entity == "" {
		return errors.New("audit event requires action/entity")
	}
	if event.RealActorID == 0 {
		event.RealActorID = event.ActorID
	}
	metaJSON, err := json.Marshal(event.Meta)
	if err != nil {
		return err
	}
	_, err = l.pool.Exec(ctx, `INSERT INTO audit_events (actor_id, real_actor_id, action, entity, entity_id, result, meta, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE(NULLIF($8, '0001-01-01T00:00:00Z'::timestamptz), NOW()))`,
		event.ActorID, event.RealActorID, event.Action, event.Entity, event.EntityID, event.Result, metaJSON, event.At)
	return err
}
