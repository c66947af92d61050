// Package audit exposes the audit trail written by the rest of the system
// for platform-level review. Writing events happens through
// shared.AuditSink; this package only reads.
package audit

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Event is one persisted audit record.
type Event struct {
	ID          int64          `json:"id"`
	ActorID     int64          `json:"actor_id"`
	RealActorID int64          `json:"real_actor_id"`
	Action      string         `json:"action"`
	Entity      string         `json:"entity"`
	EntityID    string         `json:"entity_id"`
	Result      string         `json:"result"`
	Meta        map[string]any `json:"meta"`
	OccurredAt  time.Time      `json:"occurred_at"`
}

// Filter narrows an audit query.
type Filter struct {
	ActorID int64
	Action  string
	Entity  string
	Result  string
	Limit   int
	Offset  int
}

// Repository reads audit_events.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns audit events newest first, narrowed by the filter.
func (r *Repository) List(ctx context.Context, f Filter) ([]Event, error) {
	var (
		clauses []string
		args    []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		clauses = append(clauses, column+" = $"+strconv.Itoa(len(args)))
	}
	if f.ActorID > 0 {
		add("actor_id", f.ActorID)
	}
	if f.Action != "" {
		add("action", f.Action)
	}
	if f.Entity != "" {
		add("entity", f.Entity)
	}
	if f.Result != "" {
		add("result", f.Result)
	}
	query := `SELECT id, actor_id, real_actor_id, action, entity, entity_id, result, meta, occurred_at FROM audit_events`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)
	query += " ORDER BY occurred_at DESC, id DESC LIMIT $" + strconv.Itoa(len(args)-1) + " OFFSET $" + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.ActorID, &e.RealActorID, &e.Action, &e.Entity, &e.EntityID, &e.Result, &e.Meta, &e.OccurredAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
