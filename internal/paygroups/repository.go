package paygroups

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paylane-hq/paylane/internal/platform/httpx"
	"github.com/paylane-hq/paylane/internal/shared"
)

// Repository provides PostgreSQL backed persistence for pay groups.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const payGroupColumns = `id, org_id, name, pay_frequency, currency, created_at, updated_at`

func scanPayGroup(row pgx.Row) (PayGroup, error) {
	var g PayGroup
	err := row.Scan(&g.ID, &g.OrgID, &g.Name, &g.PayFrequency, &g.Currency, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PayGroup{}, shared.ErrNotFound
		}
		return PayGroup{}, err
	}
	return g, nil
}

// Create inserts a pay group. Names are unique per organization; a clash maps
// to ErrDuplicate.
func (r *Repository) Create(ctx context.Context, g PayGroup) (PayGroup, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO pay_groups (org_id, name, pay_frequency, currency)
VALUES ($1, $2, $3, $4) RETURNING `+payGroupColumns, g.OrgID, g.Name, g.PayFrequency, g.Currency)
	created, err := scanPayGroup(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return PayGroup{}, httpx.ErrDuplicate
		}
		return PayGroup{}, err
	}
	return created, nil
}

// Get loads one pay group scoped to its organization.
func (r *Repository) Get(ctx context.Context, orgID, id int64) (PayGroup, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+payGroupColumns+` FROM pay_groups WHERE org_id = $1 AND id = $2`, orgID, id)
	return scanPayGroup(row)
}

// ListByOrg returns the organization's pay groups ordered by name.
func (r *Repository) ListByOrg(ctx context.Context, orgID int64) ([]PayGroup, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+payGroupColumns+` FROM pay_groups WHERE org_id = $1 ORDER BY name ASC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PayGroup
	for rows.Next() {
		g, err := scanPayGroup(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// Update modifies a pay group within its organization.
func (r *Repository) Update(ctx context.Context, g PayGroup) (PayGroup, error) {
	row := r.pool.QueryRow(ctx, `UPDATE pay_groups SET name = $1, pay_frequency = $2, currency = $3, updated_at = NOW()
WHERE org_id = $4 AND id = $5 RETURNING `+payGroupColumns, g.Name, g.PayFrequency, g.Currency, g.OrgID, g.ID)
	return scanPayGroup(row)
}
