package orgs

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paylane-hq/paylane/internal/platform/httpx"
	"github.com/paylane-hq/paylane/internal/shared"
)

// Repository provides PostgreSQL backed persistence for organizations.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const orgColumns = `id, name, slug, country, created_at, updated_at`

func scanOrg(row pgx.Row) (Organization, error) {
	var o Organization
	err := row.Scan(&o.ID, &o.Name, &o.Slug, &o.Country, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Organization{}, shared.ErrNotFound
		}
		return Organization{}, err
	}
	return o, nil
}

// Create inserts a new organization. A duplicate slug maps to ErrDuplicate.
func (r *Repository) Create(ctx context.Context, o Organization) (Organization, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO organizations (name, slug, country)
VALUES ($1, $2, $3) RETURNING `+orgColumns, o.Name, o.Slug, o.Country)
	created, err := scanOrg(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Organization{}, httpx.ErrDuplicate
		}
		return Organization{}, err
	}
	return created, nil
}

// Get loads one organization.
func (r *Repository) Get(ctx context.Context, id int64) (Organization, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orgColumns+` FROM organizations WHERE id = $1`, id)
	return scanOrg(row)
}

// List returns organizations ordered by name.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]Organization, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+orgColumns+` FROM organizations ORDER BY name ASC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Organization
	for rows.Next() {
		o, err := scanOrg(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Update modifies name/country of an organization.
func (r *Repository) Update(ctx context.Context, o Organization) (Organization, error) {
	row := r.pool.QueryRow(ctx, `UPDATE organizations SET name = $1, country = $2, updated_at = NOW()
WHERE id = $3 RETURNING `+orgColumns, o.Name, o.Country, o.ID)
	return scanOrg(row)
}
