package employees

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paylane-hq/paylane/internal/shared"
)

// Repository provides PostgreSQL backed persistence for employees.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const employeeColumns = `id, org_id, pay_group_id, first_name, last_name, email, position, salary, is_active, created_at, updated_at`

func scanEmployee(row pgx.Row) (Employee, error) {
	var e Employee
	err := row.Scan(&e.ID, &e.OrgID, &e.PayGroupID, &e.FirstName, &e.LastName, &e.Email,
		&e.Position, &e.Salary, &e.IsActive, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Employee{}, shared.ErrNotFound
		}
		return Employee{}, err
	}
	return e, nil
}

// Create inserts a new employee.
func (r *Repository) Create(ctx context.Context, e Employee) (Employee, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO employees (org_id, pay_group_id, first_name, last_name, email, position, salary, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE) RETURNING `+employeeColumns,
		e.OrgID, e.PayGroupID, e.FirstName, e.LastName, e.Email, e.Position, e.Salary)
	return scanEmployee(row)
}

// Get loads one employee scoped to its organization.
func (r *Repository) Get(ctx context.Context, orgID, id int64) (Employee, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE org_id = $1 AND id = $2`, orgID, id)
	return scanEmployee(row)
}

// ListByOrg returns employees of one organization.
func (r *Repository) ListByOrg(ctx context.Context, orgID int64, limit, offset int) ([]Employee, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+employeeColumns+` FROM employees
WHERE org_id = $1 ORDER BY last_name, first_name LIMIT $2 OFFSET $3`, orgID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Update modifies an employee within its organization.
func (r *Repository) Update(ctx context.Context, e Employee) (Employee, error) {
	row := r.pool.QueryRow(ctx, `UPDATE employees
SET pay_group_id = $1, first_name = $2, last_name = $3, email = $4, position = $5, salary = $6, is_active = $7, updated_at = NOW()
WHERE org_id = $8 AND id = $9 RETURNING `+employeeColumns,
		e.PayGroupID, e.FirstName, e.LastName, e.Email, e.Position, e.Salary, e.IsActive, e.OrgID, e.ID)
	return scanEmployee(row)
}
