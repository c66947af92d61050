package employees

import (
	"context"
	"fmt"

	"github.com/paylane-hq/paylane/internal/platform/httpx"
)

// RepositoryPort is the persistence surface the service depends on.
type RepositoryPort interface {
	Create(ctx context.Context, e Employee) (Employee, error)
	Get(ctx context.Context, orgID, id int64) (Employee, error)
	ListByOrg(ctx context.Context, orgID int64, limit, offset int) ([]Employee, error)
	Update(ctx context.Context, e Employee) (Employee, error)
}

// Service carries employee master data use cases.
type Service struct {
	repo RepositoryPort
}

// NewService constructs a Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Create registers a new employee in the organization.
func (s *Service) Create(ctx context.Context, orgID int64, in CreateEmployeeInput) (Employee, error) {
	if in.Salary < 0 {
		return Employee{}, fmt.Errorf("%w: salary must not be negative", httpx.ErrValidation)
	}
	return s.repo.Create(ctx, Employee{
		OrgID:      orgID,
		PayGroupID: in.PayGroupID,
		FirstName:  in.FirstName,
		LastName:   in.LastName,
		Email:      in.Email,
		Position:   in.Position,
		Salary:     in.Salary,
	})
}

// Get returns one employee scoped to the organization.
func (s *Service) Get(ctx context.Context, orgID, id int64) (Employee, error) {
	return s.repo.Get(ctx, orgID, id)
}

// List returns a page of an organization's employees.
func (s *Service) List(ctx context.Context, orgID int64, limit, offset int) ([]Employee, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByOrg(ctx, orgID, limit, offset)
}

// Update applies changes to an existing employee.
func (s *Service) Update(ctx context.Context, orgID, id int64, in UpdateEmployeeInput) (Employee, error) {
	if in.Salary < 0 {
		return Employee{}, fmt.Errorf("%w: salary must not be negative", httpx.ErrValidation)
	}
	current, err := s.repo.Get(ctx, orgID, id)
	if err != nil {
		return Employee{}, err
	}
	current.PayGroupID = in.PayGroupID
	current.FirstName = in.FirstName
	current.LastName = in.LastName
	current.Email = in.Email
	current.Position = in.Position
	current.Salary = in.Salary
	current.IsActive = in.IsActive
	return s.repo.Update(ctx, current)
}
