package orgs

import (
	"context"
	"strings"
)

// RepositoryPort defines data access methods for organizations.
type RepositoryPort interface {
	Create(ctx context.Context, o Organization) (Organization, error)
	Get(ctx context.Context, id int64) (Organization, error)
	List(ctx context.Context, limit, offset int) ([]Organization, error)
	Update(ctx context.Context, o Organization) (Organization, error)
}

// Service handles organization business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Create validates and inserts a new organization.
func (s *Service) Create(ctx context.Context, o Organization) (Organization, error) {
	o.Name = strings.TrimSpace(o.Name)
	o.Slug = strings.TrimSpace(strings.ToLower(o.Slug))
	o.Country = strings.ToUpper(strings.TrimSpace(o.Country))
	if err := s.validate(o); err != nil {
		return Organization{}, err
	}
	return s.repo.Create(ctx, o)
}

// Get loads one organization.
func (s *Service) Get(ctx context.Context, id int64) (Organization, error) {
	return s.repo.Get(ctx, id)
}

// List returns organizations with bounded pagination.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Organization, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.List(ctx, limit, offset)
}

// Update validates and persists changes to an organization.
func (s *Service) Update(ctx context.Context, o Organization) (Organization, error) {
	o.Name = strings.TrimSpace(o.Name)
	o.Country = strings.ToUpper(strings.TrimSpace(o.Country))
	if err := s.validate(o); err != nil {
		return Organization{}, err
	}
	return s.repo.Update(ctx, o)
}
