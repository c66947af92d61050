package paygroups

import (
	"context"
	"fmt"
	"strings"

	"github.com/paylane-hq/paylane/internal/platform/httpx"
)

// RepositoryPort is the persistence surface the service depends on.
type RepositoryPort interface {
	Create(ctx context.Context, g PayGroup) (PayGroup, error)
	Get(ctx context.Context, orgID, id int64) (PayGroup, error)
	ListByOrg(ctx context.Context, orgID int64) ([]PayGroup, error)
	Update(ctx context.Context, g PayGroup) (PayGroup, error)
}

// Service carries pay group use cases.
type Service struct {
	repo RepositoryPort
}

// NewService constructs a Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

func fromInput(in PayGroupInput) (PayGroup, error) {
	freq := PayFrequency(strings.ToUpper(in.PayFrequency))
	if !freq.Valid() {
		return PayGroup{}, fmt.Errorf("%w: pay_frequency must be MONTHLY, BIWEEKLY or WEEKLY", httpx.ErrValidation)
	}
	return PayGroup{
		Name:         in.Name,
		PayFrequency: freq,
		Currency:     strings.ToUpper(in.Currency),
	}, nil
}

// Create registers a new pay group for the organization.
func (s *Service) Create(ctx context.Context, orgID int64, in PayGroupInput) (PayGroup, error) {
	g, err := fromInput(in)
	if err != nil {
		return PayGroup{}, err
	}
	g.OrgID = orgID
	return s.repo.Create(ctx, g)
}

// Get returns one pay group scoped to the organization.
func (s *Service) Get(ctx context.Context, orgID, id int64) (PayGroup, error) {
	return s.repo.Get(ctx, orgID, id)
}

// List returns the organization's pay groups.
func (s *Service) List(ctx context.Context, orgID int64) ([]PayGroup, error) {
	return s.repo.ListByOrg(ctx, orgID)
}

// Update applies changes to an existing pay group.
func (s *Service) Update(ctx context.Context, orgID, id int64, in PayGroupInput) (PayGroup, error) {
	g, err := fromInput(in)
	if err != nil {
		return PayGroup{}, err
	}
	g.OrgID = orgID
	g.ID = id
	return s.repo.Update(ctx, g)
}
