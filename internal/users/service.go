package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/paylane-hq/paylane/internal/rbac"
	"github.com/paylane-hq/paylane/internal/shared"
)

// RepositoryPort defines data access methods for accounts.
type RepositoryPort interface {
	GetByID(ctx context.Context, id int64) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	ListByOrg(ctx context.Context, orgID int64, limit, offset int) ([]User, error)
	Create(ctx context.Context, u User) (User, error)
	SetActive(ctx context.Context, orgID, id int64, active bool) error
	SetRole(ctx context.Context, orgID, id int64, role rbac.Role) error
}

// Service handles account business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// CreateInput captures fields for a new account. CreatorRole is the effective
// role of the caller and bounds what role the new account may receive.
type CreateInput struct {
	Email       string
	Name        string
	OrgID       *int64
	Role        rbac.Role
	Password    string
	CreatorRole rbac.Role
}

// Create validates and inserts a new account.
func (s *Service) Create(ctx context.Context, in CreateInput) (User, error) {
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	if in.Email == "" || in.Name == "" {
		return User{}, errors.New("users: email and name required")
	}
	if !rbac.Known(in.Role) {
		return User{}, errors.New("users: unknown role")
	}
	if err := assignableBy(in.CreatorRole, in.Role); err != nil {
		return User{}, err
	}
	if len(in.Password) < 8 {
		return User{}, errors.New("users: password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	return s.repo.Create(ctx, User{
		Email:        in.Email,
		Name:         in.Name,
		OrgID:        in.OrgID,
		Role:         in.Role,
		IsActive:     true,
		PasswordHash: string(hash),
	})
}

// Get loads one account.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.GetByID(ctx, id)
}

// ListByOrg returns an organization's accounts.
func (s *Service) ListByOrg(ctx context.Context, orgID int64, limit, offset int) ([]User, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListByOrg(ctx, orgID, limit, offset)
}

// SetActive activates or deactivates an account inside one organization.
// A deactivated account that is a designated approver blocks its workflow
// until reassignment.
func (s *Service) SetActive(ctx context.Context, orgID, id int64, active bool) error {
	return s.repo.SetActive(ctx, orgID, id, active)
}

// SetRole reassigns an account's role within the closed catalog, bounded by
// the acting role's own hierarchy level.
func (s *Service) SetRole(ctx context.Context, actorRole rbac.Role, orgID, id int64, role rbac.Role) error {
	if !rbac.Known(role) {
		return errors.New("users: unknown role")
	}
	if err := assignableBy(actorRole, role); err != nil {
		return err
	}
	return s.repo.SetRole(ctx, orgID, id, role)
}

// assignableBy rejects role grants that would escalate above the granting
// actor. Platform roles are never assignable to organization-bound accounts;
// those are provisioned out of band.
func assignableBy(actor, target rbac.Role) error {
	if rbac.Platform(target) {
		return fmt.Errorf("%w: platform roles cannot be assigned to organization accounts", shared.ErrPermissionDenied)
	}
	if !rbac.Known(actor) || rbac.LevelOf(target) > rbac.LevelOf(actor) {
		return fmt.Errorf("%w: role %s exceeds granting authority", shared.ErrPermissionDenied, target)
	}
	return nil
}
