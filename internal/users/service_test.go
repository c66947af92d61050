package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/paylane-hq/paylane/internal/rbac"
	"github.com/paylane-hq/paylane/internal/shared"
)

type memRepo struct {
	users  map[int64]User
	nextID int64
}

func newMemRepo() *memRepo {
	return &memRepo{users: make(map[int64]User), nextID: 1}
}

func (m *memRepo) GetByID(_ context.Context, id int64) (User, error) {
	u, ok := m.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return u, nil
}

func (m *memRepo) GetByEmail(_ context.Context, email string) (User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, shared.ErrNotFound
}

func (m *memRepo) ListByOrg(_ context.Context, orgID int64, limit, offset int) ([]User, error) {
	var out []User
	for _, u := range m.users {
		if u.OrgID != nil && *u.OrgID == orgID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memRepo) Create(_ context.Context, u User) (User, error) {
	u.ID = m.nextID
	m.nextID++
	m.users[u.ID] = u
	return u, nil
}

func (m *memRepo) SetActive(_ context.Context, orgID, id int64, active bool) error {
	u, ok := m.users[id]
	if !ok || u.OrgID == nil || *u.OrgID != orgID {
		return shared.ErrNotFound
	}
	u.IsActive = active
	m.users[id] = u
	return nil
}

func (m *memRepo) SetRole(_ context.Context, orgID, id int64, role rbac.Role) error {
	u, ok := m.users[id]
	if !ok || u.OrgID == nil || *u.OrgID != orgID {
		return shared.ErrNotFound
	}
	u.Role = role
	m.users[id] = u
	return nil
}

func orgPtr(id int64) *int64 { return &id }

func TestCreateHashesPasswordAndNormalizesEmail(t *testing.T) {
	svc := NewService(newMemRepo())

	u, err := svc.Create(context.Background(), CreateInput{
		Email:       "  Ada@Acme.TEST ",
		Name:        "Ada Admin",
		OrgID:       orgPtr(1),
		Role:        rbac.RoleOrgAdmin,
		Password:    "long enough",
		CreatorRole: rbac.RoleOrgAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, "ada@acme.test", u.Email)
	assert.True(t, u.IsActive)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("long enough")))
}

func TestCreateRejectsUnknownRole(t *testing.T) {
	svc := NewService(newMemRepo())
	_, err := svc.Create(context.Background(), CreateInput{
		Email: "a@b.test", Name: "A", Role: rbac.Role("bogus"), Password: "long enough",
		CreatorRole: rbac.RoleOrgAdmin,
	})
	assert.Error(t, err)
}

func TestCreateRejectsShortPassword(t *testing.T) {
	svc := NewService(newMemRepo())
	_, err := svc.Create(context.Background(), CreateInput{
		Email: "a@b.test", Name: "A", Role: rbac.RoleOrgViewer, Password: "short",
		CreatorRole: rbac.RoleOrgAdmin,
	})
	assert.Error(t, err)
}

func TestCreateRefusesPlatformRoles(t *testing.T) {
	svc := NewService(newMemRepo())
	for _, role := range []rbac.Role{rbac.RolePlatformSuperAdmin, rbac.RolePlatformAuditor} {
		_, err := svc.Create(context.Background(), CreateInput{
			Email: "a@b.test", Name: "A", OrgID: orgPtr(1), Role: role, Password: "long enough",
			CreatorRole: rbac.RolePlatformSuperAdmin,
		})
		assert.ErrorIs(t, err, shared.ErrPermissionDenied, "role %s", role)
	}
}

func TestCreateCapsRoleAtCreatorLevel(t *testing.T) {
	svc := NewService(newMemRepo())

	// An HR admin (level 70) must not mint an org admin (level 80).
	_, err := svc.Create(context.Background(), CreateInput{
		Email: "a@b.test", Name: "A", OrgID: orgPtr(1), Role: rbac.RoleOrgAdmin,
		Password: "long enough", CreatorRole: rbac.RoleOrgHRAdmin,
	})
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)

	// Own level and below stay assignable.
	_, err = svc.Create(context.Background(), CreateInput{
		Email: "b@b.test", Name: "B", OrgID: orgPtr(1), Role: rbac.RoleOrgHRAdmin,
		Password: "long enough", CreatorRole: rbac.RoleOrgHRAdmin,
	})
	require.NoError(t, err)
}

func TestSetActive(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)
	u, err := svc.Create(context.Background(), CreateInput{
		Email: "a@b.test", Name: "A", OrgID: orgPtr(1), Role: rbac.RoleOrgViewer,
		Password: "long enough", CreatorRole: rbac.RoleOrgAdmin,
	})
	require.NoError(t, err)

	require.NoError(t, svc.SetActive(context.Background(), 1, u.ID, false))
	got, err := svc.Get(context.Background(), u.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestSetActiveConfinedToOrg(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)
	u, err := svc.Create(context.Background(), CreateInput{
		Email: "a@b.test", Name: "A", OrgID: orgPtr(2), Role: rbac.RoleOrgViewer,
		Password: "long enough", CreatorRole: rbac.RoleOrgAdmin,
	})
	require.NoError(t, err)

	// Targeting the org-2 account through org 1 must read as not found and
	// leave the account untouched.
	err = svc.SetActive(context.Background(), 1, u.ID, false)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	got, err := svc.Get(context.Background(), u.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
}

func TestSetRoleStaysInCatalog(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)
	u, err := svc.Create(context.Background(), CreateInput{
		Email: "a@b.test", Name: "A", OrgID: orgPtr(1), Role: rbac.RoleOrgViewer,
		Password: "long enough", CreatorRole: rbac.RoleOrgAdmin,
	})
	require.NoError(t, err)

	assert.Error(t, svc.SetRole(context.Background(), rbac.RoleOrgAdmin, 1, u.ID, rbac.Role("bogus")))
	require.NoError(t, svc.SetRole(context.Background(), rbac.RoleOrgAdmin, 1, u.ID, rbac.RoleOrgHRAdmin))
}

func TestSetRoleCappedAtActorLevel(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)
	u, err := svc.Create(context.Background(), CreateInput{
		Email: "a@b.test", Name: "A", OrgID: orgPtr(1), Role: rbac.RoleOrgViewer,
		Password: "long enough", CreatorRole: rbac.RoleOrgAdmin,
	})
	require.NoError(t, err)

	err = svc.SetRole(context.Background(), rbac.RoleOrgHRAdmin, 1, u.ID, rbac.RoleOrgAdmin)
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)
	err = svc.SetRole(context.Background(), rbac.RoleOrgAdmin, 1, u.ID, rbac.RolePlatformSuperAdmin)
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)

	err = svc.SetRole(context.Background(), rbac.RoleOrgAdmin, 2, u.ID, rbac.RoleOrgHRAdmin)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
