package paygroups

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paylane-hq/paylane/internal/platform/httpx"
	"github.com/paylane-hq/paylane/internal/shared"
)

type memRepo struct {
	groups map[int64]PayGroup
	nextID int64
}

func newMemRepo() *memRepo {
	return &memRepo{groups: make(map[int64]PayGroup), nextID: 1}
}

func (m *memRepo) Create(_ context.Context, g PayGroup) (PayGroup, error) {
	for _, existing := range m.groups {
		if existing.OrgID == g.OrgID && existing.Name == g.Name {
			return PayGroup{}, httpx.ErrDuplicate
		}
	}
	g.ID = m.nextID
	m.nextID++
	m.groups[g.ID] = g
	return g, nil
}

func (m *memRepo) Get(_ context.Context, orgID, id int64) (PayGroup, error) {
	g, ok := m.groups[id]
	if !ok || g.OrgID != orgID {
		return PayGroup{}, shared.ErrNotFound
	}
	return g, nil
}

func (m *memRepo) ListByOrg(_ context.Context, orgID int64) ([]PayGroup, error) {
	var out []PayGroup
	for _, g := range m.groups {
		if g.OrgID == orgID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *memRepo) Update(_ context.Context, g PayGroup) (PayGroup, error) {
	current, ok := m.groups[g.ID]
	if !ok || current.OrgID != g.OrgID {
		return PayGroup{}, shared.ErrNotFound
	}
	m.groups[g.ID] = g
	return g, nil
}

func TestCreateNormalizesInput(t *testing.T) {
	svc := NewService(newMemRepo())

	g, err := svc.Create(context.Background(), 1, PayGroupInput{Name: "Berlin Salaried", PayFrequency: "monthly", Currency: "eur"})
	require.NoError(t, err)
	assert.Equal(t, FrequencyMonthly, g.PayFrequency)
	assert.Equal(t, "EUR", g.Currency)
}

func TestCreateRejectsUnknownFrequency(t *testing.T) {
	svc := NewService(newMemRepo())
	_, err := svc.Create(context.Background(), 1, PayGroupInput{Name: "X", PayFrequency: "daily", Currency: "EUR"})
	assert.True(t, errors.Is(err, httpx.ErrValidation))
}

func TestCreateDuplicateName(t *testing.T) {
	svc := NewService(newMemRepo())
	_, err := svc.Create(context.Background(), 1, PayGroupInput{Name: "Ops", PayFrequency: "WEEKLY", Currency: "EUR"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), 1, PayGroupInput{Name: "Ops", PayFrequency: "WEEKLY", Currency: "EUR"})
	assert.True(t, errors.Is(err, httpx.ErrDuplicate))
}

func TestGetScopedToOrg(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)
	g, err := svc.Create(context.Background(), 1, PayGroupInput{Name: "Ops", PayFrequency: "WEEKLY", Currency: "EUR"})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), 2, g.ID)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}
