package payroll

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paylane-hq/paylane/internal/rbac"
	"github.com/paylane-hq/paylane/internal/session"
	"github.com/paylane-hq/paylane/internal/shared"
)

type memKeeper struct {
	keys map[string]bool
}

func newMemKeeper() *memKeeper {
	return &memKeeper{keys: make(map[string]bool)}
}

func (m *memKeeper) CheckAndInsert(_ context.Context, key, _ string) error {
	if m.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[key] = true
	return nil
}

func (m *memKeeper) Delete(_ context.Context, key string) error {
	delete(m.keys, key)
	return nil
}

func newTestServer(t *testing.T, f *fixture, keeper IdempotencyKeeper, sctx *session.Context) *httptest.Server {
	t.Helper()
	h := NewHandler(slog.Default(), f.engine, keeper)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(session.ContextWith(req.Context(), sctx)))
		})
	})
	h.MountRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, key, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestSubmitReplayRefusedWithSameKey(t *testing.T) {
	f := newFixture(t)
	processor := actor(10, 1, rbac.RoleOrgFinanceController)
	run, err := f.engine.CreateRun(context.Background(), processor, CreatePayRunInput{
		OrgID: 1, PayGroupID: 3, PeriodLabel: "2026-08",
	})
	require.NoError(t, err)
	keeper := newMemKeeper()
	srv := newTestServer(t, f, keeper, processor)

	body := `{"steps":[{"approver_id":11}]}`
	resp := postJSON(t, srv.URL+"/payruns/"+run.ID.String()+"/submit", "key-1", body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// A straight replay with the same key is a duplicate regardless of state.
	resp = postJSON(t, srv.URL+"/payruns/"+run.ID.String()+"/submit", "key-1", body)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.True(t, keeper.keys["key-1"])
}

func TestFailedSubmitReleasesIdempotencyKey(t *testing.T) {
	f := newFixture(t)
	view, processor := f.submittedRun(t)
	keeper := newMemKeeper()
	srv := newTestServer(t, f, keeper, processor)

	// The run is already pending approval, so this submission fails.
	url := srv.URL + "/payruns/" + view.Run.ID.String() + "/submit"
	resp := postJSON(t, url, "key-2", `{"steps":[{"approver_id":11}]}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// The key must not be consumed by the failure: a later retry against a
	// fresh draft run with the same key goes through.
	assert.False(t, keeper.keys["key-2"])
	run, err := f.engine.CreateRun(context.Background(), processor, CreatePayRunInput{
		OrgID: 1, PayGroupID: 3, PeriodLabel: "2026-09",
	})
	require.NoError(t, err)
	resp = postJSON(t, srv.URL+"/payruns/"+run.ID.String()+"/submit", "key-2", `{"steps":[{"approver_id":11}]}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
