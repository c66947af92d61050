package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/paylane-hq/paylane/internal/audit"
	"github.com/paylane-hq/paylane/internal/auth"
	"github.com/paylane-hq/paylane/internal/authz"
	"github.com/paylane-hq/paylane/internal/employees"
	"github.com/paylane-hq/paylane/internal/orgs"
	"github.com/paylane-hq/paylane/internal/paygroups"
	"github.com/paylane-hq/paylane/internal/payroll"
	"github.com/paylane-hq/paylane/internal/rbac"
	"github.com/paylane-hq/paylane/internal/session"
	"github.com/paylane-hq/paylane/internal/users"
	"github.com/paylane-hq/paylane/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	Verifier         *session.Verifier
	Authz            authz.Middleware
	AuthHandler      *auth.Handler
	OrgsHandler      *orgs.Handler
	UsersHandler     *users.Handler
	EmployeesHandler *employees.Handler
	PayGroupsHandler *paygroups.Handler
	PayrollHandler   *payroll.Handler
	AuditHandler     *audit.Handler
	JobsHandler      *jobs.Handler
}

// NewRouter constructs the chi.Router with Paylane defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:   params.Logger,
		Config:   params.Config,
		Verifier: params.Verifier,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Credential endpoints get a much tighter rate limit than the rest of
	// the API.
	r.Route("/auth", func(r chi.Router) {
		r.Use(httprate.Limit(10, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		params.AuthHandler.MountRoutes(r)
	})

	r.Route("/api/v1", func(r chi.Router) {
		params.OrgsHandler.MountRoutes(r)
		params.UsersHandler.MountRoutes(r)
		params.EmployeesHandler.MountRoutes(r)
		params.PayGroupsHandler.MountRoutes(r)
		params.PayrollHandler.MountRoutes(r)
		if params.AuditHandler != nil {
			params.AuditHandler.MountRoutes(r)
		}
	})

	if params.JobsHandler != nil {
		r.Route("/jobs", func(r chi.Router) {
			r.Use(params.Authz.RequireRoleAtLeast(rbac.RolePlatformAuditor))
			params.JobsHandler.MountRoutes(r)
		})
	}

	return r
}
