package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/paylane-hq/paylane/internal/app"
	"github.com/paylane-hq/paylane/internal/audit"
	"github.com/paylane-hq/paylane/internal/auth"
	"github.com/paylane-hq/paylane/internal/authz"
	"github.com/paylane-hq/paylane/internal/employees"
	"github.com/paylane-hq/paylane/internal/orgs"
	"github.com/paylane-hq/paylane/internal/paygroups"
	"github.com/paylane-hq/paylane/internal/payroll"
	"github.com/paylane-hq/paylane/internal/platform/db"
	"github.com/paylane-hq/paylane/internal/rbac"
	"github.com/paylane-hq/paylane/internal/session"
	"github.com/paylane-hq/paylane/internal/shared"
	"github.com/paylane-hq/paylane/internal/users"
	"github.com/paylane-hq/paylane/jobs"
)

// userDirectory adapts the users service to the lookup interfaces the
// payroll engine and the notifier need.
type userDirectory struct {
	users *users.Service
}

func (d userDirectory) Lookup(ctx context.Context, userID int64) (payroll.DirectoryEntry, error) {
	u, err := d.users.Get(ctx, userID)
	if err != nil {
		return payroll.DirectoryEntry{}, err
	}
	return payroll.DirectoryEntry{ID: u.ID, Name: u.Name, Email: u.Email, Active: u.IsActive}, nil
}

func (d userDirectory) EmailOf(ctx context.Context, userID int64) (string, error) {
	u, err := d.users.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	return u.Email, nil
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.Connect(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	codec := session.NewCodec(cfg.TokenSecret)
	verifier := session.NewVerifier(codec, redisClient, auditLogger, logger)

	resolver := rbac.NewResolver()
	guard := rbac.NewScopeGuard()
	authzMW := authz.Middleware{Resolver: resolver, Guard: guard, Audit: auditLogger, Logger: logger}

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo)
	usersHandler := users.NewHandler(logger, usersService, authzMW)

	authService := auth.NewService(usersRepo, codec, auditLogger, cfg.TokenTTL)
	authHandler := auth.NewHandler(logger, authService, verifier)

	orgsRepo := orgs.NewRepository(dbpool)
	orgsService := orgs.NewService(orgsRepo)
	orgsHandler := orgs.NewHandler(logger, orgsService, authzMW)

	employeesRepo := employees.NewRepository(dbpool)
	employeesService := employees.NewService(employeesRepo)
	employeesHandler := employees.NewHandler(logger, employeesService, authzMW)

	payGroupsRepo := paygroups.NewRepository(dbpool)
	payGroupsService := paygroups.NewService(payGroupsRepo)
	payGroupsHandler := paygroups.NewHandler(logger, payGroupsService, authzMW)

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	directory := userDirectory{users: usersService}
	notifier := jobs.NewNotifier(jobsClient, directory, cfg.SMTPFrom)

	payrollRepo := payroll.NewRepository(dbpool)
	engine := payroll.NewEngine(payrollRepo, directory, resolver, guard, auditLogger, notifier, logger)
	engine.SetViewCache(payroll.NewViewCache(redisClient, cfg.ViewCacheTTL))
	payrollHandler := payroll.NewHandler(logger, engine, idempotencyStore)

	auditRepo := audit.NewRepository(dbpool)
	auditHandler := audit.NewHandler(logger, auditRepo, authzMW)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Verifier:         verifier,
		Authz:            authzMW,
		AuthHandler:      authHandler,
		OrgsHandler:      orgsHandler,
		UsersHandler:     usersHandler,
		EmployeesHandler: employeesHandler,
		PayGroupsHandler: payGroupsHandler,
		PayrollHandler:   payrollHandler,
		AuditHandler:     auditHandler,
		JobsHandler:      jobsHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
