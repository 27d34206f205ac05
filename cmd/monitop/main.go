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

	"github.com/monitop/monitop/internal/app"
	"github.com/monitop/monitop/internal/auth"
	"github.com/monitop/monitop/internal/authz"
	"github.com/monitop/monitop/internal/observability"
	"github.com/monitop/monitop/internal/platform/cache"
	"github.com/monitop/monitop/internal/platform/db"
	"github.com/monitop/monitop/internal/roles"
	"github.com/monitop/monitop/internal/shared"
	"github.com/monitop/monitop/internal/users"
	"github.com/monitop/monitop/internal/view"
	"github.com/monitop/monitop/jobs"
)

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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "monitop_session", cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()

	authzService := authz.NewService(dbpool)
	gate := authz.Middleware{Source: authzService, Logger: logger, OnDeny: metrics.ObserveDenial}
	authzHandler := authz.NewHandler(logger, gate)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, templates, sessionManager, csrfManager)

	auditClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := auditClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	rolesRepo := roles.NewRepository(dbpool)
	rolesService := roles.NewService(rolesRepo, auditClient, logger)
	rolesHandler := roles.NewHandler(logger, rolesService, templates, csrfManager, gate)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo, auditClient, logger)
	usersHandler := users.NewHandler(logger, usersService, rolesRepo, templates, csrfManager, gate)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		Templates:      templates,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		AuthHandler:    authHandler,
		AuthzHandler:   authzHandler,
		RolesHandler:   rolesHandler,
		UsersHandler:   usersHandler,
		Gate:           gate,
		Metrics:        metrics,
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
