package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/analyzer"
	httptransport "github.com/spec-kit/triage-service/internal/api/http"
	"github.com/spec-kit/triage-service/internal/api/http/handlers"
	"github.com/spec-kit/triage-service/internal/auth"
	"github.com/spec-kit/triage-service/internal/config"
	"github.com/spec-kit/triage-service/internal/events"
	"github.com/spec-kit/triage-service/internal/helpdesk"
	"github.com/spec-kit/triage-service/internal/monitor"
	"github.com/spec-kit/triage-service/internal/observability"
	"github.com/spec-kit/triage-service/internal/persistence"
	"github.com/spec-kit/triage-service/internal/processor"
	"github.com/spec-kit/triage-service/internal/repository"
	"github.com/spec-kit/triage-service/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations && pg.PoolHandle() != nil {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	kv := store.NewRedisKV(redis.Client)
	historyStore := store.NewHistoryStore(kv)
	settingsStore := store.NewSettingsStore(kv, cfg.Triage, cfg.Monitor)
	sessionStore := store.NewSessionStore(kv, cfg.Monitor.SessionHistoryMax)

	var auditRepo repository.AuditRepository
	if pool := pg.PoolHandle(); pool != nil {
		auditRepo = repository.NewAuditRepository(pool)
	}

	metrics := observability.NewMetrics()
	client := helpdesk.NewClient(cfg.Helpdesk, logger, metrics)

	triggerAnalyzer := analyzer.NewTriggerAnalyzer(
		client, cfg.Triage.OperationalAgentID, cfg.Triage.QAAuthorID, cfg.Triage.ExclusionPhrases, logger)
	resolutionAnalyzer := analyzer.NewResolutionAnalyzer(
		client, cfg.Triage.OperationalAgentID, cfg.Triage.ReviewerID, logger)

	dispatcher := events.NewInMemoryDispatcher()
	subscribeEventLogs(dispatcher, logger)

	proc := processor.New(cfg.Triage, processor.Dependencies{
		API:        client,
		History:    historyStore,
		Settings:   settingsStore,
		Audit:      auditRepo,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
		Trigger:    triggerAnalyzer,
		Resolution: resolutionAnalyzer,
	})

	mon := monitor.New(cfg.Monitor, cfg.Helpdesk, cfg.Triage, monitor.Dependencies{
		API:        client,
		Processor:  proc,
		Resetter:   client,
		Pruner:     historyStore,
		Sessions:   sessionStore,
		Settings:   settingsStore,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokens)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(cfg.Auth, tokens),
		Monitor:        handlers.NewMonitorHandler(mon, sessionStore),
		Tickets:        handlers.NewTicketsHandler(proc, historyStore, auditRepo),
		Stats:          handlers.NewStatsHandler(proc.Stats(), metrics, client),
		Settings:       handlers.NewSettingsHandler(settingsStore),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if _, err := mon.Stop(ctx); err == nil {
		logger.Info("monitoring session closed")
	}
	_ = app.Shutdown()
}

func subscribeEventLogs(dispatcher events.Dispatcher, logger *zap.Logger) {
	dispatcher.Subscribe(events.EventMonitorStarted, func(ctx context.Context, event events.Event) error {
		logger.Info("monitoring started", zap.Any("payload", event.Payload))
		return nil
	})
	dispatcher.Subscribe(events.EventMonitorStopped, func(ctx context.Context, event events.Event) error {
		logger.Info("monitoring stopped", zap.Any("payload", event.Payload))
		return nil
	})
	dispatcher.Subscribe(events.EventCircuitPaused, func(ctx context.Context, event events.Event) error {
		logger.Warn("circuit breaker paused monitoring", zap.Any("payload", event.Payload))
		return nil
	})
	dispatcher.Subscribe(events.EventCircuitResumed, func(ctx context.Context, event events.Event) error {
		logger.Info("monitoring resumed after circuit pause", zap.Any("payload", event.Payload))
		return nil
	})
	dispatcher.Subscribe(events.EventTicketProcessed, func(ctx context.Context, event events.Event) error {
		logger.Info("ticket processed", zap.Any("payload", event.Payload))
		return nil
	})
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
