package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/tix-api/internal/api/http"
	"github.com/spec-kit/tix-api/internal/api/http/handlers"
	"github.com/spec-kit/tix-api/internal/audit"
	"github.com/spec-kit/tix-api/internal/auth"
	"github.com/spec-kit/tix-api/internal/config"
	"github.com/spec-kit/tix-api/internal/events"
	"github.com/spec-kit/tix-api/internal/jobs"
	"github.com/spec-kit/tix-api/internal/mutation"
	"github.com/spec-kit/tix-api/internal/observability"
	"github.com/spec-kit/tix-api/internal/persistence"
	"github.com/spec-kit/tix-api/internal/repository"
	"github.com/spec-kit/tix-api/internal/service"
	"github.com/spec-kit/tix-api/internal/session"
	"github.com/spec-kit/tix-api/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App.Development())
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

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	store := repository.NewStore(pg.PoolHandle())
	metrics := observability.NewMetrics()

	history := audit.NewService(store.Audits, store.Agents)
	sessions := session.NewManager(cfg.Session.RefreshTokenTTL(), logger)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	mailer := service.NewLogMailer(cfg.Notification, logger)

	dispatcher := events.NewInMemoryDispatcher(logger)
	notifications := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notifications)

	queue := jobs.NewRedisQueue(redis.Client, "", logger)
	assigner := jobs.NewAssigner(store, dispatcher, logger)
	exporter := jobs.NewExportRunner(store, history, mailer, logger)
	taskWorker := jobs.NewWorker(queue, assigner, exporter, logger)
	go taskWorker.Run(ctx)

	scheduler, err := jobs.NewScheduler(store, sessions, mailer, *cfg, logger)
	if err != nil {
		logger.Fatal("failed to build scheduler", zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop()

	executor := mutation.NewExecutor(store, logger, metrics, cfg.App.Development())
	muts := mutation.NewMutations(mutation.Dependencies{
		Sessions:   sessions,
		Tokens:     tokens,
		Queue:      queue,
		History:    history,
		Dispatcher: dispatcher,
		Mailer:     mailer,
		Logger:     logger,
		Auth:       cfg.Auth,
		Export:     cfg.Export,
	})

	cookies := auth.NewCookieWriter(!cfg.App.Development(), tokens.AccessTokenTTL(), cfg.Session.RefreshTokenTTL())
	authMiddleware := auth.NewMiddleware(tokens, store.Customers, store.Agents)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(executor, muts, cookies),
		Agents:         handlers.NewAgentsHandler(executor, muts, cookies),
		Tickets:        handlers.NewTicketsHandler(executor, muts, store, history),
		History:        handlers.NewHistoryHandler(history),
		Exports:        handlers.NewExportsHandler(executor, muts),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
