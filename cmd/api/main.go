package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httptransport "github.com/stanachoad2-cyber/MaintenanceApp/internal/api/http"
	"github.com/stanachoad2-cyber/MaintenanceApp/internal/api/http/handlers"
	"github.com/stanachoad2-cyber/MaintenanceApp/internal/auth"
	"github.com/stanachoad2-cyber/MaintenanceApp/internal/bootstrap"
	"github.com/stanachoad2-cyber/MaintenanceApp/internal/config"
	"github.com/stanachoad2-cyber/MaintenanceApp/internal/domain"
	"github.com/stanachoad2-cyber/MaintenanceApp/internal/events"
	"github.com/stanachoad2-cyber/MaintenanceApp/internal/notify"
	"github.com/stanachoad2-cyber/MaintenanceApp/internal/observability"
	"github.com/stanachoad2-cyber/MaintenanceApp/internal/pdf"
	"github.com/stanachoad2-cyber/MaintenanceApp/internal/realtime"
	"github.com/stanachoad2-cyber/MaintenanceApp/internal/service"
	"github.com/stanachoad2-cyber/MaintenanceApp/internal/worker"
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

	stores, err := bootstrap.OpenStores(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to open storage", zap.Error(err))
	}
	defer stores.Close()

	redis := bootstrap.OpenRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	loc := cfg.App.Location()
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	var cache service.SettingsCache
	var hub *realtime.Hub
	if redis != nil {
		cache = service.NewRedisSettingsCache(redis.Client, cfg.Redis.SettingsCacheTTL, logger)
		hub = realtime.NewHub(redis.Client, logger)
	} else {
		hub = realtime.NewHub(nil, logger)
	}
	go hub.Run(ctx)

	settingsService := service.NewSettingsService(service.SettingsDependencies{
		Repo:   stores.Settings,
		Cache:  cache,
		Logger: logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  stores.Tickets,
		HistoryRepo: stores.History,
		Settings:    settingsService,
		Dispatcher:  dispatcher,
		Logger:      logger,
		Workflow:    domain.WorkflowOptions{LeaderCheck: cfg.Workflow.LeaderCheck},
		Location:    loc,
	})
	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo: stores.Users,
		Logger:   logger,
	})
	userService := service.NewUserService(service.UserDependencies{
		UserRepo:   stores.Users,
		Logger:     logger,
		BcryptCost: cfg.Auth.BcryptCost,
		Owner:      cfg.Auth.BootstrapUsername,
	})
	if created, err := userService.EnsureBootstrapAdmin(ctx, cfg.Auth.BootstrapPassword, cfg.Auth.BootstrapFullname); err != nil {
		logger.Fatal("failed to bootstrap owner account", zap.Error(err))
	} else if created {
		logger.Info("owner account created", zap.String("username", cfg.Auth.BootstrapUsername))
	}

	telegram := notify.NewTelegram(cfg.Notification)
	if !telegram.Enabled() {
		logger.Warn("telegram token or chat id missing; ticket notices disabled")
	}
	notificationService := service.NewNotificationService(service.NotificationDependencies{
		Dispatcher: dispatcher,
		Notifier:   telegram,
		Metrics:    metrics,
		Logger:     logger,
		Timeout:    cfg.Notification.Timeout(),
	})
	worker.StartNotificationWorker(dispatcher, worker.Subscribers{
		Notifications: notificationService,
		Hub:           hub,
		Metrics:       metrics,
	})

	renderer, err := pdf.NewRenderer(cfg.PDF, loc)
	if err != nil {
		logger.Fatal("failed to load pdf assets", zap.Error(err))
	}
	exportService := service.NewExportService(ticketService, renderer, logger)

	app := httptransport.NewApp(cfg.App.Name, logger, metrics)
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	// Pingers stay untyped nil when a backend is off so readiness reports it disabled.
	var pgPinger, redisPinger handlers.Pinger
	if stores.Postgres != nil {
		pgPinger = stores.Postgres
	}
	if redis != nil {
		redisPinger = redis
	}

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pgPinger, redisPinger),
		Users:          handlers.NewUsersHandler(authService, userService),
		Tickets:        handlers.NewTicketsHandler(ticketService, exportService),
		Settings:       handlers.NewSettingsHandler(settingsService),
		Stream:         handlers.NewStreamHandler(hub, 0),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), stores.Users),
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	// Closing the hub ends open event streams so Shutdown does not wait on them.
	hub.Close()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	cancel()
	notificationService.Wait()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
