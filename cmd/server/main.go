package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/taskextreme/backend/internal/config"
	"github.com/taskextreme/backend/internal/core/ports"
	"github.com/taskextreme/backend/internal/core/services"
	"github.com/taskextreme/backend/internal/infrastructure/db"
	"github.com/taskextreme/backend/internal/infrastructure/logger"
	"github.com/taskextreme/backend/internal/infrastructure/network"
	"github.com/taskextreme/backend/internal/infrastructure/notify"
	"github.com/taskextreme/backend/internal/infrastructure/remote"
	transporthttp "github.com/taskextreme/backend/internal/transport/http"
	"github.com/taskextreme/backend/internal/transport/http/handlers"
	httpmw "github.com/taskextreme/backend/internal/transport/http/middleware"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	path := *configPath
	if path == "" {
		path = "config/config.yaml"
		if _, err := os.Stat(path); os.IsNotExist(err) {
			path = "../config/config.yaml"
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			path = ""
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := handlers.NewNotificationHub(log.Named("ws"))
	notifier := notify.NewMulti(notify.NewLogNotifier(log.Named("notify")), hub)

	store := db.NewTaskStore(db.TaskStoreConfig{
		Database: cfg.Database,
		Logger:   log.Named("store"),
		Notifier: notifier,
	})
	if err := store.Open(ctx); err != nil {
		log.Fatalf("failed to open task store: %v", err)
	}
	log.Infow("task_store_ready", "driver", cfg.Database.Driver, "schema_version", store.Version())

	conn, err := store.DB(ctx)
	if err != nil {
		log.Fatalf("failed to get store connection: %v", err)
	}
	kv := db.NewKeyValueRepository(conn, log.Named("kv"))

	syncer, err := newSyncer(ctx, cfg, kv, log)
	if err != nil {
		log.Fatalf("failed to set up %s sync backend: %v", cfg.Sync.Backend, err)
	}

	preferences := services.NewPreferenceService(services.PreferenceServiceConfig{
		KV:     kv,
		Logger: log.Named("preferences"),
	})
	queue := services.NewOfflineQueue(services.OfflineQueueConfig{
		Store:    store,
		Syncer:   syncer,
		Notifier: notifier,
		Logger:   log.Named("queue"),
		Checked:  preferences,
	})

	var health ports.HealthChecker
	if cfg.Connectivity.HealthURL != "" {
		health = remote.NewHealthClient(remote.HealthClientConfig{
			URL:     cfg.Connectivity.HealthURL,
			Timeout: cfg.Connectivity.ProbeTimeout,
			Logger:  log.Named("health"),
		})
	}
	monitor := services.NewConnectivityMonitor(services.ConnectivityMonitorConfig{
		Network: network.NewInterfaceProbe(network.ProbeConfig{
			Disabled: !cfg.Connectivity.CheckInterfaces,
			Logger:   log.Named("network"),
		}),
		Health:        health,
		Notifier:      notifier,
		Logger:        log.Named("connectivity"),
		ProbeInterval: cfg.Connectivity.ProbeInterval,
		MaxRetries:    cfg.Connectivity.MaxRetries,
		RetryDelay:    cfg.Connectivity.RetryDelay,
		Pending:       func() int { return len(queue.Pending()) },
	})
	monitor.OnChange(queue.HandleStateChange)

	templates, err := services.NewTemplateService(services.TemplateServiceConfig{
		KV:       kv,
		Tasks:    queue,
		Notifier: notifier,
		Logger:   log.Named("templates"),
	})
	if err != nil {
		log.Fatalf("failed to create template service: %v", err)
	}

	if cfg.Features.ImportLegacyTasks {
		importer := services.NewLegacyImporter(services.LegacyImporterConfig{
			KV:       kv,
			Tasks:    queue,
			Notifier: notifier,
			Logger:   log.Named("legacy"),
		})
		if n, err := importer.Run(ctx); err != nil {
			log.Warnf("legacy task import stopped after %d tasks: %v", n, err)
		}
	}

	monitor.Start(ctx)

	app := fiber.New(fiber.Config{
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		IdleTimeout:           cfg.Server.IdleTimeout,
		ErrorHandler:          globalErrorHandler(log),
		DisableStartupMessage: true,
	})

	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	allowedOrigins := "http://localhost:3000"
	if len(cfg.Auth.AllowedOrigins) > 0 {
		allowedOrigins = strings.Join(cfg.Auth.AllowedOrigins, ",")
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-API-Key, " + cfg.Features.RequestIDHeader,
		AllowMethods: "GET, POST, HEAD, PUT, DELETE",
	}))

	app.Use(httpmw.RequestID(cfg.Features.RequestIDHeader))
	if cfg.Features.EnableRequestLogging {
		app.Use(httpmw.AccessLog(log))
	}

	transporthttp.SetupRoutes(app, transporthttp.RouterConfig{
		Tasks:        queue,
		Templates:    templates,
		Preferences:  preferences,
		Connectivity: monitor,
		Hub:          hub,
		Logger:       log,
		Config:       cfg,
	})

	go func() {
		if err := app.Listen(cfg.Server.Address()); err != nil {
			log.Fatalf("server failed to start: %v", err)
		}
	}()
	log.Infof("server started on %s", cfg.Server.Address())

	<-ctx.Done()
	gracefulShutdown(app, monitor, queue, store, log)
}

func newSyncer(ctx context.Context, cfg *config.Config, kv ports.KeyValueRepository, log *logger.Logger) (ports.RemoteSyncer, error) {
	switch cfg.Sync.Backend {
	case config.SyncBackendHTTP:
		return remote.NewHTTPSyncer(remote.HTTPSyncerConfig{
			BaseURL: cfg.Sync.BaseURL,
			Token:   cfg.Sync.Token,
			Timeout: cfg.Sync.Timeout,
			Logger:  log.Named("sync"),
		}), nil
	case config.SyncBackendGoogleTasks:
		return remote.NewGoogleTasksSyncer(ctx, cfg.Sync.GoogleTasks, kv, log.Named("sync"))
	default:
		return services.NoopSyncer{}, nil
	}
}

func globalErrorHandler(log *logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError

		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		if code < fiber.StatusInternalServerError {
			log.Warnw("request failed",
				"method", c.Method(),
				"path", c.Path(),
				"status", code,
				"error", err.Error(),
				"request_id", c.Locals(string(httpmw.RequestIDKey)),
			)
		} else {
			log.Errorw("request error",
				"method", c.Method(),
				"path", c.Path(),
				"status", code,
				"error", err.Error(),
				"request_id", c.Locals(string(httpmw.RequestIDKey)),
			)
		}

		return c.Status(code).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}

func gracefulShutdown(app *fiber.App, monitor *services.ConnectivityMonitor, queue *services.OfflineQueue, store *db.TaskStore, log *logger.Logger) {
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Errorf("server forced to shutdown: %v", err)
	}

	monitor.Stop()
	if pending := len(queue.Pending()); pending > 0 {
		log.Warnw("shutdown_with_pending_operations", "pending", pending)
	}

	if err := store.Close(); err != nil {
		log.Errorf("failed to close task store: %v", err)
	}

	log.Info("server exited gracefully")
}
