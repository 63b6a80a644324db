package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/procurehub/purchase-workflow/internal/application/dispatcher"
	"github.com/procurehub/purchase-workflow/internal/application/port"
	"github.com/procurehub/purchase-workflow/internal/application/service"
	appworkflow "github.com/procurehub/purchase-workflow/internal/application/workflow"
	"github.com/procurehub/purchase-workflow/internal/config"
	"github.com/procurehub/purchase-workflow/internal/domain/event"
	"github.com/procurehub/purchase-workflow/internal/infrastructure/notify"
	"github.com/procurehub/purchase-workflow/internal/infrastructure/persistence/repository"
	"github.com/procurehub/purchase-workflow/internal/infrastructure/persistence/sqlite"
	"github.com/procurehub/purchase-workflow/internal/infrastructure/worker"
	httpapi "github.com/procurehub/purchase-workflow/internal/interfaces/http"
	"github.com/procurehub/purchase-workflow/pkg/database"
	"github.com/procurehub/purchase-workflow/pkg/utils"
)

func main() {
	// Load configuration
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting Purchase Workflow System",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	// Initialize database
	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Create report output directory
	if err := os.MkdirAll(cfg.Report.OutputDir, 0755); err != nil {
		logger.Fatal("Failed to create report output directory", zap.Error(err))
	}

	// Transaction manager over the same connection pool
	txManager := sqlite.NewDB(db.DB, logger)

	// Initialize repositories
	requestRepo := repository.NewRequestRepository(db.DB, logger)
	approvalRepo := repository.NewApprovalRepository(db.DB, logger)
	settingRepo := repository.NewSettingRepository(db.DB, logger)
	managerRepo := repository.NewManagerRepository(db.DB, logger)
	notificationRepo := repository.NewNotificationRepository(db.DB, logger)

	kvLogger := utils.NewKVLogger(logger)

	// Initialize application services
	thresholdPolicy := service.NewThresholdPolicy(settingRepo, kvLogger)
	managerDirectory := service.NewManagerDirectory(managerRepo, kvLogger)
	auditTrail := service.NewAuditTrail(requestRepo, approvalRepo, kvLogger)
	queryService := service.NewQueryService(requestRepo, kvLogger)
	reportService := service.NewReportService(requestRepo, queryService, service.ReportConfig{
		OutputDir:   cfg.Report.OutputDir,
		CompanyName: cfg.Report.CompanyName,
	}, kvLogger)

	// Notification delivery: webhook when configured, otherwise log only
	var notificationDispatcher port.NotificationDispatcher
	if cfg.Notification.WebhookEndpoint != "" {
		notificationDispatcher = notify.NewWebhookDispatcher(notify.Config{
			Endpoint: cfg.Notification.WebhookEndpoint,
			Timeout:  cfg.Notification.Timeout,
		}, logger)
	} else {
		notificationDispatcher = notify.NewLogDispatcher(logger)
	}
	notificationService := service.NewNotificationService(notificationRepo, notificationDispatcher, kvLogger)

	// Event dispatcher wiring: the engine emits, the notification service listens
	eventDispatcher := dispatcher.NewDispatcher(dispatcher.WithLogger(kvLogger))
	for _, t := range []event.Type{
		event.TypeRequestCreated,
		event.TypeStatusChanged,
		event.TypeRequestCompleted,
		event.TypeRequestRejected,
		event.TypeRequestCancelled,
	} {
		eventDispatcher.SubscribeNamed(t, "notification-service", notificationService.HandleEvent)
	}

	// Initialize workflow engine
	engine := appworkflow.NewEngine(
		requestRepo,
		approvalRepo,
		txManager,
		thresholdPolicy,
		managerDirectory,
		appworkflow.WithDispatcher(eventDispatcher),
	)

	// Background workers
	workerManager := worker.NewWorkerManager(logger)
	workerManager.Register(worker.NewNotificationWorker(worker.NotificationWorkerConfig{
		PollInterval: cfg.Notification.PollInterval,
		BatchSize:    cfg.Notification.BatchSize,
	}, notificationService, logger))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := workerManager.StartAll(ctx); err != nil {
		logger.Fatal("Failed to start workers", zap.Error(err))
	}

	// HTTP server
	server := httpapi.NewServer(
		httpapi.ServerConfig{
			Host:         cfg.Server.Host,
			Port:         cfg.Server.Port,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		engine,
		queryService,
		auditTrail,
		thresholdPolicy,
		managerDirectory,
		reportService,
		kvLogger,
	)

	if err := server.Start(ctx); err != nil {
		logger.Error("HTTP server stopped with error", zap.Error(err))
	}

	if err := workerManager.StopAll(); err != nil {
		logger.Error("Worker shutdown error", zap.Error(err))
	}
	eventDispatcher.Close()

	logger.Info("Server exited successfully")
}
