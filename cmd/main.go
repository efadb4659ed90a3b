package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/orvane/docflow-backend/internal/actions"
	"github.com/orvane/docflow-backend/internal/db"
	"github.com/orvane/docflow-backend/internal/events"
	"github.com/orvane/docflow-backend/internal/expr"
	"github.com/orvane/docflow-backend/internal/handlers"
	"github.com/orvane/docflow-backend/internal/locks"
	"github.com/orvane/docflow-backend/internal/logger"
	"github.com/orvane/docflow-backend/internal/observability"
	"github.com/orvane/docflow-backend/internal/repos"
	"github.com/orvane/docflow-backend/internal/server"
	"github.com/orvane/docflow-backend/internal/services"
	"github.com/orvane/docflow-backend/internal/utils"
	"github.com/orvane/docflow-backend/internal/workflow"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	// Tracing
	if shutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "docflow-backend",
		Environment: logMode,
	}); shutdown != nil {
		defer shutdown(context.Background())
	}

	// Env
	log.Info("Loading environment variables from main...")
	actionMode := utils.GetEnv("WORKFLOW_ACTION_MODE", actions.ModeProduction, log)
	escalationIntervalSec := utils.GetEnvAsInt("ESCALATION_CHECK_INTERVAL_SECONDS", 60, log)
	escalationWorkers := utils.GetEnvAsInt("ESCALATION_WORKERS", 4, log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	documentRepo := repos.NewDocumentRepo(thePG, log)
	templateRepo := repos.NewWorkflowTemplateRepo(thePG, log)
	instanceRepo := repos.NewWorkflowInstanceRepo(thePG, log)
	logRepo := repos.NewWorkflowLogRepo(thePG, log)
	errorLogRepo := repos.NewActionErrorLogRepo(thePG, log)

	// Locking
	var locker locks.InstanceLocker
	if redisLocker, lErr := locks.NewRedisLocker(log); lErr != nil {
		log.Warn("Redis locker unavailable, using in-process locks", "error", lErr)
		locker = locks.NewLocalLocker(3 * time.Second)
	} else {
		locker = redisLocker
	}

	// Event bus
	var bus events.Bus
	redisBus, bErr := events.NewRedisBus(log)
	if bErr != nil {
		log.Warn("Redis event bus unavailable, using in-process bus", "error", bErr)
		bus = events.NewMemoryBus(log)
	} else {
		if fErr := redisBus.StartForwarder(ctx); fErr != nil {
			log.Warn("Redis event forwarder failed to start", "error", fErr)
		}
		bus = redisBus
	}

	// Workflow core
	log.Info("Setting up workflow engine from main...")
	evaluator := expr.NewTemplateEvaluator()
	registry := actions.NewRegistry()
	runner := actions.NewRunner(registry, evaluator, errorLogRepo, log, actionMode)
	engine := workflow.NewEngine(log, instanceRepo, logRepo, evaluator, runner, locker, bus)
	launcher := workflow.NewLauncher(log, templateRepo, instanceRepo, documentRepo, runner)
	launcher.Start(ctx)

	if err := actions.RegisterBuiltins(registry, actions.BuiltinDeps{
		Documents: documentRepo,
		Launcher:  launcher,
		Messenger: actions.NewLogMessenger(log),
		Log:       log,
	}); err != nil {
		log.Error("Could not register built-in actions", "error", err)
		os.Exit(1)
	}

	scheduler := workflow.NewEscalationScheduler(
		log,
		instanceRepo,
		logRepo,
		errorLogRepo,
		evaluator,
		engine,
		time.Duration(escalationIntervalSec)*time.Second,
		escalationWorkers,
	)
	scheduler.Start(ctx)

	dispatcher := workflow.NewTriggerDispatcher(log, templateRepo, instanceRepo, logRepo, engine)
	dispatcher.Bind(bus)

	loader := workflow.NewLoader(templateRepo, documentRepo, registry)

	// Services
	log.Info("Setting up Services from main...")
	documentService := services.NewDocumentService(thePG, log, documentRepo, instanceRepo, templateRepo, launcher, bus, nil)
	templateService := services.NewTemplateService(log, documentRepo, templateRepo, instanceRepo)

	// Handlers
	log.Info("Setting up handlers from main...")
	documentHandler := handlers.NewDocumentHandler(log, documentService)
	workflowHandler := handlers.NewWorkflowHandler(log, engine, launcher, scheduler, loader, templateService, templateRepo, instanceRepo, logRepo, documentRepo)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		ServiceName:     "docflow-backend",
		DocumentHandler: documentHandler,
		WorkflowHandler: workflowHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Warn("Server failed", "error", err)
	}
}
