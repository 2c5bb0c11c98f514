package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/drona-gyawali/Supportix/internal/api/http"
	"github.com/drona-gyawali/Supportix/internal/api/http/handlers"
	"github.com/drona-gyawali/Supportix/internal/automation"
	"github.com/drona-gyawali/Supportix/internal/config"
	"github.com/drona-gyawali/Supportix/internal/events"
	"github.com/drona-gyawali/Supportix/internal/lock"
	"github.com/drona-gyawali/Supportix/internal/observability"
	"github.com/drona-gyawali/Supportix/internal/persistence"
	"github.com/drona-gyawali/Supportix/internal/repository"
	"github.com/drona-gyawali/Supportix/internal/repository/memory"
	"github.com/drona-gyawali/Supportix/internal/service"
	"github.com/drona-gyawali/Supportix/internal/tagging"
	"github.com/drona-gyawali/Supportix/internal/worker"
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

	var (
		ticketRepo   repository.TicketRepository
		agentRepo    repository.AgentRepository
		deptRepo     repository.DepartmentRepository
		customerRepo repository.CustomerRepository
		changeRepo   repository.StatusChangeRepository
	)
	if pool := pg.PoolHandle(); pool != nil {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pool, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		ticketRepo = repository.NewTicketRepository(pool)
		agentRepo = repository.NewAgentRepository(pool)
		deptRepo = repository.NewDepartmentRepository(pool)
		customerRepo = repository.NewCustomerRepository(pool)
		changeRepo = repository.NewStatusChangeRepository(pool)
	} else {
		store := memory.NewStore()
		ticketRepo = store.Tickets()
		agentRepo = store.Agents()
		deptRepo = store.Departments()
		customerRepo = store.Customers()
		changeRepo = store.StatusChanges()
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	locks := lock.NewRegistry()

	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		TicketRepo: ticketRepo,
		AgentRepo:  agentRepo,
		ChangeRepo: changeRepo,
		Dispatcher: dispatcher,
		Locks:      locks,
		Cache:      redis,
		Metrics:    metrics,
		Logger:     logger,
		Config:     cfg.Assignment,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:   ticketRepo,
		AgentRepo:    agentRepo,
		CustomerRepo: customerRepo,
		ChangeRepo:   changeRepo,
		Dispatcher:   dispatcher,
		Locks:        locks,
		Logger:       logger,
	})
	directoryService := service.NewDirectoryService(agentRepo, deptRepo, customerRepo, logger)

	tagger := tagging.NewClient(cfg.Tagging, logger)
	engine := automation.NewEngine(logger,
		automation.NewAutoClose(ticketRepo, changeRepo, dispatcher, cfg.Automation.InactiveDays),
		automation.NewTagByContent(ticketRepo, tagger),
		automation.NewDepartmentMerge(ticketRepo, agentRepo, dispatcher, locks, logger,
			cfg.Automation.OverloadThreshold, cfg.Automation.UnderutilizedThreshold),
	)
	automationService := service.NewAutomationService(engine, ticketRepo, logger, cfg.Automation.SweepBatchSize)

	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	scheduler := worker.NewScheduler(
		assignmentService,
		ticketService,
		automationService,
		metrics,
		logger,
		cfg.Scheduler,
		cfg.Automation,
	)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:    handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Tickets:   handlers.NewTicketsHandler(ticketService, assignmentService, automationService, directoryService),
		Directory: handlers.NewDirectoryHandler(directoryService),
		Tasks:     handlers.NewTasksHandler(scheduler),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
