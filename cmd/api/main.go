package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/gasc/blood-bridge/internal/api/http"
	"github.com/gasc/blood-bridge/internal/api/http/handlers"
	"github.com/gasc/blood-bridge/internal/auth"
	"github.com/gasc/blood-bridge/internal/config"
	"github.com/gasc/blood-bridge/internal/eligibility"
	"github.com/gasc/blood-bridge/internal/events"
	"github.com/gasc/blood-bridge/internal/observability"
	"github.com/gasc/blood-bridge/internal/persistence"
	"github.com/gasc/blood-bridge/internal/repository"
	"github.com/gasc/blood-bridge/internal/service"
	"github.com/gasc/blood-bridge/internal/worker"
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

	loc, err := cfg.Eligibility.Location()
	if err != nil {
		logger.Fatal("invalid eligibility timezone", zap.Error(err))
	}
	mode, err := eligibility.ParseMatchingMode(cfg.Eligibility.MatchingMode)
	if err != nil {
		logger.Fatal("invalid matching mode", zap.Error(err))
	}
	resolver, err := eligibility.NewResolver(mode)
	if err != nil {
		logger.Fatal("invalid matching mode", zap.Error(err))
	}
	policy := eligibility.CooldownPolicy{
		FemaleDays: cfg.Eligibility.FemaleCooldown,
		MaleDays:   cfg.Eligibility.MaleCooldown,
		OtherDays:  cfg.Eligibility.OtherCooldown,
		Location:   loc,
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	donorRepo := repository.NewDonorRepository(pool)
	requestRepo := repository.NewBloodRequestRepository(pool)
	donationRepo := repository.NewDonationRepository(pool)
	staffRepo := repository.NewStaffRepository(pool)
	activityRepo := repository.NewActivityLogRepository(pool)
	sessionRepo := repository.NewSessionRepository(redis.Client)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)

	activityService := service.NewActivityService(activityRepo, logger)
	inventoryService := service.NewInventoryService(service.InventoryDependencies{
		DonorRepo:        donorRepo,
		RequestRepo:      requestRepo,
		Resolver:         resolver,
		Policy:           policy,
		StrictCityFilter: cfg.Eligibility.StrictCityFilter,
		Logger:           logger,
		Metrics:          metrics,
	})
	mailer := service.LogMailer{From: cfg.Notification.EmailFrom, Logger: logger}
	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		DonorRepo:   donorRepo,
		StaffRepo:   staffRepo,
		SessionRepo: sessionRepo,
		Activity:    activityService,
		Mailer:      mailer,
		Logger:      logger,
	})
	staffService := service.NewStaffService(*cfg, staffRepo, activityService, logger)
	donorService := service.NewDonorService(*cfg, service.DonorDependencies{
		DonorRepo:    donorRepo,
		DonationRepo: donationRepo,
		RequestRepo:  requestRepo,
		Activity:     activityService,
		Dispatcher:   dispatcher,
		Policy:       policy,
		Resolver:     resolver,
		Logger:       logger,
	})
	requestService := service.NewRequestService(service.RequestDependencies{
		RequestRepo: requestRepo,
		Activity:    activityService,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	reportService := service.NewReportService(donorService, inventoryService, activityService)
	notificationService := service.NewNotificationService(cfg.Notification, service.NotificationDependencies{
		Dispatcher:  dispatcher,
		Inventory:   inventoryService,
		RequestRepo: requestRepo,
		Mailer:      mailer,
		Logger:      logger,
	})
	worker.StartNotificationWorker(notificationService, logger)

	if err := staffService.BootstrapAdmin(ctx, cfg.Auth.BootstrapAdminEmail, cfg.Auth.BootstrapAdminPassword); err != nil {
		logger.Fatal("failed to bootstrap admin", zap.Error(err))
	}

	expiryWorker := worker.NewExpiryWorker(requestService, cfg.Requests.SweepInterval(), logger)
	expiryWorker.Start(ctx)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), donorRepo, staffRepo, sessionRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Staff:          handlers.NewStaffHandler(authService, staffService),
		Donors:         handlers.NewDonorsHandler(authService, donorService),
		StaffDonors:    handlers.NewStaffDonorsHandler(donorService),
		Requests:       handlers.NewRequestsHandler(authService, requestService),
		Inventory:      handlers.NewInventoryHandler(inventoryService),
		Reports:        handlers.NewReportsHandler(reportService, activityService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	expiryWorker.Stop()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
