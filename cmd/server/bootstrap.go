package main

import (
	"github.com/towertrack/backend/internal/config"
	"github.com/towertrack/backend/internal/handlers"
	"github.com/towertrack/backend/internal/models"
	"github.com/towertrack/backend/internal/services"
	"github.com/towertrack/backend/internal/utils"
	"github.com/towertrack/backend/pkg/logger"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	cascadeService *services.CascadeService
	recomputeQueue services.RecomputeQueue
	worker         *services.Worker
	reconciler     *services.ReconcilerService
	authHandler    *handlers.AuthHandler
}

// bootstrap initializes all application dependencies: database, queue, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	// Initialize database
	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto migrate database
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	// Initialize audit logger
	services.InitAuditLogger(models.GetDB())

	// Cascade recompute pipeline (uses Redis if enabled, otherwise sync mode)
	cascadeService := services.NewCascadeService(models.GetDB())
	recomputeQueue := services.InitRecomputeQueue(cfg)
	if syncQueue, ok := recomputeQueue.(*services.SyncQueue); ok {
		syncQueue.SetProcessor(cascadeService.Process)
	}

	// Start async worker if Redis is enabled
	var worker *services.Worker
	if cfg.Redis.Enabled {
		worker = services.InitWorker(&cfg.Redis)
		if worker != nil {
			worker.SetProcessor(cascadeService.Process)
			if err := worker.Start(); err != nil {
				logger.Warn().Err(err).Msg("Failed to start recompute worker")
			}
		}
	}

	// Start reconciliation sweep for stale derived statuses
	var reconciler *services.ReconcilerService
	if cfg.Reconcile.Enabled {
		reconciler = services.NewReconcilerService(models.GetDB())
		if err := reconciler.Start(cfg.Reconcile.Spec); err != nil {
			logger.Warn().Err(err).Msg("Failed to start reconciler")
		}
	}

	// Create default admin user
	authHandler := handlers.NewAuthHandler(models.GetDB(), cfg)
	if err := authHandler.CreateAdminIfNotExists(); err != nil {
		logger.Warn().Err(err).Msg("Failed to create admin user")
	}

	return &appServices{
		cascadeService: cascadeService,
		recomputeQueue: recomputeQueue,
		worker:         worker,
		reconciler:     reconciler,
		authHandler:    authHandler,
	}
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	if s.reconciler != nil {
		s.reconciler.Stop()
	}
	if s.worker != nil {
		s.worker.Stop()
	}
	if s.recomputeQueue != nil {
		s.recomputeQueue.Close()
	}
	logger.Info().Msg("All background services stopped")
}
