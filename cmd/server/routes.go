package main

import (
	"github.com/gin-gonic/gin"
	"github.com/towertrack/backend/internal/handlers"
	"github.com/towertrack/backend/internal/middleware"
	"github.com/towertrack/backend/internal/models"
	"github.com/towertrack/backend/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())

	// Rate limiter for login attempts
	loginLimiter := middleware.NewRateLimiter(5, 10)

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": "towertrack"})
	})

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/login", loginLimiter.Middleware(), svc.authHandler.Login)
		}

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthRequired(), middleware.AuditLog())
		{
			// Auth
			protected.GET("/auth/me", svc.authHandler.GetCurrentUser)
			protected.POST("/auth/logout", svc.authHandler.Logout)
			protected.POST("/auth/change-password", svc.authHandler.ChangePassword)

			// Dashboard
			dashboardHandler := handlers.NewDashboardHandler(models.GetDB())
			protected.GET("/dashboard/summary", dashboardHandler.GetSummary)

			// Projects
			projectHandler := handlers.NewProjectHandler(models.GetDB())
			protected.GET("/projects", projectHandler.List)
			protected.GET("/projects/:id", projectHandler.GetByID)
			protected.POST("/projects", projectHandler.Create)
			protected.PUT("/projects/:id", projectHandler.Update)
			protected.POST("/projects/:id/recompute", projectHandler.Recompute)

			// Sites
			siteHandler := handlers.NewSiteHandler(models.GetDB())
			protected.GET("/sites", siteHandler.List)
			protected.GET("/sites/:id", siteHandler.GetByID)
			protected.POST("/sites", siteHandler.Create)
			protected.PUT("/sites/:id", siteHandler.Update)
			protected.PUT("/sites/:id/work-items", siteHandler.UpdateWorkItem)
			protected.POST("/sites/:id/recompute", siteHandler.Recompute)

			// Activities
			activityHandler := handlers.NewActivityHandler(models.GetDB())
			protected.GET("/activities", activityHandler.List)
			protected.GET("/activities/:id", activityHandler.GetByID)
			protected.POST("/activities", activityHandler.Create)
			protected.PUT("/activities/:id", activityHandler.Update)
			protected.PUT("/activities/:id/work-items", activityHandler.UpdateWorkItem)
			protected.POST("/activities/:id/recompute", activityHandler.Recompute)

			// Tasks (flattened activity view)
			taskHandler := handlers.NewTaskHandler(models.GetDB())
			protected.GET("/tasks", taskHandler.List)
		}

		// Admin only routes
		admin := api.Group("")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired(), middleware.AuditLog())
		{
			// Soft-delete recovery
			projectHandler := handlers.NewProjectHandler(models.GetDB())
			admin.DELETE("/projects/:id", projectHandler.Delete)
			admin.GET("/projects/deleted", projectHandler.ListDeleted)
			admin.POST("/projects/:id/restore", projectHandler.Restore)

			siteHandler := handlers.NewSiteHandler(models.GetDB())
			admin.DELETE("/sites/:id", siteHandler.Delete)
			admin.GET("/sites/deleted", siteHandler.ListDeleted)
			admin.POST("/sites/:id/restore", siteHandler.Restore)

			activityHandler := handlers.NewActivityHandler(models.GetDB())
			admin.DELETE("/activities/:id", activityHandler.Delete)
			admin.GET("/activities/deleted", activityHandler.ListDeleted)
			admin.POST("/activities/:id/restore", activityHandler.Restore)

			// Users
			userHandler := handlers.NewUserHandler(models.GetDB())
			admin.GET("/users", userHandler.List)
			admin.POST("/users", userHandler.Create)
			admin.PUT("/users/:id", userHandler.Update)
			admin.DELETE("/users/:id", userHandler.Delete)

			// Audit logs
			auditLogHandler := handlers.NewAuditLogHandler(models.GetDB())
			admin.GET("/audit-logs", auditLogHandler.List)
		}
	}
}
