package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alimgiray/sprintscope/internal/feeds"
	"github.com/alimgiray/sprintscope/internal/handlers"
	"github.com/alimgiray/sprintscope/internal/repositories"
	"github.com/alimgiray/sprintscope/internal/services"
	"github.com/alimgiray/sprintscope/internal/workers"
	"github.com/alimgiray/sprintscope/pkg/config"
	"github.com/alimgiray/sprintscope/pkg/database"
	"github.com/alimgiray/sprintscope/pkg/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	gin.SetMode(cfg.Server.Mode)

	store, err := database.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	if err := store.Migrate(cfg.Database.MigrationsDir); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	// Repositories
	developerRepo := repositories.NewDeveloperRepository(store)
	sprintRepo := repositories.NewSprintRepository(store)
	summaryRepo := repositories.NewActivitySummaryRepository(store)
	velocityRepo := repositories.NewSprintVelocityRepository(store)
	runRepo := repositories.NewRefreshRunRepository(store)

	// Feeds and pipeline services
	issueFeed := feeds.NewJiraFeed(cfg.Jira)
	commitFeed := feeds.NewGitHubFeed(cfg.GitHub)
	backupService := services.NewBackupService(cfg.Backup.Dir, cfg.Backup.Retain)
	refreshService := services.NewRefreshService(store, cfg, issueFeed, commitFeed, backupService, runRepo)
	exportService := services.NewExportService(summaryRepo, developerRepo, sprintRepo, velocityRepo)

	// Background workers and scheduler
	workerManager := workers.NewWorkerManager(runRepo, refreshService)
	workerManager.StartAll()
	defer workerManager.StopAll()

	schedulerService := services.NewSchedulerService(runRepo, cfg.Pipeline.RefreshHour)
	schedulerService.StartScheduler()

	// HTTP read surface
	reportsHandler := handlers.NewReportsHandler(summaryRepo, developerRepo, sprintRepo, velocityRepo, exportService)
	refreshHandler := handlers.NewRefreshHandler(runRepo)

	router := gin.Default()
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		api.GET("/reports/daily/:date", reportsHandler.DailyReport)
		api.GET("/developers", reportsHandler.Developers)
		api.GET("/sprints", reportsHandler.Sprints)
		api.GET("/velocity", reportsHandler.Velocity)
		api.GET("/velocity/:id", reportsHandler.SprintVelocity)
		api.GET("/export", reportsHandler.Export)
		api.POST("/refresh", refreshHandler.Trigger)
		api.GET("/refresh/latest", refreshHandler.Latest)
		api.GET("/refresh/:id", refreshHandler.Status)
	}

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	server.Close()
}
