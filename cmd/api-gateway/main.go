package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/tripwatch/tripwatch-api/api/swagger"
	"github.com/tripwatch/tripwatch-api/internal/handler"
	"github.com/tripwatch/tripwatch-api/internal/middleware"
	"github.com/tripwatch/tripwatch-api/internal/repository"
	"github.com/tripwatch/tripwatch-api/internal/service"
	"github.com/tripwatch/tripwatch-api/pkg/cache"
	"github.com/tripwatch/tripwatch-api/pkg/config"
	"github.com/tripwatch/tripwatch-api/pkg/database"
	"github.com/tripwatch/tripwatch-api/pkg/logger"
	corsmiddleware "github.com/tripwatch/tripwatch-api/pkg/middleware/cors"
	reqidmiddleware "github.com/tripwatch/tripwatch-api/pkg/middleware/requestid"
	"github.com/tripwatch/tripwatch-api/pkg/render"
	"github.com/tripwatch/tripwatch-api/pkg/storage"
)

// @title TripWatch API
// @version 0.1.0
// @description Field technician trip analytics: spreadsheet ingestion, duplicate detection, distance computation and activity reports
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Analytics.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		} else {
			cacheSvc = service.NewCacheService(repository.NewCacheRepository(redisClient), metricsSvc, cfg.Analytics.CacheTTL, logr, true)
		}
	}

	uploadStore, err := storage.NewLocalStorage(cfg.Ingest.UploadDir)
	if err != nil {
		logr.Sugar().Fatalw("upload storage init failed", "error", err)
	}
	reportStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("report storage init failed", "error", err)
	}

	batchRepo := repository.NewBatchRepository(db)
	technicianRepo := repository.NewTechnicianRepository(db)
	tripRepo := repository.NewTripRepository(db)
	distanceRepo := repository.NewDistanceRepository(db)
	reportRepo := repository.NewReportRepository(db)

	dedupSvc := service.NewDedupService(tripRepo, technicianRepo, cacheSvc, metricsSvc, logr)
	ingestSvc := service.NewIngestService(batchRepo, technicianRepo, tripRepo, uploadStore, dedupSvc, cacheSvc, metricsSvc, logr)
	distanceSvc := service.NewDistanceService(tripRepo, technicianRepo, distanceRepo, metricsSvc, logr)
	analyticsSvc := service.NewAnalyticsService(tripRepo, technicianRepo, cacheSvc, logr)

	renderChain := render.NewChain(logr,
		render.NewWkhtmltopdfBackend(cfg.Reports.WkhtmltopdfPath),
		render.NewGofpdfBackend(),
	).WithTimeout(cfg.Reports.RenderTimeout)
	reportSvc := service.NewReportService(tripRepo, technicianRepo, distanceRepo, reportRepo, reportStore, renderChain, metricsSvc, logr)

	batchHandler := handler.NewBatchHandler(ingestSvc, cfg.Ingest.MaxFileSizeBytes)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsSvc, dedupSvc)
	distanceHandler := handler.NewDistanceHandler(distanceSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		batches := api.Group("/batches")
		{
			batches.POST("", batchHandler.Upload)
			batches.GET("", batchHandler.List)
			batches.GET("/:id", batchHandler.Overview)
			batches.DELETE("/:id", batchHandler.Delete)
			batches.GET("/:id/technicians", batchHandler.Technicians)

			batches.POST("/:id/deduplicate", analyticsHandler.Deduplicate)
			batches.GET("/:id/duplicates", analyticsHandler.Duplicates)
			batches.GET("/:id/trip-types", analyticsHandler.TripTypes)
			batches.GET("/:id/punch-hours", analyticsHandler.PunchHours)
			batches.GET("/:id/punch-pairs", analyticsHandler.PunchPairs)

			batches.POST("/:id/distances", distanceHandler.Compute)
			batches.GET("/:id/distances", distanceHandler.Summary)
			batches.GET("/:id/distances/export", distanceHandler.Export)
		}

		technicians := api.Group("/technicians")
		{
			technicians.GET("/:id/summary", analyticsHandler.TechnicianSummary)
			technicians.GET("/:id/punch-log", analyticsHandler.PunchLog)
			technicians.GET("/:id/timeline", analyticsHandler.Timeline)
			technicians.GET("/:id/locations", distanceHandler.Locations)
			technicians.GET("/:id/distance", distanceHandler.TechnicianDistance)
			technicians.POST("/:id/reports", reportHandler.Generate)
		}

		reports := api.Group("/reports")
		{
			reports.GET("", reportHandler.List)
			reports.GET("/:id/download", reportHandler.Download)
			reports.DELETE("/:id", reportHandler.Delete)
		}

		api.GET("/system/stats", metricsHandler.Snapshot)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
