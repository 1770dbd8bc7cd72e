package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/ta-presence-api/api/swagger"
	"github.com/noah-isme/ta-presence-api/internal/handler"
	"github.com/noah-isme/ta-presence-api/internal/middleware"
	"github.com/noah-isme/ta-presence-api/internal/repository"
	"github.com/noah-isme/ta-presence-api/internal/service"
	"github.com/noah-isme/ta-presence-api/pkg/cache"
	"github.com/noah-isme/ta-presence-api/pkg/config"
	"github.com/noah-isme/ta-presence-api/pkg/database"
	"github.com/noah-isme/ta-presence-api/pkg/jobs"
	"github.com/noah-isme/ta-presence-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/ta-presence-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/ta-presence-api/pkg/middleware/requestid"
)

// @title Teacher Attendance Presence API
// @version 0.1.0
// @description Attendance status aggregation over biometric scans and leave records
// @BasePath /api/v1
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()

	// Redis is optional: without it the engine recomputes every request.
	var cacheSvc *service.CacheService
	cacheEnabled := cfg.Attendance.CacheEnabled
	if cacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
			cacheEnabled = false
		} else {
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Attendance.CacheTTL, logr, true)
		}
	}
	if cacheSvc == nil {
		cacheSvc = service.NewCacheService(nil, metricsSvc, cfg.Attendance.CacheTTL, logr, false)
	}

	loc, err := time.LoadLocation(cfg.Attendance.Timezone)
	if err != nil {
		logr.Sugar().Warnw("unknown timezone, using local", "tz", cfg.Attendance.Timezone, "error", err)
		loc = time.Local
	}
	clock := func() time.Time { return time.Now().In(loc) }

	attendanceRepo := repository.NewAttendanceRepository(db)
	attendanceSvc := service.NewAttendanceService(service.AttendanceServiceParams{
		Repo:    attendanceRepo,
		Cache:   cacheSvc,
		Metrics: metricsSvc,
		Gauge:   metricsSvc,
		Logger:  logr,
		Clock:   clock,
		Config: service.AttendanceServiceConfig{
			DefaultHistoryDays: cfg.Attendance.DefaultHistoryDays,
			HistoryConcurrency: cfg.Attendance.HistoryConcurrency,
			CacheTTL:           cfg.Attendance.CacheTTL,
		},
	})
	exportSvc := service.NewExportService()

	// Keeps the present-today gauge warm between requests.
	if interval := cfg.Attendance.RefreshInterval; interval > 0 {
		refresher := jobs.NewRefresher("present-gauge", func(ctx context.Context) error {
			_, _, err := attendanceSvc.Summary(ctx, clock())
			return err
		}, jobs.RefresherConfig{Interval: interval, Logger: logr})
		refresher.Start(context.Background())
		defer refresher.Stop()
	}

	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc, exportSvc, clock)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.WithResponseMeta())
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		attendance := api.Group("/attendance")
		{
			attendance.GET("/summary", attendanceHandler.Summary)
			attendance.GET("/history", attendanceHandler.History)
			attendance.GET("/detail", attendanceHandler.Detail)
			attendance.GET("/detail/export", attendanceHandler.ExportDetail)
			attendance.POST("/scans", attendanceHandler.RecordScan)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting",
		"addr", addr, "env", cfg.Env,
		"cache_enabled", cacheEnabled, "timezone", loc.String())
	if err := r.Run(addr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}
