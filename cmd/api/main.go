package main

import (
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/timecard-io/timecard-api/api/swagger"
	"github.com/timecard-io/timecard-api/internal/handler"
	"github.com/timecard-io/timecard-api/internal/middleware"
	"github.com/timecard-io/timecard-api/internal/models"
	"github.com/timecard-io/timecard-api/internal/repository"
	"github.com/timecard-io/timecard-api/internal/service"
	"github.com/timecard-io/timecard-api/pkg/cache"
	"github.com/timecard-io/timecard-api/pkg/config"
	"github.com/timecard-io/timecard-api/pkg/database"
	"github.com/timecard-io/timecard-api/pkg/export"
	"github.com/timecard-io/timecard-api/pkg/logger"
	corsmiddleware "github.com/timecard-io/timecard-api/pkg/middleware/cors"
	reqidmiddleware "github.com/timecard-io/timecard-api/pkg/middleware/requestid"
)

// @title Timecard API
// @version 1.0.0
// @description Attendance and timesheet management service
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	loc, err := time.LoadLocation(cfg.Timecard.Timezone)
	if err != nil {
		logr.Sugar().Fatalw("invalid timezone", "timezone", cfg.Timecard.Timezone, "error", err)
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, list caching disabled", "error", err)
		redisClient = nil
	}

	userRepo := repository.NewUserRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	correctionRepo := repository.NewCorrectionRepository(db)

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	attendanceRepo.Instrument(metricsSvc)

	cacheEnabled := cfg.Timecard.CacheEnabled && redisClient != nil
	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Timecard.ListCacheTTL, logr, cacheEnabled)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:        cfg.JWT.Secret,
		Expiry:        cfg.JWT.Expiration,
		RefreshExpiry: cfg.JWT.RefreshExpiration,
		Issuer:        "timecard-api",
	})
	policy := service.NewAccessPolicy()
	attendanceSvc := service.NewAttendanceService(attendanceRepo, userRepo, correctionRepo, policy, cacheSvc, loc, validate, logr)
	correctionSvc := service.NewCorrectionService(correctionRepo, attendanceRepo, userRepo, policy, cacheSvc, loc, validate, logr)
	stampSvc := service.NewStampService(attendanceRepo, cacheSvc, metricsSvc, loc, logr)
	exportSvc := service.NewExportService(attendanceSvc, export.NewCSVExporter(), export.NewPDFExporter(), cfg.Export.PDFEnabled, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	attendanceHandler := handler.NewAttendanceHandler(stampSvc, attendanceSvc)
	correctionHandler := handler.NewCorrectionHandler(correctionSvc)
	adminHandler := handler.NewAdminHandler(attendanceSvc, exportSvc)
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
	r.GET("/ready", metricsHandler.Ready)
	if cfg.Metrics.Enabled {
		r.GET("/metrics", metricsHandler.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc), middleware.CurrentUser(userRepo))

	protected.GET("/attendance", attendanceHandler.ListMonth)
	protected.GET("/attendance/today", attendanceHandler.Today)
	protected.POST("/attendance/stamps", attendanceHandler.Stamp)
	protected.GET("/attendance/:id", attendanceHandler.Detail)
	protected.POST("/attendance/:id/corrections", correctionHandler.Submit)

	protected.GET("/corrections", correctionHandler.List)
	protected.GET("/corrections/:id", correctionHandler.Detail)
	protected.POST("/corrections/:id/approve", correctionHandler.Approve)

	admin := protected.Group("/admin")
	admin.Use(middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/attendance", adminHandler.Daily)
	admin.PUT("/attendance/:id", adminHandler.UpdateAttendance)
	admin.GET("/staff", adminHandler.Staff)
	admin.GET("/staff/:id/attendance", adminHandler.StaffMonthly)
	admin.GET("/staff/:id/attendance/export", adminHandler.Export)
	admin.GET("/metrics", metricsHandler.System)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
