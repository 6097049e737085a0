package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/cramplan/cramplan-api/api/swagger"
	"github.com/cramplan/cramplan-api/internal/handler"
	"github.com/cramplan/cramplan-api/internal/middleware"
	"github.com/cramplan/cramplan-api/internal/models"
	"github.com/cramplan/cramplan-api/internal/planner"
	"github.com/cramplan/cramplan-api/internal/repository"
	"github.com/cramplan/cramplan-api/internal/service"
	"github.com/cramplan/cramplan-api/pkg/cache"
	"github.com/cramplan/cramplan-api/pkg/config"
	"github.com/cramplan/cramplan-api/pkg/database"
	"github.com/cramplan/cramplan-api/pkg/logger"
	corsmiddleware "github.com/cramplan/cramplan-api/pkg/middleware/cors"
	reqidmiddleware "github.com/cramplan/cramplan-api/pkg/middleware/requestid"
	"github.com/cramplan/cramplan-api/pkg/storage"
)

// @title CramPlan API
// @version 0.1.0
// @description Study plan scheduling service for exam preparation
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, plan cache disabled", "error", err)
		redisClient = nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	examRepo := repository.NewExamRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	blockedRepo := repository.NewBlockedDayRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "cramplan-api",
	})

	plannerSvc := service.NewPlannerService(examRepo, sessionRepo, blockedRepo, cacheRepo, planner.New(logr), cfg.Planner, validate, logr)
	plannerSvc.SetMetrics(metricsSvc)

	examSvc := service.NewExamService(examRepo, sessionRepo, plannerSvc, validate, logr)
	sessionSvc := service.NewSessionService(sessionRepo, examRepo, blockedRepo, plannerSvc, validate, logr)

	var exportSvc *service.ExportService
	if cfg.Exports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		jobRepo := repository.NewPlanJobRepository(db)
		exportSvc = service.NewExportService(jobRepo, sessionRepo, examRepo, store, signer, cfg.Exports, validate, logr)
		exportSvc.SetMetrics(metricsSvc)
		exportSvc.Start(ctx)
		defer exportSvc.Stop()
	}

	authHandler := handler.NewAuthHandler(authSvc)
	examHandler := handler.NewExamHandler(examSvc)
	sessionHandler := handler.NewSessionHandler(sessionSvc)
	plannerHandler := handler.NewPlannerHandler(plannerSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin), metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
	auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)
	auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))

	protected.GET("/exams", examHandler.List)
	protected.POST("/exams", examHandler.Create)
	protected.GET("/exams/:id", examHandler.Get)
	protected.PUT("/exams/:id", examHandler.Update)
	protected.DELETE("/exams/:id", examHandler.Delete)

	protected.GET("/sessions", sessionHandler.List)
	protected.POST("/sessions/:id/complete", sessionHandler.Complete)

	protected.GET("/blocked-days", sessionHandler.ListBlockedDays)
	protected.POST("/blocked-days", sessionHandler.CreateBlockedDay)
	protected.DELETE("/blocked-days/:id", sessionHandler.DeleteBlockedDay)

	protected.POST("/planner/generate", plannerHandler.Generate)
	protected.POST("/planner/apply", plannerHandler.Apply)
	protected.GET("/planner/current", plannerHandler.Current)

	if exportSvc != nil {
		exportHandler := handler.NewExportHandler(exportSvc)
		protected.POST("/exports", exportHandler.Create)
		protected.GET("/exports", exportHandler.List)
		protected.GET("/exports/:id", exportHandler.Get)
		// Download links are pre-signed; the token is the credential.
		api.GET("/exports/download/:token", exportHandler.Download)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
