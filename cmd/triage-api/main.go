package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/swipeclean/triage-api/api/swagger"
	"github.com/swipeclean/triage-api/internal/handler"
	"github.com/swipeclean/triage-api/internal/middleware"
	"github.com/swipeclean/triage-api/internal/repository"
	"github.com/swipeclean/triage-api/internal/service"
	"github.com/swipeclean/triage-api/pkg/cache"
	"github.com/swipeclean/triage-api/pkg/config"
	"github.com/swipeclean/triage-api/pkg/database"
	"github.com/swipeclean/triage-api/pkg/logger"
	corsmiddleware "github.com/swipeclean/triage-api/pkg/middleware/cors"
	reqidmiddleware "github.com/swipeclean/triage-api/pkg/middleware/requestid"
	"github.com/swipeclean/triage-api/pkg/storage"
)

// @title SwipeClean Triage API
// @version 1.0.0
// @description Photo triage backend: review sessions, decision lists, clustering and reports
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
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect redis", "error", err)
	}

	files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	libraryRepo := repository.NewLibraryRepository(db, metricsSvc)
	userRepo := repository.NewUserRepository(db)
	kvRepo := repository.NewKVRepository(redisClient, logr)
	defer kvRepo.Close()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "triage-api",
	})

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	decisionMgr := service.NewDecisionManager(kvRepo, logr)
	decisionMgr.Start(rootCtx)
	defer decisionMgr.Stop()

	sessionMgr := service.NewSessionManager(decisionMgr, libraryRepo, logr, cfg.Triage.PageSize)
	defer sessionMgr.Close()

	clusterSvc := service.NewClusterService(cfg.Triage.ProximityWindow, cfg.Triage.LowQualityMinPx)
	librarySvc := service.NewLibraryService(libraryRepo, clusterSvc, kvRepo, metricsSvc, logr, cfg.Triage.PageSize, service.LibraryServiceConfig{
		SimilarCacheTTL: cfg.Triage.SimilarCacheTTL,
	})
	purgeSvc := service.NewPurgeService(libraryRepo, logr)

	exportSvc := service.NewExportService(decisionMgr, files, signer, logr, cfg.Exports)
	exportSvc.Start(rootCtx)
	defer exportSvc.Stop()

	authHandler := handler.NewAuthHandler(authSvc)
	sessionHandler := handler.NewSessionHandler(sessionMgr)
	decisionHandler := handler.NewDecisionHandler(decisionMgr, sessionMgr, purgeSvc)
	libraryHandler := handler.NewLibraryHandler(librarySvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db, redisClient)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)

	authed := api.Group("", middleware.JWT(authSvc))

	authed.POST("/session/start", sessionHandler.Start)
	authed.GET("/session", sessionHandler.Snapshot)
	authed.POST("/session/decide", sessionHandler.Decide)
	authed.POST("/session/skip", sessionHandler.Skip)
	authed.POST("/session/undo", sessionHandler.Undo)
	authed.POST("/session/resume", sessionHandler.Resume)

	authed.GET("/decisions", decisionHandler.State)
	authed.GET("/decisions/deleted", decisionHandler.Deleted)
	authed.GET("/decisions/kept", decisionHandler.Kept)
	authed.POST("/decisions/recover", decisionHandler.Recover)
	authed.POST("/decisions/recover-all", decisionHandler.RecoverAll)
	authed.POST("/decisions/purge", decisionHandler.Purge)

	authed.GET("/library/photos", libraryHandler.Photos)
	authed.GET("/library/similar", libraryHandler.Similar)
	authed.GET("/library/low-quality", libraryHandler.LowQuality)

	authed.POST("/exports", exportHandler.Create)
	authed.GET("/exports/:id", exportHandler.Get)

	// Download links carry their own signed token.
	api.GET("/exports/download/:token", exportHandler.Download)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
