package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/openedu/filezone-api/api/swagger"
	"github.com/openedu/filezone-api/internal/handler"
	"github.com/openedu/filezone-api/internal/middleware"
	"github.com/openedu/filezone-api/internal/models"
	"github.com/openedu/filezone-api/internal/repository"
	"github.com/openedu/filezone-api/internal/service"
	"github.com/openedu/filezone-api/pkg/cache"
	"github.com/openedu/filezone-api/pkg/config"
	"github.com/openedu/filezone-api/pkg/database"
	"github.com/openedu/filezone-api/pkg/logger"
	corsmiddleware "github.com/openedu/filezone-api/pkg/middleware/cors"
	reqidmiddleware "github.com/openedu/filezone-api/pkg/middleware/requestid"
	"github.com/openedu/filezone-api/pkg/storage"
)

// @title FileZone API
// @version 1.0.0
// @description Zone-scoped file metadata store for the campus platform
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, roll-up cache disabled", "error", err)
		redisClient = nil
	}

	reportStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare report storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)

	entryRepo := repository.NewEntryRepository(db)
	viewRepo := repository.NewViewCounterRepository(db)
	expandedRepo := repository.NewExpandedFolderRepository(db)
	clipboardRepo := repository.NewClipboardRepository(db)
	visitRepo := repository.NewLastVisitRepository(db)
	sizeRepo := repository.NewSizeRepository(db)
	hierarchyRepo := repository.NewHierarchyRepository(db)
	searchRepo := repository.NewSearchRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	sizeSvc := service.NewSizeService(entryRepo, sizeRepo, cacheRepo, reportStore, signer, service.SizeConfig{
		CacheTTL:          cfg.RollUp.CacheTTL,
		WorkerConcurrency: cfg.RollUp.WorkerConcurrency,
		QueueSize:         cfg.RollUp.QueueSize,
	}, logr).WithMetrics(metricsSvc)
	pathSvc := service.NewPathIndexService(entryRepo, expandedRepo, clipboardRepo, sizeSvc, logr)
	viewStateSvc := service.NewViewStateService(viewRepo, expandedRepo, clipboardRepo, visitRepo, logr)
	lifecycleSvc := service.NewLifecycleService(entryRepo, expandedRepo, clipboardRepo, visitRepo, sizeRepo, hierarchyRepo, service.LifecycleConfig{
		MaxRetries: cfg.Lifecycle.MaxRetries,
		RetryDelay: cfg.Lifecycle.RetryDelay,
	}, logr).WithMetrics(metricsSvc)
	searchSvc := service.NewSearchService(searchRepo, logr)
	sweepSvc := service.NewSweepService(expandedRepo, clipboardRepo, service.SweepConfig{
		ExpandedRetention:  cfg.Zones.ExpandedRetention,
		ClipboardRetention: cfg.Zones.ClipboardRetention,
		Interval:           cfg.Zones.SweepInterval,
	}, logr).WithMetrics(metricsSvc)
	tokenSvc := service.NewTokenService(cfg.JWT.Secret)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sizeSvc.Start(ctx)
	defer sizeSvc.Stop()
	sweepSvc.Start(ctx)
	defer sweepSvc.Stop()

	entryHandler := handler.NewEntryHandler(pathSvc)
	viewStateHandler := handler.NewViewStateHandler(viewStateSvc)
	lifecycleHandler := handler.NewLifecycleHandler(lifecycleSvc)
	sizeHandler := handler.NewSizeHandler(sizeSvc)
	searchHandler := handler.NewSearchHandler(searchSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("zonekind", func(fl validator.FieldLevel) bool {
			return models.ZoneKind(fl.Field().Int()).Known()
		})
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	// Public reads, anonymous allowed. Claims attach when present so view
	// counts land in the right bucket.
	public := api.Group("")
	public.Use(middleware.OptionalJWT(tokenSvc))
	{
		public.GET("/entries/resolve", entryHandler.Resolve)
		public.GET("/entries/:id", entryHandler.Get)
		public.GET("/entries/hidden-check", entryHandler.CheckHidden)
		public.GET("/entries/public-check", entryHandler.CheckPublicDescendant)
		public.GET("/entries/licenses", entryHandler.LicenseCounts)
		public.GET("/publishers/:id/count", entryHandler.PublisherCount)
		public.POST("/views", viewStateHandler.RecordView)
		public.GET("/views/:id", viewStateHandler.ViewTotals)
		public.GET("/search/public", searchHandler.Public)
		public.GET("/sizes/rollup", sizeHandler.RollUp)
		public.GET("/sizes/reports/download", sizeHandler.DownloadReport)
	}

	// Authenticated user state and writes.
	authed := api.Group("")
	authed.Use(middleware.JWT(tokenSvc))
	{
		authed.POST("/entries", entryHandler.Add)
		authed.POST("/entries/rename", entryHandler.Rename)
		authed.POST("/entries/remove", entryHandler.Remove)
		authed.PUT("/entries/:id/visibility", entryHandler.SetVisibility)
		authed.PUT("/entries/hidden", entryHandler.SetHidden)
		authed.POST("/folders/expand", viewStateHandler.Expand)
		authed.POST("/folders/contract", viewStateHandler.Contract)
		authed.GET("/folders/expanded", viewStateHandler.IsExpanded)
		authed.PUT("/clipboard", viewStateHandler.SetClipboard)
		authed.GET("/clipboard", viewStateHandler.GetClipboard)
		authed.DELETE("/clipboard", viewStateHandler.ClearClipboard)
		authed.POST("/visits", viewStateHandler.TouchVisit)
		authed.GET("/visits", viewStateHandler.LastVisit)
		authed.GET("/search/mine", searchHandler.Owned)
		authed.GET("/sizes/snapshot", sizeHandler.Snapshot)
		authed.POST("/sizes/reports", sizeHandler.ExportReport)
		authed.GET("/admin/metrics", metricsHandler.Snapshot)
	}

	// Machine-to-machine lifecycle endpoints, guarded by the shared key.
	internal := api.Group("")
	internal.Use(middleware.ServiceKey(cfg.Service.KeyHash))
	{
		internal.POST("/lifecycle/purge-owner", lifecycleHandler.PurgeOwner)
		internal.POST("/lifecycle/purge-user", lifecycleHandler.PurgeUser)
		internal.GET("/lifecycle/verify-empty", lifecycleHandler.VerifyEmpty)
		internal.POST("/sizes/recompute", sizeHandler.Recompute)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
