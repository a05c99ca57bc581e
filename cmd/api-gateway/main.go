package main

import (
	"context"
	"errors"
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
	"go.uber.org/zap"

	_ "github.com/noah-isme/compliance-links-api/api/swagger"
	"github.com/noah-isme/compliance-links-api/internal/handler"
	"github.com/noah-isme/compliance-links-api/internal/middleware"
	"github.com/noah-isme/compliance-links-api/internal/models"
	"github.com/noah-isme/compliance-links-api/internal/repository"
	"github.com/noah-isme/compliance-links-api/internal/service"
	"github.com/noah-isme/compliance-links-api/pkg/cache"
	"github.com/noah-isme/compliance-links-api/pkg/config"
	"github.com/noah-isme/compliance-links-api/pkg/credential"
	"github.com/noah-isme/compliance-links-api/pkg/database"
	"github.com/noah-isme/compliance-links-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/compliance-links-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/compliance-links-api/pkg/middleware/requestid"
	"github.com/noah-isme/compliance-links-api/pkg/token"
)

// @title Compliance Disclosure Links API
// @version 1.0.0
// @description Password-protected, expiring links that disclose compliance records to external parties.
// @BasePath /api/v1
// @schemes http https
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		res, err := database.Migrate(ctx, db)
		if err != nil {
			logr.Fatal("failed to apply migrations", zap.Error(err))
		}
		logr.Info("migrations applied", zap.Strings("applied", res.Applied), zap.Int("skipped", len(res.Skipped)))
	}

	readiness := map[string]handler.ReadinessCheck{
		"postgres": func(ctx context.Context) error { return database.Ping(ctx, db) },
	}

	var limiter *repository.AttemptLimiter
	redisClient, err := cache.NewRedis(cfg.Redis)
	switch {
	case err != nil:
		logr.Warn("redis unavailable, attempt limiting disabled", zap.Error(err))
	case redisClient != nil:
		defer redisClient.Close()
		limiter = repository.NewAttemptLimiter(redisClient)
		readiness["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	metricsSvc := service.NewMetricsService()
	validate := validator.New()

	shareLinkRepo := repository.NewShareLinkRepository(db)
	resourceRepo := repository.NewResourceRepository(db)

	registry := service.NewResourceRegistry()
	documents := service.NewDocumentFetcher(resourceRepo)
	for _, resourceType := range cfg.Links.ResourceTypes {
		registry.Register(resourceType, documents)
	}

	guard := credential.NewGuard(credential.Params{
		MemoryKiB:     cfg.Argon2.MemoryKiB,
		Iterations:    cfg.Argon2.Iterations,
		Parallelism:   cfg.Argon2.Parallelism,
		MaxConcurrent: cfg.Argon2.MaxConcurrent,
	})

	shareLinkSvc := service.NewShareLinkService(
		shareLinkRepo,
		guard,
		token.NewGenerator(token.DefaultBytes),
		service.NewExpirationCalculator(cfg.Links.MaxLifetime, nil),
		registry,
		limiter,
		validate,
		metricsSvc,
		logr,
		service.ShareLinkConfig{
			BaseURL:         cfg.Links.BaseURL,
			ConcealNotFound: cfg.Links.ConcealNotFound,
			AttemptLimit:    cfg.Links.AttemptLimit,
			AttemptWindow:   cfg.Links.AttemptWindow,
			TokenRetries:    cfg.Links.TokenRetries,
		},
	)
	authSvc := service.NewAuthService(logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		Issuer:            cfg.JWT.Issuer,
		Audience:          cfg.JWT.Audience,
	})

	shareLinkHandler := handler.NewShareLinkHandler(shareLinkSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, readiness)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		logr.Fatal("invalid trusted proxies", zap.Error(err))
	}
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/s/:token", shareLinkHandler.Resolve)

	links := api.Group("/links")
	links.Use(middleware.JWT(authSvc))
	links.GET("", shareLinkHandler.List)
	links.GET("/:token", shareLinkHandler.Get)
	links.GET("/:token/access-logs", shareLinkHandler.AccessLogs)

	issuers := links.Group("")
	issuers.Use(middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleManager))
	issuers.POST("", shareLinkHandler.Create)
	issuers.DELETE("/:token", shareLinkHandler.Revoke)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}
