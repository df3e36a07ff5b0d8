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
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/result-portal-api/api/swagger"
	"github.com/noah-isme/result-portal-api/internal/handler"
	"github.com/noah-isme/result-portal-api/internal/repository"
	"github.com/noah-isme/result-portal-api/internal/service"
	"github.com/noah-isme/result-portal-api/pkg/cache"
	"github.com/noah-isme/result-portal-api/pkg/config"
	"github.com/noah-isme/result-portal-api/pkg/database"
	"github.com/noah-isme/result-portal-api/pkg/jobs"
	"github.com/noah-isme/result-portal-api/pkg/logger"
	"github.com/noah-isme/result-portal-api/pkg/storage"
)

// @title Result Portal API
// @version 1.0.0
// @description Result submission, approval and transcript service
// @BasePath /api/v1
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	metrics := service.NewMetricsService()
	deps := map[string]handler.Pinger{"postgres": db}

	var cacheSvc *service.CacheService
	if cfg.Transcripts.CacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, transcript cache disabled", zap.Error(err))
		} else {
			cacheRepo := repository.NewCacheRepository(client, logr)
			defer cacheRepo.Close() //nolint:errcheck
			cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Transcripts.CacheTTL, logr, true)
			deps["redis"] = handler.PingFunc(func(ctx context.Context) error { return client.Ping(ctx).Err() })
		}
	}

	files, err := storage.NewLocalStorage(cfg.Transcripts.ExportDir)
	if err != nil {
		logr.Fatal("failed to prepare export directory", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Transcripts.SignedURLSecret, cfg.Transcripts.SignedURLTTL)

	validate := validator.New()
	resultRepo := repository.NewResultRepository(db)
	slateRepo := repository.NewApprovedResultRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	periodRepo := repository.NewPeriodRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	transcripts := service.NewTranscriptService(slateRepo, cacheSvc, metrics, cfg.Transcripts.CacheTTL, logr)
	invalidations := jobs.New("transcript-invalidation", transcripts.HandleTask, jobs.Config{
		Workers:    2,
		RetryDelay: time.Second,
		MaxRetries: 5,
		Logger:     logr,
	})
	invalidations.Start(ctx)
	defer invalidations.Stop()
	transcripts.UseRetryQueue(invalidations)

	results := service.NewResultService(resultRepo, courseRepo, courseRepo, auditRepo, validate, logr)
	approvals := service.NewApprovalService(db, resultRepo, service.NewAggregator(slateRepo, logr), auditRepo, metrics,
		service.ApprovalConfig{MaxAttempts: cfg.Results.ApprovalMaxAttempts, RetryDelay: cfg.Results.ApprovalRetryDelay},
		logr,
		service.WithTranscriptInvalidator(transcripts),
	)
	periods := service.NewPeriodService(periodRepo, auditRepo, validate, logr)
	exports := service.NewExportService(transcripts, files, signer, service.ExportConfig{APIPrefix: cfg.APIPrefix}, logr)
	tokens := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer, Expiry: cfg.JWT.Expiration})

	r := newRouter(cfg, logr, metrics, tokens, routeHandlers{
		results:     handler.NewResultHandler(results),
		approvals:   handler.NewApprovalHandler(approvals),
		transcripts: handler.NewTranscriptHandler(transcripts),
		exports:     handler.NewExportHandler(exports),
		periods:     handler.NewPeriodHandler(periods),
		ops:         handler.NewMetricsHandler(metrics, deps),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}
