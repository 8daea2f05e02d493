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
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/radio-schedule-api/internal/handler"
	"github.com/noah-isme/radio-schedule-api/internal/repository"
	"github.com/noah-isme/radio-schedule-api/internal/service"
	"github.com/noah-isme/radio-schedule-api/pkg/cache"
	"github.com/noah-isme/radio-schedule-api/pkg/config"
	"github.com/noah-isme/radio-schedule-api/pkg/database"
	"github.com/noah-isme/radio-schedule-api/pkg/jobs"
	"github.com/noah-isme/radio-schedule-api/pkg/logger"
	"github.com/noah-isme/radio-schedule-api/pkg/middleware/ratelimit"
	"github.com/noah-isme/radio-schedule-api/pkg/notify"
)

// @title Radio Schedule API
// @version 1.0.0
// @description Weekly broadcast schedule, contributors and payments
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		logr.Fatal("failed to migrate database", zap.Error(err))
	}

	metrics := service.NewMetricsService()
	validate := validator.New()

	var cacheSvc *service.CacheService
	if cfg.Scheduler.CacheEnabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, schedule cache disabled", zap.Error(err))
		} else {
			cacheRepo := repository.NewCacheRepository(client, logr)
			defer cacheRepo.Close()
			cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Scheduler.CacheTTL, logr, true)
		}
	}

	var publisher notify.Publisher = notify.NopPublisher{}
	if cfg.MQTT.Enabled {
		mqttPublisher, err := notify.NewMQTTPublisher(cfg.MQTT, logr)
		if err != nil {
			logr.Warn("mqtt unavailable, schedule notifications disabled", zap.Error(err))
		} else {
			defer mqttPublisher.Close()
			publisher = mqttPublisher
		}
	}

	contentRepo := repository.NewContentRepository(db)
	userRepo := repository.NewUserRepository(db)
	contributorRepo := repository.NewContributorRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	scheduleSvc := service.NewScheduleService(contentRepo, contentRepo, cacheSvc, metrics, publisher, validate, logr, service.ScheduleConfig{
		Location:         cfg.Station.Location(),
		MusicTitle:       cfg.Scheduler.MusicTitle,
		MusicGenre:       cfg.Scheduler.MusicGenre,
		AutoFill:         cfg.Scheduler.AutoFill,
		StrictReschedule: cfg.Scheduler.StrictReschedule,
		CacheTTL:         cfg.Scheduler.CacheTTL,
	})
	exportSvc := service.NewScheduleExportService(scheduleSvc, nil, nil, logr)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	contributorSvc := service.NewContributorService(contributorRepo, assignmentRepo, contentRepo, validate, logr)

	paymentCfg, err := paymentConfig(cfg)
	if err != nil {
		logr.Fatal("invalid payment configuration", zap.Error(err))
	}
	paymentSvc := service.NewPaymentService(paymentRepo, assignmentRepo, contributorRepo, metrics, logr, paymentCfg)

	payrollWorker := service.NewPayrollWorker(contributorRepo, paymentSvc, logr)
	payrollQueue := jobs.NewQueue("payroll", payrollWorker.Handle, jobs.QueueConfig{
		Workers:    cfg.Payments.PayrollWorkers,
		MaxRetries: cfg.Payments.PayrollRetries,
		RetryDelay: 5 * time.Second,
		Logger:     logr,
		OnGiveUp: func(job jobs.Job, err error) {
			metrics.RecordPayrollPayment(service.PaymentOutcomeFailed)
			logr.Error("payroll job abandoned", zap.String("job_id", job.ID), zap.Error(err))
		},
	})
	payrollQueue.Start(ctx)
	defer payrollQueue.Stop()
	payrollSvc := service.NewPayrollService(payrollQueue, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := newRouter(cfg, logr, routeDeps{
		auth:         authSvc,
		metrics:      metrics,
		limiter:      ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		authHandler:  handler.NewAuthHandler(authSvc),
		schedule:     handler.NewScheduleHandler(scheduleSvc, exportSvc),
		events:       handler.NewEventHandler(scheduleSvc),
		contributors: handler.NewContributorHandler(contributorSvc),
		payments:     handler.NewPaymentHandler(paymentSvc, payrollSvc),
		system:       handler.NewMetricsHandler(metrics, db, payrollQueue),
		users:        handler.NewUserHandler(service.NewUserService(userRepo, validate, logr), authSvc),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("timezone", cfg.Station.Timezone))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func paymentConfig(cfg *config.Config) (service.PaymentConfig, error) {
	hourly, err := decimal.NewFromString(cfg.Payments.HourlyRate)
	if err != nil {
		return service.PaymentConfig{}, fmt.Errorf("PAYMENT_HOURLY_RATE: %w", err)
	}
	fee, err := decimal.NewFromString(cfg.Payments.EventFee)
	if err != nil {
		return service.PaymentConfig{}, fmt.Errorf("PAYMENT_EVENT_FEE: %w", err)
	}
	vat, err := decimal.NewFromString(cfg.Payments.VATRate)
	if err != nil {
		return service.PaymentConfig{}, fmt.Errorf("PAYMENT_VAT_RATE: %w", err)
	}
	return service.PaymentConfig{
		HourlyRate: hourly,
		EventFee:   fee,
		VATRate:    vat,
		Currency:   cfg.Payments.Currency,
		Location:   cfg.Station.Location(),
	}, nil
}
