package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/mail"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/clubconnect-api/api/swagger"
	"github.com/noah-isme/clubconnect-api/internal/handler"
	"github.com/noah-isme/clubconnect-api/internal/middleware"
	"github.com/noah-isme/clubconnect-api/internal/repository"
	"github.com/noah-isme/clubconnect-api/internal/service"
	"github.com/noah-isme/clubconnect-api/pkg/cache"
	"github.com/noah-isme/clubconnect-api/pkg/config"
	"github.com/noah-isme/clubconnect-api/pkg/database"
	"github.com/noah-isme/clubconnect-api/pkg/email"
	"github.com/noah-isme/clubconnect-api/pkg/jobs"
	"github.com/noah-isme/clubconnect-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/clubconnect-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/clubconnect-api/pkg/middleware/requestid"
)

// @title ClubConnect API
// @version 1.0.0
// @description Admin backend for scheduling cover teachers across school clubs.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 15 * time.Second

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) PingContext(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

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
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	checks := map[string]handler.Pinger{"postgres": db}

	var redisClient *redis.Client
	if cfg.Calendar.CacheEnabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, calendar cache disabled", zap.Error(err))
			redisClient = nil
		} else {
			checks["redis"] = redisPinger{client: redisClient}
		}
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Calendar.CacheTTL, logr, redisClient != nil)

	userRepo := repository.NewUserRepository(db)
	schoolRepo := repository.NewSchoolRepository(db)
	clubRepo := repository.NewClubRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	broadcastRepo := repository.NewBroadcastRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "clubconnect-api",
	})
	if created, err := authSvc.EnsureAdmin(ctx, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword, cfg.Bootstrap.AdminName); err != nil {
		logr.Fatal("failed to bootstrap admin", zap.Error(err))
	} else if created {
		logr.Info("bootstrap admin ready", zap.String("email", cfg.Bootstrap.AdminEmail))
	}

	schoolSvc := service.NewSchoolService(schoolRepo, cacheSvc, validate, logr)
	clubSvc := service.NewClubService(clubRepo, schoolRepo, cacheSvc, validate, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, cacheSvc, validate, logr)
	coverSvc := service.NewCoverService(service.CoverStores{
		Rules:       repository.NewCoverRuleRepository(db),
		Occurrences: repository.NewCoverOccurrenceRepository(db),
		Assignments: repository.NewCoverAssignmentRepository(db),
		Series:      repository.NewCoverSeriesRepository(db),
		Clubs:       clubRepo,
		Teachers:    teacherRepo,
	}, cacheSvc, validate, logr, cfg.Covers.DefaultOccurrences)
	ruleSvc := service.NewCoverRuleService(coverSvc)
	calendarSvc := service.NewCalendarService(coverSvc, cacheSvc, cfg.Calendar.Location(), cfg.Calendar.CacheTTL, logr)
	exportSvc := service.NewExportService(service.ExportSources{
		Schools:  schoolRepo,
		Clubs:    clubRepo,
		Teachers: teacherRepo,
		Covers:   coverSvc,
	}, nil, logr)

	broadcastSvc := service.NewBroadcastService(service.BroadcastDeps{
		Broadcasts: broadcastRepo,
		Messages:   messageRepo,
		Teachers:   teacherRepo,
		Covers:     coverSvc,
		Sender:     newSender(cfg.Email, logr),
		Metrics:    metricsSvc,
	}, service.BroadcastOptions{
		Concurrency: cfg.Broadcast.Concurrency,
		CoverWindow: cfg.Broadcast.CoverWindow,
		Location:    cfg.Calendar.Location(),
	}, validate, logr)
	if _, err := broadcastSvc.ReleaseStalled(ctx); err != nil {
		logr.Warn("failed to release stalled broadcasts", zap.Error(err))
	}
	broadcastQueue := jobs.NewQueue("broadcasts", broadcastSvc.HandleJob, jobs.QueueConfig{
		Workers:    cfg.Broadcast.Workers,
		MaxRetries: 0,
		Logger:     logr,
	})
	broadcastQueue.Start(ctx)
	defer broadcastQueue.Stop()
	broadcastSvc.SetQueue(broadcastQueue)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r.Group(cfg.APIPrefix), routeHandlers{
		auth:      handler.NewAuthHandler(authSvc),
		schools:   handler.NewSchoolHandler(schoolSvc, clubSvc),
		teachers:  handler.NewTeacherHandler(teacherSvc),
		covers:    handler.NewCoverHandler(coverSvc),
		rules:     handler.NewCoverRuleHandler(ruleSvc),
		calendar:  handler.NewCalendarHandler(calendarSvc),
		broadcast: handler.NewBroadcastHandler(broadcastSvc),
		exports:   handler.NewExportHandler(exportSvc),
		metrics:   metricsHandler,
	}, middleware.JWT(authSvc))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newSender(cfg config.EmailConfig, logr *zap.Logger) email.Sender {
	if cfg.Provider == config.EmailProviderSendGrid && cfg.SendGridAPIKey != "" {
		return email.NewSendGridSender(cfg.SendGridAPIKey, mail.Address{Name: cfg.FromName, Address: cfg.FromAddress})
	}
	if cfg.Provider == config.EmailProviderSendGrid {
		logr.Warn("SENDGRID_API_KEY missing, broadcasts are only logged")
	}
	return email.NewLogSender(logr)
}
