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

	_ "github.com/thi-tutors/tutor-api/api/swagger"
	"github.com/thi-tutors/tutor-api/internal/handler"
	"github.com/thi-tutors/tutor-api/internal/middleware"
	"github.com/thi-tutors/tutor-api/internal/models"
	"github.com/thi-tutors/tutor-api/internal/repository"
	"github.com/thi-tutors/tutor-api/internal/service"
	"github.com/thi-tutors/tutor-api/pkg/cache"
	"github.com/thi-tutors/tutor-api/pkg/config"
	"github.com/thi-tutors/tutor-api/pkg/database"
	"github.com/thi-tutors/tutor-api/pkg/jobs"
	"github.com/thi-tutors/tutor-api/pkg/logger"
	corsmiddleware "github.com/thi-tutors/tutor-api/pkg/middleware/cors"
	reqidmiddleware "github.com/thi-tutors/tutor-api/pkg/middleware/requestid"
	"github.com/thi-tutors/tutor-api/pkg/storage"
)

// @title THI Tutors API
// @version 0.1.0
// @description Campus tutoring marketplace backend
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(context.Background(), cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(context.Background(), cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Directory.CacheTTL, logr, redisClient != nil)

	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	directoryRepo := repository.NewDirectoryRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	bidRepo := repository.NewBidRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	reportRepo := repository.NewReportRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:   cfg.JWT.Secret,
		AccessTokenExpiry:   cfg.JWT.Expiration,
		RefreshTokenExpiry:  cfg.JWT.RefreshExpiration,
		Issuer:              cfg.JWT.Issuer,
		SingleSession:       cfg.JWT.SingleSession,
		AllowedEmailDomains: cfg.Registration.AllowedEmailDomains,
	})
	roleSvc := service.NewRoleService(profileRepo, directoryRepo, cacheSvc, logr)
	sessions := service.NewRoleSessions()
	profileSvc := service.NewProfileService(profileRepo, directoryRepo, cacheSvc, validate, logr)
	directorySvc := service.NewDirectoryService(directoryRepo, cacheSvc, logr, cfg.Directory.CacheTTL)
	availabilitySvc := service.NewAvailabilityService(availabilityRepo, directoryRepo, cacheSvc, validate, logr, cfg.Availability.FallbackDays, cfg.Availability.CacheTTL)
	requestSvc := service.NewRequestService(requestRepo, validate, logr)
	bidSvc := service.NewBidService(bidRepo, requestRepo, profileRepo, validate, logr)
	bookingSvc := service.NewBookingService(bookingRepo, availabilityRepo, cacheSvc, logr)
	reportSvc := service.NewReportService(reportRepo, validate, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var exportSvc *service.ExportService
	var exportQueue *jobs.Queue
	if cfg.Exports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportJobRepo := repository.NewExportJobRepository(db)
		exportSvc = service.NewExportService(exportJobRepo, bookingRepo, reportRepo, store, signer, validate, logr, cfg.Exports.SignedURLTTL)

		exportQueue = jobs.NewQueue("exports", exportSvc.ProcessJob, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			Logger:     logr,
		})
		exportSvc.SetQueue(exportQueue)
		exportQueue.Start(ctx)
		defer exportQueue.Stop()

		exportSvc.RecoverQueued(ctx)
		go func() {
			ticker := time.NewTicker(cfg.Exports.CleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					exportSvc.CleanupExpired(ctx)
				}
			}
		}()
	}

	authHandler := handler.NewAuthHandler(authSvc, sessions)
	profileHandler := handler.NewProfileHandler(profileSvc, roleSvc, sessions)
	directoryHandler := handler.NewDirectoryHandler(directorySvc)
	availabilityHandler := handler.NewAvailabilityHandler(availabilitySvc)
	requestHandler := handler.NewRequestHandler(requestSvc)
	bidHandler := handler.NewBidHandler(bidSvc)
	bookingHandler := handler.NewBookingHandler(bookingSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

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

	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
	auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)

	profile := api.Group("/profile", middleware.JWT(authSvc))
	profile.GET("", profileHandler.Get)
	profile.PUT("", profileHandler.Update)
	profile.POST("/role", profileHandler.SwitchRole)

	api.GET("/tutors", middleware.OptionalJWT(authSvc), directoryHandler.List)

	availability := api.Group("/availability")
	availability.GET("", middleware.OptionalJWT(authSvc), availabilityHandler.ListPublic)
	availability.GET("/mine", middleware.JWT(authSvc), availabilityHandler.ListOwn)
	availability.POST("", middleware.JWT(authSvc), availabilityHandler.Create)
	availability.DELETE("/:id", middleware.JWT(authSvc), availabilityHandler.Delete)

	requests := api.Group("/requests")
	requests.GET("", middleware.OptionalJWT(authSvc), requestHandler.List)
	requests.GET("/:id", middleware.OptionalJWT(authSvc), requestHandler.Get)
	requests.POST("", middleware.JWT(authSvc), requestHandler.Create)
	requests.POST("/:id/replies", middleware.JWT(authSvc), requestHandler.Reply)
	requests.POST("/:id/close", middleware.JWT(authSvc), requestHandler.Close)
	requests.GET("/:id/bids", middleware.JWT(authSvc), bidHandler.ListForRequest)
	requests.POST("/:id/bids", middleware.JWT(authSvc), bidHandler.Place)

	bids := api.Group("/bids", middleware.JWT(authSvc))
	bids.POST("/:id/accept", bidHandler.Accept)
	bids.DELETE("/:id", bidHandler.Withdraw)

	bookings := api.Group("/bookings", middleware.JWT(authSvc))
	bookings.GET("", bookingHandler.ListMine)
	bookings.POST("", bookingHandler.Book)
	bookings.DELETE("/:id", bookingHandler.Cancel)

	reports := api.Group("/reports")
	reports.POST("", middleware.JWT(authSvc), reportHandler.File)
	reports.GET("", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleModerator, models.RoleAdmin), reportHandler.List)
	reports.POST("/:id/resolve", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleModerator, models.RoleAdmin), reportHandler.Resolve)

	if exportSvc != nil {
		exportHandler := handler.NewExportHandler(exportSvc)
		exports := api.Group("/exports")
		exports.GET("/download", exportHandler.Download)
		exports.POST("", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleModerator, models.RoleAdmin), exportHandler.Create)
		exports.GET("/:id", middleware.JWT(authSvc), exportHandler.Status)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
