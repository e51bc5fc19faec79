package internal

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"xp-cashout/pkg/cache"
	"xp-cashout/pkg/config"
	"xp-cashout/pkg/database"
	"xp-cashout/pkg/jwt"
	"xp-cashout/pkg/logger"
	"xp-cashout/pkg/middleware"
	"xp-cashout/pkg/queue"
	"xp-cashout/pkg/s3"
	xpHTTP "xp-cashout/services/xp/internal/controller/http"
	"xp-cashout/services/xp/internal/repo/persistent"
	"xp-cashout/services/xp/internal/usecase"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	_ "xp-cashout/services/xp/docs" // Swagger docs
)

const (
	janitorInterval = time.Hour

	// Coarse per-route guard in front of the transactional limits.
	apiRequestsPerMinute = 300
)

type App struct {
	cfg         *config.Config
	log         *logger.Logger
	db          *gorm.DB
	redisClient *redis.Client
	s3Client    *s3.Client
	jwtService  *jwt.Service
	queueClient *queue.Client
	httpServer  *http.Server
	stopJanitor context.CancelFunc
}

func NewApp(cfg *config.Config) (*App, error) {
	log := logger.New()

	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Error("Failed to connect to database: %v", err)
		return nil, err
	}

	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Error("Failed to connect to redis: %v (continuing without cache)", err)
		redisClient = nil
	}

	s3Client, err := s3.NewClient(cfg)
	if err != nil {
		log.Error("Failed to create S3 client: %v (payout export disabled)", err)
		s3Client = nil
	}

	queueClient, err := queue.NewRabbitMQClient(cfg, log)
	if err != nil {
		log.Error("Failed to connect to RabbitMQ: %v (continuing without queue)", err)
		queueClient = nil
	}

	return &App{
		cfg:         cfg,
		log:         log,
		db:          db,
		redisClient: redisClient,
		s3Client:    s3Client,
		jwtService:  jwt.NewService(cfg.JWTSecret),
		queueClient: queueClient,
	}, nil
}

func (a *App) Run() error {
	policy, err := usecase.NewPolicy(a.cfg)
	if err != nil {
		return err
	}

	store := persistent.NewStore(a.db)

	// Typed nil pointers must not leak into the interfaces.
	var notifier usecase.Notifier
	if a.queueClient != nil {
		notifier = a.queueClient
	}
	var uploader usecase.ObjectUploader
	if a.s3Client != nil {
		uploader = a.s3Client
	}

	creditUseCase := usecase.NewCreditUseCase(store, policy, a.log)
	withdrawalUseCase := usecase.NewWithdrawalUseCase(store, policy, notifier, a.log)
	referralUseCase := usecase.NewReferralUseCase(store, policy, a.log)
	accountUseCase := usecase.NewAccountUseCase(store, a.log)
	conversionUseCase := usecase.NewConversionUseCase(store, policy, a.redisClient, a.log)
	adminUseCase := usecase.NewAdminUseCase(store, uploader, a.log)

	xpHandler := xpHTTP.NewXPHandler(creditUseCase)
	withdrawalHandler := xpHTTP.NewWithdrawalHandler(withdrawalUseCase)
	referralHandler := xpHTTP.NewReferralHandler(referralUseCase)
	accountHandler := xpHTTP.NewAccountHandler(accountUseCase, conversionUseCase)
	adminHandler := xpHTTP.NewAdminHandler(adminUseCase, referralUseCase)

	gin.SetMode(gin.ReleaseMode)
	r, err := newRouter(a.cfg.TrustedProxies)
	if err != nil {
		return err
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{a.cfg.SiteURL},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.IdempotencyHeader},
		ExposeHeaders:    []string{"Content-Length", "Retry-After", "Idempotent-Replayed"},
		AllowCredentials: true,
	}))

	r.GET("/health", accountHandler.Health)
	r.GET("/version", accountHandler.VersionInfo)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/v1")
	api.Use(middleware.RateLimitMiddleware(a.redisClient, apiRequestsPerMinute, time.Minute))
	{
		api.GET("/conversion/rate", accountHandler.ConversionRate)
		api.GET("/referrals/validate", referralHandler.Validate)

		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(a.jwtService))
		{
			protected.GET("/me", accountHandler.Me)

			protected.POST("/xp/credit", middleware.RequireIdempotencyKey(), xpHandler.Credit)
			protected.GET("/xp/history", xpHandler.History)

			protected.POST("/withdrawals", middleware.RequireIdempotencyKey(), withdrawalHandler.Create)
			protected.GET("/withdrawals", withdrawalHandler.List)

			protected.GET("/referrals", referralHandler.Overview)
			protected.POST("/referrals/signup", referralHandler.Signup)
		}

		admin := protected.Group("/admin")
		admin.Use(middleware.RequireRole(middleware.RoleAdmin))
		{
			admin.POST("/withdrawals/export", adminHandler.Export)
			admin.POST("/withdrawals/:id/mark-paid", adminHandler.MarkPaid)
			admin.POST("/withdrawals/:id/reject", adminHandler.Reject)
			admin.POST("/referrals/:id/qualify", adminHandler.Qualify)
			admin.POST("/referrals/:id/reward", adminHandler.Reward)
		}
	}

	janitorCtx, cancel := context.WithCancel(context.Background())
	a.stopJanitor = cancel
	go usecase.NewJanitor(store, janitorInterval, a.log).Run(janitorCtx)

	a.httpServer = &http.Server{
		Addr:              ":" + a.cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		a.log.Info("XP service starting on port %s", a.cfg.ServerPort)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.Error("Failed to start server: %v", err)
			panic(err)
		}
	}()

	return nil
}

func (a *App) Wait() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	a.log.Info("Shutting down xp service...")
}

func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if a.stopJanitor != nil {
		a.stopJanitor()
	}

	var shutdownErr error
	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(ctx); err != nil {
			a.log.Error("Server forced to shutdown: %v", err)
			shutdownErr = err
		}
	}

	if a.queueClient != nil {
		if err := a.queueClient.Close(); err != nil {
			a.log.Error("Error closing RabbitMQ: %v", err)
		}
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Error("Error closing Redis: %v", err)
		}
	}

	sqlDB, err := a.db.DB()
	if err == nil {
		if err := sqlDB.Close(); err != nil {
			a.log.Error("Error closing database: %v", err)
		}
	}

	a.log.Info("XP service exited")
	return shutdownErr
}

// newRouter builds the engine. Only listed proxies may set X-Forwarded-For;
// with none, ClientIP is the socket peer.
func newRouter(trustedProxies []string) (*gin.Engine, error) {
	r := gin.Default()
	if err := r.SetTrustedProxies(trustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}
	return r, nil
}
