package internal

import (
	"context"
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
	notificationHTTP "xp-cashout/services/notification/internal/controller/http"
	"xp-cashout/services/notification/internal/mailer"
	"xp-cashout/services/notification/internal/repo/inbox"
	"xp-cashout/services/notification/internal/repo/persistent"
	"xp-cashout/services/notification/internal/usecase"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type App struct {
	cfg         *config.Config
	log         *logger.Logger
	db          *gorm.DB
	redisClient *redis.Client
	queueClient *queue.Client
	jwtService  *jwt.Service
	httpServer  *http.Server
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
		log.Error("Failed to connect to redis: %v", err)
		return nil, err
	}

	queueClient, err := queue.NewRabbitMQClient(cfg, log)
	if err != nil {
		log.Error("Failed to connect to RabbitMQ: %v", err)
		return nil, err
	}

	return &App{
		cfg:         cfg,
		log:         log,
		db:          db,
		redisClient: redisClient,
		queueClient: queueClient,
		jwtService:  jwt.NewService(cfg.JWTSecret),
	}, nil
}

func (a *App) Run() error {
	var m mailer.Mailer
	if smtpMailer := mailer.NewSMTPMailer(a.cfg); smtpMailer != nil {
		m = smtpMailer
	} else {
		a.log.Warn("SMTP_HOST not set, withdrawal confirmations are in-app only")
	}

	notificationUseCase := usecase.NewNotificationUseCase(
		persistent.NewContactRepository(a.db),
		inbox.NewRedisInbox(a.redisClient),
		m,
		a.log,
	)
	notificationHandler := notificationHTTP.NewNotificationHandler(notificationUseCase, a.log)

	a.log.Info("Starting notification queue processor...")
	if err := a.queueClient.ConsumeNotificationTasks(notificationUseCase.HandleTask); err != nil {
		a.log.Error("Error starting notification queue consumer: %v", err)
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{a.cfg.SiteURL},
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		pending, err := a.queueClient.GetQueueLength()
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "queue": "down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "pending_tasks": pending})
	})

	api := r.Group("/api/v1")
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(a.jwtService))
	{
		protected.GET("/notifications", notificationHandler.GetNotifications)
	}

	a.httpServer = &http.Server{
		Addr:              ":" + a.cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		a.log.Info("Notification service starting on port %s", a.cfg.ServerPort)
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
	a.log.Info("Shutting down notification service...")
}

func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var shutdownErr error
	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(ctx); err != nil {
			a.log.Error("Server forced to shutdown: %v", err)
			shutdownErr = err
		}
	}

	if err := a.queueClient.Close(); err != nil {
		a.log.Error("Error closing RabbitMQ: %v", err)
	}

	if err := a.redisClient.Close(); err != nil {
		a.log.Error("Error closing Redis: %v", err)
	}

	if sqlDB, err := a.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			a.log.Error("Error closing database: %v", err)
		}
	}

	a.log.Info("Notification service exited")
	return shutdownErr
}
