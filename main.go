package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	apperrors "github.com/ehson1111/chocoberry-bot/common/errors"
	"github.com/ehson1111/chocoberry-bot/common/logger"
	"github.com/ehson1111/chocoberry-bot/common/middleware"
	"github.com/ehson1111/chocoberry-bot/consumer"
	"github.com/ehson1111/chocoberry-bot/controllers"
	"github.com/ehson1111/chocoberry-bot/database"
	"github.com/ehson1111/chocoberry-bot/kafka"
	awspkg "github.com/ehson1111/chocoberry-bot/pkg/aws"
	"github.com/ehson1111/chocoberry-bot/repository"
	"github.com/ehson1111/chocoberry-bot/routes"
	"github.com/ehson1111/chocoberry-bot/sender"
	"github.com/ehson1111/chocoberry-bot/services"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const serviceName = "chocoberry-backend"

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	awsCfg, awsErr := awspkg.LoadAWSConfig(ctx)
	zapLog := initLogger(ctx, cfg, awsErr == nil, awsCfg)
	defer zapLog.Sync() //nolint:errcheck
	if awsErr != nil {
		zapLog.Warn("AWS config unavailable, AWS integrations disabled", zap.Error(awsErr))
	}

	var metrics *awspkg.MetricsClient
	if awsErr == nil {
		metrics = awspkg.NewMetricsClient(awsCfg, cfg.CloudWatchNamespace, cfg.CloudWatchEnabled)
	}

	db, err := database.ConnectPostgres(cfg.Postgres, zapLog)
	if err != nil {
		zapLog.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db) //nolint:errcheck

	redisClient, err := database.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		if cfg.SessionStore == "redis" {
			zapLog.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		zapLog.Warn("Redis unavailable, catalog cache disabled", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	// Repositories
	cartRepo := repository.NewGormCartRepository(db)
	catalogRepo := repository.NewGormCatalogRepository(db)
	cashbackRepo := repository.NewGormCashbackRepository(db)
	userRepo := repository.NewGormUserRepository(db)
	orderRepo := repository.NewGormOrderRepository(db)
	notificationRepo := repository.NewGormNotificationRepository(db)
	checkoutStore := repository.NewGormCheckoutStore(db)
	sessions := newSessionRepository(cfg, redisClient)

	// Notifications
	staffSender, err := newStaffSender(cfg, awsErr == nil, awsCfg, zapLog)
	if err != nil {
		zapLog.Fatal("Failed to configure staff notifications", zap.Error(err))
	}

	var retries services.RetryQueue
	var retryQueue *awspkg.SQSQueue
	if cfg.NotifyRetryQueueURL != "" && awsErr == nil {
		retryQueue = awspkg.NewSQSQueue(awsCfg, cfg.NotifyRetryQueueURL, zapLog)
		retries = retryQueue
	}

	var events services.EventPublisher
	var producer *kafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer, err = kafka.NewProducer(cfg.KafkaBrokers, cfg.OrderEventsTopic)
		if err != nil {
			zapLog.Fatal("Failed to create Kafka producer", zap.Error(err))
		}
		events = producer
	}

	notifier := services.NewOrderNotifier(staffSender, notificationRepo, retries, events, metrics, cfg.NotifyTimeout, zapLog)

	// Services
	locker := services.NewUserLocker()
	cachedCatalog := services.NewCachedCatalog(catalogRepo, redisClient, cfg.CatalogCacheTTL, metrics, zapLog)
	profileService := services.NewProfileService(userRepo, cashbackRepo, zapLog)
	cartService := services.NewCartService(cartRepo, cachedCatalog, cashbackRepo, locker, zapLog)
	ledgerService := services.NewLedgerService(cashbackRepo, locker, zapLog)
	orderService := services.NewOrderService(orderRepo, zapLog)
	checkoutService := services.NewCheckoutService(services.CheckoutDependencies{
		Carts: cartRepo,
		// Snapshots read live prices, not the cache.
		Catalog:  catalogRepo,
		Ledger:   cashbackRepo,
		Profiles: profileService,
		Sessions: sessions,
		Store:    checkoutStore,
		Notifier: notifier,
		Locker:   locker,
		Metrics:  metrics,
		Logger:   zapLog,
	})

	ctrl := routes.Controllers{
		Cart:     controllers.NewCartController(cartService),
		Checkout: controllers.NewCheckoutController(checkoutService, cfg.NotifyWait),
		Cashback: controllers.NewCashbackController(ledgerService),
		Orders:   controllers.NewOrderController(orderService),
		Profile:  controllers.NewProfileController(profileService),
		Actions:  controllers.NewActionController(cartService, checkoutService, ledgerService, cfg.NotifyWait),
	}

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.RequestLogger(zapLog))
	r.Use(middleware.MetricsMiddleware(metrics, serviceName))
	r.Use(apperrors.ErrorMiddleware())

	// 30-second request timeout
	r.Use(func(c *gin.Context) {
		tctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()
		c.Request = c.Request.WithContext(tctx)
		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "service": serviceName})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": serviceName})
	})

	var limiter *middleware.KeyedRateLimiter
	if cfg.RateLimitPerMin > 0 {
		limiter = middleware.NewKeyedRateLimiter(rate.Limit(float64(cfg.RateLimitPerMin)/60), cfg.RateLimitPerMin/4+1, 10*time.Minute)
		go sweepLimiter(ctx, limiter)
	}

	routes.RegisterRoutes(r, ctrl, profileService, limiter)

	if retryQueue != nil {
		go consumer.NewNotificationRetryConsumer(retryQueue, notifier, zapLog).Start(ctx)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("Server failed", zap.Error(err))
		}
	}()

	zapLog.Info("Chocoberry backend started",
		zap.String("port", cfg.Port),
		zap.String("session_store", cfg.SessionStore),
		zap.String("notify_sink", cfg.NotifySink),
	)
	<-quit
	zapLog.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Server forced to shutdown", zap.Error(err))
	}
	stop()

	if err := notifier.Wait(shutdownCtx); err != nil {
		zapLog.Warn("Pending staff notifications abandoned", zap.Error(err))
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			zapLog.Warn("Kafka producer close failed", zap.Error(err))
		}
	}
	zapLog.Info("Server exited cleanly")
}

func initLogger(ctx context.Context, cfg *Config, awsOK bool, awsCfg sdkaws.Config) *zap.Logger {
	if !cfg.CloudWatchEnabled || !awsOK {
		return logger.Initialize(cfg.Env)
	}
	cwl, err := awspkg.NewCloudWatchLogsClient(ctx, awsCfg, cfg.CloudWatchLogGroup, serviceName)
	if err != nil {
		l := logger.Initialize(cfg.Env)
		l.Warn("CloudWatch Logs unavailable, logging to stdout only", zap.Error(err))
		return l
	}
	return logger.InitializeWithWriter(cfg.Env, cwl)
}

func newSessionRepository(cfg *Config, client *redis.Client) repository.SessionRepository {
	if cfg.SessionStore == "redis" && client != nil {
		return repository.NewRedisSessionRepository(client, cfg.SessionTTL)
	}
	return repository.NewMemorySessionRepository()
}

func newStaffSender(cfg *Config, awsOK bool, awsCfg sdkaws.Config, zapLog *zap.Logger) (sender.StaffSender, error) {
	switch cfg.NotifySink {
	case "telegram":
		return sender.NewTelegramSender(cfg.TelegramAPIURL, cfg.TelegramBotToken, cfg.StaffChatID)
	case "sns":
		if !awsOK {
			return nil, errors.New("NOTIFY_SINK=sns requires AWS configuration")
		}
		return sender.NewSNSSender(awspkg.NewSNSClient(awsCfg), cfg.StaffSNSTopicARN)
	}
	return sender.NewLogSender(zapLog), nil
}

func sweepLimiter(ctx context.Context, limiter *middleware.KeyedRateLimiter) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Sweep()
		}
	}
}
