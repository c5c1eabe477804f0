package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/plantbazaar/backend/config"
	"github.com/plantbazaar/backend/controllers"
	"github.com/plantbazaar/backend/database"
	"github.com/plantbazaar/backend/kafka"
	"github.com/plantbazaar/backend/logger"
	aws_pkg "github.com/plantbazaar/backend/pkg/aws"
	"github.com/plantbazaar/backend/repository"
	"github.com/plantbazaar/backend/routes"
	"github.com/plantbazaar/backend/services"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger.Initialize(cfg.Env)
	defer logger.Log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mongo, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Log.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer mongo.Close(context.Background())

	redisClient, err := database.NewRedisClient(cfg.RedisURL)
	if err != nil {
		logger.Log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	orderRepo := repository.NewMongoOrderRepository(mongo.DB)
	if err := orderRepo.EnsureIndexes(ctx); err != nil {
		logger.Log.Fatal("Failed to create order indexes", zap.Error(err))
	}
	productRepo := repository.NewMongoProductRepository(mongo.DB)
	cartRepo := repository.NewRedisCartRepository(redisClient, cfg.CartTTL)
	notificationRepo := repository.NewMongoNotificationRepository(mongo.DB)

	var producer kafka.ProducerAPI
	if len(cfg.KafkaBrokers) > 0 {
		kp := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		producer = kp
	}

	var snsClient aws_pkg.SNSPublisher
	if cfg.SNSTopicARN != "" {
		awsCfg, err := aws_pkg.LoadAWSConfig(ctx)
		if err != nil {
			logger.Log.Fatal("Failed to load AWS config", zap.Error(err))
		}
		snsClient = aws_pkg.NewSNSClient(awsCfg)
	}
	events := services.NewEventPublisher(producer, snsClient, cfg.SNSTopicARN)

	var push services.PushSender
	if cfg.PushWebhookURL != "" {
		push = services.NewWebhookPushSender(cfg.PushWebhookURL)
	}
	notifier := services.NewNotificationService(notificationRepo, push)

	carrier := services.NewCarrierClient(cfg.CarrierBaseURL, cfg.CarrierEmail, cfg.CarrierPassword, cfg.CarrierTimeout, cfg.CarrierTokenTTL)

	checkoutService := services.NewCheckoutService(orderRepo, productRepo, cartRepo, notifier, events)
	orderService := services.NewOrderService(orderRepo, productRepo, notifier, events, cfg.PublicBaseURL)
	cartService := services.NewCartService(cartRepo)
	trackingService := services.NewTrackingService(orderRepo, carrier, notifier, events, cfg.CarrierTimeout)

	go trackingService.RunReconciliation(ctx, cfg.ReconcileInterval)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), logger.RequestLogger())

	routes.Register(router,
		controllers.NewOrderController(checkoutService, orderService),
		controllers.NewCartController(cartService),
		controllers.NewTrackingController(trackingService),
		controllers.NewNotificationController(notifier, notificationRepo),
	)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Log.Info("Server listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Log.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Shutdown error", zap.Error(err))
		os.Exit(1)
	}
	logger.Log.Info("Server shutdown complete")
}
