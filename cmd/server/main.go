package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"commerce-api/config"
	"commerce-api/internal/api"
	"commerce-api/internal/broker"
	"commerce-api/internal/mailer"
	"commerce-api/internal/redisclient"
	"commerce-api/internal/service"
	"commerce-api/internal/store"
	"commerce-api/internal/util"
	"commerce-api/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting commerce API")

	tp, err := util.InitTracer("commerce-api", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	inventoryService := service.NewInventoryService(db, redisClient, eventPublisher, cfg.Business.LowStockThreshold)
	productService := service.NewProductService(db)
	orderService := service.NewOrderService(db, inventoryService, eventPublisher, service.PricingConfig{
		TaxRatePercent:    cfg.Business.TaxRatePercent,
		ShippingFlatCents: cfg.Business.ShippingFlatCents,
	}, cfg.Business.OrderNumberPrefix)
	authService := service.NewAuthService(db, redisClient, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	var mail mailer.Mailer
	if cfg.Mail.SMTPAddr != "" {
		mail = mailer.NewSMTPMailer(cfg.Mail.SMTPAddr, cfg.Mail.From)
	} else {
		mail = mailer.NewLogMailer(logger)
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents, cfg.Kafka.ConsumerGroup)
	notificationWorker := worker.NewNotificationWorker(consumer, inventoryService, orderService, mail)
	go func() {
		if err := notificationWorker.Start(workerCtx); err != nil && workerCtx.Err() == nil {
			log.Printf("Notification worker error: %v", err)
		}
	}()

	retentionWorker := worker.NewRetentionWorker(inventoryService, cfg.Business.LogRetention, cfg.Business.AlertRetention)
	go retentionWorker.Start(workerCtx)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(authService, productService, orderService, inventoryService, cfg.Server.Debug)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	notificationWorker.Stop()

	log.Println("Server exited")
}
