package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"tern/internal/api"
	"tern/internal/config"
	"tern/internal/db"
	"tern/internal/handlers"
	"tern/internal/models"
	"tern/internal/services"
	"tern/internal/tasks"
	"tern/internal/transport"
	"tern/internal/utils"
	"tern/internal/utils/logger"
)

func main() {
	logger := logger.New("tern")

	// check if .env file exists
	if _, err := os.Stat(".env"); os.IsNotExist(err) {
		logger.Info("No .env file found, skipping environment variable loading")
	} else {
		logger.Info("Loading environment variables from .env file")
		if err := godotenv.Load(); err != nil {
			log.Fatalf("Failed to load environment variables: %v", err)
		}
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	if err := db.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	// Connect to Redis for progress snapshots
	redisClient, err := utils.NewRedisClient(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	dbInstance := db.GetDB()
	campaignStore := models.NewCampaignStore(dbInstance)
	subscriberStore := models.NewSubscriberStore(dbInstance)

	// Outbound SMTP transport, validated before anything can dispatch
	smtpConfig := transport.Config{
		Host:              cfg.SMTP.Host,
		Port:              cfg.SMTP.Port,
		Username:          cfg.SMTP.Username,
		Password:          cfg.SMTP.Password,
		FromEmail:         cfg.SMTP.FromEmail,
		SupportsTLS:       cfg.SMTP.SupportsTLS,
		RequiresAuth:      cfg.SMTP.RequiresAuth,
		MaxSendRate:       cfg.SMTP.MaxSendRate,
		MaxConnections:    cfg.SMTP.MaxConnections,
		MaxMessages:       cfg.SMTP.MaxMessages,
		ConnectionTimeout: cfg.SMTP.ConnectionTimeout,
		GreetingTimeout:   cfg.SMTP.GreetingTimeout,
		SocketTimeout:     cfg.SMTP.SocketTimeout,
	}
	smtpTransport, err := transport.NewSMTP(smtpConfig)
	if err != nil {
		log.Fatalf("Failed to initialize SMTP transport: %v", err)
	}
	defer smtpTransport.Close()

	// Task queue client for campaign dispatch
	taskClient := tasks.NewTaskClient(cfg.Redis.Addr, cfg.Redis.Username, cfg.Redis.Password, cfg.Redis.DB)
	defer taskClient.Close()

	campaignService := services.NewCampaignService(campaignStore, subscriberStore, taskClient, smtpConfig)
	runner := services.NewDeliveryRunner(campaignStore, smtpTransport, redisClient)

	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize zap logger: %v", err)
	}
	defer zapLogger.Sync()

	// Initialize task handlers
	taskHandler := tasks.NewTaskHandler(runner, campaignStore, zapLogger)

	// Initialize task server
	taskServer := tasks.NewServer(
		cfg.Redis.Addr,
		cfg.Redis.Username,
		cfg.Redis.Password,
		cfg.Redis.DB,
		cfg.Worker.Concurrency,
		taskHandler,
		zapLogger,
	)

	// Create a context for task server
	serverCtx, serverCancel := context.WithCancel(context.Background())
	defer serverCancel()

	// Start task server
	go func() {
		if err := taskServer.Start(serverCtx); err != nil {
			logger.Error("Task server error", err)
		}
	}()

	// Initialize task scheduler
	taskScheduler := tasks.NewScheduler(
		cfg.Redis.Addr,
		cfg.Redis.Username,
		cfg.Redis.Password,
		cfg.Redis.DB,
		logger,
	)

	// Start task scheduler
	go func() {
		if err := taskScheduler.Start(); err != nil {
			logger.Error("Task scheduler error", err)
		}
	}()

	// Initialize API server
	campaignHandler := handlers.NewCampaignHandler(campaignService, campaignStore, redisClient, cfg.Delivery)
	apiServer := api.NewServer(cfg, redisClient, campaignHandler)
	go func() {
		logger.Success("API server started")
		if err := apiServer.Start(); err != nil {
			logger.Error("API server error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the servers
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Create a deadline for graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Stop task scheduler
	taskScheduler.Stop()

	// Stop task server
	taskServer.Shutdown()
	serverCancel()

	// Shutdown API server
	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown API server", err)
	}

	logger.Info("Servers shutdown gracefully")
}
