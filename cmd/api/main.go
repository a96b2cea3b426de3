package main

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/botmetrics/botmetrics/internal/cohort"
	"github.com/botmetrics/botmetrics/internal/config"
	"github.com/botmetrics/botmetrics/internal/handler"
	"github.com/botmetrics/botmetrics/internal/logger"
	"github.com/botmetrics/botmetrics/internal/queue/sqs"
	"github.com/botmetrics/botmetrics/internal/repository/clickhouse"
	"github.com/botmetrics/botmetrics/internal/service"
	"github.com/botmetrics/botmetrics/internal/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	log, err := logger.New(cfg.Service.Environment)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer func(log *zap.Logger) {
		err := log.Sync()
		if err != nil {
			log.Error("Failed to sync logger", zap.Error(err))
		}
	}(log)

	log.Info("Starting API service",
		zap.String("environment", cfg.Service.Environment),
		zap.String("port", cfg.Service.APIPort))

	ctx := context.Background()

	// Initialize SQS client
	sqsClient, err := sqs.NewClient(ctx, cfg.SQS, log)
	if err != nil {
		log.Fatal("Failed to create SQS client", zap.Error(err))
	}

	// Initialize ClickHouse client
	clickhouseClient, err := clickhouse.NewClient(ctx, &cfg.ClickHouse, log)
	if err != nil {
		log.Fatal("Failed to create ClickHouse client", zap.Error(err))
	}
	defer func(clickhouseClient *clickhouse.Client) {
		if err := clickhouseClient.Close(); err != nil {
			log.Error("Failed to close ClickHouse client", zap.Error(err))
		}
	}(clickhouseClient)

	// Initialize Postgres config store
	store, err := postgres.Open(ctx, &cfg.Postgres, log)
	if err != nil {
		log.Fatal("Failed to open config store", zap.Error(err))
	}
	defer func(store *postgres.Store) {
		if err := store.Close(); err != nil {
			log.Error("Failed to close config store", zap.Error(err))
		}
	}(store)

	if err := store.InitSchema(ctx); err != nil {
		log.Fatal("Failed to initialize config schema", zap.Error(err))
	}

	// Initialize repositories
	events := clickhouse.NewEventRepository(clickhouseClient, log)
	users := clickhouse.NewUserRepository(clickhouseClient, log)

	// Initialize services
	userService := service.NewUserService(users, store, log)
	reportService := service.NewReportService(cohort.NewEngine(events, store, log), log)
	webhookService := service.NewWebhookService(sqsClient, store, log)

	// Initialize handler
	h := handler.NewHandler(userService, reportService, webhookService, store, log)

	addr := fmt.Sprintf(":%s", cfg.Service.APIPort)
	log.Info("API server starting", zap.String("address", addr))

	if err := http.ListenAndServe(addr, h); err != nil {
		log.Fatal("Failed to start API server", zap.Error(err))
	}
}
