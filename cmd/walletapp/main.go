package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	users_app "walletapp/internal/app/users"
	wallet_app "walletapp/internal/app/wallet"
	"walletapp/internal/config"
	"walletapp/internal/exchange"
	web_http "walletapp/internal/handler/http/web"
	"walletapp/internal/infrastructure/database"
	kafka_infra "walletapp/internal/infrastructure/kafka"
	"walletapp/internal/outbox"
	"walletapp/internal/repository/outbox_repo"
	"walletapp/internal/repository/transfers_repo"
	"walletapp/internal/repository/users_repo"
	"walletapp/internal/repository/wallets_repo"
	"walletapp/internal/session"
	"walletapp/internal/upload"
)

func ensureKafkaTopics(ctx context.Context, brokerURLs []string, topics []string, logger *zap.Logger) error {
	conn, err := kafka.DialContext(ctx, "tcp", brokerURLs[0])
	if err != nil {
		return fmt.Errorf("failed to dial kafka broker for admin operations: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("failed to get kafka controller: %w", err)
	}
	controllerConn, err := kafka.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	if err != nil {
		return fmt.Errorf("failed to dial kafka controller: %w", err)
	}
	defer controllerConn.Close()

	topicConfigs := make([]kafka.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafka.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}

	err = controllerConn.CreateTopics(topicConfigs...)
	if err != nil {
		if err == kafka.TopicAlreadyExists {
			logger.Info("One or more Kafka topics already exist, skipping creation.")
		} else {
			return fmt.Errorf("failed to create Kafka topics: %w", err)
		}
	} else {
		logger.Info("Kafka topics ensured successfully.", zap.Strings("topics", topics))
	}

	return nil
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.EncoderConfig.TimeKey = "timestamp"

	appLogger, err := zapConfig.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create zap logger: %v\n", err)
		os.Exit(1)
	}
	appLogger.Info("Wallet service starting...")

	appLogger.Info("Waiting for database to be available...")
	dbConfig := database.DBConfig{
		Host:     cfg.DBConfig.Host,
		Port:     cfg.DBConfig.Port,
		User:     cfg.DBConfig.User,
		Password: cfg.DBConfig.Password,
		DBName:   cfg.DBConfig.Name,
		SSLMode:  cfg.DBConfig.SSLMode,
	}

	var db *sql.DB
	maxRetries := 10
	retryDelay := 5 * time.Second

	for i := 0; i < maxRetries; i++ {
		db, err = database.NewPostgresDB(dbConfig)
		if err == nil {
			appLogger.Info("Successfully connected to PostgreSQL database!")
			break
		}
		appLogger.Warn(fmt.Sprintf("Failed to connect to database (attempt %d/%d): %v. Retrying in %s...", i+1, maxRetries, err, retryDelay))
		time.Sleep(retryDelay)
	}

	if db == nil {
		appLogger.Fatal("Could not connect to database after multiple retries. Exiting.", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			appLogger.Error("Error closing database connection", zap.Error(err))
		} else {
			appLogger.Info("Database connection closed.")
		}
	}()

	appLogger.Info("Running database migrations...")
	m, err := migrate.New(
		cfg.MigrationsPath,
		cfg.GetDBMigrationConnectionString(),
	)
	if err != nil {
		appLogger.Fatal("Failed to create migrate instance", zap.Error(err))
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		appLogger.Fatal("Failed to run database migrations", zap.Error(err))
	}
	appLogger.Info("Database migrations completed successfully (or no new migrations).")

	kafkaBrokers := strings.Split(cfg.KafkaBrokerURL, ",")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := ensureKafkaTopics(ctx, kafkaBrokers, []string{cfg.KafkaTransferEventsTopic}, appLogger); err != nil {
		appLogger.Fatal("Failed to ensure Kafka topics", zap.Error(err))
	}

	sqlDB := database.NewSQLDB(db)

	userRepository := users_repo.NewUserRepository()
	walletRepository := wallets_repo.NewWalletRepository()
	transferRepository := transfers_repo.NewTransferRepository()
	outboxRepository := outbox_repo.NewOutboxRepository()

	exchangeClient := exchange.NewClient(
		cfg.ExchangeAPIBaseURL,
		cfg.ExchangeAPIKey,
		cfg.BaseCurrency,
		cfg.ExchangeTimeout,
		appLogger.With(zap.String("component", "ExchangeClient")),
	)

	sessionStore := session.NewStore(cfg.RedisAddr, cfg.RedisPassword, cfg.SessionTTL)
	defer func() {
		if err := sessionStore.Close(); err != nil {
			appLogger.Error("Error closing session store", zap.Error(err))
		}
	}()

	photoSaver, err := upload.NewSaver(cfg.UploadDir)
	if err != nil {
		appLogger.Fatal("Failed to prepare upload directory", zap.Error(err))
	}

	userService := users_app.NewUserService(
		sqlDB,
		userRepository,
		appLogger.With(zap.String("component", "UserService")),
	)
	walletService := wallet_app.NewWalletService(
		sqlDB,
		userRepository,
		walletRepository,
		transferRepository,
		outboxRepository,
		exchangeClient,
		cfg.KafkaTransferEventsTopic,
		appLogger.With(zap.String("component", "WalletService")),
	)
	appLogger.Info("Wallet service initialized.")

	handler := web_http.NewHandler(
		userService,
		walletService,
		sessionStore,
		exchangeClient,
		photoSaver,
		cfg.MaxUploadSize,
		appLogger.With(zap.String("component", "HTTPHandler")),
	)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(30 * time.Second))
	web_http.RegisterRoutes(router, handler, sessionStore, cfg.UploadDir, appLogger)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: router,
	}
	appLogger.Info("HTTP server configured.")

	kafkaProducer := kafka_infra.NewProducer(
		kafkaBrokers,
		appLogger.With(zap.String("component", "KafkaProducer")),
	)
	defer func() {
		if err := kafkaProducer.Close(); err != nil {
			appLogger.Error("Error closing Kafka producer", zap.Error(err))
		}
	}()

	outboxProcessor := outbox.NewProcessor(
		sqlDB,
		outboxRepository,
		kafkaProducer,
		cfg.OutboxPollInterval,
		cfg.OutboxPollTimeout,
		appLogger.With(zap.String("component", "OutboxProcessor")),
	)
	appLogger.Info("Outbox processor initialized.")

	ctxMain, cancelMain := context.WithCancel(context.Background())
	go func() {
		appLogger.Info("Starting HTTP server", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	go func() {
		outboxProcessor.Start(ctxMain)
		appLogger.Info("Outbox processor stopped.")
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	appLogger.Info("Shutting down application...")

	cancelMain()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP server graceful shutdown failed", zap.Error(err))
	} else {
		appLogger.Info("HTTP server gracefully shut down.")
	}

	appLogger.Info("Application gracefully shut down.")
}
