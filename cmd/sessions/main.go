package main

import (
	"github.com/joho/godotenv"

	"studiobook/internal/notify"
	"studiobook/internal/sessions/handler"
	"studiobook/internal/sessions/repository"
	"studiobook/internal/sessions/service"
	"studiobook/internal/sessions/validator"
	"studiobook/pkg/app"
	"studiobook/pkg/config"
	"studiobook/pkg/kafka"
	kafka_config "studiobook/pkg/kafka/config"
	kafka_middleware "studiobook/pkg/kafka/middleware"
)

const ServiceName = "sessions"

func main() {
	// Missing .env is fine in deployed environments; everything falls back
	// to real environment variables.
	_ = godotenv.Load()

	cfg := config.Load(ServiceName)

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid configuration", "error", err)
	}
	cfg.LogConfiguration()

	cfg.Log.Info("Starting Sessions service")
	cfg.SetMongo()

	notifier := initNotifier(cfg)
	sessionService := initServices(cfg, notifier)

	serverApp := app.NewApplication()
	serverApp.SetApp(cfg, handler.NewSessionHandler(sessionService, cfg.Log), notifier)
	serverApp.Run()
}

func initNotifier(cfg *config.Config) notify.Notifier {
	kafkaCfg := kafka_config.Load()
	producer, err := kafka.NewProducer(kafkaCfg, cfg.NotificationsTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))

	cfg.Log.Info("Notification dispatcher initialized", "topic", cfg.NotificationsTopic)
	return notify.NewKafkaNotifier(producer)
}

func initServices(cfg *config.Config, notifier notify.Notifier) service.SessionService {
	sessionValidator := validator.NewSessionValidator(cfg.Log)
	sessionRepo := repository.NewMongoSessionRepository(cfg)
	userRepo := repository.NewMongoUserRepository(cfg)

	sessionService := service.NewSessionService(
		sessionRepo,
		userRepo,
		sessionValidator,
		notifier,
		cfg,
		cfg.Log,
	)

	cfg.Log.Info("Session service initialized", "database", cfg.MongoDatabaseName)
	return sessionService
}
