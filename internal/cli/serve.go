package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"rentals/internal/health"
	"rentals/pkg/app"
	"rentals/pkg/config"
	"rentals/pkg/events"
	"rentals/pkg/kafka"
	kafka_config "rentals/pkg/kafka/config"
	kafka_middleware "rentals/pkg/kafka/middleware"
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long:  "Connects to MongoDB (and Redis and Kafka when configured) and serves the bookings and conversations API.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "port to listen on (overrides PORT)")

	return cmd
}

func runServe(port string) error {
	cfg := config.Load(ServiceName)
	if port != "" {
		cfg.Port = port
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	cfg.SetMongo()
	cfg.SetRedis()
	defer cfg.GracefulShutdown()

	publisher, err := newPublisher(cfg)
	if err != nil {
		return err
	}

	cfg.Log.Info("Starting rentals service")
	serverApp := app.NewApplication(cfg)
	serverApp.OnShutdown("events", publisher.Close)

	healthHandler := health.NewHealthHandler(cfg.Log).AddCheck("mongo", health.MongoCheck(cfg.Client.Mongo))
	if cfg.Client.Redis != nil {
		healthHandler.AddCheck("redis", health.RedisCheck(cfg.Client.Redis))
	}

	serverApp.SetApp(healthHandler, buildHandlers(cfg, mongoStores(cfg), publisher)...)
	serverApp.Run()
	return nil
}

// newPublisher returns a queued Kafka-backed publisher when brokers are configured
// and a no-op one otherwise.
func newPublisher(cfg *config.Config) (events.Publisher, error) {
	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid kafka configuration: %w", err)
	}
	if !kafkaCfg.Enabled() {
		cfg.Log.Info("No Kafka brokers configured, domain events are disabled")
		return events.NopPublisher{}, nil
	}
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.Log, cfg.EventsTopic, cfg.EventsDLQTopic)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	}
	return events.NewAsyncPublisher(
		events.NewKafkaPublisher(producer),
		cfg.Log,
		cfg.EventsPublishTimeout,
		cfg.EventsQueueSize,
	), nil
}
