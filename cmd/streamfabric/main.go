package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	internalbuffer "github.com/streamfabric/streamfabric/internal/buffer"
	"github.com/streamfabric/streamfabric/internal/config"
	"github.com/streamfabric/streamfabric/internal/config/dto"
	"github.com/streamfabric/streamfabric/internal/ingest"
	"github.com/streamfabric/streamfabric/internal/kafka"
	"github.com/streamfabric/streamfabric/internal/observability"
	"github.com/streamfabric/streamfabric/internal/server"
	"github.com/streamfabric/streamfabric/internal/storage"
	"github.com/streamfabric/streamfabric/internal/upload"
	"github.com/streamfabric/streamfabric/pkg/event"
	pkgstorage "github.com/streamfabric/streamfabric/pkg/storage"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to configuration file")
	flag.Parse()

	var cfgPath string
	if *configPath != "" {
		cfgPath = *configPath
	} else if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		cfgPath = envPath
	} else {
		cfgPath = "config/application.yaml"
	}

	loader := config.NewLoader()
	cfg, err := loader.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := observability.NewLogger(observability.LoggingConfig{
		Level:  cfg.Observability.Logging.Level,
		Format: cfg.Observability.Logging.Format,
	})
	logger.Info("starting streamfabric",
		"version", cfg.Application.Version,
		"environment", cfg.Application.Environment,
	)

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	var cleanupFuncs []func() error
	addCleanup := func(name string, fn func() error) {
		cleanupFuncs = append(cleanupFuncs, fn)
		logger.Debug("registered cleanup", "component", name)
	}

	bufferManager := internalbuffer.NewManager(internalbuffer.Config{
		GlobalLimitBytes:          cfg.BufferFabric.GlobalLimitBytes,
		BlockBytes:                cfg.BufferFabric.BlockBytes,
		InitialQueueCapacityBytes: cfg.BufferFabric.InitialQueueCapacityBytes,
		MaxQueueBytes:             cfg.BufferFabric.MaxQueueBytes,
		Logger:                    logger,
	})
	addCleanup("buffer-manager", bufferManager.Close)

	consumerConfig := kafka.ConsumerConfig{
		BootstrapServers:    cfg.Kafka.BootstrapServers,
		GroupID:             cfg.Kafka.Consumer.GroupID,
		SecurityProtocol:    cfg.Kafka.SecurityProtocol,
		SASLMechanism:       cfg.Kafka.SASLMechanism,
		SASLUsername:        cfg.Kafka.SASLUsername,
		SASLPassword:        cfg.Kafka.SASLPassword,
		AutoOffsetReset:     cfg.Kafka.Consumer.AutoOffsetReset,
		EnableAutoCommit:    cfg.Kafka.Consumer.EnableAutoCommit,
		MaxPollIntervalMS:   cfg.Kafka.Consumer.MaxPollIntervalMS,
		SessionTimeoutMS:    cfg.Kafka.Consumer.SessionTimeoutMS,
		HeartbeatIntervalMS: cfg.Kafka.Consumer.HeartbeatIntervalMS,
	}
	saramaConsumer, err := kafka.NewSaramaConsumer(consumerConfig, logger, metrics)
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}
	addCleanup("kafka-consumer", saramaConsumer.Close)

	dlqConfig := kafka.DLQConfig{
		Enabled:     cfg.Kafka.DLQ.Enabled,
		TopicSuffix: cfg.Kafka.DLQ.TopicSuffix,
		MaxRetries:  cfg.Kafka.DLQ.MaxRetries,
	}
	dlqPublisher, err := kafka.NewDLQPublisher(cfg.Kafka.BootstrapServers, consumerConfig, dlqConfig, logger, cfg.Application.Name)
	if err != nil {
		return fmt.Errorf("failed to create DLQ publisher: %w", err)
	}
	addCleanup("dlq-publisher", dlqPublisher.Close)

	format := event.FormatParquet
	if cfg.Storage.Format == "avro" {
		format = event.FormatAvro
	}

	compression := cfg.Storage.Compression
	if compression == "" {
		compression = storageDefaultCompression(format)
	}

	writer, err := newStorageWriter(cfg, format, compression, logger, metrics)
	if err != nil {
		return err
	}
	addCleanup("storage-writer", writer.Close)

	protocol := storageProtocol(cfg.Storage.Backend)
	bucket := storageBucket(cfg)
	basePath := storageBasePath(cfg)
	router := storage.NewRouter(protocol, bucket, basePath, "v1")

	healthChecker := &fabricHealthChecker{}

	httpServer := server.NewServer(
		cfg.Observability.Health.Port,
		cfg.Observability.Metrics.Port,
		healthChecker,
		bufferManager,
		registry,
		logger,
	)
	if err := httpServer.Start(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	addCleanup("http-server", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(ctx)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetry := observability.NewTelemetry(bufferManager, metrics, cfg.BufferFabric.TelemetryInterval, logger)
	go telemetry.Run(ctx)

	ingester := ingest.New(ingest.Config{
		Consumer: saramaConsumer,
		Enqueuer: bufferManager.Enqueue,
		DLQ:      dlqPublisher,
		Topics:   cfg.Kafka.Consumer.Topics,
		Logger:   logger,
	})

	ingestErrChan := make(chan error, 1)
	go func() { ingestErrChan <- ingester.Run(ctx) }()

	uploadPool := upload.NewPool(upload.Config{
		Manager:       bufferManager,
		Writer:        writer,
		Router:        router,
		Format:        format,
		NumWorkers:    cfg.Processing.WorkerPoolSize,
		BytesPerBatch: int64(cfg.Processing.BufferSizeMB) * 1024 * 1024,
		PollInterval:  cfg.BufferFabric.PollInterval,
		Backend:       cfg.Storage.Backend,
		Metrics:       metrics,
		Logger:        logger,
	})
	uploadDone := make(chan error, 1)
	go func() { uploadDone <- uploadPool.Run(ctx) }()

	logger.Info("application started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("received termination signal")
	case err := <-ingestErrChan:
		if err != nil {
			logger.Error("ingest error", "error", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	// Stop ingestion first so no new records are admitted, then let the
	// upload workers drain and close whatever batches they already hold.
	cancel()
	<-ingestErrChan
	<-uploadDone

	for i := len(cleanupFuncs) - 1; i >= 0; i-- {
		if err := cleanupFuncs[i](); err != nil {
			logger.Error("cleanup error", "error", err)
		}
	}

	logger.Info("application stopped successfully")
	return nil
}

func newStorageWriter(cfg *dto.ApplicationConfig, format event.FileFormat, compression string, logger *slog.Logger, metrics *observability.Metrics) (pkgstorage.Writer, error) {
	switch cfg.Storage.Backend {
	case "file":
		return storage.NewFileWriter(storage.FileConfig{BasePath: cfg.Storage.File.BasePath}, format, compression, logger, metrics)
	case "s3":
		return storage.NewS3Writer(storage.S3Config{
			Bucket:       cfg.Storage.S3.Bucket,
			Region:       cfg.Storage.S3.Region,
			Endpoint:     cfg.Storage.S3.Endpoint,
			UsePathStyle: cfg.Storage.S3.UsePathStyle,
			SSEEnabled:   cfg.Storage.S3.SSEEnabled,
			SSEKMSKeyID:  cfg.Storage.S3.SSEKMSKeyID,
		}, format, compression, logger, metrics)
	case "azure":
		return storage.NewAzureWriter(storage.AzureConfig{
			AccountName:   cfg.Storage.Azure.AccountName,
			AccountKey:    os.Getenv("AZURE_STORAGE_ACCOUNT_KEY"),
			ContainerName: cfg.Storage.Azure.Container,
		}, format, compression, logger, metrics)
	case "gcs":
		return storage.NewGCSWriter(storage.GCSConfig{
			Bucket:               cfg.Storage.GCS.Bucket,
			ProjectID:            cfg.Storage.GCS.ProjectID,
			CredentialsFile:      cfg.Storage.GCS.CredentialsFile,
			CredentialsJSON:      cfg.Storage.GCS.CredentialsJSON,
			UseDefaultCredential: cfg.Storage.GCS.UseDefaultCredential,
		}, format, compression, logger, metrics)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s (supported: file, s3, azure, gcs)", cfg.Storage.Backend)
	}
}

func storageDefaultCompression(format event.FileFormat) string {
	if format == event.FormatParquet {
		return "snappy"
	}
	return "gzip"
}

func storageProtocol(backend string) string {
	switch backend {
	case "s3":
		return "s3"
	case "azure":
		return "wasbs"
	case "gcs":
		return "gs"
	default:
		return "file"
	}
}

func storageBucket(cfg *dto.ApplicationConfig) string {
	switch cfg.Storage.Backend {
	case "s3":
		return cfg.Storage.S3.Bucket
	case "azure":
		return cfg.Storage.Azure.Container
	case "gcs":
		return cfg.Storage.GCS.Bucket
	default:
		return ""
	}
}

func storageBasePath(cfg *dto.ApplicationConfig) string {
	switch cfg.Storage.Backend {
	case "s3":
		return cfg.Storage.S3.BasePath
	case "gcs":
		return cfg.Storage.GCS.BasePath
	default:
		return ""
	}
}

// fabricHealthChecker reports liveness/readiness for the process as a
// whole; the fabric has no dependent external connection to probe beyond
// what the HTTP server's own availability already implies.
type fabricHealthChecker struct{}

func (h *fabricHealthChecker) Liveness() bool                    { return true }
func (h *fabricHealthChecker) Readiness(ctx context.Context) bool { return true }
func (h *fabricHealthChecker) IsHealthy() bool                    { return true }
func (h *fabricHealthChecker) GetStatus() map[string]string {
	return map[string]string{"status": "healthy"}
}
