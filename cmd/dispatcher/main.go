package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hanuchaudhary/VideoTranscoderService/internal/config"
	"github.com/hanuchaudhary/VideoTranscoderService/internal/dispatcher"
	"github.com/hanuchaudhary/VideoTranscoderService/internal/launcher"
	"github.com/hanuchaudhary/VideoTranscoderService/internal/queue"
	"github.com/hanuchaudhary/VideoTranscoderService/internal/store"
	"github.com/hanuchaudhary/VideoTranscoderService/shared/logger"
	"github.com/hanuchaudhary/VideoTranscoderService/shared/postgresql"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	defaultConfigPath := os.Getenv("DISPATCHER_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/dispatcher/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateDispatcherConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting dispatcher",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	// Initialize PostgreSQL client
	dbClient, err := initPostgreSQL(&cfg.Database, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbClient.Close()

	appLogger.Info("Database connection established")

	jobStore := store.New(dbClient.DB(), appLogger.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Upload-notification queue consumer
	queueClient, err := queue.NewClient(ctx, &queue.Config{
		URL:             cfg.Queue.URL,
		Region:          cfg.Queue.Region,
		MaxMessages:     cfg.Queue.MaxMessages,
		WaitTime:        cfg.Queue.WaitTime,
		AccessKeyID:     cfg.Queue.AccessKeyID,
		SecretAccessKey: cfg.Queue.SecretAccessKey,
	}, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize queue client: %w", err)
	}

	appLogger.Info("Queue client initialized",
		slog.String("url", cfg.Queue.URL),
	)

	// Transcoding task launcher
	taskLauncher, err := launcher.NewLauncher(ctx, &launcher.Config{
		Region:          cfg.Storage.Region,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
		Cluster:         cfg.Launcher.Cluster,
		TaskDefinition:  cfg.Launcher.TaskDefinition,
		ContainerName:   cfg.Launcher.ContainerName,
		Subnets:         cfg.Launcher.Subnets,
		SecurityGroups:  cfg.Launcher.SecurityGroups,
		AssignPublicIP:  cfg.Launcher.AssignPublicIP,
		OutputBucket:    cfg.Storage.OutputBucket,
		RedisURL:        cfg.Launcher.RedisURL,
	}, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize task launcher: %w", err)
	}

	appLogger.Info("Task launcher initialized",
		slog.String("cluster", cfg.Launcher.Cluster),
		slog.String("task_definition", cfg.Launcher.TaskDefinition),
	)

	// Create dispatcher instance
	d := dispatcher.New(&dispatcher.Config{
		Logger:       appLogger.Logger,
		Queue:        queueClient,
		Launcher:     taskLauncher,
		Jobs:         jobStore,
		ErrorBackoff: cfg.Queue.ErrorBackoff,
	})

	// Start dispatcher in a goroutine
	errChan := make(chan error, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errChan <- err
		}
	}()

	appLogger.Info("Dispatcher started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
	case err := <-errChan:
		appLogger.Error("Dispatcher error",
			slog.Any("error", err),
		)
		return err
	}

	// Cancel context to stop the poll loop; in-flight messages finish
	// within the shutdown window.
	cancel()

	shutdownTimeout := cfg.Dispatcher.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	select {
	case <-done:
	case <-time.After(shutdownTimeout):
		appLogger.Warn("Shutdown timeout elapsed before the poll loop drained")
	}

	appLogger.Info("Dispatcher shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}

	return postgresql.NewClient(dbConfig, logger)
}
