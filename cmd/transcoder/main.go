package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hanuchaudhary/VideoTranscoderService/internal/blob"
	"github.com/hanuchaudhary/VideoTranscoderService/internal/relay"
	"github.com/hanuchaudhary/VideoTranscoderService/internal/transcoder"
	"github.com/hanuchaudhary/VideoTranscoderService/shared/logger"
	"github.com/redis/go-redis/v9"
)

// The transcoder runs as a one-shot task: all parameters arrive through the
// environment the launcher populated, and the exit code is the only signal
// the compute substrate sees. Zero means the job ran to completion, anything
// else marks the task failed.
func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	appLogger := logger.NewDefault()

	cfg, err := transcoder.LoadEnv()
	if err != nil {
		return fmt.Errorf("invalid task environment: %w", err)
	}

	appLogger.Info("Starting transcoding task",
		slog.String("job_id", cfg.JobID),
		slog.String("source_key", cfg.SourceKey),
		slog.Any("resolutions", cfg.Resolutions),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Progress relay connection
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	publisher := relay.NewPublisher(redisClient, relay.DefaultChannel, appLogger.Logger)

	// Object storage client
	blobStore, err := blob.NewStore(ctx, &blob.Config{
		Region:          cfg.Region,
		AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
	}, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize object storage: %w", err)
	}

	worker := transcoder.NewWorker(&transcoder.Config{
		Logger:       appLogger.Logger,
		Blob:         blobStore,
		Encoder:      transcoder.NewFFmpegEncoder(cfg.FFmpegPath, cfg.FFprobePath),
		Publisher:    publisher,
		JobID:        cfg.JobID,
		SourceBucket: cfg.SourceBucket,
		SourceKey:    cfg.SourceKey,
		OutputBucket: cfg.OutputBucket,
		Resolutions:  cfg.Resolutions,
		ScratchDir:   cfg.ScratchDir,
	})

	if err := worker.Run(ctx); err != nil {
		return fmt.Errorf("transcoding task failed: %w", err)
	}

	appLogger.Info("Transcoding task finished",
		slog.String("job_id", cfg.JobID),
	)

	return nil
}
