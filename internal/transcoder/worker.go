// Package transcoder is the execution core that runs inside one launched
// task: download the source, produce every requested resolution variant with
// bounded concurrency, upload each output as it completes, and stream
// progress events to the relay.
package transcoder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hanuchaudhary/VideoTranscoderService/internal/domain"
)

// maxConcurrentEncodes caps fan-out in case resolution lists grow beyond the
// supported table.
const maxConcurrentEncodes = 8

// progressStep is the coarse granularity of per-resolution progress events.
const progressStep = 5

// BlobStore is the object storage contract the worker needs
type BlobStore interface {
	Download(ctx context.Context, bucket, key, localPath string) (int64, error)
	Upload(ctx context.Context, bucket, key, localPath, contentType string) error
}

// Encoder produces one resolution variant of a local file
type Encoder interface {
	Encode(ctx context.Context, inputPath, outputPath string, res Resolution, progress func(percent int)) error
}

// EventPublisher streams progress events to the relay. Publish failures are
// never fatal to transcoding.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.ProgressEvent) error
}

// Config holds worker dependencies and job parameters
type Config struct {
	Logger       *slog.Logger
	Blob         BlobStore
	Encoder      Encoder
	Publisher    EventPublisher
	JobID        string
	SourceBucket string
	SourceKey    string
	OutputBucket string
	Resolutions  []string
	ScratchDir   string
}

// Worker transcodes one job
type Worker struct {
	logger       *slog.Logger
	blob         BlobStore
	encoder      Encoder
	publisher    EventPublisher
	jobID        string
	sourceBucket string
	sourceKey    string
	outputBucket string
	resolutions  []string
	scratchDir   string
}

// resolutionResult is the outcome of one resolution task
type resolutionResult struct {
	name      string
	outputKey string
	err       error
}

// NewWorker creates a worker for one job
func NewWorker(cfg *Config) *Worker {
	scratch := cfg.ScratchDir
	if scratch == "" {
		scratch = os.TempDir()
	}

	return &Worker{
		logger:       cfg.Logger,
		blob:         cfg.Blob,
		encoder:      cfg.Encoder,
		publisher:    cfg.Publisher,
		jobID:        cfg.JobID,
		sourceBucket: cfg.SourceBucket,
		sourceKey:    cfg.SourceKey,
		outputBucket: cfg.OutputBucket,
		resolutions:  cfg.Resolutions,
		scratchDir:   scratch,
	}
}

// Run executes the job. It returns an error only for fatal failures (source
// download); individual resolution failures are reported through the relay
// and the job still completes with partial output.
func (w *Worker) Run(ctx context.Context) error {
	start := time.Now()

	sourcePath := filepath.Join(w.scratchDir, fmt.Sprintf("%s-source.mp4", w.jobID))

	w.publishLog(ctx, domain.LogLevelInfo, fmt.Sprintf("Downloading video from storage: %s", w.jobID))

	written, err := w.blob.Download(ctx, w.sourceBucket, w.sourceKey, sourcePath)
	if err != nil {
		w.logger.Error("Source download failed",
			slog.String("job_id", w.jobID),
			slog.String("key", w.sourceKey),
			slog.Any("error", err),
		)
		w.publishEvent(ctx, domain.ProgressEvent{
			JobID:   w.jobID,
			Level:   domain.LogLevelError,
			Message: fmt.Sprintf("Failed to download source video: %v", err),
			Status:  domain.EventStatusFailed,
		})
		os.Remove(sourcePath)
		return fmt.Errorf("failed to download source: %w", err)
	}
	defer os.Remove(sourcePath)

	w.logger.Info("Source downloaded",
		slog.String("job_id", w.jobID),
		slog.Int64("bytes", written),
	)

	w.publishEvent(ctx, domain.ProgressEvent{
		JobID:   w.jobID,
		Level:   domain.LogLevelInfo,
		Message: "Starting transcoding...",
		Status:  domain.EventStatusStarted,
	})

	results := w.transcodeAll(ctx, sourcePath)

	// Output keys keep the requested resolution order.
	var outputKeys []string
	failed := 0
	for _, res := range results {
		if res.err != nil {
			failed++
			continue
		}
		outputKeys = append(outputKeys, res.outputKey)
	}

	duration := time.Since(start)

	// Partial output is still useful: as long as the worker ran to
	// completion the job is COMPLETED, with ERROR log entries naming the
	// resolutions that failed.
	w.publishEvent(ctx, domain.ProgressEvent{
		JobID:      w.jobID,
		Level:      domain.LogLevelInfo,
		Message:    "Transcoding completed",
		Status:     domain.EventStatusCompleted,
		OutputKeys: outputKeys,
		Duration:   fmt.Sprintf("%.2f seconds", duration.Seconds()),
	})

	w.logger.Info("Job finished",
		slog.String("job_id", w.jobID),
		slog.Int("produced", len(outputKeys)),
		slog.Int("failed", failed),
		slog.Duration("duration", duration),
	)

	return nil
}

// transcodeAll fans out one goroutine per requested resolution, bounded by
// maxConcurrentEncodes, and waits for all of them to settle.
func (w *Worker) transcodeAll(ctx context.Context, sourcePath string) []resolutionResult {
	results := make([]resolutionResult, len(w.resolutions))
	sem := make(chan struct{}, maxConcurrentEncodes)

	var wg sync.WaitGroup
	for i, name := range w.resolutions {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[i] = w.transcodeOne(ctx, sourcePath, name)
		}(i, name)
	}
	wg.Wait()

	return results
}

// transcodeOne encodes and uploads a single resolution variant. The local
// temp file is removed on every path to bound scratch disk usage.
func (w *Worker) transcodeOne(ctx context.Context, sourcePath, name string) resolutionResult {
	res, ok := LookupResolution(name)
	if !ok {
		w.publishLog(ctx, domain.LogLevelError, fmt.Sprintf("Transcoding failed for %s: unsupported resolution", name))
		return resolutionResult{name: name, err: fmt.Errorf("unsupported resolution %q", name)}
	}

	outputPath := filepath.Join(w.scratchDir, fmt.Sprintf("%s-%s.mp4", w.jobID, res.Name))
	defer os.Remove(outputPath)

	lastLogged := -progressStep
	err := w.encoder.Encode(ctx, sourcePath, outputPath, res, func(percent int) {
		if percent < lastLogged+progressStep {
			return
		}
		lastLogged = percent
		w.publishLog(ctx, domain.LogLevelInfo, fmt.Sprintf("Transcoding %s: %d%% complete", res.Name, percent))
	})
	if err != nil {
		w.logger.Error("Encode failed",
			slog.String("job_id", w.jobID),
			slog.String("resolution", res.Name),
			slog.Any("error", err),
		)
		w.publishLog(ctx, domain.LogLevelError, fmt.Sprintf("Transcoding failed for %s", res.Name))
		return resolutionResult{name: name, err: err}
	}

	outputKey := OutputKey(w.jobID, res.Name)
	if err := w.blob.Upload(ctx, w.outputBucket, outputKey, outputPath, "video/mp4"); err != nil {
		w.logger.Error("Upload failed",
			slog.String("job_id", w.jobID),
			slog.String("resolution", res.Name),
			slog.Any("error", err),
		)
		w.publishLog(ctx, domain.LogLevelError, fmt.Sprintf("Failed to upload %s", res.Name))
		return resolutionResult{name: name, err: err}
	}

	w.publishLog(ctx, domain.LogLevelInfo, fmt.Sprintf("Transcoding %s completed", res.Name))

	return resolutionResult{name: name, outputKey: outputKey}
}

func (w *Worker) publishLog(ctx context.Context, level, message string) {
	w.publishEvent(ctx, domain.ProgressEvent{
		JobID:   w.jobID,
		Level:   level,
		Message: message,
	})
}

func (w *Worker) publishEvent(ctx context.Context, event domain.ProgressEvent) {
	if err := w.publisher.Publish(ctx, event); err != nil {
		// Relay loss degrades to "no live updates"; transcoding continues.
		w.logger.Warn("Failed to publish progress event",
			slog.String("job_id", event.JobID),
			slog.Any("error", err),
		)
	}
}
