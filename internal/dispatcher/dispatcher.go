// Package dispatcher converts storage-upload notifications into launched
// transcoding tasks, exactly once per valid notification. Launch failures are
// retried through the queue's visibility timeout; permanent failures delete
// the message immediately.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hanuchaudhary/VideoTranscoderService/internal/domain"
	"github.com/hanuchaudhary/VideoTranscoderService/internal/launcher"
	"github.com/hanuchaudhary/VideoTranscoderService/internal/queue"
)

// Queue is the durable queue contract the dispatcher consumes
type Queue interface {
	Receive(ctx context.Context) ([]queue.Message, error)
	Delete(ctx context.Context, receiptHandle string) error
}

// TaskLauncher starts one isolated transcoding task per job
type TaskLauncher interface {
	Launch(ctx context.Context, params launcher.TaskParams) error
}

// JobStore resolves job parameters and records the uploaded object key
type JobStore interface {
	GetJobByID(ctx context.Context, jobID string) (*domain.Job, error)
	SetJobInputKey(ctx context.Context, jobID, inputKey string) error
}

// Config holds dispatcher dependencies and settings
type Config struct {
	Logger       *slog.Logger
	Queue        Queue
	Launcher     TaskLauncher
	Jobs         JobStore
	ErrorBackoff time.Duration
}

// Dispatcher is the long-running poll loop turning queue notifications into
// launched worker tasks.
type Dispatcher struct {
	logger       *slog.Logger
	queue        Queue
	launcher     TaskLauncher
	jobs         JobStore
	errorBackoff time.Duration
}

// New creates a new dispatcher
func New(cfg *Config) *Dispatcher {
	backoff := cfg.ErrorBackoff
	if backoff <= 0 {
		backoff = 5 * time.Second
	}

	return &Dispatcher{
		logger:       cfg.Logger,
		queue:        cfg.Queue,
		launcher:     cfg.Launcher,
		jobs:         cfg.Jobs,
		errorBackoff: backoff,
	}
}

// Run polls the queue until the context is canceled. Receive errors are
// logged and followed by a brief sleep; the loop itself never terminates the
// process.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("Dispatcher started")

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Dispatcher stopped - context canceled")
			return ctx.Err()
		default:
		}

		messages, err := d.queue.Receive(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			d.logger.Error("Failed to receive messages",
				slog.Any("error", err),
			)
			d.sleep(ctx)
			continue
		}

		if len(messages) == 0 {
			continue
		}

		d.logger.Debug("Received message batch",
			slog.Int("count", len(messages)),
		)

		var wg sync.WaitGroup
		for _, msg := range messages {
			wg.Add(1)
			go func(msg queue.Message) {
				defer wg.Done()
				defer func() {
					// A panicking message must not take down the loop;
					// the message times back in and is retried.
					if r := recover(); r != nil {
						d.logger.Error("Panic while handling message",
							slog.String("message_id", msg.ID),
							slog.Any("panic", r),
						)
					}
				}()
				d.handleMessage(ctx, msg)
			}(msg)
		}
		wg.Wait()
	}
}

// handleMessage processes one queue message. The message is deleted for every
// permanent outcome (launched, malformed, test event, unknown job); it is
// left for redelivery only when a launch attempt failed.
func (d *Dispatcher) handleMessage(ctx context.Context, msg queue.Message) {
	if msg.Body == "" {
		d.logger.Warn("Empty message body, deleting",
			slog.String("message_id", msg.ID),
		)
		d.deleteMessage(ctx, msg)
		return
	}

	event, err := ParseStorageEvent(msg.Body)
	if err != nil {
		if errors.Is(err, domain.ErrTestEvent) {
			d.logger.Info("Deleting synthetic test event",
				slog.String("message_id", msg.ID),
			)
		} else {
			d.logger.Warn("Unparseable message body, deleting",
				slog.String("message_id", msg.ID),
				slog.Any("error", err),
			)
		}
		d.deleteMessage(ctx, msg)
		return
	}

	// Records within one message are independent; one failure must not block
	// siblings.
	results := make(chan error, len(event.Records))
	var wg sync.WaitGroup
	for _, record := range event.Records {
		wg.Add(1)
		go func(record StorageRecord) {
			defer wg.Done()
			results <- d.handleRecord(ctx, record)
		}(record)
	}
	wg.Wait()
	close(results)

	// A message is only retried when at least one record hit a transient
	// launch failure. Permanent record errors are logged and skipped.
	for err := range results {
		if err != nil && domain.IsRetryable(err) {
			d.logger.Warn("Leaving message for redelivery",
				slog.String("message_id", msg.ID),
				slog.Any("error", err),
			)
			return
		}
	}

	d.deleteMessage(ctx, msg)
}

// handleRecord resolves one storage record to a job and launches its task.
func (d *Dispatcher) handleRecord(ctx context.Context, record StorageRecord) error {
	bucket := record.S3.Bucket.Name
	key := record.S3.Object.Key

	_, jobID, err := ParseUploadKey(key)
	if err != nil {
		d.logger.Error("Object key does not match upload convention, skipping record",
			slog.String("key", key),
		)
		return err
	}

	job, err := d.jobs.GetJobByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			d.logger.Error("No job record for extracted id, skipping record",
				slog.String("job_id", jobID),
				slog.String("key", key),
			)
			return err
		}
		// Store unavailable: transient, retry via redelivery.
		d.logger.Error("Failed to resolve job record",
			slog.String("job_id", jobID),
			slog.Any("error", err),
		)
		return domain.NewRetryableError(err)
	}

	// The notification carries the authoritative key: the client may have
	// uploaded a different extension than the one presigned.
	if job.InputKey != key {
		if err := d.jobs.SetJobInputKey(ctx, jobID, key); err != nil {
			d.logger.Warn("Failed to record uploaded object key",
				slog.String("job_id", jobID),
				slog.Any("error", err),
			)
		}
	}

	if len(job.Resolutions) == 0 {
		d.logger.Error("Job has no requested resolutions, skipping record",
			slog.String("job_id", jobID),
		)
		return fmt.Errorf("job %s has no requested resolutions", jobID)
	}

	params := launcher.TaskParams{
		JobID:        job.ID,
		SourceBucket: bucket,
		SourceKey:    key,
		Resolutions:  job.Resolutions,
	}

	if err := d.launcher.Launch(ctx, params); err != nil {
		d.logger.Error("Failed to launch transcoding task",
			slog.String("job_id", jobID),
			slog.Any("error", err),
		)
		return domain.NewRetryableError(err)
	}

	d.logger.Info("Dispatched transcoding task",
		slog.String("job_id", jobID),
		slog.String("source", fmt.Sprintf("s3://%s/%s", bucket, key)),
		slog.Any("resolutions", job.Resolutions),
	)

	return nil
}

func (d *Dispatcher) deleteMessage(ctx context.Context, msg queue.Message) {
	if err := d.queue.Delete(ctx, msg.ReceiptHandle); err != nil {
		// The message reappears after the visibility timeout; launching the
		// same job twice is safe because output keys are deterministic.
		d.logger.Error("Failed to delete message",
			slog.String("message_id", msg.ID),
			slog.Any("error", err),
		)
	}
}

func (d *Dispatcher) sleep(ctx context.Context) {
	timer := time.NewTimer(d.errorBackoff)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
