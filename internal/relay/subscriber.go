package relay

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hanuchaudhary/VideoTranscoderService/internal/domain"
	"github.com/hanuchaudhary/VideoTranscoderService/internal/store"
	"github.com/redis/go-redis/v9"
)

// JobStore is the persistence contract the subscriber writes through
type JobStore interface {
	AppendJobLog(ctx context.Context, entry *domain.JobLogEntry) error
	UpdateJobStatus(ctx context.Context, jobID string, update store.StatusUpdate) error
}

// Broadcaster fans events out to live clients
type Broadcaster interface {
	Broadcast(event domain.ProgressEvent)
}

// Subscriber consumes worker progress events: it persists a log entry for
// every event, folds status-bearing events into the job record, and
// rebroadcasts to the job's live room. Events are processed sequentially, so
// a single job's events reach the store in publish order.
type Subscriber struct {
	client  redis.UniversalClient
	channel string
	store   JobStore
	hub     Broadcaster
	logger  *slog.Logger
}

// NewSubscriber creates a relay subscriber
func NewSubscriber(client redis.UniversalClient, channel string, jobStore JobStore, hub Broadcaster, logger *slog.Logger) *Subscriber {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Subscriber{
		client:  client,
		channel: channel,
		store:   jobStore,
		hub:     hub,
		logger:  logger,
	}
}

// Run subscribes to the relay channel and processes events until the context
// is canceled. Channel loss is non-fatal: clients fall back to polling the
// job store.
func (s *Subscriber) Run(ctx context.Context) error {
	sub := s.client.Subscribe(ctx, s.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	s.logger.Info("Relay subscriber started",
		slog.String("channel", s.channel),
	)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Relay subscriber stopped - context canceled")
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				s.logger.Warn("Relay channel closed")
				return nil
			}
			s.handlePayload(ctx, msg.Payload)
		}
	}
}

// HandleEvent applies one event to the store and the live rooms. Exposed for
// direct use so the event path is testable without a running channel.
func (s *Subscriber) HandleEvent(ctx context.Context, event domain.ProgressEvent) {
	if event.JobID == "" {
		s.logger.Warn("Dropping event without job id")
		return
	}

	entry := &domain.JobLogEntry{
		ID:        uuid.New().String(),
		JobID:     event.JobID,
		Level:     event.Level,
		Message:   event.Message,
		CreatedAt: time.Now(),
	}
	if err := s.store.AppendJobLog(ctx, entry); err != nil {
		s.logger.Error("Failed to append job log",
			slog.String("job_id", event.JobID),
			slog.Any("error", err),
		)
	}

	if update, ok := statusUpdateFor(event); ok {
		err := s.store.UpdateJobStatus(ctx, event.JobID, update)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrStatusConflict):
			// Duplicate terminal event or a job the user already canceled.
			s.logger.Info("Ignoring status update rejected by transition table",
				slog.String("job_id", event.JobID),
				slog.String("status", update.Status),
			)
		default:
			s.logger.Error("Failed to update job status",
				slog.String("job_id", event.JobID),
				slog.String("status", update.Status),
				slog.Any("error", err),
			)
		}
	}

	s.hub.Broadcast(event)
}

func (s *Subscriber) handlePayload(ctx context.Context, payload string) {
	var event domain.ProgressEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		s.logger.Error("Failed to decode progress event",
			slog.Any("error", err),
		)
		return
	}
	s.HandleEvent(ctx, event)
}

// statusUpdateFor maps a worker event status onto a job store update.
func statusUpdateFor(event domain.ProgressEvent) (store.StatusUpdate, bool) {
	switch event.Status {
	case domain.EventStatusStarted:
		return store.StatusUpdate{Status: domain.JobStatusProcessing}, true
	case domain.EventStatusCompleted:
		return store.StatusUpdate{
			Status:             domain.JobStatusCompleted,
			OutputKeys:         event.OutputKeys,
			CompletionDuration: event.Duration,
		}, true
	case domain.EventStatusFailed:
		return store.StatusUpdate{
			Status:       domain.JobStatusFailed,
			ErrorMessage: event.Message,
		}, true
	default:
		return store.StatusUpdate{}, false
	}
}
