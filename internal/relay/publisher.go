// Package relay carries progress events from the transcoding worker to the
// API tier and live clients over a shared publish/subscribe channel. Delivery
// is at-most-once by design; the job store remains the source of truth.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hanuchaudhary/VideoTranscoderService/internal/domain"
	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the well-known channel all workers publish to
const DefaultChannel = "transcoding"

// Publisher emits progress events from the worker side. Publish errors are
// never fatal to transcoding.
type Publisher struct {
	client  redis.UniversalClient
	channel string
	logger  *slog.Logger
}

// NewPublisher creates a publisher on the given channel
func NewPublisher(client redis.UniversalClient, channel string, logger *slog.Logger) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Publisher{
		client:  client,
		channel: channel,
		logger:  logger,
	}
}

// Publish sends one event, fire-and-forget. Terminal events get a single
// retry because they are the authoritative signal clients wait for;
// everything else is droppable log streaming.
func (p *Publisher) Publish(ctx context.Context, event domain.ProgressEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode progress event: %w", err)
	}

	err = p.client.Publish(ctx, p.channel, payload).Err()
	if err != nil && event.Terminal() {
		p.logger.Warn("Terminal event publish failed, retrying once",
			slog.String("job_id", event.JobID),
			slog.Any("error", err),
		)
		err = p.client.Publish(ctx, p.channel, payload).Err()
	}

	if err != nil {
		return fmt.Errorf("failed to publish progress event: %w", err)
	}

	return nil
}
