// Package queue wraps the upload-notification queue with
// receive-with-visibility-timeout and delete semantics. Messages left
// undeleted reappear after the visibility timeout expires, which is the
// dispatcher's retry mechanism.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// Config holds queue connection configuration
type Config struct {
	URL             string
	Region          string
	MaxMessages     int
	WaitTime        time.Duration
	AccessKeyID     string
	SecretAccessKey string
}

// Message is one received queue message
type Message struct {
	ID            string
	Body          string
	ReceiptHandle string
}

// Client is a durable queue consumer
type Client struct {
	sqs    *sqs.Client
	config *Config
	logger *slog.Logger
}

// NewClient creates a new queue client
func NewClient(ctx context.Context, config *Config, logger *slog.Logger) (*Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			config.AccessKeyID, config.SecretAccessKey, "",
		)),
		awsconfig.WithRegion(config.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load queue config: %w", err)
	}

	logger.Info("Queue client initialized",
		slog.String("queue_url", config.URL),
		slog.Int("max_messages", config.MaxMessages),
		slog.Duration("wait_time", config.WaitTime),
	)

	return &Client{
		sqs:    sqs.NewFromConfig(awsCfg),
		config: config,
		logger: logger,
	}, nil
}

// Receive long-polls the queue and returns up to MaxMessages messages.
// An empty result is not an error.
func (c *Client) Receive(ctx context.Context) ([]Message, error) {
	out, err := c.sqs.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            &c.config.URL,
		MaxNumberOfMessages: int32(c.config.MaxMessages),
		WaitTimeSeconds:     int32(c.config.WaitTime / time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to receive messages: %w", err)
	}

	messages := make([]Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		msg := Message{}
		if m.MessageId != nil {
			msg.ID = *m.MessageId
		}
		if m.Body != nil {
			msg.Body = *m.Body
		}
		if m.ReceiptHandle != nil {
			msg.ReceiptHandle = *m.ReceiptHandle
		}
		messages = append(messages, msg)
	}

	return messages, nil
}

// Delete acknowledges a message so it is never redelivered
func (c *Client) Delete(ctx context.Context, receiptHandle string) error {
	_, err := c.sqs.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      &c.config.URL,
		ReceiptHandle: &receiptHandle,
	})
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}

	return nil
}
