package handler

import (
	"context"
	"log/slog"

	"github.com/hanuchaudhary/VideoTranscoderService/internal/domain"
	"github.com/hanuchaudhary/VideoTranscoderService/internal/relay"
	"github.com/hanuchaudhary/VideoTranscoderService/internal/store"
)

// JobStore is the persistence contract the handlers need
type JobStore interface {
	CreateJob(ctx context.Context, job *domain.Job) error
	GetJobByID(ctx context.Context, jobID string) (*domain.Job, error)
	ListJobsByUser(ctx context.Context, userID string) ([]*domain.Job, error)
	GetJobLogs(ctx context.Context, jobID string) ([]*domain.JobLogEntry, error)
	UpdateJobStatus(ctx context.Context, jobID string, update store.StatusUpdate) error
	CancelJob(ctx context.Context, jobID string) error
	DeleteJob(ctx context.Context, jobID string) error
}

// Presigner issues time-limited upload and download URLs
type Presigner interface {
	PresignUpload(ctx context.Context, bucket, key, contentType string) (string, error)
	PresignDownload(ctx context.Context, bucket, key string) (string, error)
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger       *slog.Logger
	Store        JobStore
	Blob         Presigner
	Hub          *relay.Hub
	UploadBucket string
	OutputBucket string
}

// TranscodingHandler handles transcoding job HTTP requests
type TranscodingHandler struct {
	logger       *slog.Logger
	store        JobStore
	blob         Presigner
	hub          *relay.Hub
	uploadBucket string
	outputBucket string
}

// NewTranscodingHandler creates a new TranscodingHandler instance
func NewTranscodingHandler(deps *Dependencies) *TranscodingHandler {
	return &TranscodingHandler{
		logger:       deps.Logger,
		store:        deps.Store,
		blob:         deps.Blob,
		hub:          deps.Hub,
		uploadBucket: deps.UploadBucket,
		outputBucket: deps.OutputBucket,
	}
}
