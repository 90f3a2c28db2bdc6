// Package store persists jobs and their append-only log trail. Status writes
// go through the domain transition table so duplicate or late relay events
// stay idempotent and can never regress a terminal status.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hanuchaudhary/VideoTranscoderService/internal/domain"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Store handles all database operations for jobs and job logs
type Store struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// New creates a new Store instance
func New(db *sqlx.DB, logger *slog.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger,
	}
}

// CreateJob inserts a new job record with status QUEUED
func (s *Store) CreateJob(ctx context.Context, job *domain.Job) error {
	query := `
		INSERT INTO jobs (id, user_id, input_key, output_keys, status, resolutions,
		                  video_title, video_duration, video_size, video_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
	`

	_, err := s.db.ExecContext(ctx, query,
		job.ID,
		job.UserID,
		job.InputKey,
		pq.Array(job.OutputKeys),
		domain.JobStatusQueued,
		pq.Array(job.Resolutions),
		job.VideoTitle,
		job.VideoDuration,
		job.VideoSize,
		job.VideoType,
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	s.logger.Info("Job created",
		slog.String("job_id", job.ID),
		slog.String("user_id", job.UserID),
		slog.Any("resolutions", job.Resolutions),
	)

	return nil
}

// GetJobByID retrieves a job by its id
func (s *Store) GetJobByID(ctx context.Context, jobID string) (*domain.Job, error) {
	query := `
		SELECT id, user_id, input_key, output_keys, status, resolutions,
		       video_title, video_duration, video_size, video_type,
		       completion_duration, error_message, created_at, updated_at
		FROM jobs
		WHERE id = $1
	`

	job, err := s.scanJob(s.db.QueryRowContext(ctx, query, jobID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return job, nil
}

// ListJobsByUser returns a user's jobs, newest first
func (s *Store) ListJobsByUser(ctx context.Context, userID string) ([]*domain.Job, error) {
	query := `
		SELECT id, user_id, input_key, output_keys, status, resolutions,
		       video_title, video_duration, video_size, video_type,
		       completion_duration, error_message, created_at, updated_at
		FROM jobs
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*domain.Job
	for rows.Next() {
		job, err := s.scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job row: %w", err)
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate job rows: %w", err)
	}

	return jobs, nil
}

// SetJobInputKey records the uploaded object key for a job
func (s *Store) SetJobInputKey(ctx context.Context, jobID, inputKey string) error {
	query := `UPDATE jobs SET input_key = $1, updated_at = NOW() WHERE id = $2`

	res, err := s.db.ExecContext(ctx, query, inputKey, jobID)
	if err != nil {
		return fmt.Errorf("failed to set input key: %w", err)
	}

	return s.requireRow(res, jobID)
}

// StatusUpdate carries the optional fields of a status change
type StatusUpdate struct {
	Status             string
	OutputKeys         []string
	CompletionDuration string
	ErrorMessage       string
}

// UpdateJobStatus applies a status change guarded by the forward-only
// transition table: the UPDATE matches only rows whose current status may
// legally reach the target, so applying the same terminal event twice is a
// no-op and a CANCELED job is never resurrected. Returns ErrStatusConflict
// when the job exists but the transition is not allowed.
func (s *Store) UpdateJobStatus(ctx context.Context, jobID string, update StatusUpdate) error {
	if !domain.IsValidStatus(update.Status) {
		return fmt.Errorf("unknown status %q: %w", update.Status, domain.ErrStatusConflict)
	}

	query := `
		UPDATE jobs
		SET status = $1,
		    output_keys = CASE WHEN $2::text[] IS NOT NULL THEN $2::text[] ELSE output_keys END,
		    completion_duration = CASE WHEN $3 <> '' THEN $3 ELSE completion_duration END,
		    error_message = CASE WHEN $4 <> '' THEN $4 ELSE error_message END,
		    updated_at = NOW()
		WHERE id = $5
		  AND status = ANY($6)
	`

	var outputKeys interface{}
	if update.OutputKeys != nil {
		outputKeys = pq.Array(update.OutputKeys)
	}

	res, err := s.db.ExecContext(ctx, query,
		update.Status,
		outputKeys,
		update.CompletionDuration,
		update.ErrorMessage,
		jobID,
		pq.Array(domain.AllowedPreviousStatuses(update.Status)),
	)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		if _, err := s.GetJobByID(ctx, jobID); err != nil {
			return err
		}
		s.logger.Warn("Rejected status transition",
			slog.String("job_id", jobID),
			slog.String("target_status", update.Status),
		)
		return domain.ErrStatusConflict
	}

	s.logger.Info("Job status updated",
		slog.String("job_id", jobID),
		slog.String("status", update.Status),
	)

	return nil
}

// AppendJobLog appends one entry to a job's log trail
func (s *Store) AppendJobLog(ctx context.Context, entry *domain.JobLogEntry) error {
	query := `
		INSERT INTO job_logs (id, job_id, log_level, log_message, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, query,
		entry.ID,
		entry.JobID,
		entry.Level,
		entry.Message,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append job log: %w", err)
	}

	return nil
}

// GetJobLogs returns a job's log entries in the order they were created
func (s *Store) GetJobLogs(ctx context.Context, jobID string) ([]*domain.JobLogEntry, error) {
	query := `
		SELECT id, job_id, log_level, log_message, created_at
		FROM job_logs
		WHERE job_id = $1
		ORDER BY created_at ASC
	`

	var entries []*domain.JobLogEntry
	rows, err := s.db.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to get job logs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entry domain.JobLogEntry
		if err := rows.Scan(&entry.ID, &entry.JobID, &entry.Level, &entry.Message, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan log row: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate log rows: %w", err)
	}

	return entries, nil
}

// CancelJob marks a job CANCELED. Advisory only: an in-flight worker task is
// not killed, but the transition table keeps its late terminal event from
// overwriting the cancellation.
func (s *Store) CancelJob(ctx context.Context, jobID string) error {
	return s.UpdateJobStatus(ctx, jobID, StatusUpdate{Status: domain.JobStatusCanceled})
}

// DeleteJob removes a job and its logs
func (s *Store) DeleteJob(ctx context.Context, jobID string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM job_logs WHERE job_id = $1`, jobID); err != nil {
		return fmt.Errorf("failed to delete job logs: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM jobs WHERE id = $1`, jobID)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}

	if err := s.requireRow(res, jobID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}

	s.logger.Info("Job deleted",
		slog.String("job_id", jobID),
	)

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *Store) scanJob(row rowScanner) (*domain.Job, error) {
	var job domain.Job
	var outputKeys, resolutions pq.StringArray
	var completionDuration, errorMessage sql.NullString
	var updatedAt sql.NullTime

	err := row.Scan(
		&job.ID,
		&job.UserID,
		&job.InputKey,
		&outputKeys,
		&job.Status,
		&resolutions,
		&job.VideoTitle,
		&job.VideoDuration,
		&job.VideoSize,
		&job.VideoType,
		&completionDuration,
		&errorMessage,
		&job.CreatedAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	job.OutputKeys = outputKeys
	job.Resolutions = resolutions
	job.CompletionDuration = completionDuration.String
	job.ErrorMessage = errorMessage.String
	if updatedAt.Valid {
		job.UpdatedAt = &updatedAt.Time
	}

	return &job, nil
}

func (s *Store) requireRow(res sql.Result, jobID string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}
