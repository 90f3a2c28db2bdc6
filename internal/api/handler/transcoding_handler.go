package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hanuchaudhary/VideoTranscoderService/internal/api/dto"
	"github.com/hanuchaudhary/VideoTranscoderService/internal/domain"
	"github.com/hanuchaudhary/VideoTranscoderService/internal/store"
	"github.com/hanuchaudhary/VideoTranscoderService/internal/transcoder"
)

// userIDHeader identifies the caller. Authentication proper sits in front of
// this service; here the header is trusted as-is.
const userIDHeader = "X-User-ID"

func callerID(c *gin.Context) (string, bool) {
	userID := c.GetHeader(userIDHeader)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": fmt.Sprintf("%s header is required", userIDHeader),
		})
		return "", false
	}
	return userID, true
}

// PresignedUpload handles POST /api/v1/transcoding/presignedUrl
// Creates a queued job and returns a time-limited upload URL for its source
// object. The job starts when the upload notification arrives on the queue.
func (h *TranscodingHandler) PresignedUpload(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req dto.PresignedUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	for _, name := range req.Resolutions {
		if _, ok := transcoder.LookupResolution(name); !ok {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("unsupported resolution: %s", name),
			})
			return
		}
	}

	jobID := uuid.New().String()
	key := fmt.Sprintf("uploads/%s/%s/video.%s", userID, jobID, extensionFromType(req.FileType))

	job := domain.Job{
		ID:            jobID,
		UserID:        userID,
		InputKey:      key,
		Resolutions:   req.Resolutions,
		VideoTitle:    req.VideoTitle,
		VideoDuration: req.VideoDuration,
		VideoSize:     req.VideoSize,
		VideoType:     req.FileType,
	}

	if err := h.store.CreateJob(c.Request.Context(), &job); err != nil {
		h.logger.Error("Failed to create job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create job",
		})
		return
	}

	uploadURL, err := h.blob.PresignUpload(c.Request.Context(), h.uploadBucket, key, req.FileType)
	if err != nil {
		h.logger.Error("Failed to presign upload",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to generate upload URL",
		})
		return
	}

	h.logger.Info("Job created",
		slog.String("job_id", jobID),
		slog.String("user_id", userID),
		slog.String("key", key),
	)

	c.JSON(http.StatusOK, dto.PresignedUploadResponse{
		JobID:     jobID,
		Key:       key,
		UploadURL: uploadURL,
	})
}

// ListJobs handles GET /api/v1/transcoding
// Lists the caller's jobs, newest first
func (h *TranscodingHandler) ListJobs(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	jobs, err := h.store.ListJobsByUser(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list jobs", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list jobs",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// GetJob handles GET /api/v1/transcoding/:job_id
// Returns one job with its full progress trail
func (h *TranscodingHandler) GetJob(c *gin.Context) {
	jobID, ok := h.jobIDParam(c)
	if !ok {
		return
	}

	job, err := h.store.GetJobByID(c.Request.Context(), jobID)
	if err != nil {
		h.respondStoreError(c, jobID, err)
		return
	}

	logs, err := h.store.GetJobLogs(c.Request.Context(), jobID)
	if err != nil {
		h.logger.Error("Failed to get job logs",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get job logs",
		})
		return
	}

	c.JSON(http.StatusOK, dto.JobDetailResponse{
		Job:  job,
		Logs: logs,
	})
}

// UpdateStatus handles PUT /api/v1/transcoding/status/:job_id
// Applies a client-driven status change, most notably cancellation. The
// transition table rejects anything that would regress a terminal state.
func (h *TranscodingHandler) UpdateStatus(c *gin.Context) {
	jobID, ok := h.jobIDParam(c)
	if !ok {
		return
	}

	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	if !domain.IsValidStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("unknown status: %s", req.Status),
		})
		return
	}

	var err error
	if req.Status == domain.JobStatusCanceled {
		err = h.store.CancelJob(c.Request.Context(), jobID)
	} else {
		err = h.store.UpdateJobStatus(c.Request.Context(), jobID, store.StatusUpdate{Status: req.Status})
	}
	if err != nil {
		h.respondStoreError(c, jobID, err)
		return
	}

	h.logger.Info("Job status updated",
		slog.String("job_id", jobID),
		slog.String("status", req.Status),
	)

	c.JSON(http.StatusOK, gin.H{
		"jobId":  jobID,
		"status": req.Status,
	})
}

// DeleteJob handles DELETE /api/v1/transcoding/:job_id
// Deletes a job and its logs once the job has reached a terminal state
func (h *TranscodingHandler) DeleteJob(c *gin.Context) {
	jobID, ok := h.jobIDParam(c)
	if !ok {
		return
	}

	job, err := h.store.GetJobByID(c.Request.Context(), jobID)
	if err != nil {
		h.respondStoreError(c, jobID, err)
		return
	}

	if !domain.IsTerminalStatus(job.Status) {
		c.JSON(http.StatusConflict, gin.H{
			"error": fmt.Sprintf("job is still %s; cancel it before deleting", job.Status),
		})
		return
	}

	if err := h.store.DeleteJob(c.Request.Context(), jobID); err != nil {
		h.respondStoreError(c, jobID, err)
		return
	}

	h.logger.Info("Job deleted", slog.String("job_id", jobID))

	c.Status(http.StatusNoContent)
}

// Download handles GET /api/v1/transcoding/:job_id/download
// Returns a time-limited download URL for one produced variant. The optional
// resolution query selects which one; the first output key is the default.
func (h *TranscodingHandler) Download(c *gin.Context) {
	jobID, ok := h.jobIDParam(c)
	if !ok {
		return
	}

	job, err := h.store.GetJobByID(c.Request.Context(), jobID)
	if err != nil {
		h.respondStoreError(c, jobID, err)
		return
	}

	if job.Status != domain.JobStatusCompleted {
		c.JSON(http.StatusConflict, gin.H{
			"error": fmt.Sprintf("job is %s; downloads are available once it completes", job.Status),
		})
		return
	}

	key, ok := selectOutputKey(job.OutputKeys, c.Query("resolution"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "no output available for the requested resolution",
		})
		return
	}

	downloadURL, err := h.blob.PresignDownload(c.Request.Context(), h.outputBucket, key)
	if err != nil {
		h.logger.Error("Failed to presign download",
			slog.String("job_id", jobID),
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to generate download URL",
		})
		return
	}

	c.JSON(http.StatusOK, dto.DownloadURLResponse{
		Key:         key,
		DownloadURL: downloadURL,
	})
}

func (h *TranscodingHandler) jobIDParam(c *gin.Context) (string, bool) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return "", false
	}
	return jobID, true
}

func (h *TranscodingHandler) respondStoreError(c *gin.Context, jobID string, err error) {
	switch {
	case errors.Is(err, domain.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Job not found",
		})
	case errors.Is(err, domain.ErrStatusConflict):
		c.JSON(http.StatusConflict, gin.H{
			"error": "Job is already in a terminal state",
		})
	default:
		h.logger.Error("Store operation failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
	}
}

func selectOutputKey(outputKeys []string, resolution string) (string, bool) {
	if len(outputKeys) == 0 {
		return "", false
	}
	if resolution == "" {
		return outputKeys[0], true
	}
	suffix := fmt.Sprintf("/%s.mp4", resolution)
	for _, key := range outputKeys {
		if strings.HasSuffix(key, suffix) {
			return key, true
		}
	}
	return "", false
}

func extensionFromType(fileType string) string {
	if idx := strings.LastIndex(fileType, "/"); idx >= 0 && idx < len(fileType)-1 {
		return fileType[idx+1:]
	}
	return "mp4"
}
