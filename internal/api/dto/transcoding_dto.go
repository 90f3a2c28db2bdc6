package dto

import "github.com/hanuchaudhary/VideoTranscoderService/internal/domain"

type PresignedUploadRequest struct {
	FileType      string   `json:"fileType" binding:"required"`
	Resolutions   []string `json:"resolutions" binding:"required,min=1"`
	VideoTitle    string   `json:"videoTitle" binding:"required"`
	VideoDuration string   `json:"videoDuration"`
	VideoSize     string   `json:"videoSize"`
}

type PresignedUploadResponse struct {
	JobID     string `json:"jobId"`
	Key       string `json:"key"`
	UploadURL string `json:"uploadUrl"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type JobDetailResponse struct {
	Job  *domain.Job           `json:"job"`
	Logs []*domain.JobLogEntry `json:"logs"`
}

type DownloadURLResponse struct {
	Key         string `json:"key"`
	DownloadURL string `json:"downloadUrl"`
}
