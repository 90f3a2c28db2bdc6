package domain

import "time"

// Job represents one request to transcode a source video into one or more
// resolution variants. The id is generated when the client asks for a
// presigned upload URL and is the correlation key carried through the queue
// message, the task environment and the relay channel.
type Job struct {
	ID                 string     `db:"id" json:"id"`
	UserID             string     `db:"user_id" json:"userId"`
	InputKey           string     `db:"input_key" json:"inputKey"`
	OutputKeys         []string   `db:"-" json:"outputKeys"`
	Status             string     `db:"status" json:"status"`
	Resolutions        []string   `db:"-" json:"resolutions"`
	VideoTitle         string     `db:"video_title" json:"videoTitle"`
	VideoDuration      string     `db:"video_duration" json:"videoDuration"`
	VideoSize          string     `db:"video_size" json:"videoSize"`
	VideoType          string     `db:"video_type" json:"videoType"`
	CompletionDuration string     `db:"completion_duration" json:"completionDuration,omitempty"`
	ErrorMessage       string     `db:"error_message" json:"errorMessage,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt          *time.Time `db:"updated_at" json:"updatedAt,omitempty"`
}

// JobLogEntry is one line of a job's append-only progress trail.
type JobLogEntry struct {
	ID        string    `db:"id" json:"id"`
	JobID     string    `db:"job_id" json:"jobId"`
	Level     string    `db:"log_level" json:"logLevel"`
	Message   string    `db:"log_message" json:"logMessage"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
