package domain

// Event statuses carried on relay events. STARTED maps to PROCESSING in the
// job store; COMPLETED and FAILED map to the terminal statuses of the same
// name.
const (
	EventStatusStarted   = "STARTED"
	EventStatusCompleted = "COMPLETED"
	EventStatusFailed    = "FAILED"
)

// ProgressEvent is the payload published by the transcoding worker and
// consumed by the relay subscriber and live clients. It is transient: its
// fields are folded into Job and JobLogEntry records on receipt, never stored
// verbatim.
type ProgressEvent struct {
	JobID      string   `json:"jobId"`
	Level      string   `json:"logLevel"`
	Message    string   `json:"logMessage"`
	Status     string   `json:"status,omitempty"`
	OutputKeys []string `json:"outputKeys,omitempty"`
	Duration   string   `json:"duration,omitempty"`
}

// Terminal reports whether the event carries a final job status.
func (e ProgressEvent) Terminal() bool {
	return e.Status == EventStatusCompleted || e.Status == EventStatusFailed
}
