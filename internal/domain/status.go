package domain

// Job status constants
const (
	JobStatusQueued     = "QUEUED"
	JobStatusProcessing = "PROCESSING"
	JobStatusCompleted  = "COMPLETED"
	JobStatusFailed     = "FAILED"
	JobStatusCanceled   = "CANCELED"
)

// Log level constants for job log entries and relay events
const (
	LogLevelInfo  = "INFO"
	LogLevelWarn  = "WARN"
	LogLevelError = "ERROR"
)

// allowedTransitions encodes the forward-only job status state machine.
// COMPLETED, FAILED and CANCELED are terminal; CANCELED in particular is
// absorbing, so a late worker terminal event can never resurrect a job the
// user already canceled.
var allowedTransitions = map[string][]string{
	JobStatusQueued:     {JobStatusProcessing, JobStatusCompleted, JobStatusFailed, JobStatusCanceled},
	JobStatusProcessing: {JobStatusCompleted, JobStatusFailed, JobStatusCanceled},
	JobStatusCompleted:  {},
	JobStatusFailed:     {},
	JobStatusCanceled:   {},
}

// IsValidStatus reports whether s is a known job status.
func IsValidStatus(s string) bool {
	_, ok := allowedTransitions[s]
	return ok
}

// IsTerminalStatus reports whether s is a terminal job status.
func IsTerminalStatus(s string) bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCanceled
}

// CanTransition reports whether a job may move from one status to another.
// Setting the same status twice is allowed so that duplicate relay events
// (multiple subscriber instances) stay idempotent.
func CanTransition(from, to string) bool {
	if from == to {
		return true
	}
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AllowedPreviousStatuses returns every status from which a job may reach
// target, including target itself. The store layer uses this to build
// transition-guarded UPDATE statements.
func AllowedPreviousStatuses(target string) []string {
	prev := []string{target}
	for from, nexts := range allowedTransitions {
		for _, next := range nexts {
			if next == target {
				prev = append(prev, from)
			}
		}
	}
	return prev
}
