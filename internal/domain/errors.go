package domain

import "errors"

var (
	// ErrJobNotFound is returned when a job id has no record in the store
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidObjectKey is returned when a storage object key does not match
	// the uploads/<userId>/<jobId>/<filename> convention
	ErrInvalidObjectKey = errors.New("object key does not match upload path convention")

	// ErrTestEvent marks a synthetic storage test event that must be deleted
	// without side effects
	ErrTestEvent = errors.New("synthetic storage test event")

	// ErrStatusConflict is returned when a status update would violate the
	// forward-only transition table
	ErrStatusConflict = errors.New("status transition not allowed")

	// ErrMissingEnv is returned by the worker when required task environment
	// is absent
	ErrMissingEnv = errors.New("missing required environment variable")
)

// RetryableError wraps transient errors; the dispatcher leaves the queue
// message undeleted so the visibility timeout redelivers it.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable error: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a new retryable error
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err should be retried via queue redelivery.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}
