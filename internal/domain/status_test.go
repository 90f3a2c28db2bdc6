package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
		want bool
	}{
		{name: "queued to processing", from: JobStatusQueued, to: JobStatusProcessing, want: true},
		{name: "queued to canceled", from: JobStatusQueued, to: JobStatusCanceled, want: true},
		{name: "processing to completed", from: JobStatusProcessing, to: JobStatusCompleted, want: true},
		{name: "processing to failed", from: JobStatusProcessing, to: JobStatusFailed, want: true},
		{name: "queued straight to completed", from: JobStatusQueued, to: JobStatusCompleted, want: true},
		{name: "completed back to processing", from: JobStatusCompleted, to: JobStatusProcessing, want: false},
		{name: "failed back to queued", from: JobStatusFailed, to: JobStatusQueued, want: false},
		{name: "canceled absorbs completed", from: JobStatusCanceled, to: JobStatusCompleted, want: false},
		{name: "canceled absorbs processing", from: JobStatusCanceled, to: JobStatusProcessing, want: false},
		{name: "idempotent completed", from: JobStatusCompleted, to: JobStatusCompleted, want: true},
		{name: "idempotent processing", from: JobStatusProcessing, to: JobStatusProcessing, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestAllowedPreviousStatuses(t *testing.T) {
	prev := AllowedPreviousStatuses(JobStatusCompleted)

	assert.Contains(t, prev, JobStatusCompleted)
	assert.Contains(t, prev, JobStatusQueued)
	assert.Contains(t, prev, JobStatusProcessing)
	assert.NotContains(t, prev, JobStatusCanceled)
	assert.NotContains(t, prev, JobStatusFailed)
}

func TestIsTerminalStatus(t *testing.T) {
	assert.True(t, IsTerminalStatus(JobStatusCompleted))
	assert.True(t, IsTerminalStatus(JobStatusFailed))
	assert.True(t, IsTerminalStatus(JobStatusCanceled))
	assert.False(t, IsTerminalStatus(JobStatusQueued))
	assert.False(t, IsTerminalStatus(JobStatusProcessing))
}

func TestProgressEventTerminal(t *testing.T) {
	assert.True(t, ProgressEvent{Status: EventStatusCompleted}.Terminal())
	assert.True(t, ProgressEvent{Status: EventStatusFailed}.Terminal())
	assert.False(t, ProgressEvent{Status: EventStatusStarted}.Terminal())
	assert.False(t, ProgressEvent{}.Terminal())
}
