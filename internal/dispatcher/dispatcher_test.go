package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/hanuchaudhary/VideoTranscoderService/internal/domain"
	"github.com/hanuchaudhary/VideoTranscoderService/internal/launcher"
	"github.com/hanuchaudhary/VideoTranscoderService/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeQueue struct {
	mu       sync.Mutex
	batches  [][]queue.Message
	deleted  []string
	received int
}

func (q *fakeQueue) Receive(ctx context.Context) ([]queue.Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.received >= len(q.batches) {
		// No more scripted batches; stop the poll loop.
		return nil, context.Canceled
	}
	batch := q.batches[q.received]
	q.received++
	return batch, nil
}

func (q *fakeQueue) Delete(ctx context.Context, receiptHandle string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.deleted = append(q.deleted, receiptHandle)
	return nil
}

func (q *fakeQueue) deletedHandles() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.deleted...)
}

type fakeLauncher struct {
	mu       sync.Mutex
	launched []launcher.TaskParams
	err      error
}

func (l *fakeLauncher) Launch(ctx context.Context, params launcher.TaskParams) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.launched = append(l.launched, params)
	return nil
}

func (l *fakeLauncher) launchedParams() []launcher.TaskParams {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]launcher.TaskParams(nil), l.launched...)
}

type fakeJobStore struct {
	mu        sync.Mutex
	jobs      map[string]*domain.Job
	err       error
	inputKeys map[string]string
}

func (s *fakeJobStore) GetJobByID(ctx context.Context, jobID string) (*domain.Job, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return job, nil
}

func (s *fakeJobStore) SetJobInputKey(ctx context.Context, jobID, inputKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inputKeys == nil {
		s.inputKeys = make(map[string]string)
	}
	s.inputKeys[jobID] = inputKey
	return nil
}

func objectCreatedBody(bucket, key string) string {
	return fmt.Sprintf(`{
		"Records": [
			{
				"eventName": "ObjectCreated:Put",
				"s3": {
					"bucket": {"name": %q},
					"object": {"key": %q, "size": 1024}
				}
			}
		]
	}`, bucket, key)
}

func newTestDispatcher(q Queue, l TaskLauncher, jobs JobStore) *Dispatcher {
	return New(&Config{
		Logger:       testLogger(),
		Queue:        q,
		Launcher:     l,
		Jobs:         jobs,
		ErrorBackoff: time.Millisecond,
	})
}

func runDispatcher(t *testing.T, d *Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := d.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestDispatcherLaunchesTaskAndDeletesMessage(t *testing.T) {
	q := &fakeQueue{batches: [][]queue.Message{
		{{ID: "m1", Body: objectCreatedBody("raw-videos", "uploads/u1/j1/video.mp4"), ReceiptHandle: "rh1"}},
	}}
	l := &fakeLauncher{}
	jobs := &fakeJobStore{jobs: map[string]*domain.Job{
		"j1": {ID: "j1", UserID: "u1", Resolutions: []string{"360p", "720p"}},
	}}

	runDispatcher(t, newTestDispatcher(q, l, jobs))

	launched := l.launchedParams()
	require.Len(t, launched, 1)
	assert.Equal(t, "j1", launched[0].JobID)
	assert.Equal(t, "raw-videos", launched[0].SourceBucket)
	assert.Equal(t, "uploads/u1/j1/video.mp4", launched[0].SourceKey)
	assert.Equal(t, []string{"360p", "720p"}, launched[0].Resolutions)
	assert.Equal(t, []string{"rh1"}, q.deletedHandles())
	assert.Equal(t, "uploads/u1/j1/video.mp4", jobs.inputKeys["j1"])
}

func TestDispatcherDeletesMalformedKeyWithoutLaunch(t *testing.T) {
	q := &fakeQueue{batches: [][]queue.Message{
		{{ID: "m1", Body: objectCreatedBody("raw-videos", "uploads/bad-format.mp4"), ReceiptHandle: "rh1"}},
	}}
	l := &fakeLauncher{}
	jobs := &fakeJobStore{jobs: map[string]*domain.Job{}}

	runDispatcher(t, newTestDispatcher(q, l, jobs))

	assert.Empty(t, l.launchedParams())
	assert.Equal(t, []string{"rh1"}, q.deletedHandles())
}

func TestDispatcherDeletesTestEventWithoutSideEffects(t *testing.T) {
	q := &fakeQueue{batches: [][]queue.Message{
		{{ID: "m1", Body: `{"Service": "Amazon S3", "Event": "s3:TestEvent"}`, ReceiptHandle: "rh1"}},
	}}
	l := &fakeLauncher{}
	jobs := &fakeJobStore{jobs: map[string]*domain.Job{}}

	runDispatcher(t, newTestDispatcher(q, l, jobs))

	assert.Empty(t, l.launchedParams())
	assert.Equal(t, []string{"rh1"}, q.deletedHandles())
}

func TestDispatcherDeletesUnparseableBody(t *testing.T) {
	q := &fakeQueue{batches: [][]queue.Message{
		{{ID: "m1", Body: `{not json`, ReceiptHandle: "rh1"}},
	}}
	l := &fakeLauncher{}
	jobs := &fakeJobStore{jobs: map[string]*domain.Job{}}

	runDispatcher(t, newTestDispatcher(q, l, jobs))

	assert.Empty(t, l.launchedParams())
	assert.Equal(t, []string{"rh1"}, q.deletedHandles())
}

func TestDispatcherDeletesUnknownJob(t *testing.T) {
	q := &fakeQueue{batches: [][]queue.Message{
		{{ID: "m1", Body: objectCreatedBody("raw-videos", "uploads/u1/missing/video.mp4"), ReceiptHandle: "rh1"}},
	}}
	l := &fakeLauncher{}
	jobs := &fakeJobStore{jobs: map[string]*domain.Job{}}

	runDispatcher(t, newTestDispatcher(q, l, jobs))

	assert.Empty(t, l.launchedParams())
	assert.Equal(t, []string{"rh1"}, q.deletedHandles())
}

func TestDispatcherLeavesMessageOnLaunchFailure(t *testing.T) {
	q := &fakeQueue{batches: [][]queue.Message{
		{{ID: "m1", Body: objectCreatedBody("raw-videos", "uploads/u1/j1/video.mp4"), ReceiptHandle: "rh1"}},
	}}
	l := &fakeLauncher{err: errors.New("launch api throttled")}
	jobs := &fakeJobStore{jobs: map[string]*domain.Job{
		"j1": {ID: "j1", UserID: "u1", Resolutions: []string{"360p"}},
	}}

	runDispatcher(t, newTestDispatcher(q, l, jobs))

	assert.Empty(t, q.deletedHandles(), "message must stay for visibility-timeout redelivery")
}

func TestDispatcherLeavesMessageOnStoreOutage(t *testing.T) {
	q := &fakeQueue{batches: [][]queue.Message{
		{{ID: "m1", Body: objectCreatedBody("raw-videos", "uploads/u1/j1/video.mp4"), ReceiptHandle: "rh1"}},
	}}
	l := &fakeLauncher{}
	jobs := &fakeJobStore{err: errors.New("connection refused")}

	runDispatcher(t, newTestDispatcher(q, l, jobs))

	assert.Empty(t, l.launchedParams())
	assert.Empty(t, q.deletedHandles())
}

func TestDispatcherProcessesBatchConcurrently(t *testing.T) {
	batch := []queue.Message{
		{ID: "m1", Body: objectCreatedBody("raw-videos", "uploads/u1/j1/video.mp4"), ReceiptHandle: "rh1"},
		{ID: "m2", Body: objectCreatedBody("raw-videos", "uploads/u2/j2/video.mp4"), ReceiptHandle: "rh2"},
		{ID: "m3", Body: objectCreatedBody("raw-videos", "uploads/bad.mp4"), ReceiptHandle: "rh3"},
	}
	q := &fakeQueue{batches: [][]queue.Message{batch}}
	l := &fakeLauncher{}
	jobs := &fakeJobStore{jobs: map[string]*domain.Job{
		"j1": {ID: "j1", UserID: "u1", Resolutions: []string{"360p"}},
		"j2": {ID: "j2", UserID: "u2", Resolutions: []string{"1080p"}},
	}}

	runDispatcher(t, newTestDispatcher(q, l, jobs))

	assert.Len(t, l.launchedParams(), 2)
	assert.ElementsMatch(t, []string{"rh1", "rh2", "rh3"}, q.deletedHandles())
}

func TestDispatcherRedeliveryIsIdempotent(t *testing.T) {
	// The same message delivered twice (ack that never registered) must
	// launch with identical deterministic parameters, not corrupt anything.
	msg := queue.Message{ID: "m1", Body: objectCreatedBody("raw-videos", "uploads/u1/j1/video.mp4"), ReceiptHandle: "rh1"}
	q := &fakeQueue{batches: [][]queue.Message{{msg}, {msg}}}
	l := &fakeLauncher{}
	jobs := &fakeJobStore{jobs: map[string]*domain.Job{
		"j1": {ID: "j1", UserID: "u1", Resolutions: []string{"360p"}},
	}}

	runDispatcher(t, newTestDispatcher(q, l, jobs))

	launched := l.launchedParams()
	require.Len(t, launched, 2)
	assert.Equal(t, launched[0], launched[1])
}
