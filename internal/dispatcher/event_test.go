package dispatcher

import (
	"testing"

	"github.com/hanuchaudhary/VideoTranscoderService/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUploadKey(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		wantUserID string
		wantJobID  string
		wantErr    bool
	}{
		{
			name:       "standard upload key",
			key:        "uploads/u1/j1/video.mp4",
			wantUserID: "u1",
			wantJobID:  "j1",
		},
		{
			name:       "uuid job id",
			key:        "uploads/6XE1PDLeOq7eQJUGYorGsFf5G6Xl6IiA/f8286d09-dc37-49ca-9245-7c94a20a37e0/video.mp4",
			wantUserID: "6XE1PDLeOq7eQJUGYorGsFf5G6Xl6IiA",
			wantJobID:  "f8286d09-dc37-49ca-9245-7c94a20a37e0",
		},
		{
			name:       "filename with dots",
			key:        "uploads/u2/j2/my.talk.recording.mov",
			wantUserID: "u2",
			wantJobID:  "j2",
		},
		{name: "missing job segment", key: "uploads/bad-format.mp4", wantErr: true},
		{name: "missing filename", key: "uploads/u1/j1/", wantErr: true},
		{name: "extra path segment", key: "uploads/u1/j1/extra/video.mp4", wantErr: true},
		{name: "wrong prefix", key: "videos/u1/j1/video.mp4", wantErr: true},
		{name: "empty key", key: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userID, jobID, err := ParseUploadKey(tt.key)

			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrInvalidObjectKey)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantUserID, userID)
			assert.Equal(t, tt.wantJobID, jobID)
		})
	}
}

func TestParseStorageEvent(t *testing.T) {
	t.Run("object created event", func(t *testing.T) {
		body := `{
			"Records": [
				{
					"eventName": "ObjectCreated:CompleteMultipartUpload",
					"s3": {
						"bucket": {"name": "raw-transcoder-videos"},
						"object": {"key": "uploads/u1/j1/video.mp4", "size": 50248332}
					}
				}
			]
		}`

		event, err := ParseStorageEvent(body)
		require.NoError(t, err)
		require.Len(t, event.Records, 1)
		assert.Equal(t, "raw-transcoder-videos", event.Records[0].S3.Bucket.Name)
		assert.Equal(t, "uploads/u1/j1/video.mp4", event.Records[0].S3.Object.Key)
	})

	t.Run("synthetic test event", func(t *testing.T) {
		body := `{"Service": "Amazon S3", "Event": "s3:TestEvent", "Bucket": "raw-transcoder-videos"}`

		_, err := ParseStorageEvent(body)
		assert.ErrorIs(t, err, domain.ErrTestEvent)
	})

	t.Run("malformed body", func(t *testing.T) {
		_, err := ParseStorageEvent(`{not json`)
		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrTestEvent)
	})

	t.Run("no records", func(t *testing.T) {
		_, err := ParseStorageEvent(`{"Records": []}`)
		require.Error(t, err)
	})
}
