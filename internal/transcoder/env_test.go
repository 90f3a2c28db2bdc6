package transcoder

import (
	"errors"
	"testing"

	"github.com/hanuchaudhary/VideoTranscoderService/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setWorkerEnv(t *testing.T) {
	t.Helper()
	t.Setenv("BUCKET_NAME", "raw-videos")
	t.Setenv("KEY", "uploads/u1/j1/video.mp4")
	t.Setenv("JOB_ID", "j1")
	t.Setenv("FINAL_BUCKET_NAME", "final-videos")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("RESOLUTIONS", `["360p","720p"]`)
	t.Setenv("WORKER_TMP_DIR", "")
	t.Setenv("FFMPEG_PATH", "")
	t.Setenv("FFPROBE_PATH", "")
	t.Setenv("AWS_REGION", "")
}

func TestLoadEnv(t *testing.T) {
	setWorkerEnv(t)

	cfg, err := LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, "raw-videos", cfg.SourceBucket)
	assert.Equal(t, "uploads/u1/j1/video.mp4", cfg.SourceKey)
	assert.Equal(t, "j1", cfg.JobID)
	assert.Equal(t, "final-videos", cfg.OutputBucket)
	assert.Equal(t, []string{"360p", "720p"}, cfg.Resolutions)
	assert.NotEmpty(t, cfg.ScratchDir)
	assert.Equal(t, "ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, "ffprobe", cfg.FFprobePath)
}

func TestLoadEnvMissingRequired(t *testing.T) {
	for _, name := range []string{"BUCKET_NAME", "KEY", "JOB_ID", "FINAL_BUCKET_NAME", "REDIS_URL", "RESOLUTIONS"} {
		t.Run(name, func(t *testing.T) {
			setWorkerEnv(t)
			t.Setenv(name, "")

			_, err := LoadEnv()
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrMissingEnv))
		})
	}
}

func TestLoadEnvBadResolutions(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: "360p,720p"},
		{name: "empty list", raw: "[]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setWorkerEnv(t)
			t.Setenv("RESOLUTIONS", tt.raw)

			_, err := LoadEnv()
			require.Error(t, err)
		})
	}
}
