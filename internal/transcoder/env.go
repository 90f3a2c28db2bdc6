package transcoder

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/hanuchaudhary/VideoTranscoderService/internal/domain"
)

// EnvConfig is the worker's configuration, read from the task environment the
// launcher populated. A missing required variable is a fatal setup error.
type EnvConfig struct {
	SourceBucket string
	SourceKey    string
	JobID        string
	OutputBucket string
	Resolutions  []string
	RedisURL     string
	Region       string
	ScratchDir   string
	FFmpegPath   string
	FFprobePath  string
}

// LoadEnv reads and validates the task environment
func LoadEnv() (*EnvConfig, error) {
	cfg := &EnvConfig{
		SourceBucket: os.Getenv("BUCKET_NAME"),
		SourceKey:    os.Getenv("KEY"),
		JobID:        os.Getenv("JOB_ID"),
		OutputBucket: os.Getenv("FINAL_BUCKET_NAME"),
		RedisURL:     os.Getenv("REDIS_URL"),
		Region:       os.Getenv("AWS_REGION"),
		ScratchDir:   os.Getenv("WORKER_TMP_DIR"),
		FFmpegPath:   os.Getenv("FFMPEG_PATH"),
		FFprobePath:  os.Getenv("FFPROBE_PATH"),
	}

	required := map[string]string{
		"BUCKET_NAME":       cfg.SourceBucket,
		"KEY":               cfg.SourceKey,
		"JOB_ID":            cfg.JobID,
		"FINAL_BUCKET_NAME": cfg.OutputBucket,
		"REDIS_URL":         cfg.RedisURL,
	}
	for name, value := range required {
		if value == "" {
			return nil, fmt.Errorf("%w: %s", domain.ErrMissingEnv, name)
		}
	}

	rawResolutions := os.Getenv("RESOLUTIONS")
	if rawResolutions == "" {
		return nil, fmt.Errorf("%w: RESOLUTIONS", domain.ErrMissingEnv)
	}
	if err := json.Unmarshal([]byte(rawResolutions), &cfg.Resolutions); err != nil {
		return nil, fmt.Errorf("failed to parse RESOLUTIONS: %w", err)
	}
	if len(cfg.Resolutions) == 0 {
		return nil, fmt.Errorf("RESOLUTIONS is empty")
	}

	if cfg.ScratchDir == "" {
		cfg.ScratchDir = os.TempDir()
	}
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = "ffprobe"
	}

	return cfg, nil
}
