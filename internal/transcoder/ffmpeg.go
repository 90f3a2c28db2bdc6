package transcoder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// FFmpegEncoder shells out to ffmpeg/ffprobe for the actual transcoding.
type FFmpegEncoder struct {
	FFmpegPath  string
	FFprobePath string
	Preset      string
	CRF         int
	AudioCodec  string
}

// NewFFmpegEncoder creates an encoder with sane codec defaults
func NewFFmpegEncoder(ffmpegPath, ffprobePath string) *FFmpegEncoder {
	return &FFmpegEncoder{
		FFmpegPath:  ffmpegPath,
		FFprobePath: ffprobePath,
		Preset:      "medium",
		CRF:         23,
		AudioCodec:  "aac",
	}
}

// ProbeDuration returns the source duration in seconds
func (e *FFmpegEncoder) ProbeDuration(ctx context.Context, inputPath string) (float64, error) {
	cmd := exec.CommandContext(ctx, e.FFprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		inputPath,
	)

	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}

	durationStr := strings.TrimSpace(string(output))
	if durationStr == "" {
		return 0, errors.New("ffprobe returned empty duration")
	}

	return strconv.ParseFloat(durationStr, 64)
}

// Encode transcodes the input to the target dimensions, reporting percent
// progress through the callback. The callback receives values in [0,100];
// throttling is the caller's concern.
func (e *FFmpegEncoder) Encode(ctx context.Context, inputPath, outputPath string, res Resolution, progress func(percent int)) error {
	duration, err := e.ProbeDuration(ctx, inputPath)
	if err != nil {
		// Progress becomes coarse without a known duration; not fatal.
		duration = 0
	}

	args := []string{
		"-y",
		"-i", inputPath,
		"-vf", fmt.Sprintf("scale=%d:%d", res.Width, res.Height),
		"-c:v", "libx264",
		"-preset", e.Preset,
		"-crf", strconv.Itoa(e.CRF),
		"-c:a", e.AudioCodec,
		"-movflags", "+faststart",
		"-f", "mp4",
		"-progress", "pipe:1",
		"-nostats",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, e.FFmpegPath, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}

	var stderrBuf strings.Builder
	cmd.Stderr = &stderrBuf

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		key, value, found := strings.Cut(scanner.Text(), "=")
		if !found {
			continue
		}

		switch key {
		case "out_time_ms":
			if duration <= 0 || progress == nil {
				continue
			}
			outTimeMs, err := strconv.ParseFloat(value, 64)
			if err != nil {
				continue
			}
			percent := int((outTimeMs / 1e6) / duration * 100)
			if percent < 0 {
				percent = 0
			}
			if percent > 100 {
				percent = 100
			}
			progress(percent)
		case "progress":
			if value == "end" && progress != nil {
				progress(100)
			}
		}
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg: %w - %s", err, strings.TrimSpace(stderrBuf.String()))
	}

	return nil
}
