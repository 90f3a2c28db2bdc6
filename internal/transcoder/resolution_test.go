package transcoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupResolution(t *testing.T) {
	tests := []struct {
		name       string
		label      string
		wantWidth  int
		wantHeight int
		wantOK     bool
	}{
		{name: "144p", label: "144p", wantWidth: 256, wantHeight: 144, wantOK: true},
		{name: "360p", label: "360p", wantWidth: 640, wantHeight: 360, wantOK: true},
		{name: "480p", label: "480p", wantWidth: 854, wantHeight: 480, wantOK: true},
		{name: "720p", label: "720p", wantWidth: 1280, wantHeight: 720, wantOK: true},
		{name: "1080p", label: "1080p", wantWidth: 1920, wantHeight: 1080, wantOK: true},
		{name: "4K", label: "4K", wantWidth: 3840, wantHeight: 2160, wantOK: true},
		{name: "unknown label", label: "8K", wantOK: false},
		{name: "case sensitive", label: "4k", wantOK: false},
		{name: "empty", label: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, ok := LookupResolution(tt.label)
			require.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.label, res.Name)
				assert.Equal(t, tt.wantWidth, res.Width)
				assert.Equal(t, tt.wantHeight, res.Height)
			}
		})
	}
}

func TestOutputKeyIsDeterministic(t *testing.T) {
	key := OutputKey("8b9f0c9a", "720p")
	assert.Equal(t, "videos/8b9f0c9a/720p.mp4", key)
	assert.Equal(t, key, OutputKey("8b9f0c9a", "720p"))
}
