package transcoder

import "fmt"

// Resolution is one target output variant
type Resolution struct {
	Name   string
	Width  int
	Height int
}

// resolutionTable maps the supported resolution labels to output dimensions.
var resolutionTable = []Resolution{
	{Name: "144p", Width: 256, Height: 144},
	{Name: "240p", Width: 426, Height: 240},
	{Name: "360p", Width: 640, Height: 360},
	{Name: "480p", Width: 854, Height: 480},
	{Name: "720p", Width: 1280, Height: 720},
	{Name: "1080p", Width: 1920, Height: 1080},
	{Name: "1440p", Width: 2560, Height: 1440},
	{Name: "4K", Width: 3840, Height: 2160},
}

// LookupResolution resolves a label to its dimensions
func LookupResolution(name string) (Resolution, bool) {
	for _, r := range resolutionTable {
		if r.Name == name {
			return r, true
		}
	}
	return Resolution{}, false
}

// OutputKey returns the deterministic object key for one produced variant.
// Re-running a job overwrites rather than duplicates.
func OutputKey(jobID, resolutionName string) string {
	return fmt.Sprintf("videos/%s/%s.mp4", jobID, resolutionName)
}
