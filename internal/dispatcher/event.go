package dispatcher

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/hanuchaudhary/VideoTranscoderService/internal/domain"
)

// uploadKeyPattern matches the upload path convention
// uploads/<userId>/<jobId>/<filename>.
var uploadKeyPattern = regexp.MustCompile(`^uploads/([^/]+)/([^/]+)/[^/]+$`)

// StorageEvent is the notification envelope storage emits on object creation.
// Synthetic test events carry the top-level Service/Event fields instead of
// Records; both variants are modeled explicitly rather than probed ad hoc.
type StorageEvent struct {
	Service string          `json:"Service,omitempty"`
	Event   string          `json:"Event,omitempty"`
	Records []StorageRecord `json:"Records"`
}

// StorageRecord is one object-created record inside a StorageEvent
type StorageRecord struct {
	EventName string   `json:"eventName"`
	S3        S3Entity `json:"s3"`
}

// S3Entity holds the bucket and object of a storage record
type S3Entity struct {
	Bucket BucketEntity `json:"bucket"`
	Object ObjectEntity `json:"object"`
}

// BucketEntity identifies the bucket an object was created in
type BucketEntity struct {
	Name string `json:"name"`
}

// ObjectEntity identifies the created object
type ObjectEntity struct {
	Key  string `json:"key"`
	Size int64  `json:"size"`
}

// testEventName is the distinguishing value storage systems send to verify
// subscription wiring.
const testEventName = "s3:TestEvent"

// ParseStorageEvent deserializes a queue message body into a storage event
// envelope. It returns domain.ErrTestEvent for synthetic test events, which
// the caller deletes without side effects.
func ParseStorageEvent(body string) (*StorageEvent, error) {
	var event StorageEvent
	if err := json.Unmarshal([]byte(body), &event); err != nil {
		return nil, fmt.Errorf("failed to parse storage event: %w", err)
	}

	if event.Event == testEventName || (event.Service != "" && len(event.Records) == 0) {
		return nil, domain.ErrTestEvent
	}

	if len(event.Records) == 0 {
		return nil, fmt.Errorf("storage event has no records")
	}

	return &event, nil
}

// ParseUploadKey extracts the user id and job id embedded in an uploaded
// object's key. Keys that fail the pattern never self-correct, so callers
// skip the record rather than retry.
func ParseUploadKey(key string) (userID, jobID string, err error) {
	m := uploadKeyPattern.FindStringSubmatch(key)
	if m == nil {
		return "", "", fmt.Errorf("%w: %q", domain.ErrInvalidObjectKey, key)
	}
	return m[1], m[2], nil
}
