package relay

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/hanuchaudhary/VideoTranscoderService/internal/domain"
)

// Client is one live connection's view of the hub. Send never blocks: a
// client that cannot keep up loses events and reconciles by re-fetching the
// job from the store.
type Client struct {
	hub    *Hub
	send   chan []byte
	mu     sync.Mutex
	topics map[string]struct{}
}

// Hub routes progress events to live clients scoped by job id. Membership is
// tied to the connection lifetime: a dropped connection is removed from every
// room it joined, whether or not it sent an explicit leave.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Client]struct{}
	logger *slog.Logger
}

// NewHub creates an empty hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		rooms:  make(map[string]map[*Client]struct{}),
		logger: logger,
	}
}

// Register creates a client with a buffered outbound queue
func (h *Hub) Register() *Client {
	return &Client{
		hub:    h,
		send:   make(chan []byte, 64),
		topics: make(map[string]struct{}),
	}
}

// Unregister removes the client from every room and closes its send channel
func (h *Hub) Unregister(c *Client) {
	c.mu.Lock()
	topics := make([]string, 0, len(c.topics))
	for jobID := range c.topics {
		topics = append(topics, jobID)
	}
	c.topics = make(map[string]struct{})
	c.mu.Unlock()

	h.mu.Lock()
	for _, jobID := range topics {
		h.removeLocked(jobID, c)
	}
	h.mu.Unlock()

	close(c.send)
}

// Join subscribes the client to a job-scoped room
func (h *Hub) Join(c *Client, jobID string) {
	if jobID == "" {
		return
	}

	c.mu.Lock()
	c.topics[jobID] = struct{}{}
	c.mu.Unlock()

	h.mu.Lock()
	room, ok := h.rooms[jobID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[jobID] = room
	}
	room[c] = struct{}{}
	h.mu.Unlock()

	h.logger.Debug("Client joined job room",
		slog.String("job_id", jobID),
	)
}

// Leave unsubscribes the client from a job-scoped room
func (h *Hub) Leave(c *Client, jobID string) {
	c.mu.Lock()
	delete(c.topics, jobID)
	c.mu.Unlock()

	h.mu.Lock()
	h.removeLocked(jobID, c)
	h.mu.Unlock()
}

// Broadcast delivers an event to every client in the job's room. Slow
// clients are skipped rather than blocking the subscriber.
func (h *Hub) Broadcast(event domain.ProgressEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to encode event for broadcast",
			slog.Any("error", err),
		)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.rooms[event.JobID] {
		select {
		case c.send <- payload:
		default:
			h.logger.Warn("Dropping event for slow client",
				slog.String("job_id", event.JobID),
			)
		}
	}
}

// RoomSize returns the number of clients subscribed to a job
func (h *Hub) RoomSize(jobID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[jobID])
}

// Outbound returns the client's event stream
func (c *Client) Outbound() <-chan []byte {
	return c.send
}

func (h *Hub) removeLocked(jobID string, c *Client) {
	room, ok := h.rooms[jobID]
	if !ok {
		return
	}
	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, jobID)
	}
}
