package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/hanuchaudhary/VideoTranscoderService/internal/relay"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 54 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients connect from a separate frontend origin; the CORS
	// middleware already gates the HTTP surface.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsCommand is a client-to-server control frame
type wsCommand struct {
	Action string `json:"action"`
	JobID  string `json:"jobId"`
}

// Live handles GET /ws
// Upgrades the connection and bridges it to the relay hub. Clients subscribe
// and unsubscribe to job rooms with {"action":"subscribe","jobId":"..."}
// frames; everything published for a joined job streams back as JSON.
func (h *TranscodingHandler) Live(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	client := h.hub.Register()

	go h.writePump(conn, client)
	h.readPump(conn, client)
}

// readPump consumes control frames until the connection drops, then detaches
// the client from every room it joined.
func (h *TranscodingHandler) readPump(conn *websocket.Conn, client *relay.Client) {
	defer func() {
		h.hub.Unregister(client)
		conn.Close()
	}()

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("WebSocket closed unexpectedly", slog.String("error", err.Error()))
			}
			return
		}

		var cmd wsCommand
		if err := json.Unmarshal(payload, &cmd); err != nil {
			h.logger.Warn("Ignoring malformed control frame", slog.String("error", err.Error()))
			continue
		}

		switch cmd.Action {
		case "subscribe":
			h.hub.Join(client, cmd.JobID)
		case "unsubscribe":
			h.hub.Leave(client, cmd.JobID)
		default:
			h.logger.Warn("Unknown control action", slog.String("action", cmd.Action))
		}
	}
}

// writePump drains the hub's outbound queue onto the wire and keeps the
// connection alive with pings.
func (h *TranscodingHandler) writePump(conn *websocket.Conn, client *relay.Client) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case payload, ok := <-client.Outbound():
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
