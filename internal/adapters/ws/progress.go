// Package ws exposes the progress push channel over websocket.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/websocket"

	"github.com/velworks/strpdf/internal/core/domain"
	"github.com/velworks/strpdf/internal/core/ports"
)

// ackPayload is what a subscriber sends to confirm it has seen the terminal
// snapshot. A bare "ack" text frame is accepted as well.
type ackPayload struct {
	Type string `json:"type"`
}

type ProgressHandler struct {
	streamer ports.ProgressStreamer
	logger   *slog.Logger
}

func NewProgressHandler(streamer ports.ProgressStreamer, logger *slog.Logger) *ProgressHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProgressHandler{streamer: streamer, logger: logger}
}

// Handler serves GET /ws/progress/{session_id}. The handshake is permissive
// about Origin; the upload API is the access boundary, not the progress feed.
func (h *ProgressHandler) Handler() http.Handler {
	server := websocket.Server{
		Handshake: func(*websocket.Config, *http.Request) error { return nil },
		Handler:   h.serve,
	}
	return server
}

func (h *ProgressHandler) serve(conn *websocket.Conn) {
	r := conn.Request()
	sessionID := r.PathValue("session_id")
	modes := parseModes(r.URL.Query().Get("modes"))

	err := h.streamer.Stream(r.Context(), sessionID, modes, &subscriberConn{conn: conn})
	if err != nil && !errors.Is(err, context.Canceled) {
		h.logger.Warn("progress stream ended with error", "session_id", sessionID, "error", err)
	}
}

func parseModes(raw string) []domain.OutputMode {
	var modes []domain.OutputMode
	for _, part := range strings.Split(raw, ",") {
		if mode, ok := domain.ParseOutputMode(strings.TrimSpace(part)); ok {
			modes = append(modes, mode)
		}
	}
	return modes
}

// subscriberConn adapts one websocket connection to the streamer's contract.
type subscriberConn struct {
	conn *websocket.Conn
}

var _ ports.SubscriberConn = (*subscriberConn)(nil)

func (c *subscriberConn) Send(snap domain.ProgressSnapshot) error {
	return websocket.JSON.Send(c.conn, snap)
}

// ReadAck consumes frames until an acknowledgment arrives or the context
// deadline passes. Unrelated frames are ignored.
func (c *subscriberConn) ReadAck(ctx context.Context) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(30 * time.Second)
	}
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var raw string
		if err := websocket.Message.Receive(c.conn, &raw); err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return context.DeadlineExceeded
			}
			return err
		}
		if isAck(raw) {
			return nil
		}
	}
}

func (c *subscriberConn) Close() error {
	return c.conn.Close()
}

func isAck(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	if strings.EqualFold(trimmed, "ack") {
		return true
	}
	var payload ackPayload
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		return false
	}
	return strings.EqualFold(payload.Type, "ack")
}
