// Package progress runs the push-channel lifecycle for one subscriber. It is
// transport agnostic; the websocket adapter supplies the connection.
package progress

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/velworks/strpdf/internal/core/domain"
	"github.com/velworks/strpdf/internal/core/ports"
)

const DefaultAckTimeout = 30 * time.Second

// Streamer replays the latest snapshot on attach, forwards live snapshots in
// publish order, and holds the connection open after a terminal snapshot
// until the subscriber acknowledges it or the ack timeout fires. Reconnecting
// after a disconnect resumes from the latest snapshot, so a missed terminal
// state is always recoverable.
type Streamer struct {
	registry   ports.SessionRegistry
	ackTimeout time.Duration
	logger     *slog.Logger
}

func NewStreamer(registry ports.SessionRegistry, ackTimeout time.Duration, logger *slog.Logger) *Streamer {
	if ackTimeout <= 0 {
		ackTimeout = DefaultAckTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Streamer{registry: registry, ackTimeout: ackTimeout, logger: logger}
}

var _ ports.ProgressStreamer = (*Streamer)(nil)

func (s *Streamer) Stream(ctx context.Context, sessionID string, modes []domain.OutputMode, conn ports.SubscriberConn) error {
	defer conn.Close()
	s.logger.Debug("progress subscriber attached", "session_id", sessionID, "modes", modes)

	sub, err := s.registry.Subscribe(sessionID)
	if err != nil {
		if domain.IsKind(err, domain.ErrSessionNotFound) {
			// Tell the subscriber instead of dropping the connection cold.
			_ = conn.Send(domain.ProgressSnapshot{
				Status:  domain.ProgressError,
				Message: "Session not found",
			})
			return nil
		}
		return err
	}
	defer sub.Close()

	if latest, err := s.registry.Latest(sessionID); err == nil && latest != nil {
		if err := conn.Send(*latest); err != nil {
			return err
		}
		if latest.Terminal() {
			return s.awaitAck(ctx, sessionID, conn)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap, ok := <-sub.Snapshots():
			if !ok {
				// Dropped as a laggard or the session was deleted.
				return nil
			}
			if err := conn.Send(snap); err != nil {
				return err
			}
			if snap.Terminal() {
				return s.awaitAck(ctx, sessionID, conn)
			}
		}
	}
}

// awaitAck waits for the terminal acknowledgment. A subscriber that never
// acks only costs the timeout; the session state is unaffected either way.
func (s *Streamer) awaitAck(ctx context.Context, sessionID string, conn ports.SubscriberConn) error {
	ackCtx, cancel := context.WithTimeout(ctx, s.ackTimeout)
	defer cancel()

	if err := conn.ReadAck(ackCtx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.logger.Warn("terminal ack timed out", "session_id", sessionID, "timeout", s.ackTimeout)
			return nil
		}
		return err
	}
	s.logger.Debug("terminal ack received", "session_id", sessionID)
	return nil
}
