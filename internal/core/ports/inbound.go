package ports

import (
	"context"
	"io"

	"github.com/velworks/strpdf/internal/core/domain"
)

// UploadEntry is one uploaded part as received from the HTTP layer.
type UploadEntry struct {
	Filename string
	Content  []byte
}

// IntakeResult is returned once a session has been allocated. Rejected lists
// entries excluded by validation; they never block the accepted ones.
type IntakeResult struct {
	SessionID  string           `json:"session_id"`
	Message    string           `json:"message"`
	TotalFiles int              `json:"total_files"`
	Rejected   []domain.Failure `json:"rejected,omitempty"`
}

// UploadIntake is the inbound contract for batch upload.
type UploadIntake interface {
	Intake(ctx context.Context, entries []UploadEntry) (*IntakeResult, error)
}

// SessionProcessor drives one session's batch to a terminal state.
type SessionProcessor interface {
	ProcessSession(ctx context.Context, sessionID string) error
}

// ArtifactReader serves generated artifacts to the download path.
type ArtifactReader interface {
	OpenArtifact(ctx context.Context, sessionID string, mode domain.OutputMode) (io.ReadCloser, *domain.Artifact, error)
}

// SessionCleaner removes a session, its artifacts and any in-flight run.
// Cleaning an absent session is not an error.
type SessionCleaner interface {
	Cleanup(ctx context.Context, sessionID string) error
}

// SubscriberConn is one attached progress subscriber as seen by the channel
// state machine. ReadAck blocks until the subscriber sends its terminal
// acknowledgment or the context ends.
type SubscriberConn interface {
	Send(snap domain.ProgressSnapshot) error
	ReadAck(ctx context.Context) error
	Close() error
}

// ProgressStreamer runs the push-channel lifecycle for one subscriber:
// replay latest, forward live snapshots, terminal ack handshake.
type ProgressStreamer interface {
	Stream(ctx context.Context, sessionID string, modes []domain.OutputMode, conn SubscriberConn) error
}
