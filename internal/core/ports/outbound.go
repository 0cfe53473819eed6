package ports

import (
	"context"
	"io"

	"github.com/velworks/strpdf/internal/core/domain"
)

// SessionRegistry owns all session state for the process lifetime. Every
// mutation is serialized per session; distinct sessions need no coordination.
type SessionRegistry interface {
	Create(id string, files []domain.SourceFile) (*domain.Session, error)
	Get(id string) (*domain.Session, error)
	SetStatus(id string, status domain.SessionStatus) error
	AppendRecord(id string, rec domain.Record) error
	AppendFailure(id string, f domain.Failure) error

	// PublishSnapshot stores the latest snapshot and fans it out to live
	// subscriptions without blocking the caller.
	PublishSnapshot(id string, snap domain.ProgressSnapshot) error
	Latest(id string) (*domain.ProgressSnapshot, error)
	Subscribe(id string) (Subscription, error)

	PutArtifact(art domain.Artifact) error
	Artifact(id string, mode domain.OutputMode) (*domain.Artifact, error)

	// RegisterCancel attaches the cancel hook for the session's in-flight
	// orchestrator run; Delete invokes it before removing state.
	RegisterCancel(id string, cancel context.CancelFunc) error
	Delete(id string)
}

// Subscription is one subscriber's ordered snapshot feed. The channel is
// closed when the subscriber lags beyond its buffer or the session is
// deleted.
type Subscription interface {
	Snapshots() <-chan domain.ProgressSnapshot
	Close()
}

// ObjectStorage stores source documents and generated artifacts.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// MessageQueue dispatches session lifecycle events from intake to the
// orchestrator loop.
type MessageQueue interface {
	PublishSessionCreated(ctx context.Context, sessionID string) error
	SubscribeSessionCreated(ctx context.Context, handler func(context.Context, string) error) error
}

// FormExtractor parses one document's bytes into a Record. Same bytes in,
// same Record or error out.
type FormExtractor interface {
	Extract(ctx context.Context, content []byte) (*domain.Record, error)
}

// ArchiveEntry is one file member expanded from an uploaded archive, in
// archive order.
type ArchiveEntry struct {
	Name    string
	Content []byte
}

// ArchiveExpander expands an uploaded archive one level into its regular-file
// members. Eligibility is decided by the caller so ineligible members can be
// reported as validation failures.
type ArchiveExpander interface {
	Expand(filename string, content []byte) ([]ArchiveEntry, error)
}

// WorkbookBuilder renders one output mode over the ordered per-file outcomes.
type WorkbookBuilder interface {
	Build(mode domain.OutputMode, outcomes []domain.FileOutcome) (content []byte, rows int, err error)
}

// HistoryRepository keeps a durable audit trail of finished sessions.
type HistoryRepository interface {
	EnsureSchema(ctx context.Context) error
	SaveOutcome(ctx context.Context, session *domain.Session, terminal domain.ProgressSnapshot) error
}
