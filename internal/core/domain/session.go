package domain

import "time"

type SessionStatus string

const (
	SessionCollecting SessionStatus = "collecting"
	SessionProcessing SessionStatus = "processing"
	SessionCompleted  SessionStatus = "completed"
	SessionError      SessionStatus = "error"
)

// Terminal reports whether the session can no longer change state.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionError
}

// SourceFile is one accepted input document. ParentArchive is set when the
// file was expanded out of an uploaded ZIP, for traceability.
type SourceFile struct {
	Filename      string `json:"filename"`
	Size          int64  `json:"size"`
	StorageKey    string `json:"storage_key"`
	ParentArchive string `json:"parent_archive,omitempty"`
}

// Failure records why a single file produced no Record. It never aborts the
// surrounding batch.
type Failure struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`

	// StorageKey identifies the failed file uniquely even when two files in
	// one batch share a name. Not part of the wire payload.
	StorageKey string `json:"-"`
}

// Session binds one upload batch to its progress stream and artifacts. All
// mutable fields are owned by the registry and written only by the session's
// orchestrator run.
type Session struct {
	ID        string        `json:"id"`
	Files     []SourceFile  `json:"files"`
	Status    SessionStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`

	Records  []Record  `json:"records,omitempty"`
	Failures []Failure `json:"failures,omitempty"`
	Latest   *ProgressSnapshot
}

type OutputMode string

const (
	ModeEverything OutputMode = "everything"
	ModeMinimal    OutputMode = "minimal"
)

func ParseOutputMode(s string) (OutputMode, bool) {
	switch OutputMode(s) {
	case ModeEverything:
		return ModeEverything, true
	case ModeMinimal:
		return ModeMinimal, true
	}
	return "", false
}

// Artifact is one generated workbook for a (session, mode) pair.
type Artifact struct {
	SessionID   string     `json:"session_id"`
	Mode        OutputMode `json:"mode"`
	StorageKey  string     `json:"storage_key"`
	RowCount    int        `json:"row_count"`
	GeneratedAt time.Time  `json:"generated_at"`
}

// ArtifactFilename is the download name of a session's workbook in the given
// mode. Clients see it in both the completion message and the download
// content disposition.
func ArtifactFilename(mode OutputMode) string {
	return "str_data_" + string(mode) + ".xlsx"
}
