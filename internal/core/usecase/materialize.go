package usecase

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/velworks/strpdf/internal/core/domain"
)

// materializeArtifacts renders and stores both workbook modes for a finished
// batch. Rows follow upload order regardless of per-file success, so the
// output is stable for identical input batches.
func (uc *OrchestrateUseCase) materializeArtifacts(ctx context.Context, session *domain.Session) error {
	outcomes := orderedOutcomes(session)
	for _, mode := range []domain.OutputMode{domain.ModeEverything, domain.ModeMinimal} {
		content, rows, err := uc.workbooks.Build(mode, outcomes)
		if err != nil {
			return fmt.Errorf("build %s workbook: %w", mode, err)
		}
		key := ArtifactKey(session.ID, mode)
		if err := uc.storage.Save(ctx, key, bytes.NewReader(content)); err != nil {
			return fmt.Errorf("save %s workbook: %w", mode, err)
		}
		if err := uc.registry.PutArtifact(domain.Artifact{
			SessionID:   session.ID,
			Mode:        mode,
			StorageKey:  key,
			RowCount:    rows,
			GeneratedAt: time.Now().UTC(),
		}); err != nil {
			return fmt.Errorf("register %s artifact: %w", mode, err)
		}
	}
	return nil
}

// ArtifactKey is the storage key for a session's workbook in the given mode.
func ArtifactKey(sessionID string, mode domain.OutputMode) string {
	return fmt.Sprintf("sessions/%s/%s", sessionID, domain.ArtifactFilename(mode))
}

// orderedOutcomes lines per-file results back up with the session's file
// order, keyed by storage key so files sharing a name stay distinct. A file
// with neither a record nor a failure was never processed; that only happens
// on an aborted run and is reported as a failure row.
func orderedOutcomes(session *domain.Session) []domain.FileOutcome {
	records := make(map[string]*domain.Record, len(session.Records))
	for i := range session.Records {
		rec := &session.Records[i]
		records[rec.StorageKey] = rec
	}
	errors := make(map[string]string, len(session.Failures))
	for _, f := range session.Failures {
		errors[f.StorageKey] = f.Error
	}

	outcomes := make([]domain.FileOutcome, 0, len(session.Files))
	for _, file := range session.Files {
		if rec, ok := records[file.StorageKey]; ok {
			outcomes = append(outcomes, domain.FileOutcome{SourceFile: file.Filename, Record: rec})
			continue
		}
		msg, ok := errors[file.StorageKey]
		if !ok {
			msg = "file was not processed"
		}
		outcomes = append(outcomes, domain.FileOutcome{SourceFile: file.Filename, Err: msg})
	}
	return outcomes
}
