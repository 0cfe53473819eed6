package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/velworks/strpdf/internal/core/domain"
	"github.com/velworks/strpdf/internal/core/ports"
)

// OrchestrateUseCase drives one session from collecting to a terminal state:
// extract every file, keep running progress published, render both workbook
// modes, then record the outcome in the durable history.
//
// A file that fails extraction is recorded and skipped; only infrastructure
// failures (storage, workbook rendering) abort the batch.
type OrchestrateUseCase struct {
	registry  ports.SessionRegistry
	storage   ports.ObjectStorage
	extractor ports.FormExtractor
	workbooks ports.WorkbookBuilder
	history   ports.HistoryRepository
	logger    *slog.Logger
}

func NewOrchestrateUseCase(
	registry ports.SessionRegistry,
	storage ports.ObjectStorage,
	extractor ports.FormExtractor,
	workbooks ports.WorkbookBuilder,
	history ports.HistoryRepository,
	logger *slog.Logger,
) *OrchestrateUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrchestrateUseCase{
		registry:  registry,
		storage:   storage,
		extractor: extractor,
		workbooks: workbooks,
		history:   history,
		logger:    logger,
	}
}

var _ ports.SessionProcessor = (*OrchestrateUseCase)(nil)

func (uc *OrchestrateUseCase) ProcessSession(ctx context.Context, sessionID string) error {
	session, err := uc.registry.Get(sessionID)
	if err != nil {
		if domain.IsKind(err, domain.ErrSessionNotFound) {
			// Cleaned up before the event arrived; nothing to do.
			return nil
		}
		return fmt.Errorf("load session: %w", err)
	}
	if session.Status != domain.SessionCollecting {
		// Redelivered event for a session already picked up.
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := uc.registry.RegisterCancel(sessionID, cancel); err != nil {
		return fmt.Errorf("register cancel: %w", err)
	}
	if err := uc.registry.SetStatus(sessionID, domain.SessionProcessing); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	start := time.Now()
	total := len(session.Files)
	uc.publish(sessionID, domain.ProgressSnapshot{
		Current: 0,
		Total:   total,
		Status:  domain.ProgressProcessing,
		Message: fmt.Sprintf("Starting processing of %d files", total),
	})

	successCount := 0
	var failures []domain.Failure
	for i, file := range session.Files {
		if runCtx.Err() != nil {
			uc.logger.Info("session run cancelled", "session_id", sessionID, "processed", i, "total", total)
			return nil
		}

		uc.publish(sessionID, domain.ProgressSnapshot{
			Current:    i + 1,
			Total:      total,
			Status:     domain.ProgressProcessing,
			Message:    fmt.Sprintf("Processing %s (%d/%d)", file.Filename, i+1, total),
			ItemStatus: domain.ItemProcessing,
		})

		rec, err := uc.extractOne(runCtx, file)
		itemStatus := domain.ItemSuccess
		message := fmt.Sprintf("Processed %s", file.Filename)
		if err != nil {
			failure := domain.Failure{Filename: file.Filename, Error: err.Error(), StorageKey: file.StorageKey}
			failures = append(failures, failure)
			if appendErr := uc.registry.AppendFailure(sessionID, failure); appendErr != nil {
				return fmt.Errorf("append failure: %w", appendErr)
			}
			itemStatus = domain.ItemError
			message = fmt.Sprintf("Failed to process %s", file.Filename)
			uc.logger.Warn("file extraction failed", "session_id", sessionID, "filename", file.Filename, "error", err)
		} else {
			if appendErr := uc.registry.AppendRecord(sessionID, *rec); appendErr != nil {
				return fmt.Errorf("append record: %w", appendErr)
			}
			successCount++
		}

		uc.publish(sessionID, domain.ProgressSnapshot{
			Current:      i + 1,
			Total:        total,
			Status:       domain.ProgressProcessing,
			Message:      message,
			ItemStatus:   itemStatus,
			ElapsedTime:  time.Since(start).Seconds(),
			SuccessCount: domain.IntPtr(successCount),
			FailedCount:  domain.IntPtr(len(failures)),
		})
	}

	session, err = uc.registry.Get(sessionID)
	if err != nil {
		// Deleted mid-run; the cancel hook fired between files.
		return nil
	}

	if err := uc.materializeArtifacts(runCtx, session); err != nil {
		return uc.fail(runCtx, sessionID, session, start, failures, err)
	}

	if err := uc.registry.SetStatus(sessionID, domain.SessionCompleted); err != nil {
		return fmt.Errorf("set status=completed: %w", err)
	}
	terminal := domain.ProgressSnapshot{
		Current:      total,
		Total:        total,
		Status:       domain.ProgressCompleted,
		Message:      completionMessage(successCount, len(failures)),
		ElapsedTime:  time.Since(start).Seconds(),
		SuccessCount: domain.IntPtr(successCount),
		FailedCount:  domain.IntPtr(len(failures)),
		FailedFiles:  failures,
	}
	uc.publish(sessionID, terminal)
	uc.saveHistory(runCtx, sessionID, terminal)
	return nil
}

// completionMessage names the generated workbooks so subscribers learn the
// download options from the terminal snapshot itself.
func completionMessage(successCount, failedCount int) string {
	msg := fmt.Sprintf("Completed! Generated %s and %s with %d records",
		domain.ArtifactFilename(domain.ModeEverything),
		domain.ArtifactFilename(domain.ModeMinimal),
		successCount)
	if failedCount > 0 {
		msg += fmt.Sprintf(" (%d files failed)", failedCount)
	}
	return msg
}

func (uc *OrchestrateUseCase) extractOne(ctx context.Context, file domain.SourceFile) (*domain.Record, error) {
	rc, err := uc.storage.Open(ctx, file.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("open source file: %w", err)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read source file: %w", err)
	}

	rec, err := uc.extractor.Extract(ctx, content)
	if err != nil {
		return nil, err
	}
	rec.SourceFile = file.Filename
	rec.StorageKey = file.StorageKey
	return rec, nil
}

// fail marks the session failed after an infrastructure error. Per-file
// extraction errors never reach here.
func (uc *OrchestrateUseCase) fail(
	ctx context.Context,
	sessionID string,
	session *domain.Session,
	start time.Time,
	failures []domain.Failure,
	cause error,
) error {
	uc.logger.Error("session processing failed", "session_id", sessionID, "error", cause)
	if err := uc.registry.SetStatus(sessionID, domain.SessionError); err != nil {
		uc.logger.Error("set status=error failed", "session_id", sessionID, "error", err)
	}
	terminal := domain.ProgressSnapshot{
		Current:      len(session.Files),
		Total:        len(session.Files),
		Status:       domain.ProgressError,
		Message:      fmt.Sprintf("Processing failed: %v", cause),
		ElapsedTime:  time.Since(start).Seconds(),
		SuccessCount: domain.IntPtr(len(session.Records)),
		FailedCount:  domain.IntPtr(len(failures)),
		FailedFiles:  failures,
	}
	uc.publish(sessionID, terminal)
	uc.saveHistory(ctx, sessionID, terminal)
	return cause
}

func (uc *OrchestrateUseCase) publish(sessionID string, snap domain.ProgressSnapshot) {
	if err := uc.registry.PublishSnapshot(sessionID, snap); err != nil {
		uc.logger.Warn("publish snapshot failed", "session_id", sessionID, "error", err)
	}
}

// saveHistory is best effort. The audit trail must never turn a finished
// batch into a failed one.
func (uc *OrchestrateUseCase) saveHistory(ctx context.Context, sessionID string, terminal domain.ProgressSnapshot) {
	session, err := uc.registry.Get(sessionID)
	if err != nil {
		return
	}
	if err := uc.history.SaveOutcome(ctx, session, terminal); err != nil {
		uc.logger.Error("save session history failed", "session_id", sessionID, "error", err)
	}
}
