package usecase

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/velworks/strpdf/internal/core/domain"
	"github.com/velworks/strpdf/internal/core/ports"
)

// IntakeUseCase validates an upload batch, allocates a session and hands it
// to the orchestrator through the queue. Archives are expanded before
// validation so a mixed batch of loose PDFs and ZIP bundles is one flat file
// list by the time the session is created.
type IntakeUseCase struct {
	registry ports.SessionRegistry
	storage  ports.ObjectStorage
	queue    ports.MessageQueue
	expander ports.ArchiveExpander
}

func NewIntakeUseCase(
	registry ports.SessionRegistry,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	expander ports.ArchiveExpander,
) *IntakeUseCase {
	return &IntakeUseCase{
		registry: registry,
		storage:  storage,
		queue:    queue,
		expander: expander,
	}
}

var _ ports.UploadIntake = (*IntakeUseCase)(nil)

type acceptedFile struct {
	filename      string
	parentArchive string
	content       []byte
}

func (uc *IntakeUseCase) Intake(ctx context.Context, entries []ports.UploadEntry) (*ports.IntakeResult, error) {
	if len(entries) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "intake", fmt.Errorf("no files in upload"))
	}

	accepted, rejected := uc.expand(entries)
	if len(accepted) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "intake", fmt.Errorf("no usable PDF files in upload"))
	}

	sessionID := uuid.NewString()
	files := make([]domain.SourceFile, 0, len(accepted))
	for i, f := range accepted {
		key := fmt.Sprintf("sessions/%s/%03d_%s", sessionID, i, sanitizeFilename(f.filename))
		if err := uc.storage.Save(ctx, key, bytes.NewReader(f.content)); err != nil {
			return nil, fmt.Errorf("save upload %s: %w", f.filename, err)
		}
		files = append(files, domain.SourceFile{
			Filename:      f.filename,
			Size:          int64(len(f.content)),
			StorageKey:    key,
			ParentArchive: f.parentArchive,
		})
	}

	if _, err := uc.registry.Create(sessionID, files); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	if err := uc.queue.PublishSessionCreated(ctx, sessionID); err != nil {
		uc.registry.Delete(sessionID)
		return nil, fmt.Errorf("publish session created: %w", err)
	}

	return &ports.IntakeResult{
		SessionID:  sessionID,
		Message:    fmt.Sprintf("Accepted %d files for processing", len(files)),
		TotalFiles: len(files),
		Rejected:   rejected,
	}, nil
}

// expand flattens archives one level and filters out everything that is not a
// non-empty PDF. Rejections are reported back to the caller but never abort
// the batch.
func (uc *IntakeUseCase) expand(entries []ports.UploadEntry) ([]acceptedFile, []domain.Failure) {
	var accepted []acceptedFile
	var rejected []domain.Failure

	for _, entry := range entries {
		switch {
		case isZip(entry.Filename):
			members, err := uc.expander.Expand(entry.Filename, entry.Content)
			if err != nil {
				rejected = append(rejected, domain.Failure{Filename: entry.Filename, Error: err.Error()})
				continue
			}
			if len(members) == 0 {
				rejected = append(rejected, domain.Failure{Filename: entry.Filename, Error: "archive contains no files"})
				continue
			}
			for _, m := range members {
				switch {
				case !isPDF(m.Name):
					rejected = append(rejected, domain.Failure{Filename: m.Name, Error: "unsupported file type, expected .pdf"})
				case len(m.Content) == 0:
					rejected = append(rejected, domain.Failure{Filename: m.Name, Error: "empty file"})
				default:
					accepted = append(accepted, acceptedFile{filename: m.Name, parentArchive: entry.Filename, content: m.Content})
				}
			}
		case isPDF(entry.Filename):
			if len(entry.Content) == 0 {
				rejected = append(rejected, domain.Failure{Filename: entry.Filename, Error: "empty file"})
				continue
			}
			accepted = append(accepted, acceptedFile{filename: entry.Filename, content: entry.Content})
		default:
			rejected = append(rejected, domain.Failure{Filename: entry.Filename, Error: "unsupported file type, expected .pdf or .zip"})
		}
	}
	return accepted, rejected
}

func isPDF(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}

func isZip(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".zip")
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "document.pdf"
	}
	return base
}
