package usecase

import (
	"context"
	"fmt"

	"github.com/velworks/strpdf/internal/core/ports"
)

// CleanupUseCase removes every trace of a session: the registry entry with
// its live subscriptions and cancel hook, then the stored documents and
// workbooks. Cleaning an unknown session succeeds so clients can retry.
type CleanupUseCase struct {
	registry ports.SessionRegistry
	storage  ports.ObjectStorage
}

func NewCleanupUseCase(registry ports.SessionRegistry, storage ports.ObjectStorage) *CleanupUseCase {
	return &CleanupUseCase{registry: registry, storage: storage}
}

var _ ports.SessionCleaner = (*CleanupUseCase)(nil)

func (uc *CleanupUseCase) Cleanup(ctx context.Context, sessionID string) error {
	uc.registry.Delete(sessionID)
	if err := uc.storage.DeletePrefix(ctx, "sessions/"+sessionID); err != nil {
		return fmt.Errorf("delete session storage: %w", err)
	}
	return nil
}
