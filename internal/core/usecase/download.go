package usecase

import (
	"context"
	"fmt"
	"io"

	"github.com/velworks/strpdf/internal/core/domain"
	"github.com/velworks/strpdf/internal/core/ports"
)

// DownloadUseCase serves generated workbooks. The registry decides between
// a missing session and an artifact that is not ready yet; the two map to
// different HTTP answers.
type DownloadUseCase struct {
	registry ports.SessionRegistry
	storage  ports.ObjectStorage
}

func NewDownloadUseCase(registry ports.SessionRegistry, storage ports.ObjectStorage) *DownloadUseCase {
	return &DownloadUseCase{registry: registry, storage: storage}
}

var _ ports.ArtifactReader = (*DownloadUseCase)(nil)

func (uc *DownloadUseCase) OpenArtifact(ctx context.Context, sessionID string, mode domain.OutputMode) (io.ReadCloser, *domain.Artifact, error) {
	art, err := uc.registry.Artifact(sessionID, mode)
	if err != nil {
		return nil, nil, err
	}
	rc, err := uc.storage.Open(ctx, art.StorageKey)
	if err != nil {
		return nil, nil, fmt.Errorf("open artifact %s: %w", art.StorageKey, err)
	}
	return rc, art, nil
}
