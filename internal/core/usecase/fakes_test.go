package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/velworks/strpdf/internal/core/domain"
	"github.com/velworks/strpdf/internal/core/ports"
)

type storageFake struct {
	mu      sync.Mutex
	objects map[string][]byte
	saveErr error
	openErr error
}

func newStorageFake() *storageFake {
	return &storageFake{objects: map[string][]byte{}}
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.objects[key] = raw
	f.mu.Unlock()
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.mu.Lock()
	raw, ok := f.objects[key]
	f.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no object %s", key)
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func (f *storageFake) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	delete(f.objects, key)
	f.mu.Unlock()
	return nil
}

func (f *storageFake) DeletePrefix(_ context.Context, prefix string) error {
	f.mu.Lock()
	for key := range f.objects {
		if strings.HasPrefix(key, prefix) {
			delete(f.objects, key)
		}
	}
	f.mu.Unlock()
	return nil
}

func (f *storageFake) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for key := range f.objects {
		keys = append(keys, key)
	}
	return keys
}

type queueFake struct {
	published []string
	err       error
}

func (f *queueFake) PublishSessionCreated(_ context.Context, sessionID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, sessionID)
	return nil
}

func (f *queueFake) SubscribeSessionCreated(context.Context, func(context.Context, string) error) error {
	return errors.New("not implemented")
}

type expanderFake struct {
	entries []ports.ArchiveEntry
	err     error
}

func (f *expanderFake) Expand(string, []byte) ([]ports.ArchiveEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.entries, nil
}

// extractorFake keys results on the document content so tests control the
// outcome per file.
type extractorFake struct {
	results map[string]*domain.Record
	errs    map[string]error
}

func newExtractorFake() *extractorFake {
	return &extractorFake{results: map[string]*domain.Record{}, errs: map[string]error{}}
}

func (f *extractorFake) Extract(_ context.Context, content []byte) (*domain.Record, error) {
	if err, ok := f.errs[string(content)]; ok {
		return nil, err
	}
	if rec, ok := f.results[string(content)]; ok {
		copied := *rec
		return &copied, nil
	}
	return nil, errors.New("unexpected content")
}

type workbookFake struct {
	calls []domain.OutputMode
	rows  [][]domain.FileOutcome
	err   error
}

func (f *workbookFake) Build(mode domain.OutputMode, outcomes []domain.FileOutcome) ([]byte, int, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	f.calls = append(f.calls, mode)
	f.rows = append(f.rows, outcomes)
	return []byte("xlsx-" + string(mode)), len(outcomes), nil
}

type historyFake struct {
	saved    []*domain.Session
	terminal []domain.ProgressSnapshot
	err      error
}

func (f *historyFake) EnsureSchema(context.Context) error { return nil }

func (f *historyFake) SaveOutcome(_ context.Context, session *domain.Session, terminal domain.ProgressSnapshot) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, session)
	f.terminal = append(f.terminal, terminal)
	return nil
}
