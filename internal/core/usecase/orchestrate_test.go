package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/velworks/strpdf/internal/core/domain"
	"github.com/velworks/strpdf/internal/infrastructure/registry"
)

func seedSession(t *testing.T, reg *registry.Memory, storage *storageFake, id string, contents map[string]string) {
	t.Helper()
	var files []domain.SourceFile
	for _, name := range sortedKeys(contents) {
		key := "sessions/" + id + "/" + name
		storage.objects[key] = []byte(contents[name])
		files = append(files, domain.SourceFile{Filename: name, StorageKey: key, Size: int64(len(contents[name]))})
	}
	if _, err := reg.Create(id, files); err != nil {
		t.Fatalf("Create: %v", err)
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 0; i < len(keys); i++ {
		for j := i + 1; j < len(keys); j++ {
			if keys[j] < keys[i] {
				keys[i], keys[j] = keys[j], keys[i]
			}
		}
	}
	return keys
}

func TestProcessSessionHappyPathWithPartialFailure(t *testing.T) {
	reg := registry.NewMemory(8)
	storage := newStorageFake()
	extractor := newExtractorFake()
	workbooks := &workbookFake{}
	history := &historyFake{}

	seedSession(t, reg, storage, "s1", map[string]string{"a.pdf": "pdf-a", "b.pdf": "pdf-b"})
	extractor.results["pdf-a"] = &domain.Record{Applicant: domain.Applicant{Nama: "ALI"}, Status: domain.ExtractionOK}
	extractor.errs["pdf-b"] = domain.ErrFormMismatch

	sub, err := reg.Subscribe("s1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	uc := NewOrchestrateUseCase(reg, storage, extractor, workbooks, history, nil)
	if err := uc.ProcessSession(context.Background(), "s1"); err != nil {
		t.Fatalf("ProcessSession: %v", err)
	}

	session, _ := reg.Get("s1")
	if session.Status != domain.SessionCompleted {
		t.Fatalf("status = %q", session.Status)
	}
	if len(session.Records) != 1 || session.Records[0].SourceFile != "a.pdf" {
		t.Fatalf("records = %+v", session.Records)
	}
	if len(session.Failures) != 1 || session.Failures[0].Filename != "b.pdf" {
		t.Fatalf("failures = %+v", session.Failures)
	}

	if len(workbooks.calls) != 2 {
		t.Fatalf("workbook calls = %v", workbooks.calls)
	}
	for _, outcomes := range workbooks.rows {
		if len(outcomes) != 2 || outcomes[0].SourceFile != "a.pdf" || outcomes[1].Err == "" {
			t.Fatalf("outcomes = %+v", outcomes)
		}
	}
	for _, mode := range []domain.OutputMode{domain.ModeEverything, domain.ModeMinimal} {
		art, err := reg.Artifact("s1", mode)
		if err != nil {
			t.Fatalf("artifact %s: %v", mode, err)
		}
		if art.RowCount != 2 {
			t.Fatalf("artifact %s rows = %d", mode, art.RowCount)
		}
	}

	var terminal *domain.ProgressSnapshot
	for snap := range sub.Snapshots() {
		if snap.Terminal() {
			copied := snap
			terminal = &copied
			break
		}
	}
	if terminal == nil || terminal.Status != domain.ProgressCompleted {
		t.Fatalf("terminal = %+v", terminal)
	}
	if *terminal.SuccessCount != 1 || *terminal.FailedCount != 1 {
		t.Fatalf("counts = %d/%d", *terminal.SuccessCount, *terminal.FailedCount)
	}
	if len(terminal.FailedFiles) != 1 || terminal.FailedFiles[0].Filename != "b.pdf" {
		t.Fatalf("failed files = %+v", terminal.FailedFiles)
	}
	wantMsg := "Completed! Generated str_data_everything.xlsx and str_data_minimal.xlsx with 1 records (1 files failed)"
	if terminal.Message != wantMsg {
		t.Fatalf("terminal message = %q, want %q", terminal.Message, wantMsg)
	}

	if len(history.saved) != 1 || history.saved[0].ID != "s1" {
		t.Fatalf("history = %+v", history.saved)
	}
}

func TestProcessSessionKeepsSameNamedFilesDistinct(t *testing.T) {
	reg := registry.NewMemory(8)
	storage := newStorageFake()
	extractor := newExtractorFake()
	workbooks := &workbookFake{}

	files := []domain.SourceFile{
		{Filename: "scan.pdf", StorageKey: "sessions/s1/000_scan.pdf", Size: 5, ParentArchive: "jan.zip"},
		{Filename: "scan.pdf", StorageKey: "sessions/s1/001_scan.pdf", Size: 5, ParentArchive: "feb.zip"},
	}
	storage.objects["sessions/s1/000_scan.pdf"] = []byte("pdf-jan")
	storage.objects["sessions/s1/001_scan.pdf"] = []byte("pdf-feb")
	if _, err := reg.Create("s1", files); err != nil {
		t.Fatalf("Create: %v", err)
	}
	extractor.results["pdf-jan"] = &domain.Record{Applicant: domain.Applicant{Nama: "ALI"}, Status: domain.ExtractionOK}
	extractor.errs["pdf-feb"] = domain.ErrFormMismatch

	uc := NewOrchestrateUseCase(reg, storage, extractor, workbooks, &historyFake{}, nil)
	if err := uc.ProcessSession(context.Background(), "s1"); err != nil {
		t.Fatalf("ProcessSession: %v", err)
	}

	for _, outcomes := range workbooks.rows {
		if len(outcomes) != 2 {
			t.Fatalf("outcomes = %+v", outcomes)
		}
		if outcomes[0].Record == nil || outcomes[0].Record.Applicant.Nama != "ALI" {
			t.Fatalf("first row lost its record: %+v", outcomes[0])
		}
		if outcomes[1].Record != nil || outcomes[1].Err == "" {
			t.Fatalf("second row lost its failure: %+v", outcomes[1])
		}
	}
}

func TestProcessSessionProgressIsOneBasedAndOrdered(t *testing.T) {
	reg := registry.NewMemory(16)
	storage := newStorageFake()
	extractor := newExtractorFake()
	seedSession(t, reg, storage, "s1", map[string]string{"a.pdf": "pdf-a"})
	extractor.results["pdf-a"] = &domain.Record{Status: domain.ExtractionOK}

	sub, _ := reg.Subscribe("s1")
	uc := NewOrchestrateUseCase(reg, storage, extractor, &workbookFake{}, &historyFake{}, nil)
	if err := uc.ProcessSession(context.Background(), "s1"); err != nil {
		t.Fatalf("ProcessSession: %v", err)
	}

	var snaps []domain.ProgressSnapshot
	for snap := range sub.Snapshots() {
		snaps = append(snaps, snap)
		if snap.Terminal() {
			break
		}
	}
	if len(snaps) != 4 {
		t.Fatalf("got %d snapshots: %+v", len(snaps), snaps)
	}
	if snaps[0].Current != 0 {
		t.Fatalf("first snapshot = %+v", snaps[0])
	}
	if snaps[1].Current != 1 || snaps[1].ItemStatus != domain.ItemProcessing {
		t.Fatalf("item start = %+v", snaps[1])
	}
	if snaps[2].ItemStatus != domain.ItemSuccess {
		t.Fatalf("item done = %+v", snaps[2])
	}
	prev := -1
	for _, s := range snaps {
		if s.Current < prev {
			t.Fatalf("current went backwards: %+v", snaps)
		}
		prev = s.Current
	}
}

func TestProcessSessionWorkbookFailureMarksSessionError(t *testing.T) {
	reg := registry.NewMemory(8)
	storage := newStorageFake()
	extractor := newExtractorFake()
	history := &historyFake{}
	seedSession(t, reg, storage, "s1", map[string]string{"a.pdf": "pdf-a"})
	extractor.results["pdf-a"] = &domain.Record{Status: domain.ExtractionOK}

	uc := NewOrchestrateUseCase(reg, storage, extractor, &workbookFake{err: errors.New("render failed")}, history, nil)
	if err := uc.ProcessSession(context.Background(), "s1"); err == nil {
		t.Fatal("expected error")
	}

	session, _ := reg.Get("s1")
	if session.Status != domain.SessionError {
		t.Fatalf("status = %q", session.Status)
	}
	latest, _ := reg.Latest("s1")
	if latest == nil || latest.Status != domain.ProgressError {
		t.Fatalf("latest = %+v", latest)
	}
	if len(history.saved) != 1 {
		t.Fatalf("history writes = %d", len(history.saved))
	}
}

func TestProcessSessionSkipsRedeliveredEvents(t *testing.T) {
	reg := registry.NewMemory(8)
	storage := newStorageFake()
	seedSession(t, reg, storage, "s1", map[string]string{"a.pdf": "pdf-a"})
	if err := reg.SetStatus("s1", domain.SessionCompleted); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	workbooks := &workbookFake{}
	uc := NewOrchestrateUseCase(reg, storage, newExtractorFake(), workbooks, &historyFake{}, nil)
	if err := uc.ProcessSession(context.Background(), "s1"); err != nil {
		t.Fatalf("ProcessSession: %v", err)
	}
	if len(workbooks.calls) != 0 {
		t.Fatalf("redelivery reprocessed the session: %v", workbooks.calls)
	}
}

func TestProcessSessionUnknownSessionIsNoop(t *testing.T) {
	uc := NewOrchestrateUseCase(registry.NewMemory(0), newStorageFake(), newExtractorFake(), &workbookFake{}, &historyFake{}, nil)
	if err := uc.ProcessSession(context.Background(), "ghost"); err != nil {
		t.Fatalf("ProcessSession: %v", err)
	}
}

func TestProcessSessionHistoryFailureIsNotFatal(t *testing.T) {
	reg := registry.NewMemory(8)
	storage := newStorageFake()
	extractor := newExtractorFake()
	seedSession(t, reg, storage, "s1", map[string]string{"a.pdf": "pdf-a"})
	extractor.results["pdf-a"] = &domain.Record{Status: domain.ExtractionOK}

	uc := NewOrchestrateUseCase(reg, storage, extractor, &workbookFake{}, &historyFake{err: errors.New("db down")}, nil)
	if err := uc.ProcessSession(context.Background(), "s1"); err != nil {
		t.Fatalf("ProcessSession: %v", err)
	}
	session, _ := reg.Get("s1")
	if session.Status != domain.SessionCompleted {
		t.Fatalf("status = %q", session.Status)
	}
}
