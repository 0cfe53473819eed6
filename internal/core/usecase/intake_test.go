package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/velworks/strpdf/internal/core/domain"
	"github.com/velworks/strpdf/internal/core/ports"
	"github.com/velworks/strpdf/internal/infrastructure/registry"
)

func TestIntakeAcceptsPDFsAndRejectsOthers(t *testing.T) {
	reg := registry.NewMemory(0)
	storage := newStorageFake()
	queue := &queueFake{}
	uc := NewIntakeUseCase(reg, storage, queue, &expanderFake{})

	result, err := uc.Intake(context.Background(), []ports.UploadEntry{
		{Filename: "form one.pdf", Content: []byte("pdf-1")},
		{Filename: "notes.txt", Content: []byte("text")},
		{Filename: "empty.pdf", Content: nil},
	})
	if err != nil {
		t.Fatalf("Intake: %v", err)
	}
	if result.TotalFiles != 1 {
		t.Fatalf("TotalFiles = %d, want 1", result.TotalFiles)
	}
	if len(result.Rejected) != 2 {
		t.Fatalf("Rejected = %+v", result.Rejected)
	}

	session, err := reg.Get(result.SessionID)
	if err != nil {
		t.Fatalf("session not created: %v", err)
	}
	if session.Files[0].Filename != "form one.pdf" {
		t.Fatalf("filename = %q", session.Files[0].Filename)
	}
	key := session.Files[0].StorageKey
	if !strings.HasPrefix(key, "sessions/"+result.SessionID+"/") || !strings.HasSuffix(key, "form_one.pdf") {
		t.Fatalf("storage key = %q", key)
	}
	if len(queue.published) != 1 || queue.published[0] != result.SessionID {
		t.Fatalf("published = %v", queue.published)
	}
}

func TestIntakeExpandsArchives(t *testing.T) {
	reg := registry.NewMemory(0)
	expander := &expanderFake{entries: []ports.ArchiveEntry{
		{Name: "a.pdf", Content: []byte("pdf-a")},
		{Name: "b.pdf", Content: []byte("pdf-b")},
	}}
	uc := NewIntakeUseCase(reg, newStorageFake(), &queueFake{}, expander)

	result, err := uc.Intake(context.Background(), []ports.UploadEntry{
		{Filename: "bundle.zip", Content: []byte("zip")},
	})
	if err != nil {
		t.Fatalf("Intake: %v", err)
	}
	if result.TotalFiles != 2 {
		t.Fatalf("TotalFiles = %d, want 2", result.TotalFiles)
	}

	session, _ := reg.Get(result.SessionID)
	for _, f := range session.Files {
		if f.ParentArchive != "bundle.zip" {
			t.Fatalf("parent archive = %q", f.ParentArchive)
		}
	}
}

func TestIntakeReportsIneligibleArchiveMembers(t *testing.T) {
	reg := registry.NewMemory(0)
	expander := &expanderFake{entries: []ports.ArchiveEntry{
		{Name: "a.pdf", Content: []byte("pdf-a")},
		{Name: "b.pdf", Content: []byte("pdf-b")},
		{Name: "notes.txt", Content: []byte("text")},
	}}
	uc := NewIntakeUseCase(reg, newStorageFake(), &queueFake{}, expander)

	result, err := uc.Intake(context.Background(), []ports.UploadEntry{
		{Filename: "bundle.zip", Content: []byte("zip")},
	})
	if err != nil {
		t.Fatalf("Intake: %v", err)
	}
	if result.TotalFiles != 2 {
		t.Fatalf("TotalFiles = %d, want 2", result.TotalFiles)
	}
	if len(result.Rejected) != 1 || result.Rejected[0].Filename != "notes.txt" {
		t.Fatalf("Rejected = %+v, want a failure for notes.txt", result.Rejected)
	}
	if result.Rejected[0].Error == "" {
		t.Fatalf("rejection carries no reason: %+v", result.Rejected[0])
	}
}

func TestIntakeFailsWhenNothingAccepted(t *testing.T) {
	uc := NewIntakeUseCase(registry.NewMemory(0), newStorageFake(), &queueFake{}, &expanderFake{})

	_, err := uc.Intake(context.Background(), []ports.UploadEntry{
		{Filename: "notes.txt", Content: []byte("text")},
	})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want invalid input", err)
	}

	if _, err := uc.Intake(context.Background(), nil); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("empty batch err = %v", err)
	}
}

func TestIntakeRollsBackSessionWhenPublishFails(t *testing.T) {
	reg := registry.NewMemory(0)
	queue := &queueFake{err: context.DeadlineExceeded}
	uc := NewIntakeUseCase(reg, newStorageFake(), queue, &expanderFake{})

	_, err := uc.Intake(context.Background(), []ports.UploadEntry{
		{Filename: "a.pdf", Content: []byte("pdf")},
	})
	if err == nil {
		t.Fatal("expected publish error")
	}
}
