package registry

import (
	"context"
	"testing"

	"github.com/velworks/strpdf/internal/core/domain"
)

func TestCreateAndGetSession(t *testing.T) {
	m := NewMemory(0)
	files := []domain.SourceFile{{Filename: "a.pdf", StorageKey: "sessions/s1/a.pdf"}}

	s, err := m.Create("s1", files)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if s.Status != domain.SessionCollecting {
		t.Fatalf("status = %q", s.Status)
	}
	if _, err := m.Create("s1", files); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("duplicate create error = %v", err)
	}

	got, err := m.Get("s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Files) != 1 || got.Files[0].Filename != "a.pdf" {
		t.Fatalf("files = %+v", got.Files)
	}
	if _, err := m.Get("missing"); !domain.IsKind(err, domain.ErrSessionNotFound) {
		t.Fatalf("missing session error = %v", err)
	}
}

func TestGetReturnsIndependentCopy(t *testing.T) {
	m := NewMemory(0)
	if _, err := m.Create("s1", nil); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, _ := m.Get("s1")
	got.Status = domain.SessionError
	got.Records = append(got.Records, domain.Record{SourceFile: "x.pdf"})

	fresh, _ := m.Get("s1")
	if fresh.Status != domain.SessionCollecting || len(fresh.Records) != 0 {
		t.Fatalf("registry state mutated through copy: %+v", fresh)
	}
}

func TestAppendAndStatus(t *testing.T) {
	m := NewMemory(0)
	if _, err := m.Create("s1", nil); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := m.SetStatus("s1", domain.SessionProcessing); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if err := m.AppendRecord("s1", domain.Record{SourceFile: "a.pdf"}); err != nil {
		t.Fatalf("AppendRecord: %v", err)
	}
	if err := m.AppendFailure("s1", domain.Failure{Filename: "b.pdf", Error: "boom"}); err != nil {
		t.Fatalf("AppendFailure: %v", err)
	}

	s, _ := m.Get("s1")
	if s.Status != domain.SessionProcessing || len(s.Records) != 1 || len(s.Failures) != 1 {
		t.Fatalf("session = %+v", s)
	}
}

func TestPublishSnapshotFanOut(t *testing.T) {
	m := NewMemory(4)
	if _, err := m.Create("s1", nil); err != nil {
		t.Fatalf("Create: %v", err)
	}
	sub, err := m.Subscribe("s1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	snap := domain.ProgressSnapshot{Current: 1, Total: 3, Status: domain.ProgressProcessing}
	if err := m.PublishSnapshot("s1", snap); err != nil {
		t.Fatalf("PublishSnapshot: %v", err)
	}

	got := <-sub.Snapshots()
	if got.Current != 1 || got.Total != 3 {
		t.Fatalf("snapshot = %+v", got)
	}
	latest, err := m.Latest("s1")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest == nil || latest.Current != 1 {
		t.Fatalf("latest = %+v", latest)
	}
}

func TestSlowSubscriberIsDropped(t *testing.T) {
	m := NewMemory(1)
	if _, err := m.Create("s1", nil); err != nil {
		t.Fatalf("Create: %v", err)
	}
	sub, _ := m.Subscribe("s1")

	for i := 1; i <= 3; i++ {
		if err := m.PublishSnapshot("s1", domain.ProgressSnapshot{Current: i, Total: 3}); err != nil {
			t.Fatalf("PublishSnapshot %d: %v", i, err)
		}
	}

	if got := <-sub.Snapshots(); got.Current != 1 {
		t.Fatalf("buffered snapshot = %+v", got)
	}
	if _, open := <-sub.Snapshots(); open {
		t.Fatal("laggard subscription still open")
	}

	// the session itself keeps the newest state
	latest, _ := m.Latest("s1")
	if latest.Current != 3 {
		t.Fatalf("latest = %+v", latest)
	}
}

func TestArtifactLifecycle(t *testing.T) {
	m := NewMemory(0)
	if _, err := m.Create("s1", nil); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := m.Artifact("s1", domain.ModeMinimal); !domain.IsKind(err, domain.ErrArtifactNotReady) {
		t.Fatalf("missing artifact error = %v", err)
	}
	art := domain.Artifact{SessionID: "s1", Mode: domain.ModeMinimal, StorageKey: "sessions/s1/minimal.xlsx", RowCount: 2}
	if err := m.PutArtifact(art); err != nil {
		t.Fatalf("PutArtifact: %v", err)
	}
	got, err := m.Artifact("s1", domain.ModeMinimal)
	if err != nil {
		t.Fatalf("Artifact: %v", err)
	}
	if got.RowCount != 2 || got.StorageKey != art.StorageKey {
		t.Fatalf("artifact = %+v", got)
	}
}

func TestDeleteCancelsAndClosesSubscribers(t *testing.T) {
	m := NewMemory(4)
	if _, err := m.Create("s1", nil); err != nil {
		t.Fatalf("Create: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := m.RegisterCancel("s1", cancel); err != nil {
		t.Fatalf("RegisterCancel: %v", err)
	}
	sub, _ := m.Subscribe("s1")

	m.Delete("s1")

	if _, open := <-sub.Snapshots(); open {
		t.Fatal("subscription survived delete")
	}
	select {
	case <-ctx.Done():
	default:
		t.Fatal("cancel hook not invoked")
	}
	if _, err := m.Get("s1"); !domain.IsKind(err, domain.ErrSessionNotFound) {
		t.Fatalf("session survived delete: %v", err)
	}

	// idempotent
	m.Delete("s1")
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	m := NewMemory(4)
	if _, err := m.Create("s1", nil); err != nil {
		t.Fatalf("Create: %v", err)
	}
	sub, _ := m.Subscribe("s1")
	sub.Close()
	sub.Close()

	if err := m.PublishSnapshot("s1", domain.ProgressSnapshot{Current: 1, Total: 1}); err != nil {
		t.Fatalf("PublishSnapshot after close: %v", err)
	}
}
