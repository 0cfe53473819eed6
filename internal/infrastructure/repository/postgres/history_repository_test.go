package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/velworks/strpdf/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*HistoryRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &HistoryRepository{db: db}, mock, func() { _ = db.Close() }
}

func finishedSession() (*domain.Session, domain.ProgressSnapshot) {
	session := &domain.Session{
		ID:        "s1",
		Status:    domain.SessionCompleted,
		CreatedAt: time.Now().UTC().Add(-time.Minute),
		Files: []domain.SourceFile{
			{Filename: "a.pdf"},
			{Filename: "b.pdf"},
		},
		Records:  []domain.Record{{SourceFile: "a.pdf", Status: domain.ExtractionOK}},
		Failures: []domain.Failure{{Filename: "b.pdf", Error: "boom"}},
	}
	terminal := domain.ProgressSnapshot{
		Current:      2,
		Total:        2,
		Status:       domain.ProgressCompleted,
		Message:      "Completed processing 2 files",
		ElapsedTime:  12.5,
		SuccessCount: domain.IntPtr(1),
		FailedCount:  domain.IntPtr(1),
	}
	return session, terminal
}

func TestSaveOutcomeWritesSummaryAndFileRows(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	session, terminal := finishedSession()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO session_history").
		WithArgs("s1", string(domain.SessionCompleted), 2, 1, 1, terminal.Message, 12.5, session.CreatedAt, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM session_file_history").
		WithArgs("s1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO session_file_history").
		WithArgs("s1", 0, "a.pdf", string(domain.ExtractionOK), "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO session_file_history").
		WithArgs("s1", 1, "b.pdf", "error", "boom").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.SaveOutcome(context.Background(), session, terminal); err != nil {
		t.Fatalf("SaveOutcome: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveOutcomeRollsBackOnInsertFailure(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	session, terminal := finishedSession()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO session_history").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	if err := repo.SaveOutcome(context.Background(), session, terminal); err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestEnsureSchemaCreatesTables(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").
		WithArgs(int64(2026082901)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS session_history").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
