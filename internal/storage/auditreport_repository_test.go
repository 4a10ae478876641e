package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlerrors "github.com/canonica-labs/canonica/internal/errors"
	"github.com/canonica-labs/canonica/internal/risk"
	"github.com/canonica-labs/canonica/internal/scoring"
	"github.com/canonica-labs/canonica/pkg/auditmodel"

	"github.com/DATA-DOG/go-sqlmock"
)

func newReportRepoMock(t *testing.T) (*PostgresAuditReportRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPostgresAuditReportRepository(db, nil), mock
}

func sampleReport() *scoring.AuditReport {
	return &scoring.AuditReport{
		ReportID: "report-1",
		SqlID:    "sql-1",
		OriginalEvent: &auditmodel.Event{
			SqlID:   "sql-1",
			SQL:     "DELETE FROM orders",
			SqlType: "DELETE",
			Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		CheckerResults: []scoring.CheckerResult{
			{Checker: "MissingWhereChecker", Scores: []scoring.RiskScore{{Severity: risk.Critical, Justification: "no WHERE clause"}}},
		},
		AggregatedSeverity: risk.Critical,
		CreatedAt:          time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// TestPostgresAuditReportRepositorySaveUpsertsOnConflict covers spec
// §8.8/§8.10's idempotent re-delivery path: a re-save of the same reportId
// must issue the ON CONFLICT ... DO UPDATE statement, not a plain insert
// that would fail on the duplicate primary key.
func TestPostgresAuditReportRepositorySaveUpsertsOnConflict(t *testing.T) {
	repo, mock := newReportRepoMock(t)
	report := sampleReport()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_reports")).
		WithArgs(report.ReportID, report.SqlID, sqlmock.AnyArg(), sqlmock.AnyArg(), report.AggregatedSeverity.String(), report.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Save(context.Background(), report); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresAuditReportRepositorySaveWrapsDriverErrorAsStorageConflict(t *testing.T) {
	repo, mock := newReportRepoMock(t)
	report := sampleReport()
	driverErr := errors.New("deadlock detected")

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_reports")).
		WillReturnError(driverErr)

	err := repo.Save(context.Background(), report)
	if err == nil {
		t.Fatal("expected an error")
	}
	var conflict *sqlerrors.ErrStorageConflict
	if !errors.As(err, &conflict) {
		t.Fatalf("err = %T, want *errors.ErrStorageConflict", err)
	}
	if conflict.ReportID != report.ReportID {
		t.Errorf("ReportID = %q, want %q", conflict.ReportID, report.ReportID)
	}
}

func TestPostgresAuditReportRepositoryFindByIDReturnsReport(t *testing.T) {
	repo, mock := newReportRepoMock(t)
	report := sampleReport()
	eventJSON, _ := json.Marshal(report.OriginalEvent)
	checkersJSON, _ := json.Marshal(report.CheckerResults)

	rows := sqlmock.NewRows([]string{"report_id", "sql_id", "original_event", "checker_results", "aggregated_severity", "created_at"}).
		AddRow(report.ReportID, report.SqlID, eventJSON, checkersJSON, report.AggregatedSeverity.String(), report.CreatedAt)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT report_id, sql_id, original_event, checker_results, aggregated_severity, created_at")).
		WithArgs(report.ReportID).
		WillReturnRows(rows)

	got, err := repo.FindByID(context.Background(), report.ReportID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.ReportID != report.ReportID || got.SqlID != report.SqlID {
		t.Errorf("got = %+v", got)
	}
}

// TestPostgresAuditReportRepositoryFindByIDReturnsNotFoundNotConflict is the
// regression test for the sql.ErrNoRows mis-mapping: a missing record is a
// not-found condition, never a write conflict.
func TestPostgresAuditReportRepositoryFindByIDReturnsNotFoundNotConflict(t *testing.T) {
	repo, mock := newReportRepoMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT report_id, sql_id, original_event, checker_results, aggregated_severity, created_at")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected an error for a missing report")
	}
	var notFound *sqlerrors.ErrReportNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("err = %T, want *errors.ErrReportNotFound", err)
	}
	var conflict *sqlerrors.ErrStorageConflict
	if errors.As(err, &conflict) {
		t.Fatal("a missing record must never surface as ErrStorageConflict")
	}
}

func TestPostgresAuditReportRepositoryFindByTimeRangeReturnsAllMatches(t *testing.T) {
	repo, mock := newReportRepoMock(t)
	report := sampleReport()
	eventJSON, _ := json.Marshal(report.OriginalEvent)
	checkersJSON, _ := json.Marshal(report.CheckerResults)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"report_id", "sql_id", "original_event", "checker_results", "aggregated_severity", "created_at"}).
		AddRow(report.ReportID, report.SqlID, eventJSON, checkersJSON, report.AggregatedSeverity.String(), report.CreatedAt)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT report_id, sql_id, original_event, checker_results, aggregated_severity, created_at")).
		WithArgs(start, end).
		WillReturnRows(rows)

	got, err := repo.FindByTimeRange(context.Background(), start, end)
	if err != nil {
		t.Fatalf("FindByTimeRange: %v", err)
	}
	if len(got) != 1 || got[0].ReportID != report.ReportID {
		t.Errorf("got = %+v", got)
	}
}

func TestPostgresAuditReportRepositoryDeleteOlderThanReturnsRowCount(t *testing.T) {
	repo, mock := newReportRepoMock(t)
	cutoff := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM audit_reports WHERE created_at < $1")).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 5))

	n, err := repo.DeleteOlderThan(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("DeleteOlderThan: %v", err)
	}
	if n != 5 {
		t.Errorf("n = %d, want 5", n)
	}
}
