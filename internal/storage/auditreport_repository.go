package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/canonica-labs/canonica/internal/errors"
	"github.com/canonica-labs/canonica/internal/metrics"
	"github.com/canonica-labs/canonica/internal/risk"
	"github.com/canonica-labs/canonica/internal/scoring"
)

// AuditReportRepository persists scoring.AuditReport records to the
// relational metadata store, grounded on PostgresRepository's
// transaction-per-write style but generalized to an idempotent upsert.
type AuditReportRepository interface {
	Save(ctx context.Context, report *scoring.AuditReport) error
	FindByID(ctx context.Context, reportID string) (*scoring.AuditReport, error)
	FindByTimeRange(ctx context.Context, start, end time.Time) ([]*scoring.AuditReport, error)
}

// PostgresAuditReportRepository is the production AuditReportRepository.
type PostgresAuditReportRepository struct {
	db      *sqlx.DB
	metrics *metrics.Registry
}

// NewPostgresAuditReportRepository wraps an existing *sql.DB with sqlx.
func NewPostgresAuditReportRepository(db *sql.DB, m *metrics.Registry) *PostgresAuditReportRepository {
	return &PostgresAuditReportRepository{db: sqlx.NewDb(db, "postgres"), metrics: m}
}

type auditReportRow struct {
	ReportID            string    `db:"report_id"`
	SqlID               string    `db:"sql_id"`
	OriginalEvent       []byte    `db:"original_event"`
	CheckerResults      []byte    `db:"checker_results"`
	AggregatedSeverity  string    `db:"aggregated_severity"`
	CreatedAt           time.Time `db:"created_at"`
}

// Save upserts by reportId: idempotent re-delivery from the consumer's
// at-least-once retry path must not create duplicate rows, grounded on the
// Credo store's ON CONFLICT idiom, generalized to DO UPDATE since a report
// re-save after a retried commit must still be reachable by reportId.
func (r *PostgresAuditReportRepository) Save(ctx context.Context, report *scoring.AuditReport) error {
	start := time.Now()
	eventJSON, err := json.Marshal(report.OriginalEvent)
	if err != nil {
		return err
	}
	checkersJSON, err := json.Marshal(report.CheckerResults)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO audit_reports (report_id, sql_id, original_event, checker_results, aggregated_severity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (report_id) DO UPDATE SET
			original_event = EXCLUDED.original_event,
			checker_results = EXCLUDED.checker_results,
			aggregated_severity = EXCLUDED.aggregated_severity,
			updated_at = NOW()
	`, report.ReportID, report.SqlID, eventJSON, checkersJSON, report.AggregatedSeverity.String(), report.CreatedAt)

	r.observe("audit_reports", start, err)
	if err != nil {
		return errors.NewStorageConflict(report.ReportID, err)
	}
	return nil
}

// FindByID retrieves one report by its primary key.
func (r *PostgresAuditReportRepository) FindByID(ctx context.Context, reportID string) (*scoring.AuditReport, error) {
	var row auditReportRow
	err := r.db.GetContext(ctx, &row, `
		SELECT report_id, sql_id, original_event, checker_results, aggregated_severity, created_at
		FROM audit_reports WHERE report_id = $1
	`, reportID)
	if err == sql.ErrNoRows {
		return nil, errors.NewReportNotFound(reportID)
	}
	if err != nil {
		return nil, err
	}
	return rowToReport(row)
}

// FindByTimeRange retrieves all reports created within [start, end).
func (r *PostgresAuditReportRepository) FindByTimeRange(ctx context.Context, start, end time.Time) ([]*scoring.AuditReport, error) {
	var rows []auditReportRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT report_id, sql_id, original_event, checker_results, aggregated_severity, created_at
		FROM audit_reports WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at
	`, start, end)
	if err != nil {
		return nil, err
	}
	reports := make([]*scoring.AuditReport, 0, len(rows))
	for _, row := range rows {
		report, err := rowToReport(row)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// DeleteOlderThan removes reports created before cutoff, used by the
// retention scheduler.
func (r *PostgresAuditReportRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM audit_reports WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *PostgresAuditReportRepository) observe(store string, start time.Time, err error) {
	if r.metrics == nil {
		return
	}
	r.metrics.WritesTotal.WithLabelValues(store).Inc()
	r.metrics.WriteLatencySeconds.WithLabelValues(store).Observe(time.Since(start).Seconds())
	if err != nil {
		r.metrics.WriteErrorsTotal.WithLabelValues(store).Inc()
	}
}

func rowToReport(row auditReportRow) (*scoring.AuditReport, error) {
	report := &scoring.AuditReport{
		ReportID:  row.ReportID,
		SqlID:     row.SqlID,
		CreatedAt: row.CreatedAt,
	}
	if err := json.Unmarshal(row.OriginalEvent, &report.OriginalEvent); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(row.CheckerResults, &report.CheckerResults); err != nil {
		return nil, err
	}
	severity, err := risk.ParseLevel(row.AggregatedSeverity)
	if err != nil {
		return nil, err
	}
	report.AggregatedSeverity = severity
	return report, nil
}
