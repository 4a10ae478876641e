package storage

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/canonica-labs/canonica/internal/metrics"
)

// RelationalLogRepository is the ExecutionLogRepository fallback for
// deployments without ClickHouse, grounded on PostgresRepository's
// transaction-per-write style, batched via a single multi-row INSERT.
type RelationalLogRepository struct {
	db      *sql.DB
	metrics *metrics.Registry
}

// NewRelationalLogRepository wraps an existing *sql.DB.
func NewRelationalLogRepository(db *sql.DB, m *metrics.Registry) *RelationalLogRepository {
	return &RelationalLogRepository{db: db, metrics: m}
}

func (r *RelationalLogRepository) LogBatch(ctx context.Context, entries []LogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	start := time.Now()

	var sb strings.Builder
	sb.WriteString(`INSERT INTO execution_log (sql_id, sql_type, rows_affected, execution_time_ms, error_message, execution_timestamp) VALUES `)
	args := make([]any, 0, len(entries)*6)
	for i, e := range entries {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 6
		sb.WriteString(placeholders(base+1, 6))
		args = append(args, e.SqlID, e.SqlType, e.RowsAffected, e.ExecutionTimeMs, e.ErrorMessage, e.ExecutionTimestamp)
	}

	_, err := r.db.ExecContext(ctx, sb.String(), args...)
	r.observe(start, err)
	return err
}

func (r *RelationalLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM execution_log WHERE execution_timestamp < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *RelationalLogRepository) observe(start time.Time, err error) {
	if r.metrics == nil {
		return
	}
	r.metrics.WritesTotal.WithLabelValues("execution_log_relational").Inc()
	r.metrics.WriteLatencySeconds.WithLabelValues("execution_log_relational").Observe(time.Since(start).Seconds())
	if err != nil {
		r.metrics.WriteErrorsTotal.WithLabelValues("execution_log_relational").Inc()
	}
}

func placeholders(start, n int) string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteByte('$')
		sb.WriteString(strconv.Itoa(start + i))
	}
	sb.WriteByte(')')
	return sb.String()
}
