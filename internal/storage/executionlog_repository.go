package storage

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/canonica-labs/canonica/internal/metrics"
	"github.com/canonica-labs/canonica/internal/scoring"
)

// LogEntry is one execution-log row: the time-series counterpart to an
// AuditReport, used for volume/latency analysis rather than per-statement
// risk lookup.
type LogEntry struct {
	SqlID              string
	SqlType            string
	RowsAffected       int64
	ExecutionTimeMs    int64
	ErrorMessage       string
	ExecutionTimestamp time.Time
}

func LogEntryFromResult(sqlID, sqlType string, r *scoring.ExecutionResult) LogEntry {
	return LogEntry{
		SqlID:              sqlID,
		SqlType:            sqlType,
		RowsAffected:       r.RowsAffected,
		ExecutionTimeMs:    r.ExecutionTimeMs,
		ErrorMessage:       r.ErrorMessage,
		ExecutionTimestamp: r.ExecutionTimestamp,
	}
}

// ExecutionLogRepository is the time-series log store, behind one interface
// with two backends selected by storage.log.backend config: ClickHouse for
// production scale, a relational fallback for deployments without it.
type ExecutionLogRepository interface {
	LogBatch(ctx context.Context, entries []LogEntry) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// ClickHouseConfig configures the ClickHouse connection, grounded on
// datum-cloud-activity's options/TLS/compression setup.
type ClickHouseConfig struct {
	Addr     []string
	Database string
	Username string
	Password string
	Table    string
}

// ClickHouseLogRepository batches writes via conn.PrepareBatch, the
// high-throughput ClickHouse insert path.
type ClickHouseLogRepository struct {
	conn    driver.Conn
	table   string
	metrics *metrics.Registry
}

// NewClickHouseLogRepository opens a ClickHouse connection and verifies
// connectivity before returning.
func NewClickHouseLogRepository(cfg ClickHouseConfig, m *metrics.Registry) (*ClickHouseLogRepository, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: cfg.Addr,
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(context.Background()); err != nil {
		return nil, err
	}
	return &ClickHouseLogRepository{conn: conn, table: cfg.Table, metrics: m}, nil
}

func (r *ClickHouseLogRepository) LogBatch(ctx context.Context, entries []LogEntry) error {
	start := time.Now()
	batch, err := r.conn.PrepareBatch(ctx, "INSERT INTO "+r.table+
		" (sql_id, sql_type, rows_affected, execution_time_ms, error_message, execution_timestamp)")
	if err != nil {
		r.observe(start, err)
		return err
	}
	for _, e := range entries {
		if err := batch.Append(e.SqlID, e.SqlType, e.RowsAffected, e.ExecutionTimeMs, e.ErrorMessage, e.ExecutionTimestamp); err != nil {
			r.observe(start, err)
			return err
		}
	}
	err = batch.Send()
	r.observe(start, err)
	return err
}

func (r *ClickHouseLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	// ClickHouse deletes are async mutations; count is best-effort via a
	// preceding SELECT count() since the ALTER TABLE DELETE itself reports
	// no row count.
	var count uint64
	if err := r.conn.QueryRow(ctx, "SELECT count() FROM "+r.table+" WHERE execution_timestamp < ?", cutoff).Scan(&count); err != nil {
		return 0, err
	}
	if err := r.conn.Exec(ctx, "ALTER TABLE "+r.table+" DELETE WHERE execution_timestamp < ?", cutoff); err != nil {
		return 0, err
	}
	return int64(count), nil
}

func (r *ClickHouseLogRepository) Close() error {
	return r.conn.Close()
}

func (r *ClickHouseLogRepository) observe(start time.Time, err error) {
	if r.metrics == nil {
		return
	}
	r.metrics.WritesTotal.WithLabelValues("execution_log_clickhouse").Inc()
	r.metrics.WriteLatencySeconds.WithLabelValues("execution_log_clickhouse").Observe(time.Since(start).Seconds())
	if err != nil {
		r.metrics.WriteErrorsTotal.WithLabelValues("execution_log_clickhouse").Inc()
	}
}
