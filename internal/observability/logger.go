// Package observability provides structured logging for the validation
// orchestrator and interceptor chain. Every validated statement must emit:
// sqlId, risk level, checkers that fired, the strategy applied, and the
// outcome (allowed, blocked, error).
package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

// ValidationLogEntry contains every field a validation decision must log.
type ValidationLogEntry struct {
	// SqlID is the MD5 fingerprint of the validated statement. Required.
	SqlID string

	// ExecutionLayer identifies the data-access layer the statement came
	// through (MYBATIS, JDBC, JPA, SPRING_DATA).
	ExecutionLayer string

	// CheckersFired lists the checker names that raised a violation.
	CheckersFired []string

	// RiskLevel is the aggregated result severity (SAFE..CRITICAL).
	RiskLevel string

	// Strategy is the action taken (LOG, WARN, BLOCK).
	Strategy string

	// ValidationTime is how long Validate took. Must be non-negative.
	ValidationTime time.Duration

	// Outcome is "allowed", "blocked", or "error".
	Outcome string

	// Error contains the error message if validation or the strategy
	// itself failed. Empty string otherwise.
	Error string
}

// Validate checks that all required fields are present.
func (e *ValidationLogEntry) Validate() error {
	if e.SqlID == "" {
		return fmt.Errorf("observability: sql_id is required")
	}
	if e.ValidationTime < 0 {
		return fmt.Errorf("observability: validation_time cannot be negative")
	}
	return nil
}

// ValidationLogger is the interface for validation decision logging.
type ValidationLogger interface {
	// LogValidation logs one Validate+ApplyStrategy decision.
	LogValidation(ctx context.Context, entry ValidationLogEntry) error

	// GetAuditSummary returns aggregated statistics, never raw entries.
	GetAuditSummary() *AuditSummary
}

// AuditSummary represents aggregated audit statistics; raw per-query data
// is never exposed through this type.
type AuditSummary struct {
	AllowedCount       int                `json:"allowed_count"`
	BlockedCount       int                `json:"blocked_count"`
	TopViolatedCheckers []CheckerStat     `json:"top_violated_checkers"`
	TopRiskLevels      []RiskLevelStat    `json:"top_risk_levels"`
}

// CheckerStat counts how often a checker fired.
type CheckerStat struct {
	Checker string `json:"checker"`
	Count   int    `json:"count"`
}

// RiskLevelStat counts how often a risk level was the aggregated result.
type RiskLevelStat struct {
	RiskLevel string `json:"risk_level"`
	Count     int    `json:"count"`
}

// jsonLogOutput is the structured JSON log line format.
type jsonLogOutput struct {
	Timestamp      string   `json:"timestamp"`
	Level          string   `json:"level"`
	SqlID          string   `json:"sql_id"`
	ExecutionLayer string   `json:"execution_layer,omitempty"`
	CheckersFired  []string `json:"checkers_fired"`
	RiskLevel      string   `json:"risk_level"`
	Strategy       string   `json:"strategy,omitempty"`
	ValidationMs   int64    `json:"validation_time_ms"`
	Outcome        string   `json:"outcome,omitempty"`
	Error          string   `json:"error,omitempty"`
}

func toOutput(entry ValidationLogEntry) jsonLogOutput {
	level := "info"
	if entry.Error != "" {
		level = "error"
	}
	checkers := entry.CheckersFired
	if checkers == nil {
		checkers = []string{}
	}
	return jsonLogOutput{
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		Level:          level,
		SqlID:          entry.SqlID,
		ExecutionLayer: entry.ExecutionLayer,
		CheckersFired:  checkers,
		RiskLevel:      entry.RiskLevel,
		Strategy:       entry.Strategy,
		ValidationMs:   entry.ValidationTime.Milliseconds(),
		Outcome:        entry.Outcome,
		Error:          entry.Error,
	}
}

// JSONLogger implements ValidationLogger with JSON-lines output.
type JSONLogger struct {
	writer  io.Writer
	entries []ValidationLogEntry
	mu      sync.RWMutex
}

// NewJSONLogger creates a new JSON logger writing to the given writer.
func NewJSONLogger(w io.Writer) *JSONLogger {
	return &JSONLogger{writer: w, entries: make([]ValidationLogEntry, 0)}
}

// LogValidation logs a validation decision as one JSON line.
func (l *JSONLogger) LogValidation(ctx context.Context, entry ValidationLogEntry) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("observability: context error: %w", err)
	}
	if err := entry.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(toOutput(entry))
	if err != nil {
		return fmt.Errorf("observability: failed to marshal log: %w", err)
	}
	data = append(data, '\n')
	if _, err := l.writer.Write(data); err != nil {
		return fmt.Errorf("observability: failed to write log: %w", err)
	}

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
	return nil
}

// GetAuditSummary returns aggregated audit statistics; no raw entries are
// exposed by this method.
func (l *JSONLogger) GetAuditSummary() *AuditSummary {
	l.mu.RLock()
	defer l.mu.RUnlock()

	summary := &AuditSummary{
		TopViolatedCheckers: []CheckerStat{},
		TopRiskLevels:       []RiskLevelStat{},
	}

	checkerCounts := make(map[string]int)
	riskCounts := make(map[string]int)

	for _, entry := range l.entries {
		if entry.Outcome == "blocked" {
			summary.BlockedCount++
		} else {
			summary.AllowedCount++
		}
		for _, checker := range entry.CheckersFired {
			checkerCounts[checker]++
		}
		riskCounts[entry.RiskLevel]++
	}

	for checker, count := range checkerCounts {
		summary.TopViolatedCheckers = append(summary.TopViolatedCheckers, CheckerStat{Checker: checker, Count: count})
	}
	sort.Slice(summary.TopViolatedCheckers, func(i, j int) bool {
		return summary.TopViolatedCheckers[i].Count > summary.TopViolatedCheckers[j].Count
	})
	if len(summary.TopViolatedCheckers) > 5 {
		summary.TopViolatedCheckers = summary.TopViolatedCheckers[:5]
	}

	for level, count := range riskCounts {
		summary.TopRiskLevels = append(summary.TopRiskLevels, RiskLevelStat{RiskLevel: level, Count: count})
	}
	sort.Slice(summary.TopRiskLevels, func(i, j int) bool {
		return summary.TopRiskLevels[i].Count > summary.TopRiskLevels[j].Count
	})

	return summary
}

// NoopLogger discards all logs. Useful for testing or when disabled.
type NoopLogger struct{}

// NewNoopLogger creates a new no-op logger.
func NewNoopLogger() *NoopLogger { return &NoopLogger{} }

func (l *NoopLogger) LogValidation(ctx context.Context, entry ValidationLogEntry) error { return nil }

func (l *NoopLogger) GetAuditSummary() *AuditSummary {
	return &AuditSummary{TopViolatedCheckers: []CheckerStat{}, TopRiskLevels: []RiskLevelStat{}}
}

// PersistentLogger implements ValidationLogger with PostgreSQL persistence,
// so validation decisions survive a restart of the validating service.
type PersistentLogger struct {
	db     *sql.DB
	mu     sync.RWMutex
	writer io.Writer // optional: also write JSON lines for local debugging
}

// NewPersistentLogger creates a logger that persists entries to PostgreSQL.
func NewPersistentLogger(db *sql.DB) (*PersistentLogger, error) {
	if db == nil {
		return nil, fmt.Errorf("observability: database connection is required for persistent logging")
	}
	return &PersistentLogger{db: db}, nil
}

// NewPersistentLoggerWithWriter creates a logger that persists to both DB
// and a writer.
func NewPersistentLoggerWithWriter(db *sql.DB, w io.Writer) (*PersistentLogger, error) {
	if db == nil {
		return nil, fmt.Errorf("observability: database connection is required for persistent logging")
	}
	return &PersistentLogger{db: db, writer: w}, nil
}

// LogValidation persists a validation decision to the validation_logs table.
func (l *PersistentLogger) LogValidation(ctx context.Context, entry ValidationLogEntry) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("observability: context error: %w", err)
	}
	if err := entry.Validate(); err != nil {
		return err
	}

	checkersJSON, err := json.Marshal(entry.CheckersFired)
	if err != nil {
		checkersJSON = []byte("[]")
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO validation_logs (
			sql_id, execution_layer, checkers_fired_json, risk_level,
			strategy, validation_time_ms, outcome, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		entry.SqlID,
		nullableString(entry.ExecutionLayer),
		checkersJSON,
		entry.RiskLevel,
		nullableString(entry.Strategy),
		entry.ValidationTime.Milliseconds(),
		nullableString(entry.Outcome),
		nullableString(entry.Error),
	)
	if err != nil {
		return fmt.Errorf("observability: failed to persist validation log: %w", err)
	}

	if l.writer != nil {
		if data, err := json.Marshal(toOutput(entry)); err == nil {
			l.writer.Write(data)
			l.writer.Write([]byte("\n"))
		}
	}
	return nil
}

// GetAuditSummary returns aggregated audit statistics from the database.
func (l *PersistentLogger) GetAuditSummary() *AuditSummary {
	summary := &AuditSummary{
		TopViolatedCheckers: []CheckerStat{},
		TopRiskLevels:       []RiskLevelStat{},
	}

	ctx := context.Background()

	row := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM validation_logs WHERE outcome != 'blocked'`)
	row.Scan(&summary.AllowedCount)

	row = l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM validation_logs WHERE outcome = 'blocked'`)
	row.Scan(&summary.BlockedCount)

	rows, err := l.db.QueryContext(ctx, `
		SELECT risk_level, COUNT(*) as cnt FROM validation_logs
		GROUP BY risk_level ORDER BY cnt DESC LIMIT 5
	`)
	if err == nil {
		defer rows.Close()
		for rows.Next() {
			var level string
			var count int
			if rows.Scan(&level, &count) == nil {
				summary.TopRiskLevels = append(summary.TopRiskLevels, RiskLevelStat{RiskLevel: level, Count: count})
			}
		}
	}

	rows, err = l.db.QueryContext(ctx, `
		SELECT checker, COUNT(*) as cnt
		FROM validation_logs, jsonb_array_elements_text(checkers_fired_json) as checker
		GROUP BY checker ORDER BY cnt DESC LIMIT 5
	`)
	if err == nil {
		defer rows.Close()
		for rows.Next() {
			var checker string
			var count int
			if rows.Scan(&checker, &count) == nil {
				summary.TopViolatedCheckers = append(summary.TopViolatedCheckers, CheckerStat{Checker: checker, Count: count})
			}
		}
	}

	return summary
}

// nullableString converts empty strings to nil for SQL NULL.
func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
