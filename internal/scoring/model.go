// Package scoring implements the post-execution scoring engine (C8):
// independent of internal/rules, it consumes (sql, ExecutionResult) pairs
// and produces an AuditReport via a catalogue of stateless-or-windowed
// checkers.
package scoring

import (
	"time"

	"github.com/canonica-labs/canonica/internal/errors"
	"github.com/canonica-labs/canonica/internal/risk"
	"github.com/canonica-labs/canonica/pkg/auditmodel"
)

// ExecutionResult is the post-execution observation a checker scores.
// Construction invariants (rowsAffected >= -1, executionTimeMs >= 0) are
// enforced by NewExecutionResult.
type ExecutionResult struct {
	RowsAffected       int64
	ResultSetSize      int64
	ExecutionTimeMs    int64
	ErrorMessage       string
	ExecutionTimestamp time.Time
	Metrics            map[string]float64
}

// NewExecutionResult validates the construction invariants spec §4.2 fixes
// for ExecutionResult.
func NewExecutionResult(rowsAffected, executionTimeMs int64, errorMessage string, ts time.Time) (*ExecutionResult, error) {
	if rowsAffected < -1 {
		return nil, errors.NewInvalidExecutionResult("rowsAffected", "must be >= -1")
	}
	if executionTimeMs < 0 {
		return nil, errors.NewInvalidExecutionResult("executionTimeMs", "must be >= 0")
	}
	return &ExecutionResult{
		RowsAffected:       rowsAffected,
		ExecutionTimeMs:    executionTimeMs,
		ErrorMessage:       errorMessage,
		ExecutionTimestamp: ts,
		Metrics:            map[string]float64{},
	}, nil
}

// RiskScore is the triple a post-execution checker emits.
type RiskScore struct {
	Severity      risk.Level
	Confidence    float64 // 0 when not applicable
	Justification string
}

// CheckerResult pairs a checker's name with the scores it produced, so an
// AuditReport can show its work.
type CheckerResult struct {
	Checker string
	Scores  []RiskScore
}

// AuditReport is the scoring engine's output, handed to the metadata store.
type AuditReport struct {
	ReportID           string
	SqlID              string
	OriginalEvent      *auditmodel.Event
	CheckerResults     []CheckerResult
	AggregatedSeverity risk.Level
	CreatedAt          time.Time
}
