package scoring

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/canonica-labs/canonica/internal/risk"
	"github.com/canonica-labs/canonica/internal/sqlast"
	"github.com/canonica-labs/canonica/pkg/auditmodel"
)

// Engine runs the checker catalogue over one (sql, ExecutionResult) pair
// and aggregates the result into an AuditReport. It is independent of
// internal/validate: scoring reasons about what actually happened, not
// about the statement shape alone.
type Engine struct {
	Checkers []Checker
}

// NewEngine builds an Engine from a checker catalogue built by NewCatalogue.
func NewEngine(checkers []Checker) *Engine {
	return &Engine{Checkers: checkers}
}

// Score parses sql once, runs every checker, and aggregates the maximum
// severity across all successful checker results (or Safe if none fired).
// A checker that panics is treated as a scoring-engine bug: its result is
// dropped and an error is returned alongside the partial report, so the
// caller can still persist what succeeded while routing the message
// through the retry-then-DLQ path.
func (e *Engine) Score(event *auditmodel.Event, result *ExecutionResult) (*AuditReport, error) {
	stmt, _ := sqlast.Parse(event.SQL) // a parse failure leaves Statement nil; checkers tolerate that

	ctx := Context{SQL: event.SQL, SqlID: event.SqlID, Statement: stmt, Result: result}

	results := make([]CheckerResult, 0, len(e.Checkers))
	aggregated := risk.Safe
	var firstErr error

	for _, checker := range e.Checkers {
		scores, err := e.runChecker(checker, ctx)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if len(scores) == 0 {
			continue
		}
		results = append(results, CheckerResult{Checker: checker.Name(), Scores: scores})
		for _, s := range scores {
			aggregated = risk.Max(aggregated, s.Severity)
		}
	}

	report := &AuditReport{
		ReportID:           uuid.NewString(),
		SqlID:              event.SqlID,
		OriginalEvent:      event,
		CheckerResults:     results,
		AggregatedSeverity: aggregated,
		CreatedAt:          time.Now().UTC(),
	}
	return report, firstErr
}

func (e *Engine) runChecker(checker Checker, ctx Context) (scores []RiskScore, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("checker %s panicked: %v", checker.Name(), r)
		}
	}()
	return checker.Check(ctx), nil
}
