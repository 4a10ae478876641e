package ingest

import (
	"context"

	"github.com/canonica-labs/canonica/internal/scoring"
	"github.com/canonica-labs/canonica/internal/storage"
	"github.com/canonica-labs/canonica/pkg/auditmodel"
)

// ScoringProcessor is the production Processor: score the event, persist
// the resulting AuditReport and execution-log entry, and classify any
// failure so the pool knows whether to retry or route straight to DLQ.
type ScoringProcessor struct {
	Engine    *scoring.Engine
	Reports   storage.AuditReportRepository
	Logs      storage.ExecutionLogRepository
}

func (p *ScoringProcessor) Process(ctx context.Context, event *auditmodel.Event) error {
	result, err := scoring.NewExecutionResult(event.RowsAffected, event.ExecutionTimeMs, errMsg(event), event.Timestamp)
	if err != nil {
		return &ProcessError{Class: FailureScoring, Err: err}
	}

	report, err := p.Engine.Score(event, result)
	if err != nil {
		return &ProcessError{Class: FailureScoring, Err: err}
	}

	if err := p.Reports.Save(ctx, report); err != nil {
		return &ProcessError{Class: FailureDownstream, Err: err}
	}

	entry := storage.LogEntryFromResult(event.SqlID, event.SqlType, result)
	if err := p.Logs.LogBatch(ctx, []storage.LogEntry{entry}); err != nil {
		return &ProcessError{Class: FailureDownstream, Err: err}
	}

	return nil
}

func errMsg(event *auditmodel.Event) string {
	if event.ErrorMessage == nil {
		return ""
	}
	return *event.ErrorMessage
}
