// Package errors provides explicit, human-readable error types for canonica.
// All errors must include a Reason and Suggestion for actionable feedback.
//
// Per docs/plan.md: "Errors must be understandable. If you can't explain the failure, don't ship."
package errors

import (
	"fmt"
)

// CanonicError is the base error type for all canonica errors.
// Every error must provide a human-readable reason and suggestion.
type CanonicError struct {
	Code       ErrorCode
	Message    string
	Reason     string
	Suggestion string
	Cause      error
}

// ErrorCode represents the category of error for exit code mapping.
type ErrorCode int

const (
	CodeValidation ErrorCode = 1
	CodeAuth       ErrorCode = 2
	CodeEngine     ErrorCode = 3
	CodeInternal   ErrorCode = 4
)

func (e *CanonicError) Error() string {
	msg := e.Message
	if e.Reason != "" {
		msg = fmt.Sprintf("%s\nReason: %s", msg, e.Reason)
	}
	if e.Suggestion != "" {
		msg = fmt.Sprintf("%s\nSuggestion: %s", msg, e.Suggestion)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s\nCaused by: %v", msg, e.Cause)
	}
	return msg
}

func (e *CanonicError) Unwrap() error {
	return e.Cause
}

// ErrQueryRejected is returned when a query is rejected before execution.
type ErrQueryRejected struct {
	CanonicError
	Query string
}

// NewQueryRejected creates a new ErrQueryRejected.
func NewQueryRejected(query, reason, suggestion string) *ErrQueryRejected {
	return &ErrQueryRejected{
		CanonicError: CanonicError{
			Code:       CodeValidation,
			Message:    "query rejected",
			Reason:     reason,
			Suggestion: suggestion,
		},
		Query: query,
	}
}

// ErrMigrationFailed is returned when a database migration fails.
// Per execution-checklist.md 4.4: Gateway fails startup on migration failure.
type ErrMigrationFailed struct {
	CanonicError
	Migration string
}

// NewMigrationFailed creates an error for migration failures.
func NewMigrationFailed(migration string, cause error) *ErrMigrationFailed {
	return &ErrMigrationFailed{
		CanonicError: CanonicError{
			Code:       CodeInternal,
			Message:    fmt.Sprintf("migration failed: %s", migration),
			Reason:     cause.Error(),
			Suggestion: "check database connection and migration file syntax",
			Cause:      cause,
		},
		Migration: migration,
	}
}

// ErrValidationBlocked is returned when the BLOCK strategy prevents an
// outgoing statement from executing.
type ErrValidationBlocked struct {
	CanonicError
	SqlID     string
	RiskLevel string
	Checker   string
}

// NewValidationBlocked creates an error for a BLOCK-strategy rejection.
func NewValidationBlocked(sqlID, riskLevel, checker, violation string) *ErrValidationBlocked {
	return &ErrValidationBlocked{
		CanonicError: CanonicError{
			Code:       CodeValidation,
			Message:    "statement blocked by validation policy",
			Reason:     fmt.Sprintf("%s: %s (risk=%s)", checker, violation, riskLevel),
			Suggestion: "adjust the query or request an escape-hatch exemption",
		},
		SqlID:     sqlID,
		RiskLevel: riskLevel,
		Checker:   checker,
	}
}

// ErrIngestionFailed is returned when a consumed audit message cannot be
// durably persisted after retries and must be routed to the dead-letter queue.
type ErrIngestionFailed struct {
	CanonicError
	Topic     string
	Partition int
	Offset    int64
}

// NewIngestionFailed creates an error describing a DLQ-bound message.
func NewIngestionFailed(topic string, partition int, offset int64, cause error) *ErrIngestionFailed {
	return &ErrIngestionFailed{
		CanonicError: CanonicError{
			Code:       CodeInternal,
			Message:    fmt.Sprintf("failed to persist message from %s", topic),
			Reason:     cause.Error(),
			Suggestion: "inspect the dead-letter queue for the failed payload",
			Cause:      cause,
		},
		Topic:     topic,
		Partition: partition,
		Offset:    offset,
	}
}

// ErrInvalidAuditEvent is returned when an AuditEvent fails a construction
// invariant (required field missing, or a value out of its allowed range).
type ErrInvalidAuditEvent struct {
	CanonicError
	Field string
}

// NewInvalidAuditEvent creates an error for a failed AuditEvent invariant.
func NewInvalidAuditEvent(field, reason string) *ErrInvalidAuditEvent {
	return &ErrInvalidAuditEvent{
		CanonicError: CanonicError{
			Code:       CodeValidation,
			Message:    "invalid audit event",
			Reason:     fmt.Sprintf("field '%s': %s", field, reason),
			Suggestion: "fix the builder call that produced this event",
		},
		Field: field,
	}
}

// ErrStorageConflict is returned when an idempotent upsert detects a
// conflicting prior record that cannot be reconciled automatically.
type ErrStorageConflict struct {
	CanonicError
	ReportID string
}

// NewStorageConflict creates an error for an unreconcilable report conflict.
func NewStorageConflict(reportID string, cause error) *ErrStorageConflict {
	return &ErrStorageConflict{
		CanonicError: CanonicError{
			Code:       CodeInternal,
			Message:    fmt.Sprintf("storage conflict for report %s", reportID),
			Reason:     cause.Error(),
			Suggestion: "check for duplicate report IDs or a clock skew between producers",
			Cause:      cause,
		},
		ReportID: reportID,
	}
}

// ErrReportNotFound is returned when a lookup finds no record for the
// given report ID. Distinct from ErrStorageConflict: an absent record is
// not a write conflict, it is simply not there.
type ErrReportNotFound struct {
	CanonicError
	ReportID string
}

// NewReportNotFound creates an error for a FindByID miss.
func NewReportNotFound(reportID string) *ErrReportNotFound {
	return &ErrReportNotFound{
		CanonicError: CanonicError{
			Code:       CodeValidation,
			Message:    fmt.Sprintf("no audit report found for id %s", reportID),
			Reason:     "no row exists for this report ID",
			Suggestion: "verify the report ID, or check whether retention has already deleted it",
		},
		ReportID: reportID,
	}
}

// ErrInvalidExecutionResult is returned when an ExecutionResult is
// constructed with a value outside its invariants.
type ErrInvalidExecutionResult struct {
	CanonicError
	Field string
}

// NewInvalidExecutionResult creates an error for a failed ExecutionResult invariant.
func NewInvalidExecutionResult(field, reason string) *ErrInvalidExecutionResult {
	return &ErrInvalidExecutionResult{
		CanonicError: CanonicError{
			Code:       CodeValidation,
			Message:    "invalid execution result",
			Reason:     fmt.Sprintf("field '%s': %s", field, reason),
			Suggestion: "check the caller populating the ExecutionResult",
		},
		Field: field,
	}
}
