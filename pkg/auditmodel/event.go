// Package auditmodel defines the wire-level AuditEvent and ValidationResult
// JSON schema shared between the interceptor chain, the Kafka topics, and
// the ingestion service. Field names and null-handling are fixed by the
// external interface contract — do not rename without updating the schema
// documented alongside it.
package auditmodel

import "time"

// Violation mirrors validate.Violation on the wire.
type Violation struct {
	RiskLevel  string `json:"riskLevel"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// ValidationResult mirrors validate.Result on the wire.
type ValidationResult struct {
	Violations []Violation `json:"violations"`
	RiskLevel  string      `json:"riskLevel"`
	Passed     bool        `json:"passed"`
}

// Event is the audit record emitted by the interceptor chain, consumed by
// the Kafka pipeline, and stored by the log-store adapter.
type Event struct {
	SqlID             string             `json:"sqlId"`
	SQL               string             `json:"sql"`
	SqlType           string             `json:"sqlType"`
	ExecutionLayer    string             `json:"executionLayer"`
	StatementID       *string            `json:"statementId"`
	Datasource        *string            `json:"datasource"`
	Params            map[string]any     `json:"params"`
	ExecutionTimeMs   int64              `json:"executionTimeMs"`
	RowsAffected      int64              `json:"rowsAffected"`
	ErrorMessage      *string            `json:"errorMessage"`
	Timestamp         time.Time          `json:"timestamp"`
	PreValidationResult *ValidationResult `json:"violations"`
}
