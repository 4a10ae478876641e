// Package audit implements the audit event model and writer (C6): an
// immutable Event built only through Builder, and pluggable sinks (local
// log, Kafka) that are thread-safe and lock-free on the hot path.
package audit

import (
	"crypto/md5"
	"encoding/hex"
	"time"

	"github.com/canonica-labs/canonica/internal/errors"
	"github.com/canonica-labs/canonica/internal/validate"
	"github.com/canonica-labs/canonica/pkg/auditmodel"
)

// clockSkewTolerance bounds how far into the future a supplied timestamp may
// be before construction rejects it, per the AuditEvent invariant.
const clockSkewTolerance = 5 * time.Second

// Builder constructs an immutable auditmodel.Event. sqlId is always derived
// from SQL text and is never settable directly.
type Builder struct {
	sql             string
	sqlType         string
	executionLayer  string
	statementID     *string
	datasource      *string
	params          map[string]any
	executionTimeMs int64
	rowsAffected    int64
	errorMessage    *string
	timestamp       time.Time
	validation      *validate.Result
}

// NewBuilder starts a Builder with the timestamp defaulted to now.
func NewBuilder() *Builder {
	return &Builder{timestamp: time.Now().UTC(), rowsAffected: -1}
}

func (b *Builder) SQL(sql string) *Builder                   { b.sql = sql; return b }
func (b *Builder) SqlType(t string) *Builder                  { b.sqlType = t; return b }
func (b *Builder) ExecutionLayer(l string) *Builder           { b.executionLayer = l; return b }
func (b *Builder) StatementID(id string) *Builder             { b.statementID = &id; return b }
func (b *Builder) Datasource(ds string) *Builder               { b.datasource = &ds; return b }
func (b *Builder) Params(p map[string]any) *Builder            { b.params = p; return b }
func (b *Builder) ExecutionTimeMs(ms int64) *Builder           { b.executionTimeMs = ms; return b }
func (b *Builder) RowsAffected(n int64) *Builder               { b.rowsAffected = n; return b }
func (b *Builder) ErrorMessage(msg string) *Builder            { b.errorMessage = &msg; return b }
func (b *Builder) Timestamp(t time.Time) *Builder              { b.timestamp = t; return b }
func (b *Builder) Validation(r *validate.Result) *Builder      { b.validation = r; return b }

// Build validates the required-fields and range invariants and returns the
// immutable wire Event, with sqlId derived as md5Hex(sql).
func (b *Builder) Build() (*auditmodel.Event, error) {
	if b.sql == "" {
		return nil, errors.NewInvalidAuditEvent("sql", "sql is required to build an AuditEvent")
	}
	if b.sqlType == "" || b.executionLayer == "" {
		return nil, errors.NewInvalidAuditEvent("sqlType/executionLayer", "sqlType and executionLayer are required")
	}
	if b.rowsAffected < -1 {
		return nil, errors.NewInvalidAuditEvent("rowsAffected", "must be >= -1")
	}
	if b.executionTimeMs < 0 {
		return nil, errors.NewInvalidAuditEvent("executionTimeMs", "must be >= 0")
	}
	if b.timestamp.After(time.Now().Add(clockSkewTolerance)) {
		return nil, errors.NewInvalidAuditEvent("timestamp", "timestamp is further in the future than the clock-skew tolerance allows")
	}

	var vr *auditmodel.ValidationResult
	if b.validation != nil {
		vr = toWireResult(b.validation)
	}

	return &auditmodel.Event{
		SqlID:               sqlID(b.sql),
		SQL:                 b.sql,
		SqlType:             b.sqlType,
		ExecutionLayer:       b.executionLayer,
		StatementID:          b.statementID,
		Datasource:           b.datasource,
		Params:               b.params,
		ExecutionTimeMs:      b.executionTimeMs,
		RowsAffected:         b.rowsAffected,
		ErrorMessage:         b.errorMessage,
		Timestamp:            b.timestamp,
		PreValidationResult: vr,
	}, nil
}

// sqlID computes the MD5-hex fingerprint used as AuditEvent.sqlId.
func sqlID(sql string) string {
	sum := md5.Sum([]byte(sql))
	return hex.EncodeToString(sum[:])
}

func toWireResult(r *validate.Result) *auditmodel.ValidationResult {
	violations := make([]auditmodel.Violation, 0, len(r.Violations))
	for _, v := range r.Violations {
		violations = append(violations, auditmodel.Violation{
			RiskLevel:  v.RiskLevel.String(),
			Message:    v.Message,
			Suggestion: v.Suggestion,
		})
	}
	return &auditmodel.ValidationResult{
		Violations: violations,
		RiskLevel:  r.RiskLevel.String(),
		Passed:     r.Passed,
	}
}
