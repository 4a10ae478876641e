// Package validate implements the validation orchestrator (parse-once,
// deduplicate, dispatch to the rule checker catalogue, aggregate) over a
// single SqlContext.
package validate

import (
	"crypto/md5"
	"encoding/hex"

	"github.com/canonica-labs/canonica/internal/risk"
	"github.com/canonica-labs/canonica/internal/sqlast"
)

// Violation is one checker's verdict on a statement.
type Violation struct {
	RiskLevel  risk.Level
	Message    string
	Suggestion string
}

// Equal compares violations by riskLevel and message only, per the data
// model's value semantics for ViolationInfo.
func (v Violation) Equal(other Violation) bool {
	return v.RiskLevel == other.RiskLevel && v.Message == other.Message
}

// Result aggregates checker violations for one statement. Monotonic:
// AddViolation never lowers RiskLevel and never flips Passed from
// false back to true.
type Result struct {
	Violations []Violation
	RiskLevel  risk.Level
	Passed     bool
}

// NewResult returns a fresh, passing result at SAFE.
func NewResult() *Result {
	return &Result{RiskLevel: risk.Safe, Passed: true}
}

// AddViolation folds one violation into the result.
func (r *Result) AddViolation(v Violation) {
	r.Violations = append(r.Violations, v)
	r.RiskLevel = risk.Max(r.RiskLevel, v.RiskLevel)
	if v.RiskLevel > risk.Safe {
		r.Passed = false
	}
}

// Merge folds another result's violations into r.
func (r *Result) Merge(other *Result) {
	for _, v := range other.Violations {
		r.AddViolation(v)
	}
}

// SqlContext is the immutable-once-set carrier for one validation attempt.
// Statement is parsed once per invocation and cleared to nil by the
// interceptor Chain when that invocation ends; RawSQL is never
// rewritten here (only rewrite interceptors, outside this package, may
// replace outgoing SQL, in their own field).
type SqlContext struct {
	RawSQL         string
	Statement      *sqlast.ParsedStatement
	CommandType    risk.OperationType
	ExecutionLayer risk.ExecutionLayer
	StatementID    string // mapper method ID / JDBC frame / empty
	Params         map[string]any
	Datasource     string
	PaginationHint *PaginationHint
	PaginationType PaginationType
}

// PaginationHint describes a runtime pagination parameter object observed by
// the host (e.g. a RowBounds-shaped argument), independent of SQL text.
type PaginationHint struct {
	ClassNameHint string
	Offset        int
	Limit         int
	IsDefault     bool
}

// PaginationType is the C4 classification outcome.
type PaginationType string

const (
	PaginationNone     PaginationType = "NONE"
	PaginationPhysical PaginationType = "PHYSICAL"
	PaginationLogical  PaginationType = "LOGICAL"
)

// Fingerprint returns the MD5 fingerprint (sqlId) of the context's raw SQL.
func (c *SqlContext) Fingerprint() string {
	return Fingerprint(c.RawSQL)
}

// Fingerprint computes the MD5-hex fingerprint of SQL text.
func Fingerprint(sql string) string {
	sum := md5.Sum([]byte(sql))
	return hex.EncodeToString(sum[:])
}

// VisitContext adapts SqlContext to the sqlast double-dispatch contract.
func (c *SqlContext) VisitContext() *sqlast.VisitContext {
	return &sqlast.VisitContext{
		ExecutionLayer: string(c.ExecutionLayer),
		SqlID:          c.Fingerprint(),
	}
}
