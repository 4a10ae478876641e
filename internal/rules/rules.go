// Package rules implements the rule checker catalogue (C2): one visitor per
// checker, each consuming the AST subtree and SqlContext to compute a
// deterministic verdict. Checkers never re-parse SQL.
package rules

import (
	"github.com/canonica-labs/canonica/internal/accesscontrol"
	"github.com/canonica-labs/canonica/internal/risk"
	"github.com/canonica-labs/canonica/internal/sqlast"
	"github.com/canonica-labs/canonica/internal/validate"
)

// Checker is one rule in the catalogue. Instances are process-wide and
// stateless across invocations: Check allocates its own per-call visitor
// accumulator rather than mutating checker state.
type Checker interface {
	Name() string
	IsEnabled() bool
	Check(ctx *validate.SqlContext, stmt *sqlast.ParsedStatement) []validate.Violation
}

// visit runs a sqlast.StatementVisitor over stmt; the visitor keeps what it
// accumulates in its own fields. A checker's Check method builds one visitor
// per call.
func visit(ctx *validate.SqlContext, stmt *sqlast.ParsedStatement, v sqlast.StatementVisitor) {
	sqlast.Dispatch(stmt, ctx.VisitContext(), v)
}

func v(level risk.Level, message, suggestion string) validate.Violation {
	return validate.Violation{RiskLevel: level, Message: message, Suggestion: suggestion}
}

// escapeHatch reports whether the pagination escape hatches (§4.2) suppress
// a pagination violation for this statement: a WHERE clause that is an
// AND-only equality on a configured unique-key column, or a table matching
// the escape-hatch whitelist.
func escapeHatch(stmt *sqlast.ParsedStatement, uniqueKeyColumns []string, registry *accesscontrol.Registry) bool {
	if registry != nil {
		for _, t := range stmt.Tables {
			if registry.IsWhitelisted(t) {
				return true
			}
		}
	}
	if len(uniqueKeyColumns) == 0 || stmt.WhereExpr == nil {
		return false
	}
	cols := andOnlyEqualityColumns(stmt.WhereExpr)
	if cols == nil {
		return false
	}
	for _, c := range cols {
		for _, uk := range uniqueKeyColumns {
			if c == uk {
				return true
			}
		}
	}
	return false
}
