package rules

import (
	"strings"

	"github.com/canonica-labs/canonica/internal/risk"
	"github.com/canonica-labs/canonica/internal/sqlast"
	"github.com/canonica-labs/canonica/internal/validate"
)

// MissingWhereChecker flags UPDATE/DELETE statements with no WHERE clause.
type MissingWhereChecker struct {
	Enabled bool
}

func (c *MissingWhereChecker) Name() string     { return "MissingWhere" }
func (c *MissingWhereChecker) IsEnabled() bool  { return c.Enabled }

func (c *MissingWhereChecker) Check(ctx *validate.SqlContext, stmt *sqlast.ParsedStatement) []validate.Violation {
	acc := &missingWhereVisitor{op: stmt.Operation}
	visit(ctx, stmt, acc)
	return acc.violations
}

type missingWhereVisitor struct {
	sqlast.BaseVisitor
	op         risk.OperationType
	violations []validate.Violation
}

func (mv *missingWhereVisitor) VisitUpdate(_ *sqlast.VisitContext, stmt *sqlast.ParsedStatement) {
	if !stmt.HasWhere() {
		mv.violations = append(mv.violations, v(risk.Critical, "UPDATE without WHERE", "add a WHERE clause scoping the affected rows"))
	}
}

func (mv *missingWhereVisitor) VisitDelete(_ *sqlast.VisitContext, stmt *sqlast.ParsedStatement) {
	if !stmt.HasWhere() {
		mv.violations = append(mv.violations, v(risk.Critical, "DELETE without WHERE", "add a WHERE clause scoping the affected rows"))
	}
}

// DummyConditionChecker flags tautological WHERE predicates such as 1=1.
type DummyConditionChecker struct {
	Enabled bool
}

func (c *DummyConditionChecker) Name() string    { return "DummyCondition" }
func (c *DummyConditionChecker) IsEnabled() bool { return c.Enabled }

func (c *DummyConditionChecker) Check(ctx *validate.SqlContext, stmt *sqlast.ParsedStatement) []validate.Violation {
	if stmt.WhereExpr != nil && isDummyCondition(stmt.WhereExpr) {
		return []validate.Violation{v(risk.High, "dummy condition", "replace the tautological predicate with a real filter")}
	}
	return nil
}

// BlacklistFieldChecker flags WHERE clauses that reference only configured
// blacklisted field names (e.g. a status flag alone, with no row-scoping
// predicate).
type BlacklistFieldChecker struct {
	Enabled bool
	Fields  []string
}

func (c *BlacklistFieldChecker) Name() string    { return "BlacklistField" }
func (c *BlacklistFieldChecker) IsEnabled() bool { return c.Enabled }

func (c *BlacklistFieldChecker) Check(ctx *validate.SqlContext, stmt *sqlast.ParsedStatement) []validate.Violation {
	if stmt.WhereExpr == nil || len(c.Fields) == 0 {
		return nil
	}
	blacklist := make(map[string]bool, len(c.Fields))
	for _, f := range c.Fields {
		blacklist[strings.ToLower(f)] = true
	}
	refs := referencedColumns(stmt.WhereExpr)
	if len(refs) == 0 {
		return nil
	}
	for col := range refs {
		if !blacklist[col] {
			return nil
		}
	}
	return []validate.Violation{v(risk.High, "WHERE references only blacklisted fields", "scope the predicate with a real row identifier")}
}

// WhitelistFieldChecker flags statements on configured tables whose WHERE
// clause omits a required field.
type WhitelistFieldChecker struct {
	Enabled bool
	// RequiredByTable maps a table name to the fields that must appear in WHERE.
	RequiredByTable map[string][]string
}

func (c *WhitelistFieldChecker) Name() string    { return "WhitelistField" }
func (c *WhitelistFieldChecker) IsEnabled() bool { return c.Enabled }

func (c *WhitelistFieldChecker) Check(ctx *validate.SqlContext, stmt *sqlast.ParsedStatement) []validate.Violation {
	if len(c.RequiredByTable) == 0 {
		return nil
	}
	refs := map[string]bool{}
	if stmt.WhereExpr != nil {
		refs = referencedColumns(stmt.WhereExpr)
	}
	var violations []validate.Violation
	for _, table := range stmt.Tables {
		required, ok := c.RequiredByTable[table]
		if !ok {
			continue
		}
		for _, field := range required {
			if !refs[strings.ToLower(field)] {
				violations = append(violations, v(risk.High,
					"required field '"+field+"' missing from WHERE on "+table,
					"include "+field+" in the WHERE clause"))
			}
		}
	}
	return violations
}
