package rules

import (
	"strings"

	"github.com/canonica-labs/canonica/internal/risk"
	"github.com/canonica-labs/canonica/internal/sqlast"
	"github.com/canonica-labs/canonica/internal/validate"
)

// MultiStatementChecker flags a raw SQL text carrying more than one
// statement, the classic stacked-query injection surface.
type MultiStatementChecker struct {
	Enabled bool
}

func (c *MultiStatementChecker) Name() string    { return "MultiStatement" }
func (c *MultiStatementChecker) IsEnabled() bool { return c.Enabled }

func (c *MultiStatementChecker) Check(ctx *validate.SqlContext, stmt *sqlast.ParsedStatement) []validate.Violation {
	if stmt.MultiStmt {
		return []validate.Violation{v(risk.Critical, "multiple statements in one call", "submit one statement per call")}
	}
	return nil
}

// SetOperationChecker flags UNION/INTERSECT/EXCEPT, a common surface for
// blind injection probing.
type SetOperationChecker struct {
	Enabled bool
}

func (c *SetOperationChecker) Name() string    { return "SetOperation" }
func (c *SetOperationChecker) IsEnabled() bool { return c.Enabled }

func (c *SetOperationChecker) Check(ctx *validate.SqlContext, stmt *sqlast.ParsedStatement) []validate.Violation {
	if stmt.IsSetOp {
		return []validate.Violation{v(risk.High, "set operation (UNION/INTERSECT/EXCEPT)", "confirm this combinator is intentional, not an injection probe")}
	}
	return nil
}

// SqlCommentChecker flags inline comments, often used to truncate or
// smuggle predicates past naive filters.
type SqlCommentChecker struct {
	Enabled bool
}

func (c *SqlCommentChecker) Name() string    { return "SqlComment" }
func (c *SqlCommentChecker) IsEnabled() bool { return c.Enabled }

func (c *SqlCommentChecker) Check(ctx *validate.SqlContext, stmt *sqlast.ParsedStatement) []validate.Violation {
	if len(stmt.Comments) > 0 {
		return []validate.Violation{v(risk.High, "SQL comment present in statement text", "remove comments from parameterized statements")}
	}
	return nil
}

// IntoOutfileChecker flags INTO OUTFILE/DUMPFILE, a file-exfiltration vector.
type IntoOutfileChecker struct {
	Enabled bool
}

func (c *IntoOutfileChecker) Name() string    { return "IntoOutfile" }
func (c *IntoOutfileChecker) IsEnabled() bool { return c.Enabled }

func (c *IntoOutfileChecker) Check(ctx *validate.SqlContext, stmt *sqlast.ParsedStatement) []validate.Violation {
	upper := strings.ToUpper(stmt.RawSQL)
	if strings.Contains(upper, "INTO OUTFILE") || strings.Contains(upper, "INTO DUMPFILE") {
		return []validate.Violation{v(risk.Critical, "INTO OUTFILE/DUMPFILE", "remove file-export clauses from application queries")}
	}
	return nil
}
