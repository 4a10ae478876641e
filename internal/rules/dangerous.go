package rules

import (
	"strings"

	"github.com/canonica-labs/canonica/internal/risk"
	"github.com/canonica-labs/canonica/internal/sqlast"
	"github.com/canonica-labs/canonica/internal/validate"
)

// DdlOperationChecker flags DDL text reaching the statement layer, which
// should never happen from application traffic.
type DdlOperationChecker struct {
	Enabled bool
}

func (c *DdlOperationChecker) Name() string    { return "DdlOperation" }
func (c *DdlOperationChecker) IsEnabled() bool { return c.Enabled }

var ddlKeywords = []string{"CREATE ", "ALTER ", "DROP ", "TRUNCATE "}

func (c *DdlOperationChecker) Check(ctx *validate.SqlContext, stmt *sqlast.ParsedStatement) []validate.Violation {
	if stmt.Kind != sqlast.KindOther {
		return nil
	}
	upper := strings.ToUpper(strings.TrimSpace(stmt.RawSQL))
	for _, kw := range ddlKeywords {
		if strings.HasPrefix(upper, kw) {
			return []validate.Violation{v(risk.Critical, "DDL operation ("+strings.TrimSpace(kw)+")", "DDL must run through a migration tool, not application traffic")}
		}
	}
	return nil
}

// DangerousFunctionChecker flags calls to configured dangerous function
// names (e.g. file/system access functions exposed by some engines).
type DangerousFunctionChecker struct {
	Enabled   bool
	Functions []string
}

func (c *DangerousFunctionChecker) Name() string    { return "DangerousFunction" }
func (c *DangerousFunctionChecker) IsEnabled() bool { return c.Enabled }

func (c *DangerousFunctionChecker) Check(ctx *validate.SqlContext, stmt *sqlast.ParsedStatement) []validate.Violation {
	if len(c.Functions) == 0 {
		return nil
	}
	upper := strings.ToUpper(stmt.RawSQL)
	var violations []validate.Violation
	for _, fn := range c.Functions {
		if strings.Contains(upper, strings.ToUpper(fn)+"(") {
			violations = append(violations, v(risk.High, "call to dangerous function "+fn, "replace with an application-level equivalent"))
		}
	}
	return violations
}

// CallStatementChecker flags stored-procedure CALLs, which bypass AST-level
// inspection of what they actually do.
type CallStatementChecker struct {
	Enabled bool
}

func (c *CallStatementChecker) Name() string    { return "CallStatement" }
func (c *CallStatementChecker) IsEnabled() bool { return c.Enabled }

func (c *CallStatementChecker) Check(ctx *validate.SqlContext, stmt *sqlast.ParsedStatement) []validate.Violation {
	if stmt.ProcName != "" {
		return []validate.Violation{v(risk.High, "CALL "+stmt.ProcName, "review the stored procedure body separately; it is opaque to this checker")}
	}
	return nil
}
