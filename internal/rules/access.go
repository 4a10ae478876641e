package rules

import (
	"strings"

	"github.com/canonica-labs/canonica/internal/accesscontrol"
	"github.com/canonica-labs/canonica/internal/risk"
	"github.com/canonica-labs/canonica/internal/sqlast"
	"github.com/canonica-labs/canonica/internal/validate"
)

// MetadataStatementChecker flags reads against information_schema-like
// system catalogs, a common reconnaissance step.
type MetadataStatementChecker struct {
	Enabled bool
}

func (c *MetadataStatementChecker) Name() string    { return "MetadataStatement" }
func (c *MetadataStatementChecker) IsEnabled() bool { return c.Enabled }

var metadataSchemas = []string{"information_schema", "pg_catalog", "sys", "mysql"}

func (c *MetadataStatementChecker) Check(ctx *validate.SqlContext, stmt *sqlast.ParsedStatement) []validate.Violation {
	for _, t := range stmt.Tables {
		lower := strings.ToLower(t)
		for _, schema := range metadataSchemas {
			if strings.HasPrefix(lower, schema+".") {
				return []validate.Violation{v(risk.High, "read against system catalog "+schema, "avoid exposing catalog reads to application traffic")}
			}
		}
	}
	return nil
}

// SetStatementChecker flags session-variable mutation statements.
type SetStatementChecker struct {
	Enabled bool
}

func (c *SetStatementChecker) Name() string    { return "SetStatement" }
func (c *SetStatementChecker) IsEnabled() bool { return c.Enabled }

func (c *SetStatementChecker) Check(ctx *validate.SqlContext, stmt *sqlast.ParsedStatement) []validate.Violation {
	if stmt.Kind != sqlast.KindOther {
		return nil
	}
	upper := strings.ToUpper(strings.TrimSpace(stmt.RawSQL))
	if strings.HasPrefix(upper, "SET ") {
		return []validate.Violation{v(risk.High, "session variable mutation (SET)", "session state changes should not come from application traffic")}
	}
	return nil
}

// DeniedTableChecker flags access to tables on the configured deny list.
type DeniedTableChecker struct {
	Enabled  bool
	Registry *accesscontrol.Registry
}

func (c *DeniedTableChecker) Name() string    { return "DeniedTable" }
func (c *DeniedTableChecker) IsEnabled() bool { return c.Enabled }

func (c *DeniedTableChecker) Check(ctx *validate.SqlContext, stmt *sqlast.ParsedStatement) []validate.Violation {
	if c.Registry == nil {
		return nil
	}
	var violations []validate.Violation
	for _, t := range stmt.Tables {
		if c.Registry.IsDenied(t) {
			violations = append(violations, v(risk.Critical, "access to denied table "+t, "this table is not reachable from application traffic"))
		}
	}
	return violations
}

// ReadOnlyTableChecker flags write operations against tables configured as
// read-only.
type ReadOnlyTableChecker struct {
	Enabled  bool
	Registry *accesscontrol.Registry
}

func (c *ReadOnlyTableChecker) Name() string    { return "ReadOnlyTable" }
func (c *ReadOnlyTableChecker) IsEnabled() bool { return c.Enabled }

func (c *ReadOnlyTableChecker) Check(ctx *validate.SqlContext, stmt *sqlast.ParsedStatement) []validate.Violation {
	if c.Registry == nil || !stmt.Operation.IsWrite() {
		return nil
	}
	var violations []validate.Violation
	for _, t := range stmt.Tables {
		if c.Registry.IsReadOnly(t) {
			violations = append(violations, v(risk.High, "write against read-only table "+t, "route writes for this table through its system of record"))
		}
	}
	return violations
}
