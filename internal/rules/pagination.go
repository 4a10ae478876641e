package rules

import (
	"strconv"

	"github.com/canonica-labs/canonica/internal/accesscontrol"
	"github.com/canonica-labs/canonica/internal/risk"
	"github.com/canonica-labs/canonica/internal/sqlast"
	"github.com/canonica-labs/canonica/internal/validate"
)

// PaginationConfig holds the thresholds shared by the pagination checker
// group, plus the escape-hatch collaborators.
type PaginationConfig struct {
	EnforceForAllQueries bool
	DeepOffsetThreshold  int
	LargePageSizeLimit   int
	UniqueKeyColumns     []string
	AccessControl        *accesscontrol.Registry
}

// NoPaginationChecker flags SELECTs with no LIMIT/TOP/FETCH/ROWNUM clause,
// stratified by WHERE quality.
type NoPaginationChecker struct {
	Enabled bool
	Config  PaginationConfig
}

func (c *NoPaginationChecker) Name() string    { return "NoPagination" }
func (c *NoPaginationChecker) IsEnabled() bool { return c.Enabled }

func (c *NoPaginationChecker) Check(ctx *validate.SqlContext, stmt *sqlast.ParsedStatement) []validate.Violation {
	if stmt.Kind != sqlast.KindSelect {
		return nil
	}
	if stmt.Pagination != nil && stmt.Pagination.HasLimit {
		return nil
	}
	if escapeHatch(stmt, c.Config.UniqueKeyColumns, c.Config.AccessControl) {
		return nil
	}

	noWhere := !stmt.HasWhere()
	allBlacklistWhere := stmt.HasWhere() && isDummyCondition(stmt.WhereExpr)
	switch {
	case noWhere || allBlacklistWhere:
		return []validate.Violation{v(risk.Critical, "SELECT without pagination and without an effective WHERE", "add a WHERE clause and a LIMIT")}
	case c.Config.EnforceForAllQueries:
		return []validate.Violation{v(risk.Medium, "SELECT without pagination", "add a LIMIT clause")}
	default:
		return nil
	}
}

// NoConditionPaginationChecker flags a LIMIT with no WHERE clause at all.
type NoConditionPaginationChecker struct {
	Enabled bool
}

func (c *NoConditionPaginationChecker) Name() string    { return "NoConditionPagination" }
func (c *NoConditionPaginationChecker) IsEnabled() bool { return c.Enabled }

func (c *NoConditionPaginationChecker) Check(ctx *validate.SqlContext, stmt *sqlast.ParsedStatement) []validate.Violation {
	if stmt.Kind != sqlast.KindSelect {
		return nil
	}
	if stmt.Pagination == nil || !stmt.Pagination.HasLimit {
		return nil
	}
	if stmt.HasWhere() {
		return nil
	}
	return []validate.Violation{v(risk.Critical, "LIMIT without WHERE", "scope the result set with a WHERE clause before paginating")}
}

// LogicalPaginationChecker flags runtime pagination parameters that are not
// backed by a physical LIMIT or a recognized pagination plugin — the
// classic in-memory-pagination-OOM pattern.
type LogicalPaginationChecker struct {
	Enabled bool
}

func (c *LogicalPaginationChecker) Name() string    { return "LogicalPagination" }
func (c *LogicalPaginationChecker) IsEnabled() bool { return c.Enabled }

func (c *LogicalPaginationChecker) Check(ctx *validate.SqlContext, stmt *sqlast.ParsedStatement) []validate.Violation {
	if ctx.PaginationType == validate.PaginationLogical {
		return []validate.Violation{v(risk.Critical, "logical pagination", "enable a physical LIMIT or register a pagination plugin")}
	}
	return nil
}

// DeepPaginationChecker flags a LIMIT offset above a configured threshold.
type DeepPaginationChecker struct {
	Enabled          bool
	OffsetThreshold  int
}

func (c *DeepPaginationChecker) Name() string    { return "DeepPagination" }
func (c *DeepPaginationChecker) IsEnabled() bool { return c.Enabled }

func (c *DeepPaginationChecker) Check(ctx *validate.SqlContext, stmt *sqlast.ParsedStatement) []validate.Violation {
	if stmt.Pagination == nil || !stmt.Pagination.HasLimit {
		return nil
	}
	offset := extractOffset(stmt.Pagination.Limit)
	if offset > c.OffsetThreshold {
		return []validate.Violation{v(risk.Medium, "deep pagination offset exceeds threshold", "use keyset pagination instead of a large OFFSET")}
	}
	return nil
}

// LargePageSizeChecker flags a LIMIT value above a configured threshold.
type LargePageSizeChecker struct {
	Enabled bool
	Limit   int
}

func (c *LargePageSizeChecker) Name() string    { return "LargePageSize" }
func (c *LargePageSizeChecker) IsEnabled() bool { return c.Enabled }

func (c *LargePageSizeChecker) Check(ctx *validate.SqlContext, stmt *sqlast.ParsedStatement) []validate.Violation {
	if stmt.Pagination == nil || !stmt.Pagination.HasLimit {
		return nil
	}
	limit := extractLimit(stmt.Pagination.Limit)
	if limit > c.Limit {
		return []validate.Violation{v(risk.Medium, "page size exceeds configured limit", "reduce the requested page size")}
	}
	return nil
}

// MissingOrderByChecker flags a paginated SELECT with no ORDER BY, whose
// page boundaries are then undefined across calls.
type MissingOrderByChecker struct {
	Enabled bool
}

func (c *MissingOrderByChecker) Name() string    { return "MissingOrderBy" }
func (c *MissingOrderByChecker) IsEnabled() bool { return c.Enabled }

func (c *MissingOrderByChecker) Check(ctx *validate.SqlContext, stmt *sqlast.ParsedStatement) []validate.Violation {
	if stmt.Kind != sqlast.KindSelect {
		return nil
	}
	if stmt.Pagination == nil || !stmt.Pagination.HasLimit {
		return nil
	}
	if len(stmt.OrderBy) > 0 {
		return nil
	}
	return []validate.Violation{v(risk.Low, "paginated SELECT without ORDER BY", "add an ORDER BY for stable page boundaries")}
}

// extractOffset and extractLimit parse the best-effort text captured from
// the AST's LIMIT clause ("<limit>" or "<limit>, <offset>"/"OFFSET <n>").
// They are deliberately forgiving: an unparsable clause yields 0, which
// never trips the threshold checks (a conservative default since absence of
// evidence is not evidence of a large value here — the dangerous case is
// caught instead by NoPagination/NoConditionPagination).
func extractOffset(limitText string) int {
	if indexFold(limitText, "offset") == -1 && indexFold(limitText, ",") == -1 {
		return 0 // a plain "<limit>" clause has no offset
	}
	return extractNumberAfter(limitText, "offset")
}

func extractLimit(limitText string) int {
	return extractNumberAfter(limitText, "limit")
}

func extractNumberAfter(text, keyword string) int {
	idx := indexFold(text, keyword)
	if idx == -1 {
		// no explicit keyword in captured text; try to parse the whole
		// thing as a bare integer (common for a plain "LIMIT n" clause).
		if n, err := strconv.Atoi(trimNonDigits(text)); err == nil {
			return n
		}
		return 0
	}
	rest := text[idx+len(keyword):]
	n, err := strconv.Atoi(trimNonDigits(rest))
	if err != nil {
		return 0
	}
	return n
}

func indexFold(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if equalFold(s[i:i+len(substr)], substr) {
			return i
		}
	}
	return -1
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

func trimNonDigits(s string) string {
	start := -1
	end := -1
	for i, r := range s {
		if r >= '0' && r <= '9' {
			if start == -1 {
				start = i
			}
			end = i + 1
		} else if start != -1 {
			break
		}
	}
	if start == -1 {
		return ""
	}
	return s[start:end]
}
