package sqlast

import (
	"strings"

	"github.com/dolthub/vitess/go/vt/sqlparser"
)

// extractTables walks a SELECT statement's FROM/WHERE/HAVING/SELECT-list for
// table references, including CTEs, joins, and subqueries. Adapted from the
// gateway's table-resolution walk, generalized to drop the AS-OF bookkeeping
// this package does not need.
func extractTables(sel *sqlparser.Select) []string {
	tables := make([]string, 0)
	seen := make(map[string]bool)
	cteNames := make(map[string]bool)

	if sel.With != nil {
		for _, cte := range sel.With.Ctes {
			if cte.As.String() != "" {
				cteNames[cte.As.String()] = true
			}
			if cte.Expr != nil {
				if subquery, ok := cte.Expr.(*sqlparser.Subquery); ok {
					extractTablesFromSelectStatement(subquery.Select, &tables, seen)
				}
			}
		}
	}

	for _, tableExpr := range sel.From {
		extractTablesFromTableExpr(tableExpr, &tables, seen)
	}
	if sel.Where != nil {
		extractTablesFromExpr(sel.Where.Expr, &tables, seen)
	}
	if sel.Having != nil {
		extractTablesFromExpr(sel.Having.Expr, &tables, seen)
	}
	for _, expr := range sel.SelectExprs {
		if aliased, ok := expr.(*sqlparser.AliasedExpr); ok {
			extractTablesFromExpr(aliased.Expr, &tables, seen)
		}
	}

	filtered := make([]string, 0, len(tables))
	for _, t := range tables {
		if !cteNames[t] {
			filtered = append(filtered, t)
		}
	}
	return filtered
}

func extractTablesFromSetOp(union *sqlparser.SetOp) []string {
	tables := make([]string, 0)
	seen := make(map[string]bool)
	extractTablesFromSelectStatement(union.Left, &tables, seen)
	extractTablesFromSelectStatement(union.Right, &tables, seen)
	return tables
}

func extractTablesFromSelectStatement(stmt sqlparser.SelectStatement, tables *[]string, seen map[string]bool) {
	switch s := stmt.(type) {
	case *sqlparser.Select:
		if s.With != nil {
			for _, cte := range s.With.Ctes {
				if cte.Expr != nil {
					if subquery, ok := cte.Expr.(*sqlparser.Subquery); ok {
						extractTablesFromSelectStatement(subquery.Select, tables, seen)
					}
				}
			}
		}
		for _, tableExpr := range s.From {
			extractTablesFromTableExpr(tableExpr, tables, seen)
		}
		if s.Where != nil {
			extractTablesFromExpr(s.Where.Expr, tables, seen)
		}
	case *sqlparser.SetOp:
		extractTablesFromSelectStatement(s.Left, tables, seen)
		extractTablesFromSelectStatement(s.Right, tables, seen)
	case *sqlparser.ParenSelect:
		extractTablesFromSelectStatement(s.Select, tables, seen)
	}
}

func extractTablesFromTableExpr(expr sqlparser.TableExpr, tables *[]string, seen map[string]bool) {
	switch t := expr.(type) {
	case *sqlparser.AliasedTableExpr:
		switch e := t.Expr.(type) {
		case sqlparser.TableName:
			name := formatTableName(e)
			if name != "" && !seen[name] {
				*tables = append(*tables, name)
				seen[name] = true
			}
		case *sqlparser.Subquery:
			extractTablesFromSelectStatement(e.Select, tables, seen)
		}
	case *sqlparser.JoinTableExpr:
		extractTablesFromTableExpr(t.LeftExpr, tables, seen)
		extractTablesFromTableExpr(t.RightExpr, tables, seen)
	case *sqlparser.ParenTableExpr:
		for _, tableExpr := range t.Exprs {
			extractTablesFromTableExpr(tableExpr, tables, seen)
		}
	}
}

func extractTablesFromExpr(expr sqlparser.Expr, tables *[]string, seen map[string]bool) {
	if expr == nil {
		return
	}
	switch e := expr.(type) {
	case *sqlparser.Subquery:
		extractTablesFromSelectStatement(e.Select, tables, seen)
	case *sqlparser.AndExpr:
		extractTablesFromExpr(e.Left, tables, seen)
		extractTablesFromExpr(e.Right, tables, seen)
	case *sqlparser.OrExpr:
		extractTablesFromExpr(e.Left, tables, seen)
		extractTablesFromExpr(e.Right, tables, seen)
	case *sqlparser.ComparisonExpr:
		extractTablesFromExpr(e.Left, tables, seen)
		extractTablesFromExpr(e.Right, tables, seen)
	case *sqlparser.ParenExpr:
		extractTablesFromExpr(e.Expr, tables, seen)
	case *sqlparser.RangeCond:
		extractTablesFromExpr(e.Left, tables, seen)
		extractTablesFromExpr(e.From, tables, seen)
		extractTablesFromExpr(e.To, tables, seen)
	case *sqlparser.IsExpr:
		extractTablesFromExpr(e.Expr, tables, seen)
	case *sqlparser.NotExpr:
		extractTablesFromExpr(e.Expr, tables, seen)
	case *sqlparser.ExistsExpr:
		extractTablesFromSelectStatement(e.Subquery.Select, tables, seen)
	case *sqlparser.FuncExpr:
		for _, arg := range e.Exprs {
			if aliased, ok := arg.(*sqlparser.AliasedExpr); ok {
				extractTablesFromExpr(aliased.Expr, tables, seen)
			}
		}
	case *sqlparser.CaseExpr:
		extractTablesFromExpr(e.Expr, tables, seen)
		for _, when := range e.Whens {
			extractTablesFromExpr(when.Cond, tables, seen)
			extractTablesFromExpr(when.Val, tables, seen)
		}
		extractTablesFromExpr(e.Else, tables, seen)
	}
}

// extractTableExprs resolves the table list on UPDATE/DELETE statements,
// which carry a flat TableExprs rather than a FROM clause.
func extractTableExprs(exprs sqlparser.TableExprs) []string {
	tables := make([]string, 0, len(exprs))
	seen := make(map[string]bool)
	for _, te := range exprs {
		extractTablesFromTableExpr(te, &tables, seen)
	}
	return tables
}

func formatTableName(tn sqlparser.TableName) string {
	name := tn.Name.String()
	if !tn.SchemaQualifier.IsEmpty() {
		name = tn.SchemaQualifier.String() + "." + name
	}
	if !tn.DbQualifier.IsEmpty() {
		name = tn.DbQualifier.String() + "." + name
	}
	return name
}

// extractPagination reads the LIMIT clause from the parsed AST when present.
func extractPagination(sel *sqlparser.Select, raw string) *Pagination {
	if sel.Limit != nil {
		text := sqlparser.String(sel.Limit)
		return &Pagination{HasLimit: true, Limit: strings.TrimSpace(text)}
	}
	return extractPaginationFallback(raw)
}

var paginationKeywords = []string{"LIMIT", "TOP ", "FETCH FIRST", "FETCH NEXT", "ROWNUM", "ROW_NUMBER"}

// extractPaginationFallback scans raw SQL text for pagination keywords the
// AST does not expose on every statement kind (UPDATE/DELETE/SetOp), mirroring
// the gateway's text-search fallback for syntax the parser does not surface
// structurally.
func extractPaginationFallback(raw string) *Pagination {
	upper := strings.ToUpper(raw)
	for _, kw := range paginationKeywords {
		if strings.Contains(upper, kw) {
			return &Pagination{HasLimit: true}
		}
	}
	return &Pagination{HasLimit: false}
}
