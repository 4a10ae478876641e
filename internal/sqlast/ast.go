// Package sqlast parses SQL text once into a ParsedStatement and exposes a
// double-dispatch visitor over it, so that downstream checkers never touch
// the underlying parser library directly.
//
// Built on github.com/dolthub/vitess/go/vt/sqlparser, the same dialect the
// gateway's logical planner uses.
package sqlast

import (
	"strings"

	"github.com/dolthub/vitess/go/vt/sqlparser"

	"github.com/canonica-labs/canonica/internal/errors"
	"github.com/canonica-labs/canonica/internal/risk"
)

// Pagination describes a LIMIT/TOP/FETCH/ROWNUM clause found on a statement.
type Pagination struct {
	HasLimit bool
	Limit    string // raw text of the limit/offset expression, if resolvable
}

// Kind identifies which ParsedStatement variant a statement is.
type Kind int

const (
	KindSelect Kind = iota
	KindUpdate
	KindDelete
	KindInsert
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindSelect:
		return "SELECT"
	case KindUpdate:
		return "UPDATE"
	case KindDelete:
		return "DELETE"
	case KindInsert:
		return "INSERT"
	default:
		return "OTHER"
	}
}

// ParsedStatement is the parse-once result shared across all checkers for a
// single statement. It never re-parses the underlying SQL.
type ParsedStatement struct {
	RawSQL      string
	Kind        Kind
	Operation   risk.OperationType
	Tables      []string
	WhereExpr   sqlparser.Expr
	OrderBy     sqlparser.OrderBy
	Pagination  *Pagination
	IsSetOp     bool // UNION/INTERSECT/EXCEPT
	MultiStmt   bool // more than one statement in the raw text
	Comments    []string
	ProcName    string // populated when Kind == KindOther and a CALL is detected
	underlying  sqlparser.Statement
}

// Underlying exposes the raw vitess AST node for advanced checkers that need
// direct AST access beyond what ParsedStatement summarizes.
func (p *ParsedStatement) Underlying() sqlparser.Statement {
	return p.underlying
}

// HasWhere reports whether the statement carries a WHERE clause.
func (p *ParsedStatement) HasWhere() bool {
	return p.WhereExpr != nil
}

// Parse parses raw SQL text into a ParsedStatement. This is the single call
// site that should ever invoke the underlying parser; callers must cache and
// reuse the result rather than calling Parse again for the same text.
func Parse(sql string) (*ParsedStatement, error) {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return nil, errors.NewQueryRejected(sql, "empty statement", "provide a non-empty SQL statement")
	}

	pieces, err := sqlparser.SplitStatementToPieces(trimmed)
	if err != nil {
		return nil, errors.NewQueryRejected(sql, "failed to parse SQL", err.Error())
	}
	multi := len(pieces) > 1

	stmt, err := sqlparser.Parse(trimmed)
	if err != nil {
		return nil, errors.NewQueryRejected(sql, "invalid SQL syntax", err.Error())
	}

	ps := &ParsedStatement{
		RawSQL:     trimmed,
		MultiStmt:  multi,
		Comments:   extractComments(trimmed),
		underlying: stmt,
	}

	switch s := stmt.(type) {
	case *sqlparser.Select:
		ps.Kind = KindSelect
		ps.Operation = risk.OperationSelect
		ps.Tables = extractTables(s)
		if s.Where != nil {
			ps.WhereExpr = s.Where.Expr
		}
		ps.OrderBy = s.OrderBy
		ps.Pagination = extractPagination(s, trimmed)

	case *sqlparser.SetOp:
		ps.Kind = KindSelect
		ps.Operation = risk.OperationSelect
		ps.IsSetOp = true
		ps.Tables = extractTablesFromSetOp(s)
		ps.Pagination = extractPaginationFallback(trimmed)

	case *sqlparser.Update:
		ps.Kind = KindUpdate
		ps.Operation = risk.OperationUpdate
		ps.Tables = extractTableExprs(s.TableExprs)
		if s.Where != nil {
			ps.WhereExpr = s.Where.Expr
		}
		ps.OrderBy = s.OrderBy
		ps.Pagination = extractPaginationFallback(trimmed)

	case *sqlparser.Delete:
		ps.Kind = KindDelete
		ps.Operation = risk.OperationDelete
		ps.Tables = extractTableExprs(s.TableExprs)
		if s.Where != nil {
			ps.WhereExpr = s.Where.Expr
		}
		ps.OrderBy = s.OrderBy
		ps.Pagination = extractPaginationFallback(trimmed)

	case *sqlparser.Insert:
		ps.Kind = KindInsert
		ps.Operation = risk.OperationInsert
		ps.Tables = []string{formatTableName(s.Table)}

	default:
		ps.Kind = KindOther
		ps.Operation = risk.OperationUnknown
		ps.ProcName = detectProcCall(trimmed)
	}

	return ps, nil
}

func extractComments(sql string) []string {
	var out []string
	rest := sql
	for {
		idx := strings.Index(rest, "--")
		block := strings.Index(rest, "/*")
		switch {
		case idx == -1 && block == -1:
			return out
		case block == -1 || (idx != -1 && idx < block):
			end := strings.IndexByte(rest[idx:], '\n')
			if end == -1 {
				out = append(out, strings.TrimSpace(rest[idx+2:]))
				return out
			}
			out = append(out, strings.TrimSpace(rest[idx+2:idx+end]))
			rest = rest[idx+end+1:]
		default:
			end := strings.Index(rest[block:], "*/")
			if end == -1 {
				out = append(out, strings.TrimSpace(rest[block+2:]))
				return out
			}
			out = append(out, strings.TrimSpace(rest[block+2:block+end]))
			rest = rest[block+end+2:]
		}
	}
}

func detectProcCall(sql string) string {
	upper := strings.ToUpper(sql)
	idx := strings.Index(upper, "CALL ")
	if idx == -1 {
		return ""
	}
	rest := strings.TrimSpace(sql[idx+5:])
	end := strings.IndexAny(rest, "( \t\n")
	if end == -1 {
		return rest
	}
	return rest[:end]
}
