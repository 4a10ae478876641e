package rules

import (
	"strings"

	"github.com/dolthub/vitess/go/vt/sqlparser"
)

// andOnlyEqualityColumns returns the column names compared by equality in an
// expression tree built solely from AND conjunctions, or nil if the
// expression contains anything else (OR, ranges, function calls, ...).
func andOnlyEqualityColumns(expr sqlparser.Expr) []string {
	switch e := expr.(type) {
	case *sqlparser.AndExpr:
		left := andOnlyEqualityColumns(e.Left)
		right := andOnlyEqualityColumns(e.Right)
		if left == nil || right == nil {
			return nil
		}
		return append(left, right...)
	case *sqlparser.ParenExpr:
		return andOnlyEqualityColumns(e.Expr)
	case *sqlparser.ComparisonExpr:
		if e.Operator != sqlparser.EqualOp {
			return nil
		}
		if col, ok := e.Left.(*sqlparser.ColName); ok {
			return []string{col.Name.String()}
		}
		if col, ok := e.Right.(*sqlparser.ColName); ok {
			return []string{col.Name.String()}
		}
		return nil
	default:
		return nil
	}
}

// isDummyCondition reports whether expr is a tautology such as 1=1 or TRUE,
// the classic "dummy WHERE" pattern.
func isDummyCondition(expr sqlparser.Expr) bool {
	return containsDummyCondition(expr)
}

func containsDummyCondition(expr sqlparser.Expr) bool {
	switch e := expr.(type) {
	case *sqlparser.AndExpr:
		return containsDummyCondition(e.Left) || containsDummyCondition(e.Right)
	case *sqlparser.OrExpr:
		return containsDummyCondition(e.Left) || containsDummyCondition(e.Right)
	case *sqlparser.ParenExpr:
		return containsDummyCondition(e.Expr)
	case *sqlparser.ComparisonExpr:
		if e.Operator != sqlparser.EqualOp {
			return false
		}
		l, lok := literalText(e.Left)
		r, rok := literalText(e.Right)
		return lok && rok && l == r
	case sqlparser.BoolVal:
		return bool(e)
	default:
		return false
	}
}

func literalText(expr sqlparser.Expr) (string, bool) {
	if lit, ok := expr.(*sqlparser.SQLVal); ok {
		return string(lit.Val), true
	}
	return "", false
}

// onlyColumnsIn reports whether every column referenced anywhere in expr is
// a member of allowed (used by the blacklist-field checker: violation when
// the WHERE predicate references blacklisted fields and nothing else).
func onlyColumnsIn(expr sqlparser.Expr, allowed map[string]bool) bool {
	ok := true
	walkColumns(expr, func(name string) {
		if !allowed[strings.ToLower(name)] {
			ok = false
		}
	})
	return ok
}

// referencedColumns returns the lower-cased set of column names anywhere in
// expr.
func referencedColumns(expr sqlparser.Expr) map[string]bool {
	set := make(map[string]bool)
	walkColumns(expr, func(name string) {
		set[strings.ToLower(name)] = true
	})
	return set
}

func walkColumns(expr sqlparser.Expr, fn func(name string)) {
	switch e := expr.(type) {
	case *sqlparser.ColName:
		fn(e.Name.String())
	case *sqlparser.AndExpr:
		walkColumns(e.Left, fn)
		walkColumns(e.Right, fn)
	case *sqlparser.OrExpr:
		walkColumns(e.Left, fn)
		walkColumns(e.Right, fn)
	case *sqlparser.ParenExpr:
		walkColumns(e.Expr, fn)
	case *sqlparser.ComparisonExpr:
		walkColumns(e.Left, fn)
		walkColumns(e.Right, fn)
	case *sqlparser.RangeCond:
		walkColumns(e.Left, fn)
		walkColumns(e.From, fn)
		walkColumns(e.To, fn)
	case *sqlparser.IsExpr:
		walkColumns(e.Expr, fn)
	case *sqlparser.NotExpr:
		walkColumns(e.Expr, fn)
	case *sqlparser.FuncExpr:
		for _, arg := range e.Exprs {
			if aliased, ok := arg.(*sqlparser.AliasedExpr); ok {
				walkColumns(aliased.Expr, fn)
			}
		}
	}
}
