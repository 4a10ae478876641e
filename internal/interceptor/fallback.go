package interceptor

import (
	"context"
	"fmt"
	"strings"

	"github.com/canonica-labs/canonica/internal/sqlast"
	"github.com/canonica-labs/canonica/internal/validate"
)

// SelectLimitFallback appends "LIMIT <cap>" to an outgoing SELECT that
// reaches priority 100 without a LIMIT and with no overriding decision.
// Adapted from the gateway's time-travel rewriter's string-splice style:
// locate the insertion point, concatenate, return the new SQL — the raw
// SqlContext.RawSQL is never mutated, only the outgoing string returned from
// BeforeQuery.
type SelectLimitFallback struct {
	Base
	Cap int
}

func (f *SelectLimitFallback) Name() string  { return "SelectLimitFallback" }
func (f *SelectLimitFallback) Priority() int { return PriorityRewriteBand }

func (f *SelectLimitFallback) BeforeQuery(_ context.Context, sc *validate.SqlContext, outgoingSQL string) (string, error) {
	if sc.Statement == nil || sc.Statement.Kind != sqlast.KindSelect {
		return outgoingSQL, nil
	}
	if sc.Statement.Pagination != nil && sc.Statement.Pagination.HasLimit {
		return outgoingSQL, nil
	}
	trimmed := strings.TrimRight(outgoingSQL, " \t\n;")
	return fmt.Sprintf("%s LIMIT %d", trimmed, f.Cap), nil
}
