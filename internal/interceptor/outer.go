package interceptor

import (
	"context"
	"time"

	"github.com/canonica-labs/canonica/internal/audit"
	"github.com/canonica-labs/canonica/internal/risk"
	"github.com/canonica-labs/canonica/internal/validate"
)

// Executor runs the already-checked/rewritten SQL against the real
// datastore and reports rows affected. Implementations are host-specific
// (database/sql, a driver wrapper, ...); the outer wrapper only needs the
// shape of the call.
type Executor func(ctx context.Context, outgoingSQL string) (rowsAffected int64, err error)

// Outer is the outer (non-inner) wrapper spec §3.6 describes: it drives a
// statement through the inner Chain, times the real execution with
// time.Now()/time.Since, and builds exactly one audit.Event regardless of
// whether the chain short-circuited, rejected, or let the statement run.
// Grounded on the same gateway request/response logging middleware the
// inner chain itself generalizes from — there the outermost wrapper around
// a routed call is what captures latency and emits one log line per
// request; here it captures latency and emits one audit.Event per
// statement.
type Outer struct {
	Chain   *Chain
	Checker *CheckInterceptor // optional: supplies LastError/LastResult for rejected statements
	Writer  audit.Writer
}

// ExecuteQuery runs a read statement: invoke the chain, and only if it was
// not short-circuited, call exec with the (possibly rewritten) outgoing SQL.
func (o *Outer) ExecuteQuery(ctx context.Context, sc *validate.SqlContext, exec Executor) (int64, error) {
	return o.execute(ctx, sc, exec, o.Chain.InvokeQuery)
}

// ExecuteUpdate is ExecuteQuery's write-path counterpart.
func (o *Outer) ExecuteUpdate(ctx context.Context, sc *validate.SqlContext, exec Executor) (int64, error) {
	return o.execute(ctx, sc, exec, o.Chain.InvokeUpdate)
}

type invoker func(context.Context, *validate.SqlContext) (*Outcome, error)

func (o *Outer) execute(ctx context.Context, sc *validate.SqlContext, exec Executor, invoke invoker) (int64, error) {
	start := time.Now()

	outcome, err := invoke(ctx, sc)
	if err != nil {
		o.emit(sc, start, -1, err)
		return 0, err
	}
	if outcome.ShortCircuit {
		rejection := o.rejectionError(outcome)
		o.emit(sc, start, -1, rejection)
		return 0, rejection
	}

	rows, execErr := exec(ctx, outcome.OutgoingSQL)
	o.emit(sc, start, rows, execErr)
	return rows, execErr
}

// rejectionError prefers the checker's own LastError (it carries risk level
// and checker name) and falls back to a generic message naming the stage
// that stopped the chain, for stages that short-circuit without a
// validation verdict (e.g. a feature-flag off-switch).
func (o *Outer) rejectionError(outcome *Outcome) error {
	if o.Checker != nil && o.Checker.LastError != nil {
		return o.Checker.LastError
	}
	return &rejectedByStage{stage: outcome.StoppedAt}
}

type rejectedByStage struct{ stage string }

func (e *rejectedByStage) Error() string {
	return "statement rejected by interceptor stage: " + e.stage
}

func (o *Outer) emit(sc *validate.SqlContext, start time.Time, rows int64, execErr error) {
	if o.Writer == nil {
		return
	}

	// An unset CommandType/ExecutionLayer is recorded as UNKNOWN.
	sqlType := sc.CommandType
	if sqlType == "" {
		sqlType = risk.OperationUnknown
	}
	layer := sc.ExecutionLayer
	if layer == "" {
		layer = risk.LayerUnknown
	}

	b := audit.NewBuilder().
		SQL(sc.RawSQL).
		SqlType(string(sqlType)).
		ExecutionLayer(string(layer)).
		Params(sc.Params).
		ExecutionTimeMs(time.Since(start).Milliseconds()).
		RowsAffected(rows)
	if sc.StatementID != "" {
		b = b.StatementID(sc.StatementID)
	}
	if sc.Datasource != "" {
		b = b.Datasource(sc.Datasource)
	}
	if execErr != nil {
		b = b.ErrorMessage(execErr.Error())
	}
	if o.Checker != nil && o.Checker.LastResult != nil {
		b = b.Validation(o.Checker.LastResult)
	}

	event, buildErr := b.Build()
	if buildErr != nil {
		// A malformed event here means the caller supplied a context that
		// failed Build's required-field check; that is a wiring bug upstream
		// of this package, not an execution failure, so it is dropped rather
		// than hidden inside rows/execErr.
		return
	}
	o.Writer.Write(event)
}
