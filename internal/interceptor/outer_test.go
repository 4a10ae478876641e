package interceptor

import (
	"context"
	"errors"
	"testing"

	"github.com/canonica-labs/canonica/internal/risk"
	"github.com/canonica-labs/canonica/internal/rules"
	"github.com/canonica-labs/canonica/internal/validate"
	"github.com/canonica-labs/canonica/pkg/auditmodel"
)

type fakeWriter struct {
	events []*auditmodel.Event
}

func (w *fakeWriter) Write(event *auditmodel.Event) { w.events = append(w.events, event) }
func (w *fakeWriter) Close() error                  { return nil }

func TestOuterExecuteUpdateEmitsOneEventOnSuccess(t *testing.T) {
	checker := &CheckInterceptor{
		Validator: validate.NewValidator([]validate.Checker{&rules.MissingWhereChecker{Enabled: true}}, nil, nil),
		Strategy:  risk.StrategyBlock,
	}
	chain := NewChain()
	chain.Register(checker)
	writer := &fakeWriter{}
	outer := &Outer{Chain: chain, Checker: checker, Writer: writer}

	sc := &validate.SqlContext{RawSQL: "DELETE FROM orders WHERE id = 1", CommandType: risk.OperationDelete}
	rows, err := outer.ExecuteUpdate(context.Background(), sc, func(ctx context.Context, sql string) (int64, error) {
		return 1, nil
	})
	if err != nil {
		t.Fatalf("ExecuteUpdate: %v", err)
	}
	if rows != 1 {
		t.Errorf("rows = %d, want 1", rows)
	}
	if len(writer.events) != 1 {
		t.Fatalf("expected exactly one audit event, got %d", len(writer.events))
	}
	got := writer.events[0]
	if got.RowsAffected != 1 {
		t.Errorf("RowsAffected = %d, want 1", got.RowsAffected)
	}
	if got.ErrorMessage != nil {
		t.Errorf("ErrorMessage = %v, want nil", got.ErrorMessage)
	}
	if got.PreValidationResult == nil || !got.PreValidationResult.Passed {
		t.Errorf("expected a passing PreValidationResult, got %+v", got.PreValidationResult)
	}
}

func TestOuterExecuteUpdateNeverCallsExecWhenBlocked(t *testing.T) {
	checker := &CheckInterceptor{
		Validator: validate.NewValidator([]validate.Checker{&rules.MissingWhereChecker{Enabled: true}}, nil, nil),
		Strategy:  risk.StrategyBlock,
	}
	chain := NewChain()
	chain.Register(checker)
	writer := &fakeWriter{}
	outer := &Outer{Chain: chain, Checker: checker, Writer: writer}

	called := false
	sc := &validate.SqlContext{RawSQL: "DELETE FROM orders", CommandType: risk.OperationDelete}
	_, err := outer.ExecuteUpdate(context.Background(), sc, func(ctx context.Context, sql string) (int64, error) {
		called = true
		return 0, nil
	})
	if err == nil {
		t.Fatal("expected an unscoped DELETE to be rejected")
	}
	if called {
		t.Error("exec must not run once the chain rejects the statement")
	}
	if len(writer.events) != 1 {
		t.Fatalf("expected exactly one audit event for the rejection, got %d", len(writer.events))
	}
	if writer.events[0].ErrorMessage == nil {
		t.Error("expected the rejection reason on the audit event")
	}
}

func TestOuterExecuteQueryRecordsExecutionError(t *testing.T) {
	chain := NewChain()
	writer := &fakeWriter{}
	outer := &Outer{Chain: chain, Writer: writer}

	wantErr := errors.New("connection reset")
	sc := &validate.SqlContext{RawSQL: "SELECT * FROM orders", CommandType: risk.OperationSelect}
	_, err := outer.ExecuteQuery(context.Background(), sc, func(ctx context.Context, sql string) (int64, error) {
		return -1, wantErr
	})
	if err != wantErr {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
	if len(writer.events) != 1 {
		t.Fatalf("expected exactly one audit event, got %d", len(writer.events))
	}
	if writer.events[0].ErrorMessage == nil || *writer.events[0].ErrorMessage != wantErr.Error() {
		t.Errorf("ErrorMessage = %v, want %q", writer.events[0].ErrorMessage, wantErr.Error())
	}
}
