package scoring

import (
	"testing"
	"time"

	"github.com/canonica-labs/canonica/internal/risk"
)

func mustResult(t *testing.T, rowsAffected, execTimeMs int64, errMsg string) *ExecutionResult {
	t.Helper()
	r, err := NewExecutionResult(rowsAffected, execTimeMs, errMsg, time.Now())
	if err != nil {
		t.Fatalf("NewExecutionResult: %v", err)
	}
	return r
}

func TestNewExecutionResultRejectsNegativeValues(t *testing.T) {
	if _, err := NewExecutionResult(-1, 10, "", time.Now()); err == nil {
		t.Error("expected an error for negative RowsAffected")
	}
	if _, err := NewExecutionResult(0, -1, "", time.Now()); err == nil {
		t.Error("expected an error for negative ExecutionTimeMs")
	}
}

func TestSlowQueryCheckerFlagsOverThreshold(t *testing.T) {
	c := &SlowQueryChecker{ThresholdMs: 1000}
	result := mustResult(t, 0, 5000, "")
	scores := c.Check(Context{Result: result})
	if len(scores) != 1 || scores[0].Severity != risk.High {
		t.Fatalf("expected one HIGH score, got %+v", scores)
	}
}

func TestSlowQueryCheckerIgnoresUnderThreshold(t *testing.T) {
	c := &SlowQueryChecker{ThresholdMs: 1000}
	result := mustResult(t, 0, 10, "")
	if scores := c.Check(Context{Result: result}); scores != nil {
		t.Fatalf("expected no scores, got %+v", scores)
	}
}

func TestDeadlockCheckerMatchesKnownPatterns(t *testing.T) {
	c := &DeadlockChecker{}
	result := mustResult(t, 0, 10, "ERROR: deadlock detected")
	scores := c.Check(Context{Result: result})
	if len(scores) != 1 || scores[0].Severity != risk.High {
		t.Fatalf("expected one HIGH score, got %+v", scores)
	}
}

func TestGenericErrorCheckerDefersToMoreSpecificCheckers(t *testing.T) {
	c := &GenericErrorChecker{}
	result := mustResult(t, 0, 10, "deadlock detected")
	if scores := c.Check(Context{Result: result}); scores != nil {
		t.Fatalf("GenericErrorChecker should yield to DeadlockChecker's pattern, got %+v", scores)
	}

	other := mustResult(t, 0, 10, "connection reset by peer")
	scores := c.Check(Context{Result: other})
	if len(scores) != 1 || scores[0].Severity != risk.Low {
		t.Fatalf("expected one LOW score for an unmatched error, got %+v", scores)
	}
}

func TestErrorRateSpikeCheckerFiresAtThreshold(t *testing.T) {
	store, err := NewWindowStore(16)
	if err != nil {
		t.Fatalf("NewWindowStore: %v", err)
	}
	c := &ErrorRateSpikeChecker{Window: store, Threshold: 3}

	now := time.Now()
	var last []RiskScore
	for i := 0; i < 3; i++ {
		result := mustResult(t, 0, 10, "boom")
		last = c.Check(Context{SqlID: "sql-1", Result: result})
		_ = now
	}
	if len(last) != 1 || last[0].Severity != risk.High {
		t.Fatalf("expected the third error to cross the threshold, got %+v", last)
	}
}

func TestErrorRateSpikeCheckerIgnoresSuccesses(t *testing.T) {
	store, err := NewWindowStore(16)
	if err != nil {
		t.Fatalf("NewWindowStore: %v", err)
	}
	c := &ErrorRateSpikeChecker{Window: store, Threshold: 1}
	result := mustResult(t, 5, 10, "")
	if scores := c.Check(Context{SqlID: "sql-2", Result: result}); scores != nil {
		t.Fatalf("expected no scores for a successful execution, got %+v", scores)
	}
}
