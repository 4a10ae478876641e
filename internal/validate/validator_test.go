package validate

import (
	"testing"
	"time"

	"github.com/canonica-labs/canonica/internal/risk"
	"github.com/canonica-labs/canonica/internal/sqlast"
)

type stubChecker struct {
	name     string
	enabled  bool
	violations []Violation
}

func (c *stubChecker) Name() string      { return c.name }
func (c *stubChecker) IsEnabled() bool   { return c.enabled }
func (c *stubChecker) Check(ctx *SqlContext, stmt *sqlast.ParsedStatement) []Violation {
	return c.violations
}

func TestValidatorDispatchesToEnabledCheckersOnly(t *testing.T) {
	firing := &stubChecker{name: "firing", enabled: true, violations: []Violation{
		{RiskLevel: risk.High, Message: "no WHERE clause"},
	}}
	disabled := &stubChecker{name: "disabled", enabled: false, violations: []Violation{
		{RiskLevel: risk.Critical, Message: "should never run"},
	}}
	v := NewValidator([]Checker{firing, disabled}, nil, nil)

	result, err := v.Validate(&SqlContext{RawSQL: "SELECT * FROM orders"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RiskLevel != risk.High {
		t.Errorf("RiskLevel = %v, want High", result.RiskLevel)
	}
	if len(result.Violations) != 1 {
		t.Fatalf("expected exactly one violation from the enabled checker, got %d", len(result.Violations))
	}
}

func TestValidatorUnparseableSQLYieldsHighRiskViolation(t *testing.T) {
	v := NewValidator(nil, nil, nil)
	result, err := v.Validate(&SqlContext{RawSQL: "this is not (valid sql"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Passed {
		t.Error("an unparseable statement must not pass")
	}
	if result.RiskLevel != risk.High {
		t.Errorf("RiskLevel = %v, want High", result.RiskLevel)
	}
}

func TestValidatorDedupReturnsCachedResultWithoutRerunningCheckers(t *testing.T) {
	counting := &stubChecker{name: "counting", enabled: true}
	v := NewValidator([]Checker{counting}, nil, nil)

	dedup, err := NewDedupFilter(16, time.Minute)
	if err != nil {
		t.Fatalf("NewDedupFilter: %v", err)
	}
	v.Dedup = dedup

	ctx := &SqlContext{RawSQL: "SELECT 1"}
	first, err := v.Validate(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cached, ok := dedup.Lookup(Fingerprint("SELECT 1"))
	if !ok {
		t.Fatal("expected the first Validate call to populate the dedup cache")
	}
	if cached.RiskLevel != first.RiskLevel {
		t.Errorf("cached RiskLevel = %v, want %v", cached.RiskLevel, first.RiskLevel)
	}

	second, err := v.Validate(&SqlContext{RawSQL: "SELECT 1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second != cached {
		t.Error("expected the second Validate call to return the exact cached result")
	}
}

func TestApplyStrategyBlocksOnlyWhenStrategyIsBlockAndResultFailed(t *testing.T) {
	failing := NewResult()
	failing.AddViolation(Violation{RiskLevel: risk.Critical, Message: "DELETE with no WHERE clause"})

	if err := ApplyStrategy(risk.StrategyLog, "sql-1", failing); err != nil {
		t.Errorf("LOG strategy must never block, got error: %v", err)
	}
	if err := ApplyStrategy(risk.StrategyWarn, "sql-1", failing); err != nil {
		t.Errorf("WARN strategy must never block, got error: %v", err)
	}
	if err := ApplyStrategy(risk.StrategyBlock, "sql-1", NewResult()); err != nil {
		t.Errorf("BLOCK strategy must not block a passing result, got error: %v", err)
	}
	if err := ApplyStrategy(risk.StrategyBlock, "sql-1", failing); err == nil {
		t.Error("expected BLOCK strategy to reject a failing result")
	}
}
