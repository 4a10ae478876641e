package scoring

import (
	"testing"
	"time"

	"github.com/canonica-labs/canonica/internal/risk"
	"github.com/canonica-labs/canonica/pkg/auditmodel"
)

type panicChecker struct{}

func (panicChecker) Name() string                { return "PanicChecker" }
func (panicChecker) Check(ctx Context) []RiskScore { panic("boom") }

type fixedChecker struct {
	scores []RiskScore
}

func (f fixedChecker) Name() string                { return "FixedChecker" }
func (f fixedChecker) Check(ctx Context) []RiskScore { return f.scores }

func TestEngineAggregatesMaxSeverity(t *testing.T) {
	checkers := []Checker{
		fixedChecker{scores: []RiskScore{score(risk.Low, 1.0, "low")}},
		fixedChecker{scores: []RiskScore{score(risk.Critical, 1.0, "critical")}},
	}
	engine := NewEngine(checkers)

	event := &auditmodel.Event{SqlID: "abc", SQL: "SELECT 1", Timestamp: time.Now()}
	result, err := NewExecutionResult(1, 10, "", time.Now())
	if err != nil {
		t.Fatalf("NewExecutionResult: %v", err)
	}

	report, err := engine.Score(event, result)
	if err != nil {
		t.Fatalf("Score returned an unexpected error: %v", err)
	}
	if report.AggregatedSeverity != risk.Critical {
		t.Errorf("AggregatedSeverity = %v, want Critical", report.AggregatedSeverity)
	}
	if report.SqlID != "abc" {
		t.Errorf("SqlID = %q, want %q", report.SqlID, "abc")
	}
	if report.ReportID == "" {
		t.Error("expected a non-empty ReportID")
	}
}

func TestEnginePanicIsolatesOnlyThatChecker(t *testing.T) {
	checkers := []Checker{
		panicChecker{},
		fixedChecker{scores: []RiskScore{score(risk.Medium, 1.0, "still runs")}},
	}
	engine := NewEngine(checkers)

	event := &auditmodel.Event{SqlID: "xyz", SQL: "SELECT 1", Timestamp: time.Now()}
	result, err := NewExecutionResult(1, 10, "", time.Now())
	if err != nil {
		t.Fatalf("NewExecutionResult: %v", err)
	}

	report, err := engine.Score(event, result)
	if err == nil {
		t.Fatal("expected Score to report the panicking checker's error")
	}
	if report == nil {
		t.Fatal("expected a partial report even when one checker panics")
	}
	if report.AggregatedSeverity != risk.Medium {
		t.Errorf("AggregatedSeverity = %v, want Medium from the surviving checker", report.AggregatedSeverity)
	}
	if len(report.CheckerResults) != 1 {
		t.Errorf("expected exactly one checker result to survive, got %d", len(report.CheckerResults))
	}
}

func TestEngineDefaultsToSafeWhenNoCheckerFires(t *testing.T) {
	engine := NewEngine([]Checker{fixedChecker{}})
	event := &auditmodel.Event{SqlID: "none", SQL: "SELECT 1", Timestamp: time.Now()}
	result, err := NewExecutionResult(1, 10, "", time.Now())
	if err != nil {
		t.Fatalf("NewExecutionResult: %v", err)
	}

	report, err := engine.Score(event, result)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.AggregatedSeverity != risk.Safe {
		t.Errorf("AggregatedSeverity = %v, want Safe", report.AggregatedSeverity)
	}
}
