package rules

import (
	"testing"

	"github.com/canonica-labs/canonica/internal/risk"
	"github.com/canonica-labs/canonica/internal/validate"
)

func TestDdlOperationCheckerFlagsDropStatement(t *testing.T) {
	c := &DdlOperationChecker{Enabled: true}
	ctx := &validate.SqlContext{}
	stmt := parseOrFail(t, "DROP TABLE orders")
	got := c.Check(ctx, stmt)
	if len(got) != 1 || got[0].RiskLevel != risk.Critical {
		t.Fatalf("expected one CRITICAL violation for DROP, got %+v", got)
	}
}

func TestDdlOperationCheckerIgnoresNonDdl(t *testing.T) {
	c := &DdlOperationChecker{Enabled: true}
	ctx := &validate.SqlContext{}
	stmt := parseOrFail(t, "SELECT id FROM orders")
	if got := c.Check(ctx, stmt); got != nil {
		t.Fatalf("expected no violation for a SELECT, got %+v", got)
	}
}

func TestDangerousFunctionCheckerFlagsConfiguredFunction(t *testing.T) {
	c := &DangerousFunctionChecker{Enabled: true, Functions: []string{"LOAD_FILE"}}
	ctx := &validate.SqlContext{}
	stmt := parseOrFail(t, "SELECT id FROM orders")
	stmt.RawSQL = "SELECT LOAD_FILE('/etc/passwd')"
	got := c.Check(ctx, stmt)
	if len(got) != 1 || got[0].RiskLevel != risk.High {
		t.Fatalf("expected one HIGH violation, got %+v", got)
	}
}

func TestCallStatementCheckerFlagsStoredProcedureCall(t *testing.T) {
	c := &CallStatementChecker{Enabled: true}
	ctx := &validate.SqlContext{}
	stmt := parseOrFail(t, "CALL sp_cleanup_accounts()")
	got := c.Check(ctx, stmt)
	if len(got) != 1 || got[0].RiskLevel != risk.High {
		t.Fatalf("expected one HIGH violation for CALL, got %+v", got)
	}
}
