package rules

import (
	"testing"

	"github.com/canonica-labs/canonica/internal/risk"
	"github.com/canonica-labs/canonica/internal/sqlast"
	"github.com/canonica-labs/canonica/internal/validate"
)

func parseOrFail(t *testing.T, sql string) *sqlast.ParsedStatement {
	t.Helper()
	stmt, err := sqlast.Parse(sql)
	if err != nil {
		t.Fatalf("Parse(%q): %v", sql, err)
	}
	return stmt
}

func TestMissingWhereCheckerFlagsUnscopedUpdateAndDelete(t *testing.T) {
	c := &MissingWhereChecker{Enabled: true}
	ctx := &validate.SqlContext{}

	upd := parseOrFail(t, "UPDATE accounts SET balance = 0")
	if got := c.Check(ctx, upd); len(got) != 1 || got[0].RiskLevel != risk.Critical {
		t.Fatalf("expected one CRITICAL violation for UPDATE without WHERE, got %+v", got)
	}

	del := parseOrFail(t, "DELETE FROM accounts")
	if got := c.Check(ctx, del); len(got) != 1 || got[0].RiskLevel != risk.Critical {
		t.Fatalf("expected one CRITICAL violation for DELETE without WHERE, got %+v", got)
	}
}

func TestMissingWhereCheckerIgnoresScopedStatements(t *testing.T) {
	c := &MissingWhereChecker{Enabled: true}
	ctx := &validate.SqlContext{}
	upd := parseOrFail(t, "UPDATE accounts SET balance = 0 WHERE id = 1")
	if got := c.Check(ctx, upd); got != nil {
		t.Fatalf("expected no violations for a scoped UPDATE, got %+v", got)
	}
}

func TestDummyConditionCheckerFlagsTautology(t *testing.T) {
	c := &DummyConditionChecker{Enabled: true}
	ctx := &validate.SqlContext{}
	stmt := parseOrFail(t, "DELETE FROM accounts WHERE 1 = 1")
	got := c.Check(ctx, stmt)
	if len(got) != 1 || got[0].RiskLevel != risk.High {
		t.Fatalf("expected one HIGH violation for a dummy condition, got %+v", got)
	}
}

func TestDummyConditionCheckerIgnoresRealPredicate(t *testing.T) {
	c := &DummyConditionChecker{Enabled: true}
	ctx := &validate.SqlContext{}
	stmt := parseOrFail(t, "DELETE FROM accounts WHERE id = 1")
	if got := c.Check(ctx, stmt); got != nil {
		t.Fatalf("expected no violations for a real predicate, got %+v", got)
	}
}

func TestBlacklistFieldCheckerFlagsWhenOnlyBlacklistedFieldsReferenced(t *testing.T) {
	c := &BlacklistFieldChecker{Enabled: true, Fields: []string{"is_deleted"}}
	ctx := &validate.SqlContext{}
	stmt := parseOrFail(t, "DELETE FROM accounts WHERE is_deleted = 1")
	got := c.Check(ctx, stmt)
	if len(got) != 1 || got[0].RiskLevel != risk.High {
		t.Fatalf("expected one HIGH violation, got %+v", got)
	}
}

func TestBlacklistFieldCheckerIgnoresMixedPredicate(t *testing.T) {
	c := &BlacklistFieldChecker{Enabled: true, Fields: []string{"is_deleted"}}
	ctx := &validate.SqlContext{}
	stmt := parseOrFail(t, "DELETE FROM accounts WHERE is_deleted = 1 AND id = 2")
	if got := c.Check(ctx, stmt); got != nil {
		t.Fatalf("expected no violation when a non-blacklisted field is also present, got %+v", got)
	}
}

func TestWhitelistFieldCheckerFlagsMissingRequiredField(t *testing.T) {
	c := &WhitelistFieldChecker{Enabled: true, RequiredByTable: map[string][]string{
		"accounts": {"tenant_id"},
	}}
	ctx := &validate.SqlContext{}
	stmt := parseOrFail(t, "DELETE FROM accounts WHERE id = 1")
	got := c.Check(ctx, stmt)
	if len(got) != 1 {
		t.Fatalf("expected one violation for a missing required field, got %+v", got)
	}
}

func TestWhitelistFieldCheckerPassesWhenRequiredFieldPresent(t *testing.T) {
	c := &WhitelistFieldChecker{Enabled: true, RequiredByTable: map[string][]string{
		"accounts": {"tenant_id"},
	}}
	ctx := &validate.SqlContext{}
	stmt := parseOrFail(t, "DELETE FROM accounts WHERE tenant_id = 5 AND id = 1")
	if got := c.Check(ctx, stmt); got != nil {
		t.Fatalf("expected no violations, got %+v", got)
	}
}
