package sqlast

import (
	"testing"

	"github.com/canonica-labs/canonica/internal/risk"
)

func TestParseRejectsEmptyStatement(t *testing.T) {
	if _, err := Parse("   "); err == nil {
		t.Fatal("expected an error for an empty statement")
	}
}

func TestParseRejectsInvalidSyntax(t *testing.T) {
	if _, err := Parse("SELEKT * FORM orders"); err == nil {
		t.Fatal("expected an error for invalid SQL syntax")
	}
}

func TestParseSelectCapturesKindOperationAndWhere(t *testing.T) {
	stmt, err := Parse("SELECT id FROM orders WHERE status = 'open'")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if stmt.Kind != KindSelect {
		t.Errorf("Kind = %v, want KindSelect", stmt.Kind)
	}
	if stmt.Operation != risk.OperationSelect {
		t.Errorf("Operation = %v, want OperationSelect", stmt.Operation)
	}
	if !stmt.HasWhere() {
		t.Error("expected HasWhere() to be true")
	}
	if len(stmt.Tables) != 1 || stmt.Tables[0] != "orders" {
		t.Errorf("Tables = %v, want [orders]", stmt.Tables)
	}
}

func TestParseSelectWithoutWhereHasNoWhereExpr(t *testing.T) {
	stmt, err := Parse("SELECT id FROM orders")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if stmt.HasWhere() {
		t.Error("expected HasWhere() to be false for a statement with no WHERE clause")
	}
}

func TestParseUpdateAndDeleteCaptureOperationType(t *testing.T) {
	upd, err := Parse("UPDATE accounts SET balance = 0 WHERE id = 1")
	if err != nil {
		t.Fatalf("Parse(UPDATE): %v", err)
	}
	if upd.Kind != KindUpdate || upd.Operation != risk.OperationUpdate {
		t.Errorf("UPDATE: Kind=%v Operation=%v", upd.Kind, upd.Operation)
	}

	del, err := Parse("DELETE FROM accounts WHERE id = 1")
	if err != nil {
		t.Fatalf("Parse(DELETE): %v", err)
	}
	if del.Kind != KindDelete || del.Operation != risk.OperationDelete {
		t.Errorf("DELETE: Kind=%v Operation=%v", del.Kind, del.Operation)
	}
}

func TestParseInsertCapturesTargetTable(t *testing.T) {
	stmt, err := Parse("INSERT INTO accounts (id, balance) VALUES (1, 100)")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if stmt.Kind != KindInsert || stmt.Operation != risk.OperationInsert {
		t.Errorf("Kind=%v Operation=%v", stmt.Kind, stmt.Operation)
	}
	if len(stmt.Tables) != 1 || stmt.Tables[0] != "accounts" {
		t.Errorf("Tables = %v, want [accounts]", stmt.Tables)
	}
}

func TestParseDetectsMultiStatement(t *testing.T) {
	stmt, err := Parse("SELECT 1; SELECT 2;")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !stmt.MultiStmt {
		t.Error("expected MultiStmt to be true for a semicolon-separated batch")
	}
}

func TestParseExtractsPaginationFromLimitClause(t *testing.T) {
	stmt, err := Parse("SELECT id FROM orders LIMIT 10")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if stmt.Pagination == nil || !stmt.Pagination.HasLimit {
		t.Error("expected Pagination.HasLimit to be true")
	}
}

func TestKindStringCoversAllVariants(t *testing.T) {
	cases := map[Kind]string{
		KindSelect: "SELECT",
		KindUpdate: "UPDATE",
		KindDelete: "DELETE",
		KindInsert: "INSERT",
		KindOther:  "OTHER",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", kind, got, want)
		}
	}
}
