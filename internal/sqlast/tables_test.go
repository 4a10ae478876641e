package sqlast

import "testing"

func TestExtractTablesFromJoin(t *testing.T) {
	stmt, err := Parse("SELECT o.id FROM orders o JOIN customers c ON o.customer_id = c.id")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := map[string]bool{"orders": true, "customers": true}
	if len(stmt.Tables) != len(want) {
		t.Fatalf("Tables = %v, want 2 entries", stmt.Tables)
	}
	for _, tbl := range stmt.Tables {
		if !want[tbl] {
			t.Errorf("unexpected table %q in %v", tbl, stmt.Tables)
		}
	}
}

func TestExtractTablesFromSubquery(t *testing.T) {
	stmt, err := Parse("SELECT id FROM (SELECT id FROM orders) sub")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(stmt.Tables) != 1 || stmt.Tables[0] != "orders" {
		t.Errorf("Tables = %v, want [orders]", stmt.Tables)
	}
}

func TestExtractTablesExcludesCTENames(t *testing.T) {
	stmt, err := Parse("WITH recent AS (SELECT id FROM orders) SELECT id FROM recent")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	for _, tbl := range stmt.Tables {
		if tbl == "recent" {
			t.Error("CTE name 'recent' should be filtered out of Tables")
		}
	}
	found := false
	for _, tbl := range stmt.Tables {
		if tbl == "orders" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected the CTE's underlying table 'orders' to be captured, got %v", stmt.Tables)
	}
}

func TestFormatTableNameIncludesSchemaQualifier(t *testing.T) {
	stmt, err := Parse("SELECT id FROM public.orders")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(stmt.Tables) != 1 || stmt.Tables[0] != "public.orders" {
		t.Errorf("Tables = %v, want [public.orders]", stmt.Tables)
	}
}
