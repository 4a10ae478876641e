package main

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/canonica-labs/canonica/internal/risk"
	"github.com/canonica-labs/canonica/internal/validate"
)

func TestFindSQLFilesWalksSubdirectoriesAndFiltersByExtension(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "a.sql"), "SELECT 1")
	mustWrite(t, filepath.Join(dir, "readme.txt"), "not sql")
	sub := filepath.Join(dir, "nested")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	mustWrite(t, filepath.Join(sub, "b.SQL"), "SELECT 2")

	got, err := findSQLFiles(dir)
	if err != nil {
		t.Fatalf("findSQLFiles: %v", err)
	}
	sort.Strings(got)
	if len(got) != 2 {
		t.Fatalf("got %v, want 2 files", got)
	}
	if !strings.HasSuffix(got[0], "a.sql") || !strings.HasSuffix(got[1], filepath.Join("nested", "b.SQL")) {
		t.Errorf("got %v", got)
	}
}

func TestFindSQLFilesReturnsEmptyForDirectoryWithNoSQLFiles(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "notes.md"), "hello")

	got, err := findSQLFiles(dir)
	if err != nil {
		t.Fatalf("findSQLFiles: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %v, want no files", got)
	}
}

func TestWriteHTMLReportsNoViolationsForEmptyResults(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "report.html")

	if err := writeHTML(out, nil); err != nil {
		t.Fatalf("writeHTML: %v", err)
	}
	contents, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(contents), "No violations found") {
		t.Errorf("expected the empty-results report to say so, got %q", contents)
	}
}

func TestWriteHTMLEscapesUserSuppliedMessageText(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "report.html")

	results := []fileViolations{
		{
			Path: "queries/<unsafe>.sql",
			Violations: []validate.Violation{
				{RiskLevel: risk.Critical, Message: "<script>alert(1)</script>", Suggestion: "add a WHERE clause"},
			},
		},
	}
	if err := writeHTML(out, results); err != nil {
		t.Fatalf("writeHTML: %v", err)
	}
	contents, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	body := string(contents)
	if strings.Contains(body, "<script>alert(1)</script>") {
		t.Error("expected the violation message to be HTML-escaped, found raw script tag")
	}
	if !strings.Contains(body, "&lt;script&gt;") {
		t.Errorf("expected an escaped script tag in the report, got %q", body)
	}
}

func TestRunScanDetectsUnsafeStatementAndReturnsViolationsExitCode(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "unsafe.sql"), "DELETE FROM users")

	got := runScan(&scanOptions{project: dir, format: "console"})
	if got != ExitViolations {
		t.Errorf("runScan exit code = %d, want ExitViolations (%d)", got, ExitViolations)
	}
}

func TestRunScanReturnsCleanExitCodeWhenNoFilesHaveViolations(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "safe.sql"), "SELECT id FROM users WHERE id = 1")

	got := runScan(&scanOptions{project: dir, format: "console"})
	if got != ExitClean {
		t.Errorf("runScan exit code = %d, want ExitClean (%d)", got, ExitClean)
	}
}

func mustWrite(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile(%s): %v", path, err)
	}
}
