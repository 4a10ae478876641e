package main

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/canonica-labs/canonica/internal/rules"
	"github.com/canonica-labs/canonica/internal/validate"
)

type scanOptions struct {
	project         string
	configPath      string
	format          string
	outPath         string
	failOnCritical  bool
}

type fileViolations struct {
	Path       string
	Violations []validate.Violation
}

func newScanCmd() *cobra.Command {
	opts := &scanOptions{}
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan a project directory for unsafe SQL statements",
		RunE: func(cmd *cobra.Command, args []string) error {
			exitCodeFromScan = runScan(opts)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.project, "project", ".", "project directory to scan for .sql files")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "config file path (not read by scan; every checker runs with built-in defaults)")
	cmd.Flags().StringVar(&opts.format, "format", "console", "output format: console, html, or both")
	cmd.Flags().StringVar(&opts.outPath, "out", "", "output file path (required for html/both)")
	cmd.Flags().BoolVar(&opts.failOnCritical, "fail-on-critical", false, "exit 1 only when a CRITICAL violation is found, not any violation")
	return cmd
}

func runScan(opts *scanOptions) int {
	checkers := rules.NewCatalogue(rules.Config{})
	validator := validate.NewValidator(toValidateCheckers(checkers), nil, nil)

	files, err := findSQLFiles(opts.project)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sqlsentry: %v\n", err)
		return ExitError
	}

	var results []fileViolations
	anyCritical := false
	anyViolation := false

	for _, path := range files {
		raw, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sqlsentry: reading %s: %v\n", path, err)
			continue
		}
		ctx := &validate.SqlContext{RawSQL: string(raw)}
		result, err := validator.Validate(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sqlsentry: validating %s: %v\n", path, err)
			continue
		}
		if len(result.Violations) == 0 {
			continue
		}
		anyViolation = true
		for _, viol := range result.Violations {
			if viol.RiskLevel.String() == "CRITICAL" {
				anyCritical = true
			}
		}
		results = append(results, fileViolations{Path: path, Violations: result.Violations})
	}

	if opts.format == "console" || opts.format == "both" {
		printConsole(results)
	}
	if opts.format == "html" || opts.format == "both" {
		if opts.outPath == "" {
			fmt.Fprintln(os.Stderr, "sqlsentry: --out is required for html output")
			return ExitError
		}
		if err := writeHTML(opts.outPath, results); err != nil {
			fmt.Fprintf(os.Stderr, "sqlsentry: writing html report: %v\n", err)
			return ExitError
		}
	}

	if opts.failOnCritical {
		if anyCritical {
			return ExitViolations
		}
		return ExitClean
	}
	if anyViolation {
		return ExitViolations
	}
	return ExitClean
}

func toValidateCheckers(checkers []rules.Checker) []validate.Checker {
	out := make([]validate.Checker, len(checkers))
	for i, c := range checkers {
		out[i] = c
	}
	return out
}

func findSQLFiles(root string) ([]string, error) {
	var files []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".sql") {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func printConsole(results []fileViolations) {
	if len(results) == 0 {
		fmt.Println("sqlsentry: no violations found")
		return
	}
	for _, fv := range results {
		fmt.Printf("%s\n", fv.Path)
		for _, v := range fv.Violations {
			fmt.Printf("  [%s] %s\n", v.RiskLevel, v.Message)
			if v.Suggestion != "" {
				fmt.Printf("    suggestion: %s\n", v.Suggestion)
			}
		}
	}
}

func writeHTML(path string, results []fileViolations) error {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><head><title>sqlsentry report</title></head><body>")
	b.WriteString("<h1>sqlsentry scan report</h1>")
	if len(results) == 0 {
		b.WriteString("<p>No violations found.</p>")
	}
	for _, fv := range results {
		b.WriteString("<h2>" + html.EscapeString(fv.Path) + "</h2><ul>")
		for _, v := range fv.Violations {
			b.WriteString("<li><strong>" + html.EscapeString(v.RiskLevel.String()) + "</strong>: ")
			b.WriteString(html.EscapeString(v.Message))
			if v.Suggestion != "" {
				b.WriteString(" <em>(" + html.EscapeString(v.Suggestion) + ")</em>")
			}
			b.WriteString("</li>")
		}
		b.WriteString("</ul>")
	}
	b.WriteString("</body></html>")
	return os.WriteFile(path, []byte(b.String()), 0o644)
}
