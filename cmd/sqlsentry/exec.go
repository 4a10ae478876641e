package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/canonica-labs/canonica/internal/audit"
	"github.com/canonica-labs/canonica/internal/interceptor"
	"github.com/canonica-labs/canonica/internal/risk"
	"github.com/canonica-labs/canonica/internal/rules"
	"github.com/canonica-labs/canonica/internal/sqlast"
	"github.com/canonica-labs/canonica/internal/validate"
)

// execOptions configures the one-shot live interceptor demo: it is the
// thinnest possible host adapter around the outer wrapper, standing in for
// a MyBatis/JDBC driver wrapper that would otherwise run this chain on
// every statement.
type execOptions struct {
	sql         string
	dsn         string
	strategy    string
	executionLayer string
	statementID string
	datasource  string
	auditOut    string
}

func newExecCmd() *cobra.Command {
	opts := &execOptions{}
	cmd := &cobra.Command{
		Use:   "exec",
		Short: "Run one SQL statement through the live interceptor chain and emit an audit event",
		Long: "exec drives --sql through the same check/rewrite chain and audit writer the ingestion\n" +
			"pipeline's host integration would, end to end: validate, rewrite, execute (if --dsn is set,\n" +
			"otherwise a dry run), then write exactly one audit event.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.sql, "sql", "", "the SQL statement to run (required)")
	cmd.Flags().StringVar(&opts.dsn, "dsn", "", "Postgres DSN to execute against; omitted means dry run")
	cmd.Flags().StringVar(&opts.strategy, "strategy", string(risk.StrategyBlock), "risk strategy: LOG, WARN, or BLOCK")
	cmd.Flags().StringVar(&opts.executionLayer, "layer", string(risk.LayerJDBC), "execution layer tag for the audit event")
	cmd.Flags().StringVar(&opts.statementID, "statement-id", "", "mapper method ID / prepared statement name")
	cmd.Flags().StringVar(&opts.datasource, "datasource", "", "logical datasource name")
	cmd.Flags().StringVar(&opts.auditOut, "audit-out", "", "file to append audit events to (default: stdout)")
	cmd.MarkFlagRequired("sql")
	return cmd
}

func runExec(ctx context.Context, opts *execOptions) error {
	stmt, err := sqlast.Parse(opts.sql)
	if err != nil {
		return fmt.Errorf("parsing --sql: %w", err)
	}

	checkers := rules.NewCatalogue(rules.Config{})
	validator := validate.NewValidator(toValidateCheckers(checkers), nil, nil)
	checker := &interceptor.CheckInterceptor{Validator: validator, Strategy: risk.Strategy(opts.strategy)}

	chain := interceptor.NewChain()
	chain.Register(checker)
	chain.Register(&interceptor.SelectLimitFallback{Cap: 1000})

	out, closeOut, err := openAuditOut(opts.auditOut)
	if err != nil {
		return err
	}
	defer closeOut()
	writer := audit.NewLocalWriter(out, 16, zerolog.Nop(), nil)
	defer writer.Close()

	outer := &interceptor.Outer{Chain: chain, Checker: checker, Writer: writer}
	sc := &validate.SqlContext{
		RawSQL:         opts.sql,
		CommandType:    operationFromKind(stmt.Kind),
		ExecutionLayer: risk.ExecutionLayer(opts.executionLayer),
		StatementID:    opts.statementID,
		Datasource:     opts.datasource,
	}

	exec := newExecutor(opts.dsn, stmt.Kind)
	var rows int64
	if stmt.Kind == sqlast.KindSelect {
		rows, err = outer.ExecuteQuery(ctx, sc, exec)
	} else {
		rows, err = outer.ExecuteUpdate(ctx, sc, exec)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "sqlsentry: statement did not complete: %v\n", err)
		return nil
	}
	fmt.Printf("sqlsentry: executed, rows affected = %d\n", rows)
	return nil
}

// operationFromKind maps the AST classification to the risk package's
// operation taxonomy; sqlast.KindOther covers DDL/unclassifiable statements
// which the checker catalogue does not score.
func operationFromKind(k sqlast.Kind) risk.OperationType {
	switch k {
	case sqlast.KindSelect:
		return risk.OperationSelect
	case sqlast.KindInsert:
		return risk.OperationInsert
	case sqlast.KindUpdate:
		return risk.OperationUpdate
	case sqlast.KindDelete:
		return risk.OperationDelete
	default:
		return risk.OperationUnknown
	}
}

// newExecutor returns a live database/sql-backed Executor when dsn is set,
// and a dry-run Executor otherwise: the interceptor wiring (validate,
// rewrite, time, audit) runs identically either way, only the final hop to
// a real datastore is stubbed out. SELECTs count the rows the result set
// carries; everything else reports sql.Result.RowsAffected.
func newExecutor(dsn string, kind sqlast.Kind) interceptor.Executor {
	if dsn == "" {
		return func(ctx context.Context, outgoingSQL string) (int64, error) {
			fmt.Printf("sqlsentry: dry run, would execute: %s\n", outgoingSQL)
			return 0, nil
		}
	}
	if kind == sqlast.KindSelect {
		return func(ctx context.Context, outgoingSQL string) (int64, error) {
			db, err := sql.Open("postgres", dsn)
			if err != nil {
				return 0, err
			}
			defer db.Close()

			rows, err := db.QueryContext(ctx, outgoingSQL)
			if err != nil {
				return 0, err
			}
			defer rows.Close()

			var count int64
			for rows.Next() {
				count++
			}
			return count, rows.Err()
		}
	}
	return func(ctx context.Context, outgoingSQL string) (int64, error) {
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return 0, err
		}
		defer db.Close()

		res, err := db.ExecContext(ctx, outgoingSQL)
		if err != nil {
			return 0, err
		}
		return res.RowsAffected()
	}
}

func openAuditOut(path string) (*os.File, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening --audit-out: %w", err)
	}
	return f, func() { f.Close() }, nil
}
