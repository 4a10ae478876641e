package scoring

import (
	"regexp"

	"github.com/canonica-labs/canonica/internal/risk"
	"github.com/canonica-labs/canonica/internal/sqlast"
)

// Context is the input to a post-execution Checker: the raw SQL, its
// parsed form (nil if parsing failed — checkers must tolerate that), the
// execution observation, and the sqlId used for window-keyed state.
type Context struct {
	SQL       string
	SqlID     string
	Statement *sqlast.ParsedStatement
	Result    *ExecutionResult
}

// Checker is a pure function of its Context plus any bounded window state
// it owns itself (e.g. ErrorRateSpikeChecker's WindowStore). Checkers never
// share mutable state with internal/rules.
type Checker interface {
	Name() string
	Check(ctx Context) []RiskScore
}

func score(level risk.Level, confidence float64, justification string) RiskScore {
	return RiskScore{Severity: level, Confidence: confidence, Justification: justification}
}

// SlowQueryChecker flags executions whose wall-clock time exceeds a
// configured threshold.
type SlowQueryChecker struct {
	ThresholdMs int64
}

func (c *SlowQueryChecker) Name() string { return "SlowQueryChecker" }

func (c *SlowQueryChecker) Check(ctx Context) []RiskScore {
	if ctx.Result.ExecutionTimeMs <= c.ThresholdMs {
		return nil
	}
	return []RiskScore{score(risk.High, 1.0, "execution time exceeded the slow-query threshold")}
}

var deadlockPattern = regexp.MustCompile(`(?i)deadlock|lock wait timeout|could not serialize access`)

// DeadlockChecker pattern-matches the execution's error message for
// deadlock/lock-wait signatures reported by the underlying engine.
type DeadlockChecker struct{}

func (c *DeadlockChecker) Name() string { return "DeadlockChecker" }

func (c *DeadlockChecker) Check(ctx Context) []RiskScore {
	if ctx.Result.ErrorMessage == "" || !deadlockPattern.MatchString(ctx.Result.ErrorMessage) {
		return nil
	}
	return []RiskScore{score(risk.High, 1.0, "execution failed with a deadlock or lock-wait error")}
}

var syntaxErrorPattern = regexp.MustCompile(`(?i)syntax error|you have an error in your sql syntax|unterminated`)

// SyntaxErrorChecker flags executions that failed due to malformed SQL.
type SyntaxErrorChecker struct{}

func (c *SyntaxErrorChecker) Name() string { return "SyntaxErrorChecker" }

func (c *SyntaxErrorChecker) Check(ctx Context) []RiskScore {
	if ctx.Result.ErrorMessage == "" || !syntaxErrorPattern.MatchString(ctx.Result.ErrorMessage) {
		return nil
	}
	return []RiskScore{score(risk.Medium, 1.0, "execution failed with a SQL syntax error")}
}

// GenericErrorChecker is the catch-all for any other reported error, at low
// severity so it never outranks a more specific checker's finding.
type GenericErrorChecker struct{}

func (c *GenericErrorChecker) Name() string { return "GenericErrorChecker" }

func (c *GenericErrorChecker) Check(ctx Context) []RiskScore {
	if ctx.Result.ErrorMessage == "" {
		return nil
	}
	if deadlockPattern.MatchString(ctx.Result.ErrorMessage) || syntaxErrorPattern.MatchString(ctx.Result.ErrorMessage) {
		return nil
	}
	return []RiskScore{score(risk.Low, 0.5, "execution reported an error: "+truncate(ctx.Result.ErrorMessage, 200))}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// ActualImpactNoWhereChecker confirms, using the actual row count, that a
// write without a WHERE clause had real blast radius — the post-execution
// counterpart to rules.MissingWhereChecker, which only reasons about the
// statement shape before it runs.
type ActualImpactNoWhereChecker struct {
	RowThreshold int64
}

func (c *ActualImpactNoWhereChecker) Name() string { return "ActualImpactNoWhereChecker" }

func (c *ActualImpactNoWhereChecker) Check(ctx Context) []RiskScore {
	if ctx.Statement == nil {
		return nil
	}
	if ctx.Statement.Kind != sqlast.KindUpdate && ctx.Statement.Kind != sqlast.KindDelete {
		return nil
	}
	if ctx.Statement.HasWhere() {
		return nil
	}
	if ctx.Result.RowsAffected <= c.RowThreshold {
		return nil
	}
	return []RiskScore{score(risk.Critical, 1.0, "unconditional write affected more rows than the configured threshold")}
}

// ErrorRateSpikeChecker flags a sqlId whose trailing-window error count
// crosses a configured threshold, using WindowStore for bounded per-sqlId
// state.
type ErrorRateSpikeChecker struct {
	Window    *WindowStore
	Threshold int
}

func (c *ErrorRateSpikeChecker) Name() string { return "ErrorRateSpikeChecker" }

func (c *ErrorRateSpikeChecker) Check(ctx Context) []RiskScore {
	if ctx.Result.ErrorMessage == "" {
		return nil
	}
	count := c.Window.RecordError(ctx.SqlID, ctx.Result.ExecutionTimestamp)
	if count < c.Threshold {
		return nil
	}
	return []RiskScore{score(risk.High, 1.0, "error rate for this statement spiked within the trailing window")}
}
