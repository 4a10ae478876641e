package validate

import (
	"github.com/canonica-labs/canonica/internal/errors"
	"github.com/canonica-labs/canonica/internal/metrics"
	"github.com/canonica-labs/canonica/internal/risk"
	"github.com/canonica-labs/canonica/internal/sqlast"
)

// Checker is the subset of rules.Checker the orchestrator depends on. It is
// redeclared here (rather than importing package rules) to keep validate
// free of a dependency on the concrete checker catalogue; rules.Checker
// satisfies this interface structurally.
type Checker interface {
	Name() string
	IsEnabled() bool
	Check(ctx *SqlContext, stmt *sqlast.ParsedStatement) []Violation
}

// Validator is the orchestrator (C3): parse once, deduplicate, dispatch to
// the catalogue in a stable order, aggregate.
type Validator struct {
	Checkers []Checker
	Dedup    *DedupFilter // nil disables deduplication
	Metrics  *metrics.Registry
}

// NewValidator builds a Validator over an ordered checker catalogue.
func NewValidator(checkers []Checker, dedup *DedupFilter, m *metrics.Registry) *Validator {
	return &Validator{Checkers: checkers, Dedup: dedup, Metrics: m}
}

// Validate implements the four-step orchestrator contract: parse-once,
// dedup lookup, stable-order checker dispatch, aggregate.
func (vr *Validator) Validate(ctx *SqlContext) (*Result, error) {
	if vr.Metrics != nil {
		vr.Metrics.ValidateCallsTotal.Inc()
	}

	if ctx.Statement == nil {
		stmt, err := sqlast.Parse(ctx.RawSQL)
		if vr.Metrics != nil {
			vr.Metrics.ParseCallsTotal.Inc()
		}
		if err != nil {
			result := NewResult()
			result.AddViolation(Violation{
				RiskLevel: risk.High,
				Message:   "unparseable SQL",
			})
			return result, nil
		}
		ctx.Statement = stmt
	} else if vr.Metrics != nil {
		vr.Metrics.PreparsedContextsTotal.Inc()
	}

	fingerprint := ctx.Fingerprint()
	if vr.Dedup != nil {
		if cached, ok := vr.Dedup.Lookup(fingerprint); ok {
			if vr.Metrics != nil {
				vr.Metrics.DedupHitsTotal.Inc()
			}
			return cached, nil
		}
	}

	result := NewResult()
	for _, checker := range vr.Checkers {
		if !checker.IsEnabled() {
			continue
		}
		if vr.Metrics != nil {
			vr.Metrics.CheckerInvocationsTotal.WithLabelValues(checker.Name()).Inc()
		}
		violations := checker.Check(ctx, ctx.Statement)
		for _, viol := range violations {
			result.AddViolation(viol)
			if vr.Metrics != nil {
				vr.Metrics.CheckerViolationsTotal.WithLabelValues(checker.Name(), viol.RiskLevel.String()).Inc()
			}
		}
	}

	if vr.Dedup != nil {
		vr.Dedup.Store(fingerprint, result)
	}

	return result, nil
}

// ApplyStrategy enacts the active strategy (§7) for a validated statement.
// LOG and WARN always let execution proceed; BLOCK returns an error when the
// result failed.
func ApplyStrategy(strategy risk.Strategy, sqlID string, result *Result) error {
	if result.Passed || strategy != risk.StrategyBlock {
		return nil
	}
	worst := worstViolation(result)
	return errors.NewValidationBlocked(sqlID, result.RiskLevel.String(), "validator", worst.Message)
}

func worstViolation(result *Result) Violation {
	var worst Violation
	for _, v := range result.Violations {
		if v.RiskLevel >= worst.RiskLevel {
			worst = v
		}
	}
	return worst
}
