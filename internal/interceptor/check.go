package interceptor

import (
	"context"

	"github.com/canonica-labs/canonica/internal/risk"
	"github.com/canonica-labs/canonica/internal/validate"
)

// CheckInterceptor bridges the chain to the validation orchestrator (§4.3)
// at priority 10, turning violations into behavior according to the active
// strategy.
type CheckInterceptor struct {
	Base
	Validator *validate.Validator
	Strategy  risk.Strategy
	LastError  error          // set by WillDoX when the BLOCK strategy rejects a statement
	LastResult *validate.Result // the most recent Validate() outcome, for the outer wrapper's audit event
}

func (c *CheckInterceptor) Name() string { return "CheckInterceptor" }
func (c *CheckInterceptor) Priority() int { return PriorityCheckBand + 9 }

func (c *CheckInterceptor) WillDoQuery(ctx context.Context, sc *validate.SqlContext) bool {
	return c.check(sc)
}

func (c *CheckInterceptor) WillDoUpdate(ctx context.Context, sc *validate.SqlContext) bool {
	return c.check(sc)
}

func (c *CheckInterceptor) check(sc *validate.SqlContext) bool {
	result, err := c.Validator.Validate(sc)
	if err != nil {
		c.LastError = err
		return false
	}
	c.LastResult = result
	if blockErr := validate.ApplyStrategy(c.Strategy, sc.Fingerprint(), result); blockErr != nil {
		c.LastError = blockErr
		return false
	}
	return true
}
