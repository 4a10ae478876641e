// Package interceptor implements the inner-interceptor chain (C5): a
// priority-ordered registry of stages, each exposing willDoX/beforeX hooks,
// run synchronously within one SqlContext invocation.
//
// Adapted from the gateway's engine router (a priority-ordered registry
// selecting one best match) generalized from "pick one" to "run all in
// ascending-priority order, stopping on a false willDoX".
package interceptor

import (
	"context"
	"sort"
	"sync"

	"github.com/canonica-labs/canonica/internal/validate"
)

// Priority bands, per the chain's scheduling model.
const (
	PriorityCheckBand    = 1   // 1-99: check interceptors
	PriorityRewriteBand  = 100 // 100-199: fallback rewriters
	PriorityUserBand     = 200 // 200+: user/rewrite interceptors
)

// Inner is one stage of the chain.
type Inner interface {
	Name() string
	Priority() int
	// WillDoQuery/WillDoUpdate return false to short-circuit the remainder
	// of the chain for the current operation.
	WillDoQuery(ctx context.Context, sc *validate.SqlContext) bool
	WillDoUpdate(ctx context.Context, sc *validate.SqlContext) bool
	// BeforeQuery/BeforeUpdate may replace the outgoing SQL; only stages
	// with Priority() >= PriorityRewriteBand are permitted to do so
	// (enforced by Chain.InvokeQuery/InvokeUpdate, not by the stage itself).
	BeforeQuery(ctx context.Context, sc *validate.SqlContext, outgoingSQL string) (string, error)
	BeforeUpdate(ctx context.Context, sc *validate.SqlContext, outgoingSQL string) (string, error)
}

// Base supplies permissive no-op defaults so a stage overrides only what it
// needs, mirroring the visitor package's BaseVisitor pattern.
type Base struct{}

func (Base) WillDoQuery(context.Context, *validate.SqlContext) bool  { return true }
func (Base) WillDoUpdate(context.Context, *validate.SqlContext) bool { return true }
func (Base) BeforeQuery(_ context.Context, _ *validate.SqlContext, sql string) (string, error) {
	return sql, nil
}
func (Base) BeforeUpdate(_ context.Context, _ *validate.SqlContext, sql string) (string, error) {
	return sql, nil
}

// Chain is the registered, priority-ordered stage list.
type Chain struct {
	mu     sync.RWMutex
	stages []Inner
}

// NewChain builds an empty chain.
func NewChain() *Chain {
	return &Chain{}
}

// Register adds a stage to the chain.
func (c *Chain) Register(stage Inner) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stages = append(c.stages, stage)
	sort.SliceStable(c.stages, func(i, j int) bool {
		return c.stages[i].Priority() < c.stages[j].Priority()
	})
}

// Stages returns a snapshot of the registered stages in priority order.
func (c *Chain) Stages() []Inner {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Inner, len(c.stages))
	copy(out, c.stages)
	return out
}

// Outcome is the result of running the chain for one invocation.
type Outcome struct {
	OutgoingSQL  string
	ShortCircuit bool
	StoppedAt    string
}

// InvokeQuery runs the chain for a read operation. The parsed statement on
// sc is cleared when InvokeQuery returns, via defer, mirroring the "cleared
// in a finally block" requirement — Go's defer is the direct analogue of a
// try/finally here, since goroutines have no thread-local storage to leak
// across a pool in the first place.
func (c *Chain) InvokeQuery(ctx context.Context, sc *validate.SqlContext) (*Outcome, error) {
	defer func() { sc.Statement = nil }()

	outgoing := sc.RawSQL
	for _, stage := range c.Stages() {
		if !stage.WillDoQuery(ctx, sc) {
			return &Outcome{OutgoingSQL: outgoing, ShortCircuit: true, StoppedAt: stage.Name()}, nil
		}
		if stage.Priority() >= PriorityRewriteBand {
			rewritten, err := stage.BeforeQuery(ctx, sc, outgoing)
			if err != nil {
				return nil, err
			}
			outgoing = rewritten
		} else if _, err := stage.BeforeQuery(ctx, sc, outgoing); err != nil {
			return nil, err
		}
	}
	return &Outcome{OutgoingSQL: outgoing}, nil
}

// InvokeUpdate runs the chain for a write operation, symmetric to InvokeQuery.
func (c *Chain) InvokeUpdate(ctx context.Context, sc *validate.SqlContext) (*Outcome, error) {
	defer func() { sc.Statement = nil }()

	outgoing := sc.RawSQL
	for _, stage := range c.Stages() {
		if !stage.WillDoUpdate(ctx, sc) {
			return &Outcome{OutgoingSQL: outgoing, ShortCircuit: true, StoppedAt: stage.Name()}, nil
		}
		if stage.Priority() >= PriorityRewriteBand {
			rewritten, err := stage.BeforeUpdate(ctx, sc, outgoing)
			if err != nil {
				return nil, err
			}
			outgoing = rewritten
		} else if _, err := stage.BeforeUpdate(ctx, sc, outgoing); err != nil {
			return nil, err
		}
	}
	return &Outcome{OutgoingSQL: outgoing}, nil
}
