package guard

import (
	"context"

	"mercator-hq/flowgate/pkg/gate"
)

// CallSite binds a resource and its fallback to a guard so the pair can be
// declared once and called many times.
type CallSite[T any] struct {
	guard    *Guard
	res      gate.Resource
	fallback func(ctx context.Context, blocked *gate.BlockError) (T, error)
}

// NewCallSite returns a call site for res. The fallback must produce the
// same result type as the work it stands in for. A nil fallback surfaces
// the *gate.BlockError to the caller.
func NewCallSite[T any](
	g *Guard,
	res gate.Resource,
	fallback func(ctx context.Context, blocked *gate.BlockError) (T, error),
) (*CallSite[T], error) {
	if err := res.Validate(); err != nil {
		return nil, err
	}
	return &CallSite[T]{guard: g, res: res, fallback: fallback}, nil
}

// Resource returns the bound resource.
func (c *CallSite[T]) Resource() gate.Resource {
	return c.res
}

// Call runs work through Do with the bound resource and fallback.
func (c *CallSite[T]) Call(ctx context.Context, work func(ctx context.Context) (T, error)) (T, error) {
	return Do(ctx, c.guard, c.res, work, c.fallback)
}
