package demo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"mercator-hq/flowgate/pkg/gate"
	"mercator-hq/flowgate/pkg/guard"
)

// Resource names used by the background workloads.
const (
	FunctionPrefix         = "function_"
	CustomResource         = "custom-defined-resource"
	DoSomethingResource    = "doSomething"
	DoAnotherThingResource = "doAnotherThing"
)

// FunctionWorkers runs Count workers; worker i loops on the outbound
// resource function_i with work that sleeps (i+1)*10ms.
type FunctionWorkers struct {
	Guard  *guard.Guard
	Count  int
	Logger *slog.Logger
}

// Run blocks until ctx is cancelled.
func (f *FunctionWorkers) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < f.Count; i++ {
		res, err := gate.NewResource(fmt.Sprintf("%s%d", FunctionPrefix, i), gate.Outbound)
		if err != nil {
			return err
		}
		work := time.Duration(i+1) * 10 * time.Millisecond
		g.Go(func() error {
			f.loop(ctx, res, work)
			return nil
		})
	}
	f.logger().Info("function workers started", "count", f.Count)
	return g.Wait()
}

func (f *FunctionWorkers) loop(ctx context.Context, res gate.Resource, work time.Duration) {
	for ctx.Err() == nil {
		// A block is counted by the guard and the worker moves straight on.
		_ = guard.Run(ctx, f.Guard, res, func(ctx context.Context) error {
			sleep(ctx, work)
			return nil
		}, nil)
	}
}

func (f *FunctionWorkers) logger() *slog.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return slog.Default().With("component", "demo")
}

// CustomResourceLoop enters the inbound custom-defined-resource in a loop
// after WarmUp. Admitted iterations run the nested doSomething and
// doAnotherThing entries then pause 10ms; blocked iterations pause 20ms.
type CustomResourceLoop struct {
	Guard  *guard.Guard
	WarmUp time.Duration
	Logger *slog.Logger
}

// Run blocks until ctx is cancelled.
func (c *CustomResourceLoop) Run(ctx context.Context) error {
	custom := gate.MustResource(CustomResource, gate.Inbound)
	doSomething := gate.MustResource(DoSomethingResource, gate.Outbound)
	doAnotherThing := gate.MustResource(DoAnotherThingResource, gate.Outbound)

	// Nested blocks are counted and swallowed so the outer work still
	// succeeds.
	swallow := func(context.Context, *gate.BlockError) error { return nil }

	if !sleep(ctx, c.WarmUp) {
		return nil
	}
	logger := c.logger()
	logger.Info("custom resource loop started", "resource", CustomResource)

	for ctx.Err() == nil {
		err := guard.Run(ctx, c.Guard, custom, func(ctx context.Context) error {
			err := guard.Run(ctx, c.Guard, doSomething, func(ctx context.Context) error {
				return guard.Run(ctx, c.Guard, doAnotherThing, func(ctx context.Context) error {
					sleep(ctx, 10*time.Millisecond)
					return nil
				}, swallow)
			}, swallow)
			sleep(ctx, 10*time.Millisecond)
			return err
		}, nil)

		switch {
		case err == nil:
		case gate.IsBlocked(err):
			sleep(ctx, 20*time.Millisecond)
		default:
			logger.ErrorContext(ctx, "custom resource work failed", "error", err)
		}
	}
	return nil
}

func (c *CustomResourceLoop) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default().With("component", "demo")
}

// sleep waits for d or ctx, reporting whether the full duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
