package demo

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"mercator-hq/flowgate/pkg/config"
	"mercator-hq/flowgate/pkg/guard"
)

// Workload is a background loop that runs until its context is cancelled.
type Workload interface {
	Run(ctx context.Context) error
}

// Runner runs a set of named workloads together.
type Runner struct {
	workloads map[string]Workload
	order     []string
	logger    *slog.Logger
}

// NewRunner creates an empty Runner.
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default().With("component", "demo")
	}
	return &Runner{workloads: make(map[string]Workload), logger: logger}
}

// NewRunnerFromConfig creates a Runner with the workloads cfg enables, all
// sharing g.
func NewRunnerFromConfig(cfg *config.DemoConfig, g *guard.Guard, users *UserService, logger *slog.Logger) *Runner {
	r := NewRunner(logger)
	if cfg.WorkloadEnabled(config.WorkloadFunctionWorkers) {
		r.Add(config.WorkloadFunctionWorkers, &FunctionWorkers{Guard: g, Count: cfg.FunctionWorkers, Logger: r.logger})
	}
	if cfg.WorkloadEnabled(config.WorkloadCustomResource) {
		r.Add(config.WorkloadCustomResource, &CustomResourceLoop{Guard: g, WarmUp: cfg.WarmUp, Logger: r.logger})
	}
	if cfg.WorkloadEnabled(config.WorkloadUserRequester) {
		r.Add(config.WorkloadUserRequester, &UserRequester{Users: users, WarmUp: cfg.WarmUp, Logger: r.logger})
	}
	return r
}

// Add registers w under name, replacing any workload of the same name.
func (r *Runner) Add(name string, w Workload) {
	if _, ok := r.workloads[name]; !ok {
		r.order = append(r.order, name)
	}
	r.workloads[name] = w
}

// Names returns the registered workload names in the order added.
func (r *Runner) Names() []string {
	return append([]string(nil), r.order...)
}

// Run starts every workload and blocks until ctx is cancelled and all have
// returned. The first workload error cancels the rest and is returned.
func (r *Runner) Run(ctx context.Context) error {
	if len(r.order) == 0 {
		r.logger.Info("no demo workloads enabled")
		<-ctx.Done()
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, name := range r.order {
		w := r.workloads[name]
		g.Go(func() error {
			r.logger.Debug("workload starting", "workload", name)
			if err := w.Run(ctx); err != nil {
				r.logger.Error("workload failed", "workload", name, "error", err)
				return err
			}
			return nil
		})
	}
	r.logger.Info("demo workloads started", "workloads", r.order)
	return g.Wait()
}
