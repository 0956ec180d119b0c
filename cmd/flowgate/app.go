package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"golang.org/x/sync/errgroup"

	"mercator-hq/flowgate/pkg/config"
	"mercator-hq/flowgate/pkg/demo"
	"mercator-hq/flowgate/pkg/gate"
	"mercator-hq/flowgate/pkg/guard"
	"mercator-hq/flowgate/pkg/limits"
	"mercator-hq/flowgate/pkg/limits/rules"
	"mercator-hq/flowgate/pkg/report"
	"mercator-hq/flowgate/pkg/server"
	"mercator-hq/flowgate/pkg/telemetry/health"
	"mercator-hq/flowgate/pkg/telemetry/metrics"
	"mercator-hq/flowgate/pkg/telemetry/tracing"
)

// app is one running flowgate process: a guard backed by the rule manager,
// the HTTP server, the reporter, the rules watcher and the demo workloads.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	tracer    *tracing.Tracer
	manager   *limits.RuleManager
	guard     *guard.Guard
	collector *metrics.Collector
	checker   *health.Checker
	reporter  *report.Reporter
	watcher   *rules.Watcher
	server    *server.Server
	runner    *demo.Runner
}

// appOptions are the process-level inputs that do not come from config.
type appOptions struct {
	// addr is where the server listens; it is the provider URL when
	// demo.provider_url is empty.
	addr net.Addr

	// reportOut receives the per-second report lines.
	reportOut io.Writer

	// tracing options, e.g. an in-memory exporter in tests.
	tracingOpts []tracing.Option
}

func newApp(cfg *config.Config, logger *slog.Logger, opts appOptions) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	tracer, err := tracing.New(&cfg.Telemetry.Tracing, append([]tracing.Option{tracing.WithVersion(Version)}, opts.tracingOpts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracer = tracer

	a.manager = limits.NewRuleManager(limits.WithManagerLogger(logger.With("component", "limits")))
	if path := cfg.Rules.FilePath; path != "" {
		set, err := rules.LoadFile(path)
		if err != nil {
			return nil, err
		}
		if err := a.manager.LoadRules(set); err != nil {
			return nil, fmt.Errorf("failed to load rules from %s: %w", path, err)
		}
		if cfg.Rules.Watch {
			a.watcher, err = rules.NewWatcher(path, a.manager,
				rules.WithDebounce(cfg.Rules.DebounceInterval),
				rules.WithWatcherLogger(logger.With("component", "rules")),
			)
			if err != nil {
				return nil, fmt.Errorf("failed to create rules watcher: %w", err)
			}
		}
	}

	a.collector = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	ns := a.collector.Namespace()

	a.guard = guard.New(
		gate.New(a.manager, gate.WithLogger(logger.With("component", "gate"))),
		guard.WithTracer(tracer.Tracer()),
		guard.WithObserver(limits.NewMetrics(a.collector.Registry(), ns)),
		guard.WithLogger(logger.With("component", "guard")),
	)
	if err := limits.RegisterCounters(a.collector.Registry(), ns, a.guard.Counters()); err != nil {
		return nil, fmt.Errorf("failed to register guard counters: %w", err)
	}

	if cfg.Reporter.Enabled {
		a.reporter = report.New(a.guard.Counters(), report.Config{
			Schedule: cfg.Reporter.Schedule,
			Writer:   opts.reportOut,
			Logger:   logger.With("component", "report"),
		})
	}

	a.checker = health.New(0)
	a.registerChecks()

	a.server = server.New(&cfg.Server,
		server.WithLogger(logger.With("component", "server")),
		server.WithMetrics(a.collector),
		server.WithHealth(a.checker, health.NewVersionInfo(Version, GitCommit, BuildDate)),
		server.WithTracePropagation(),
	)

	providerURL := cfg.Demo.ProviderURL
	if providerURL == "" && opts.addr != nil {
		providerURL = "http://" + opts.addr.String()
	}
	demoLogger := logger.With("component", "demo")
	users := demo.NewUserService(a.guard)
	demo.RegisterRoutes(a.server, demo.Services{
		Provider: &demo.Provider{Name: cfg.Demo.GreetingName},
		Consumer: demo.NewConsumer(a.guard, demo.NewProviderClient(a.guard, providerURL, cfg.Demo.ProviderTimeout, demoLogger)),
		Sentinel: demo.NewSentinelController(a.guard),
	})
	a.runner = demo.NewRunnerFromConfig(&cfg.Demo, a.guard, users, demoLogger)

	return a, nil
}

func (a *app) registerChecks() {
	if a.cfg.Rules.FilePath != "" {
		a.checker.Register("rules", func(context.Context) error {
			if len(a.manager.Rules()) == 0 {
				return errors.New("no flow rules loaded")
			}
			return nil
		})
	}
	if a.reporter != nil {
		a.checker.Register("reporter", func(context.Context) error {
			if !a.reporter.IsRunning() {
				return errors.New("reporter is not running")
			}
			return nil
		})
	}
}

// run serves on ln until ctx is cancelled. The first component to fail
// stops the others.
func (a *app) run(ctx context.Context, ln net.Listener) error {
	defer a.shutdownTracer()

	g, ctx := errgroup.WithContext(ctx)

	if a.reporter != nil {
		if err := a.reporter.Start(ctx); err != nil {
			_ = ln.Close()
			return err
		}
		defer a.reporter.Stop()
	}

	if a.watcher != nil {
		g.Go(func() error {
			defer func() { _ = a.watcher.Stop() }()
			return a.watcher.Watch(ctx)
		})
	}

	g.Go(func() error { return a.server.Serve(ctx, ln) })
	g.Go(func() error { return a.runner.Run(ctx) })

	a.logger.Info("flowgate started",
		"address", ln.Addr().String(),
		"rules", len(a.manager.Rules()),
		"workloads", a.runner.Names(),
	)

	err := g.Wait()
	a.logger.Info("flowgate stopped", "counters", a.guard.Counters().Snapshot().String())
	return err
}

// close releases what newApp acquired for an app that will never run.
func (a *app) close() {
	if a.watcher != nil {
		if err := a.watcher.Stop(); err != nil {
			a.logger.Warn("rules watcher stop failed", "error", err)
		}
	}
	a.shutdownTracer()
}

func (a *app) shutdownTracer() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.tracer.Shutdown(ctx); err != nil {
		a.logger.Warn("tracer shutdown failed", "error", err)
	}
}
