package main

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/flowgate/pkg/cli"
	"mercator-hq/flowgate/pkg/config"
	"mercator-hq/flowgate/pkg/telemetry/logging"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	rulesFile     string
	watch         bool
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start flowgate",
	Long: `Start the flowgate server and demo workloads with the specified configuration.

Guarded calls are admitted or blocked by the rules file. Every second a line
"<unix_millis>, total:N, pass:N, block:N" is printed to stdout; logs go to
stderr.

Examples:
  # Start with defaults
  flowgate run

  # Start with a config file
  flowgate run --config /etc/flowgate/config.yaml

  # Load rules and reload them on change
  flowgate run --rules rules.yaml --watch

  # Validate config and rules without starting
  flowgate run --rules rules.yaml --dry-run`,
	RunE: runFlowgate,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().StringVarP(&runFlags.rulesFile, "rules", "r", "", "override rules file path")
	runCmd.Flags().BoolVar(&runFlags.watch, "watch", false, "reload the rules file when it changes")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config and rules without starting")
}

func runFlowgate(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig()
	if err != nil {
		return err
	}

	logger, err := logging.Setup(logging.Config{
		Level:     cfg.Telemetry.Logging.Level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
		Writer:    os.Stderr,
	})
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	if runFlags.dryRun {
		a, err := newApp(cfg, logger, appOptions{})
		if err != nil {
			return err
		}
		a.close()
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration valid")
		return nil
	}

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()

	ln, err := net.Listen("tcp", cfg.Server.ListenAddress)
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to listen on %s: %w", cfg.Server.ListenAddress, err))
	}

	a, err := newApp(cfg, logger, appOptions{addr: ln.Addr(), reportOut: cmd.OutOrStdout()})
	if err != nil {
		_ = ln.Close()
		return err
	}

	logger.Info("endpoints ready",
		"health", "http://"+ln.Addr().String()+"/health",
		"metrics", "http://"+ln.Addr().String()+cfg.Telemetry.Metrics.Path,
	)

	if err := a.run(ctx, ln); err != nil {
		return cli.NewCommandError("run", err)
	}
	return nil
}

// loadRunConfig loads the config file, applies flag overrides and validates
// the result.
func loadRunConfig() (*config.Config, error) {
	if err := config.Initialize(cfgFile); err != nil {
		return nil, err
	}
	cfg := config.GetConfig()

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	if runFlags.rulesFile != "" {
		cfg.Rules.FilePath = runFlags.rulesFile
	}
	if runFlags.watch {
		cfg.Rules.Watch = true
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
