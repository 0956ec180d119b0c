package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"mercator-hq/flowgate/pkg/cli"
	"mercator-hq/flowgate/pkg/limits"
	"mercator-hq/flowgate/pkg/limits/rules"
)

var lintFlags struct {
	format string
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Work with flow rule files",
}

var rulesLintCmd = &cobra.Command{
	Use:   "lint FILE...",
	Short: "Validate flow rule files",
	Long: `Validate flow rule files without starting flowgate.

Each file is parsed as YAML (unknown keys are errors) and every rule is
checked: resource names, grades, strategies, thresholds and intervals.

Examples:
  # Lint one file
  flowgate rules lint rules.yaml

  # JSON output for CI/CD
  flowgate rules lint rules/*.yaml --format json`,
	Args: cobra.MinimumNArgs(1),
	RunE: lintRules,
}

var rulesPrintCmd = &cobra.Command{
	Use:   "print FILE",
	Short: "Print a rule file in normalized form",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		set, err := rules.LoadFile(args[0])
		if err != nil {
			return err
		}
		data, err := rules.Marshal(set)
		if err != nil {
			return cli.NewCommandError("rules print", err)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesLintCmd, rulesPrintCmd)

	rulesLintCmd.Flags().StringVar(&lintFlags.format, "format", "text", "output format: text, json")
}

// lintResult is the outcome for one file.
type lintResult struct {
	File          string   `json:"file"`
	Valid         bool     `json:"valid"`
	Rules         int      `json:"rules"`
	MaxGoroutines int      `json:"max_goroutines,omitempty"`
	Errors        []string `json:"errors,omitempty"`
}

func lintRules(cmd *cobra.Command, args []string) error {
	if lintFlags.format != "text" && lintFlags.format != "json" {
		return cli.NewConfigError("format", fmt.Sprintf("unsupported format %q (valid: text, json)", lintFlags.format))
	}

	results := make([]lintResult, 0, len(args))
	var errs []error
	for _, path := range args {
		set, err := rules.LoadFile(path)
		result := lintResult{File: path, Valid: err == nil, Rules: len(set.Rules), MaxGoroutines: set.System.MaxGoroutines}
		if err != nil {
			result.Errors = lintMessages(err)
			errs = append(errs, err)
		}
		results = append(results, result)
	}

	out := cmd.OutOrStdout()
	if lintFlags.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		writeLintText(out, results)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%d of %d rule files invalid: %w", len(errs), len(args), errors.Join(errs...))
	}
	return nil
}

// lintMessages splits a joined validation error into one message per rule.
func lintMessages(err error) []string {
	if joined, ok := unwrapJoined(err); ok {
		msgs := make([]string, 0, len(joined))
		for _, e := range joined {
			msgs = append(msgs, e.Error())
		}
		return msgs
	}
	return []string{err.Error()}
}

// unwrapJoined finds the first errors.Join result in err's chain.
func unwrapJoined(err error) ([]error, bool) {
	for err != nil {
		if j, ok := err.(interface{ Unwrap() []error }); ok {
			if _, isRule := err.(*limits.RuleError); !isRule {
				return j.Unwrap(), true
			}
			return nil, false
		}
		err = errors.Unwrap(err)
	}
	return nil, false
}

func writeLintText(w io.Writer, results []lintResult) {
	for _, r := range results {
		if r.Valid {
			fmt.Fprintf(w, "✓ %s: %d rules valid\n", r.File, r.Rules)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", r.File)
		for _, msg := range r.Errors {
			fmt.Fprintf(w, "    %s\n", msg)
		}
	}
}
