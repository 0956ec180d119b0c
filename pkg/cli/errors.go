package cli

import (
	"errors"
	"fmt"

	"mercator-hq/flowgate/pkg/config"
	"mercator-hq/flowgate/pkg/limits"
	"mercator-hq/flowgate/pkg/limits/rules"
)

// Process exit codes.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitConfigError = 2
)

// ConfigError is a problem with flags or configuration found before a
// command does any work.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

// CommandError wraps the failure of a subcommand.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// NewCommandError creates a CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{Command: command, Err: err}
}

// ExitCode maps err to a process exit code. Invalid configuration, rule
// files and flags exit 2; everything else exits 1.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var cfgErr *ConfigError
	var validationErr config.ValidationError
	var loadErr *rules.LoadError
	switch {
	case errors.As(err, &cfgErr),
		errors.As(err, &validationErr),
		errors.As(err, &loadErr),
		errors.Is(err, limits.ErrConfigInvalid):
		return ExitConfigError
	default:
		return ExitFailure
	}
}
