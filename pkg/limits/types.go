package limits

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"mercator-hq/flowgate/pkg/gate"
	"mercator-hq/flowgate/pkg/limits/ratelimit"
)

// EntryFilter selects which entry types a rule applies to.
type EntryFilter string

const (
	// EntryAny applies the rule to inbound and outbound entries.
	EntryAny EntryFilter = "any"

	// EntryInbound applies the rule to inbound entries only.
	EntryInbound EntryFilter = "inbound"

	// EntryOutbound applies the rule to outbound entries only.
	EntryOutbound EntryFilter = "outbound"
)

// Matches reports whether the filter covers t. An empty filter means any.
func (f EntryFilter) Matches(t gate.EntryType) bool {
	switch f {
	case "", EntryAny:
		return true
	case EntryInbound:
		return t == gate.Inbound
	case EntryOutbound:
		return t == gate.Outbound
	default:
		return false
	}
}

// Rule is a flow rule for one resource.
type Rule struct {
	// Resource is the resource name the rule applies to.
	Resource string `yaml:"resource" json:"resource"`

	// EntryType restricts the rule to inbound or outbound entries.
	// Default: any.
	EntryType EntryFilter `yaml:"entry_type,omitempty" json:"entry_type,omitempty"`

	// Grade is "qps" or "concurrency".
	Grade ratelimit.Grade `yaml:"grade" json:"grade"`

	// Strategy is the QPS algorithm: "sliding_window" (default) or
	// "token_bucket".
	Strategy ratelimit.Strategy `yaml:"strategy,omitempty" json:"strategy,omitempty"`

	// Threshold is admissions per StatInterval for qps rules and maximum
	// in-flight entries for concurrency rules.
	Threshold int64 `yaml:"threshold" json:"threshold"`

	// StatInterval is the QPS window. Default: 1s.
	StatInterval time.Duration `yaml:"stat_interval,omitempty" json:"stat_interval,omitempty"`

	// Burst is the token bucket capacity. Default: Threshold.
	Burst int64 `yaml:"burst,omitempty" json:"burst,omitempty"`
}

// Validate checks a single rule.
func (r Rule) Validate() error {
	if strings.TrimSpace(r.Resource) == "" {
		return &RuleError{Rule: r, Err: errors.New("resource is required")}
	}
	switch r.EntryType {
	case "", EntryAny, EntryInbound, EntryOutbound:
	default:
		return &RuleError{Rule: r, Err: fmt.Errorf("unknown entry_type %q (valid: inbound, outbound, any)", r.EntryType)}
	}
	if err := r.limiterConfig().Validate(); err != nil {
		return &RuleError{Rule: r, Err: err}
	}
	return nil
}

// Key identifies the rule's behaviour. Two rules with the same key share
// statistics across reloads.
func (r Rule) Key() string {
	entry := r.EntryType
	if entry == "" {
		entry = EntryAny
	}
	return fmt.Sprintf("%s|%s|%s|%s|%d|%s|%d",
		r.Resource, entry, r.Grade, r.Strategy, r.Threshold, r.StatInterval, r.Burst)
}

func (r Rule) limiterConfig() ratelimit.Config {
	return ratelimit.Config{
		Grade:        r.Grade,
		Threshold:    r.Threshold,
		Strategy:     r.Strategy,
		StatInterval: r.StatInterval,
		Burst:        r.Burst,
	}
}

// SystemRule protects the whole process. It only applies to inbound
// entries.
type SystemRule struct {
	// MaxGoroutines rejects inbound entries while the goroutine count is
	// above this value. Zero disables the check.
	MaxGoroutines int `yaml:"max_goroutines,omitempty" json:"max_goroutines,omitempty"`
}

// Validate checks the system rule.
func (s SystemRule) Validate() error {
	if s.MaxGoroutines < 0 {
		return fmt.Errorf("%w: system.max_goroutines must be >= 0, got %d", ErrConfigInvalid, s.MaxGoroutines)
	}
	return nil
}

// RuleSet is the full set of rules loaded at once.
type RuleSet struct {
	Rules  []Rule     `yaml:"rules" json:"rules"`
	System SystemRule `yaml:"system,omitempty" json:"system,omitempty"`
}

// Validate checks every rule and collects all failures.
func (s RuleSet) Validate() error {
	var errs []error
	for _, r := range s.Rules {
		if err := r.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.System.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Error types for rule handling.
var (
	// ErrConfigInvalid is the base error for invalid rules.
	ErrConfigInvalid = errors.New("invalid flow rule")
)

// RuleError describes why a single rule is invalid.
type RuleError struct {
	// Rule is the offending rule.
	Rule Rule

	// Err is the underlying problem.
	Err error
}

// Error implements the error interface.
func (e *RuleError) Error() string {
	return fmt.Sprintf("%s rule for %q: %v", e.Rule.Grade, e.Rule.Resource, e.Err)
}

// Unwrap returns ErrConfigInvalid so callers can test with errors.Is, and
// the underlying cause.
func (e *RuleError) Unwrap() []error {
	return []error{ErrConfigInvalid, e.Err}
}
