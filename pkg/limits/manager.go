package limits

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"mercator-hq/flowgate/pkg/gate"
	"mercator-hq/flowgate/pkg/limits/ratelimit"
)

// RuleManager is a gate.Decider driven by flow rules.
//
// For each entry it checks the system rule (inbound only), then every rule
// registered for the resource name whose entry filter matches. The first
// rule that rejects decides; concurrency slots taken by earlier rules are
// given back. Concurrency rules are evaluated before QPS rules so a
// concurrency rejection never consumes QPS budget.
//
// # Example
//
//	manager := limits.NewRuleManager()
//	err := manager.LoadRules(limits.RuleSet{Rules: []limits.Rule{
//	    {Resource: "sayHello", Grade: ratelimit.GradeQPS, Threshold: 10},
//	}})
//	g := gate.New(manager)
type RuleManager struct {
	mu         sync.RWMutex
	rules      []Rule
	byResource map[string][]*compiledRule
	system     SystemRule
	logger     *slog.Logger
}

// compiledRule pairs a rule with its live statistics.
type compiledRule struct {
	rule    Rule
	limiter *ratelimit.Limiter
}

// ManagerOption configures a RuleManager.
type ManagerOption func(*RuleManager)

// WithManagerLogger sets the manager's logger.
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *RuleManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewRuleManager returns a manager with no rules; it admits everything
// until rules are loaded.
func NewRuleManager(opts ...ManagerOption) *RuleManager {
	m := &RuleManager{
		byResource: make(map[string][]*compiledRule),
		logger:     slog.Default().With("component", "limits.manager"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// LoadRules validates set and replaces the active rules atomically. If any
// rule is invalid nothing changes. Rules whose Key is unchanged keep their
// statistics (window counts, in-flight slots).
func (m *RuleManager) LoadRules(set RuleSet) error {
	if err := set.Validate(); err != nil {
		return err
	}

	m.mu.RLock()
	// Duplicate keys each claim their own compiled rule, so two identical
	// rules never end up sharing one limiter.
	existing := make(map[string][]*compiledRule)
	for _, list := range m.byResource {
		for _, cr := range list {
			key := cr.rule.Key()
			existing[key] = append(existing[key], cr)
		}
	}
	m.mu.RUnlock()

	byResource := make(map[string][]*compiledRule)
	reused := 0
	for _, r := range set.Rules {
		var cr *compiledRule
		key := r.Key()
		if candidates := existing[key]; len(candidates) > 0 {
			cr, existing[key] = candidates[0], candidates[1:]
			reused++
		} else {
			limiter, err := ratelimit.NewLimiter(r.limiterConfig())
			if err != nil {
				return &RuleError{Rule: r, Err: err}
			}
			cr = &compiledRule{rule: r, limiter: limiter}
		}
		byResource[r.Resource] = append(byResource[r.Resource], cr)
	}

	for _, list := range byResource {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].limiter.HoldsSlots() && !list[j].limiter.HoldsSlots()
		})
	}

	rules := make([]Rule, len(set.Rules))
	copy(rules, set.Rules)

	m.mu.Lock()
	m.rules = rules
	m.byResource = byResource
	m.system = set.System
	m.mu.Unlock()

	m.logger.Info("flow rules loaded",
		"rules", len(rules),
		"resources", len(byResource),
		"reused", reused,
		"max_goroutines", set.System.MaxGoroutines,
	)
	return nil
}

// Rules returns a copy of the active rules.
func (m *RuleManager) Rules() []Rule {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Rule, len(m.rules))
	copy(out, m.rules)
	return out
}

// System returns the active system rule.
func (m *RuleManager) System() SystemRule {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.system
}

// InFlight returns the concurrency slots held for a resource across its
// concurrency rules.
func (m *RuleManager) InFlight(resource string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, cr := range m.byResource[resource] {
		n += cr.limiter.InFlight()
	}
	return n
}

// ShouldAdmit implements gate.Decider.
func (m *RuleManager) ShouldAdmit(_ context.Context, res gate.Resource, load gate.LoadSnapshot) gate.Decision {
	m.mu.RLock()
	rules := m.byResource[res.Name()]
	system := m.system
	m.mu.RUnlock()

	if res.EntryType() == gate.Inbound && system.MaxGoroutines > 0 && load.Goroutines > system.MaxGoroutines {
		return gate.Reject(fmt.Sprintf("system goroutine limit exceeded (%d)", system.MaxGoroutines))
	}

	var held []*ratelimit.Limiter
	for _, cr := range rules {
		if !cr.rule.EntryType.Matches(res.EntryType()) {
			continue
		}

		result := cr.limiter.Acquire()
		if !result.Allowed {
			for _, l := range held {
				l.Release()
			}
			return gate.Reject(result.Reason)
		}
		if cr.limiter.HoldsSlots() {
			held = append(held, cr.limiter)
		}
	}

	if len(held) == 0 {
		return gate.Admit()
	}
	return gate.AdmitWithExit(func() {
		for _, l := range held {
			l.Release()
		}
	})
}
