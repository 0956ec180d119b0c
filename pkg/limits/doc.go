// Package limits decides admission for guarded resources from flow rules.
//
// # Overview
//
// A RuleManager holds a RuleSet and implements gate.Decider:
//
//   - QPS rules: admissions per stat interval (sliding window or token bucket)
//   - Concurrency rules: maximum in-flight entries, released on exit
//   - System rule: rejects inbound entries while the goroutine count is high
//
// Rules are matched by resource name and optionally restricted to inbound
// or outbound entries. Resources without rules are always admitted.
//
// # Usage
//
//	manager := limits.NewRuleManager()
//	if err := manager.LoadRules(set); err != nil {
//	    return err
//	}
//	g := guard.New(gate.New(manager),
//	    guard.WithObserver(limits.NewMetrics(prometheus.DefaultRegisterer, "flowgate")))
//
// # Reloading
//
// LoadRules swaps the whole set at once. Rules that are unchanged keep their
// statistics, so a reload does not reset window counts or in-flight slots.
// The rules subpackage loads sets from YAML and watches the file.
//
// # Thread Safety
//
// All operations are safe for concurrent use.
package limits
