package rules

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"mercator-hq/flowgate/pkg/limits"
)

func TestNewWatcher_Validation(t *testing.T) {
	if _, err := NewWatcher("", limits.NewRuleManager()); err == nil {
		t.Error("expected error for empty path")
	}
	if _, err := NewWatcher("rules.yaml", nil); err == nil {
		t.Error("expected error for nil loader")
	}
}

func TestWatcher_Reload(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "rules.yaml", sampleRules)

	manager := limits.NewRuleManager()
	w, err := NewWatcher(path, manager)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = w.Stop() }()

	if err := w.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if got := len(manager.Rules()); got != 3 {
		t.Errorf("manager has %d rules, want 3", got)
	}
}

func TestWatcher_ReloadInvalidKeepsRules(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "rules.yaml", sampleRules)

	manager := limits.NewRuleManager()
	w, err := NewWatcher(path, manager)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = w.Stop() }()

	if err := w.Reload(); err != nil {
		t.Fatal(err)
	}

	writeFile(t, dir, "rules.yaml", "rules:\n  - resource: a\n    grade: nope\n")
	if err := w.Reload(); err == nil {
		t.Fatal("expected reload of invalid file to fail")
	}
	if got := len(manager.Rules()); got != 3 {
		t.Errorf("previous rules should stay active, got %d", got)
	}
}

func TestWatcher_Watch_FileChange(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "rules.yaml", sampleRules)

	manager := limits.NewRuleManager()
	reloaded := make(chan int, 10)

	w, err := NewWatcher(path, manager,
		WithDebounce(50*time.Millisecond),
		WithReloadHook(func(set limits.RuleSet, err error) {
			if err == nil {
				reloaded <- len(set.Rules)
			}
		}),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = w.Stop() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = w.Watch(ctx)
	}()

	// Wait for watcher to start
	time.Sleep(100 * time.Millisecond)

	writeFile(t, dir, "rules.yaml", "rules:\n  - resource: sayHello\n    grade: qps\n    threshold: 1\n")

	select {
	case n := <-reloaded:
		if n != 1 {
			t.Errorf("reloaded %d rules, want 1", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reload not triggered after file modification")
	}

	if rules := manager.Rules(); len(rules) != 1 || rules[0].Threshold != 1 {
		t.Errorf("manager not updated: %+v", rules)
	}
}

func TestWatcher_Watch_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "rules.yaml", sampleRules)

	var reloads atomic.Int32
	w, err := NewWatcher(path, limits.NewRuleManager(),
		WithDebounce(20*time.Millisecond),
		WithReloadHook(func(limits.RuleSet, error) { reloads.Add(1) }),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = w.Stop() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Watch(ctx) }()

	time.Sleep(100 * time.Millisecond)
	writeFile(t, dir, "other.yaml", "rules: []\n")
	time.Sleep(200 * time.Millisecond)

	if n := reloads.Load(); n != 0 {
		t.Errorf("unrelated file triggered %d reloads", n)
	}
}

func TestWatcher_StopIdempotent(t *testing.T) {
	w, err := NewWatcher("rules.yaml", limits.NewRuleManager())
	if err != nil {
		t.Fatal(err)
	}
	if w.Stopped() {
		t.Error("Stopped() = true before Stop()")
	}
	if err := w.Stop(); err != nil {
		t.Errorf("first Stop() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
	if !w.Stopped() {
		t.Error("Stopped() = false after Stop()")
	}
}

// ============================================================================
// Debouncer
// ============================================================================

func TestDebouncer_CollapsesBursts(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	var calls atomic.Int32
	for i := 0; i < 10; i++ {
		d.Trigger(func() { calls.Add(1) })
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(150 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("callback ran %d times, want 1", n)
	}
}

func TestDebouncer_Stop(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)

	var calls atomic.Int32
	d.Trigger(func() { calls.Add(1) })
	d.Stop()
	d.Trigger(func() { calls.Add(1) })

	time.Sleep(60 * time.Millisecond)
	if n := calls.Load(); n != 0 {
		t.Errorf("callback ran %d times after Stop, want 0", n)
	}
}
