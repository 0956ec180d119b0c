package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"mercator-hq/flowgate/pkg/config"
	"mercator-hq/flowgate/pkg/gate"
	"mercator-hq/flowgate/pkg/gate/gatetest"
	"mercator-hq/flowgate/pkg/guard"
	"mercator-hq/flowgate/pkg/limits"
)

func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Enabled:   true,
		Path:      "/metrics",
		Namespace: "test",
	}
}

func TestNewCollector(t *testing.T) {
	registry := prometheus.NewRegistry()
	c := NewCollector(testConfig(), registry)

	if c.Registry() != registry {
		t.Error("collector should use the supplied registry")
	}
	if c.Namespace() != "test" {
		t.Errorf("Namespace() = %q", c.Namespace())
	}
	if c.Path() != "/metrics" {
		t.Errorf("Path() = %q", c.Path())
	}
	if !c.Enabled() {
		t.Error("Enabled() = false")
	}
}

func TestNewCollector_Defaults(t *testing.T) {
	c := NewCollector(&config.MetricsConfig{}, nil)

	if c.Namespace() != config.DefaultMetricsNamespace {
		t.Errorf("Namespace() = %q", c.Namespace())
	}
	if c.Path() != config.DefaultMetricsPath {
		t.Errorf("Path() = %q", c.Path())
	}

	families, err := c.Registry().Gather()
	if err != nil {
		t.Fatal(err)
	}
	var sawGo bool
	for _, f := range families {
		if strings.HasPrefix(f.GetName(), "go_") {
			sawGo = true
		}
	}
	if !sawGo {
		t.Error("new registry should include the Go runtime collector")
	}
}

func TestCollector_RecordHTTPRequest(t *testing.T) {
	c := NewCollector(testConfig(), prometheus.NewRegistry())

	c.RecordHTTPRequest("GET /consumer/sayHello", 200, 15*time.Millisecond)
	c.RecordHTTPRequest("GET /consumer/sayHello", 200, 5*time.Millisecond)
	c.RecordHTTPRequest("GET /consumer/sayHello", 500, time.Millisecond)

	if got := testutil.ToFloat64(c.httpRequests.WithLabelValues("GET /consumer/sayHello", "200")); got != 2 {
		t.Errorf("200 count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.httpRequests.WithLabelValues("GET /consumer/sayHello", "500")); got != 1 {
		t.Errorf("500 count = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(c.httpDuration); n != 1 {
		t.Errorf("duration series = %d, want 1", n)
	}
}

// ============================================================================
// Handler
// ============================================================================

func TestHandler_ExposesGuardMetrics(t *testing.T) {
	c := NewCollector(testConfig(), prometheus.NewRegistry())

	observer := limits.NewMetrics(c.Registry(), c.Namespace())
	g := guard.New(gate.New(gatetest.AlwaysReject("closed")), guard.WithObserver(observer))
	if err := limits.RegisterCounters(c.Registry(), c.Namespace(), g.Counters()); err != nil {
		t.Fatal(err)
	}

	res := gate.MustResource("sayHello", gate.Inbound)
	_ = guard.Run(context.Background(), g, res,
		func(ctx context.Context) error { return nil },
		func(ctx context.Context, _ *gate.BlockError) error { return nil },
	)

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{
		`test_guard_block 1`,
		`test_guard_total 1`,
		`test_guard_calls_total{entry_type="inbound",outcome="blocked",resource="sayHello"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("scrape missing %q\n%s", want, body)
		}
	}
}
