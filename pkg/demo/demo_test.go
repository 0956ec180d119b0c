package demo

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"mercator-hq/flowgate/pkg/config"
	"mercator-hq/flowgate/pkg/gate"
	"mercator-hq/flowgate/pkg/gate/gatetest"
	"mercator-hq/flowgate/pkg/guard"
	"mercator-hq/flowgate/pkg/limits"
	"mercator-hq/flowgate/pkg/limits/ratelimit"
	"mercator-hq/flowgate/pkg/telemetry/logging"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newGuard(d gate.Decider) *guard.Guard {
	return guard.New(gate.New(d), guard.WithLogger(discardLogger()))
}

// ============================================================================
// User Service
// ============================================================================

func TestUserService_GetUserByID(t *testing.T) {
	tests := []struct {
		name    string
		decider gate.Decider
		id      int64
		want    User
		pass    int64
		block   int64
	}{
		{"admitted", gatetest.AlwaysAdmit(), 42, User{ID: 42, Name: "XiaoMing"}, 1, 0},
		{"blocked", gatetest.AlwaysReject("closed"), 42, User{ID: FallbackUserID, Name: FallbackUserName}, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGuard(tt.decider)
			users := NewUserService(g)
			users.delay = time.Millisecond

			got, err := users.GetUserByID(context.Background(), tt.id)
			if err != nil {
				t.Fatalf("GetUserByID() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("GetUserByID() = %v, want %v", got, tt.want)
			}

			snap := g.Counters().Snapshot()
			if snap.Total != 1 || snap.Pass != tt.pass || snap.Block != tt.block {
				t.Errorf("counters = %s", snap)
			}
		})
	}
}

func TestUserService_CancelledLookup(t *testing.T) {
	users := NewUserService(newGuard(gatetest.AlwaysAdmit()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := users.GetUserByID(ctx, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestUser_String(t *testing.T) {
	if got := (User{ID: 7, Name: "XiaoMing"}).String(); got != "User{id=7, name='XiaoMing'}" {
		t.Errorf("String() = %q", got)
	}
}

// ============================================================================
// Greeting Services
// ============================================================================

func newProviderServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	RegisterRoutes(mux, Services{Provider: &Provider{Name: "flowgate"}})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, h http.Handler, path string) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec.Code, rec.Body.String()
}

func TestProvider(t *testing.T) {
	srv := newProviderServer(t)

	tests := []struct {
		path string
		want string
	}{
		{"/sayHello", "Hello provider "},
		{"/sayHi", "Hi provider flowgate"},
	}
	for _, tt := range tests {
		resp, err := http.Get(srv.URL + tt.path)
		if err != nil {
			t.Fatal(err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if string(body) != tt.want {
			t.Errorf("GET %s = %q, want %q", tt.path, body, tt.want)
		}
	}
}

func TestConsumer(t *testing.T) {
	provider := newProviderServer(t)

	tests := []struct {
		name       string
		decider    gate.Decider
		providerAt string
		want       string
	}{
		{
			name:       "forwards provider greeting",
			decider:    gatetest.AlwaysAdmit(),
			providerAt: provider.URL,
			want:       ProviderHello,
		},
		{
			name:       "inbound blocked",
			decider:    rejectResource(SayHelloResource),
			providerAt: provider.URL,
			want:       BusyMessage,
		},
		{
			name:       "outbound blocked",
			decider:    rejectResource(ProviderHelloResource),
			providerAt: provider.URL,
			want:       ProviderUnavailableMessage,
		},
		{
			name:       "provider down",
			decider:    gatetest.AlwaysAdmit(),
			providerAt: "http://127.0.0.1:1",
			want:       ProviderUnavailableMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGuard(tt.decider)
			client := NewProviderClient(g, tt.providerAt, time.Second, discardLogger())
			mux := http.NewServeMux()
			RegisterRoutes(mux, Services{Consumer: NewConsumer(g, client)})

			code, body := get(t, mux, "/consumer/sayHello")
			if code != http.StatusOK {
				t.Errorf("code = %d", code)
			}
			if body != tt.want {
				t.Errorf("body = %q, want %q", body, tt.want)
			}
		})
	}
}

func TestProviderClient_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	g := newGuard(gatetest.AlwaysAdmit())
	client := NewProviderClient(g, srv.URL, time.Second, discardLogger())

	if got := client.SayHello(context.Background()); got != ProviderUnavailableMessage {
		t.Errorf("SayHello() = %q", got)
	}
	// A failed call is admitted, not blocked.
	if snap := g.Counters().Snapshot(); snap.Pass != 1 || snap.Block != 0 {
		t.Errorf("counters = %s", snap)
	}
}

func TestProviderClient_PropagatesRequestID(t *testing.T) {
	var seen atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.Store(r.Header.Get("X-Request-ID"))
		_, _ = io.WriteString(w, ProviderHello)
	}))
	defer srv.Close()

	g := newGuard(gatetest.AlwaysAdmit())
	client := NewProviderClient(g, srv.URL+"/", time.Second, discardLogger())

	mux := http.NewServeMux()
	RegisterRoutes(mux, Services{Consumer: NewConsumer(g, client)})

	req := httptest.NewRequest(http.MethodGet, "/consumer/sayHello", nil)
	req = req.WithContext(logging.WithRequestID(req.Context(), "req-7"))
	mux.ServeHTTP(httptest.NewRecorder(), req)

	if got, _ := seen.Load().(string); got != "req-7" {
		t.Errorf("provider saw X-Request-ID %q", got)
	}
}

func TestSentinelController_QPSRule(t *testing.T) {
	manager := limits.NewRuleManager(limits.WithManagerLogger(discardLogger()))
	err := manager.LoadRules(limits.RuleSet{Rules: []limits.Rule{{
		Resource:  SentinelResource,
		Grade:     ratelimit.GradeQPS,
		Threshold: 2,
	}}})
	if err != nil {
		t.Fatal(err)
	}

	g := newGuard(manager)
	mux := http.NewServeMux()
	RegisterRoutes(mux, Services{Sentinel: NewSentinelController(g)})

	var hello, busy int
	for i := 0; i < 5; i++ {
		_, body := get(t, mux, "/sentinel_cloud")
		switch body {
		case SentinelHello:
			hello++
		case BusyMessage:
			busy++
		default:
			t.Fatalf("unexpected body %q", body)
		}
	}
	if hello != 2 || busy != 3 {
		t.Errorf("hello=%d busy=%d, want 2 and 3", hello, busy)
	}
	if snap := g.Counters().Snapshot(); snap.Total != 5 || snap.Pass != 2 || snap.Block != 3 {
		t.Errorf("counters = %s", snap)
	}
}

func rejectResource(name string) gate.Decider {
	return gate.DeciderFunc(func(_ context.Context, res gate.Resource, _ gate.LoadSnapshot) gate.Decision {
		if res.Name() == name {
			return gate.Reject("closed for " + name)
		}
		return gate.Admit()
	})
}

// ============================================================================
// Workloads
// ============================================================================

func TestFunctionWorkers(t *testing.T) {
	recorder := gatetest.NewRecorder(gatetest.RejectEveryNth(2))
	g := newGuard(recorder)
	w := &FunctionWorkers{Guard: g, Count: 3, Logger: discardLogger()}

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	if err := w.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	names := map[string]bool{}
	for _, res := range recorder.Resources() {
		names[res.Name()] = true
		if res.EntryType() != gate.Outbound {
			t.Errorf("%s entered as %s", res.Name(), res.EntryType())
		}
	}
	for _, want := range []string{"function_0", "function_1", "function_2"} {
		if !names[want] {
			t.Errorf("no entries for %s", want)
		}
	}

	snap := g.Counters().Snapshot()
	if snap.Total != snap.Pass+snap.Block || snap.Block == 0 {
		t.Errorf("counters = %s", snap)
	}
	if recorder.InFlight() != 0 {
		t.Errorf("InFlight = %d after Run returned", recorder.InFlight())
	}
}

func TestCustomResourceLoop(t *testing.T) {
	recorder := gatetest.NewRecorder(rejectResource(DoAnotherThingResource))
	g := newGuard(recorder)
	loop := &CustomResourceLoop{Guard: g, WarmUp: 10 * time.Millisecond, Logger: discardLogger()}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()
	if err := loop.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	byName := map[string]int{}
	for _, res := range recorder.Resources() {
		byName[res.Name()]++
	}
	if byName[CustomResource] == 0 || byName[CustomResource] != byName[DoSomethingResource] {
		t.Errorf("entries = %v, want one doSomething per custom entry", byName)
	}

	// Each iteration: custom and doSomething pass, doAnotherThing blocks.
	snap := g.Counters().Snapshot()
	if snap.Block*2 != snap.Pass {
		t.Errorf("counters = %s, want pass = 2 * block", snap)
	}
}

func TestCustomResourceLoop_CancelledDuringWarmUp(t *testing.T) {
	recorder := gatetest.NewRecorder(gatetest.AlwaysAdmit())
	loop := &CustomResourceLoop{Guard: newGuard(recorder), WarmUp: time.Hour, Logger: discardLogger()}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := loop.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if recorder.Calls() != 0 {
		t.Errorf("Calls = %d during warm-up", recorder.Calls())
	}
}

func TestUserRequester(t *testing.T) {
	g := newGuard(gatetest.RejectEveryNth(3))
	users := NewUserService(g)
	users.delay = time.Millisecond
	r := &UserRequester{Users: users, Logger: discardLogger()}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := r.Run(ctx); err != nil {
		t.Fatal(err)
	}

	snap := g.Counters().Snapshot()
	if snap.Pass == 0 || snap.Block == 0 {
		t.Errorf("counters = %s, want both passes and blocks", snap)
	}
}

// ============================================================================
// Runner
// ============================================================================

type fakeWorkload struct {
	started atomic.Bool
	err     error
}

func (f *fakeWorkload) Run(ctx context.Context) error {
	f.started.Store(true)
	if f.err != nil {
		return f.err
	}
	<-ctx.Done()
	return nil
}

func TestRunner_RunsAllUntilCancelled(t *testing.T) {
	r := NewRunner(discardLogger())
	a, b := &fakeWorkload{}, &fakeWorkload{}
	r.Add("a", a)
	r.Add("b", b)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := r.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if !a.started.Load() || !b.started.Load() {
		t.Error("not every workload started")
	}
}

func TestRunner_FirstErrorStopsOthers(t *testing.T) {
	r := NewRunner(discardLogger())
	boom := errors.New("boom")
	r.Add("waits", &fakeWorkload{})
	r.Add("fails", &fakeWorkload{err: boom})

	done := make(chan error, 1)
	go func() { done <- r.Run(context.Background()) }()

	select {
	case err := <-done:
		if !errors.Is(err, boom) {
			t.Errorf("Run() error = %v, want boom", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after a workload failed")
	}
}

func TestNewRunnerFromConfig(t *testing.T) {
	g := newGuard(gatetest.AlwaysAdmit())
	users := NewUserService(g)

	tests := []struct {
		name      string
		workloads []string
		want      []string
	}{
		{"all by default", nil, []string{config.WorkloadFunctionWorkers, config.WorkloadCustomResource, config.WorkloadUserRequester}},
		{"none", []string{}, nil},
		{"subset", []string{config.WorkloadUserRequester}, []string{config.WorkloadUserRequester}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.DemoConfig{Workloads: tt.workloads, FunctionWorkers: 2}
			got := NewRunnerFromConfig(cfg, g, users, discardLogger()).Names()
			if len(got) != len(tt.want) {
				t.Fatalf("Names() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Names()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
