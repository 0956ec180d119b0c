package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"mercator-hq/flowgate/pkg/config"
	"mercator-hq/flowgate/pkg/telemetry/health"
	"mercator-hq/flowgate/pkg/telemetry/logging"
	"mercator-hq/flowgate/pkg/telemetry/metrics"
)

func testServerConfig() *config.ServerConfig {
	return &config.ServerConfig{
		ListenAddress:   "127.0.0.1:0",
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    5 * time.Second,
		IdleTimeout:     5 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		MaxHeaderBytes:  1 << 20,
	}
}

func quietLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestServer_Routes(t *testing.T) {
	var logs bytes.Buffer
	collector := metrics.NewCollector(&config.MetricsConfig{Enabled: true, Path: "/metrics", Namespace: "test"}, prometheus.NewRegistry())
	s := New(testServerConfig(),
		WithLogger(quietLogger(&logs)),
		WithMetrics(collector),
		WithHealth(health.New(time.Second), health.NewVersionInfo("dev", "none", "unknown")),
	)
	s.HandleFunc("GET /sayHello", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "Hello provider ")
	})

	handler := s.Handler()

	tests := []struct {
		name     string
		path     string
		wantCode int
		wantBody string
	}{
		{"demo route", "/sayHello", http.StatusOK, "Hello provider "},
		{"liveness", "/health", http.StatusOK, `"status":"ok"`},
		{"metrics", "/metrics", http.StatusOK, "test_http_requests_total"},
		{"unknown", "/nope", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body %q does not contain %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestServer_MetricsDisabled(t *testing.T) {
	collector := metrics.NewCollector(&config.MetricsConfig{Enabled: false, Namespace: "test"}, prometheus.NewRegistry())
	s := New(testServerConfig(), WithMetrics(collector), WithLogger(quietLogger(&bytes.Buffer{})))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("code = %d, want 404 when metrics are disabled", rec.Code)
	}
}

// ============================================================================
// Middleware
// ============================================================================

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logging.GetRequestID(r.Context())
	}))

	t.Run("generated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		id := rec.Header().Get(RequestIDHeader)
		if len(id) != 36 {
			t.Errorf("generated id %q is not a UUID", id)
		}
		if seen != id {
			t.Errorf("context id %q != header id %q", seen, id)
		}
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "caller-42")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Header().Get(RequestIDHeader) != "caller-42" || seen != "caller-42" {
			t.Errorf("header %q, context %q", rec.Header().Get(RequestIDHeader), seen)
		}
	})
}

func TestLogging_Levels(t *testing.T) {
	tests := []struct {
		status    int
		wantLevel string
	}{
		{http.StatusOK, "level=INFO"},
		{http.StatusTooManyRequests, "level=WARN"},
		{http.StatusBadGateway, "level=ERROR"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var buf bytes.Buffer
			h := Logging(quietLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/sayHi", nil))

			out := buf.String()
			if !strings.Contains(out, tt.wantLevel) || !strings.Contains(out, "path=/sayHi") {
				t.Errorf("log = %q", out)
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	h := Recovery(quietLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("code = %d, want 500", rec.Code)
	}
	if !strings.Contains(buf.String(), "panic in handler") {
		t.Errorf("panic not logged: %q", buf.String())
	}
}

func TestInstrument_RecordsPattern(t *testing.T) {
	collector := metrics.NewCollector(&config.MetricsConfig{Namespace: "test"}, prometheus.NewRegistry())
	s := New(testServerConfig(), WithMetrics(collector), WithLogger(quietLogger(&bytes.Buffer{})))
	s.HandleFunc("GET /users/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	h := s.Handler()
	for _, id := range []string{"1", "2", "3"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/users/"+id, nil))
	}

	const want = `
# HELP test_http_requests_total HTTP requests served, by route and status code.
# TYPE test_http_requests_total counter
test_http_requests_total{code="202",route="GET /users/{id}"} 3
`
	if err := testutil.GatherAndCompare(collector.Registry(), strings.NewReader(want), "test_http_requests_total"); err != nil {
		t.Error(err)
	}
}

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}), mw("a"), mw("b"), mw("c"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if strings.Join(order, "") != "abc" {
		t.Errorf("order = %v, want [a b c]", order)
	}
}

// ============================================================================
// Lifecycle
// ============================================================================

func TestServer_ServeAndShutdown(t *testing.T) {
	s := New(testServerConfig(), WithLogger(quietLogger(&bytes.Buffer{})))
	s.HandleFunc("GET /sentinel_cloud", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "Hello Sentinel")
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/sentinel_cloud"
	var body []byte
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			body, _ = io.ReadAll(resp.Body)
			resp.Body.Close()
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if string(body) != "Hello Sentinel" {
		t.Fatalf("body = %q", body)
	}
	if !s.IsRunning() {
		t.Error("IsRunning() = false while serving")
	}

	if err := s.Serve(ctx, mustListen(t)); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Serve error = %v, want ErrAlreadyRunning", err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	if s.IsRunning() {
		t.Error("IsRunning() = true after shutdown")
	}
}

func mustListen(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	return ln
}
