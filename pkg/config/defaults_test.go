package config

import (
	"testing"
)

func TestNewDefault(t *testing.T) {
	cfg := NewDefault()

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"listen address", cfg.Server.ListenAddress, DefaultListenAddress},
		{"read timeout", cfg.Server.ReadTimeout, DefaultReadTimeout},
		{"shutdown timeout", cfg.Server.ShutdownTimeout, DefaultShutdownTimeout},
		{"max header bytes", cfg.Server.MaxHeaderBytes, DefaultMaxHeaderBytes},
		{"rules debounce", cfg.Rules.DebounceInterval, DefaultRulesDebounce},
		{"rules watch", cfg.Rules.Watch, false},
		{"reporter enabled", cfg.Reporter.Enabled, true},
		{"reporter schedule", cfg.Reporter.Schedule, DefaultReporterSchedule},
		{"function workers", cfg.Demo.FunctionWorkers, DefaultFunctionWorkers},
		{"warm up", cfg.Demo.WarmUp, DefaultWarmUp},
		{"greeting name", cfg.Demo.GreetingName, DefaultGreetingName},
		{"logging level", cfg.Telemetry.Logging.Level, DefaultLoggingLevel},
		{"logging format", cfg.Telemetry.Logging.Format, DefaultLoggingFormat},
		{"metrics enabled", cfg.Telemetry.Metrics.Enabled, true},
		{"metrics path", cfg.Telemetry.Metrics.Path, DefaultMetricsPath},
		{"metrics namespace", cfg.Telemetry.Metrics.Namespace, DefaultMetricsNamespace},
		{"tracing enabled", cfg.Telemetry.Tracing.Enabled, false},
		{"tracing sampler", cfg.Telemetry.Tracing.Sampler, DefaultTracingSampler},
		{"tracing ratio", cfg.Telemetry.Tracing.SampleRatio, DefaultTracingSampleRatio},
		{"otlp insecure", cfg.Telemetry.Tracing.OTLP.Insecure, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}

	if err := Validate(cfg); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestApplyDefaults_PreservesValues(t *testing.T) {
	cfg := &Config{}
	cfg.Server.ListenAddress = "0.0.0.0:1234"
	cfg.Demo.FunctionWorkers = 3
	cfg.Telemetry.Logging.Level = "error"

	ApplyDefaults(cfg)

	if cfg.Server.ListenAddress != "0.0.0.0:1234" {
		t.Errorf("listen address overwritten: %q", cfg.Server.ListenAddress)
	}
	if cfg.Demo.FunctionWorkers != 3 {
		t.Errorf("function workers overwritten: %d", cfg.Demo.FunctionWorkers)
	}
	if cfg.Telemetry.Logging.Level != "error" {
		t.Errorf("logging level overwritten: %q", cfg.Telemetry.Logging.Level)
	}
	if cfg.Server.ReadTimeout != DefaultReadTimeout {
		t.Errorf("zero read timeout not defaulted: %v", cfg.Server.ReadTimeout)
	}
}

func TestApplyDefaults_Idempotent(t *testing.T) {
	a := NewDefault()
	b := NewDefault()
	ApplyDefaults(b)
	ApplyDefaults(b)

	if a.Server != b.Server || a.Reporter != b.Reporter || a.Rules != b.Rules {
		t.Error("ApplyDefaults should be idempotent")
	}
}

func TestDemoConfig_WorkloadEnabled(t *testing.T) {
	tests := []struct {
		name      string
		workloads []string
		check     string
		want      bool
	}{
		{"unset runs all", nil, WorkloadCustomResource, true},
		{"empty runs none", []string{}, WorkloadCustomResource, false},
		{"listed", []string{WorkloadUserRequester}, WorkloadUserRequester, true},
		{"not listed", []string{WorkloadUserRequester}, WorkloadFunctionWorkers, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := DemoConfig{Workloads: tt.workloads}
			if got := d.WorkloadEnabled(tt.check); got != tt.want {
				t.Errorf("WorkloadEnabled(%q) = %v, want %v", tt.check, got, tt.want)
			}
		})
	}
}
