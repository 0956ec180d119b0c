package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file, applies defaults and
// validates it. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Parse decodes YAML on top of NewDefault and fills any remaining zero
// values. It does not validate.
func Parse(data []byte) (*Config, error) {
	cfg := NewDefault()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads a YAML file and applies environment
// variable overrides named FLOWGATE_SECTION_FIELD (for example
// FLOWGATE_SERVER_LISTEN_ADDRESS). Environment variables take precedence
// over the file.
//
// The loading sequence is:
//  1. Defaults
//  2. YAML file
//  3. Environment variable overrides
//  4. Validation
//
// An empty path skips step 2.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = NewDefault()
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		cfg, err = Parse(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies FLOWGATE_* environment variables. Values that
// fail to parse are ignored.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	setString("FLOWGATE_SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	setDuration("FLOWGATE_SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	setDuration("FLOWGATE_SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	setDuration("FLOWGATE_SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	setDuration("FLOWGATE_SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	setInt("FLOWGATE_SERVER_MAX_HEADER_BYTES", &cfg.Server.MaxHeaderBytes)

	// Rules overrides
	setString("FLOWGATE_RULES_FILE_PATH", &cfg.Rules.FilePath)
	setBool("FLOWGATE_RULES_WATCH", &cfg.Rules.Watch)
	setDuration("FLOWGATE_RULES_DEBOUNCE_INTERVAL", &cfg.Rules.DebounceInterval)

	// Reporter overrides
	setBool("FLOWGATE_REPORTER_ENABLED", &cfg.Reporter.Enabled)
	setString("FLOWGATE_REPORTER_SCHEDULE", &cfg.Reporter.Schedule)

	// Demo overrides
	setInt("FLOWGATE_DEMO_FUNCTION_WORKERS", &cfg.Demo.FunctionWorkers)
	setDuration("FLOWGATE_DEMO_WARM_UP", &cfg.Demo.WarmUp)
	setString("FLOWGATE_DEMO_GREETING_NAME", &cfg.Demo.GreetingName)
	setString("FLOWGATE_DEMO_PROVIDER_URL", &cfg.Demo.ProviderURL)
	setDuration("FLOWGATE_DEMO_PROVIDER_TIMEOUT", &cfg.Demo.ProviderTimeout)

	// Telemetry overrides
	setString("FLOWGATE_TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	setString("FLOWGATE_TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	setBool("FLOWGATE_TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	setString("FLOWGATE_TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	setString("FLOWGATE_TELEMETRY_METRICS_NAMESPACE", &cfg.Telemetry.Metrics.Namespace)
	setBool("FLOWGATE_TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	setString("FLOWGATE_TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	setString("FLOWGATE_TELEMETRY_TRACING_SAMPLER", &cfg.Telemetry.Tracing.Sampler)
	setFloat("FLOWGATE_TELEMETRY_TRACING_SAMPLE_RATIO", &cfg.Telemetry.Tracing.SampleRatio)
}

func setString(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func setBool(key string, dst *bool) {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func setInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func setFloat(key string, dst *float64) {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			*dst = f
		}
	}
}

func setDuration(key string, dst *time.Duration) {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
