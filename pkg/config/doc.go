// Package config loads flowgate configuration.
//
// Configuration comes from an optional YAML file and FLOWGATE_* environment
// variables:
//
//	cfg, err := config.LoadConfigWithEnvOverrides("flowgate.yaml")
//
// # Environment Variable Overrides
//
// Variables follow the naming convention FLOWGATE_SECTION_FIELD:
//
//   - FLOWGATE_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - FLOWGATE_RULES_FILE_PATH overrides rules.file_path
//   - FLOWGATE_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Precedence
//
//  1. Default values (defaults.go)
//  2. Values from the YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// Validation collects every problem into a ValidationError.
//
// # Example
//
//	server:
//	  listen_address: "127.0.0.1:8080"
//	rules:
//	  file_path: "./rules.yaml"
//	  watch: true
//	reporter:
//	  schedule: "@every 1s"
//	demo:
//	  workloads: [function_workers, user_requester]
//	  greeting_name: "XiaoMing"
//	telemetry:
//	  logging:
//	    level: "debug"
//	    format: "text"
//
// # Singleton
//
// Initialize, GetConfig, SetConfig and ReloadConfig manage a process-wide
// instance for the CLI. Library code takes a *Config explicitly.
package config
