// Flowgate guards calls to named resources with flow-control rules.
//
// It runs the classic flow-control demo: background workloads and a small
// set of HTTP services whose entries are admitted or blocked by QPS,
// concurrency and system rules loaded from a YAML file, with a per-second
// total/pass/block report on stdout.
//
// Usage:
//
//	# Start with defaults (no rules: everything passes)
//	flowgate run
//
//	# Start with a config file and hot-reloaded rules
//	flowgate run --config flowgate.yaml --rules rules.yaml --watch
//
//	# Validate a rules file
//	flowgate rules lint rules.yaml
//
//	# Show version information
//	flowgate version
package main

func main() {
	Execute()
}
