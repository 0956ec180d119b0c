// Package metrics owns the Prometheus registry served on /metrics.
//
// Metrics exported by a running flowgate:
//
//	flowgate_guard_calls_total{resource,entry_type,outcome}
//	flowgate_guard_blocks_total{resource,reason}
//	flowgate_guard_in_flight{resource}
//	flowgate_guard_duration_seconds{resource}
//	flowgate_guard_total / _pass / _block
//	flowgate_http_requests_total{route,code}
//	flowgate_http_request_duration_seconds{route}
//
// plus the standard go_* and process_* collectors. The guard series are
// defined in package limits; this package only hosts them.
package metrics
