// Package prometheus renders goLMS client metrics in Prometheus text
// exposition format.
//
// [NewPrometheusExporter] reads [goLMS.Client.MetricsSnapshot] on every scrape.
// Counters are named golms_*_total and the one histogram is
// golms_request_latency_seconds. golms_notices_dropped_total reports notices
// lost to dispatcher backpressure.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the Handler.
//   - Mutate client state.
package prometheus
