package internaldefs

import (
	goLMS "github.com/MrEthical07/goLMS"
)

// CounterDef names one client counter.
type CounterDef struct {
	ID   goLMS.MetricID
	Name string
	Help string
}

// HistogramDef names one client histogram.
type HistogramDef struct {
	ID   goLMS.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in stable order.
var CounterDefs = []CounterDef{
	{ID: goLMS.MetricLoginSuccess, Name: "golms_login_success_total", Help: "Successful logins."},
	{ID: goLMS.MetricLoginFailure, Name: "golms_login_failure_total", Help: "Failed logins, including local validation failures."},
	{ID: goLMS.MetricLogout, Name: "golms_logout_total", Help: "Logouts, including forced ones."},
	{ID: goLMS.MetricSessionRestored, Name: "golms_session_restored_total", Help: "Sessions restored from a persisted token."},
	{ID: goLMS.MetricSessionRestoreFailure, Name: "golms_session_restore_failure_total", Help: "Persisted tokens rejected during restoration."},
	{ID: goLMS.MetricSessionExpiredDiscarded, Name: "golms_session_expired_discarded_total", Help: "Persisted tokens discarded as expired without a network call."},
	{ID: goLMS.MetricSessionRevoked, Name: "golms_session_revoked_total", Help: "Sessions revoked by a server push event."},
	{ID: goLMS.MetricUnauthorized, Name: "golms_unauthorized_total", Help: "401 responses that cleared an active session."},
	{ID: goLMS.MetricRequestSuccess, Name: "golms_request_success_total", Help: "Requests that completed successfully."},
	{ID: goLMS.MetricRequestFailure, Name: "golms_request_failure_total", Help: "Requests that settled with an error."},
	{ID: goLMS.MetricRequestTransient, Name: "golms_request_transient_total", Help: "Requests that failed with a transient error."},
	{ID: goLMS.MetricRequestRetried, Name: "golms_request_retried_total", Help: "Retry attempts of idempotent requests."},
	{ID: goLMS.MetricCacheHit, Name: "golms_cache_hit_total", Help: "Queries served from cache."},
	{ID: goLMS.MetricCacheMiss, Name: "golms_cache_miss_total", Help: "Queries that required a fetch."},
	{ID: goLMS.MetricCacheFetch, Name: "golms_cache_fetch_total", Help: "Fetches stored in the cache."},
	{ID: goLMS.MetricCacheFetchError, Name: "golms_cache_fetch_error_total", Help: "Fetches that failed."},
	{ID: goLMS.MetricCacheInvalidate, Name: "golms_cache_invalidate_total", Help: "Cache keys marked stale."},
	{ID: goLMS.MetricCacheEvict, Name: "golms_cache_evict_total", Help: "Cache entries evicted after the GC window."},
	{ID: goLMS.MetricMutationCommit, Name: "golms_mutation_commit_total", Help: "Cache keys confirmed by a successful mutation."},
	{ID: goLMS.MetricMutationRollback, Name: "golms_mutation_rollback_total", Help: "Cache keys restored after a failed mutation."},
	{ID: goLMS.MetricChannelConnecting, Name: "golms_channel_connecting_total", Help: "Push channel connection attempts."},
	{ID: goLMS.MetricChannelOpen, Name: "golms_channel_open_total", Help: "Push channel connections opened."},
	{ID: goLMS.MetricChannelError, Name: "golms_channel_error_total", Help: "Push channel connection errors."},
	{ID: goLMS.MetricChannelClosed, Name: "golms_channel_closed_total", Help: "Push channel closes."},
	{ID: goLMS.MetricPushEvent, Name: "golms_push_event_total", Help: "Typed push events handled."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goLMS.MetricRequestLatency, Name: "golms_request_latency_seconds", Help: "Request latency including retries."},
}

// HistogramBounds are the upper bounds in seconds, matching the client buckets.
var HistogramBounds = []string{
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"2.5",
	"+Inf",
}

// HistogramBoundSuffix is HistogramBounds in instrument-name form.
var HistogramBoundSuffix = []string{
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"2_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to the fixed bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
