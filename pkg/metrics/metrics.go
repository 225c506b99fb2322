// Package metrics is the reference for every Prometheus metric the NetSendo
// nodes export, and serves them over HTTP. Metrics are defined in their own
// packages (client, cache, ratelimit, pagination, node, trigger, events) and
// registered through promauto.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the NetSendo packages.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer paired with Registry.
var Gatherer = prometheus.DefaultGatherer

// Handler returns the /metrics handler for Gatherer.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - netsendo_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - netsendo_request_duration_seconds{method} (Histogram): Request duration by HTTP method
//   - netsendo_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client):
//   - netsendo_retries_total{error_class} (Counter): Retry attempts by error class
//   - netsendo_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - netsendo_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Rate Limit Metrics (pkg/ratelimit):
//   - netsendo_rate_limit_remaining{scope} (Gauge): Calls left in the current window
//   - netsendo_rate_limit_blocks_total (Counter): Requests blocked while the quota was exhausted
//   - netsendo_rate_limit_throttles_total (Counter): Requests delayed while the quota was low
//
// Pagination Metrics (pkg/pagination):
//   - netsendo_pagination_pages_fetched_total (Counter): Pages requested by the aggregator
//   - netsendo_pagination_items_total (Counter): Items returned by finished aggregations
//   - netsendo_pagination_aggregations_total{outcome} (Counter): exhausted, capped or error
//
// Options Cache Metrics (pkg/cache):
//   - netsendo_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - netsendo_cache_misses_total (Counter): Cache misses
//   - netsendo_cache_size_bytes{layer="redis"} (Gauge): Bytes written to the cache
//   - netsendo_cache_errors_total{operation} (Counter): Cache operation errors
//
// Node Metrics (pkg/node):
//   - netsendo_node_executions_total{resource, operation, outcome} (Counter): Per-item executions
//   - netsendo_load_options_total{method, outcome} (Counter): Load-options calls
//
// Trigger Metrics (pkg/trigger):
//   - netsendo_webhook_deliveries_total{result} (Counter): verified, unverified or rejected
//   - netsendo_webhook_registrations_total{operation, outcome} (Counter): create and delete calls
//
// Event Metrics (pkg/events):
//   - netsendo_events_published_total{result} (Counter): Deliveries forwarded to the sink
//
// Example Prometheus Queries:
//
//   # Options cache hit rate
//   sum(rate(netsendo_cache_hits_total[5m])) /
//   (sum(rate(netsendo_cache_hits_total[5m])) + sum(rate(netsendo_cache_misses_total[5m])))
//
//   # Quota running low
//   netsendo_rate_limit_remaining < 5
//
//   # Rejected webhook signatures
//   rate(netsendo_webhook_deliveries_total{result="rejected"}[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(netsendo_request_duration_seconds_bucket[5m]))
