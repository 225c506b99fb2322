// Package cache stores load-options results (lists, mailboxes, custom fields,
// phone contacts) in Redis so that repeated dropdown lookups by the host do
// not hit the NetSendo API every time.
//
// Entries are namespaced by a credential fingerprint, so two installations or
// two API keys never see each other's data.
//
// # Basic Usage
//
//	manager := cache.NewManager(redisClient, 5*time.Minute)
//
//	key := cache.CacheKey{
//		Scope:  creds.Fingerprint(),
//		Method: "getSubscribersWithPhone",
//		Args:   map[string]string{"list": "12"},
//	}
//
//	data, err := manager.GetOrLoad(ctx, key, func(ctx context.Context) ([]byte, error) {
//		return json.Marshal(loadFromAPI(ctx))
//	})
//
// # Metrics
//
//   - netsendo_cache_hits_total{layer="redis"}
//   - netsendo_cache_misses_total
//   - netsendo_cache_size_bytes{layer="redis"}
//   - netsendo_cache_errors_total{operation}
package cache
