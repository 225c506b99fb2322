// Package pagination walks NetSendo's page-numbered list endpoints.
//
// NetSendo list endpoints follow the Laravel resource convention:
//
//	{"data": [...], "meta": {"current_page": 1, "last_page": 3, "per_page": 100, "total": 230}}
//
// Pages are 1-based and selected with the "page" query parameter. A response
// without meta.last_page is treated as the only page.
//
// Example usage:
//
//	req := pagination.Request{
//		Path:      "/subscribers",
//		Query:     url.Values{"per_page": {"100"}},
//		ReturnAll: false,
//		Limit:     50,
//	}
//	items, err := pagination.FetchAllPages(ctx, netsendoClient, req)
//
// The aggregator:
//   - Fetches pages strictly one at a time, in order
//   - Appends each page's data in response order
//   - Stops once Limit items are collected (unless ReturnAll) or pages run out
//   - Aborts on the first fetch error without returning partial data
package pagination
