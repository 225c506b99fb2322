package pagination

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/netsendo-nodes/pkg/logging"
	"github.com/Sternrassler/netsendo-nodes/pkg/model"
)

// PageParam is the query key the aggregator owns.
const PageParam = "page"

// ErrInvalidLimit is returned when a capped request carries a non-positive limit.
var ErrInvalidLimit = errors.New("limit must be a positive integer when returnAll is false")

// PageMeta is the pagination block of a list response.
type PageMeta struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
}

// PageResponse is one decoded list response.
type PageResponse struct {
	Data []model.Item `json:"data"`
	Meta *PageMeta    `json:"meta,omitempty"`
}

// PageFetcher performs one authenticated GET for a single page.
type PageFetcher interface {
	FetchPage(ctx context.Context, path string, query url.Values) (*PageResponse, error)
}

// PageFetcherFunc adapts a function to PageFetcher.
type PageFetcherFunc func(ctx context.Context, path string, query url.Values) (*PageResponse, error)

// FetchPage calls f.
func (f PageFetcherFunc) FetchPage(ctx context.Context, path string, query url.Values) (*PageResponse, error) {
	return f(ctx, path, query)
}

// Request describes one aggregation. It is built per input item and
// discarded once FetchAllPages returns.
type Request struct {
	// Path is the list endpoint relative to the API root (e.g. "/subscribers")
	Path string

	// Query is shared by every page request; only the "page" key is rewritten
	Query url.Values

	// ReturnAll fetches every page and ignores Limit
	ReturnAll bool

	// Limit caps the number of returned items when ReturnAll is false
	Limit int
}

// Validate checks the request before any page is fetched.
func (r Request) Validate() error {
	if !r.ReturnAll && r.Limit <= 0 {
		return fmt.Errorf("%w (got %d)", ErrInvalidLimit, r.Limit)
	}
	return nil
}

// FetchAllPages walks the endpoint page by page and returns the collected
// items in page order. With ReturnAll false it stops in the same iteration the
// cap is reached and truncates to exactly Limit items; the last page may have
// been fetched in full before truncation. Any fetch error aborts the walk.
func FetchAllPages(ctx context.Context, fetcher PageFetcher, req Request) ([]model.Item, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	query := req.Query
	if query == nil {
		query = url.Values{}
	}

	base := logging.NewLogger(logging.ComponentPagination)
	logger := base.With().Str("endpoint", req.Path).Logger()
	start := time.Now()

	results := make([]model.Item, 0)
	page := 1
	lastPage := 1

	for {
		query.Set(PageParam, strconv.Itoa(page))

		resp, err := fetcher.FetchPage(ctx, req.Path, query)
		if err != nil {
			aggregationsTotal.WithLabelValues("error").Inc()
			logger.Warn().Err(err).Int("page", page).Msg("Page fetch failed, aborting aggregation")
			return nil, fmt.Errorf("fetch page %d of %s: %w", page, req.Path, err)
		}
		pagesFetched.Inc()

		if resp != nil {
			if len(resp.Data) > 0 {
				results = append(results, resp.Data...)
			}
			if resp.Meta != nil && resp.Meta.LastPage > 0 {
				lastPage = resp.Meta.LastPage
			}
		}

		logger.Debug().
			Int("page", page).
			Int("last_page", lastPage).
			Int("items", len(results)).
			Msg("Fetched page")

		if !req.ReturnAll && len(results) >= req.Limit {
			results = results[:req.Limit]
			aggregationsTotal.WithLabelValues("capped").Inc()
			itemsAggregated.Add(float64(len(results)))
			logger.Info().
				Int("pages", page).
				Int("items", len(results)).
				Dur("duration", time.Since(start)).
				Msg("Aggregation reached limit")
			return results, nil
		}

		page++
		if page > lastPage {
			break
		}
	}

	aggregationsTotal.WithLabelValues("exhausted").Inc()
	itemsAggregated.Add(float64(len(results)))
	logger.Info().
		Int("pages", page-1).
		Int("items", len(results)).
		Dur("duration", time.Since(start)).
		Msg("Aggregation complete")

	return results, nil
}
