package node

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Sternrassler/netsendo-nodes/pkg/model"
	"github.com/Sternrassler/netsendo-nodes/pkg/pagination"
)

type listGetManyParams struct {
	Options QueryOptions `mapstructure:"options"`
}

type listIDParams struct {
	ListID string `mapstructure:"listId" validate:"required"`
}

type listSubscribersParams struct {
	Paging  `mapstructure:",squash"`
	ListID  string       `mapstructure:"listId" validate:"required"`
	Options QueryOptions `mapstructure:"options"`
}

func listGetMany(ctx context.Context, api API, raw map[string]any) ([]model.Item, error) {
	var p listGetManyParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	query := url.Values{}
	setQueryOptions(query, p.Options, true)
	return many(api.Do(ctx, http.MethodGet, "/lists", nil, query))
}

func listGet(ctx context.Context, api API, raw map[string]any) ([]model.Item, error) {
	var p listIDParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	return single(api.Do(ctx, http.MethodGet, "/lists/"+url.PathEscape(p.ListID), nil, nil))
}

func listGetSubscribers(ctx context.Context, api API, raw map[string]any) ([]model.Item, error) {
	p := listSubscribersParams{Paging: defaultPaging()}
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("per_page", strconv.Itoa(PerPage))
	setQueryOptions(query, p.Options, false)

	req, err := p.request("/lists/"+url.PathEscape(p.ListID)+"/subscribers", query)
	if err != nil {
		return nil, err
	}
	return pagination.FetchAllPages(ctx, api, req)
}
