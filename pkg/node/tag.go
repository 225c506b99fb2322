package node

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Sternrassler/netsendo-nodes/pkg/model"
)

type tagGetManyParams struct {
	Options QueryOptions `mapstructure:"options"`
}

type tagIDParams struct {
	TagID int `mapstructure:"tagId" validate:"required,gt=0"`
}

func tagGetMany(ctx context.Context, api API, raw map[string]any) ([]model.Item, error) {
	var p tagGetManyParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	query := url.Values{}
	setQueryOptions(query, p.Options, true)
	return many(api.Do(ctx, http.MethodGet, "/tags", nil, query))
}

func tagGet(ctx context.Context, api API, raw map[string]any) ([]model.Item, error) {
	var p tagIDParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	return single(api.Do(ctx, http.MethodGet, "/tags/"+strconv.Itoa(p.TagID), nil, nil))
}
