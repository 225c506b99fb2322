package node

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Sternrassler/netsendo-nodes/pkg/client"
	"github.com/Sternrassler/netsendo-nodes/pkg/model"
	"github.com/Sternrassler/netsendo-nodes/pkg/pagination"
)

type subscriberGetManyParams struct {
	Paging        `mapstructure:",squash"`
	ContactListID string       `mapstructure:"contactListId"`
	Options       QueryOptions `mapstructure:"options"`
}

type subscriberIDParams struct {
	SubscriberID int `mapstructure:"subscriberId" validate:"required,gt=0"`
}

type subscriberEmailParams struct {
	Email string `mapstructure:"email" validate:"required,email"`
}

type subscriberCreateParams struct {
	Email            string         `mapstructure:"email" validate:"required,email"`
	ContactListID    string         `mapstructure:"contactListId" validate:"required"`
	AdditionalFields map[string]any `mapstructure:"additionalFields"`
}

type subscriberUpdateParams struct {
	SubscriberID int            `mapstructure:"subscriberId" validate:"required,gt=0"`
	UpdateFields map[string]any `mapstructure:"updateFields"`
}

func subscriberPath(id int) string {
	return "/subscribers/" + strconv.Itoa(id)
}

func subscriberGetMany(ctx context.Context, api API, raw map[string]any) ([]model.Item, error) {
	p := subscriberGetManyParams{Paging: defaultPaging()}
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("per_page", strconv.Itoa(PerPage))
	if p.ContactListID != "" {
		query.Set("contact_list_id", p.ContactListID)
	}
	setQueryOptions(query, p.Options, false)

	req, err := p.request("/subscribers", query)
	if err != nil {
		return nil, err
	}
	return pagination.FetchAllPages(ctx, api, req)
}

func subscriberGet(ctx context.Context, api API, raw map[string]any) ([]model.Item, error) {
	var p subscriberIDParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	return single(api.Do(ctx, http.MethodGet, subscriberPath(p.SubscriberID), nil, nil))
}

func subscriberGetByEmail(ctx context.Context, api API, raw map[string]any) ([]model.Item, error) {
	var p subscriberEmailParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	endpoint := "/subscribers/by-email/" + url.PathEscape(p.Email)
	return single(api.Do(ctx, http.MethodGet, endpoint, nil, nil))
}

func subscriberCreate(ctx context.Context, api API, raw map[string]any) ([]model.Item, error) {
	var p subscriberCreateParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	body := merge(model.Item{
		"email":           p.Email,
		"contact_list_id": p.ContactListID,
	}, p.AdditionalFields)
	return single(api.Do(ctx, http.MethodPost, "/subscribers", body, nil))
}

func subscriberUpdate(ctx context.Context, api API, raw map[string]any) ([]model.Item, error) {
	var p subscriberUpdateParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	if len(p.UpdateFields) == 0 {
		return nil, fmt.Errorf("%w: updateFields must set at least one field", ErrInvalidParameters)
	}
	return single(api.Do(ctx, http.MethodPut, subscriberPath(p.SubscriberID), p.UpdateFields, nil))
}

func subscriberDelete(ctx context.Context, api API, raw map[string]any) ([]model.Item, error) {
	var p subscriberIDParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	resp, err := api.Do(ctx, http.MethodDelete, subscriberPath(p.SubscriberID), nil, nil)
	if err != nil {
		return nil, err
	}
	if len(resp) == 0 {
		return []model.Item{{"success": true}}, nil
	}
	return []model.Item{client.Unwrap(resp)}, nil
}

// setQueryOptions copies the set options into query. per_page is skipped for
// paginated calls, which always request PerPage.
func setQueryOptions(query url.Values, o QueryOptions, withPerPage bool) {
	if withPerPage && o.PerPage > 0 {
		query.Set("per_page", strconv.Itoa(o.PerPage))
	}
	if o.Status != "" {
		query.Set("status", o.Status)
	}
	if o.SortBy != "" {
		query.Set("sort_by", o.SortBy)
	}
	if o.SortOrder != "" {
		query.Set("sort_order", o.SortOrder)
	}
}

// single unwraps a one-resource response into one output item.
func single(resp model.Item, err error) ([]model.Item, error) {
	if err != nil {
		return nil, err
	}
	return []model.Item{client.Unwrap(resp)}, nil
}

// many expands a collection response into one output item per element.
func many(resp model.Item, err error) ([]model.Item, error) {
	if err != nil {
		return nil, err
	}
	return client.UnwrapList(resp), nil
}
