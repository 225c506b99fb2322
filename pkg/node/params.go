package node

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/Sternrassler/netsendo-nodes/pkg/pagination"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

var (
	// ErrInvalidParameters wraps every parameter decoding or validation failure.
	ErrInvalidParameters = errors.New("invalid node parameters")

	// ErrUnknownOperation is returned for a resource/operation pair the node does not offer.
	ErrUnknownOperation = errors.New("unknown resource or operation")
)

var validate = validator.New()

// DefaultLimit applies when returnAll is false and no limit is given.
const DefaultLimit = 50

// PerPage is the page size requested by paginated operations.
const PerPage = 100

// decodeParams copies raw into out (which carries its defaults) and validates it.
func decodeParams(raw map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("build decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}
	if err := validate.Struct(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}
	return nil
}

// Paging selects between fetching every page and stopping at Limit.
type Paging struct {
	ReturnAll bool `mapstructure:"returnAll"`
	Limit     int  `mapstructure:"limit"`
}

func defaultPaging() Paging {
	return Paging{Limit: DefaultLimit}
}

// request builds the aggregator request for path and query.
func (p Paging) request(path string, query url.Values) (pagination.Request, error) {
	req := pagination.Request{
		Path:      path,
		Query:     query,
		ReturnAll: p.ReturnAll,
		Limit:     p.Limit,
	}
	if err := req.Validate(); err != nil {
		return req, fmt.Errorf("%w: %w", ErrInvalidParameters, err)
	}
	return req, nil
}

// QueryOptions are the optional list filters and sorting.
type QueryOptions struct {
	PerPage   int    `mapstructure:"per_page" validate:"omitempty,min=1,max=100"`
	Status    string `mapstructure:"status" validate:"omitempty,oneof=active inactive unsubscribed bounced"`
	SortBy    string `mapstructure:"sort_by" validate:"omitempty,oneof=created_at email name"`
	SortOrder string `mapstructure:"sort_order" validate:"omitempty,oneof=asc desc"`
}

// Target selects batch recipients.
type Target struct {
	TargetType    string `mapstructure:"targetType" validate:"required,oneof=list tags subscribers"`
	ContactListID string `mapstructure:"contactListId" validate:"required_if=TargetType list"`
	Tags          string `mapstructure:"tags" validate:"required_if=TargetType tags"`
	SubscriberIDs string `mapstructure:"subscriberIds" validate:"required_if=TargetType subscribers"`
}

// apply writes the recipient selection into body.
func (t Target) apply(body map[string]any) error {
	switch t.TargetType {
	case "list":
		body["contact_list_id"] = t.ContactListID
	case "tags":
		body["tags"] = splitTrim(t.Tags)
	case "subscribers":
		ids, err := parseIDs(t.SubscriberIDs)
		if err != nil {
			return err
		}
		body["subscriber_ids"] = ids
	}
	return nil
}

// splitTrim splits a comma-separated value and trims each part.
func splitTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

// parseIDs parses a comma-separated list of integer ids.
func parseIDs(s string) ([]int, error) {
	parts := splitTrim(s)
	ids := make([]int, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("%w: subscriber id %q is not an integer", ErrInvalidParameters, p)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// merge copies extra into body, overwriting existing keys.
func merge(body, extra map[string]any) map[string]any {
	for k, v := range extra {
		body[k] = v
	}
	return body
}
