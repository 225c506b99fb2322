package node

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Sternrassler/netsendo-nodes/pkg/cache"
	"github.com/Sternrassler/netsendo-nodes/pkg/model"
	"github.com/Sternrassler/netsendo-nodes/pkg/pagination"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var loadOptionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "netsendo_load_options_total",
	Help: "Load-options calls by method and outcome",
}, []string{"method", "outcome"})

// Load-options method names.
const (
	MethodGetLists                = "getLists"
	MethodGetMailboxes            = "getMailboxes"
	MethodGetCustomFields         = "getCustomFields"
	MethodGetSubscribersWithPhone = "getSubscribersWithPhone"
)

// LoadOption is one dropdown entry.
type LoadOption struct {
	Name        string `json:"name"`
	Value       any    `json:"value"`
	Description string `json:"description,omitempty"`
}

// LoadOptionsParams are the current node parameters a method may depend on.
type LoadOptionsParams struct {
	SMSContactListID string `mapstructure:"smsContactListId"`
}

type loader func(ctx context.Context, api API, p LoadOptionsParams) ([]LoadOption, error)

var loaders = map[string]loader{
	MethodGetLists:                loadLists,
	MethodGetMailboxes:            loadMailboxes,
	MethodGetCustomFields:         loadCustomFields,
	MethodGetSubscribersWithPhone: loadSubscribersWithPhone,
}

// LoadOptionsMethods lists the supported method names.
func LoadOptionsMethods() []string {
	return []string{MethodGetLists, MethodGetMailboxes, MethodGetCustomFields, MethodGetSubscribersWithPhone}
}

// LoadOptions runs the named method. Results are served from the options
// cache when one is configured. getCustomFields never fails: any error yields
// an empty list.
func (n *Node) LoadOptions(ctx context.Context, method string, raw map[string]any) ([]LoadOption, error) {
	load, ok := loaders[method]
	if !ok {
		return nil, fmt.Errorf("%w: load options method %q", ErrUnknownOperation, method)
	}

	var p LoadOptionsParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}

	options, err := n.loadCached(ctx, method, p, load)
	if err != nil {
		if method == MethodGetCustomFields {
			n.logger.Debug().Err(err).Msg("Custom fields unavailable, returning no options")
			loadOptionsTotal.WithLabelValues(method, "empty").Inc()
			return []LoadOption{}, nil
		}
		loadOptionsTotal.WithLabelValues(method, "error").Inc()
		return nil, err
	}

	loadOptionsTotal.WithLabelValues(method, "ok").Inc()
	return options, nil
}

func (n *Node) loadCached(ctx context.Context, method string, p LoadOptionsParams, load loader) ([]LoadOption, error) {
	if n.cache == nil {
		return load(ctx, n.api, p)
	}

	key := cache.CacheKey{Scope: n.scope, Method: method}
	if method == MethodGetSubscribersWithPhone {
		key.Args = map[string]string{"list": p.SMSContactListID}
	}

	data, err := n.cache.GetOrLoad(ctx, key, func(ctx context.Context) ([]byte, error) {
		options, err := load(ctx, n.api, p)
		if err != nil {
			return nil, err
		}
		return json.Marshal(options)
	})
	if err != nil {
		return nil, err
	}

	var options []LoadOption
	if err := json.Unmarshal(data, &options); err != nil {
		return nil, fmt.Errorf("%w: %v", cache.ErrInvalidEntry, err)
	}
	return options, nil
}

func perPageQuery() url.Values {
	return url.Values{"per_page": []string{strconv.Itoa(PerPage)}}
}

func loadLists(ctx context.Context, api API, _ LoadOptionsParams) ([]LoadOption, error) {
	resp, err := api.Do(ctx, http.MethodGet, "/lists", nil, perPageQuery())
	if err != nil {
		return nil, err
	}

	lists := dataItems(resp)
	options := make([]LoadOption, 0, len(lists))
	for _, l := range lists {
		options = append(options, LoadOption{Name: str(l["name"]), Value: l["id"]})
	}
	return options, nil
}

func loadMailboxes(ctx context.Context, api API, _ LoadOptionsParams) ([]LoadOption, error) {
	resp, err := api.Do(ctx, http.MethodGet, "/email/mailboxes", nil, nil)
	if err != nil {
		return nil, err
	}

	mailboxes := dataItems(resp)
	options := make([]LoadOption, 0, len(mailboxes))
	for _, m := range mailboxes {
		name := fmt.Sprintf("%s (%s)", str(m["name"]), str(m["from_email"]))
		if truthy(m["is_default"]) {
			name += " ★"
		}
		options = append(options, LoadOption{Name: name, Value: m["id"]})
	}
	return options, nil
}

func loadCustomFields(ctx context.Context, api API, _ LoadOptionsParams) ([]LoadOption, error) {
	resp, err := api.Do(ctx, http.MethodGet, "/custom-fields", nil, perPageQuery())
	if err != nil {
		return nil, err
	}

	fields := dataItems(resp)
	options := make([]LoadOption, 0, len(fields))
	for _, f := range fields {
		options = append(options, LoadOption{
			Name:        fmt.Sprintf("%s (%s)", str(f["label"]), str(f["name"])),
			Value:       str(f["name"]),
			Description: "Type: " + str(f["type"]),
		})
	}
	return options, nil
}

func loadSubscribersWithPhone(ctx context.Context, api API, p LoadOptionsParams) ([]LoadOption, error) {
	if p.SMSContactListID == "" {
		return []LoadOption{}, nil
	}

	subscribers, err := pagination.FetchAllPages(ctx, api, pagination.Request{
		Path:      "/lists/" + url.PathEscape(p.SMSContactListID) + "/subscribers",
		Query:     perPageQuery(),
		ReturnAll: true,
	})
	if err != nil {
		return nil, err
	}

	options := make([]LoadOption, 0, len(subscribers))
	for _, s := range subscribers {
		phone := str(s["phone"])
		if strings.TrimSpace(phone) == "" {
			continue
		}
		first, last := str(s["first_name"]), str(s["last_name"])

		var name string
		if full := strings.TrimSpace(first + " " + last); full != "" {
			name = fmt.Sprintf("%s (%s)", full, phone)
		} else {
			name = fmt.Sprintf("%s (%s)", str(s["email"]), phone)
		}
		options = append(options, LoadOption{Name: name, Value: phone})
	}
	return options, nil
}

// dataItems returns the objects in resp["data"], or none.
func dataItems(resp model.Item) []model.Item {
	arr, ok := resp["data"].([]any)
	if !ok {
		return nil
	}
	items := make([]model.Item, 0, len(arr))
	for _, el := range arr {
		if obj, ok := el.(map[string]any); ok {
			items = append(items, obj)
		}
	}
	return items
}

// str renders a JSON scalar; nil becomes "".
func str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != "" && t != "0" && t != "false"
	default:
		return false
	}
}

// InvalidateOptions drops every cached load-options result of this node's
// credential scope. Without a cache it is a no-op.
func (n *Node) InvalidateOptions(ctx context.Context) (int, error) {
	if n.cache == nil {
		return 0, nil
	}
	removed, err := n.cache.InvalidateScope(ctx, n.scope)
	if err != nil {
		return removed, fmt.Errorf("invalidate options cache: %w", err)
	}
	n.logger.Info().Int("removed", removed).Msg("Options cache invalidated")
	return removed, nil
}
