package client

import "github.com/Sternrassler/netsendo-nodes/pkg/model"

// Unwrap returns resp["data"] when it is an object, otherwise resp itself.
// NetSendo wraps single resources as {"data": {...}}.
func Unwrap(resp model.Item) model.Item {
	if data, ok := resp["data"].(map[string]any); ok {
		return data
	}
	return resp
}

// UnwrapList expands a list response into one item per element. A response
// whose data (or body) is not an array yields a single item.
func UnwrapList(resp model.Item) []model.Item {
	data, ok := resp["data"]
	if !ok || data == nil {
		return []model.Item{resp}
	}

	switch v := data.(type) {
	case []any:
		items := make([]model.Item, 0, len(v))
		for _, el := range v {
			if obj, ok := el.(map[string]any); ok {
				items = append(items, obj)
			} else {
				items = append(items, model.Item{"value": el})
			}
		}
		return items
	case map[string]any:
		return []model.Item{v}
	default:
		return []model.Item{resp}
	}
}
