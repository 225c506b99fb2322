// Package node implements the NetSendo action node: subscriber, list, email,
// SMS and tag operations executed once per input item.
package node

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/Sternrassler/netsendo-nodes/pkg/cache"
	"github.com/Sternrassler/netsendo-nodes/pkg/logging"
	"github.com/Sternrassler/netsendo-nodes/pkg/model"
	"github.com/Sternrassler/netsendo-nodes/pkg/pagination"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var executionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "netsendo_node_executions_total",
	Help: "Per-item node executions by resource, operation and outcome",
}, []string{"resource", "operation", "outcome"})

// TypeName is the node type identifier.
const TypeName = "netSendo"

// API is what the node needs from the NetSendo transport. *client.Client
// satisfies it.
type API interface {
	Do(ctx context.Context, method, endpoint string, body model.Item, query url.Values) (model.Item, error)
	pagination.PageFetcher
}

// handler runs one operation for one item's parameters.
type handler func(ctx context.Context, api API, params map[string]any) ([]model.Item, error)

// Node executes NetSendo operations.
type Node struct {
	api    API
	cache  *cache.Manager
	scope  string
	logger zerolog.Logger
}

// Option configures a Node.
type Option func(*Node)

// WithOptionsCache caches load-options results in manager, namespaced by
// scope (a credential fingerprint).
func WithOptionsCache(manager *cache.Manager, scope string) Option {
	return func(n *Node) {
		n.cache = manager
		n.scope = scope
	}
}

// New creates a node backed by api.
func New(api API, opts ...Option) *Node {
	n := &Node{
		api:    api,
		logger: logging.NewLogger(logging.ComponentNode),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Request is one node execution. Parameters[i] holds the resolved parameters
// for Items[i]; when there are fewer parameter sets than items the last one is
// reused. With no items, one execution runs per parameter set, and a request
// carrying neither still runs once with empty parameters.
type Request struct {
	Resource       string           `json:"resource"`
	Operation      string           `json:"operation"`
	Items          []model.Item     `json:"items"`
	Parameters     []map[string]any `json:"parameters"`
	ContinueOnFail bool             `json:"continueOnFail"`
}

// count returns the number of per-item executions.
func (r Request) count() int {
	if len(r.Items) > 0 {
		return len(r.Items)
	}
	if len(r.Parameters) > 0 {
		return len(r.Parameters)
	}
	return 1
}

func (r Request) params(i int) map[string]any {
	switch {
	case len(r.Parameters) == 0:
		return map[string]any{}
	case i < len(r.Parameters):
		return r.Parameters[i]
	default:
		return r.Parameters[len(r.Parameters)-1]
	}
}

// Execute runs the operation for every item in order and concatenates the
// outputs. A failing item aborts the run unless ContinueOnFail is set, in
// which case the item contributes {"error": message} and the run goes on.
func (n *Node) Execute(ctx context.Context, req Request) ([]model.Item, error) {
	resource, operation, err := resolve(req.Resource, req.Operation)
	if err != nil {
		return nil, err
	}
	run := operations[resource][operation].run

	logger := n.logger.With().Str("resource", resource).Str("operation", operation).Logger()
	logger.Debug().Int("items", req.count()).Msg("Executing node")

	out := make([]model.Item, 0, req.count())
	for i := 0; i < req.count(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		items, err := run(ctx, n.api, req.params(i))
		if err != nil {
			executionsTotal.WithLabelValues(resource, operation, "error").Inc()
			if req.ContinueOnFail {
				logger.Warn().Err(err).Int("item", i).Msg("Item failed, continuing")
				out = append(out, model.Item{"error": err.Error()})
				continue
			}
			logger.Error().Err(err).Int("item", i).Msg("Execution aborted")
			return nil, fmt.Errorf("item %d: %w", i, err)
		}

		executionsTotal.WithLabelValues(resource, operation, "ok").Inc()
		out = append(out, items...)
	}

	logger.Debug().Int("output_items", len(out)).Msg("Node execution finished")
	return out, nil
}

// resolve applies defaults and checks that the pair exists.
func resolve(resource, operation string) (string, string, error) {
	if resource == "" {
		resource = DefaultResource
	}
	ops, ok := operations[resource]
	if !ok {
		return "", "", fmt.Errorf("%w: resource %q", ErrUnknownOperation, resource)
	}
	if operation == "" {
		operation = defaultOperations[resource]
	}
	if _, ok := ops[operation]; !ok {
		return "", "", fmt.Errorf("%w: %s.%s", ErrUnknownOperation, resource, operation)
	}
	return resource, operation, nil
}

// IsInvalidParameters reports whether err came from parameter validation.
func IsInvalidParameters(err error) bool {
	return errors.Is(err, ErrInvalidParameters)
}
