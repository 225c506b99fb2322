// Package trigger implements the NetSendo webhook trigger node: it registers
// a webhook for the selected events, verifies signed deliveries and turns
// them into workflow items.
package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Sternrassler/netsendo-nodes/pkg/client"
	"github.com/Sternrassler/netsendo-nodes/pkg/events"
	"github.com/Sternrassler/netsendo-nodes/pkg/logging"
	"github.com/Sternrassler/netsendo-nodes/pkg/model"
	"github.com/Sternrassler/netsendo-nodes/pkg/state"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// TypeName is the trigger node type identifier.
const TypeName = "netSendoTrigger"

// InvalidSignatureResponse is returned to the caller when a signature does not match.
const InvalidSignatureResponse = "Invalid signature"

var (
	// ErrMissingWebhookURL is returned by Create without a callback URL.
	ErrMissingWebhookURL = errors.New("webhook url is required")

	// ErrMissingWebhookID is returned when the registration response carries no id.
	ErrMissingWebhookID = errors.New("webhook registration response has no id")

	// ErrMalformedPayload is returned for a delivery body that is not JSON.
	ErrMalformedPayload = errors.New("malformed webhook payload")
)

var (
	deliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "netsendo_webhook_deliveries_total",
		Help: "Webhook deliveries by verification result",
	}, []string{"result"})

	registrationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "netsendo_webhook_registrations_total",
		Help: "Webhook create and delete calls by outcome",
	}, []string{"operation", "outcome"})
)

// API is the transport the trigger registers webhooks through.
type API interface {
	Do(ctx context.Context, method, endpoint string, body model.Item, query url.Values) (model.Item, error)
}

// Config identifies the trigger node and what it subscribes to.
type Config struct {
	Key          state.NodeKey
	WorkflowName string
	WebhookURL   string
	Params       Params
}

// Trigger manages one node's webhook registration and handles its deliveries.
type Trigger struct {
	api    API
	store  state.Store
	sink   events.Sink
	cfg    Config
	logger zerolog.Logger
}

// Option configures a Trigger.
type Option func(*Trigger)

// WithSink forwards accepted deliveries to sink.
func WithSink(sink events.Sink) Option {
	return func(t *Trigger) {
		t.sink = sink
	}
}

// New creates a trigger for cfg.Key. Events default to subscriber.created.
func New(api API, store state.Store, cfg Config, opts ...Option) (*Trigger, error) {
	if err := cfg.Key.Validate(); err != nil {
		return nil, err
	}
	if len(cfg.Params.Events) == 0 {
		cfg.Params = DefaultParams()
	}
	if err := cfg.Params.Validate(); err != nil {
		return nil, err
	}

	t := &Trigger{
		api:   api,
		store: store,
		sink:  events.NopSink{},
		cfg:   cfg,
		logger: logging.NewLogger(logging.ComponentTrigger).With().
			Str("workflow_id", cfg.Key.WorkflowID).
			Str("node_id", cfg.Key.NodeID).
			Logger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// CheckExists reports whether a remote webhook id is recorded for the node.
// A store failure counts as not registered.
func (t *Trigger) CheckExists(ctx context.Context) bool {
	rec, err := t.store.Load(ctx, t.cfg.Key)
	if err != nil {
		t.logger.Warn().Err(err).Msg("Failed to load webhook record")
		return false
	}
	return rec.Exists()
}

// Create registers the webhook and records its id and secret.
func (t *Trigger) Create(ctx context.Context) error {
	if t.cfg.WebhookURL == "" {
		return ErrMissingWebhookURL
	}

	body := model.Item{
		"name":   "n8n Workflow: " + t.cfg.WorkflowName,
		"url":    t.cfg.WebhookURL,
		"events": t.cfg.Params.Events,
	}
	resp, err := t.api.Do(ctx, http.MethodPost, "/webhooks", body, nil)
	if err != nil {
		registrationsTotal.WithLabelValues("create", "error").Inc()
		return fmt.Errorf("register webhook: %w", err)
	}

	data := client.Unwrap(resp)
	rec := state.WebhookRecord{
		WebhookID: idString(data["id"]),
		Secret:    idString(data["secret"]),
	}
	if !rec.Exists() {
		registrationsTotal.WithLabelValues("create", "error").Inc()
		return ErrMissingWebhookID
	}

	if err := t.store.Save(ctx, t.cfg.Key, rec); err != nil {
		registrationsTotal.WithLabelValues("create", "error").Inc()
		return fmt.Errorf("persist webhook %s: %w", rec.WebhookID, err)
	}

	registrationsTotal.WithLabelValues("create", "ok").Inc()
	t.logger.Info().
		Str("webhook_id", rec.WebhookID).
		Strs("events", t.cfg.Params.Events).
		Bool("signed", rec.Secret != "").
		Msg("Webhook registered")
	return nil
}

// DeleteResult reports what Delete did. The local record is cleared even when
// the remote call fails; that failure is kept in RemoteErr.
type DeleteResult struct {
	WebhookID string
	RemoteErr error
	ClearErr  error
}

// Err joins the remote and local failures.
func (r DeleteResult) Err() error {
	return errors.Join(r.RemoteErr, r.ClearErr)
}

// Delete removes the remote webhook when one is recorded and clears the
// local record unconditionally.
func (t *Trigger) Delete(ctx context.Context) DeleteResult {
	var res DeleteResult

	rec, err := t.store.Load(ctx, t.cfg.Key)
	if err != nil {
		t.logger.Warn().Err(err).Msg("Failed to load webhook record, clearing anyway")
	}
	res.WebhookID = rec.WebhookID

	if rec.Exists() {
		_, err := t.api.Do(ctx, http.MethodDelete, "/webhooks/"+url.PathEscape(rec.WebhookID), nil, nil)
		if err != nil {
			res.RemoteErr = fmt.Errorf("delete webhook %s: %w", rec.WebhookID, err)
			registrationsTotal.WithLabelValues("delete", "error").Inc()
			t.logger.Warn().Err(err).Str("webhook_id", rec.WebhookID).
				Msg("Remote webhook delete failed, it may already be gone")
		} else {
			registrationsTotal.WithLabelValues("delete", "ok").Inc()
		}
	}

	if err := t.store.Clear(ctx, t.cfg.Key); err != nil {
		res.ClearErr = fmt.Errorf("clear webhook record: %w", err)
		t.logger.Error().Err(err).Msg("Failed to clear webhook record")
	} else if rec.Exists() {
		t.logger.Info().Str("webhook_id", rec.WebhookID).Msg("Webhook removed")
	}
	return res
}

// WebhookResponse is the outcome of one delivery. Body is sent back to the
// caller when set; Items start a workflow run when non-nil.
type WebhookResponse struct {
	Body     string
	Items    []model.Item
	Verified bool
}

// Webhook verifies and converts one delivery. With a recorded secret and a
// signature header the HMAC must match, otherwise Body is
// InvalidSignatureResponse and no items are produced. Without either the
// delivery is accepted unverified.
func (t *Trigger) Webhook(ctx context.Context, headers http.Header, body []byte) (WebhookResponse, error) {
	rec, err := t.store.Load(ctx, t.cfg.Key)
	if err != nil {
		return WebhookResponse{}, fmt.Errorf("load webhook record: %w", err)
	}

	signature := headers.Get(SignatureHeader)
	verified := false
	if rec.Secret != "" && signature != "" {
		if !Verify(rec.Secret, body, signature) {
			deliveriesTotal.WithLabelValues("rejected").Inc()
			t.logger.Warn().Str("webhook_id", rec.WebhookID).Msg("Rejected webhook delivery with invalid signature")
			return WebhookResponse{Body: InvalidSignatureResponse}, nil
		}
		verified = true
	}

	items, err := itemsFromBody(body)
	if err != nil {
		return WebhookResponse{}, err
	}

	result := "unverified"
	if verified {
		result = "verified"
	}
	deliveriesTotal.WithLabelValues(result).Inc()

	d := events.NewDelivery(t.cfg.Key.WorkflowID, t.cfg.Key.NodeID, verified, items)
	if err := t.sink.Publish(ctx, d); err != nil {
		t.logger.Warn().Err(err).Str("delivery_id", d.ID.String()).Msg("Failed to forward delivery")
	}
	t.logger.Debug().
		Str("delivery_id", d.ID.String()).
		Str("event", d.Event).
		Bool("verified", verified).
		Int("items", len(items)).
		Msg("Webhook delivery accepted")

	return WebhookResponse{Items: items, Verified: verified}, nil
}

// itemsFromBody yields one item for an object body and one per element for
// an array body. Scalars become {"value": v}; an empty body is one empty item.
func itemsFromBody(body []byte) ([]model.Item, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return []model.Item{{}}, nil
	}

	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	switch t := v.(type) {
	case map[string]any:
		return []model.Item{t}, nil
	case []any:
		items := make([]model.Item, 0, len(t))
		for _, el := range t {
			if obj, ok := el.(map[string]any); ok {
				items = append(items, obj)
			} else {
				items = append(items, model.Item{"value": el})
			}
		}
		return items, nil
	default:
		return []model.Item{{"value": t}}, nil
	}
}

// idString renders a JSON id (number or string) as a string.
func idString(v any) string {
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
