// Package events forwards accepted webhook deliveries to downstream consumers.
package events

import (
	"context"
	"time"

	"github.com/Sternrassler/netsendo-nodes/pkg/model"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var publishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "netsendo_events_published_total",
	Help: "Webhook deliveries forwarded to the event sink by result",
}, []string{"result"})

// Delivery is one accepted webhook call.
type Delivery struct {
	ID         uuid.UUID    `json:"id"`
	WorkflowID string       `json:"workflow_id"`
	NodeID     string       `json:"node_id"`
	Event      string       `json:"event,omitempty"`
	Verified   bool         `json:"verified"`
	ReceivedAt time.Time    `json:"received_at"`
	Items      []model.Item `json:"items"`
}

// NewDelivery stamps a delivery with a fresh id and the current time.
func NewDelivery(workflowID, nodeID string, verified bool, items []model.Item) Delivery {
	d := Delivery{
		ID:         uuid.New(),
		WorkflowID: workflowID,
		NodeID:     nodeID,
		Verified:   verified,
		ReceivedAt: time.Now().UTC(),
		Items:      items,
	}
	if len(items) > 0 {
		if ev, ok := items[0]["event"].(string); ok {
			d.Event = ev
		}
	}
	return d
}

// Sink receives deliveries.
type Sink interface {
	Publish(ctx context.Context, d Delivery) error
	Close() error
}

// NopSink discards every delivery.
type NopSink struct{}

func (NopSink) Publish(context.Context, Delivery) error { return nil }
func (NopSink) Close() error                            { return nil }
