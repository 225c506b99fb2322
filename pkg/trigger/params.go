package trigger

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// Webhook event names NetSendo can deliver.
const (
	EventSubscriberBounced      = "subscriber.bounced"
	EventSubscriberCreated      = "subscriber.created"
	EventSubscriberDeleted      = "subscriber.deleted"
	EventSubscriberSubscribed   = "subscriber.subscribed"
	EventSubscriberUnsubscribed = "subscriber.unsubscribed"
	EventSubscriberUpdated      = "subscriber.updated"
	EventTagAdded               = "subscriber.tag_added"
	EventTagRemoved             = "subscriber.tag_removed"
)

// ErrInvalidParameters wraps trigger parameter decoding and validation failures.
var ErrInvalidParameters = errors.New("invalid trigger parameters")

var validate = validator.New()

// Events returns every supported event name.
func Events() []string {
	return []string{
		EventSubscriberBounced,
		EventSubscriberCreated,
		EventSubscriberDeleted,
		EventSubscriberSubscribed,
		EventSubscriberUnsubscribed,
		EventSubscriberUpdated,
		EventTagAdded,
		EventTagRemoved,
	}
}

// Params are the trigger node parameters.
type Params struct {
	Events []string `mapstructure:"events" json:"events" validate:"min=1,unique,dive,oneof=subscriber.bounced subscriber.created subscriber.deleted subscriber.subscribed subscriber.unsubscribed subscriber.updated subscriber.tag_added subscriber.tag_removed"`
}

// DefaultParams subscribes to subscriber.created only.
func DefaultParams() Params {
	return Params{Events: []string{EventSubscriberCreated}}
}

// Validate checks the event selection.
func (p Params) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}
	return nil
}

// DecodeParams reads raw node parameters over the defaults and validates them.
// A single event given as a string is accepted.
func DecodeParams(raw map[string]any) (Params, error) {
	p := DefaultParams()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ZeroFields:       true,
		Result:           &p,
	})
	if err != nil {
		return p, fmt.Errorf("build decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return p, fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}
	return p, p.Validate()
}
