// Package state persists the per-node webhook registration record (remote
// webhook id and signing secret) between trigger activations.
package state

import (
	"context"
	"errors"
	"fmt"
)

// ErrInvalidKey is returned for a NodeKey missing either part.
var ErrInvalidKey = errors.New("node key requires workflow id and node id")

// NodeKey scopes a record to one trigger node inside one workflow.
type NodeKey struct {
	WorkflowID string
	NodeID     string
}

// Validate checks that both parts are set.
func (k NodeKey) Validate() error {
	if k.WorkflowID == "" || k.NodeID == "" {
		return ErrInvalidKey
	}
	return nil
}

// String returns "<workflow>:<node>".
func (k NodeKey) String() string {
	return fmt.Sprintf("%s:%s", k.WorkflowID, k.NodeID)
}

// WebhookRecord is what a trigger node remembers about its remote webhook.
type WebhookRecord struct {
	WebhookID string `json:"webhookId"`
	Secret    string `json:"webhookSecret"`
}

// Exists reports whether a remote webhook has been registered.
func (r WebhookRecord) Exists() bool {
	return r.WebhookID != ""
}

// Store loads, saves and clears webhook records. Load on an unknown key
// returns the zero record and no error.
type Store interface {
	Load(ctx context.Context, key NodeKey) (WebhookRecord, error)
	Save(ctx context.Context, key NodeKey, rec WebhookRecord) error
	Clear(ctx context.Context, key NodeKey) error
}
