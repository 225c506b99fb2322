package state

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client), mr
}

func stores(t *testing.T) map[string]Store {
	rs, _ := newRedisStore(t)
	return map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  rs,
	}
}

func TestStore_Lifecycle(t *testing.T) {
	key := NodeKey{WorkflowID: "wf-1", NodeID: "node-1"}
	ctx := context.Background()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			rec, err := store.Load(ctx, key)
			require.NoError(t, err)
			assert.False(t, rec.Exists(), "unknown key must load the zero record")

			want := WebhookRecord{WebhookID: "42", Secret: "s3cr3t"}
			require.NoError(t, store.Save(ctx, key, want))

			got, err := store.Load(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, want, got)
			assert.True(t, got.Exists())

			require.NoError(t, store.Clear(ctx, key))

			got, err = store.Load(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, WebhookRecord{}, got)
		})
	}
}

func TestStore_KeysAreIsolated(t *testing.T) {
	ctx := context.Background()
	a := NodeKey{WorkflowID: "wf-1", NodeID: "node-1"}
	b := NodeKey{WorkflowID: "wf-1", NodeID: "node-2"}

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Save(ctx, a, WebhookRecord{WebhookID: "1", Secret: "x"}))

			got, err := store.Load(ctx, b)
			require.NoError(t, err)
			assert.False(t, got.Exists())
		})
	}
}

func TestStore_SaveOverwrites(t *testing.T) {
	ctx := context.Background()
	key := NodeKey{WorkflowID: "wf", NodeID: "n"}

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Save(ctx, key, WebhookRecord{WebhookID: "1", Secret: "old"}))
			require.NoError(t, store.Save(ctx, key, WebhookRecord{WebhookID: "2"}))

			got, err := store.Load(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, WebhookRecord{WebhookID: "2"}, got)
		})
	}
}

func TestStore_InvalidKey(t *testing.T) {
	ctx := context.Background()
	bad := NodeKey{WorkflowID: "wf"}

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Load(ctx, bad)
			assert.True(t, errors.Is(err, ErrInvalidKey))
			assert.ErrorIs(t, store.Save(ctx, bad, WebhookRecord{}), ErrInvalidKey)
			assert.ErrorIs(t, store.Clear(ctx, bad), ErrInvalidKey)
		})
	}
}

func TestRedisStore_Layout(t *testing.T) {
	store, mr := newRedisStore(t)
	key := NodeKey{WorkflowID: "wf-9", NodeID: "trigger"}

	require.NoError(t, store.Save(context.Background(), key, WebhookRecord{WebhookID: "7", Secret: "abc"}))

	assert.Equal(t, "7", mr.HGet("netsendo:webhook:wf-9:trigger", "webhookId"))
	assert.Equal(t, "abc", mr.HGet("netsendo:webhook:wf-9:trigger", "webhookSecret"))
}

func TestRedisStore_Unavailable(t *testing.T) {
	store, mr := newRedisStore(t)
	mr.Close()

	_, err := store.Load(context.Background(), NodeKey{WorkflowID: "a", NodeID: "b"})
	assert.Error(t, err)
}

func TestWebhookRecord_Exists(t *testing.T) {
	assert.False(t, WebhookRecord{}.Exists())
	assert.False(t, WebhookRecord{Secret: "only-secret"}.Exists())
	assert.True(t, WebhookRecord{WebhookID: "1"}.Exists())
}
