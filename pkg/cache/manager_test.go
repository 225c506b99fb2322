package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// setupTestRedis starts an in-memory Redis for the test.
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return client, mr
}

func TestNewManager(t *testing.T) {
	client, _ := setupTestRedis(t)

	manager := NewManager(client, 0)
	if manager == nil {
		t.Fatal("NewManager returned nil")
	}
	if manager.TTL() != DefaultTTL {
		t.Errorf("TTL() = %v, want %v", manager.TTL(), DefaultTTL)
	}
}

func TestNewManager_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewManager should panic with nil redis client")
		}
	}()
	NewManager(nil, time.Minute)
}

func TestManager_SetAndGet(t *testing.T) {
	client, mr := setupTestRedis(t)
	manager := NewManager(client, time.Minute)
	ctx := context.Background()

	key := CacheKey{Scope: "s1", Method: "getLists"}
	entry := NewEntry([]byte(`[{"name":"Newsletter","value":1}]`), time.Minute)

	if err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	retrieved, err := manager.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(retrieved.Data) != string(entry.Data) {
		t.Errorf("Data mismatch: got %s, want %s", retrieved.Data, entry.Data)
	}

	if ttl := mr.TTL(key.String()); ttl <= 0 || ttl > time.Minute {
		t.Errorf("redis TTL = %v, want (0, 1m]", ttl)
	}
}

func TestManager_Get_CacheMiss(t *testing.T) {
	client, _ := setupTestRedis(t)
	manager := NewManager(client, time.Minute)

	_, err := manager.Get(context.Background(), CacheKey{Scope: "s1", Method: "nothing"})
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss, got %v", err)
	}
}

func TestManager_Get_InvalidEntry(t *testing.T) {
	client, mr := setupTestRedis(t)
	manager := NewManager(client, time.Minute)

	key := CacheKey{Scope: "s1", Method: "broken"}
	mr.Set(key.String(), "not json")

	_, err := manager.Get(context.Background(), key)
	if !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("Expected ErrInvalidEntry, got %v", err)
	}
}

func TestManager_Set_ExpiredEntry(t *testing.T) {
	client, _ := setupTestRedis(t)
	manager := NewManager(client, time.Minute)
	ctx := context.Background()

	key := CacheKey{Scope: "s1", Method: "getLists"}
	entry := &CacheEntry{
		Data:    []byte(`[]`),
		Expires: time.Now().Add(-1 * time.Hour),
	}

	if err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if _, err := manager.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss for expired entry, got %v", err)
	}
}

func TestManager_Delete(t *testing.T) {
	client, _ := setupTestRedis(t)
	manager := NewManager(client, time.Minute)
	ctx := context.Background()

	key := CacheKey{Scope: "s1", Method: "getLists"}
	if err := manager.Set(ctx, key, NewEntry([]byte(`[]`), time.Minute)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if err := manager.Delete(ctx, key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := manager.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss after Delete, got %v", err)
	}
}

func TestManager_Set_NilEntry(t *testing.T) {
	client, _ := setupTestRedis(t)
	manager := NewManager(client, time.Minute)

	if err := manager.Set(context.Background(), CacheKey{Method: "x"}, nil); err == nil {
		t.Error("Set with nil entry should return error")
	}
}

func TestManager_GetOrLoad(t *testing.T) {
	client, _ := setupTestRedis(t)
	manager := NewManager(client, time.Minute)
	ctx := context.Background()

	key := CacheKey{Scope: "s1", Method: "getMailboxes"}
	calls := 0
	load := func(context.Context) ([]byte, error) {
		calls++
		return []byte(`[{"name":"Main"}]`), nil
	}

	for i := 0; i < 3; i++ {
		data, err := manager.GetOrLoad(ctx, key, load)
		if err != nil {
			t.Fatalf("GetOrLoad failed: %v", err)
		}
		if string(data) != `[{"name":"Main"}]` {
			t.Errorf("data = %s", data)
		}
	}

	if calls != 1 {
		t.Errorf("load called %d times, want 1", calls)
	}
}

func TestManager_GetOrLoad_LoadError(t *testing.T) {
	client, _ := setupTestRedis(t)
	manager := NewManager(client, time.Minute)
	ctx := context.Background()

	key := CacheKey{Scope: "s1", Method: "getLists"}
	boom := errors.New("upstream down")

	_, err := manager.GetOrLoad(ctx, key, func(context.Context) ([]byte, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want %v", err, boom)
	}

	if _, err := manager.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Error("failed load must not be cached")
	}
}

func TestManager_GetOrLoad_RedisDown(t *testing.T) {
	client, mr := setupTestRedis(t)
	manager := NewManager(client, time.Minute)
	mr.Close()

	data, err := manager.GetOrLoad(context.Background(), CacheKey{Method: "getLists"}, func(context.Context) ([]byte, error) {
		return []byte(`[]`), nil
	})
	if err != nil {
		t.Fatalf("GetOrLoad should fall through to load, got %v", err)
	}
	if string(data) != `[]` {
		t.Errorf("data = %s", data)
	}
}

func TestManager_InvalidateScope(t *testing.T) {
	client, mr := setupTestRedis(t)
	manager := NewManager(client, time.Minute)
	ctx := context.Background()

	keys := []CacheKey{
		{Scope: "s1", Method: "getLists"},
		{Scope: "s1", Method: "getMailboxes"},
		{Scope: "s2", Method: "getLists"},
	}
	for _, k := range keys {
		if err := manager.Set(ctx, k, NewEntry([]byte(`[]`), time.Minute)); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	deleted, err := manager.InvalidateScope(ctx, "s1")
	if err != nil {
		t.Fatalf("InvalidateScope failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}
	if !mr.Exists(keys[2].String()) {
		t.Error("other scope must survive")
	}
}
