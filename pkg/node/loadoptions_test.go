package node

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/Sternrassler/netsendo-nodes/internal/testutil"
	"github.com/Sternrassler/netsendo-nodes/pkg/cache"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOptions_Lists(t *testing.T) {
	n, mock := newTestNode(t)
	mock.SetJSON(http.MethodGet, "/lists", map[string]any{"data": []any{
		map[string]any{"id": 1, "name": "Newsletter"},
		map[string]any{"id": 2, "name": "Customers"},
	}})

	options, err := n.LoadOptions(context.Background(), MethodGetLists, nil)
	require.NoError(t, err)
	assert.Equal(t, []LoadOption{
		{Name: "Newsletter", Value: float64(1)},
		{Name: "Customers", Value: float64(2)},
	}, options)

	req, _ := mock.LastRequest()
	assert.Equal(t, []string{"100"}, req.Query["per_page"])
}

func TestLoadOptions_Mailboxes(t *testing.T) {
	n, mock := newTestNode(t)
	mock.SetJSON(http.MethodGet, "/email/mailboxes", map[string]any{"data": []any{
		map[string]any{"id": 1, "name": "Main", "from_email": "hi@acme.io", "is_default": true},
		map[string]any{"id": 2, "name": "Promo", "from_email": "promo@acme.io", "is_default": false},
	}})

	options, err := n.LoadOptions(context.Background(), MethodGetMailboxes, nil)
	require.NoError(t, err)
	require.Len(t, options, 2)
	assert.Equal(t, "Main (hi@acme.io) ★", options[0].Name)
	assert.Equal(t, "Promo (promo@acme.io)", options[1].Name)
}

func TestLoadOptions_CustomFields(t *testing.T) {
	n, mock := newTestNode(t)
	mock.SetJSON(http.MethodGet, "/custom-fields", map[string]any{"data": []any{
		map[string]any{"name": "company", "label": "Company", "type": "text"},
	}})

	options, err := n.LoadOptions(context.Background(), MethodGetCustomFields, nil)
	require.NoError(t, err)
	assert.Equal(t, []LoadOption{{Name: "Company (company)", Value: "company", Description: "Type: text"}}, options)
}

func TestLoadOptions_CustomFieldsErrorYieldsEmpty(t *testing.T) {
	n, mock := newTestNode(t)
	mock.SetResponse(http.MethodGet, "/custom-fields", testutil.NewErrorResponse(403, "Forbidden"))

	options, err := n.LoadOptions(context.Background(), MethodGetCustomFields, nil)
	require.NoError(t, err)
	assert.NotNil(t, options)
	assert.Empty(t, options)
}

func TestLoadOptions_ListsErrorPropagates(t *testing.T) {
	n, mock := newTestNode(t)
	mock.SetResponse(http.MethodGet, "/lists", testutil.NewErrorResponse(401, "Unauthenticated."))

	_, err := n.LoadOptions(context.Background(), MethodGetLists, nil)
	assert.Error(t, err)
}

func TestLoadOptions_SubscribersWithPhone(t *testing.T) {
	n, mock := newTestNode(t)
	mock.SetPages("/lists/5/subscribers", [][]map[string]any{
		{
			{"email": "a@x.io", "first_name": "Anna", "last_name": "Nowak", "phone": "+48111"},
			{"email": "b@x.io", "phone": ""},
		},
		{
			{"email": "c@x.io", "phone": "+48333"},
			{"email": "d@x.io", "first_name": "Dan", "phone": "+48444"},
			{"email": "e@x.io", "phone": "   "},
		},
	})

	options, err := n.LoadOptions(context.Background(), MethodGetSubscribersWithPhone, map[string]any{"smsContactListId": 5})
	require.NoError(t, err)
	assert.Equal(t, []LoadOption{
		{Name: "Anna Nowak (+48111)", Value: "+48111"},
		{Name: "c@x.io (+48333)", Value: "+48333"},
		{Name: "Dan (+48444)", Value: "+48444"},
	}, options)
	assert.Equal(t, 2, mock.RequestCount())
}

func TestLoadOptions_SubscribersWithPhoneNoList(t *testing.T) {
	n, mock := newTestNode(t)

	options, err := n.LoadOptions(context.Background(), MethodGetSubscribersWithPhone, nil)
	require.NoError(t, err)
	assert.Empty(t, options)
	assert.Zero(t, mock.RequestCount())
}

func TestLoadOptions_UnknownMethod(t *testing.T) {
	n, _ := newTestNode(t)

	_, err := n.LoadOptions(context.Background(), "getCampaigns", nil)
	assert.ErrorIs(t, err, ErrUnknownOperation)
}

func TestLoadOptions_Cached(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	mock := testutil.NewMockNetSendo()
	t.Cleanup(mock.Close)
	mock.SetJSON(http.MethodGet, "/lists", map[string]any{"data": []any{map[string]any{"id": 1, "name": "A"}}})
	mock.SetPages("/lists/1/subscribers", [][]map[string]any{{{"email": "a@x.io", "phone": "+1"}}})
	mock.SetPages("/lists/2/subscribers", [][]map[string]any{{{"email": "b@x.io", "phone": "+2"}}})

	manager := cache.NewManager(rdb, time.Minute)
	n := New(newTestClient(t, mock), WithOptionsCache(manager, "abc123"))
	ctx := context.Background()

	first, err := n.LoadOptions(ctx, MethodGetLists, nil)
	require.NoError(t, err)
	second, err := n.LoadOptions(ctx, MethodGetLists, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, mock.RequestCount())

	one, err := n.LoadOptions(ctx, MethodGetSubscribersWithPhone, map[string]any{"smsContactListId": "1"})
	require.NoError(t, err)
	two, err := n.LoadOptions(ctx, MethodGetSubscribersWithPhone, map[string]any{"smsContactListId": "2"})
	require.NoError(t, err)
	assert.Equal(t, "+1", one[0].Value)
	assert.Equal(t, "+2", two[0].Value)
	assert.Equal(t, 3, mock.RequestCount(), "list id is part of the cache key")

	assert.True(t, mr.Exists(cache.CacheKey{Scope: "abc123", Method: MethodGetLists}.String()))

	removed, err := n.InvalidateOptions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	_, err = n.LoadOptions(ctx, MethodGetLists, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, mock.RequestCount())
}

func TestInvalidateOptions_NoCache(t *testing.T) {
	mock := testutil.NewMockNetSendo()
	t.Cleanup(mock.Close)
	n := New(newTestClient(t, mock))

	removed, err := n.InvalidateOptions(context.Background())
	require.NoError(t, err)
	assert.Zero(t, removed)
}
