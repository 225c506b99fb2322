package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/netsendo-nodes/internal/testutil"
	"github.com/Sternrassler/netsendo-nodes/pkg/cache"
	"github.com/Sternrassler/netsendo-nodes/pkg/client"
	"github.com/Sternrassler/netsendo-nodes/pkg/events"
	"github.com/Sternrassler/netsendo-nodes/pkg/logging"
	"github.com/Sternrassler/netsendo-nodes/pkg/node"
	"github.com/Sternrassler/netsendo-nodes/pkg/state"
	"github.com/Sternrassler/netsendo-nodes/pkg/trigger"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type testBridge struct {
	handler http.Handler
	mock    *testutil.MockNetSendo
	redis   *miniredis.Miniredis
	store   state.Store
}

func newTestBridge(t *testing.T) *testBridge {
	t.Helper()

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redisClient.Close() })

	mock := testutil.NewMockNetSendo()
	t.Cleanup(mock.Close)

	cfg := client.DefaultConfig(client.Credentials{BaseURL: mock.URL(), APIKey: "ns_live_test"})
	cfg.RateLimit = 0
	cfg.Retry.MaxAttempts = 1
	api, err := client.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	t.Cleanup(func() { api.Close() })

	store := state.NewRedisStore(redisClient)
	srv := &server{
		node:   node.New(api, node.WithOptionsCache(cache.NewManager(redisClient, time.Minute), "test")),
		api:    api,
		store:  store,
		sink:   events.NopSink{},
		redis:  redisClient,
		logger: logging.NewLogger(logging.ComponentBridge),
	}

	return &testBridge{handler: srv.routes(), mock: mock, redis: mr, store: store}
}

func (b *testBridge) do(t *testing.T, method, path string, body string, header http.Header) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	b.handler.ServeHTTP(w, req)

	resp := w.Result()
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func TestHealthEndpoint(t *testing.T) {
	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	healthHandler(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if string(body) != "OK" {
		t.Errorf("Expected body 'OK', got %s", string(body))
	}
}

func TestReadyEndpoint(t *testing.T) {
	b := newTestBridge(t)

	t.Run("ready", func(t *testing.T) {
		resp, _ := b.do(t, "GET", "/ready", "", nil)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("Expected status 200, got %d", resp.StatusCode)
		}
	})

	t.Run("not_ready_redis_down", func(t *testing.T) {
		b.redis.Close()

		resp, _ := b.do(t, "GET", "/ready", "", nil)
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("Expected status 503, got %d", resp.StatusCode)
		}
	})
}

func TestMetricsEndpoint(t *testing.T) {
	b := newTestBridge(t)
	b.mock.SetJSON("GET", "/tags", map[string]any{"data": []any{}})

	// Drive one request so the labelled client metrics have a sample.
	b.do(t, "POST", "/nodes/netsendo/execute", `{"resource":"tag","operation":"getMany","parameters":[{}]}`, nil)

	resp, body := b.do(t, "GET", "/metrics", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	out := string(body)
	for _, name := range []string{"netsendo_requests_total", "netsendo_node_executions_total"} {
		if !strings.Contains(out, name) {
			t.Errorf("Expected metrics output to contain %s", name)
		}
	}
}

func TestNodesEndpoint(t *testing.T) {
	b := newTestBridge(t)

	resp, body := b.do(t, "GET", "/nodes", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var manifest struct {
		Nodes []struct {
			Type string `json:"type"`
			Kind string `json:"kind"`
		} `json:"nodes"`
		Credentials []struct {
			Name string `json:"name"`
		} `json:"credentials"`
	}
	if err := json.Unmarshal(body, &manifest); err != nil {
		t.Fatalf("Failed to decode manifest: %v", err)
	}

	kinds := map[string]string{}
	for _, n := range manifest.Nodes {
		kinds[n.Type] = n.Kind
	}
	if kinds[node.TypeName] != "action" || kinds[trigger.TypeName] != "trigger" {
		t.Errorf("Unexpected node kinds: %v", kinds)
	}
	if len(manifest.Credentials) != 1 || manifest.Credentials[0].Name != client.CredentialTypeName {
		t.Errorf("Unexpected credentials: %+v", manifest.Credentials)
	}
}

func TestExecuteEndpoint(t *testing.T) {
	b := newTestBridge(t)
	b.mock.SetJSON("GET", "/subscribers/3", map[string]any{"data": map[string]any{"id": 3, "email": "a@b.co"}})
	b.mock.SetResponse("GET", "/subscribers/4", testutil.NewErrorResponse(404, "Subscriber not found"))

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantItems  int
	}{
		{
			name:       "ok",
			body:       `{"resource":"subscriber","operation":"get","items":[{}],"parameters":[{"subscriberId":3}]}`,
			wantStatus: http.StatusOK,
			wantItems:  1,
		},
		{
			name:       "bad_json",
			body:       `{"resource":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown_operation",
			body:       `{"resource":"subscriber","operation":"explode","parameters":[{}]}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid_parameters",
			body:       `{"resource":"subscriber","operation":"get","parameters":[{}]}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "aborted",
			body:       `{"resource":"subscriber","operation":"get","parameters":[{"subscriberId":3},{"subscriberId":4}]}`,
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "continue_on_fail",
			body:       `{"resource":"subscriber","operation":"get","continueOnFail":true,"parameters":[{"subscriberId":3},{"subscriberId":4}]}`,
			wantStatus: http.StatusOK,
			wantItems:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := b.do(t, "POST", "/nodes/netsendo/execute", tt.body, nil)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.wantStatus, resp.StatusCode, body)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var out struct {
				Items []map[string]any `json:"items"`
			}
			if err := json.Unmarshal(body, &out); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if len(out.Items) != tt.wantItems {
				t.Errorf("Expected %d items, got %d", tt.wantItems, len(out.Items))
			}
		})
	}
}

func TestExecuteEndpoint_ParameterlessOperation(t *testing.T) {
	b := newTestBridge(t)
	b.mock.SetJSON("GET", "/email/mailboxes", map[string]any{"data": []any{
		map[string]any{"id": 1, "name": "Sales"},
		map[string]any{"id": 2, "name": "Support"},
	}})

	resp, body := b.do(t, "POST", "/nodes/netsendo/execute", `{"resource":"email","operation":"listMailboxes"}`, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.StatusCode, body)
	}

	var out struct {
		Items []map[string]any `json:"items"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(out.Items) != 2 {
		t.Errorf("Expected 2 items, got %d: %s", len(out.Items), body)
	}
	if got := b.mock.RequestCount(); got != 1 {
		t.Errorf("Expected 1 upstream request, got %d", got)
	}
}

func TestOptionsEndpoint(t *testing.T) {
	b := newTestBridge(t)
	b.mock.SetPages("/lists/9/subscribers", [][]map[string]any{{
		{"email": "a@x.io", "first_name": "Ola", "phone": "+48100"},
	}})

	resp, body := b.do(t, "GET", "/nodes/netsendo/options/getSubscribersWithPhone?smsContactListId=9", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.StatusCode, body)
	}

	var options []node.LoadOption
	if err := json.Unmarshal(body, &options); err != nil {
		t.Fatalf("Failed to decode options: %v", err)
	}
	if len(options) != 1 || options[0].Name != "Ola (+48100)" {
		t.Errorf("Unexpected options: %+v", options)
	}

	resp, _ = b.do(t, "GET", "/nodes/netsendo/options/getCampaigns", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown method, got %d", resp.StatusCode)
	}
}

func TestInvalidateOptionsEndpoint(t *testing.T) {
	b := newTestBridge(t)
	b.mock.SetJSON("GET", "/lists", map[string]any{"data": []any{map[string]any{"id": 1, "name": "Newsletter"}}})

	for i := 0; i < 2; i++ {
		if resp, body := b.do(t, "GET", "/nodes/netsendo/options/getLists", "", nil); resp.StatusCode != http.StatusOK {
			t.Fatalf("Expected status 200, got %d: %s", resp.StatusCode, body)
		}
	}
	if got := b.mock.RequestCount(); got != 1 {
		t.Fatalf("Expected cached second load, got %d upstream requests", got)
	}

	resp, body := b.do(t, "DELETE", "/nodes/netsendo/options", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.StatusCode, body)
	}
	var out struct {
		Removed int `json:"removed"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if out.Removed != 1 {
		t.Errorf("Expected 1 removed key, got %d", out.Removed)
	}

	b.do(t, "GET", "/nodes/netsendo/options/getLists", "", nil)
	if got := b.mock.RequestCount(); got != 2 {
		t.Errorf("Expected reload after invalidation, got %d upstream requests", got)
	}
}

func TestTriggerFlow(t *testing.T) {
	b := newTestBridge(t)
	b.mock.SetJSON("POST", "/webhooks", map[string]any{"data": map[string]any{"id": 11, "secret": "s3cr3t"}})
	b.mock.SetResponse("DELETE", "/webhooks/11", testutil.NewErrorResponse(404, "Webhook not found"))

	activate := `{"webhookUrl":"https://n8n.example.com/webhook/wf/node","workflowName":"Onboarding","events":["subscriber.created"]}`

	resp, body := b.do(t, "POST", "/nodes/trigger/wf/node/activate", activate, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.StatusCode, body)
	}

	resp, _ = b.do(t, "POST", "/nodes/trigger/wf/node/activate", activate, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200 on second activation, got %d", resp.StatusCode)
	}
	if got := b.mock.RequestCount(); got != 1 {
		t.Errorf("Expected 1 registration request, got %d", got)
	}

	payload := `{"event":"subscriber.created","data":{"id":5}}`

	t.Run("valid_signature", func(t *testing.T) {
		header := http.Header{}
		header.Set(trigger.SignatureHeader, trigger.Sign("s3cr3t", []byte(payload)))

		resp, body := b.do(t, "POST", "/webhook/wf/node", payload, header)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Expected status 200, got %d: %s", resp.StatusCode, body)
		}
		if !strings.Contains(string(body), `"verified":true`) {
			t.Errorf("Expected verified delivery, got %s", body)
		}
	})

	t.Run("invalid_signature", func(t *testing.T) {
		header := http.Header{}
		header.Set(trigger.SignatureHeader, "bad")

		resp, body := b.do(t, "POST", "/webhook/wf/node", payload, header)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("Expected status 401, got %d", resp.StatusCode)
		}
		if string(body) != trigger.InvalidSignatureResponse {
			t.Errorf("Expected %q, got %q", trigger.InvalidSignatureResponse, body)
		}
	})

	t.Run("unsigned", func(t *testing.T) {
		resp, body := b.do(t, "POST", "/webhook/wf/node", payload, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", resp.StatusCode)
		}
		if !strings.Contains(string(body), `"verified":false`) {
			t.Errorf("Expected unverified delivery, got %s", body)
		}
	})

	t.Run("deactivate", func(t *testing.T) {
		resp, body := b.do(t, "DELETE", "/nodes/trigger/wf/node", "", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Expected status 200, got %d: %s", resp.StatusCode, body)
		}
		if !strings.Contains(string(body), "remoteError") {
			t.Errorf("Expected the swallowed remote error to be reported, got %s", body)
		}

		rec, err := b.store.Load(context.Background(), state.NodeKey{WorkflowID: "wf", NodeID: "node"})
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if rec.Exists() {
			t.Errorf("Expected record to be cleared, got %+v", rec)
		}
	})
}

func TestActivateValidation(t *testing.T) {
	b := newTestBridge(t)

	tests := []struct {
		name string
		body string
	}{
		{"bad_json", `{`},
		{"unknown_event", `{"webhookUrl":"https://x.io/h","events":["campaign.sent"]}`},
		{"empty_events", `{"webhookUrl":"https://x.io/h","events":[]}`},
		{"missing_url", `{"workflowName":"x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := b.do(t, "POST", "/nodes/trigger/wf/node/activate", tt.body, nil)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d: %s", resp.StatusCode, body)
			}
		})
	}
	if got := b.mock.RequestCount(); got != 0 {
		t.Errorf("Expected no remote calls, got %d", got)
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("NETSENDO_BASE_URL", "https://mail.example.com/")
	t.Setenv("NETSENDO_API_KEY", "ns_live_abc")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("OPTIONS_CACHE_TTL", "90s")
	t.Setenv("CONTINUE_ON_FAIL", "true")
	t.Setenv("RATE_LIMIT", "2.5")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Errorf("Unexpected brokers: %v", cfg.KafkaBrokers)
	}
	if cfg.OptionsCacheTTL != 90*time.Second {
		t.Errorf("Expected 90s TTL, got %v", cfg.OptionsCacheTTL)
	}
	if !cfg.ContinueOnFail || cfg.RateLimit != 2.5 || cfg.MaxRetries != 3 {
		t.Errorf("Unexpected config: %+v", cfg)
	}

	opts, err := cfg.redisOptions()
	if err != nil || opts.Addr != "localhost:6379" {
		t.Errorf("Unexpected redis options: %+v, %v", opts, err)
	}

	t.Setenv("REDIS_URL", "redis://:pw@cache:6380/2")
	cfg, _ = loadConfig()
	opts, err = cfg.redisOptions()
	if err != nil || opts.Addr != "cache:6380" || opts.DB != 2 || opts.Password != "pw" {
		t.Errorf("Unexpected redis options: %+v, %v", opts, err)
	}

	t.Setenv("NETSENDO_API_KEY", "")
	if _, err := loadConfig(); err == nil {
		t.Error("Expected error without an API key")
	}
}
