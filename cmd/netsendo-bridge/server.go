package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Sternrassler/netsendo-nodes/pkg/events"
	"github.com/Sternrassler/netsendo-nodes/pkg/metrics"
	"github.com/Sternrassler/netsendo-nodes/pkg/model"
	"github.com/Sternrassler/netsendo-nodes/pkg/node"
	"github.com/Sternrassler/netsendo-nodes/pkg/plugin"
	"github.com/Sternrassler/netsendo-nodes/pkg/state"
	"github.com/Sternrassler/netsendo-nodes/pkg/trigger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// maxWebhookBody bounds delivery bodies read by the webhook route.
const maxWebhookBody = 1 << 20

// server wires the nodes to HTTP routes.
type server struct {
	node           *node.Node
	api            trigger.API
	store          state.Store
	sink           events.Sink
	redis          *redis.Client
	continueOnFail bool
	logger         zerolog.Logger
}

type executeRequest struct {
	Resource       string           `json:"resource"`
	Operation      string           `json:"operation"`
	Parameters     []map[string]any `json:"parameters"`
	Items          []model.Item     `json:"items"`
	ContinueOnFail *bool            `json:"continueOnFail"`
}

type activateRequest struct {
	WebhookURL   string   `json:"webhookUrl"`
	WorkflowName string   `json:"workflowName"`
	Events       []string `json:"events"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", healthHandler)
	r.Get("/ready", s.readyHandler)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/nodes", s.listNodes)

	r.Route("/nodes/netsendo", func(r chi.Router) {
		r.Post("/execute", s.execute)
		r.Get("/options/{method}", s.loadOptions)
		r.Delete("/options", s.invalidateOptions)
	})

	r.Route("/nodes/trigger/{workflowID}/{nodeID}", func(r chi.Router) {
		r.Post("/activate", s.activate)
		r.Delete("/", s.deactivate)
	})

	r.Post("/webhook/{workflowID}/{nodeID}", s.webhook)
	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

func (s *server) readyHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.redis.Ping(r.Context()).Err(); err != nil {
		http.Error(w, "Redis unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "READY")
}

func (s *server) listNodes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, plugin.List())
}

func (s *server) execute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	continueOnFail := s.continueOnFail
	if req.ContinueOnFail != nil {
		continueOnFail = *req.ContinueOnFail
	}

	items, err := s.node.Execute(r.Context(), node.Request{
		Resource:       req.Resource,
		Operation:      req.Operation,
		Items:          req.Items,
		Parameters:     req.Parameters,
		ContinueOnFail: continueOnFail,
	})
	switch {
	case errors.Is(err, node.ErrUnknownOperation), node.IsInvalidParameters(err):
		writeError(w, http.StatusBadRequest, err)
		return
	case err != nil:
		writeError(w, http.StatusBadGateway, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *server) invalidateOptions(w http.ResponseWriter, r *http.Request) {
	removed, err := s.node.InvalidateOptions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

func (s *server) loadOptions(w http.ResponseWriter, r *http.Request) {
	raw := map[string]any{}
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			raw[key] = values[0]
		}
	}

	options, err := s.node.LoadOptions(r.Context(), chi.URLParam(r, "method"), raw)
	switch {
	case errors.Is(err, node.ErrUnknownOperation):
		writeError(w, http.StatusNotFound, err)
		return
	case node.IsInvalidParameters(err):
		writeError(w, http.StatusBadRequest, err)
		return
	case err != nil:
		writeError(w, http.StatusBadGateway, err)
		return
	}

	writeJSON(w, http.StatusOK, options)
}

func (s *server) newTrigger(r *http.Request, cfg trigger.Config) (*trigger.Trigger, error) {
	cfg.Key = state.NodeKey{
		WorkflowID: chi.URLParam(r, "workflowID"),
		NodeID:     chi.URLParam(r, "nodeID"),
	}
	return trigger.New(s.api, s.store, cfg, trigger.WithSink(s.sink))
}

func (s *server) activate(w http.ResponseWriter, r *http.Request) {
	var req activateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	raw := map[string]any{}
	if req.Events != nil {
		raw["events"] = req.Events
	}
	params, err := trigger.DecodeParams(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	t, err := s.newTrigger(r, trigger.Config{
		WorkflowName: req.WorkflowName,
		WebhookURL:   req.WebhookURL,
		Params:       params,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if t.CheckExists(r.Context()) {
		writeJSON(w, http.StatusOK, map[string]any{"created": false})
		return
	}

	if err := t.Create(r.Context()); err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, trigger.ErrMissingWebhookURL) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"created": true})
}

func (s *server) deactivate(w http.ResponseWriter, r *http.Request) {
	t, err := s.newTrigger(r, trigger.Config{})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res := t.Delete(r.Context())
	if res.ClearErr != nil {
		writeError(w, http.StatusInternalServerError, res.ClearErr)
		return
	}

	body := map[string]any{"webhookId": res.WebhookID}
	if res.RemoteErr != nil {
		body["remoteError"] = res.RemoteErr.Error()
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *server) webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}

	t, err := s.newTrigger(r, trigger.Config{})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := t.Webhook(r.Context(), r.Header, body)
	switch {
	case errors.Is(err, trigger.ErrMalformedPayload):
		writeError(w, http.StatusBadRequest, err)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	if resp.Body != "" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, resp.Body)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": resp.Items, "verified": resp.Verified})
}

// requestLogger logs every request with zerolog.
func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("Request handled")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
