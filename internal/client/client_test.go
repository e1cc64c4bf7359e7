package client

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.BaseURL != "http://localhost:8080" {
		t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, "http://localhost:8080")
	}
	if cfg.Timeout != 120*time.Second {
		t.Errorf("Timeout = %v, want %v", cfg.Timeout, 120*time.Second)
	}
}

func TestClientNew(t *testing.T) {
	t.Run("default config", func(t *testing.T) {
		c := New(Config{})
		if c.baseURL != "http://localhost:8080" {
			t.Errorf("baseURL = %q, want %q", c.baseURL, "http://localhost:8080")
		}
	})

	t.Run("custom config", func(t *testing.T) {
		c := New(Config{
			BaseURL: "http://custom:9000",
			Timeout: 60 * time.Second,
		})
		if c.baseURL != "http://custom:9000" {
			t.Errorf("baseURL = %q, want %q", c.baseURL, "http://custom:9000")
		}
	})
}

func TestClientHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			t.Errorf("path = %q, want %q", r.URL.Path, "/healthz")
		}
		if r.Method != http.MethodGet {
			t.Errorf("method = %q, want %q", r.Method, http.MethodGet)
		}

		if err := json.NewEncoder(w).Encode(HealthResponse{
			Status:  "ok",
			Version: "1.0.0",
		}); err != nil {
			t.Errorf("failed to encode response: %v", err)
		}
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL})
	resp, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Status != "ok" {
		t.Errorf("Status = %q, want %q", resp.Status, "ok")
	}
	if resp.Version != "1.0.0" {
		t.Errorf("Version = %q, want %q", resp.Version, "1.0.0")
	}
}

func TestClientEvaluate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/evaluate" {
			t.Errorf("path = %q, want %q", r.URL.Path, "/v1/evaluate")
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want %q", r.Method, http.MethodPost)
		}

		var req EvaluateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if req.Text != "good movie" {
			t.Errorf("Text = %q, want %q", req.Text, "good movie")
		}
		if len(req.Explanations) != 1 || req.Explanations[0].Name != "lime" {
			t.Errorf("Explanations = %+v, want one named lime", req.Explanations)
		}

		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write([]byte(`{
			"request_id": "abc12345",
			"table": {
				"columns": ["good", "movie", "aopc_compr"],
				"rows": [{"name": "lime", "values": [0.9, 0.1, 0.42]}]
			},
			"latency_ms": 12.5
		}`)); err != nil {
			t.Errorf("failed to write response: %v", err)
		}
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL})
	resp, err := c.Evaluate(context.Background(), EvaluateRequest{
		Text: "good movie",
		Explanations: []Explanation{
			{Name: "lime", Scores: []float64{0.9, 0.1}},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.RequestID != "abc12345" {
		t.Errorf("RequestID = %q, want %q", resp.RequestID, "abc12345")
	}
	if resp.Table == nil {
		t.Fatal("Table is nil")
	}
	if got := resp.Table.Columns(); len(got) != 3 || got[2] != "aopc_compr" {
		t.Errorf("Columns() = %v, want 3 columns ending in aopc_compr", got)
	}
	cell, ok := resp.Table.Cell(0, "aopc_compr")
	if !ok {
		t.Fatal("Cell(0, aopc_compr) not found")
	}
	if math.Abs(cell-0.42) > 1e-9 {
		t.Errorf("cell = %v, want 0.42", cell)
	}
}

func TestClientEvaluateBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/evaluate/batch" {
			t.Errorf("path = %q, want %q", r.URL.Path, "/v1/evaluate/batch")
		}

		var req BatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if len(req.Items) != 2 {
			t.Errorf("len(Items) = %d, want %d", len(req.Items), 2)
		}

		if err := json.NewEncoder(w).Encode(BatchResponse{
			RequestID: "batch001",
			Results: []*EvaluateResponse{
				{RequestID: "r1"},
				{RequestID: "r2"},
			},
		}); err != nil {
			t.Errorf("failed to encode response: %v", err)
		}
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL})
	resp, err := c.EvaluateBatch(context.Background(), BatchRequest{
		Items: []EvaluateRequest{
			{Text: "one", Explanations: []Explanation{{Name: "a", Scores: []float64{1}}}},
			{Text: "two", Explanations: []Explanation{{Name: "a", Scores: []float64{1}}}},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(resp.Results) != 2 {
		t.Fatalf("len(Results) = %d, want %d", len(resp.Results), 2)
	}
	if resp.Results[1].RequestID != "r2" {
		t.Errorf("Results[1].RequestID = %q, want %q", resp.Results[1].RequestID, "r2")
	}
}

func TestClientAPIKeyHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-API-Key"); got != "secret" {
			t.Errorf("X-API-Key = %q, want %q", got, "secret")
		}
		if err := json.NewEncoder(w).Encode(HealthResponse{Status: "ok"}); err != nil {
			t.Errorf("failed to encode response: %v", err)
		}
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL, APIKey: "secret"})
	if _, err := c.Health(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClientAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		if _, err := w.Write([]byte(`{"error":"text is required","code":"INVALID_REQUEST","message":"text is required"}`)); err != nil {
			t.Errorf("failed to write response: %v", err)
		}
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL})
	_, err := c.Evaluate(context.Background(), EvaluateRequest{})
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.Code != "INVALID_REQUEST" {
		t.Errorf("Code = %q, want %q", apiErr.Code, "INVALID_REQUEST")
	}
}

func TestClientNonJSONError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		if _, err := w.Write([]byte("upstream down")); err != nil {
			t.Errorf("failed to write response: %v", err)
		}
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL})
	_, err := c.Health(context.Background())
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if _, ok := err.(*APIError); ok {
		t.Errorf("error type = *APIError, want plain error for non-JSON body")
	}
}
