package model

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/explainbench/explain-bench/internal/pkg/errors"
)

func TestRemoteClassifier_Predict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/predict" {
			t.Errorf("path = %s, want /v1/predict", r.URL.Path)
		}
		if got := r.Header.Get("X-API-Key"); got != "secret" {
			t.Errorf("X-API-Key = %s, want secret", got)
		}

		var req predictRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Tokens) != 2 || req.Target != 1 {
			t.Errorf("request = %+v", req)
		}

		json.NewEncoder(w).Encode(predictResponse{Probability: 0.83})
	}))
	defer srv.Close()

	cfg := DefaultRemoteConfig()
	cfg.BaseURL = srv.URL
	cfg.APIKey = "secret"
	c := NewRemoteClassifier(cfg)

	got, err := c.Predict(context.Background(), []string{"the", "cat"}, 1)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if got != 0.83 {
		t.Errorf("Predict() = %f, want 0.83", got)
	}
}

func TestRemoteClassifier_PredictServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model exploded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := DefaultRemoteConfig()
	cfg.BaseURL = srv.URL
	c := NewRemoteClassifier(cfg)

	_, err := c.Predict(context.Background(), []string{"x"}, 0)
	if err == nil {
		t.Fatal("expected error for 500 response")
	}

	appErr, ok := err.(*errors.AppError)
	if !ok || appErr.Code != errors.CodeModelError {
		t.Errorf("error = %v, want MODEL_ERROR", err)
	}
}
