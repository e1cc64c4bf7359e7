package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/explainbench/explain-bench/internal/pkg/errors"
)

// RemoteClassifier is a Scorer backed by an HTTP inference endpoint.
type RemoteClassifier struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// RemoteConfig configures the remote classifier client.
type RemoteConfig struct {
	// BaseURL is the base URL of the inference server.
	BaseURL string

	// APIKey is sent as X-API-Key when non-empty.
	APIKey string

	// Timeout is the request timeout.
	Timeout time.Duration

	// MaxIdleConns controls the maximum number of idle (keep-alive)
	// connections across all hosts. Zero means no limit.
	MaxIdleConns int

	// MaxConnsPerHost limits the total number of connections per host.
	// Zero means no limit.
	MaxConnsPerHost int

	// IdleConnTimeout is the maximum amount of time an idle (keep-alive)
	// connection will remain idle before closing itself.
	IdleConnTimeout time.Duration
}

// DefaultRemoteConfig returns sensible defaults.
func DefaultRemoteConfig() RemoteConfig {
	return RemoteConfig{
		BaseURL:         "http://localhost:9000",
		Timeout:         30 * time.Second,
		MaxIdleConns:    100,
		MaxConnsPerHost: 100,
		IdleConnTimeout: 90 * time.Second,
	}
}

// NewRemoteClassifier creates a remote classifier client.
func NewRemoteClassifier(cfg RemoteConfig) *RemoteClassifier {
	if cfg.BaseURL == "" {
		cfg = DefaultRemoteConfig()
	}

	transport := &http.Transport{
		MaxIdleConns:    cfg.MaxIdleConns,
		MaxConnsPerHost: cfg.MaxConnsPerHost,
		IdleConnTimeout: cfg.IdleConnTimeout,
	}

	return &RemoteClassifier{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
	}
}

type predictRequest struct {
	Tokens []string `json:"tokens"`
	Target int      `json:"target"`
}

type predictResponse struct {
	Probability float64 `json:"probability"`
}

// Predict implements Scorer against POST /v1/predict.
func (c *RemoteClassifier) Predict(ctx context.Context, tokens []string, target int) (float64, error) {
	body, err := json.Marshal(predictRequest{Tokens: tokens, Target: target})
	if err != nil {
		return 0, errors.InternalError("marshal predict request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/predict", bytes.NewReader(body))
	if err != nil {
		return 0, errors.InternalError("build predict request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, errors.ModelError("predict request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, errors.ModelError(
			fmt.Sprintf("predict returned status %d: %s", resp.StatusCode, bytes.TrimSpace(data)), nil)
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, errors.ModelError("decode predict response", err)
	}

	return out.Probability, nil
}
