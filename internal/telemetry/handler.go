package telemetry

import (
	"encoding/json"
	"net/http"
)

// Handler returns an HTTP handler serving the Prometheus scrape endpoint.
func (t *Telemetry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		t.UpdateSystemMetrics()

		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(t.PrometheusFormat()))
	})
}

// HistoryHandler returns an HTTP handler serving the rolling evaluation
// latency history as JSON.
func (t *Telemetry) HistoryHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"metric": "eval_latency_ms",
			"points": t.History.Snapshot(),
		})
	})
}
