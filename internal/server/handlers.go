package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/explainbench/explain-bench/internal/bus"
	"github.com/explainbench/explain-bench/internal/config"
	"github.com/explainbench/explain-bench/internal/evaluation"
	"github.com/explainbench/explain-bench/internal/explain"
	"github.com/explainbench/explain-bench/internal/pkg/errors"
	"github.com/explainbench/explain-bench/internal/pkg/logger"
	"github.com/explainbench/explain-bench/internal/telemetry"
)

// batchConcurrency bounds how many texts of one batch run at once; each text
// already fans out into many model calls.
const batchConcurrency = 4

// maxBatchSize bounds the number of texts per batch request.
const maxBatchSize = 64

// EvalHandler handles evaluation HTTP requests.
type EvalHandler struct {
	evaluator *evaluation.Evaluator
	bus       bus.Bus
	tel       *telemetry.Telemetry
	appCfg    *config.Config
	log       *logger.Logger
}

// NewEvalHandler creates an evaluation handler.
func NewEvalHandler(evaluator *evaluation.Evaluator, eventBus bus.Bus, tel *telemetry.Telemetry, appCfg *config.Config, log *logger.Logger) *EvalHandler {
	return &EvalHandler{
		evaluator: evaluator,
		bus:       eventBus,
		tel:       tel,
		appCfg:    appCfg,
		log:       log,
	}
}

// RegisterRoutes registers evaluation routes.
func (h *EvalHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/evaluate", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			errors.WriteError(w, errors.InvalidRequestError("method not allowed"))
			return
		}
		h.handleEvaluate(w, r)
	})

	mux.HandleFunc("/v1/evaluate/batch", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			errors.WriteError(w, errors.InvalidRequestError("method not allowed"))
			return
		}
		h.handleEvaluateBatch(w, r)
	})
}

// ExplanationPayload is one explainer's attribution over the token columns.
type ExplanationPayload struct {
	Name   string    `json:"name"`
	Scores []float64 `json:"scores"`
}

// EvaluateRequest is the JSON body of POST /v1/evaluate.
type EvaluateRequest struct {
	Text         string               `json:"text"`
	Tokens       []string             `json:"tokens,omitempty"`
	Explanations []ExplanationPayload `json:"explanations"`

	// Rationale is a token-level ground truth; WordRationale is word-level
	// and gets expanded with the server's tokenizer. Only one may be set.
	Rationale     []int `json:"rationale,omitempty"`
	WordRationale []int `json:"word_rationale,omitempty"`

	Target  *int           `json:"target,omitempty"`
	Rank    *bool          `json:"rank,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

// EvaluateResponse is the JSON body of a successful evaluation.
type EvaluateResponse struct {
	RequestID string         `json:"request_id"`
	Table     *explain.Table `json:"table"`
	LatencyMS float64        `json:"latency_ms"`
}

// BatchRequest is the JSON body of POST /v1/evaluate/batch.
type BatchRequest struct {
	Items []EvaluateRequest `json:"items"`
}

// BatchResponse holds one response per batch item, in request order.
type BatchResponse struct {
	RequestID string             `json:"request_id"`
	Results   []*EvaluateResponse `json:"results"`
	LatencyMS float64            `json:"latency_ms"`
}

func (h *EvalHandler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, errors.InvalidRequestError("invalid request body"))
		return
	}

	requestID := GenerateRequestID()
	resp, err := h.evaluateOne(r.Context(), requestID, &req)
	if err != nil {
		h.recordFailure(r.Context(), requestID, err)
		errors.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *EvalHandler) handleEvaluateBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, errors.InvalidRequestError("invalid request body"))
		return
	}
	if len(req.Items) == 0 {
		errors.WriteError(w, errors.ValidationError("batch must contain at least one item"))
		return
	}
	if len(req.Items) > maxBatchSize {
		errors.WriteError(w, errors.ValidationError("batch too large"))
		return
	}

	batchID := GenerateRequestID()
	start := time.Now()

	results := make([]*EvaluateResponse, len(req.Items))
	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(batchConcurrency)

	for i := range req.Items {
		g.Go(func() error {
			itemID := GenerateRequestID()
			resp, err := h.evaluateOne(ctx, itemID, &req.Items[i])
			if err != nil {
				return err
			}
			results[i] = resp
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		h.recordFailure(r.Context(), batchID, err)
		errors.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, &BatchResponse{
		RequestID: batchID,
		Results:   results,
		LatencyMS: float64(time.Since(start).Milliseconds()),
	})
}

// evaluateOne validates a single request, runs the evaluator, and publishes
// lifecycle events.
func (h *EvalHandler) evaluateOne(ctx context.Context, requestID string, req *EvaluateRequest) (*EvaluateResponse, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, errors.ValidationError("text is required")
	}
	if len(req.Explanations) == 0 {
		return nil, errors.ValidationError("at least one explanation is required")
	}
	if req.Rationale != nil && req.WordRationale != nil {
		return nil, errors.ValidationError("rationale and word_rationale are mutually exclusive")
	}

	tokens := req.Tokens
	if len(tokens) == 0 {
		tokens = h.evaluator.Tokenizer().Tokenize(req.Text)
	}

	names := make([]string, len(req.Explanations))
	scores := make([][]float64, len(req.Explanations))
	for i, e := range req.Explanations {
		if e.Name == "" {
			return nil, errors.ValidationError("explanation name is required")
		}
		names[i] = e.Name
		scores[i] = e.Scores
	}

	matrix, err := explain.NewMatrix(names, tokens, scores)
	if err != nil {
		return nil, err
	}

	rationale := req.Rationale
	if req.WordRationale != nil {
		words := strings.Fields(req.Text)
		rationale, err = h.evaluator.AlignRationale(words, req.WordRationale)
		if err != nil {
			return nil, err
		}
	}

	opts := evaluation.DefaultEvaluateOptions()
	opts.Target = h.appCfg.Eval.DefaultTarget
	if req.Target != nil {
		opts.Target = *req.Target
	}
	if req.Rank != nil {
		opts.Rank = *req.Rank
	}
	opts.Rationale = rationale
	if req.Options != nil {
		opts.MetricOptions = evaluation.Options(req.Options)
	}

	h.publish(ctx, bus.TopicEvalRequested, requestID, bus.EvalRequestedPayload{
		RequestID:  requestID,
		Explainers: names,
		TokenCount: len(tokens),
	})

	start := time.Now()
	table, err := h.evaluator.EvaluateExplainers(ctx, req.Text, matrix, opts)
	latency := float64(time.Since(start).Milliseconds())
	if err != nil {
		return nil, err
	}

	h.tel.RecordEvaluation(latency, len(names))
	h.publish(ctx, bus.TopicEvalCompleted, requestID, bus.EvalCompletedPayload{
		RequestID: requestID,
		Columns:   len(table.Columns()),
		LatencyMS: latency,
	})

	return &EvaluateResponse{
		RequestID: requestID,
		Table:     table,
		LatencyMS: latency,
	}, nil
}

func (h *EvalHandler) recordFailure(ctx context.Context, requestID string, err error) {
	code := errors.CodeInternal
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		code = appErr.Code
	}
	h.tel.RecordEvalError(code)
	h.publish(ctx, bus.TopicEvalFailed, requestID, bus.EvalFailedPayload{
		RequestID: requestID,
		Error:     err.Error(),
	})
}

func (h *EvalHandler) publish(ctx context.Context, topic, requestID string, payload any) {
	event := bus.NewEvent(topic, "explain-bench", requestID, payload)
	err := h.bus.Publish(ctx, topic, event)
	h.tel.RecordBusEvent(topic, err)
	if err != nil {
		h.log.WithError(err).Warn("failed to publish event", "topic", topic)
	}
}

// GenerateRequestID generates a short unique request ID.
func GenerateRequestID() string {
	b := make([]byte, 4)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		_ = err // headers already written
	}
}
