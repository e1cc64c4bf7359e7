// Package server provides the HTTP server that wires all services together.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/explainbench/explain-bench/internal/bus"
	"github.com/explainbench/explain-bench/internal/config"
	"github.com/explainbench/explain-bench/internal/evaluation"
	"github.com/explainbench/explain-bench/internal/model"
	"github.com/explainbench/explain-bench/internal/pkg/errors"
	"github.com/explainbench/explain-bench/internal/pkg/logger"
	"github.com/explainbench/explain-bench/internal/pkg/middleware"
	"github.com/explainbench/explain-bench/internal/telemetry"
)

// Server is the main HTTP server that wires all services together.
type Server struct {
	cfg    Config
	appCfg *config.Config
	log    *logger.Logger

	httpServer *http.Server

	bus       bus.Bus
	tel       *telemetry.Telemetry
	cache     model.PredictionCache
	evaluator *evaluation.Evaluator

	evalHandler *EvalHandler

	mu      sync.RWMutex
	started bool
	startAt time.Time
}

// Config configures the server.
type Config struct {
	// Host is the address to bind to.
	Host string

	// Port is the HTTP port.
	Port int

	// Version is the application version.
	Version string

	// ReadTimeout is the HTTP read timeout.
	ReadTimeout time.Duration

	// WriteTimeout is the HTTP write timeout.
	WriteTimeout time.Duration

	// ShutdownTimeout is the graceful shutdown timeout.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns sensible server defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		Version:         "dev",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    120 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// New creates a server with all dependencies wired from the application
// config: telemetry, event bus, tokenizer, classifier oracle with its
// prediction cache, and the evaluator itself.
func New(cfg Config, appCfg *config.Config, log *logger.Logger) (*Server, error) {
	if cfg.Port == 0 {
		cfg = DefaultConfig()
	}
	if log == nil {
		log = logger.New(appCfg.Log.Level, appCfg.Log.Format)
	}

	s := &Server{
		cfg:    cfg,
		appCfg: appCfg,
		log:    log,
	}

	historyURL := ""
	if appCfg.Telemetry.Enabled {
		historyURL = appCfg.Telemetry.HistoryURL
	}
	s.tel = telemetry.NewWithConfig(historyURL, log)

	eventBus, err := bus.NewBus(appCfg.Bus, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create event bus: %w", err)
	}
	s.bus = eventBus

	tokenizer, err := newTokenizer(appCfg.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokenizer: %w", err)
	}

	scorer, err := s.newScorer(appCfg)
	if err != nil {
		return nil, err
	}

	evaluator, err := evaluation.New(scorer, tokenizer, evaluation.Config{
		Registry: evaluation.RegistryConfig{
			MaskToken:       appCfg.Model.MaskToken,
			AOPCStepPercent: appCfg.Eval.AOPCStepPercent,
			UseCorrelation:  appCfg.Eval.UseCorrelation,
			UsePlausibility: appCfg.Eval.UsePlausibility,
		},
		Log: log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create evaluator: %w", err)
	}
	s.evaluator = evaluator

	s.evalHandler = NewEvalHandler(evaluator, s.bus, s.tel, appCfg, log)

	return s, nil
}

// newTokenizer builds the alignment tokenizer: WordPiece when a vocabulary
// is configured, whitespace otherwise.
func newTokenizer(cfg config.ModelConfig) (model.Tokenizer, error) {
	if cfg.VocabPath == "" {
		return model.Whitespace{}, nil
	}
	return model.LoadWordPiece(cfg.VocabPath, model.DefaultWordPieceConfig())
}

// newScorer builds the classifier oracle: remote client, telemetry
// instrumentation, then the prediction cache in front.
func (s *Server) newScorer(appCfg *config.Config) (model.Scorer, error) {
	if appCfg.Model.URL == "" {
		return nil, errors.ConfigurationError("model url is required in server mode")
	}

	remoteCfg := model.DefaultRemoteConfig()
	remoteCfg.BaseURL = appCfg.Model.URL
	remoteCfg.APIKey = appCfg.Model.APIKey
	if appCfg.Model.TimeoutMS > 0 {
		remoteCfg.Timeout = time.Duration(appCfg.Model.TimeoutMS) * time.Millisecond
	}

	var scorer model.Scorer = model.NewRemoteClassifier(remoteCfg)
	scorer = &instrumentedScorer{next: scorer, tel: s.tel}

	switch appCfg.Cache.Type {
	case "", "memory":
		cache := model.NewMemoryCache(appCfg.Cache.Size)
		cache.SetMetrics(s.tel)
		s.cache = cache
		scorer = model.NewCachedScorer(scorer, cache)
	case "redis":
		cache, err := model.NewRedisCache(appCfg.Cache.RedisURL, time.Duration(appCfg.Cache.TTL)*time.Second)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis cache: %w", err)
		}
		cache.SetMetrics(s.tel)
		s.cache = cache
		scorer = model.NewCachedScorer(scorer, cache)
	case "none":
		// No prediction cache; every metric call hits the model.
	default:
		return nil, errors.ConfigurationError(fmt.Sprintf("unknown cache type: %s", appCfg.Cache.Type))
	}

	return scorer, nil
}

// instrumentedScorer records call latency and errors around a Scorer.
type instrumentedScorer struct {
	next model.Scorer
	tel  *telemetry.Telemetry
}

func (s *instrumentedScorer) Predict(ctx context.Context, tokens []string, target int) (float64, error) {
	start := time.Now()
	prob, err := s.next.Predict(ctx, tokens, target)
	s.tel.RecordModelCall(float64(time.Since(start).Milliseconds()), err)
	return prob, err
}

// Start starts the HTTP server. It blocks until the listener fails or the
// server is stopped.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("server already started")
	}
	s.started = true
	s.startAt = time.Now()
	s.mu.Unlock()

	handler := s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	s.log.Info("Starting HTTP server", "addr", addr)
	return s.httpServer.ListenAndServe()
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.log.Error("HTTP shutdown error", "error", err)
		}
	}

	if closer, ok := s.cache.(interface{ Close() error }); ok {
		closer.Close()
	}
	if s.bus != nil {
		s.bus.Close()
	}
	if s.tel != nil {
		s.tel.Close()
	}

	s.started = false
	s.log.Info("Server stopped")

	return nil
}

// Health reports whether the server is running.
func (s *Server) Health() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// setupRoutes configures all HTTP routes and the middleware chain.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	s.evalHandler.RegisterRoutes(mux)
	mux.HandleFunc("/healthz", s.handleHealth)

	metricsPath := s.appCfg.Telemetry.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	mux.Handle(metricsPath, s.tel.Handler())
	mux.Handle("/v1/telemetry/history", s.tel.HistoryHandler())

	var handler http.Handler = mux
	handler = corsMiddleware(handler)
	handler = middleware.APIKeyAuth(s.appCfg.Security.APIKey)(handler)
	if s.appCfg.Security.RateLimit > 0 {
		limiterCfg := middleware.DefaultRateLimiterConfig()
		limiterCfg.RequestsPerSecond = float64(s.appCfg.Security.RateLimit)
		limiterCfg.Burst = s.appCfg.Security.RateLimit * 2
		handler = middleware.NewRateLimiter(limiterCfg).Middleware(handler)
	}
	handler = s.httpTelemetry(handler)
	handler = s.logRequests(handler)

	return handler
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	uptime := time.Since(s.startAt).Seconds()
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.cfg.Version,
		"uptime":  uptime,
	})
}

// statusWriter captures the response status for logging and metrics.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		s.log.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration", time.Since(start),
		)
	})
}

func (s *Server) httpTelemetry(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		s.tel.HTTPRequestsInFlight.Inc()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		s.tel.HTTPRequestsInFlight.Dec()
		s.tel.HTTPRequests.WithLabels(r.Method, r.URL.Path, fmt.Sprintf("%d", wrapped.status)).Inc()
		s.tel.HTTPDuration.WithLabels(r.Method, r.URL.Path).Observe(float64(time.Since(start).Milliseconds()))
	})
}

// corsMiddleware adds CORS headers.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
