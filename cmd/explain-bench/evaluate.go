package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/explainbench/explain-bench/internal/client"
	"github.com/explainbench/explain-bench/internal/config"
	"github.com/explainbench/explain-bench/internal/evaluation"
	"github.com/explainbench/explain-bench/internal/explain"
	"github.com/explainbench/explain-bench/internal/model"
	"github.com/explainbench/explain-bench/internal/pkg/errors"
	"github.com/explainbench/explain-bench/internal/pkg/logger"
	"github.com/explainbench/explain-bench/internal/render"
)

func evaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate [file]",
		Short: "Score an explanation document",
		Long: `Read a JSON explanation document and score it, either against a running
evaluation server or locally against the configured classifier endpoint
(--local).

The document carries the text, the named attributions and an optional
human rationale:

  {
    "text": "good movie",
    "explanations": [
      {"name": "lime", "scores": [0.9, 0.1]},
      {"name": "shap", "scores": [0.4, 0.6]}
    ],
    "rationale": [1, 0]
  }

Reads from stdin when no file is given or the file is "-". The scored
table prints as colored text by default; use --json for the raw response.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			local, _ := cmd.Flags().GetBool("local")
			timeout, _ := cmd.Flags().GetDuration("timeout")
			target, _ := cmd.Flags().GetInt("target")
			noRank, _ := cmd.Flags().GetBool("no-rank")
			asJSON, _ := cmd.Flags().GetBool("json")
			noColor, _ := cmd.Flags().GetBool("no-color")
			precision, _ := cmd.Flags().GetInt("precision")

			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			req, err := readDocument(path)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("target") {
				req.Target = &target
			}
			if noRank {
				rank := false
				req.Rank = &rank
			}

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			var resp *client.EvaluateResponse
			if local {
				resp, err = evaluateLocal(ctx, cmd, req)
			} else {
				resp, err = evaluateRemote(ctx, cmd, req)
			}
			if err != nil {
				return fmt.Errorf("evaluation failed: %w", err)
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}

			// Only metric metadata is needed for styling, so no scorer is wired.
			styles := render.StylesFor(evaluation.DefaultRegistry(nil, evaluation.DefaultRegistryConfig()))
			r := render.New(os.Stdout, styles,
				render.WithColor(!noColor),
				render.WithPrecision(precision),
			)
			if err := r.Render(resp.Table); err != nil {
				return err
			}

			fmt.Printf("\nrequest %s completed in %.1fms\n", resp.RequestID, resp.LatencyMS)
			return nil
		},
	}

	cmd.Flags().String("server", "http://localhost:8080", "evaluation server URL")
	cmd.Flags().String("api-key", "", "API key for the server")
	cmd.Flags().Bool("local", false, "evaluate in-process instead of via a server")
	cmd.Flags().String("model-url", "", "classifier endpoint for --local (overrides config)")
	cmd.Flags().Duration("timeout", 2*time.Minute, "request timeout")
	cmd.Flags().Int("target", 0, "target class index (overrides document)")
	cmd.Flags().Bool("no-rank", false, "skip the per-metric rank columns")
	cmd.Flags().Bool("json", false, "print the raw JSON response")
	cmd.Flags().Bool("no-color", false, "disable colored output")
	cmd.Flags().Int("precision", 4, "decimal places for scores")

	return cmd
}

// evaluateRemote submits the document to an evaluation server.
func evaluateRemote(ctx context.Context, cmd *cobra.Command, req *client.EvaluateRequest) (*client.EvaluateResponse, error) {
	serverURL, _ := cmd.Flags().GetString("server")
	apiKey, _ := cmd.Flags().GetString("api-key")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	c := client.New(client.Config{
		BaseURL: serverURL,
		APIKey:  apiKey,
		Timeout: timeout,
	})
	return c.Evaluate(ctx, *req)
}

// evaluateLocal builds an evaluator in-process and scores the document
// directly against the configured classifier endpoint.
func evaluateLocal(ctx context.Context, cmd *cobra.Command, req *client.EvaluateRequest) (*client.EvaluateResponse, error) {
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")
	modelURL, _ := cmd.Flags().GetString("model-url")

	appCfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if modelURL != "" {
		appCfg.Model.URL = modelURL
	}
	if appCfg.Model.URL == "" {
		return nil, errors.ConfigurationError("local evaluation needs a classifier endpoint (--model-url or XB_MODEL_URL)")
	}

	logLevel := appCfg.Log.Level
	if verbose {
		logLevel = "debug"
	}
	log := logger.New(logLevel, appCfg.Log.Format)

	var tokenizer model.Tokenizer = model.Whitespace{}
	if appCfg.Model.VocabPath != "" {
		tokenizer, err = model.LoadWordPiece(appCfg.Model.VocabPath, model.DefaultWordPieceConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to load vocab: %w", err)
		}
	}

	remoteCfg := model.DefaultRemoteConfig()
	remoteCfg.BaseURL = appCfg.Model.URL
	remoteCfg.APIKey = appCfg.Model.APIKey
	if appCfg.Model.TimeoutMS > 0 {
		remoteCfg.Timeout = time.Duration(appCfg.Model.TimeoutMS) * time.Millisecond
	}
	scorer := model.NewCachedScorer(
		model.NewRemoteClassifier(remoteCfg),
		model.NewMemoryCache(appCfg.Cache.Size),
	)

	ev, err := evaluation.New(scorer, tokenizer, evaluation.Config{
		Registry: evaluation.RegistryConfig{
			MaskToken:       appCfg.Model.MaskToken,
			AOPCStepPercent: appCfg.Eval.AOPCStepPercent,
			UseCorrelation:  appCfg.Eval.UseCorrelation,
			UsePlausibility: appCfg.Eval.UsePlausibility,
		},
		Log: log,
	})
	if err != nil {
		return nil, err
	}

	tokens := req.Tokens
	if len(tokens) == 0 {
		tokens = tokenizer.Tokenize(req.Text)
	}
	names := make([]string, len(req.Explanations))
	scores := make([][]float64, len(req.Explanations))
	for i, e := range req.Explanations {
		names[i] = e.Name
		scores[i] = e.Scores
	}
	matrix, err := explain.NewMatrix(names, tokens, scores)
	if err != nil {
		return nil, err
	}

	rationale := req.Rationale
	if req.WordRationale != nil {
		rationale, err = ev.AlignRationale(strings.Fields(req.Text), req.WordRationale)
		if err != nil {
			return nil, err
		}
	}

	opts := evaluation.DefaultEvaluateOptions()
	opts.Target = appCfg.Eval.DefaultTarget
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

	start := time.Now()
	table, err := ev.EvaluateExplainers(ctx, req.Text, matrix, opts)
	if err != nil {
		return nil, err
	}

	return &client.EvaluateResponse{
		RequestID: "local",
		Table:     table,
		LatencyMS: float64(time.Since(start).Milliseconds()),
	}, nil
}

func healthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, _ []string) error {
			serverURL, _ := cmd.Flags().GetString("server")
			apiKey, _ := cmd.Flags().GetString("api-key")

			c := client.New(client.Config{BaseURL: serverURL, APIKey: apiKey})

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			resp, err := c.Health(ctx)
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}

			fmt.Printf("status:  %s\n", resp.Status)
			if resp.Version != "" {
				fmt.Printf("version: %s\n", resp.Version)
			}
			if resp.Uptime != "" {
				fmt.Printf("uptime:  %s\n", resp.Uptime)
			}
			return nil
		},
	}

	cmd.Flags().String("server", "http://localhost:8080", "evaluation server URL")
	cmd.Flags().String("api-key", "", "API key for the server")

	return cmd
}

// readDocument loads an evaluation request from a file or stdin.
func readDocument(path string) (*client.EvaluateRequest, error) {
	var data []byte
	var err error

	if path == "" || path == "-" {
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
	} else {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	var req client.EvaluateRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("invalid explanation document: %w", err)
	}
	if req.Text == "" {
		return nil, fmt.Errorf("explanation document has no text")
	}
	if len(req.Explanations) == 0 {
		return nil, fmt.Errorf("explanation document has no explanations")
	}

	return &req, nil
}
