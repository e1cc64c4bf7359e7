// Package main provides the explain-bench server binary.
// The server exposes the evaluation HTTP API plus health and telemetry endpoints.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/explainbench/explain-bench/internal/config"
	"github.com/explainbench/explain-bench/internal/pkg/logger"
	"github.com/explainbench/explain-bench/internal/server"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "explain-bench-server",
		Short: "Explain Bench Server - explanation evaluation HTTP API",
		Long: `Explain Bench Server scores feature-attribution explanations against a
remote text classifier and ranks explainers per metric.

The server exposes:
  - POST /v1/evaluate        score one set of explanations
  - POST /v1/evaluate/batch  score several sets concurrently
  - GET  /healthz            health check
  - GET  /metrics            Prometheus-style telemetry

Examples:
  explain-bench-server                          # Start with defaults
  explain-bench-server --port 9090              # Custom HTTP port
  explain-bench-server --model-url http://m:80  # Classifier endpoint`,
		RunE:         runServer,
		SilenceUsage: true,
	}

	rootCmd.Flags().StringP("config", "c", "", "config file path")
	rootCmd.Flags().BoolP("verbose", "v", false, "verbose logging")
	rootCmd.Flags().IntP("port", "p", 8080, "HTTP server port")
	rootCmd.Flags().String("host", "0.0.0.0", "server host")
	rootCmd.Flags().String("model-url", "", "classifier endpoint (overrides config)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("explain-bench-server %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")
	port, _ := cmd.Flags().GetInt("port")
	host, _ := cmd.Flags().GetString("host")
	modelURL, _ := cmd.Flags().GetString("model-url")

	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cmd.Flags().Changed("port") {
		appCfg.Port = port
	}
	if cmd.Flags().Changed("host") {
		appCfg.Host = host
	}
	if modelURL != "" {
		appCfg.Model.URL = modelURL
	}

	logLevel := appCfg.Log.Level
	if verbose {
		logLevel = "debug"
	}
	log := logger.New(logLevel, appCfg.Log.Format)

	log.Info("Starting Explain Bench Server",
		"version", version,
		"host", appCfg.Host,
		"port", appCfg.Port,
	)

	srvCfg := server.DefaultConfig()
	srvCfg.Host = appCfg.Host
	srvCfg.Port = appCfg.Port
	srvCfg.Version = version

	srv, err := server.New(srvCfg, appCfg, log)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigCh:
		log.Info("Shutdown signal received", "signal", sig.String())
	}

	if err := srv.Stop(context.Background()); err != nil {
		log.Error("Shutdown error", "error", err)
	}

	log.Info("Server stopped")
	return nil
}
