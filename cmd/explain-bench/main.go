// Package main provides the explain-bench command line interface.
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
		Use:   "explain-bench",
		Short: "Explain Bench - explanation evaluation and ranking",
		Long: `Explain Bench scores feature-attribution explanations of a text
classifier with faithfulness and plausibility metrics and ranks the
explainers per metric.

Run 'explain-bench serve' to start the evaluation server.
Run 'explain-bench evaluate' to score a saved explanation document.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")

	rootCmd.AddCommand(
		serveCmd(),
		evaluateCmd(),
		healthCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the evaluation server",
		Long: `Start the evaluation HTTP API in this process. The server needs a
classifier endpoint to score masked inputs; point it at one with
--model-url or XB_MODEL_URL.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
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

			return srv.Stop(context.Background())
		},
	}

	cmd.Flags().IntP("port", "p", 8080, "HTTP server port")
	cmd.Flags().String("host", "0.0.0.0", "HTTP server host")
	cmd.Flags().String("model-url", "", "classifier endpoint (overrides config)")

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("explain-bench %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	}
}
