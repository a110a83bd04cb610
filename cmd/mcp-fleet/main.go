// Package main provides the mcp-fleet command-line driver.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/txn2/mcp-fleet/internal/version"
)

var (
	registryPath string
	logLevel     string
	metricsAddr  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mcp-fleet",
		Short: "Manage a fleet of MCP worker servers",
		Long: `mcp-fleet registers, connects to, and invokes tools on external MCP
worker processes speaking JSON-RPC over stdio.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			setupLogging(logLevel)
			if metricsAddr != "" {
				serveMetrics(metricsAddr)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&registryPath, "registry", "servers.yaml",
		"Path to the server registry file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "",
		"Address to serve Prometheus metrics on (disabled when empty)")

	rootCmd.AddCommand(
		registerCmd(),
		removeCmd(),
		listCmd(),
		connectCmd(),
		statusCmd(),
		toolsCmd(),
		callCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			slog.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	return ctx
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version and exit",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Printf("mcp-fleet version %s\n", version.Version)
		},
	}
}
