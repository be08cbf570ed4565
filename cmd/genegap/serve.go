// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/genegap/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the JSON API server",
	Long: `Serve starts the HTTP API under /api used by the web frontend, plus
Prometheus metrics on /metrics. It runs until interrupted.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	deps := server.Deps{
		Analyzer:     a.pipeline,
		Searcher:     a.lit,
		Profiler:     a.xref,
		Extractor:    a.extractor,
		Summarizer:   a.summaries,
		Enricher:     a.enrich,
		Proposer:     a.proposals,
		Models:       a.llm,
		Species:      a.species,
		Metrics:      a.metrics,
		Log:          a.log,
		DefaultModel: a.llm.DefaultModel(),
		Version:      version,
	}
	if a.archive != nil {
		deps.Archive = a.archive
	}
	srv := server.New(a.cfg.Server, deps)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx)
}

func init() {
	serveCmd.Flags().String("host", "", "listen address (default 127.0.0.1)")
	serveCmd.Flags().Int("port", 0, "listen port (default 5000)")
	viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))

	rootCmd.AddCommand(serveCmd)
}
