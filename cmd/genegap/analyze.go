// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/genegap/internal/output"
	"github.com/pdiddy/genegap/internal/report"
	"github.com/pdiddy/genegap/pkg/types"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [query]",
	Short: "Run a gap analysis for a research question",
	Long: `Analyze retrieves association studies for the query in the source
species, extracts candidate genes with the local language model, and counts
publications for each gene in every target species. Genes with few or no
target-species publications are reported as gaps, ranked by priority.

Progress is written to stderr; the result goes to stdout as a table, or as
YAML or JSON with --format. Use --pdf to also write a PDF report.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	query, _ := cmd.Flags().GetString("query")
	if len(args) == 1 {
		query = args[0]
	}
	source, _ := cmd.Flags().GetString("source")
	targets, _ := cmd.Flags().GetStringSlice("target")
	maxArticles, _ := cmd.Flags().GetInt("max-articles")
	format, _ := cmd.Flags().GetString("format")
	pdfPath, _ := cmd.Flags().GetString("pdf")

	a, err := newApp(os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := a.pipeline.Analyze(ctx, types.Query{
		Text:          query,
		SourceSpecies: source,
		TargetSpecies: targets,
		MaxArticles:   maxArticles,
		Model:         a.cfg.LLM.Model,
	})
	if err != nil {
		return err
	}

	if pdfPath != "" {
		data, err := report.Render(report.FromResult(*res))
		if err != nil {
			return fmt.Errorf("rendering PDF: %w", err)
		}
		if err := os.WriteFile(pdfPath, data, 0o644); err != nil {
			return fmt.Errorf("writing PDF: %w", err)
		}
		newPrinter(os.Stderr).Info("Wrote %s", pdfPath)
	}

	return writeResult(os.Stdout, res, format)
}

// writeResult renders an analysis as yaml, json or the default table.
func writeResult(w io.Writer, res *types.AnalysisResult, format string) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(res); err != nil {
			return err
		}
		return enc.Close()
	case "", "table":
		return printResultTable(w, res)
	}
	return fmt.Errorf("unknown format %q (use table, yaml or json)", format)
}

func printResultTable(w io.Writer, res *types.AnalysisResult) error {
	p := newPrinter(w)
	p.Heading("Analysis %s: %q in %s (%d articles, %d genes)",
		res.ID, res.Query.Text, res.Query.SourceSpecies, res.ArticlesAnalyzed, len(res.Genes))
	fmt.Fprintln(w)

	for _, sp := range res.Gaps {
		p.Heading("%s (%s): %d gaps, status %s", sp.Species, sp.CommonName, sp.GapCount, sp.Status)
		if sp.GapCount > 0 {
			tbl := output.NewTable(w, "Gene", "Level", "Source", "Target", "Priority")
			for _, g := range sp.Gaps {
				tbl.Row(truncate(g.Gene, 16), strings.TrimSuffix(string(g.Level), "_gap"),
					strconv.Itoa(g.SourcePublications), strconv.Itoa(g.TargetPublications),
					strconv.FormatFloat(g.PriorityScore, 'f', 1, 64))
			}
			if err := tbl.Render(); err != nil {
				return err
			}
		}
		fmt.Fprintln(w)
	}

	st := res.Statistics
	p.Info("%d gaps (%d complete, %d severe) across %d species; %d unique genes",
		st.TotalGaps, st.CompleteGaps, st.SevereGaps, st.SpeciesWithGaps, st.UniqueGapGenes)
	for _, warn := range res.Warnings {
		p.Warning("%s", warn)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func init() {
	analyzeCmd.Flags().String("query", "", "free-text research question")
	analyzeCmd.Flags().String("source", "Arabidopsis thaliana", "well-studied source species")
	analyzeCmd.Flags().StringSlice("target", nil, "target species (repeat or comma-separate)")
	analyzeCmd.Flags().Int("max-articles", 0, "source articles to analyze (default 20, max 100)")
	analyzeCmd.Flags().String("format", "table", "output format: table, yaml or json")
	analyzeCmd.Flags().String("pdf", "", "also write a PDF report to this path")

	rootCmd.AddCommand(analyzeCmd)
}
