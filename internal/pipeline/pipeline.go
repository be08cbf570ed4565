// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs a gap analysis end to end: source literature
// retrieval, gene extraction, per-species cross-referencing with bounded
// parallelism, gap scoring, summaries and the optional archive write.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/genegap/internal/extract"
	"github.com/pdiddy/genegap/internal/gap"
	"github.com/pdiddy/genegap/internal/literature"
	"github.com/pdiddy/genegap/internal/logging"
	"github.com/pdiddy/genegap/internal/metrics"
	"github.com/pdiddy/genegap/internal/species"
	"github.com/pdiddy/genegap/pkg/types"
)

const (
	DefaultConcurrency  = 4
	DefaultMaxGenes     = 15
	DefaultMaxSummaries = 10
	DefaultMaxArticles  = 20
	MaxArticlesLimit    = 100
)

var (
	// ErrValidation wraps every rejected query.
	ErrValidation = errors.New("invalid query")

	// ErrSourceRetrieval is returned when the source-species search fails.
	// It is the only upstream failure that aborts a run.
	ErrSourceRetrieval = errors.New("source literature retrieval failed")
)

// Run outcome labels recorded in metrics.
const (
	outcomeOK        = "ok"
	outcomeInvalid   = "invalid"
	outcomeFailed    = "failed"
	outcomeCancelled = "cancelled"
)

// Literature retrieves source articles and hit counts.
type Literature interface {
	Search(ctx context.Context, text, species string, max int) literature.Result
	Count(ctx context.Context, term string) (int, error)
}

// Extractor turns articles into ranked gene candidates.
type Extractor interface {
	Extract(ctx context.Context, articles []types.Article, model string) (extract.Output, error)
}

// Profiler returns the publication profile of one (gene, species) pair.
type Profiler interface {
	Profile(ctx context.Context, gene, species string) types.PublicationProfile
}

// Summarizer writes short summaries for the best-scoring gap genes.
type Summarizer interface {
	Top(ctx context.Context, genes []types.GeneCandidate, articles []types.Article, best map[string]float64, limit int, model string) (map[string]string, error)
}

// Archive persists completed runs.
type Archive interface {
	Save(ctx context.Context, r *types.AnalysisResult) error
}

// Deps are the components a Pipeline drives. Archive, Metrics, Log and
// Progress are optional.
type Deps struct {
	Literature Literature
	Extractor  Extractor
	Profiler   Profiler
	Summarizer Summarizer
	Species    *species.Table
	Archive    Archive
	Metrics    *metrics.Metrics
	Log        *slog.Logger

	// Progress receives one human-readable line per stage.
	Progress io.Writer
}

// Pipeline orchestrates analyses. It holds no per-run state and is safe
// for concurrent use.
type Pipeline struct {
	lit      Literature
	ext      Extractor
	prof     Profiler
	sum      Summarizer
	species  *species.Table
	archive  Archive
	metrics  *metrics.Metrics
	log      *slog.Logger
	progress io.Writer

	concurrency  int
	maxGenes     int
	maxSummaries int
	maxArticles  int

	now   func() time.Time
	newID func() string
}

// New builds a Pipeline. Zero config values take the package defaults.
func New(cfg types.PipelineConfig, d Deps) *Pipeline {
	p := &Pipeline{
		lit:          d.Literature,
		ext:          d.Extractor,
		prof:         d.Profiler,
		sum:          d.Summarizer,
		species:      d.Species,
		archive:      d.Archive,
		metrics:      d.Metrics,
		log:          d.Log,
		progress:     d.Progress,
		concurrency:  orDefault(cfg.Concurrency, DefaultConcurrency),
		maxGenes:     orDefault(cfg.MaxGenes, DefaultMaxGenes),
		maxSummaries: orDefault(cfg.MaxSummaries, DefaultMaxSummaries),
		maxArticles:  min(orDefault(cfg.DefaultMaxArticles, DefaultMaxArticles), MaxArticlesLimit),
		now:          time.Now,
		newID:        uuid.NewString,
	}
	if p.species == nil {
		p.species = species.Default()
	}
	if p.log == nil {
		p.log = logging.Discard()
	}
	p.log = p.log.With("component", "pipeline")
	if p.progress == nil {
		p.progress = io.Discard
	}
	return p
}

// Species returns the table used for validation.
func (p *Pipeline) Species() *species.Table { return p.species }

// Validate checks q and returns the normalized copy a run would use:
// trimmed text, canonical species names and a clamped article limit.
func (p *Pipeline) Validate(q types.Query) (types.Query, error) {
	q = q.Clone()

	q.Text = strings.TrimSpace(q.Text)
	if q.Text == "" {
		return q, fmt.Errorf("%w: query text is empty", ErrValidation)
	}

	src, ok := p.species.Lookup(q.SourceSpecies)
	if !ok {
		return q, fmt.Errorf("%w: unknown source species %q", ErrValidation, q.SourceSpecies)
	}
	q.SourceSpecies = src.ScientificName

	if len(q.TargetSpecies) == 0 {
		return q, fmt.Errorf("%w: no target species", ErrValidation)
	}
	seen := make(map[string]bool, len(q.TargetSpecies))
	for i, name := range q.TargetSpecies {
		sp, ok := p.species.Lookup(name)
		if !ok {
			return q, fmt.Errorf("%w: unknown target species %q", ErrValidation, name)
		}
		if sp.ScientificName == src.ScientificName {
			return q, fmt.Errorf("%w: target species %q is the source species", ErrValidation, name)
		}
		if seen[sp.ScientificName] {
			return q, fmt.Errorf("%w: duplicate target species %q", ErrValidation, name)
		}
		seen[sp.ScientificName] = true
		q.TargetSpecies[i] = sp.ScientificName
	}

	switch {
	case q.MaxArticles <= 0:
		q.MaxArticles = p.maxArticles
	case q.MaxArticles > MaxArticlesLimit:
		q.MaxArticles = MaxArticlesLimit
	}
	return q, nil
}

// Analyze runs one gap analysis. Only validation, source retrieval failure
// and cancellation return an error; every other upstream failure is
// reported through species status, statistics and warnings.
func (p *Pipeline) Analyze(ctx context.Context, query types.Query) (*types.AnalysisResult, error) {
	start := p.now()

	q, err := p.Validate(query)
	if err != nil {
		p.metrics.ObserveRun(outcomeInvalid, 0)
		return nil, err
	}

	runID := p.newID()
	ctx = logging.WithRunID(ctx, runID)
	log := p.log.With("run_id", runID)
	log.InfoContext(ctx, "analysis started",
		"query", q.Text, "source", q.SourceSpecies, "targets", q.TargetSpecies, "max_articles", q.MaxArticles)

	res, err := p.run(ctx, log, runID, q)
	elapsed := p.now().Sub(start)
	switch {
	case err == nil:
		p.metrics.ObserveRun(outcomeOK, elapsed)
	case ctx.Err() != nil:
		p.metrics.ObserveRun(outcomeCancelled, elapsed)
		log.WarnContext(ctx, "analysis cancelled", "error", err)
		return nil, err
	default:
		p.metrics.ObserveRun(outcomeFailed, elapsed)
		log.ErrorContext(ctx, "analysis failed", "error", err)
		return nil, err
	}

	log.InfoContext(ctx, "analysis finished",
		"genes", len(res.Genes), "total_gaps", res.Statistics.TotalGaps,
		"species_failed", res.Statistics.SpeciesFailed, "elapsed", elapsed)

	if p.archive != nil {
		if err := p.archive.Save(ctx, res); err != nil {
			log.WarnContext(ctx, "archiving analysis failed", "error", err)
			res.Warnings = append(res.Warnings, "analysis could not be archived")
		}
	}
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, log *slog.Logger, runID string, q types.Query) (*types.AnalysisResult, error) {
	result := &types.AnalysisResult{
		ID:        runID,
		Query:     q,
		Genes:     []types.GeneCandidate{},
		Summaries: map[string]string{},
	}

	// Stage 1: source literature.
	found := p.lit.Search(ctx, q.Text, q.SourceSpecies, q.MaxArticles)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if found.Status == literature.StatusFailed {
		return nil, fmt.Errorf("%w: %v", ErrSourceRetrieval, found.Err)
	}
	articles := found.Articles
	result.ArticlesAnalyzed = len(articles)
	fmt.Fprintf(p.progress, "retrieved %d of %d articles for %s\n", len(articles), found.Total, q.SourceSpecies)

	if len(articles) == 0 {
		result.Statistics.NoGenesExtracted = true
		result.Warnings = append(result.Warnings, "no source articles found for the query")
		result.Gaps = p.emptySummaries(q.TargetSpecies)
		result.CreatedAt = p.now()
		return result, nil
	}

	// Stage 2: extraction.
	out, err := p.ext.Extract(ctx, articles, q.Model)
	if err != nil {
		return nil, err
	}
	result.Genes = out.Genes
	if result.Genes == nil {
		result.Genes = []types.GeneCandidate{}
	}
	stats := types.Statistics{
		GenesExtracted:          len(out.Genes),
		ExtractionBatches:       out.Batches,
		ExtractionBatchesFailed: out.FailedBatches,
		NoGenesExtracted:        len(out.Genes) == 0,
	}
	fmt.Fprintf(p.progress, "extracted %d genes from %d batches (%d failed)\n",
		len(out.Genes), out.Batches, out.FailedBatches)
	if out.Batches > 0 && out.FailedBatches == out.Batches {
		result.Warnings = append(result.Warnings, "gene extraction failed for every batch")
	}

	// Stage 3: cross-reference the top genes.
	checked := out.Genes[:min(len(out.Genes), p.maxGenes)]
	xr, err := p.crossReference(ctx, checked, q)
	if err != nil {
		return nil, err
	}
	stats.GenesChecked = len(checked)

	// Stage 4: classify and aggregate per species, in query order.
	summaries := make([]types.SpeciesGapSummary, len(q.TargetSpecies))
	var sourceFailed int
	for i := range checked {
		if !xr.source[i].Available() {
			sourceFailed++
		}
	}
	for j, sp := range q.TargetSpecies {
		var (
			records           []types.GapRecord
			failed, attempted int
		)
		for i, g := range checked {
			src := xr.source[i]
			if !src.Available() || src.Total <= 0 {
				continue
			}
			attempted++
			tgt := xr.target[i][j]
			if !tgt.Available() {
				failed++
				continue
			}
			if rec, ok := gap.Record(g, sp, src.Total, tgt.Total); ok {
				records = append(records, rec)
			}
		}
		summaries[j] = gap.Summarize(sp, p.species.CommonName(sp), records, failed, attempted)
		switch summaries[j].Status {
		case types.SpeciesFailed:
			p.metrics.IncSpeciesFailure()
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("publication lookups failed for %s (%d of %d)", sp, failed, attempted))
		case types.SpeciesPartial:
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("some publication lookups failed for %s (%d of %d)", sp, failed, attempted))
		}
		fmt.Fprintf(p.progress, "%s: %d gaps (%s)\n", sp, summaries[j].GapCount, summaries[j].Status)
	}
	for i := range checked {
		if src := xr.source[i]; !src.Available() || src.Total <= 0 {
			stats.GenesSkipped++
		}
	}
	if sourceFailed > 0 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("source publication lookups failed for %d genes", sourceFailed))
	}
	result.Gaps = summaries

	gapStats := gap.Stats(summaries)
	stats.TotalGaps = gapStats.TotalGaps
	stats.CompleteGaps = gapStats.CompleteGaps
	stats.SevereGaps = gapStats.SevereGaps
	stats.SpeciesWithGaps = gapStats.SpeciesWithGaps
	stats.SpeciesFailed = gapStats.SpeciesFailed
	stats.UniqueGapGenes = gapStats.UniqueGapGenes

	// Stage 5: summaries for the best gaps, after all lookups.
	best := gap.BestScores(summaries)
	if len(best) > 0 && p.sum != nil {
		texts, err := p.sum.Top(ctx, out.Genes, articles, best, p.maxSummaries, q.Model)
		if err != nil {
			return nil, err
		}
		if texts != nil {
			result.Summaries = texts
		}
		fmt.Fprintf(p.progress, "summarized %d genes\n", len(result.Summaries))
	}
	stats.SummariesGenerated = len(result.Summaries)

	result.Statistics = stats
	result.CreatedAt = p.now()
	log.DebugContext(ctx, "analysis assembled", "checked", stats.GenesChecked, "skipped", stats.GenesSkipped)
	return result, nil
}

// lookups holds the profiles of one run: source[i] for checked gene i and
// target[i][j] for gene i in target species j.
type lookups struct {
	source []types.PublicationProfile
	target [][]types.PublicationProfile
}

// crossReference profiles every checked gene in the source and each target
// species with at most p.concurrency lookups in flight. Lookups record
// upstream failure in their status, so only cancellation stops the group.
func (p *Pipeline) crossReference(ctx context.Context, genes []types.GeneCandidate, q types.Query) (lookups, error) {
	xr := lookups{
		source: make([]types.PublicationProfile, len(genes)),
		target: make([][]types.PublicationProfile, len(genes)),
	}
	for i := range genes {
		xr.target[i] = make([]types.PublicationProfile, len(q.TargetSpecies))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	submit := func(gene, sp string, dst *types.PublicationProfile) {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			*dst = p.prof.Profile(gctx, gene, sp)
			return gctx.Err()
		})
	}

	for i, gene := range genes {
		if ctx.Err() != nil {
			break
		}
		submit(gene.Name, q.SourceSpecies, &xr.source[i])
		for j, sp := range q.TargetSpecies {
			submit(gene.Name, sp, &xr.target[i][j])
		}
	}

	if err := g.Wait(); err != nil {
		return lookups{}, err
	}
	if err := ctx.Err(); err != nil {
		return lookups{}, err
	}
	return xr, nil
}

func (p *Pipeline) emptySummaries(targets []string) []types.SpeciesGapSummary {
	out := make([]types.SpeciesGapSummary, len(targets))
	for i, sp := range targets {
		out[i] = gap.Summarize(sp, p.species.CommonName(sp), nil, 0, 0)
	}
	return out
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
