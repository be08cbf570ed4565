// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/genegap/internal/archive"
	"github.com/pdiddy/genegap/internal/crossref"
	"github.com/pdiddy/genegap/internal/enrich"
	"github.com/pdiddy/genegap/internal/extract"
	"github.com/pdiddy/genegap/internal/literature"
	"github.com/pdiddy/genegap/internal/llm"
	"github.com/pdiddy/genegap/internal/logging"
	"github.com/pdiddy/genegap/internal/metrics"
	"github.com/pdiddy/genegap/internal/output"
	"github.com/pdiddy/genegap/internal/pipeline"
	"github.com/pdiddy/genegap/internal/proposal"
	"github.com/pdiddy/genegap/internal/species"
	"github.com/pdiddy/genegap/internal/summary"
	"github.com/pdiddy/genegap/pkg/types"
)

const defaultModel = "llama3.2"

func setDefaults() {
	viper.SetDefault("log_level", "info")
	viper.SetDefault("secrets_dir", ".secrets/")
	viper.SetDefault("output.color", output.ColorAuto)

	viper.SetDefault("literature.timeout", literature.DefaultTimeout)
	viper.SetDefault("literature.user_agent", "genegap/"+version)
	viper.SetDefault("literature.requests_per_second", literature.DefaultRequestsPerSecond)
	viper.SetDefault("literature.keyed_requests_per_second", literature.DefaultKeyedRequestsPerSecond)

	viper.SetDefault("llm.host", "http://localhost:11434")
	viper.SetDefault("llm.model", defaultModel)
	viper.SetDefault("llm.timeout", llm.DefaultTimeout)

	viper.SetDefault("extraction.batch_size", extract.DefaultBatchSize)
	viper.SetDefault("extraction.max_batch_chars", extract.DefaultMaxBatchChars)
	viper.SetDefault("extraction.max_retries", extract.DefaultMaxRetries)

	viper.SetDefault("crossref.sample_size", crossref.DefaultSampleSize)
	viper.SetDefault("crossref.cache_ttl", time.Hour)

	viper.SetDefault("pipeline.concurrency", pipeline.DefaultConcurrency)
	viper.SetDefault("pipeline.max_genes", pipeline.DefaultMaxGenes)
	viper.SetDefault("pipeline.max_summaries", pipeline.DefaultMaxSummaries)
	viper.SetDefault("pipeline.default_max_articles", pipeline.DefaultMaxArticles)

	viper.SetDefault("enrichment.timeout", enrich.DefaultTimeout)
	viper.SetDefault("enrichment.cache_size", enrich.DefaultCacheSize)
	viper.SetDefault("enrichment.cache_ttl", enrich.DefaultCacheTTL)

	viper.SetDefault("archive.enabled", true)
	viper.SetDefault("archive.dir", "data")
	viper.SetDefault("archive.max_results", 50)

	viper.SetDefault("server.host", "127.0.0.1")
	viper.SetDefault("server.port", 5000)
	viper.SetDefault("server.analyze_timeout", 10*time.Minute)
}

// loadConfig assembles the configuration from viper (file, GENEGAP_ env,
// flags) and fills NCBI credentials from .secrets/ when unset.
func loadConfig() types.Config {
	cfg := types.Config{
		LogLevel: viper.GetString("log_level"),
		Literature: types.LiteratureConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("literature.timeout"),
				UserAgent: viper.GetString("literature.user_agent"),
			},
			BaseURL:                viper.GetString("literature.base_url"),
			APIKey:                 viper.GetString("literature.api_key"),
			Email:                  viper.GetString("literature.email"),
			RequestsPerSecond:      viper.GetFloat64("literature.requests_per_second"),
			KeyedRequestsPerSecond: viper.GetFloat64("literature.keyed_requests_per_second"),
		},
		LLM: types.LLMConfig{
			Host:    viper.GetString("llm.host"),
			Model:   viper.GetString("llm.model"),
			Timeout: viper.GetDuration("llm.timeout"),
		},
		Extraction: types.ExtractionConfig{
			BatchSize:     viper.GetInt("extraction.batch_size"),
			MaxBatchChars: viper.GetInt("extraction.max_batch_chars"),
			MaxRetries:    viper.GetInt("extraction.max_retries"),
		},
		CrossRef: types.CrossRefConfig{
			SampleSize: viper.GetInt("crossref.sample_size"),
			CacheTTL:   viper.GetDuration("crossref.cache_ttl"),
		},
		Pipeline: types.PipelineConfig{
			Concurrency:        viper.GetInt("pipeline.concurrency"),
			MaxGenes:           viper.GetInt("pipeline.max_genes"),
			MaxSummaries:       viper.GetInt("pipeline.max_summaries"),
			DefaultMaxArticles: viper.GetInt("pipeline.default_max_articles"),
		},
		Enrichment: types.EnrichmentConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("enrichment.timeout"),
				UserAgent: viper.GetString("literature.user_agent"),
			},
			UniProtURL:  viper.GetString("enrichment.uniprot_url"),
			QuickGOURL:  viper.GetString("enrichment.quickgo_url"),
			EnsemblURL:  viper.GetString("enrichment.ensembl_url"),
			PlantsURL:   viper.GetString("enrichment.ensembl_plants_url"),
			ReporterURL: viper.GetString("enrichment.reporter_url"),
			CacheSize:   viper.GetInt("enrichment.cache_size"),
			CacheTTL:    viper.GetDuration("enrichment.cache_ttl"),
		},
		Archive: types.ArchiveConfig{
			Enabled:    viper.GetBool("archive.enabled"),
			Dir:        viper.GetString("archive.dir"),
			MaxResults: viper.GetInt("archive.max_results"),
		},
		Server: types.ServerConfig{
			Host:           viper.GetString("server.host"),
			Port:           viper.GetInt("server.port"),
			AnalyzeTimeout: viper.GetDuration("server.analyze_timeout"),
		},
	}
	loadedSecrets.ApplyLiterature(&cfg.Literature)
	return cfg
}

// app holds the wired components shared by the commands.
type app struct {
	cfg     types.Config
	log     *slog.Logger
	metrics *metrics.Metrics
	species *species.Table

	lit       *literature.Client
	llm       *llm.Client
	extractor *extract.Extractor
	xref      *crossref.CrossReferencer
	summaries *summary.Summarizer
	enrich    *enrich.Service
	proposals *proposal.Writer
	archive   *archive.Store
	pipeline  *pipeline.Pipeline
}

// newApp builds every component from the loaded configuration. progress
// receives pipeline stage lines; pass nil to drop them.
func newApp(progress io.Writer) (*app, error) {
	cfg := loadConfig()
	log := logging.New(os.Stderr, cfg.LogLevel)

	m, err := metrics.New()
	if err != nil {
		return nil, fmt.Errorf("registering metrics: %w", err)
	}

	a := &app{
		cfg:     cfg,
		log:     log,
		metrics: m,
		species: species.Default(),
	}
	a.lit = literature.New(cfg.Literature, log, m)
	a.llm = llm.New(cfg.LLM, log, m)
	a.extractor = extract.New(&extract.LLMBackend{Client: a.llm}, cfg.Extraction, log)
	a.xref = crossref.New(a.lit, cfg.CrossRef, log)
	a.summaries = summary.New(a.llm, log)
	a.enrich = enrich.New(cfg.Enrichment, a.species, log, m)
	a.proposals = proposal.New(a.llm, log)

	deps := pipeline.Deps{
		Literature: a.lit,
		Extractor:  a.extractor,
		Profiler:   a.xref,
		Summarizer: a.summaries,
		Species:    a.species,
		Metrics:    m,
		Log:        log,
		Progress:   progress,
	}
	if cfg.Archive.Enabled {
		store, err := archive.NewStore(cfg.Archive)
		if err != nil {
			return nil, fmt.Errorf("opening archive: %w", err)
		}
		a.archive = store
		deps.Archive = store
	}
	a.pipeline = pipeline.New(cfg.Pipeline, deps)
	return a, nil
}

// openArchive opens only the archive, for commands that need nothing else.
func openArchive() (*archive.Store, error) {
	cfg := loadConfig()
	if !cfg.Archive.Enabled {
		return nil, fmt.Errorf("archive is disabled (set archive.enabled)")
	}
	return archive.NewStore(cfg.Archive)
}

func (a *app) Close() {
	if a.archive != nil {
		a.archive.Close()
	}
}
