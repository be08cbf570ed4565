// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package enrich looks up on-demand context for a gap gene: Gene Ontology
// annotations (UniProt, QuickGO), orthologs (Ensembl Plants, Ensembl) and
// active research funding (NIH RePORTER).
//
// Every lookup is fail-soft. Upstream failures and empty answers come back
// as results with Success=false and an Error message, never as Go errors.
// Successful results are cached in expiring LRU caches.
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/pdiddy/genegap/internal/httputil"
	"github.com/pdiddy/genegap/internal/logging"
	"github.com/pdiddy/genegap/internal/metrics"
	"github.com/pdiddy/genegap/internal/species"
	"github.com/pdiddy/genegap/pkg/types"
)

// Upstream endpoints. Tests may replace these.
var (
	uniprotBase  = "https://rest.uniprot.org/uniprotkb"
	quickgoBase  = "https://www.ebi.ac.uk/QuickGO/services"
	ensemblBase  = "https://rest.ensembl.org"
	plantsBase   = "https://rest.ensembl.plants.org"
	reporterBase = "https://api.reporter.nih.gov/v2/projects/search"
)

const (
	DefaultTimeout   = 15 * time.Second
	DefaultCacheSize = 100
	DefaultCacheTTL  = time.Hour

	// upstreamRetries is the retry budget for throttled enrichment calls.
	upstreamRetries = 1
)

// statusError reports a non-200 upstream response.
type statusError struct {
	Service string
	Code    int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s returned HTTP %d", e.Service, e.Code)
}

// Service performs enrichment lookups. It is safe for concurrent use.
type Service struct {
	HTTP *http.Client

	uniprotURL  string
	quickgoURL  string
	ensemblURL  string
	plantsURL   string
	reporterURL string
	userAgent   string
	timeout     time.Duration

	species    *species.Table
	goCache    *expirable.LRU[string, types.GOTerms]
	orthoCache *expirable.LRU[string, types.OrthologResult]
	fundCache  *expirable.LRU[string, types.FundingResult]

	log     *slog.Logger
	metrics *metrics.Metrics
}

// New builds a Service from cfg. Empty URLs take the public endpoints.
// table resolves taxonomy ids and Ensembl names; nil uses the built-in table.
func New(cfg types.EnrichmentConfig, table *species.Table, log *slog.Logger, m *metrics.Metrics) *Service {
	size := cfg.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = "genegap"
	}
	if table == nil {
		table = species.Default()
	}
	if log == nil {
		log = logging.Discard()
	}

	return &Service{
		HTTP:        &http.Client{},
		uniprotURL:  orDefault(cfg.UniProtURL, uniprotBase),
		quickgoURL:  orDefault(cfg.QuickGOURL, quickgoBase),
		ensemblURL:  orDefault(cfg.EnsemblURL, ensemblBase),
		plantsURL:   orDefault(cfg.PlantsURL, plantsBase),
		reporterURL: orDefault(cfg.ReporterURL, reporterBase),
		userAgent:   ua,
		timeout:     timeout,
		species:     table,
		goCache:     expirable.NewLRU[string, types.GOTerms](size, nil, ttl),
		orthoCache:  expirable.NewLRU[string, types.OrthologResult](size, nil, ttl),
		fundCache:   expirable.NewLRU[string, types.FundingResult](size, nil, ttl),
		log:         log.With("component", "enrich"),
		metrics:     m,
	}
}

func orDefault(v, def string) string {
	if v == "" {
		v = def
	}
	return strings.TrimRight(v, "/")
}

func cacheKey(parts ...string) string {
	for i, p := range parts {
		parts[i] = types.NormalizeGeneName(p)
	}
	return strings.Join(parts, "|")
}

// getJSON performs a GET and decodes a 200 JSON body into v.
func (s *Service) getJSON(ctx context.Context, service, operation, rawURL string, v any) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	return s.do(ctx, service, operation, req, v)
}

// postJSON sends body as JSON and decodes a 200 JSON answer into v.
func (s *Service) postJSON(ctx context.Context, service, operation, rawURL string, body, v any) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return s.do(ctx, service, operation, req, v)
}

func (s *Service) do(ctx context.Context, service, operation string, req *http.Request, v any) error {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", s.userAgent)

	start := time.Now()
	resp, err := httputil.DoWithRetry(ctx, s.HTTP, req, nil, upstreamRetries)
	if err != nil {
		s.metrics.ObserveUpstream(service, operation, metrics.OutcomeFailed, time.Since(start))
		return fmt.Errorf("%s request: %w", service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		s.metrics.ObserveUpstream(service, operation, metrics.OutcomeFailed, time.Since(start))
		return &statusError{Service: service, Code: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		s.metrics.ObserveUpstream(service, operation, metrics.OutcomeParseFailed, time.Since(start))
		return fmt.Errorf("decoding %s response: %w", service, err)
	}
	s.metrics.ObserveUpstream(service, operation, metrics.OutcomeOK, time.Since(start))
	return nil
}
