// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package literature queries NCBI PubMed through the E-utilities API and
// normalizes the hits into types.Article. Every call fails soft: errors are
// reported through Result.Status so callers can tell "nothing found" from
// "lookup failed" without aborting.
package literature

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/genegap/internal/httputil"
	"github.com/pdiddy/genegap/internal/logging"
	"github.com/pdiddy/genegap/internal/metrics"
	"github.com/pdiddy/genegap/pkg/types"
)

// eutilsBase is the E-utilities root. Declared as a var so tests can
// substitute an httptest server.
var eutilsBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// Pacing defaults. NCBI allows 3 requests per second without a key and
// 10 with one.
const (
	DefaultRequestsPerSecond      = 3
	DefaultKeyedRequestsPerSecond = 10
	DefaultTimeout                = 30 * time.Second
	maxFetch                      = 200
)

// genomeWideFilter restricts source-species searches to association studies.
const genomeWideFilter = `("genome-wide" OR "GWAS" OR "genome wide association")`

// Status reports how a search ended.
type Status string

const (
	StatusOK     Status = "ok"
	StatusEmpty  Status = "empty"
	StatusFailed Status = "failed"
)

// ErrUpstream marks a non-success response from E-utilities.
var ErrUpstream = errors.New("pubmed upstream error")

// Result is the outcome of one search. Total is the upstream hit count,
// which may exceed len(Articles). Err is set only when Status is failed.
type Result struct {
	Articles []types.Article
	Total    int
	Query    string
	Status   Status
	Err      error
}

// Client is a paced PubMed client. It is safe for concurrent use; all
// goroutines share one request budget.
type Client struct {
	HTTP *http.Client

	baseURL   string
	apiKey    string
	email     string
	userAgent string
	timeout   time.Duration
	pacer     *httputil.Pacer
	log       *slog.Logger
	metrics   *metrics.Metrics
}

// New builds a Client from cfg. A zero rate takes the NCBI default for
// the configured key state; a negative rate disables pacing.
func New(cfg types.LiteratureConfig, log *slog.Logger, m *metrics.Metrics) *Client {
	rps := cfg.RequestsPerSecond
	if rps == 0 {
		rps = DefaultRequestsPerSecond
	}
	if cfg.APIKey != "" {
		rps = cfg.KeyedRequestsPerSecond
		if rps == 0 {
			rps = DefaultKeyedRequestsPerSecond
		}
	}

	base := cfg.BaseURL
	if base == "" {
		base = eutilsBase
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = "genegap"
	}
	if log == nil {
		log = logging.Discard()
	}

	return &Client{
		HTTP:      &http.Client{},
		baseURL:   strings.TrimRight(base, "/"),
		apiKey:    cfg.APIKey,
		email:     cfg.Email,
		userAgent: ua,
		timeout:   timeout,
		pacer:     httputil.NewPacer(rps),
		log:       log.With("component", "literature"),
		metrics:   m,
	}
}

// Interval returns the enforced spacing between requests.
func (c *Client) Interval() time.Duration { return c.pacer.Interval() }

// SourceQuery builds the species-qualified boolean query used to retrieve
// association literature for a free-text research question.
func SourceQuery(text, species string) string {
	q := fmt.Sprintf("(%s) AND %s", strings.TrimSpace(text), genomeWideFilter)
	if species = strings.TrimSpace(species); species != "" {
		q += fmt.Sprintf(` AND "%s"[Organism]`, species)
	}
	return q
}

// GeneQuery builds the query for publications on one gene in one species.
func GeneQuery(gene, species string) string {
	return fmt.Sprintf(`"%s" AND "%s"`, strings.TrimSpace(gene), strings.TrimSpace(species))
}

// Search retrieves up to max association-study articles matching text in
// species, ordered by relevance.
func (c *Client) Search(ctx context.Context, text, species string, max int) Result {
	return c.run(ctx, SourceQuery(text, species), species, max)
}

// SearchGene retrieves up to max articles mentioning gene in species.
// With max <= 0 only the total count is fetched.
func (c *Client) SearchGene(ctx context.Context, gene, species string, max int) Result {
	return c.run(ctx, GeneQuery(gene, species), species, max)
}

// SearchTerm runs an arbitrary PubMed term without added filters.
func (c *Client) SearchTerm(ctx context.Context, term string, max int) Result {
	return c.run(ctx, term, "", max)
}

// Count returns the upstream hit count for term.
func (c *Client) Count(ctx context.Context, term string) (int, error) {
	total, _, err := c.esearch(ctx, term, 0)
	return total, err
}

func (c *Client) run(ctx context.Context, query, species string, max int) Result {
	res := Result{Query: query}

	total, ids, err := c.esearch(ctx, query, max)
	if err != nil {
		return c.fail(ctx, res, err)
	}
	res.Total = total

	if len(ids) > 0 {
		articles, err := c.efetch(ctx, ids, species)
		if err != nil {
			return c.fail(ctx, res, err)
		}
		res.Articles = articles
	}

	if res.Total == 0 && len(res.Articles) == 0 {
		res.Status = StatusEmpty
	} else {
		res.Status = StatusOK
	}
	return res
}

func (c *Client) fail(ctx context.Context, res Result, err error) Result {
	c.log.WarnContext(ctx, "pubmed lookup failed", "query", res.Query, "error", err)
	res.Status = StatusFailed
	res.Err = err
	res.Articles = nil
	return res
}

// esearch returns the hit count and up to max PMIDs for term.
func (c *Client) esearch(ctx context.Context, term string, max int) (int, []string, error) {
	params := url.Values{
		"db":      {"pubmed"},
		"term":    {term},
		"retmode": {"json"},
		"sort":    {"relevance"},
	}
	if max > 0 {
		params.Set("retmax", strconv.Itoa(min(max, maxFetch)))
	} else {
		params.Set("rettype", "count")
	}

	body, err := c.get(ctx, "esearch", params)
	if err != nil {
		return 0, nil, err
	}

	var er esearchResponse
	if err := json.Unmarshal(body, &er); err != nil {
		c.metrics.ObserveUpstream("pubmed", "esearch", metrics.OutcomeParseFailed, 0)
		return 0, nil, fmt.Errorf("parsing esearch response: %w", err)
	}
	if er.Error != "" {
		return 0, nil, fmt.Errorf("%w: %s", ErrUpstream, er.Error)
	}

	total := 0
	if er.Result.Count != "" {
		total, err = strconv.Atoi(er.Result.Count)
		if err != nil {
			return 0, nil, fmt.Errorf("parsing esearch count %q: %w", er.Result.Count, err)
		}
	}
	ids := er.Result.IDList
	if max > 0 && len(ids) > max {
		ids = ids[:max]
	}
	return total, ids, nil
}

func (c *Client) efetch(ctx context.Context, ids []string, species string) ([]types.Article, error) {
	params := url.Values{
		"db":      {"pubmed"},
		"id":      {strings.Join(ids, ",")},
		"retmode": {"xml"},
		"rettype": {"abstract"},
	}
	body, err := c.get(ctx, "efetch", params)
	if err != nil {
		return nil, err
	}
	articles, err := parseArticles(body, species)
	if err != nil {
		c.metrics.ObserveUpstream("pubmed", "efetch", metrics.OutcomeParseFailed, 0)
		return nil, fmt.Errorf("parsing efetch response: %w", err)
	}
	return articles, nil
}

// get performs one paced, retried GET against an E-utilities endpoint
// under the per-call timeout.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if c.email != "" {
		params.Set("email", c.email)
	}
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	params.Set("tool", "genegap")

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reqURL := c.baseURL + "/" + endpoint + ".fcgi?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := httputil.DoWithRetry(ctx, c.HTTP, req, c.pacer, 0)
	if err != nil {
		c.metrics.ObserveUpstream("pubmed", endpoint, metrics.OutcomeFailed, time.Since(start))
		return nil, fmt.Errorf("%s request: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.ObserveUpstream("pubmed", endpoint, metrics.OutcomeFailed, time.Since(start))
		return nil, fmt.Errorf("reading %s response: %w", endpoint, err)
	}
	if resp.StatusCode != http.StatusOK {
		c.metrics.ObserveUpstream("pubmed", endpoint, metrics.OutcomeFailed, time.Since(start))
		return nil, fmt.Errorf("%w: %s returned HTTP %d", ErrUpstream, endpoint, resp.StatusCode)
	}
	c.metrics.ObserveUpstream("pubmed", endpoint, metrics.OutcomeOK, time.Since(start))
	return body, nil
}
