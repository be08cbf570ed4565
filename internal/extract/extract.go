// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract identifies candidate genes in source-species abstracts.
// Abstracts are sent to the language model in batches; each batch is
// parsed independently so a malformed answer costs only that batch.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/pdiddy/genegap/internal/logging"
	"github.com/pdiddy/genegap/pkg/types"
)

// Defaults applied when ExtractionConfig leaves a field at zero.
const (
	DefaultBatchSize     = 5
	DefaultMaxBatchChars = 6000
	DefaultMaxRetries    = 1
	maxFunctions         = 5
)

// falsePositives are upper-case tokens models routinely report as genes.
var falsePositives = map[string]bool{
	"DNA": true, "RNA": true, "CDNA": true, "MRNA": true, "PCR": true,
	"GWAS": true, "SNP": true, "SNPS": true, "QTL": true, "QTLS": true,
	"USA": true, "THE": true, "AND": true, "FOR": true,
}

// Backend abstracts the language model so tests can supply a mock. Each
// call handles one batch of formatted abstracts.
type Backend interface {
	Extract(ctx context.Context, batch, model string) (Response, error)
}

// Response is the structured answer for one batch.
type Response struct {
	Genes     []ResponseGene     `json:"genes"`
	Organisms []ResponseOrganism `json:"organisms,omitempty"`
}

// ResponseGene is a single gene as returned by the backend.
type ResponseGene struct {
	Name     string   `json:"name"`
	Symbol   string   `json:"symbol"`
	Function string   `json:"function"`
	PMIDs    []string `json:"pmids"`
}

// ResponseOrganism is an organism mentioned in the batch.
type ResponseOrganism struct {
	ScientificName string `json:"scientific_name"`
	CommonName     string `json:"common_name"`
}

// Output is the merged result of one extraction.
type Output struct {
	Genes         []types.GeneCandidate
	Organisms     []string
	Batches       int
	FailedBatches int
}

// Extractor batches articles and merges per-batch gene lists.
type Extractor struct {
	backend    Backend
	batchSize  int
	maxChars   int
	maxRetries int
	log        *slog.Logger
}

// New returns an Extractor backed by backend.
func New(backend Backend, cfg types.ExtractionConfig, log *slog.Logger) *Extractor {
	e := &Extractor{
		backend:    backend,
		batchSize:  cfg.BatchSize,
		maxChars:   cfg.MaxBatchChars,
		maxRetries: cfg.MaxRetries,
		log:        log,
	}
	if e.batchSize <= 0 {
		e.batchSize = DefaultBatchSize
	}
	if e.maxChars <= 0 {
		e.maxChars = DefaultMaxBatchChars
	}
	if e.maxRetries < 0 {
		e.maxRetries = 0
	} else if e.maxRetries == 0 {
		e.maxRetries = DefaultMaxRetries
	}
	if e.log == nil {
		e.log = logging.Discard()
	}
	e.log = e.log.With("component", "extract")
	return e
}

// Extract returns the genes mentioned in articles. Batches whose model
// call or output fails are counted in FailedBatches and skipped. The only
// error returned is the context's.
func (e *Extractor) Extract(ctx context.Context, articles []types.Article, model string) (Output, error) {
	batches := e.batch(articles)
	out := Output{Batches: len(batches)}
	m := newMerger()

	for i, b := range batches {
		resp, err := callWithRetry(ctx, e.backend, b.text, model, e.maxRetries)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Output{}, ctxErr
			}
			out.FailedBatches++
			e.log.WarnContext(ctx, "extraction batch failed", "batch", i+1, "of", len(batches), "error", err)
			continue
		}
		m.add(resp, b.ids)
	}

	out.Genes = m.genes()
	out.Organisms = m.organisms
	e.log.InfoContext(ctx, "extraction finished",
		"articles", len(articles), "batches", out.Batches,
		"failed_batches", out.FailedBatches, "genes", len(out.Genes))
	return out, nil
}

// ExtractText runs extraction over a single free-text passage.
func (e *Extractor) ExtractText(ctx context.Context, text, model string) (Output, error) {
	return e.Extract(ctx, []types.Article{{ID: "input", Abstract: text}}, model)
}

// batch is one model call's worth of articles.
type batch struct {
	text string
	ids  map[string]bool
}

// batch groups articles by count and character budget. Articles with
// neither title nor abstract are skipped; an abstract longer than the
// budget is truncated so every batch holds at least one article.
func (e *Extractor) batch(articles []types.Article) []batch {
	var (
		out   []batch
		cur   strings.Builder
		ids   = map[string]bool{}
		count int
	)
	flush := func() {
		if count == 0 {
			return
		}
		out = append(out, batch{text: cur.String(), ids: ids})
		cur.Reset()
		ids = map[string]bool{}
		count = 0
	}

	for _, a := range articles {
		if strings.TrimSpace(a.Title) == "" && strings.TrimSpace(a.Abstract) == "" {
			continue
		}
		chunk := formatArticle(a, e.maxChars)
		if count > 0 && (count >= e.batchSize || cur.Len()+len(chunk) > e.maxChars) {
			flush()
		}
		cur.WriteString(chunk)
		ids[a.ID] = true
		count++
	}
	flush()
	return out
}

func formatArticle(a types.Article, budget int) string {
	head := fmt.Sprintf("PMID: %s\nTitle: %s\nAbstract: ", a.ID, a.Title)
	abstract := truncate(a.Abstract, budget-len(head)-2)
	return head + abstract + "\n\n"
}

// truncate cuts text to at most max bytes, preferring a word boundary in
// the last fifth, and marks the cut with "...".
func truncate(text string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(text) <= max {
		return text
	}
	if max <= 3 {
		return strings.ToValidUTF8(text[:max], "")
	}
	limit := max - 3
	cut := text[:limit]
	if i := strings.LastIndexByte(cut, ' '); i > limit*4/5 {
		cut = cut[:i]
	}
	return strings.ToValidUTF8(cut, "") + "..."
}

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

// callWithRetry calls the backend with exponential backoff between attempts.
func callWithRetry(ctx context.Context, backend Backend, batch, model string, maxRetries int) (Response, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return Response{}, ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := backend.Extract(ctx, batch, model)
		if err == nil {
			return resp, nil
		}
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return Response{}, err
		}
		lastErr = err
	}
	return Response{}, fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}

// merger accumulates genes across batches keyed by normalized name.
type merger struct {
	byKey     map[string]*entry
	order     []string
	organisms []string
	seenOrg   map[string]bool
}

type entry struct {
	casings     map[string]int
	casingOrder []string
	symbol      string
	articles    map[string]bool
	articleIDs  []string
	anonymous   int
	functions   []string
}

func newMerger() *merger {
	return &merger{byKey: map[string]*entry{}, seenOrg: map[string]bool{}}
}

// add folds one batch response in. A gene counts once per distinct article
// it is attributed to; every entry without a PMID from the batch counts once.
func (m *merger) add(resp Response, batchIDs map[string]bool) {
	for _, g := range resp.Genes {
		name := strings.Join(strings.Fields(g.Name), " ")
		if !acceptable(name) {
			continue
		}
		key := types.NormalizeGeneName(name)

		e, ok := m.byKey[key]
		if !ok {
			e = &entry{casings: map[string]int{}, articles: map[string]bool{}}
			m.byKey[key] = e
			m.order = append(m.order, key)
		}
		if e.casings[name] == 0 {
			e.casingOrder = append(e.casingOrder, name)
		}
		e.casings[name]++
		if e.symbol == "" {
			e.symbol = strings.TrimSpace(g.Symbol)
		}
		if f := strings.TrimSpace(g.Function); f != "" && len(e.functions) < maxFunctions && !contains(e.functions, f) {
			e.functions = append(e.functions, f)
		}

		attributed := false
		for _, id := range g.PMIDs {
			id = strings.TrimSpace(id)
			if !batchIDs[id] {
				continue
			}
			attributed = true
			if !e.articles[id] {
				e.articles[id] = true
				e.articleIDs = append(e.articleIDs, id)
			}
		}
		if !attributed {
			e.anonymous++
		}
	}

	for _, o := range resp.Organisms {
		name := strings.Join(strings.Fields(o.ScientificName), " ")
		if name == "" || m.seenOrg[strings.ToLower(name)] {
			continue
		}
		m.seenOrg[strings.ToLower(name)] = true
		m.organisms = append(m.organisms, name)
	}
}

// genes returns the merged candidates ordered by mentions desc, name asc.
func (m *merger) genes() []types.GeneCandidate {
	out := make([]types.GeneCandidate, 0, len(m.order))
	for _, key := range m.order {
		e := m.byKey[key]
		out = append(out, types.GeneCandidate{
			Name:       e.canonical(),
			Symbol:     e.symbol,
			Mentions:   len(e.articleIDs) + e.anonymous,
			ArticleIDs: e.articleIDs,
			Functions:  e.functions,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Mentions != out[j].Mentions {
			return out[i].Mentions > out[j].Mentions
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// canonical returns the most frequent casing; ties go to the first seen.
func (e *entry) canonical() string {
	best := e.casingOrder[0]
	for _, c := range e.casingOrder[1:] {
		if e.casings[c] > e.casings[best] {
			best = c
		}
	}
	return best
}

func acceptable(name string) bool {
	if len([]rune(name)) <= 1 {
		return false
	}
	return !falsePositives[strings.ToUpper(name)]
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
