// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package summary asks the language model for short function descriptions
// of gap genes, grounded in the source-species abstracts of the run.
package summary

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"text/template"

	"github.com/pdiddy/genegap/internal/llm"
	"github.com/pdiddy/genegap/internal/logging"
	"github.com/pdiddy/genegap/pkg/types"
)

const (
	// DefaultLimit caps summaries per run.
	DefaultLimit       = 10
	contextArticles    = 3
	maxAbstractContext = 800
)

// ErrEmpty is returned when the model answers with no text.
var ErrEmpty = errors.New("empty summary")

// Generator is the language model call used for summaries.
type Generator interface {
	Generate(ctx context.Context, r llm.Request) (string, error)
}

var summaryPromptTmpl = template.Must(template.New("summary").Parse(`Based on this scientific context, provide a brief (2-3 sentences) summary of the gene "{{.Gene}}" and its potential role/function. Focus on aspects useful for genetic engineering applications. Use only the context below; say so if it is insufficient.

Context:
{{.Context}}

Brief summary of {{.Gene}}:`))

// Summarizer produces gene summaries one model call at a time.
type Summarizer struct {
	gen Generator
	log *slog.Logger
}

// New returns a Summarizer using gen.
func New(gen Generator, log *slog.Logger) *Summarizer {
	if log == nil {
		log = logging.Discard()
	}
	return &Summarizer{gen: gen, log: log.With("component", "summary")}
}

// Summarize describes gene using the articles it was extracted from and
// any function notes collected during extraction.
func (s *Summarizer) Summarize(ctx context.Context, gene types.GeneCandidate, articles []types.Article, model string) (string, error) {
	return s.SummarizeText(ctx, gene.Name, BuildContext(gene, articles), model)
}

// SummarizeText describes gene from a caller-supplied context passage.
func (s *Summarizer) SummarizeText(ctx context.Context, gene, contextText, model string) (string, error) {
	var buf bytes.Buffer
	if err := summaryPromptTmpl.Execute(&buf, struct{ Gene, Context string }{gene, contextText}); err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}

	text, err := s.gen.Generate(ctx, llm.Request{
		Task:        "summary",
		Model:       model,
		Prompt:      buf.String(),
		Temperature: 0.3,
		MaxTokens:   500,
	})
	if err != nil {
		return "", err
	}
	if text = strings.TrimSpace(text); text == "" {
		return "", ErrEmpty
	}
	return text, nil
}

// Top summarizes the limit highest-scoring genes, sequentially. best maps
// gene name to its highest priority score across species; genes absent
// from it are not gaps and are skipped. Genes whose call fails are left
// out of the returned map. Only context cancellation is returned as an error.
func (s *Summarizer) Top(ctx context.Context, genes []types.GeneCandidate, articles []types.Article, best map[string]float64, limit int, model string) (map[string]string, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	out := map[string]string{}

	for _, g := range SelectTop(genes, best, limit) {
		text, err := s.Summarize(ctx, g, articles, model)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			s.log.WarnContext(ctx, "summary failed", "gene", g.Name, "error", err)
			continue
		}
		out[g.Name] = text
	}
	return out, nil
}

// SelectTop returns up to limit genes present in best, ordered by score
// descending then name.
func SelectTop(genes []types.GeneCandidate, best map[string]float64, limit int) []types.GeneCandidate {
	var picked []types.GeneCandidate
	for _, g := range genes {
		if _, ok := best[g.Name]; ok {
			picked = append(picked, g)
		}
	}
	sort.SliceStable(picked, func(i, j int) bool {
		si, sj := best[picked[i].Name], best[picked[j].Name]
		if si != sj {
			return si > sj
		}
		return picked[i].Name < picked[j].Name
	})
	if len(picked) > limit {
		picked = picked[:limit]
	}
	return picked
}

// BuildContext assembles the prompt context for gene: its function notes
// and up to three abstracts it was found in. Without attributed articles,
// abstracts naming the gene are used instead.
func BuildContext(gene types.GeneCandidate, articles []types.Article) string {
	var b strings.Builder
	for _, f := range gene.Functions {
		fmt.Fprintf(&b, "- Reported function: %s\n", f)
	}

	for _, a := range relevantArticles(gene, articles) {
		abstract := a.Abstract
		if len(abstract) > maxAbstractContext {
			abstract = strings.ToValidUTF8(abstract[:maxAbstractContext], "") + "..."
		}
		fmt.Fprintf(&b, "- %s: %s\n", a.Title, abstract)
	}
	return strings.TrimSpace(b.String())
}

func relevantArticles(gene types.GeneCandidate, articles []types.Article) []types.Article {
	ids := map[string]bool{}
	for _, id := range gene.ArticleIDs {
		ids[id] = true
	}

	var out []types.Article
	for _, a := range articles {
		if ids[a.ID] {
			out = append(out, a)
			if len(out) == contextArticles {
				return out
			}
		}
	}
	if len(out) > 0 {
		return out
	}

	needle := strings.ToLower(gene.Name)
	for _, a := range articles {
		if strings.Contains(strings.ToLower(a.Title+" "+a.Abstract), needle) {
			out = append(out, a)
			if len(out) == contextArticles {
				break
			}
		}
	}
	return out
}
