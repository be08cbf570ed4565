// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pdiddy/genegap/internal/archive"
	"github.com/pdiddy/genegap/internal/crossref"
	"github.com/pdiddy/genegap/internal/literature"
	"github.com/pdiddy/genegap/internal/pipeline"
	"github.com/pdiddy/genegap/internal/proposal"
	"github.com/pdiddy/genegap/internal/report"
	"github.com/pdiddy/genegap/pkg/types"
)

const (
	defaultSourceSpecies   = "Arabidopsis thaliana"
	defaultSearchResults   = 20
	maxSearchResults       = 100
	defaultPublicationRows = 5
)

// --- health and configuration ---

func (s *Server) health(c echo.Context) error {
	version := s.d.Version
	if version == "" {
		version = "dev"
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": serviceName,
		"version": version,
	})
}

func (s *Server) status(c echo.Context) error {
	st := s.d.Models.Check(c.Request().Context(), s.currentModel(""))
	llmState := "disconnected"
	if st.Connected {
		llmState = "connected"
	}
	return c.JSON(http.StatusOK, map[string]any{
		"api":    "running",
		"ollama": st,
		"services": map[string]string{
			"pubmed":     "available",
			"enrichment": "available",
			"llm":        llmState,
		},
	})
}

func (s *Server) listSpecies(c echo.Context) error {
	all := s.d.Species.All()
	return c.JSON(http.StatusOK, map[string]any{"species": all, "count": len(all)})
}

func (s *Server) listModels(c echo.Context) error {
	models, err := s.d.Models.ListModels(c.Request().Context())
	if err != nil {
		s.log.WarnContext(c.Request().Context(), "listing models failed", "error", err)
		models = []string{}
	}
	return c.JSON(http.StatusOK, map[string]any{"models": models, "current_model": s.currentModel("")})
}

type setModelRequest struct {
	Model string `json:"model"`
}

func (s *Server) setModel(c echo.Context) error {
	var req setModelRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		return badRequest(c, "model name required")
	}
	s.setCurrentModel(model)
	s.log.InfoContext(c.Request().Context(), "default model changed", "model", model)
	return c.JSON(http.StatusOK, map[string]any{"success": true, "current_model": model})
}

// --- search and analysis ---

type searchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

func (s *Server) search(c echo.Context) error {
	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return badRequest(c, "search query required")
	}
	limit := req.MaxResults
	switch {
	case limit <= 0:
		limit = defaultSearchResults
	case limit > maxSearchResults:
		limit = maxSearchResults
	}

	res := s.d.Searcher.Search(c.Request().Context(), query, "", limit)
	if res.Status == literature.StatusFailed {
		return c.JSON(http.StatusBadGateway, errorBody{Error: fmt.Sprintf("literature search failed: %v", res.Err)})
	}
	articles := res.Articles
	if articles == nil {
		articles = []types.Article{}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"query":    query,
		"articles": articles,
		"count":    len(articles),
		"total":    res.Total,
	})
}

type analyzeRequest struct {
	Query         string   `json:"query"`
	SourceSpecies string   `json:"source_species"`
	TargetSpecies []string `json:"target_species"`
	MaxArticles   int      `json:"max_articles"`
	Model         string   `json:"model"`
}

func (s *Server) analyze(c echo.Context) error {
	var req analyzeRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if strings.TrimSpace(req.SourceSpecies) == "" {
		req.SourceSpecies = defaultSourceSpecies
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), s.cfg.AnalyzeTimeout)
	defer cancel()

	res, err := s.d.Analyzer.Analyze(ctx, types.Query{
		Text:          req.Query,
		SourceSpecies: req.SourceSpecies,
		TargetSpecies: req.TargetSpecies,
		MaxArticles:   req.MaxArticles,
		Model:         s.currentModel(req.Model),
	})
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, res)
	case errors.Is(err, pipeline.ErrValidation):
		return badRequest(c, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return c.JSON(http.StatusGatewayTimeout, errorBody{Error: "analysis timed out"})
	default:
		return c.JSON(http.StatusBadGateway, errorBody{Error: err.Error()})
	}
}

type quickRequest struct {
	Gene          string   `json:"gene"`
	TargetSpecies []string `json:"target_species"`
}

func (s *Server) quickCheck(c echo.Context) error {
	var req quickRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	res, err := s.d.Analyzer.QuickCheck(c.Request().Context(), req.Gene, req.TargetSpecies)
	if errors.Is(err, pipeline.ErrValidation) {
		return badRequest(c, err.Error())
	}
	if err != nil {
		return c.JSON(http.StatusBadGateway, errorBody{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, res)
}

type extractRequest struct {
	Text  string `json:"text"`
	Model string `json:"model"`
}

func (s *Server) extract(c echo.Context) error {
	var req extractRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if strings.TrimSpace(req.Text) == "" {
		return badRequest(c, "text required")
	}
	out, err := s.d.Extractor.ExtractText(c.Request().Context(), req.Text, s.currentModel(req.Model))
	if err != nil {
		return c.JSON(http.StatusBadGateway, errorBody{Error: err.Error()})
	}
	genes := out.Genes
	if genes == nil {
		genes = []types.GeneCandidate{}
	}
	organisms := out.Organisms
	if organisms == nil {
		organisms = []string{}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":   out.FailedBatches == 0,
		"genes":     genes,
		"organisms": organisms,
	})
}

type summarizeRequest struct {
	Gene    string `json:"gene"`
	Context string `json:"context"`
	Model   string `json:"model"`
}

func (s *Server) summarize(c echo.Context) error {
	var req summarizeRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	gene := strings.TrimSpace(req.Gene)
	if gene == "" {
		return badRequest(c, "gene name required")
	}
	text, err := s.d.Summarizer.SummarizeText(c.Request().Context(), gene, req.Context, s.currentModel(req.Model))
	body := map[string]any{"success": err == nil, "gene": gene, "summary": text}
	if err != nil {
		body["error"] = err.Error()
	}
	return c.JSON(http.StatusOK, body)
}

// --- on-demand enrichment ---

type publicationsRequest struct {
	Gene       string `json:"gene"`
	Species    string `json:"species"`
	MaxResults int    `json:"max_results"`
}

func (s *Server) publications(c echo.Context) error {
	var req publicationsRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	gene := strings.TrimSpace(req.Gene)
	if gene == "" {
		return badRequest(c, "gene name required")
	}
	sp := strings.TrimSpace(req.Species)
	if sp == "" {
		return badRequest(c, "species name required")
	}
	if known, ok := s.d.Species.Lookup(sp); ok {
		sp = known.ScientificName
	}
	limit := req.MaxResults
	if limit <= 0 {
		limit = defaultPublicationRows
	}
	profile := s.d.Profiler.Lookup(c.Request().Context(), gene, sp, crossref.Options{Max: min(limit, maxSearchResults)})
	return c.JSON(http.StatusOK, newPublicationsResponse(profile))
}

type yearRange struct {
	Earliest int `json:"earliest"`
	Latest   int `json:"latest"`
}

// publicationsResponse is the wire shape of POST /publications. Every key
// is present even when the lookup found nothing.
type publicationsResponse struct {
	Gene            string                  `json:"gene"`
	Species         string                  `json:"species"`
	Query           string                  `json:"query"`
	Publications    []types.Publication     `json:"publications"`
	TotalCount      int                     `json:"total_count"`
	GWASCount       int                     `json:"gwas_count"`
	FunctionalCount int                     `json:"functional_count"`
	YearRange       yearRange               `json:"year_range"`
	Trend           types.Trend             `json:"trend"`
	ByStudyType     map[types.StudyType]int `json:"by_study_type"`
	Status          types.LookupStatus      `json:"status"`
}

func newPublicationsResponse(p types.PublicationProfile) publicationsResponse {
	pubs := p.Publications
	if pubs == nil {
		pubs = []types.Publication{}
	}
	gwas := 0
	for _, pub := range pubs {
		if pub.IsGWAS {
			gwas++
		}
	}
	byType := p.ByStudyType
	if byType == nil {
		byType = map[types.StudyType]int{}
	}
	return publicationsResponse{
		Gene:            p.Gene,
		Species:         p.Species,
		Query:           p.Query,
		Publications:    pubs,
		TotalCount:      p.Total,
		GWASCount:       gwas,
		FunctionalCount: len(pubs) - gwas,
		YearRange:       yearRange{Earliest: p.Earliest, Latest: p.Latest},
		Trend:           p.Trend,
		ByStudyType:     byType,
		Status:          p.Status,
	}
}

type geneRequest struct {
	Gene    string `json:"gene"`
	Species string `json:"species"`
}

func (s *Server) goTerms(c echo.Context) error {
	var req geneRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	gene := strings.TrimSpace(req.Gene)
	if gene == "" {
		return badRequest(c, "gene name required")
	}
	return c.JSON(http.StatusOK, s.d.Enricher.LookupGO(c.Request().Context(), gene, strings.TrimSpace(req.Species)))
}

func (s *Server) funding(c echo.Context) error {
	var req geneRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	gene := strings.TrimSpace(req.Gene)
	if gene == "" {
		return badRequest(c, "gene name required")
	}
	return c.JSON(http.StatusOK, s.d.Enricher.SearchFunding(c.Request().Context(), gene))
}

type orthologRequest struct {
	Gene          string `json:"gene"`
	SourceSpecies string `json:"source_species"`
	TargetSpecies string `json:"target_species"`
}

func (s *Server) ortholog(c echo.Context) error {
	var req orthologRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	gene := strings.TrimSpace(req.Gene)
	if gene == "" {
		return badRequest(c, "gene name required")
	}
	if strings.TrimSpace(req.SourceSpecies) == "" || strings.TrimSpace(req.TargetSpecies) == "" {
		return badRequest(c, "source and target species required")
	}
	res := s.d.Enricher.LookupOrtholog(c.Request().Context(), gene,
		strings.TrimSpace(req.SourceSpecies), strings.TrimSpace(req.TargetSpecies))
	return c.JSON(http.StatusOK, res)
}

type proposalRequest struct {
	Gene          string  `json:"gene"`
	SourceSpecies string  `json:"source_species"`
	TargetSpecies string  `json:"target_species"`
	Length        string  `json:"length"`
	PriorityScore float64 `json:"priority_score"`
}

func (s *Server) generateProposal(c echo.Context) error {
	var req proposalRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	gene := strings.TrimSpace(req.Gene)
	if gene == "" {
		return badRequest(c, "gene name required")
	}
	ctx := c.Request().Context()

	src := strings.TrimSpace(req.SourceSpecies)
	var goTerms *types.GOTerms
	if src != "" {
		if g := s.d.Enricher.LookupGO(ctx, gene, src); g.Success {
			goTerms = &g
		}
	} else {
		src = "model organism"
	}
	tgt := strings.TrimSpace(req.TargetSpecies)
	if tgt == "" {
		tgt = "target species"
	}

	res := s.d.Proposer.Generate(ctx, proposal.Request{
		Gene:          gene,
		Source:        src,
		Target:        tgt,
		Length:        proposal.ParseLength(req.Length),
		GO:            goTerms,
		PriorityScore: req.PriorityScore,
		Model:         s.currentModel(""),
	})
	return c.JSON(http.StatusOK, res)
}

// exportRequest carries either an archived analysis id or the analysis
// content itself.
type exportRequest struct {
	ID            string                    `json:"id"`
	Query         string                    `json:"query"`
	SourceSpecies string                    `json:"source_species"`
	TargetSpecies []string                  `json:"target_species"`
	Gaps          []types.SpeciesGapSummary `json:"gaps"`
	Genes         []types.GeneCandidate     `json:"genes"`
	Summaries     json.RawMessage           `json:"summaries"`
}

type geneSummary struct {
	Gene    string `json:"gene"`
	Summary string `json:"summary"`
}

// decodeSummaries accepts summaries as a gene-to-text object, as a list of
// {gene, summary} objects, or as a list of bare strings. Bare strings are
// paired with genes by position.
func decodeSummaries(raw json.RawMessage, genes []types.GeneCandidate) (map[string]string, error) {
	out := map[string]string{}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return out, nil
	}
	switch trimmed[0] {
	case '{':
		if err := json.Unmarshal(trimmed, &out); err != nil {
			return nil, err
		}
		return out, nil
	case '[':
	default:
		return nil, fmt.Errorf("summaries must be an object or a list")
	}

	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, err
	}
	for i, item := range items {
		var text string
		if err := json.Unmarshal(item, &text); err == nil {
			if i < len(genes) && strings.TrimSpace(text) != "" {
				out[genes[i].Name] = text
			}
			continue
		}
		var gs geneSummary
		if err := json.Unmarshal(item, &gs); err != nil {
			return nil, fmt.Errorf("summaries[%d]: %w", i, err)
		}
		if gs.Gene != "" && strings.TrimSpace(gs.Summary) != "" {
			out[gs.Gene] = gs.Summary
		}
	}
	return out, nil
}

func (s *Server) exportPDF(c echo.Context) error {
	var req exportRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	var rep report.Report
	if req.ID != "" {
		if s.d.Archive == nil {
			return c.JSON(http.StatusNotFound, errorBody{Error: "archive disabled"})
		}
		r, err := s.d.Archive.Get(c.Request().Context(), req.ID)
		if errors.Is(err, archive.ErrNotFound) {
			return c.JSON(http.StatusNotFound, errorBody{Error: err.Error()})
		}
		if err != nil {
			return c.JSON(http.StatusInternalServerError, errorBody{Error: err.Error()})
		}
		rep = report.FromResult(r)
	} else {
		summaries, err := decodeSummaries(req.Summaries, req.Genes)
		if err != nil {
			return badRequest(c, "invalid summaries")
		}
		rep = report.Report{
			Query:     orDefault(req.Query, "Unknown query"),
			Source:    orDefault(req.SourceSpecies, "Unknown"),
			Targets:   req.TargetSpecies,
			Gaps:      req.Gaps,
			Genes:     req.Genes,
			Summaries: summaries,
		}
	}
	if rep.GeneratedAt.IsZero() {
		rep.GeneratedAt = time.Now()
	}

	data, err := report.Render(rep)
	if err != nil {
		s.log.ErrorContext(c.Request().Context(), "rendering PDF failed", "error", err)
		return c.JSON(http.StatusInternalServerError, errorBody{Error: fmt.Sprintf("failed to generate PDF: %v", err)})
	}
	name := report.Filename(rep.Query, rep.GeneratedAt)
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Blob(http.StatusOK, "application/pdf", data)
}

// --- archive ---

func (s *Server) listAnalyses(c echo.Context) error {
	if s.d.Archive == nil {
		return c.JSON(http.StatusNotFound, errorBody{Error: "archive disabled"})
	}
	opts := archive.ListOptions{
		Gene:    c.QueryParam("gene"),
		Species: c.QueryParam("species"),
	}
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return badRequest(c, "limit must be a non-negative integer")
		}
		opts.Limit = n
	}
	entries, err := s.d.Archive.List(c.Request().Context(), opts)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorBody{Error: err.Error()})
	}
	if entries == nil {
		entries = []archive.Entry{}
	}
	return c.JSON(http.StatusOK, map[string]any{"analyses": entries, "count": len(entries)})
}

func (s *Server) getAnalysis(c echo.Context) error {
	if s.d.Archive == nil {
		return c.JSON(http.StatusNotFound, errorBody{Error: "archive disabled"})
	}
	r, err := s.d.Archive.Get(c.Request().Context(), c.Param("id"))
	if errors.Is(err, archive.ErrNotFound) {
		return c.JSON(http.StatusNotFound, errorBody{Error: err.Error()})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorBody{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, r)
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}
