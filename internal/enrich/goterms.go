// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/genegap/pkg/types"
)

type uniprotName struct {
	FullName struct {
		Value string `json:"value"`
	} `json:"fullName"`
}

type uniprotSearch struct {
	Results []uniprotEntry `json:"results"`
}

type uniprotEntry struct {
	PrimaryAccession   string `json:"primaryAccession"`
	ProteinDescription struct {
		RecommendedName *uniprotName  `json:"recommendedName"`
		SubmittedName   []uniprotName `json:"submissionNames"`
	} `json:"proteinDescription"`
	CrossReferences []struct {
		Database   string `json:"database"`
		ID         string `json:"id"`
		Properties []struct {
			Key   string `json:"key"`
			Value string `json:"value"`
		} `json:"properties"`
	} `json:"uniProtKBCrossReferences"`
	Comments []struct {
		CommentType string `json:"commentType"`
		Texts       []struct {
			Value string `json:"value"`
		} `json:"texts"`
	} `json:"comments"`
}

type quickgoSearch struct {
	Results []struct {
		GoID     string `json:"goId"`
		GoName   string `json:"goName"`
		GoAspect string `json:"goAspect"`
	} `json:"results"`
}

// LookupGO returns GO annotations and pathways for gene, optionally
// restricted to species. UniProt is searched with several query forms;
// QuickGO annotations are the fallback.
func (s *Service) LookupGO(ctx context.Context, gene, species string) types.GOTerms {
	key := cacheKey(gene, species)
	if hit, ok := s.goCache.Get(key); ok {
		return hit
	}

	res := emptyGOTerms(gene)
	var lastErr error

	found, err := s.uniprotGO(ctx, gene, species)
	if err != nil {
		lastErr = err
	}
	if found == nil && ctx.Err() == nil {
		found, err = s.quickgoGO(ctx, gene)
		if err != nil {
			lastErr = err
		}
	}

	switch {
	case found != nil:
		res = *found
		res.Success = true
		s.goCache.Add(key, res)
	case ctx.Err() != nil:
		res.Error = ctx.Err().Error()
	case lastErr != nil:
		res.Error = fmt.Sprintf("GO lookup failed: %v", lastErr)
	default:
		res.Error = fmt.Sprintf("no GO annotations found for %s", gene)
	}
	if !res.Success {
		s.log.DebugContext(ctx, "no GO terms", "gene", gene, "species", species, "error", res.Error)
	}
	return res
}

func emptyGOTerms(gene string) types.GOTerms {
	return types.GOTerms{
		Gene:              gene,
		MolecularFunction: []types.GOTerm{},
		BiologicalProcess: []types.GOTerm{},
		CellularComponent: []types.GOTerm{},
		Pathways:          []string{},
	}
}

// uniprotQueries lists the UniProt query forms tried in order.
func uniprotQueries(gene, taxID string) []string {
	filter := ""
	if taxID != "" {
		filter = " AND organism_id:" + taxID
	}
	qs := []string{
		"gene:" + gene + filter,
		"gene_exact:" + gene + filter,
		"(" + gene + ")" + filter,
		"protein_name:" + gene + filter,
	}
	if strings.ContainsAny(gene, " -") {
		clean := strings.NewReplacer(" ", "", "-", "").Replace(gene)
		qs = append(qs, "gene:"+clean, "("+gene+")")
	}
	return qs
}

// uniprotGO returns the first UniProt entry carrying useful annotations.
// A nil result with nil error means no query form matched.
func (s *Service) uniprotGO(ctx context.Context, gene, species string) (*types.GOTerms, error) {
	taxID := ""
	if species != "" {
		taxID = s.species.TaxID(species)
	}

	var lastErr error
	for _, q := range uniprotQueries(gene, taxID) {
		params := url.Values{
			"query":  {q},
			"format": {"json"},
			"fields": {"accession,protein_name,go,cc_pathway"},
			"size":   {"1"},
		}
		var body uniprotSearch
		if err := s.getJSON(ctx, "uniprot", "search", s.uniprotURL+"/search?"+params.Encode(), &body); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}
		if len(body.Results) == 0 {
			continue
		}
		res := parseUniProt(gene, body.Results[0])
		if res.HasData() {
			s.log.DebugContext(ctx, "GO terms found", "gene", gene, "query", q)
			return &res, nil
		}
	}
	return nil, lastErr
}

func parseUniProt(gene string, e uniprotEntry) types.GOTerms {
	res := emptyGOTerms(gene)
	res.UniProtID = e.PrimaryAccession
	res.Source = "UniProt"

	pd := e.ProteinDescription
	switch {
	case pd.RecommendedName != nil:
		res.Description = pd.RecommendedName.FullName.Value
	case len(pd.SubmittedName) > 0:
		res.Description = pd.SubmittedName[0].FullName.Value
	}

	seen := map[string]bool{}
	for _, x := range e.CrossReferences {
		if x.Database != "GO" || seen[x.ID] {
			continue
		}
		for _, p := range x.Properties {
			if p.Key != "GoTerm" {
				continue
			}
			aspect, name, ok := strings.Cut(p.Value, ":")
			if !ok {
				continue
			}
			seen[x.ID] = true
			addTerm(&res, aspectName(aspect), types.GOTerm{ID: x.ID, Name: name})
		}
	}

	for _, c := range e.Comments {
		if c.CommentType != "PATHWAY" {
			continue
		}
		for _, t := range c.Texts {
			if t.Value != "" {
				res.Pathways = append(res.Pathways, t.Value)
			}
		}
	}
	return res
}

// aspectName maps UniProt's one-letter GO aspect to the QuickGO spelling.
func aspectName(code string) string {
	switch code {
	case "F":
		return "molecular_function"
	case "P":
		return "biological_process"
	case "C":
		return "cellular_component"
	}
	return ""
}

func addTerm(res *types.GOTerms, aspect string, t types.GOTerm) {
	switch aspect {
	case "molecular_function":
		res.MolecularFunction = append(res.MolecularFunction, t)
	case "biological_process":
		res.BiologicalProcess = append(res.BiologicalProcess, t)
	case "cellular_component":
		res.CellularComponent = append(res.CellularComponent, t)
	}
}

func (s *Service) quickgoGO(ctx context.Context, gene string) (*types.GOTerms, error) {
	params := url.Values{"geneProductId": {gene}, "limit": {"50"}}
	var body quickgoSearch
	if err := s.getJSON(ctx, "quickgo", "annotation", s.quickgoURL+"/annotation/search?"+params.Encode(), &body); err != nil {
		var se *statusError
		if errors.As(err, &se) && se.Code == http.StatusBadRequest {
			// QuickGO rejects identifiers it cannot parse.
			return nil, nil
		}
		return nil, err
	}

	res := emptyGOTerms(gene)
	res.Source = "QuickGO"
	seen := map[string]bool{}
	for _, a := range body.Results {
		if a.GoID == "" || seen[a.GoID] {
			continue
		}
		seen[a.GoID] = true
		addTerm(&res, a.GoAspect, types.GOTerm{ID: a.GoID, Name: a.GoName})
	}
	if !res.HasData() {
		return nil, nil
	}
	return &res, nil
}
