// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strings"

	"github.com/pdiddy/genegap/pkg/types"
)

type xrefEntry struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

type homologyResponse struct {
	Data []struct {
		Homologies []homology `json:"homologies"`
	} `json:"data"`
}

type homology struct {
	Type   string `json:"type"`
	Target struct {
		ID        string  `json:"id"`
		ProteinID string  `json:"protein_id"`
		PercID    float64 `json:"perc_id"`
		PercPos   float64 `json:"perc_pos"`
	} `json:"target"`
}

// LookupOrtholog finds the best ortholog of gene from source in target.
// Ensembl Plants is queried first and the main Ensembl service is the
// fallback.
func (s *Service) LookupOrtholog(ctx context.Context, gene, source, target string) types.OrthologResult {
	key := cacheKey(gene, source, target)
	if hit, ok := s.orthoCache.Get(key); ok {
		return hit
	}

	src := s.species.EnsemblName(source)
	tgt := s.species.EnsemblName(target)

	res := s.homology(ctx, s.plantsURL, "ensembl_plants", gene, src, tgt)
	if !res.Success && ctx.Err() == nil {
		res = s.homology(ctx, s.ensemblURL, "ensembl", gene, src, tgt)
	}
	res.Gene = gene
	res.SourceSpecies = source
	res.TargetSpecies = target

	if res.Success {
		s.orthoCache.Add(key, res)
	} else {
		s.log.DebugContext(ctx, "ortholog lookup failed", "gene", gene, "source", source, "target", target, "error", res.Error)
	}
	return res
}

func (s *Service) homology(ctx context.Context, base, service, gene, src, tgt string) types.OrthologResult {
	id, err := s.geneID(ctx, base, service, gene, src)
	if err != nil {
		return types.OrthologResult{Error: err.Error()}
	}
	if id == "" {
		return types.OrthologResult{Error: fmt.Sprintf("gene %q not found in %s", gene, src)}
	}

	params := url.Values{"target_species": {tgt}, "content-type": {"application/json"}}
	rawURL := fmt.Sprintf("%s/homology/id/%s/%s?%s", base, url.PathEscape(src), url.PathEscape(id), params.Encode())
	var body homologyResponse
	if err := s.getJSON(ctx, service, "homology", rawURL, &body); err != nil {
		return types.OrthologResult{Error: err.Error()}
	}

	var all []homology
	for _, d := range body.Data {
		all = append(all, d.Homologies...)
	}
	if len(all) == 0 {
		return types.OrthologResult{Success: true, Message: "No orthologs found in target species"}
	}

	best := bestHomology(all)
	identity := best.Target.PercID
	coverage := best.Target.PercPos
	if coverage == 0 {
		coverage = identity
	}
	conf := ConfidenceFor(identity, best.Type)
	protein := best.Target.ProteinID
	if protein == "" {
		protein = best.Target.ID
	}

	return types.OrthologResult{
		Success:        true,
		Found:          true,
		TotalOrthologs: len(all),
		Ortholog: &types.Ortholog{
			TargetGene:       best.Target.ID,
			TargetProtein:    protein,
			SequenceIdentity: round1(identity),
			QueryCoverage:    round1(coverage),
			OrthologType:     FormatOrthologType(best.Type),
			Confidence:       conf,
			ConfidenceScore:  ConfidenceScore(conf),
			EnsemblURL:       fmt.Sprintf("https://plants.ensembl.org/%s/Gene/Summary?g=%s", tgt, url.QueryEscape(best.Target.ID)),
		},
	}
}

// geneID resolves a gene symbol to an Ensembl stable id. Gene-typed
// entries win over other cross references.
func (s *Service) geneID(ctx context.Context, base, service, gene, species string) (string, error) {
	rawURL := fmt.Sprintf("%s/xrefs/symbol/%s/%s?content-type=application/json", base, url.PathEscape(species), url.PathEscape(gene))
	var entries []xrefEntry
	if err := s.getJSON(ctx, service, "xrefs", rawURL, &entries); err != nil {
		return "", err
	}
	for _, e := range entries {
		if e.Type == "gene" {
			return e.ID, nil
		}
	}
	if len(entries) > 0 {
		return entries[0].ID, nil
	}
	return "", nil
}

// bestHomology prefers a one-to-one ortholog, then any ortholog, then the
// first homology listed.
func bestHomology(all []homology) homology {
	var firstOrtholog *homology
	for i := range all {
		t := all[i].Type
		if strings.Contains(t, "ortholog_one2one") {
			return all[i]
		}
		if firstOrtholog == nil && strings.Contains(t, "ortholog") {
			firstOrtholog = &all[i]
		}
	}
	if firstOrtholog != nil {
		return *firstOrtholog
	}
	return all[0]
}

// ConfidenceFor grades an ortholog from percent identity plus a bonus for
// its type: one-to-one +15, one-to-many +5. Scores of 80 and above are
// high, 50 and above medium.
func ConfidenceFor(identity float64, orthologType string) types.Confidence {
	score := identity
	switch {
	case strings.Contains(orthologType, "one2one"):
		score += 15
	case strings.Contains(orthologType, "one2many"):
		score += 5
	}
	switch {
	case score >= 80:
		return types.ConfidenceHigh
	case score >= 50:
		return types.ConfidenceMedium
	default:
		return types.ConfidenceLow
	}
}

// ConfidenceScore is the numeric form of a confidence grade.
func ConfidenceScore(c types.Confidence) int {
	switch c {
	case types.ConfidenceHigh:
		return 95
	case types.ConfidenceMedium:
		return 70
	case types.ConfidenceLow:
		return 40
	}
	return 50
}

var orthologTypeLabels = []struct{ key, label string }{
	{"ortholog_one2one", "1:1"},
	{"ortholog_one2many", "1:many"},
	{"ortholog_many2many", "many:many"},
	{"within_species_paralog", "paralog"},
}

// FormatOrthologType renders an Ensembl homology type for display.
func FormatOrthologType(t string) string {
	for _, l := range orthologTypeLabels {
		if strings.Contains(t, l.key) {
			return l.label
		}
	}
	if t == "" {
		return "unknown"
	}
	return strings.ReplaceAll(t, "_", " ")
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
