// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/genegap/internal/gap"
	"github.com/pdiddy/genegap/internal/literature"
	"github.com/pdiddy/genegap/pkg/types"
)

// LevelUnknown marks a quick-check species whose count lookup failed.
const LevelUnknown types.GapLevel = "unknown"

// QuickSpecies is the publication count of one gene in one species.
type QuickSpecies struct {
	Species          string             `json:"species"`
	CommonName       string             `json:"common_name"`
	PublicationCount int                `json:"publication_count"`
	Level            types.GapLevel     `json:"gap_level"`
	IsGap            bool               `json:"is_gap"`
	Query            string             `json:"search_query"`
	Status           types.LookupStatus `json:"status"`
}

// QuickResult is the outcome of a single-gene check across species.
type QuickResult struct {
	Gene    string         `json:"gene"`
	Species []QuickSpecies `json:"species_results"`
}

// QuickCheck counts publications for gene in each target species without
// extraction or model calls. An empty target list checks every supported
// species. A failed count yields level "unknown" and count -1.
func (p *Pipeline) QuickCheck(ctx context.Context, gene string, targets []string) (QuickResult, error) {
	gene = strings.TrimSpace(gene)
	if gene == "" {
		return QuickResult{}, fmt.Errorf("%w: gene name is empty", ErrValidation)
	}

	var names []string
	if len(targets) == 0 {
		for _, sp := range p.species.All() {
			names = append(names, sp.ScientificName)
		}
	} else {
		for _, t := range targets {
			sp, ok := p.species.Lookup(t)
			if !ok {
				return QuickResult{}, fmt.Errorf("%w: unknown target species %q", ErrValidation, t)
			}
			names = append(names, sp.ScientificName)
		}
	}

	out := QuickResult{Gene: gene, Species: make([]QuickSpecies, len(names))}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, sp := range names {
		g.Go(func() error {
			term := literature.GeneQuery(gene, sp)
			r := QuickSpecies{
				Species:    sp,
				CommonName: p.species.CommonName(sp),
				Query:      term,
			}
			n, err := p.lit.Count(gctx, term)
			switch {
			case gctx.Err() != nil:
				return gctx.Err()
			case err != nil:
				p.log.WarnContext(gctx, "quick check count failed", "gene", gene, "species", sp, "error", err)
				r.PublicationCount = -1
				r.Level = LevelUnknown
				r.Status = types.LookupUnavailable
			default:
				r.PublicationCount = n
				r.Level = gap.Classify(0, n)
				r.IsGap = n == 0
				r.Status = types.LookupOK
				if n == 0 {
					r.Status = types.LookupEmpty
				}
			}
			out.Species[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return QuickResult{}, err
	}
	return out, nil
}
