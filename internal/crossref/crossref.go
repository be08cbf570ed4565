// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package crossref builds per-species publication profiles for a gene:
// total count, study-type breakdown, year range and trend.
package crossref

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sort"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/pdiddy/genegap/internal/literature"
	"github.com/pdiddy/genegap/internal/logging"
	"github.com/pdiddy/genegap/pkg/types"
)

// DefaultSampleSize is the number of articles fetched per (gene, species).
const DefaultSampleSize = 20

// Source is the literature lookup the profiles are built from.
type Source interface {
	SearchGene(ctx context.Context, gene, species string, max int) literature.Result
}

// Options narrows a lookup. The zero value is the pipeline's lookup.
type Options struct {
	// Filter keeps only publications of one study type in the sample.
	// Counts are unaffected.
	Filter types.StudyType

	// Max overrides the sample size.
	Max int
}

// CrossReferencer builds PublicationProfiles. It is safe for concurrent use.
type CrossReferencer struct {
	source     Source
	sampleSize int
	terms      Terms
	cache      *gocache.Cache
	log        *slog.Logger
}

// New returns a CrossReferencer. A positive cfg.CacheTTL enables a
// profile cache with that lifetime.
func New(source Source, cfg types.CrossRefConfig, log *slog.Logger) *CrossReferencer {
	x := &CrossReferencer{
		source:     source,
		sampleSize: cfg.SampleSize,
		terms:      DefaultTerms(),
		log:        log,
	}
	if x.sampleSize <= 0 {
		x.sampleSize = DefaultSampleSize
	}
	if cfg.CacheTTL > 0 {
		x.cache = gocache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}
	if x.log == nil {
		x.log = logging.Discard()
	}
	x.log = x.log.With("component", "crossref")
	return x
}

// WithTerms replaces the study-type vocabulary.
func (x *CrossReferencer) WithTerms(t Terms) *CrossReferencer {
	x.terms = t
	return x
}

// Profile returns the publication profile for gene in species.
func (x *CrossReferencer) Profile(ctx context.Context, gene, species string) types.PublicationProfile {
	return x.Lookup(ctx, gene, species, Options{})
}

// Lookup returns the publication profile for gene in species, narrowed by
// opts. Failed lookups come back with status unavailable and are never cached.
func (x *CrossReferencer) Lookup(ctx context.Context, gene, species string, opts Options) types.PublicationProfile {
	limit := opts.Max
	if limit <= 0 {
		limit = x.sampleSize
	}
	key := cacheKey(gene, species, opts.Filter, limit)

	if x.cache != nil {
		if v, ok := x.cache.Get(key); ok {
			return clone(v.(types.PublicationProfile))
		}
	}

	start := time.Now()
	res := x.source.SearchGene(ctx, gene, species, limit)
	p := x.build(gene, species, res, opts.Filter)

	x.log.DebugContext(ctx, "profile built",
		"gene", gene, "species", species, "status", p.Status,
		"total", p.Total, "elapsed", time.Since(start))

	if x.cache != nil && p.Available() {
		x.cache.Set(key, clone(p), gocache.DefaultExpiration)
	}
	return p
}

func (x *CrossReferencer) build(gene, species string, res literature.Result, filter types.StudyType) types.PublicationProfile {
	p := types.PublicationProfile{
		Gene:    gene,
		Species: species,
		Query:   res.Query,
		ByStudyType: map[types.StudyType]int{
			types.StudyAssociation: 0,
			types.StudyFunctional:  0,
			types.StudyUnknown:     0,
		},
		Trend: types.TrendFlat,
	}

	switch res.Status {
	case literature.StatusFailed:
		p.Status = types.LookupUnavailable
		return p
	case literature.StatusEmpty:
		p.Status = types.LookupEmpty
		return p
	}
	p.Status = types.LookupOK
	p.Total = res.Total

	var years []int
	for _, a := range res.Articles {
		st := x.terms.Classify(a)
		p.ByStudyType[st]++
		if a.Year > 0 {
			years = append(years, a.Year)
		}
		if filter != "" && st != filter {
			continue
		}
		p.Publications = append(p.Publications, types.Publication{
			PMID:      a.ID,
			Title:     a.Title,
			Authors:   shortAuthors(a.Authors),
			Journal:   a.Journal,
			Year:      a.Year,
			URL:       a.URL,
			IsGWAS:    x.terms.IsGenomeWide(a),
			StudyType: st,
		})
	}
	// A count query may return hits without a sample.
	if p.Total < len(res.Articles) {
		p.Total = len(res.Articles)
	}

	p.Earliest, p.Latest = yearRange(years)
	p.Trend = Trend(years)

	sort.SliceStable(p.Publications, func(i, j int) bool {
		a, b := p.Publications[i], p.Publications[j]
		if a.IsGWAS != b.IsGWAS {
			return a.IsGWAS
		}
		return a.Year > b.Year
	})
	return p
}

// Trend compares the article counts in the most recent third of the year
// range with the earliest third. Fewer than two distinct years is flat.
func Trend(years []int) types.Trend {
	if len(years) == 0 {
		return types.TrendFlat
	}
	lo, hi := yearRange(years)
	if lo == hi {
		return types.TrendFlat
	}

	third := float64(hi-lo) / 3
	earlyEnd := float64(lo) + third
	recentStart := float64(hi) - third

	var early, recent int
	for _, y := range years {
		fy := float64(y)
		if fy <= earlyEnd {
			early++
		}
		if fy >= recentStart {
			recent++
		}
	}
	switch {
	case recent > early:
		return types.TrendIncreasing
	case recent < early:
		return types.TrendDecreasing
	default:
		return types.TrendFlat
	}
}

func yearRange(years []int) (int, int) {
	if len(years) == 0 {
		return 0, 0
	}
	lo, hi := years[0], years[0]
	for _, y := range years[1:] {
		lo = min(lo, y)
		hi = max(hi, y)
	}
	return lo, hi
}

// shortAuthors lists the first three authors and elides the rest.
func shortAuthors(authors []string) string {
	if len(authors) <= 3 {
		return strings.Join(authors, ", ")
	}
	return strings.Join(authors[:3], ", ") + "..."
}

func cacheKey(gene, species string, filter types.StudyType, limit int) string {
	return fmt.Sprintf("%s|%s|%s|%d",
		types.NormalizeGeneName(gene), strings.ToLower(strings.Join(strings.Fields(species), " ")), filter, limit)
}

func clone(p types.PublicationProfile) types.PublicationProfile {
	p.ByStudyType = maps.Clone(p.ByStudyType)
	p.Publications = append([]types.Publication(nil), p.Publications...)
	return p
}
