// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package crossref

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/genegap/internal/literature"
	"github.com/pdiddy/genegap/pkg/types"
)

type fakeSource struct {
	result literature.Result
	calls  atomic.Int32
	max    int
}

func (f *fakeSource) SearchGene(_ context.Context, gene, species string, max int) literature.Result {
	f.calls.Add(1)
	f.max = max
	r := f.result
	r.Query = literature.GeneQuery(gene, species)
	return r
}

func okResult(total int, arts ...types.Article) literature.Result {
	return literature.Result{Status: literature.StatusOK, Total: total, Articles: arts}
}

func TestProfile_BuildsBreakdown(t *testing.T) {
	src := &fakeSource{result: okResult(45,
		types.Article{ID: "1", Title: "A GWAS of drought tolerance", Year: 2012, Authors: []string{"A", "B", "C", "D"}},
		types.Article{ID: "2", Title: "dreb2a knockout plants", Year: 2020},
		types.Article{ID: "3", Title: "Overexpression and QTL mapping", Year: 2021},
		types.Article{ID: "4", Title: "A review", Year: 2022},
	)}
	x := New(src, types.CrossRefConfig{}, nil)

	p := x.Profile(context.Background(), "DREB2A", "Arabidopsis thaliana")
	assert.Equal(t, types.LookupOK, p.Status)
	assert.Equal(t, 45, p.Total)
	assert.Equal(t, `"DREB2A" AND "Arabidopsis thaliana"`, p.Query)
	assert.Equal(t, map[types.StudyType]int{
		types.StudyAssociation: 2,
		types.StudyFunctional:  1,
		types.StudyUnknown:     1,
	}, p.ByStudyType)
	assert.Equal(t, 2012, p.Earliest)
	assert.Equal(t, 2022, p.Latest)
	assert.Equal(t, types.TrendIncreasing, p.Trend)
	assert.Equal(t, DefaultSampleSize, src.max)

	require.Len(t, p.Publications, 4)
	assert.Equal(t, "1", p.Publications[0].PMID, "genome-wide studies sort first")
	assert.True(t, p.Publications[0].IsGWAS)
	assert.Equal(t, "A, B, C...", p.Publications[0].Authors)
	assert.Equal(t, "4", p.Publications[1].PMID, "then newest first")
}

func TestProfile_EmptyAndUnavailableDiffer(t *testing.T) {
	empty := New(&fakeSource{result: literature.Result{Status: literature.StatusEmpty}}, types.CrossRefConfig{}, nil).
		Profile(context.Background(), "CBF1", "Triticum aestivum")
	failed := New(&fakeSource{result: literature.Result{Status: literature.StatusFailed, Err: errors.New("503")}}, types.CrossRefConfig{}, nil).
		Profile(context.Background(), "CBF1", "Triticum aestivum")

	assert.Equal(t, types.LookupEmpty, empty.Status)
	assert.True(t, empty.Available())
	assert.Equal(t, types.LookupUnavailable, failed.Status)
	assert.False(t, failed.Available())
	assert.Zero(t, empty.Total)
	assert.Zero(t, failed.Total)
}

func TestLookup_FilterKeepsCounts(t *testing.T) {
	src := &fakeSource{result: okResult(3,
		types.Article{ID: "1", Title: "GWAS of flowering time", Year: 2015},
		types.Article{ID: "2", Title: "ft mutant analysis", Year: 2016},
	)}
	x := New(src, types.CrossRefConfig{}, nil)

	p := x.Lookup(context.Background(), "FT", "Zea mays", Options{Filter: types.StudyFunctional, Max: 5})
	assert.Equal(t, 3, p.Total)
	assert.Equal(t, 1, p.ByStudyType[types.StudyAssociation])
	require.Len(t, p.Publications, 1)
	assert.Equal(t, "2", p.Publications[0].PMID)
	assert.Equal(t, 5, src.max)
}

func TestLookup_Cache(t *testing.T) {
	src := &fakeSource{result: okResult(2, types.Article{ID: "1", Title: "x", Year: 2010})}
	x := New(src, types.CrossRefConfig{CacheTTL: time.Hour}, nil)
	ctx := context.Background()

	first := x.Profile(ctx, "FT", "Zea mays")
	first.ByStudyType[types.StudyUnknown] = 99 // callers must not corrupt the cache

	second := x.Profile(ctx, " ft ", "zea  MAYS")
	assert.Equal(t, int32(1), src.calls.Load(), "normalized key hits the cache")
	assert.Equal(t, 1, second.ByStudyType[types.StudyUnknown])

	x.Lookup(ctx, "FT", "Zea mays", Options{Filter: types.StudyAssociation})
	assert.Equal(t, int32(2), src.calls.Load(), "filter is part of the key")
}

func TestLookup_CacheSkipsFailures(t *testing.T) {
	src := &fakeSource{result: literature.Result{Status: literature.StatusFailed}}
	x := New(src, types.CrossRefConfig{CacheTTL: time.Hour}, nil)

	x.Profile(context.Background(), "FT", "Zea mays")
	x.Profile(context.Background(), "FT", "Zea mays")
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestLookup_NoCacheWithoutTTL(t *testing.T) {
	src := &fakeSource{result: okResult(1, types.Article{ID: "1"})}
	x := New(src, types.CrossRefConfig{}, nil)

	x.Profile(context.Background(), "FT", "Zea mays")
	x.Profile(context.Background(), "FT", "Zea mays")
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestTrend(t *testing.T) {
	tests := []struct {
		name  string
		years []int
		want  types.Trend
	}{
		{"none", nil, types.TrendFlat},
		{"single year", []int{2020, 2020, 2020}, types.TrendFlat},
		{"two years rising", []int{2019, 2020, 2020}, types.TrendIncreasing},
		{"two years falling", []int{2019, 2019, 2020}, types.TrendDecreasing},
		{"balanced", []int{2000, 2005, 2010}, types.TrendFlat},
		{"recent heavy", []int{2000, 2009, 2010, 2010}, types.TrendIncreasing},
		{"old heavy", []int{2000, 2001, 2002, 2010}, types.TrendDecreasing},
		{"middle ignored", []int{2000, 2005, 2005, 2005, 2010}, types.TrendFlat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Trend(tt.years))
		})
	}
}

func TestTermsClassify(t *testing.T) {
	terms := DefaultTerms()
	tests := []struct {
		article types.Article
		want    types.StudyType
	}{
		{types.Article{Title: "Genome-wide association study of yield"}, types.StudyAssociation},
		{types.Article{Abstract: "CRISPR/Cas9 knockout lines"}, types.StudyFunctional},
		{types.Article{Title: "QTL", Abstract: "transgenic validation"}, types.StudyAssociation},
		{types.Article{Keywords: []string{"Overexpression"}}, types.StudyFunctional},
		{types.Article{Title: "A review of stress signaling"}, types.StudyUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, terms.Classify(tt.article), tt.article.Title+tt.article.Abstract)
	}

	assert.True(t, terms.IsGenomeWide(types.Article{Abstract: "RNA-seq profiling"}))
	assert.False(t, terms.IsGenomeWide(types.Article{Abstract: "qPCR profiling"}))
}

func TestWithTerms(t *testing.T) {
	src := &fakeSource{result: okResult(1, types.Article{ID: "1", Title: "phenotyping screen"})}
	x := New(src, types.CrossRefConfig{}, nil).WithTerms(Terms{Functional: []string{"phenotyping"}})

	p := x.Profile(context.Background(), "FT", "Zea mays")
	assert.Equal(t, 1, p.ByStudyType[types.StudyFunctional])
}
