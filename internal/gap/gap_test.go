// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gap

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/genegap/pkg/types"
)

func TestClassify(t *testing.T) {
	for target := -1; target <= 50; target++ {
		got := Classify(100, target)
		var want types.GapLevel
		switch {
		case target <= 0:
			want = types.GapComplete
		case target <= 3:
			want = types.GapSevere
		case target <= 10:
			want = types.GapModerate
		default:
			want = types.GapStudied
		}
		if got != want {
			t.Errorf("Classify(_, %d) = %s, want %s", target, got, want)
		}
	}
}

func TestClassifyIgnoresSource(t *testing.T) {
	for _, target := range []int{0, 2, 7, 11} {
		for _, source := range []int{0, 1, 45, 10000} {
			assert.Equal(t, Classify(0, target), Classify(source, target))
		}
	}
}

func TestScoreMonotonic(t *testing.T) {
	for target := 0; target <= 15; target++ {
		prev := -1.0
		for source := 0; source <= 500; source += 7 {
			s := Score(source, target, 4)
			if s < prev {
				t.Fatalf("score decreased as source grew: target=%d source=%d %.1f < %.1f", target, source, s, prev)
			}
			prev = s
		}
	}
	for source := 0; source <= 300; source += 25 {
		prev := MaxScore + 1
		for target := 0; target <= 40; target++ {
			s := Score(source, target, 4)
			if s > prev {
				t.Fatalf("score increased as target grew: source=%d target=%d %.1f > %.1f", source, target, s, prev)
			}
			prev = s
		}
	}
}

func TestScoreMentionsAndRange(t *testing.T) {
	assert.Greater(t, Score(45, 0, 12), Score(45, 0, 1))
	assert.Zero(t, Score(0, 0, 10))
	assert.Zero(t, Score(-5, -1, -2))
	assert.LessOrEqual(t, Score(1<<40, 0, 1<<40), MaxScore)

	s := Score(45, 0, 12)
	assert.InDelta(t, math.Round(s*10), s*10, 1e-9, "rounded to one decimal")
}

func TestRecordSkipsStudied(t *testing.T) {
	g := types.GeneCandidate{Name: "FT", Mentions: 3}
	_, ok := Record(g, "Zea mays", 200, 11)
	assert.False(t, ok)

	r, ok := Record(g, "Zea mays", 200, 10)
	require.True(t, ok)
	assert.Equal(t, types.GapModerate, r.Level)
	assert.Equal(t, 3, r.Mentions)
	assert.Equal(t, Score(200, 10, 3), r.PriorityScore)
}

// The drought scenario: DREB2A (12 mentions, 45 vs 0 publications) and
// CBF1 (4 mentions, 8 vs 2) against wheat.
func TestSummarizeDroughtScenario(t *testing.T) {
	dreb, ok := Record(types.GeneCandidate{Name: "DREB2A", Mentions: 12}, "Triticum aestivum", 45, 0)
	require.True(t, ok)
	cbf, ok := Record(types.GeneCandidate{Name: "CBF1", Mentions: 4}, "Triticum aestivum", 8, 2)
	require.True(t, ok)

	s := Summarize("Triticum aestivum", "Bread wheat", []types.GapRecord{cbf, dreb}, 0, 4)
	assert.Equal(t, 2, s.GapCount)
	assert.Equal(t, 1, s.CompleteGaps)
	assert.Equal(t, 1, s.SevereGaps)
	assert.Equal(t, types.SpeciesOK, s.Status)
	require.Len(t, s.Gaps, 2)
	assert.Equal(t, "DREB2A", s.Gaps[0].Gene)
	assert.Equal(t, types.GapComplete, s.Gaps[0].Level)
	assert.Equal(t, "CBF1", s.Gaps[1].Gene)
	assert.Equal(t, types.GapSevere, s.Gaps[1].Level)
	assert.Equal(t, s.Gaps[0].PriorityScore, s.TopPriority)
}

func TestSummarizeTiesBreakByName(t *testing.T) {
	recs := []types.GapRecord{
		{Gene: "ZAT12", Level: types.GapSevere, PriorityScore: 5},
		{Gene: "ABF2", Level: types.GapSevere, PriorityScore: 5},
		{Gene: "MYB2", Level: types.GapStudied, PriorityScore: 9},
	}
	s := Summarize("Zea mays", "Maize", recs, 0, 3)
	require.Len(t, s.Gaps, 2)
	assert.Equal(t, "ABF2", s.Gaps[0].Gene)
	assert.Equal(t, "ZAT12", s.Gaps[1].Gene)
}

func TestSummarizeStatus(t *testing.T) {
	assert.Equal(t, types.SpeciesFailed, Summarize("a", "", nil, 3, 3).Status)
	assert.Equal(t, types.SpeciesPartial, Summarize("a", "", nil, 1, 3).Status)
	assert.Equal(t, types.SpeciesOK, Summarize("a", "", nil, 0, 0).Status)

	failed := Summarize("a", "", nil, 2, 2)
	assert.NotNil(t, failed.Gaps, "failed species still carries an empty gap list")
	assert.Zero(t, failed.GapCount)
}

func TestStats(t *testing.T) {
	summaries := []types.SpeciesGapSummary{
		Summarize("Triticum aestivum", "", []types.GapRecord{
			{Gene: "DREB2A", Level: types.GapComplete, PriorityScore: 30},
			{Gene: "CBF1", Level: types.GapSevere, PriorityScore: 4},
		}, 0, 2),
		Summarize("Zea mays", "", []types.GapRecord{
			{Gene: "DREB2A", Level: types.GapModerate, PriorityScore: 3},
		}, 1, 2),
		Summarize("Oryza sativa", "", nil, 2, 2),
	}

	st := Stats(summaries)
	assert.Equal(t, 3, st.TotalGaps)
	assert.Equal(t, 1, st.CompleteGaps)
	assert.Equal(t, 1, st.SevereGaps)
	assert.Equal(t, 2, st.SpeciesWithGaps)
	assert.Equal(t, 1, st.SpeciesFailed)
	assert.Equal(t, 2, st.UniqueGapGenes)

	assert.Equal(t, map[string]float64{"DREB2A": 30, "CBF1": 4}, BestScores(summaries))
}
