// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package gap classifies and ranks publication gaps. Everything here is a
// pure function of its inputs.
package gap

import (
	"math"
	"sort"

	"github.com/pdiddy/genegap/pkg/types"
)

// Thresholds on target-species publication counts. The counts are totals
// over all study types.
const (
	SevereMax   = 3
	ModerateMax = 10
	MaxScore    = 100.0
)

// Classify returns the gap level for a gene with target publications in
// the target species. The level depends on target alone; the first
// argument takes the source count so callers pass a complete observation.
func Classify(_, target int) types.GapLevel {
	switch {
	case target <= 0:
		return types.GapComplete
	case target <= SevereMax:
		return types.GapSevere
	case target <= ModerateMax:
		return types.GapModerate
	default:
		return types.GapStudied
	}
}

// Score ranks a gap. It grows with source evidence and mention frequency
// and shrinks with target evidence:
//
//	10 × log10(1+source) × (1 + log10(1+mentions)) / (target+1)
//
// rounded to one decimal and clipped to [0, MaxScore]. Negative inputs
// count as zero.
func Score(source, target, mentions int) float64 {
	s := float64(max(source, 0))
	t := float64(max(target, 0))
	m := float64(max(mentions, 0))

	raw := 10 * math.Log10(1+s) * (1 + math.Log10(1+m)) / (t + 1)
	raw = math.Round(raw*10) / 10
	return math.Min(math.Max(raw, 0), MaxScore)
}

// Record builds the GapRecord for gene in species. ok is false when the
// gene is studied there and so is not a gap.
func Record(gene types.GeneCandidate, species string, source, target int) (types.GapRecord, bool) {
	level := Classify(source, target)
	if level == types.GapStudied {
		return types.GapRecord{}, false
	}
	return types.GapRecord{
		Gene:               gene.Name,
		Species:            species,
		Level:              level,
		SourcePublications: source,
		TargetPublications: target,
		PriorityScore:      Score(source, target, gene.Mentions),
		Mentions:           gene.Mentions,
	}, true
}

// Sort orders records by priority score descending, then gene name.
func Sort(records []types.GapRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].PriorityScore != records[j].PriorityScore {
			return records[i].PriorityScore > records[j].PriorityScore
		}
		return records[i].Gene < records[j].Gene
	})
}

// Summarize aggregates one target species. Studied records are dropped.
// attempted is the number of cross-reference lookups made for the species
// and failed the number that came back unavailable.
func Summarize(species, commonName string, records []types.GapRecord, failed, attempted int) types.SpeciesGapSummary {
	s := types.SpeciesGapSummary{
		Species:       species,
		CommonName:    commonName,
		Gaps:          []types.GapRecord{},
		FailedLookups: failed,
		Status:        types.SpeciesOK,
	}
	for _, r := range records {
		if r.Level == types.GapStudied {
			continue
		}
		s.Gaps = append(s.Gaps, r)
		switch r.Level {
		case types.GapComplete:
			s.CompleteGaps++
		case types.GapSevere:
			s.SevereGaps++
		}
	}
	Sort(s.Gaps)
	s.GapCount = len(s.Gaps)
	if s.GapCount > 0 {
		s.TopPriority = s.Gaps[0].PriorityScore
	}

	switch {
	case attempted > 0 && failed >= attempted:
		s.Status = types.SpeciesFailed
	case failed > 0:
		s.Status = types.SpeciesPartial
	}
	return s
}

// Stats computes the gap tallies of a run. Extraction and summary counters
// are left for the caller.
func Stats(summaries []types.SpeciesGapSummary) types.Statistics {
	var st types.Statistics
	genes := map[string]bool{}
	for _, s := range summaries {
		st.TotalGaps += s.GapCount
		st.CompleteGaps += s.CompleteGaps
		st.SevereGaps += s.SevereGaps
		if s.GapCount > 0 {
			st.SpeciesWithGaps++
		}
		if s.Status == types.SpeciesFailed {
			st.SpeciesFailed++
		}
		for _, r := range s.Gaps {
			genes[r.Gene] = true
		}
	}
	st.UniqueGapGenes = len(genes)
	return st
}

// BestScores returns each gene's highest priority score across species.
func BestScores(summaries []types.SpeciesGapSummary) map[string]float64 {
	best := map[string]float64{}
	for _, s := range summaries {
		for _, r := range s.Gaps {
			if cur, ok := best[r.Gene]; !ok || r.PriorityScore > cur {
				best[r.Gene] = r.PriorityScore
			}
		}
	}
	return best
}
