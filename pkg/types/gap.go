// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// StudyType is the coarse kind of a publication as inferred from its text.
type StudyType string

const (
	StudyAssociation StudyType = "association"
	StudyFunctional  StudyType = "functional"
	StudyUnknown     StudyType = "unknown"
)

// Trend is the direction of publication counts across the observed years.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendFlat       Trend = "flat"
)

// LookupStatus reports how a literature lookup ended. Callers must treat
// "empty" and "unavailable" as different outcomes even though both carry
// zero publications.
type LookupStatus string

const (
	LookupOK          LookupStatus = "ok"
	LookupEmpty       LookupStatus = "empty"
	LookupUnavailable LookupStatus = "unavailable"
)

// Publication is one sampled article inside a PublicationProfile.
type Publication struct {
	PMID      string    `json:"pmid" yaml:"pmid"`
	Title     string    `json:"title" yaml:"title"`
	Authors   string    `json:"authors" yaml:"authors"`
	Journal   string    `json:"journal" yaml:"journal"`
	Year      int       `json:"year" yaml:"year"`
	URL       string    `json:"url" yaml:"url"`
	IsGWAS    bool      `json:"is_gwas" yaml:"is_gwas"`
	StudyType StudyType `json:"study_type" yaml:"study_type"`
}

// PublicationProfile summarizes the literature for one (gene, species) pair.
type PublicationProfile struct {
	Gene    string `json:"gene" yaml:"gene"`
	Species string `json:"species" yaml:"species"`

	// Total is the upstream hit count, not the number of sampled articles.
	Total int `json:"total_count" yaml:"total_count"`

	ByStudyType map[StudyType]int `json:"by_study_type" yaml:"by_study_type"`

	// Earliest and Latest bound the sampled publication years (0 if none).
	Earliest int `json:"earliest" yaml:"earliest"`
	Latest   int `json:"latest" yaml:"latest"`

	Trend Trend `json:"trend" yaml:"trend"`

	// Query is the upstream query string, usable for deep links.
	Query string `json:"query" yaml:"query"`

	Status LookupStatus `json:"status" yaml:"status"`

	Publications []Publication `json:"publications,omitempty" yaml:"publications,omitempty"`
}

// Available reports whether the lookup produced a usable count.
func (p PublicationProfile) Available() bool {
	return p.Status == LookupOK || p.Status == LookupEmpty
}

// GapLevel buckets a target species' publication count.
type GapLevel string

const (
	GapComplete GapLevel = "complete_gap"
	GapSevere   GapLevel = "severe_gap"
	GapModerate GapLevel = "moderate_gap"
	GapStudied  GapLevel = "studied"
)

// GapRecord is one under-published (gene, target species) pair.
type GapRecord struct {
	Gene               string   `json:"gene" yaml:"gene"`
	Species            string   `json:"-" yaml:"species"`
	Level              GapLevel `json:"gap_level" yaml:"gap_level"`
	SourcePublications int      `json:"source_publications" yaml:"source_publications"`
	TargetPublications int      `json:"target_publications" yaml:"target_publications"`
	PriorityScore      float64  `json:"priority_score" yaml:"priority_score"`
	Mentions           int      `json:"mentions" yaml:"mentions"`
}

// SpeciesStatus reports whether all cross-reference lookups for a target
// species succeeded.
type SpeciesStatus string

const (
	SpeciesOK      SpeciesStatus = "ok"
	SpeciesPartial SpeciesStatus = "partial"
	SpeciesFailed  SpeciesStatus = "failed"
)

// SpeciesGapSummary aggregates the gap records of one target species.
type SpeciesGapSummary struct {
	Species       string        `json:"species" yaml:"species"`
	CommonName    string        `json:"common_name" yaml:"common_name"`
	Gaps          []GapRecord   `json:"missing_genes" yaml:"missing_genes"`
	GapCount      int           `json:"gap_count" yaml:"gap_count"`
	CompleteGaps  int           `json:"complete_gaps" yaml:"complete_gaps"`
	SevereGaps    int           `json:"severe_gaps" yaml:"severe_gaps"`
	TopPriority   float64       `json:"top_priority" yaml:"top_priority"`
	Status        SpeciesStatus `json:"status" yaml:"status"`
	FailedLookups int           `json:"failed_lookups" yaml:"failed_lookups"`
}

// Statistics holds run-level counters.
type Statistics struct {
	TotalGaps       int `json:"total_gaps" yaml:"total_gaps"`
	CompleteGaps    int `json:"complete_gaps" yaml:"complete_gaps"`
	SevereGaps      int `json:"severe_gaps" yaml:"severe_gaps"`
	SpeciesWithGaps int `json:"species_with_gaps" yaml:"species_with_gaps"`
	SpeciesFailed   int `json:"species_failed" yaml:"species_failed"`
	UniqueGapGenes  int `json:"unique_gap_genes" yaml:"unique_gap_genes"`

	GenesExtracted int `json:"genes_extracted" yaml:"genes_extracted"`
	GenesChecked   int `json:"genes_checked" yaml:"genes_checked"`

	// GenesSkipped counts checked genes dropped because their
	// source-species lookup failed or found no publications.
	GenesSkipped int `json:"genes_skipped" yaml:"genes_skipped"`

	ExtractionBatches       int  `json:"extraction_batches" yaml:"extraction_batches"`
	ExtractionBatchesFailed int  `json:"extraction_batches_failed" yaml:"extraction_batches_failed"`
	NoGenesExtracted        bool `json:"no_genes_extracted" yaml:"no_genes_extracted"`

	SummariesGenerated int `json:"summaries_generated" yaml:"summaries_generated"`
}

// AnalysisResult is the terminal artifact of one pipeline run.
type AnalysisResult struct {
	ID               string              `json:"id" yaml:"id"`
	Query            Query               `json:"query" yaml:"query"`
	ArticlesAnalyzed int                 `json:"articles_analyzed" yaml:"articles_analyzed"`
	Genes            []GeneCandidate     `json:"genes_found" yaml:"genes_found"`
	Gaps             []SpeciesGapSummary `json:"gaps" yaml:"gaps"`

	// Summaries is sparse: a missing gene means no summary was produced.
	// Model output is not deterministic, so this is the one field that may
	// differ between runs over identical upstream data.
	Summaries map[string]string `json:"gene_summaries" yaml:"gene_summaries"`

	Statistics Statistics `json:"statistics" yaml:"statistics"`
	Warnings   []string   `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	CreatedAt  time.Time  `json:"created_at" yaml:"created_at"`
}

// HasGene reports whether name is one of the result's gene candidates.
func (r *AnalysisResult) HasGene(name string) bool {
	for _, g := range r.Genes {
		if g.Name == name {
			return true
		}
	}
	return false
}
