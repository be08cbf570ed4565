// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package crossref

import (
	"strings"

	"github.com/pdiddy/genegap/pkg/types"
)

// Terms is the keyword vocabulary used to classify publications. Matching
// is case-insensitive substring search over title, abstract and keywords.
type Terms struct {
	Association []string `yaml:"association"`
	Functional  []string `yaml:"functional"`
	GenomeWide  []string `yaml:"genome_wide"`
}

// DefaultTerms returns the built-in vocabulary.
func DefaultTerms() Terms {
	return Terms{
		Association: []string{
			"genome-wide association", "genome wide association", "gwas", "gwa study",
			"association mapping", "association study", "association analysis",
			"qtl", "quantitative trait loc", "linkage mapping", "marker-trait",
			"haplotype", "natural variation",
		},
		Functional: []string{
			"knockout", "knock-out", "knockdown", "overexpress", "over-express",
			"crispr", "cas9", "mutant", "transgenic", "rnai", "t-dna",
			"loss-of-function", "gain-of-function", "complementation",
			"gene silencing", "subcellular locali", "yeast two-hybrid",
		},
		GenomeWide: []string{
			"genome-wide", "genome wide", "gwas", "gwa study", "whole-genome",
			"whole genome", "transcriptome-wide", "transcriptome wide", "rna-seq",
			"chip-seq", "atac-seq", "genome analysis", "pan-genome",
		},
	}
}

// Classify returns the study type of a. Association vocabulary wins when
// both kinds match.
func (t Terms) Classify(a types.Article) types.StudyType {
	text := searchText(a)
	switch {
	case containsAny(text, t.Association):
		return types.StudyAssociation
	case containsAny(text, t.Functional):
		return types.StudyFunctional
	default:
		return types.StudyUnknown
	}
}

// IsGenomeWide reports whether a describes a genome-scale study.
func (t Terms) IsGenomeWide(a types.Article) bool {
	return containsAny(searchText(a), t.GenomeWide)
}

func searchText(a types.Article) string {
	return strings.ToLower(a.Title + " " + a.Abstract + " " + strings.Join(a.Keywords, " "))
}

func containsAny(text string, terms []string) bool {
	for _, term := range terms {
		if term != "" && strings.Contains(text, term) {
			return true
		}
	}
	return false
}
