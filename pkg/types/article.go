// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the genegap pipeline:
// the analysis query, literature records, gene candidates, publication
// profiles, gap records and the assembled analysis result.
package types

import (
	"strings"
)

// Query is one gap analysis request. The pipeline copies it on entry and
// never mutates it afterwards.
type Query struct {
	// Text is the free-text research query (e.g. "drought stress signaling").
	Text string `json:"query" yaml:"query"`

	// SourceSpecies is the scientific name of the well-studied organism.
	SourceSpecies string `json:"source_species" yaml:"source_species"`

	// TargetSpecies is the ordered set of organisms checked for gaps.
	TargetSpecies []string `json:"target_species" yaml:"target_species"`

	// MaxArticles caps the number of source-species articles retrieved.
	MaxArticles int `json:"max_articles" yaml:"max_articles"`

	// Model is the language model identifier used for extraction and summaries.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`
}

// Clone returns a deep copy of q.
func (q Query) Clone() Query {
	c := q
	c.TargetSpecies = append([]string(nil), q.TargetSpecies...)
	return c
}

// Article is a normalized literature record returned by the literature source.
type Article struct {
	// ID is the upstream identifier (PubMed PMID).
	ID string `json:"pmid" yaml:"pmid"`

	Title    string   `json:"title" yaml:"title"`
	Abstract string   `json:"abstract" yaml:"abstract"`
	Authors  []string `json:"authors" yaml:"authors"`
	Journal  string   `json:"journal" yaml:"journal"`

	// Year is the publication year, or 0 when the record carries none.
	Year int `json:"year" yaml:"year"`

	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	URL      string   `json:"url" yaml:"url"`

	// Species is the organism the search was restricted to.
	Species string `json:"species,omitempty" yaml:"species,omitempty"`
}

// GeneCandidate is a gene mentioned in the retrieved source-species literature.
type GeneCandidate struct {
	// Name is the canonical spelling: the most frequently seen casing.
	Name string `json:"name" yaml:"name"`

	Symbol string `json:"symbol,omitempty" yaml:"symbol,omitempty"`

	// Mentions counts distinct articles the gene was extracted from.
	Mentions int `json:"mentions" yaml:"mentions"`

	// ArticleIDs lists the articles the gene was seen in.
	ArticleIDs []string `json:"article_ids,omitempty" yaml:"article_ids,omitempty"`

	// Functions holds short function notes returned alongside the gene.
	Functions []string `json:"functions,omitempty" yaml:"functions,omitempty"`
}

// NormalizeGeneName returns the deduplication key for a gene name:
// lower-cased with surrounding whitespace removed and inner runs collapsed.
func NormalizeGeneName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
