// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// GOTerm is one Gene Ontology annotation.
type GOTerm struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// GOTerms holds the GO annotations and pathways found for a gene.
// Success is false when nothing was found or the services were unavailable.
type GOTerms struct {
	Success            bool     `json:"success" yaml:"success"`
	Gene               string   `json:"gene" yaml:"gene"`
	Description        string   `json:"description,omitempty" yaml:"description,omitempty"`
	UniProtID          string   `json:"uniprot_id,omitempty" yaml:"uniprot_id,omitempty"`
	MolecularFunction  []GOTerm `json:"molecular_function" yaml:"molecular_function"`
	BiologicalProcess  []GOTerm `json:"biological_process" yaml:"biological_process"`
	CellularComponent  []GOTerm `json:"cellular_component" yaml:"cellular_component"`
	Pathways           []string `json:"pathways" yaml:"pathways"`
	Source             string   `json:"source,omitempty" yaml:"source,omitempty"`
	Error              string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// HasData reports whether any annotation was found.
func (g GOTerms) HasData() bool {
	return g.Description != "" || len(g.MolecularFunction) > 0 ||
		len(g.BiologicalProcess) > 0 || len(g.CellularComponent) > 0
}

// Confidence grades an ortholog call.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Ortholog describes the best ortholog found in the target species.
type Ortholog struct {
	TargetGene       string     `json:"target_gene" yaml:"target_gene"`
	TargetProtein    string     `json:"target_protein,omitempty" yaml:"target_protein,omitempty"`
	SequenceIdentity float64    `json:"sequence_identity" yaml:"sequence_identity"`
	QueryCoverage    float64    `json:"query_coverage" yaml:"query_coverage"`
	OrthologType     string     `json:"ortholog_type" yaml:"ortholog_type"`
	Confidence       Confidence `json:"confidence" yaml:"confidence"`
	ConfidenceScore  int        `json:"confidence_score" yaml:"confidence_score"`
	EnsemblURL       string     `json:"ensembl_url" yaml:"ensembl_url"`
}

// OrthologResult is the outcome of an ortholog lookup.
type OrthologResult struct {
	Success        bool      `json:"success" yaml:"success"`
	Gene           string    `json:"gene" yaml:"gene"`
	SourceSpecies  string    `json:"source_species" yaml:"source_species"`
	TargetSpecies  string    `json:"target_species" yaml:"target_species"`
	Found          bool      `json:"ortholog_found" yaml:"ortholog_found"`
	Ortholog       *Ortholog `json:"ortholog,omitempty" yaml:"ortholog,omitempty"`
	TotalOrthologs int       `json:"total_orthologs,omitempty" yaml:"total_orthologs,omitempty"`
	Message        string    `json:"message,omitempty" yaml:"message,omitempty"`
	Error          string    `json:"error,omitempty" yaml:"error,omitempty"`
}

// Grant is one funded research project.
type Grant struct {
	Title      string  `json:"title" yaml:"title"`
	PI         string  `json:"pi" yaml:"pi"`
	Org        string  `json:"org" yaml:"org"`
	Amount     float64 `json:"amount,omitempty" yaml:"amount,omitempty"`
	Start      string  `json:"start" yaml:"start"`
	End        string  `json:"end" yaml:"end"`
	ProjectNum string  `json:"project_num" yaml:"project_num"`
	Link       string  `json:"link,omitempty" yaml:"link,omitempty"`
}

// FundingResult is the outcome of a funding search.
type FundingResult struct {
	Success    bool    `json:"success" yaml:"success"`
	Gene       string  `json:"gene" yaml:"gene"`
	TotalFound int     `json:"total_found" yaml:"total_found"`
	Grants     []Grant `json:"grants" yaml:"grants"`
	Error      string  `json:"error,omitempty" yaml:"error,omitempty"`
}
