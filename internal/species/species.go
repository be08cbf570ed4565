// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package species holds the table of supported plant species. Every species
// name accepted by the API is validated against it.
package species

import (
	_ "embed"
	"fmt"
	"strings"

	"go.yaml.in/yaml/v3"
)

//go:embed species.yaml
var tableYAML []byte

// Species is one supported organism.
type Species struct {
	ScientificName string `json:"scientific_name" yaml:"scientific_name"`
	CommonName     string `json:"common_name" yaml:"common_name"`
	TaxID          string `json:"taxid" yaml:"taxid"`
	Ensembl        string `json:"-" yaml:"ensembl"`
}

// Table is an ordered, read-only species lookup.
type Table struct {
	list   []Species
	byName map[string]int
}

// Default returns the table embedded in the binary.
func Default() *Table {
	t, err := Parse(tableYAML)
	if err != nil {
		panic(fmt.Sprintf("species: embedded table: %v", err))
	}
	return t
}

// Parse builds a Table from YAML. Duplicate scientific names are rejected.
func Parse(data []byte) (*Table, error) {
	var list []Species
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parsing species table: %w", err)
	}
	t := &Table{byName: make(map[string]int, len(list))}
	for _, s := range list {
		if s.ScientificName == "" {
			return nil, fmt.Errorf("species entry without scientific_name")
		}
		key := normalize(s.ScientificName)
		if _, dup := t.byName[key]; dup {
			return nil, fmt.Errorf("duplicate species %q", s.ScientificName)
		}
		t.byName[key] = len(t.list)
		t.list = append(t.list, s)
	}
	return t, nil
}

// All returns the species in table order.
func (t *Table) All() []Species {
	return append([]Species(nil), t.list...)
}

// Lookup finds a species by scientific name, ignoring case and extra spaces.
func (t *Table) Lookup(name string) (Species, bool) {
	idx, ok := t.byName[normalize(name)]
	if !ok {
		return Species{}, false
	}
	return t.list[idx], true
}

// CommonName returns the common name for a species, or "" if unknown.
func (t *Table) CommonName(name string) string {
	s, _ := t.Lookup(name)
	return s.CommonName
}

// EnsemblName returns the Ensembl production name for a species. Unknown
// species fall back to the lower-cased, underscore-joined scientific name.
func (t *Table) EnsemblName(name string) string {
	if s, ok := t.Lookup(name); ok && s.Ensembl != "" {
		return s.Ensembl
	}
	return strings.ToLower(strings.Join(strings.Fields(name), "_"))
}

// TaxID returns the NCBI taxonomy id for a species, or "" if unknown.
func (t *Table) TaxID(name string) string {
	s, _ := t.Lookup(name)
	return s.TaxID
}

func normalize(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
