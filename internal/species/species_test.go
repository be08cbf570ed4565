// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package species

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTable(t *testing.T) {
	tbl := Default()
	all := tbl.All()
	require.Len(t, all, 20)
	assert.Equal(t, "Arabidopsis thaliana", all[0].ScientificName)
}

func TestLookup(t *testing.T) {
	tbl := Default()

	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{"exact", "Triticum aestivum", "Bread wheat", true},
		{"case and spaces", "  triticum   AESTIVUM ", "Bread wheat", true},
		{"unknown", "Homo sapiens", "", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ok := tbl.Lookup(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, s.CommonName)
		})
	}
}

func TestEnsemblName(t *testing.T) {
	tbl := Default()
	assert.Equal(t, "oryza_sativa", tbl.EnsemblName("Oryza sativa"))
	assert.Equal(t, "marchantia_polymorpha", tbl.EnsemblName("Marchantia  polymorpha"))
}

func TestTaxIDAndCommonName(t *testing.T) {
	tbl := Default()
	assert.Equal(t, "4577", tbl.TaxID("Zea mays"))
	assert.Equal(t, "Maize", tbl.CommonName("zea mays"))
	assert.Empty(t, tbl.TaxID("Homo sapiens"))
}

func TestParseRejectsDuplicates(t *testing.T) {
	_, err := Parse([]byte(`
- scientific_name: Zea mays
- scientific_name: zea  mays
`))
	assert.ErrorContains(t, err, "duplicate")
}

func TestParseRejectsMissingName(t *testing.T) {
	_, err := Parse([]byte(`- common_name: Maize`))
	assert.Error(t, err)
}
