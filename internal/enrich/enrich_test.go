// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"encoding/json"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/genegap/internal/httputil"
	"github.com/pdiddy/genegap/pkg/types"
)

func TestMain(m *testing.M) {
	httputil.RetryBaseDelay = time.Millisecond
	os.Exit(m.Run())
}

func setupHTTPMock(t *testing.T) *Service {
	t.Helper()
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)
	return New(types.EnrichmentConfig{}, nil, nil, nil)
}

const uniprotDREB2A = `{"results":[{
  "primaryAccession":"O82132",
  "proteinDescription":{"recommendedName":{"fullName":{"value":"Dehydration-responsive element-binding protein 2A"}}},
  "uniProtKBCrossReferences":[
    {"database":"GO","id":"GO:0003700","properties":[{"key":"GoTerm","value":"F:DNA-binding transcription factor activity"}]},
    {"database":"GO","id":"GO:0009414","properties":[{"key":"GoTerm","value":"P:response to water deprivation"}]},
    {"database":"GO","id":"GO:0005634","properties":[{"key":"GoTerm","value":"C:nucleus"}]},
    {"database":"GO","id":"GO:0005634","properties":[{"key":"GoTerm","value":"C:nucleus"}]},
    {"database":"PDB","id":"5WX9"}
  ],
  "comments":[{"commentType":"PATHWAY","texts":[{"value":"Stress signaling"}]}]
}]}`

func TestLookupGO_UniProt(t *testing.T) {
	s := setupHTTPMock(t)

	var queries []string
	httpmock.RegisterResponder(http.MethodGet, "https://rest.uniprot.org/uniprotkb/search",
		func(req *http.Request) (*http.Response, error) {
			q := req.URL.Query().Get("query")
			queries = append(queries, q)
			if q == "gene_exact:DREB2A AND organism_id:3702" {
				return httpmock.NewStringResponse(http.StatusOK, uniprotDREB2A), nil
			}
			return httpmock.NewStringResponse(http.StatusOK, `{"results":[]}`), nil
		})

	got := s.LookupGO(t.Context(), "DREB2A", "Arabidopsis thaliana")
	require.True(t, got.Success, got.Error)
	assert.Equal(t, []string{"gene:DREB2A AND organism_id:3702", "gene_exact:DREB2A AND organism_id:3702"}, queries)
	assert.Equal(t, "UniProt", got.Source)
	assert.Equal(t, "O82132", got.UniProtID)
	assert.Equal(t, "Dehydration-responsive element-binding protein 2A", got.Description)
	assert.Equal(t, []types.GOTerm{{ID: "GO:0003700", Name: "DNA-binding transcription factor activity"}}, got.MolecularFunction)
	assert.Equal(t, []types.GOTerm{{ID: "GO:0009414", Name: "response to water deprivation"}}, got.BiologicalProcess)
	assert.Len(t, got.CellularComponent, 1)
	assert.Equal(t, []string{"Stress signaling"}, got.Pathways)
}

func TestLookupGO_QuickGOFallback(t *testing.T) {
	s := setupHTTPMock(t)
	httpmock.RegisterResponder(http.MethodGet, "https://rest.uniprot.org/uniprotkb/search",
		httpmock.NewStringResponder(http.StatusOK, `{"results":[]}`))
	httpmock.RegisterResponder(http.MethodGet, "https://www.ebi.ac.uk/QuickGO/services/annotation/search",
		httpmock.NewStringResponder(http.StatusOK, `{"results":[
			{"goId":"GO:0006355","goName":"regulation of transcription","goAspect":"biological_process"},
			{"goId":"GO:0006355","goName":"regulation of transcription","goAspect":"biological_process"},
			{"goId":"GO:0003677","goName":"DNA binding","goAspect":"molecular_function"}
		]}`))

	got := s.LookupGO(t.Context(), "CBF1", "")
	require.True(t, got.Success)
	assert.Equal(t, "QuickGO", got.Source)
	assert.Len(t, got.BiologicalProcess, 1)
	assert.Len(t, got.MolecularFunction, 1)
	assert.NotNil(t, got.CellularComponent)
}

func TestLookupGO_NotFound(t *testing.T) {
	s := setupHTTPMock(t)
	httpmock.RegisterResponder(http.MethodGet, "https://rest.uniprot.org/uniprotkb/search",
		httpmock.NewStringResponder(http.StatusOK, `{"results":[]}`))
	httpmock.RegisterResponder(http.MethodGet, "https://www.ebi.ac.uk/QuickGO/services/annotation/search",
		httpmock.NewStringResponder(http.StatusBadRequest, `{}`))

	got := s.LookupGO(t.Context(), "NOPE1", "Zea mays")
	assert.False(t, got.Success)
	assert.Contains(t, got.Error, "no GO annotations found")
	assert.NotNil(t, got.MolecularFunction)
}

func TestLookupGO_UpstreamDown(t *testing.T) {
	s := setupHTTPMock(t)
	httpmock.RegisterResponder(http.MethodGet, "https://rest.uniprot.org/uniprotkb/search",
		httpmock.NewStringResponder(http.StatusInternalServerError, ""))
	httpmock.RegisterResponder(http.MethodGet, "https://www.ebi.ac.uk/QuickGO/services/annotation/search",
		httpmock.NewStringResponder(http.StatusInternalServerError, ""))

	got := s.LookupGO(t.Context(), "FT", "Zea mays")
	assert.False(t, got.Success)
	assert.Contains(t, got.Error, "GO lookup failed")
}

func TestLookupGO_CachesSuccess(t *testing.T) {
	s := setupHTTPMock(t)
	httpmock.RegisterResponder(http.MethodGet, "https://rest.uniprot.org/uniprotkb/search",
		httpmock.NewStringResponder(http.StatusOK, uniprotDREB2A))

	s.LookupGO(t.Context(), "DREB2A", "Arabidopsis thaliana")
	s.LookupGO(t.Context(), "dreb2a", "arabidopsis  thaliana")
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestLookupOrtholog_Plants(t *testing.T) {
	s := setupHTTPMock(t)
	httpmock.RegisterResponder(http.MethodGet, "https://rest.ensembl.plants.org/xrefs/symbol/arabidopsis_thaliana/DREB2A",
		httpmock.NewStringResponder(http.StatusOK, `[{"id":"AT5G05410.1","type":"translation"},{"id":"AT5G05410","type":"gene"}]`))
	httpmock.RegisterResponder(http.MethodGet, "https://rest.ensembl.plants.org/homology/id/arabidopsis_thaliana/AT5G05410",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "triticum_aestivum", req.URL.Query().Get("target_species"))
			return httpmock.NewStringResponse(http.StatusOK, `{"data":[{"homologies":[
				{"type":"ortholog_one2many","target":{"id":"TraesCS1A","protein_id":"TraesCS1A.1","perc_id":60.04,"perc_pos":71.2}},
				{"type":"ortholog_one2one","target":{"id":"TraesCS5B02G","protein_id":"TraesCS5B02G.1","perc_id":70.26,"perc_pos":0}}
			]}]}`), nil
		})

	got := s.LookupOrtholog(t.Context(), "DREB2A", "Arabidopsis thaliana", "Triticum aestivum")
	require.True(t, got.Success, got.Error)
	require.True(t, got.Found)
	require.NotNil(t, got.Ortholog)
	assert.Equal(t, "Arabidopsis thaliana", got.SourceSpecies)
	assert.Equal(t, "Triticum aestivum", got.TargetSpecies)
	assert.Equal(t, 2, got.TotalOrthologs)

	o := got.Ortholog
	assert.Equal(t, "TraesCS5B02G", o.TargetGene)
	assert.Equal(t, "TraesCS5B02G.1", o.TargetProtein)
	assert.Equal(t, 70.3, o.SequenceIdentity)
	assert.Equal(t, 70.3, o.QueryCoverage)
	assert.Equal(t, "1:1", o.OrthologType)
	assert.Equal(t, types.ConfidenceHigh, o.Confidence)
	assert.Equal(t, 95, o.ConfidenceScore)
	assert.Equal(t, "https://plants.ensembl.org/triticum_aestivum/Gene/Summary?g=TraesCS5B02G", o.EnsemblURL)
}

func TestLookupOrtholog_FallsBackToEnsembl(t *testing.T) {
	s := setupHTTPMock(t)
	httpmock.RegisterResponder(http.MethodGet, "https://rest.ensembl.plants.org/xrefs/symbol/oryza_sativa/SUB1A",
		httpmock.NewStringResponder(http.StatusOK, `[]`))
	httpmock.RegisterResponder(http.MethodGet, "https://rest.ensembl.org/xrefs/symbol/oryza_sativa/SUB1A",
		httpmock.NewStringResponder(http.StatusOK, `[{"id":"OS09G","type":"gene"}]`))
	httpmock.RegisterResponder(http.MethodGet, "https://rest.ensembl.org/homology/id/oryza_sativa/OS09G",
		httpmock.NewStringResponder(http.StatusOK, `{"data":[{"homologies":[
			{"type":"ortholog_many2many","target":{"id":"Zm00001","perc_id":42}}
		]}]}`))

	got := s.LookupOrtholog(t.Context(), "SUB1A", "Oryza sativa", "Zea mays")
	require.True(t, got.Success, got.Error)
	assert.Equal(t, "many:many", got.Ortholog.OrthologType)
	assert.Equal(t, types.ConfidenceLow, got.Ortholog.Confidence)
	assert.Equal(t, 40, got.Ortholog.ConfidenceScore)
}

func TestLookupOrtholog_NoHomologies(t *testing.T) {
	s := setupHTTPMock(t)
	httpmock.RegisterResponder(http.MethodGet, "https://rest.ensembl.plants.org/xrefs/symbol/zea_mays/ZmX",
		httpmock.NewStringResponder(http.StatusOK, `[{"id":"Zm1","type":"gene"}]`))
	httpmock.RegisterResponder(http.MethodGet, "https://rest.ensembl.plants.org/homology/id/zea_mays/Zm1",
		httpmock.NewStringResponder(http.StatusOK, `{"data":[]}`))

	got := s.LookupOrtholog(t.Context(), "ZmX", "Zea mays", "Glycine max")
	assert.True(t, got.Success)
	assert.False(t, got.Found)
	assert.Nil(t, got.Ortholog)
	assert.NotEmpty(t, got.Message)
}

func TestLookupOrtholog_Unavailable(t *testing.T) {
	s := setupHTTPMock(t)
	httpmock.RegisterNoResponder(httpmock.NewStringResponder(http.StatusServiceUnavailable, ""))

	got := s.LookupOrtholog(t.Context(), "FT", "Zea mays", "Oryza sativa")
	assert.False(t, got.Success)
	assert.Contains(t, got.Error, "HTTP 503")
	assert.Equal(t, "FT", got.Gene)
}

func TestConfidenceFor(t *testing.T) {
	tests := []struct {
		identity float64
		kind     string
		want     types.Confidence
	}{
		{65, "ortholog_one2one", types.ConfidenceHigh},
		{64.9, "ortholog_one2one", types.ConfidenceMedium},
		{75, "ortholog_one2many", types.ConfidenceHigh},
		{74, "ortholog_one2many", types.ConfidenceMedium},
		{50, "ortholog_many2many", types.ConfidenceMedium},
		{49, "ortholog_many2many", types.ConfidenceLow},
		{0, "", types.ConfidenceLow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ConfidenceFor(tt.identity, tt.kind), "%v %s", tt.identity, tt.kind)
	}
}

func TestFormatOrthologType(t *testing.T) {
	assert.Equal(t, "1:many", FormatOrthologType("ortholog_one2many"))
	assert.Equal(t, "paralog", FormatOrthologType("within_species_paralog"))
	assert.Equal(t, "gene split", FormatOrthologType("gene_split"))
	assert.Equal(t, "unknown", FormatOrthologType(""))
}

func TestSearchFunding(t *testing.T) {
	s := setupHTTPMock(t)
	httpmock.RegisterResponder(http.MethodPost, "https://api.reporter.nih.gov/v2/projects/search",
		func(req *http.Request) (*http.Response, error) {
			var body reporterRequest
			require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
			assert.True(t, body.Criteria.IsActive)
			assert.Contains(t, body.Criteria.AdvancedTextSearch.SearchText, "DREB2A OR plant")
			assert.Equal(t, DefaultGrantLimit, body.Limit)
			return httpmock.NewStringResponse(http.StatusOK, `{"meta":{"total":7},"results":[
				{"project_num":"R01GM1","project_title":"Drought signaling","contact_pi_name":"DOE, JANE",
				 "award_amount":450000,"project_start_date":"2023-04-01T00:00:00Z","project_end_date":"2027-03-31T00:00:00Z",
				 "organization":{"org_name":"STATE UNIVERSITY","org_city":"AMES","org_state":"IA"}},
				{"core_project_num":"U01X"}
			]}`), nil
		})

	got := s.SearchFunding(t.Context(), "DREB2A")
	require.True(t, got.Success, got.Error)
	assert.Equal(t, 7, got.TotalFound)
	require.Len(t, got.Grants, 2)

	g := got.Grants[0]
	assert.Equal(t, "Drought signaling", g.Title)
	assert.Equal(t, "STATE UNIVERSITY (AMES, IA)", g.Org)
	assert.Equal(t, "2023-04-01", g.Start)
	assert.Equal(t, "2027-03-31", g.End)
	assert.InDelta(t, 450000, g.Amount, 0.01)
	assert.Equal(t, "https://reporter.nih.gov/project-details/R01GM1", g.Link)

	assert.Equal(t, "Untitled", got.Grants[1].Title)
	assert.Equal(t, "Unknown Organization", got.Grants[1].Org)
	assert.Equal(t, "U01X", got.Grants[1].ProjectNum)
}

func TestSearchFunding_Failure(t *testing.T) {
	s := setupHTTPMock(t)
	httpmock.RegisterResponder(http.MethodPost, "https://api.reporter.nih.gov/v2/projects/search",
		httpmock.NewStringResponder(http.StatusInternalServerError, ""))

	got := s.SearchFunding(t.Context(), "CBF1")
	assert.False(t, got.Success)
	assert.Contains(t, got.Error, "HTTP 500")
	assert.NotNil(t, got.Grants)
	assert.Empty(t, got.Grants)
}
