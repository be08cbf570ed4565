// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package literature

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/genegap/internal/httputil"
	"github.com/pdiddy/genegap/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

const efetchBody = `<?xml version="1.0" ?>
<PubmedArticleSet>
  <PubmedArticle>
    <MedlineCitation>
      <PMID Version="1">111</PMID>
      <Article>
        <Journal>
          <Title>Plant Cell</Title>
          <JournalIssue><PubDate><Year>2019</Year></PubDate></JournalIssue>
        </Journal>
        <ArticleTitle>Role of <i>DREB2A</i> in drought &amp; heat</ArticleTitle>
        <Abstract>
          <AbstractText Label="BACKGROUND">Drought limits yield.</AbstractText>
          <AbstractText Label="RESULTS">DREB2A binds DRE elements.</AbstractText>
        </Abstract>
        <AuthorList>
          <Author><LastName>Sakuma</LastName><ForeName>Yoh</ForeName></Author>
          <Author><CollectiveName>Plant GWAS Consortium</CollectiveName></Author>
        </AuthorList>
      </Article>
      <KeywordList><Keyword>GWAS</Keyword><Keyword>drought</Keyword></KeywordList>
    </MedlineCitation>
  </PubmedArticle>
  <PubmedArticle>
    <MedlineCitation>
      <PMID Version="1">222</PMID>
      <Article>
        <Journal>
          <Title>Plant J</Title>
          <JournalIssue><PubDate><MedlineDate>1998 Dec-1999 Jan</MedlineDate></PubDate></JournalIssue>
        </Journal>
        <ArticleTitle>CBF1 overexpression</ArticleTitle>
        <Abstract><AbstractText>Freezing tolerance.</AbstractText></Abstract>
      </Article>
    </MedlineCitation>
  </PubmedArticle>
</PubmedArticleSet>`

type fakeEutils struct {
	searches atomic.Int32
	fetches  atomic.Int32
	lastTerm atomic.Value
	count    string
	ids      []string
}

func (f *fakeEutils) handler(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/esearch.fcgi":
			f.searches.Add(1)
			f.lastTerm.Store(r.URL.Query().Get("term"))
			ids := `[]`
			if len(f.ids) > 0 {
				ids = `["` + strings.Join(f.ids, `","`) + `"]`
			}
			fmt.Fprintf(w, `{"esearchresult":{"count":"%s","idlist":%s}}`, f.count, ids)
		case "/efetch.fcgi":
			f.fetches.Add(1)
			assert.Equal(t, strings.Join(f.ids, ","), r.URL.Query().Get("id"))
			fmt.Fprint(w, efetchBody)
		default:
			http.NotFound(w, r)
		}
	})
}

func newTestClient(t *testing.T, h http.Handler, cfg types.LiteratureConfig) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	cfg.BaseURL = ts.URL
	if cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = -1
	}
	return New(cfg, nil, nil)
}

func TestSearch_MapsArticles(t *testing.T) {
	fake := &fakeEutils{count: "57", ids: []string{"111", "222"}}
	c := newTestClient(t, fake.handler(t), types.LiteratureConfig{})

	res := c.Search(context.Background(), "drought stress signaling", "Arabidopsis thaliana", 20)
	require.Equal(t, StatusOK, res.Status, "err: %v", res.Err)
	assert.Equal(t, 57, res.Total)
	assert.Equal(t, `(drought stress signaling) AND ("genome-wide" OR "GWAS" OR "genome wide association") AND "Arabidopsis thaliana"[Organism]`, fake.lastTerm.Load())
	require.Len(t, res.Articles, 2)

	a := res.Articles[0]
	assert.Equal(t, "111", a.ID)
	assert.Equal(t, "Role of DREB2A in drought & heat", a.Title)
	assert.Equal(t, "BACKGROUND: Drought limits yield. RESULTS: DREB2A binds DRE elements.", a.Abstract)
	assert.Equal(t, []string{"Yoh Sakuma", "Plant GWAS Consortium"}, a.Authors)
	assert.Equal(t, "Plant Cell", a.Journal)
	assert.Equal(t, 2019, a.Year)
	assert.Equal(t, []string{"GWAS", "drought"}, a.Keywords)
	assert.Equal(t, "https://pubmed.ncbi.nlm.nih.gov/111/", a.URL)
	assert.Equal(t, "Arabidopsis thaliana", a.Species)

	assert.Equal(t, 1998, res.Articles[1].Year)
}

func TestSearchGene_EmptySkipsFetch(t *testing.T) {
	fake := &fakeEutils{count: "0"}
	c := newTestClient(t, fake.handler(t), types.LiteratureConfig{})

	res := c.SearchGene(context.Background(), "DREB2A", "Triticum aestivum", 20)
	assert.Equal(t, StatusEmpty, res.Status)
	assert.NoError(t, res.Err)
	assert.Equal(t, `"DREB2A" AND "Triticum aestivum"`, res.Query)
	assert.Equal(t, int32(0), fake.fetches.Load())
}

func TestSearch_UpstreamFailureIsSoft(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}), types.LiteratureConfig{})

	res := c.Search(context.Background(), "drought", "Zea mays", 5)
	assert.Equal(t, StatusFailed, res.Status)
	assert.ErrorIs(t, res.Err, ErrUpstream)
	assert.Empty(t, res.Articles)
}

func TestSearch_MalformedJSONFails(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html>maintenance</html>`)
	}), types.LiteratureConfig{})

	res := c.SearchGene(context.Background(), "FT", "Zea mays", 5)
	assert.Equal(t, StatusFailed, res.Status)
	assert.Error(t, res.Err)
}

func TestSearch_RetriesThrottling(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"esearchresult":{"count":"4","idlist":[]}}`)
	}), types.LiteratureConfig{})

	n, err := c.Count(context.Background(), `"CBF1" AND "Oryza sativa"`)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCount_UsesRettypeCount(t *testing.T) {
	var rettype, retmax string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rettype = r.URL.Query().Get("rettype")
		retmax = r.URL.Query().Get("retmax")
		fmt.Fprint(w, `{"esearchresult":{"count":"12"}}`)
	}), types.LiteratureConfig{})

	n, err := c.Count(context.Background(), "FT")
	require.NoError(t, err)
	assert.Equal(t, 12, n)
	assert.Equal(t, "count", rettype)
	assert.Empty(t, retmax)
}

func TestClient_SendsKeyAndEmail(t *testing.T) {
	var key, email string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key = r.URL.Query().Get("api_key")
		email = r.URL.Query().Get("email")
		fmt.Fprint(w, `{"esearchresult":{"count":"0"}}`)
	}), types.LiteratureConfig{APIKey: "k123", Email: "lab@example.org", KeyedRequestsPerSecond: -1})

	c.Count(context.Background(), "FT")
	assert.Equal(t, "k123", key)
	assert.Equal(t, "lab@example.org", email)
}

func TestNew_PacingDefaults(t *testing.T) {
	assert.Equal(t, time.Second/3, New(types.LiteratureConfig{}, nil, nil).Interval())
	assert.Equal(t, 100*time.Millisecond, New(types.LiteratureConfig{APIKey: "k"}, nil, nil).Interval())
	assert.Zero(t, New(types.LiteratureConfig{RequestsPerSecond: -1}, nil, nil).Interval())
}

func TestSearch_TimeoutIsFailure(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}), types.LiteratureConfig{HTTPConfig: types.HTTPConfig{Timeout: 20 * time.Millisecond}})

	res := c.SearchGene(context.Background(), "FT", "Zea mays", 5)
	assert.Equal(t, StatusFailed, res.Status)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
}

func TestParseYear(t *testing.T) {
	assert.Equal(t, 2020, parseYear("2020", ""))
	assert.Equal(t, 2003, parseYear("", "2003 Spring"))
	assert.Equal(t, 0, parseYear("", "Winter"))
}
