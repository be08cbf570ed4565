// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package literature

import (
	"encoding/xml"
	"regexp"
	"strconv"
	"strings"

	"github.com/pdiddy/genegap/pkg/types"
)

// esearchResponse is the JSON body of esearch.fcgi?retmode=json.
type esearchResponse struct {
	Result struct {
		Count  string   `json:"count"`
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
	Error string `json:"error,omitempty"`
}

// pubmedArticleSet is the XML body of efetch.fcgi?retmode=xml.
type pubmedArticleSet struct {
	XMLName  xml.Name        `xml:"PubmedArticleSet"`
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	Citation struct {
		PMID    string `xml:"PMID"`
		Article struct {
			Title    markup `xml:"ArticleTitle"`
			Abstract struct {
				Parts []abstractText `xml:"AbstractText"`
			} `xml:"Abstract"`
			Authors []struct {
				LastName       string `xml:"LastName"`
				ForeName       string `xml:"ForeName"`
				CollectiveName string `xml:"CollectiveName"`
			} `xml:"AuthorList>Author"`
			Journal struct {
				Title   string `xml:"Title"`
				PubDate struct {
					Year        string `xml:"Year"`
					MedlineDate string `xml:"MedlineDate"`
				} `xml:"JournalIssue>PubDate"`
			} `xml:"Journal"`
		} `xml:"Article"`
		Keywords []markup `xml:"KeywordList>Keyword"`
	} `xml:"MedlineCitation"`
}

type abstractText struct {
	Label string `xml:"Label,attr"`
	markup
}

// markup captures an element's inner XML so inline formatting tags
// (<i>, <sup>, ...) can be stripped instead of truncating the text.
type markup struct {
	Inner string `xml:",innerxml"`
}

var (
	tagPattern  = regexp.MustCompile(`<[^>]+>`)
	yearPattern = regexp.MustCompile(`\b(1[89]|20)\d{2}\b`)
)

func (m markup) text() string {
	s := tagPattern.ReplaceAllString(m.Inner, "")
	s = xmlUnescape(s)
	return strings.Join(strings.Fields(s), " ")
}

var entityReplacer = strings.NewReplacer(
	"&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'", "&#39;", "'", "&amp;", "&",
)

func xmlUnescape(s string) string {
	return entityReplacer.Replace(s)
}

// parseArticles maps an efetch XML body to Articles tagged with species.
func parseArticles(data []byte, species string) ([]types.Article, error) {
	var set pubmedArticleSet
	if err := xml.Unmarshal(data, &set); err != nil {
		return nil, err
	}

	articles := make([]types.Article, 0, len(set.Articles))
	for _, pa := range set.Articles {
		c := pa.Citation
		if c.PMID == "" {
			continue
		}

		var abstract []string
		for _, part := range c.Article.Abstract.Parts {
			text := part.text()
			if text == "" {
				continue
			}
			if part.Label != "" {
				text = part.Label + ": " + text
			}
			abstract = append(abstract, text)
		}

		var authors []string
		for _, a := range c.Article.Authors {
			switch {
			case a.LastName != "" && a.ForeName != "":
				authors = append(authors, a.ForeName+" "+a.LastName)
			case a.LastName != "":
				authors = append(authors, a.LastName)
			case a.CollectiveName != "":
				authors = append(authors, a.CollectiveName)
			}
		}

		var keywords []string
		for _, k := range c.Keywords {
			if t := k.text(); t != "" {
				keywords = append(keywords, t)
			}
		}

		articles = append(articles, types.Article{
			ID:       c.PMID,
			Title:    c.Article.Title.text(),
			Abstract: strings.Join(abstract, " "),
			Authors:  authors,
			Journal:  c.Article.Journal.Title,
			Year:     parseYear(c.Article.Journal.PubDate.Year, c.Article.Journal.PubDate.MedlineDate),
			Keywords: keywords,
			URL:      ArticleURL(c.PMID),
			Species:  species,
		})
	}
	return articles, nil
}

// parseYear reads the PubDate year, falling back to the first year found
// in a free-form MedlineDate such as "1998 Dec-1999 Jan". Returns 0 when
// neither carries one.
func parseYear(year, medline string) int {
	if y, err := strconv.Atoi(strings.TrimSpace(year)); err == nil {
		return y
	}
	if m := yearPattern.FindString(medline); m != "" {
		y, _ := strconv.Atoi(m)
		return y
	}
	return 0
}

// ArticleURL returns the PubMed page for a PMID.
func ArticleURL(pmid string) string {
	return "https://pubmed.ncbi.nlm.nih.gov/" + pmid + "/"
}
