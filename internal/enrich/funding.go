// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/genegap/pkg/types"
)

// DefaultGrantLimit caps grants returned per search.
const DefaultGrantLimit = 10

// plantKeywords widen a gene search to plant genomics projects.
var plantKeywords = []string{
	"plant", "Arabidopsis", "crop", "agriculture",
	"genomics", "genome", "transcriptome",
}

type reporterRequest struct {
	Criteria struct {
		AdvancedTextSearch struct {
			Operator    string `json:"operator"`
			SearchField string `json:"search_field"`
			SearchText  string `json:"search_text"`
		} `json:"advanced_text_search"`
		IsActive bool `json:"is_active"`
	} `json:"criteria"`
	IncludeFields []string `json:"include_fields"`
	Offset        int      `json:"offset"`
	Limit         int      `json:"limit"`
	SortField     string   `json:"sort_field"`
	SortOrder     string   `json:"sort_order"`
}

type reporterResponse struct {
	Meta struct {
		Total int `json:"total"`
	} `json:"meta"`
	Results []reporterProject `json:"results"`
}

type reporterProject struct {
	ProjectNum       string  `json:"project_num"`
	CoreProjectNum   string  `json:"core_project_num"`
	ProjectTitle     string  `json:"project_title"`
	ContactPIName    string  `json:"contact_pi_name"`
	AwardAmount      float64 `json:"award_amount"`
	ProjectStartDate string  `json:"project_start_date"`
	ProjectEndDate   string  `json:"project_end_date"`
	Organization     *struct {
		OrgName  string `json:"org_name"`
		OrgCity  string `json:"org_city"`
		OrgState string `json:"org_state"`
	} `json:"organization"`
}

// SearchFunding finds active NIH projects mentioning gene together with
// plant genomics keywords, largest awards first.
func (s *Service) SearchFunding(ctx context.Context, gene string) types.FundingResult {
	key := cacheKey(gene)
	if hit, ok := s.fundCache.Get(key); ok {
		return hit
	}

	res := types.FundingResult{Gene: gene, Grants: []types.Grant{}}

	var req reporterRequest
	req.Criteria.AdvancedTextSearch.Operator = "or"
	req.Criteria.AdvancedTextSearch.SearchField = "all"
	req.Criteria.AdvancedTextSearch.SearchText = strings.Join(append([]string{gene}, plantKeywords...), " OR ")
	req.Criteria.IsActive = true
	req.IncludeFields = []string{
		"project_title", "contact_pi_name", "organization",
		"award_amount", "project_start_date", "project_end_date",
		"project_num",
	}
	req.Limit = DefaultGrantLimit
	req.SortField = "award_amount"
	req.SortOrder = "desc"

	var body reporterResponse
	if err := s.postJSON(ctx, "reporter", "projects", s.reporterURL, req, &body); err != nil {
		res.Error = err.Error()
		s.log.DebugContext(ctx, "funding search failed", "gene", gene, "error", err)
		return res
	}

	for _, p := range body.Results {
		res.Grants = append(res.Grants, grantFrom(p))
	}
	res.Success = true
	res.TotalFound = body.Meta.Total
	if res.TotalFound == 0 {
		res.TotalFound = len(res.Grants)
	}
	s.fundCache.Add(key, res)
	return res
}

func grantFrom(p reporterProject) types.Grant {
	num := firstNonEmpty(p.ProjectNum, p.CoreProjectNum)
	g := types.Grant{
		Title:      firstNonEmpty(p.ProjectTitle, "Untitled"),
		PI:         firstNonEmpty(p.ContactPIName, "Unknown PI"),
		Org:        "Unknown Organization",
		Amount:     p.AwardAmount,
		Start:      datePart(p.ProjectStartDate),
		End:        datePart(p.ProjectEndDate),
		ProjectNum: num,
	}
	if o := p.Organization; o != nil && o.OrgName != "" {
		g.Org = o.OrgName
		if o.OrgCity != "" && o.OrgState != "" {
			g.Org = fmt.Sprintf("%s (%s, %s)", o.OrgName, o.OrgCity, o.OrgState)
		}
	}
	if num != "" {
		g.Link = "https://reporter.nih.gov/project-details/" + num
	}
	return g
}

func datePart(ts string) string {
	if len(ts) > 10 {
		return ts[:10]
	}
	return ts
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
