// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders a gap analysis as a PDF document.
package report

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/go-pdf/fpdf"

	"github.com/pdiddy/genegap/pkg/types"
)

const (
	margin       = 15.0
	contentWidth = 210.0 - 2*margin
	lineHeight   = 5.0
	maxGeneRows  = 15
	maxKeyGenes  = 10
)

// Report is the content of one PDF export.
type Report struct {
	Query       string
	Source      string
	Targets     []string
	Gaps        []types.SpeciesGapSummary
	Genes       []types.GeneCandidate
	Summaries   map[string]string
	GeneratedAt time.Time
}

// FromResult builds a Report from a completed analysis.
func FromResult(r types.AnalysisResult) Report {
	return Report{
		Query:       r.Query.Text,
		Source:      r.Query.SourceSpecies,
		Targets:     r.Query.TargetSpecies,
		Gaps:        r.Gaps,
		Genes:       r.Genes,
		Summaries:   r.Summaries,
		GeneratedAt: r.CreatedAt,
	}
}

// Filename returns a download name for a report on query.
func Filename(query string, at time.Time) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			return r
		case r == ' ' || r == '-' || r == '_':
			return '_'
		}
		return -1
	}, query)
	if len(safe) > 30 {
		safe = safe[:30]
	}
	return fmt.Sprintf("gap_report_%s_%s.pdf", safe, at.Format("20060102"))
}

type renderer struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

// Render builds an A4 PDF for r.
func Render(r Report) ([]byte, error) {
	if r.GeneratedAt.IsZero() {
		r.GeneratedAt = time.Now()
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.SetTitle("Gap Analysis Report", true)
	pdf.SetCreator("genegap", true)
	pdf.SetCreationDate(r.GeneratedAt)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-margin)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(140, 149, 159)
		pdf.CellFormat(0, 10, fmt.Sprintf("genegap - plant genomics publication gaps - page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	rd := &renderer{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	pdf.AddPage()

	rd.title(r)
	rd.parameters(r)
	rd.statistics(r.Gaps)
	rd.speciesOverview(r.Gaps)
	for _, s := range r.Gaps {
		if s.GapCount > 0 {
			rd.speciesTable(s)
		}
	}
	rd.keyGenes(r.Genes)
	rd.summaries(r.Summaries)

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("rendering report: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing report: %w", err)
	}
	return buf.Bytes(), nil
}

func (rd *renderer) title(r Report) {
	p := rd.pdf
	p.SetFont("Helvetica", "B", 18)
	p.SetTextColor(31, 35, 40)
	p.CellFormat(0, 10, "Gap Analysis Report", "", 1, "C", false, 0, "")
	p.SetFont("Helvetica", "", 10)
	p.SetTextColor(87, 96, 106)
	p.CellFormat(0, 6, "Generated on "+r.GeneratedAt.Format("January 2, 2006 at 15:04"), "", 1, "C", false, 0, "")
	p.Ln(4)
}

func (rd *renderer) section(name string) {
	p := rd.pdf
	p.Ln(3)
	p.SetFont("Helvetica", "B", 12)
	p.SetTextColor(31, 35, 40)
	p.CellFormat(0, 8, rd.tr(name), "", 1, "L", false, 0, "")
	p.SetFont("Helvetica", "", 9)
}

func (rd *renderer) keyValue(key, value string, keyWidth float64) {
	p := rd.pdf
	p.SetFont("Helvetica", "B", 9)
	p.SetTextColor(87, 96, 106)
	p.CellFormat(keyWidth, lineHeight, rd.tr(key), "", 0, "L", false, 0, "")
	p.SetFont("Helvetica", "", 9)
	p.SetTextColor(31, 35, 40)
	p.MultiCell(contentWidth-keyWidth, lineHeight, rd.tr(value), "", "L", false)
}

func (rd *renderer) parameters(r Report) {
	rd.section("Search Parameters")
	targets := r.Targets
	shown := strings.Join(targets, ", ")
	if len(targets) > 3 {
		shown = strings.Join(targets[:3], ", ") + "..."
	}
	rd.keyValue("Query:", r.Query, 35)
	rd.keyValue("Source species:", r.Source, 35)
	rd.keyValue("Target species:", shown, 35)
	rd.keyValue("Targets analyzed:", fmt.Sprint(len(targets)), 35)
}

func (rd *renderer) statistics(gaps []types.SpeciesGapSummary) {
	var total, complete, severe, withGaps int
	for _, s := range gaps {
		total += s.GapCount
		complete += s.CompleteGaps
		severe += s.SevereGaps
		if s.GapCount > 0 {
			withGaps++
		}
	}
	rd.section("Summary Statistics")
	rd.keyValue("Total research gaps:", fmt.Sprint(total), 60)
	rd.keyValue("Complete gaps (no publications):", fmt.Sprint(complete), 60)
	rd.keyValue("Severe gaps (1-3 publications):", fmt.Sprint(severe), 60)
	rd.keyValue("Species with gaps:", fmt.Sprint(withGaps), 60)
}

func (rd *renderer) tableHeader(widths []float64, cols ...string) {
	p := rd.pdf
	p.SetFont("Helvetica", "B", 8)
	p.SetFillColor(246, 248, 250)
	p.SetDrawColor(208, 215, 222)
	p.SetTextColor(31, 35, 40)
	for i, c := range cols {
		p.CellFormat(widths[i], 6, rd.tr(c), "1", 0, "C", true, 0, "")
	}
	p.Ln(-1)
	p.SetFont("Helvetica", "", 8)
}

func (rd *renderer) tableRow(widths []float64, aligns string, cells ...string) {
	for i, c := range cells {
		rd.pdf.CellFormat(widths[i], 6, rd.tr(c), "1", 0, string(aligns[i]), false, 0, "")
	}
	rd.pdf.Ln(-1)
}

func (rd *renderer) speciesOverview(gaps []types.SpeciesGapSummary) {
	rd.section("Research Gaps by Species")
	if len(gaps) == 0 {
		rd.pdf.CellFormat(0, lineHeight, "No gaps found.", "", 1, "L", false, 0, "")
		return
	}

	sorted := append([]types.SpeciesGapSummary(nil), gaps...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].GapCount > sorted[j].GapCount })

	widths := []float64{50, 15, 20, 20, 75}
	rd.tableHeader(widths, "Species", "Gaps", "Complete", "Status", "Top genes")
	for _, s := range sorted {
		var top []string
		for i, g := range s.Gaps {
			if i == 3 {
				top = append(top, "...")
				break
			}
			top = append(top, g.Gene)
		}
		rd.tableRow(widths, "LCCCL",
			s.Species, fmt.Sprint(s.GapCount), fmt.Sprint(s.CompleteGaps), string(s.Status), strings.Join(top, ", "))
	}
}

func (rd *renderer) speciesTable(s types.SpeciesGapSummary) {
	name := s.Species
	if s.CommonName != "" {
		name = fmt.Sprintf("%s (%s)", s.Species, s.CommonName)
	}
	rd.section(name)

	widths := []float64{50, 35, 25, 25, 45}
	rd.tableHeader(widths, "Gene", "Gap level", "Source pubs", "Target pubs", "Priority")
	for i, g := range s.Gaps {
		if i == maxGeneRows {
			rd.pdf.CellFormat(0, lineHeight, fmt.Sprintf("... and %d more", len(s.Gaps)-maxGeneRows), "", 1, "L", false, 0, "")
			break
		}
		rd.tableRow(widths, "LCCCC",
			g.Gene, levelLabel(g.Level), fmt.Sprint(g.SourcePublications), fmt.Sprint(g.TargetPublications),
			fmt.Sprintf("%.1f", g.PriorityScore))
	}
}

func levelLabel(l types.GapLevel) string {
	switch l {
	case types.GapComplete:
		return "complete"
	case types.GapSevere:
		return "severe"
	case types.GapModerate:
		return "moderate"
	}
	return string(l)
}

func (rd *renderer) keyGenes(genes []types.GeneCandidate) {
	if len(genes) == 0 {
		return
	}
	rd.section("Key Genes Identified")
	var names []string
	for i, g := range genes {
		if i == maxKeyGenes {
			break
		}
		names = append(names, g.Name)
	}
	text := strings.Join(names, ", ")
	if len(genes) > maxKeyGenes {
		text += fmt.Sprintf(" (+%d more)", len(genes)-maxKeyGenes)
	}
	rd.pdf.MultiCell(0, lineHeight, rd.tr(text), "", "L", false)
}

func (rd *renderer) summaries(summaries map[string]string) {
	if len(summaries) == 0 {
		return
	}
	rd.section("Gene Summaries")
	genes := make([]string, 0, len(summaries))
	for g := range summaries {
		genes = append(genes, g)
	}
	sort.Strings(genes)

	p := rd.pdf
	for _, g := range genes {
		p.SetFont("Helvetica", "B", 9)
		p.CellFormat(0, lineHeight, rd.tr(g), "", 1, "L", false, 0, "")
		p.SetFont("Helvetica", "", 9)
		p.MultiCell(0, lineHeight, rd.tr(summaries[g]), "", "L", false)
		p.Ln(1)
	}
}
