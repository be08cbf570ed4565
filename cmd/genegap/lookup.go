// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/genegap/internal/crossref"
	"github.com/pdiddy/genegap/internal/output"
	"github.com/pdiddy/genegap/internal/species"
	"github.com/pdiddy/genegap/pkg/types"
)

// --- publications ---

var publicationsCmd = &cobra.Command{
	Use:   "publications",
	Short: "Show the publication profile of a gene in one species",
	Long: `Publications counts PubMed articles mentioning a gene in a species and
lists a sample with study type, year range and trend.`,
	RunE: runPublications,
}

func runPublications(cmd *cobra.Command, args []string) error {
	gene, _ := cmd.Flags().GetString("gene")
	sp, _ := cmd.Flags().GetString("species")
	sample, _ := cmd.Flags().GetInt("max")
	filter, _ := cmd.Flags().GetString("study-type")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	if strings.TrimSpace(gene) == "" || strings.TrimSpace(sp) == "" {
		return fmt.Errorf("--gene and --species are required")
	}

	a, err := newApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if known, ok := a.species.Lookup(sp); ok {
		sp = known.ScientificName
	}
	p := a.xref.Lookup(context.Background(), gene, sp, crossref.Options{
		Max:    sample,
		Filter: types.StudyType(filter),
	})
	if p.Status == types.LookupUnavailable {
		return fmt.Errorf("publication lookup for %s in %s failed", gene, sp)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	}

	fmt.Printf("%s in %s: %d publications", p.Gene, p.Species, p.Total)
	if p.Earliest > 0 {
		fmt.Printf(" (%d-%d, %s)", p.Earliest, p.Latest, p.Trend)
	}
	fmt.Println()
	for _, st := range []types.StudyType{types.StudyAssociation, types.StudyFunctional, types.StudyUnknown} {
		if n := p.ByStudyType[st]; n > 0 {
			fmt.Printf("  %-12s %d\n", st, n)
		}
	}
	if len(p.Publications) == 0 {
		return nil
	}
	fmt.Println()
	tbl := output.NewTable(os.Stdout, "PMID", "Year", "Title", "Type")
	for _, pub := range p.Publications {
		tbl.Row(pub.PMID, strconv.Itoa(pub.Year), truncate(pub.Title, 60), string(pub.StudyType))
	}
	return tbl.Render()
}

// --- species ---

var speciesCmd = &cobra.Command{
	Use:   "species",
	Short: "List supported plant species",
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		all := species.Default().All()
		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(all)
		}
		tbl := output.NewTable(os.Stdout, "Scientific name", "Common name", "TaxID")
		for _, s := range all {
			tbl.Row(s.ScientificName, s.CommonName, s.TaxID)
		}
		return tbl.Render()
	},
}

func init() {
	publicationsCmd.Flags().String("gene", "", "gene name or symbol")
	publicationsCmd.Flags().String("species", "", "species scientific name")
	publicationsCmd.Flags().Int("max", 5, "sample size")
	publicationsCmd.Flags().String("study-type", "", "keep only association or functional studies in the sample")
	publicationsCmd.Flags().Bool("json", false, "output as JSON")

	speciesCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(publicationsCmd)
	rootCmd.AddCommand(speciesCmd)
}
