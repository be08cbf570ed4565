// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pdiddy/genegap/internal/archive"
	"github.com/pdiddy/genegap/internal/output"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Inspect and export archived analyses",
	Long: `Archive reads the SQLite database of completed analyses. Every run of
"analyze" or POST /api/analyze is stored there when archive.enabled is set.`,
}

// --- list subcommand ---

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived analyses, newest first",
	RunE:  runArchiveList,
}

func runArchiveList(cmd *cobra.Command, args []string) error {
	store, err := openArchive()
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(context.Background(), listOptsFromFlags(cmd))
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Println("No analyses found.")
		return nil
	}
	tbl := output.NewTable(os.Stdout, "ID", "Created", "Query", "Source", "Gaps")
	for _, e := range entries {
		tbl.Row(e.ID, e.CreatedAt.Local().Format("2006-01-02 15:04"), truncate(e.Query, 30),
			truncate(e.SourceSpecies, 22), strconv.Itoa(e.TotalGaps))
	}
	if err := tbl.Render(); err != nil {
		return err
	}
	fmt.Printf("\n%d analyses\n", len(entries))
	return nil
}

// --- export subcommand ---

var archiveExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export archived analyses to YAML or JSON",
	Long: `Export writes full analyses (or those matching --gene / --species) to
export.yaml or export.json in the archive directory, or to stdout with
--stdout.`,
	RunE: runArchiveExport,
}

func runArchiveExport(cmd *cobra.Command, args []string) error {
	formatFlag, _ := cmd.Flags().GetString("format")
	toStdout, _ := cmd.Flags().GetBool("stdout")

	format, err := archive.ParseFormat(formatFlag)
	if err != nil {
		return err
	}

	store, err := openArchive()
	if err != nil {
		return err
	}
	defer store.Close()

	opts := listOptsFromFlags(cmd)
	if toStdout {
		return store.Export(context.Background(), os.Stdout, format, opts)
	}
	path, err := store.ExportFile(context.Background(), format, opts)
	if err != nil {
		return err
	}
	newPrinter(os.Stderr).Info("Exported to %s", path)
	return nil
}

// --- delete subcommand ---

var archiveDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an archived analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openArchive()
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Delete(context.Background(), args[0]); err != nil {
			return err
		}
		newPrinter(os.Stderr).Info("Deleted %s", args[0])
		return nil
	},
}

func listOptsFromFlags(cmd *cobra.Command) archive.ListOptions {
	gene, _ := cmd.Flags().GetString("gene")
	sp, _ := cmd.Flags().GetString("species")
	limit, _ := cmd.Flags().GetInt("limit")
	return archive.ListOptions{Gene: gene, Species: sp, Limit: limit}
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("gene", "", "only analyses with a gap for this gene")
	cmd.Flags().String("species", "", "only analyses involving this species")
	cmd.Flags().Int("limit", 0, "maximum number of analyses")
}

func init() {
	addFilterFlags(archiveListCmd)
	archiveListCmd.Flags().Bool("json", false, "output as JSON")

	addFilterFlags(archiveExportCmd)
	archiveExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	archiveExportCmd.Flags().Bool("stdout", false, "write to stdout instead of the archive directory")

	archiveCmd.AddCommand(archiveListCmd)
	archiveCmd.AddCommand(archiveExportCmd)
	archiveCmd.AddCommand(archiveDeleteCmd)
	rootCmd.AddCommand(archiveCmd)
}
