package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mvasilev/mescan/internal/results"
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "List, export, and summarize recorded scan runs",
	Long: `Results queries the scan results database. Use subcommands to list
recorded runs, export one run with all its events and values to YAML or
JSON, or write a Markdown summary report.

Export and report operate on the most recent run when no run ID is given.`,
}

// --- list subcommand ---

var resultsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded scan runs, most recent first",
	RunE:  runResultsList,
}

func runResultsList(cmd *cobra.Command, args []string) error {
	store, err := results.Open(databasePath(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Runs(context.Background())
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-36s  %-20s  %-24s  %7s  %6s\n",
		"ID", "Started", "Source", "Events", "Failed")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 101))

	for _, r := range runs {
		source := r.Source
		if len(source) > 24 {
			source = source[:21] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-36s  %-20s  %-24s  %7d  %6d\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), source, r.Events, r.Failed)
	}

	fmt.Fprintf(os.Stdout, "\n%d run(s)\n", len(runs))
	return nil
}

// --- export subcommand ---

var resultsExportCmd = &cobra.Command{
	Use:   "export [run-id]",
	Short: "Export one run with all its events and values",
	RunE:  runResultsExport,
}

func runResultsExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	outPath, _ := cmd.Flags().GetString("out")

	store, err := results.Open(databasePath(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	id, err := resolveRunID(ctx, store, args)
	if err != nil {
		return err
	}

	out := os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating %s: %w", outPath, err)
		}
		defer f.Close()
		out = f
	}

	switch format {
	case "yaml", "":
		err = store.ExportYAML(ctx, out, id)
	case "json":
		err = store.ExportJSON(ctx, out, id)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}

	if outPath != "" {
		fmt.Fprintf(os.Stderr, "Exported run %s to %s\n", id, outPath)
	}
	return nil
}

// --- report subcommand ---

var resultsReportCmd = &cobra.Command{
	Use:   "report [run-id]",
	Short: "Write a Markdown summary report for one run",
	RunE:  runResultsReport,
}

func runResultsReport(cmd *cobra.Command, args []string) error {
	outPath, _ := cmd.Flags().GetString("out")

	store, err := results.Open(databasePath(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	id, err := resolveRunID(ctx, store, args)
	if err != nil {
		return err
	}

	out := os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating %s: %w", outPath, err)
		}
		defer f.Close()
		out = f
	}

	if err := store.WriteReport(ctx, out, id); err != nil {
		return err
	}
	if outPath != "" {
		fmt.Fprintf(os.Stderr, "Wrote report for run %s to %s\n", id, outPath)
	}
	return nil
}

// --- shared helpers ---

// resolveRunID picks the run named by args, or the most recent run when
// no argument is given.
func resolveRunID(ctx context.Context, store *results.Store, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	runs, err := store.Runs(ctx)
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", fmt.Errorf("no runs recorded")
	}
	return runs[0].ID, nil
}

func init() {
	resultsListCmd.Flags().Bool("json", false, "output runs as JSON")

	resultsExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	resultsExportCmd.Flags().String("out", "", "write to file instead of stdout")

	resultsReportCmd.Flags().String("out", "", "write to file instead of stdout")

	resultsCmd.AddCommand(resultsListCmd)
	resultsCmd.AddCommand(resultsExportCmd)
	resultsCmd.AddCommand(resultsReportCmd)

	rootCmd.AddCommand(resultsCmd)
}
