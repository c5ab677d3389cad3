package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/mvasilev/mescan/internal/classify"
	"github.com/mvasilev/mescan/internal/lhe"
	"github.com/mvasilev/mescan/pkg/types"
)

var classifyCmd = &cobra.Command{
	Use:   "classify [file]",
	Short: "Decode events and partition particles into decay groups",
	Long: `Classify decodes a Les Houches event file and partitions each event's
particles into Higgs decay daughters, associated production particles, and
incoming beams. Use "-" to read from standard input.

The default table output lists one row per classified particle; --format
yaml or json emits the full group structure.`,
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().Int("limit", 0, "stop after this many events (0 = all)")
	classifyCmd.Flags().String("format", "table", "output format: table, yaml, or json")

	rootCmd.AddCommand(classifyCmd)
}

// classifiedEntry is the per-event output of the classify command.
type classifiedEntry struct {
	Index      int                    `json:"index" yaml:"index"`
	NParticles int                    `json:"nparticles" yaml:"nparticles"`
	MDaughters float64                `json:"m_daughters,omitempty" yaml:"m_daughters,omitempty"`
	Groups     *types.ClassifiedEvent `json:"groups,omitempty" yaml:"groups,omitempty"`
	Error      string                 `json:"error,omitempty" yaml:"error,omitempty"`
}

func runClassify(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide an event file to classify (or - for stdin)")
	}
	source := args[0]

	limit, _ := cmd.Flags().GetInt("limit")
	format, _ := cmd.Flags().GetString("format")

	in, err := openInput(source)
	if err != nil {
		return err
	}
	defer in.Close()

	entries, failed, err := classifyAll(in, limit)
	if err != nil {
		return fmt.Errorf("%s: %w", source, err)
	}

	switch format {
	case "table", "":
		printClassifyTable(entries, failed)
	case "yaml":
		data, err := yaml.Marshal(entries)
		if err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		os.Stdout.Write(data)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(entries); err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
	default:
		return fmt.Errorf("unsupported format %q: use table, yaml, or json", format)
	}

	if failed > 0 {
		return fmt.Errorf("%d event(s) failed classification", failed)
	}
	return nil
}

func classifyAll(r io.Reader, limit int) ([]classifiedEntry, int, error) {
	dec := lhe.NewDecoder(r)
	var (
		entries []classifiedEntry
		failed  int
	)
	for index := 0; ; index++ {
		if limit > 0 && index >= limit {
			break
		}
		ev, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, err
		}

		entry := classifiedEntry{Index: index, NParticles: ev.Header.NParticles}
		classified, err := classify.ClassifyEvent(ev)
		if err != nil {
			entry.Error = err.Error()
			failed++
		} else {
			entry.Groups = &classified
			p4 := classified.DaughterP4()
			entry.MDaughters = p4.M()
		}
		entries = append(entries, entry)
	}
	return entries, failed, nil
}

func printClassifyTable(entries []classifiedEntry, failed int) {
	for _, entry := range entries {
		if entry.Error != "" {
			fmt.Fprintf(os.Stdout, "event %d: classification failed: %s\n\n", entry.Index, entry.Error)
			continue
		}

		fmt.Fprintf(os.Stdout, "event %d: %d particles, m(daughters) = %.3f GeV\n",
			entry.Index, entry.NParticles, entry.MDaughters)
		fmt.Fprintf(os.Stdout, "%-4s  %-10s  %8s  %6s  %10s  %10s\n",
			"#", "group", "id", "status", "pt", "mass")
		fmt.Fprintln(os.Stdout, strings.Repeat("-", 58))

		n := 1
		for _, group := range []struct {
			name      string
			particles []types.ParticleRecord
		}{
			{"daughter", entry.Groups.Daughters},
			{"associated", entry.Groups.Associated},
			{"mother", entry.Groups.Mothers},
		} {
			for _, p := range group.particles {
				fmt.Fprintf(os.Stdout, "%-4d  %-10s  %8d  %6d  %10.3f  %10.3f\n",
					n, group.name, p.ID, p.Status, p.P.Pt(), p.P.M())
				n++
			}
		}
		fmt.Fprintln(os.Stdout)
	}

	fmt.Fprintf(os.Stdout, "%d event(s), %d failed\n", len(entries), failed)
}

// openInput opens path for reading, with "-" meaning stdin.
func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return f, nil
}
