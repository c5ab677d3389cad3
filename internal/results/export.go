// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package results

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/mvasilev/mescan/pkg/types"
)

// ExportRun bundles a run record with its per-event results for export.
type ExportRun struct {
	Run    Run                 `json:"run" yaml:"run"`
	Events []types.EventResult `json:"events" yaml:"events"`
}

// ExportYAML writes one run with all its events and values to w as
// YAML (R4.3).
func (s *Store) ExportYAML(ctx context.Context, w io.Writer, runID string) error {
	export, err := s.exportRun(ctx, runID)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(export)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// ExportJSON writes one run with all its events and values to w as
// JSON (R4.3).
func (s *Store) ExportJSON(ctx context.Context, w io.Writer, runID string) error {
	export, err := s.exportRun(ctx, runID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

func (s *Store) exportRun(ctx context.Context, runID string) (ExportRun, error) {
	run, err := s.Run(ctx, runID)
	if err != nil {
		return ExportRun{}, err
	}
	events, err := s.Events(ctx, runID)
	if err != nil {
		return ExportRun{}, err
	}
	return ExportRun{Run: run, Events: events}, nil
}

// reportStat is one aggregate row of the run report.
type reportStat struct {
	scenario   string
	observable string
	events     int
	mean       float64
	min        float64
	max        float64
}

// WriteReport writes a Markdown summary of one run to w: the run
// metadata followed by aggregate statistics per scenario and
// observable (R4.1, R4.2).
func (s *Store) WriteReport(ctx context.Context, w io.Writer, runID string) error {
	run, err := s.Run(ctx, runID)
	if err != nil {
		return err
	}
	stats, err := s.reportStats(ctx, runID)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "# Scan run %s\n\n", run.ID)
	fmt.Fprintf(w, "- started: %s\n", run.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "- source: %s\n", run.Source)
	fmt.Fprintf(w, "- process: %s / %s / %s\n", run.Process, run.MatrixElement, run.Production)
	if run.GenLevel {
		fmt.Fprintf(w, "- inputs: generator level\n")
	}
	fmt.Fprintf(w, "- events: %d (%d failed)\n\n", run.Events, run.Failed)

	if len(stats) == 0 {
		fmt.Fprintf(w, "No observable values recorded.\n")
		return nil
	}

	fmt.Fprintf(w, "| scenario | observable | events | mean | min | max |\n")
	fmt.Fprintf(w, "| --- | --- | --- | --- | --- | --- |\n")
	for _, st := range stats {
		fmt.Fprintf(w, "| %s | %s | %d | %.6g | %.6g | %.6g |\n",
			st.scenario, st.observable, st.events, st.mean, st.min, st.max)
	}
	return nil
}

func (s *Store) reportStats(ctx context.Context, runID string) ([]reportStat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT v.scenario, v.observable, COUNT(*), AVG(v.value), MIN(v.value), MAX(v.value)
		FROM obs_values v
		JOIN events e ON e.rowid = v.event_ref
		WHERE e.run_id = ?
		GROUP BY v.scenario, v.observable
		ORDER BY v.scenario, v.observable`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying report statistics: %w", err)
	}
	defer rows.Close()

	var stats []reportStat
	for rows.Next() {
		var st reportStat
		if err := rows.Scan(&st.scenario, &st.observable, &st.events, &st.mean, &st.min, &st.max); err != nil {
			return nil, fmt.Errorf("scanning report row: %w", err)
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}
