// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package results

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/mvasilev/mescan/pkg/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleMeta() RunMeta {
	return RunMeta{
		Source:        "events.lhe",
		Process:       "SelfDefine_spin0",
		MatrixElement: "JHUGen",
		Production:    "ZZGG",
		StartedAt:     time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func sampleEvents() []types.EventResult {
	return []types.EventResult{
		{
			Index: 0, NParticles: 9, Daughters: 4, Associated: 0, Mothers: 2,
			MDaughters: 125.0,
			Values: []types.ObservableValue{
				{Scenario: "sm", Observable: "p", Value: 1.0},
				{Scenario: "sm", Observable: "prod_p", Value: 3.0},
				{Scenario: "ps", Observable: "p", Value: 2.0},
				{Scenario: "ps", Observable: "prod_p", Value: 4.0},
			},
		},
		{
			Index: 1, NParticles: 5,
			Err: "no decay daughters found",
		},
		{
			Index: 2, NParticles: 9, Daughters: 4, Associated: 2, Mothers: 2,
			MDaughters: 124.6,
			Values: []types.ObservableValue{
				{Scenario: "sm", Observable: "p", Value: 3.0},
				{Scenario: "sm", Observable: "prod_p", Value: 5.0},
				{Scenario: "ps", Observable: "p", Value: 6.0},
				{Scenario: "ps", Observable: "prod_p", Value: 8.0},
			},
		},
	}
}

func TestRecordRunRoundTrip(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	meta := sampleMeta()
	events := sampleEvents()

	id, err := store.RecordRun(ctx, meta, events)
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err, "run ID should be a UUID")

	run, err := store.Run(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, run.ID)
	assert.True(t, run.StartedAt.Equal(meta.StartedAt))
	assert.Equal(t, "events.lhe", run.Source)
	assert.Equal(t, "SelfDefine_spin0", run.Process)
	assert.Equal(t, "JHUGen", run.MatrixElement)
	assert.Equal(t, "ZZGG", run.Production)
	assert.False(t, run.GenLevel)
	assert.Equal(t, 3, run.Events)
	assert.Equal(t, 1, run.Failed)

	got, err := store.Events(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, events, got)
}

func TestRecordRunNoEvents(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	id, err := store.RecordRun(ctx, sampleMeta(), nil)
	require.NoError(t, err)

	run, err := store.Run(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, run.Events)
	assert.Equal(t, 0, run.Failed)

	got, err := store.Events(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestOpenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.db")
	ctx := context.Background()

	store, err := Open(path)
	require.NoError(t, err)
	id, err := store.RecordRun(ctx, sampleMeta(), sampleEvents())
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Reopening must find the existing schema and data.
	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()

	run, err := store.Run(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, run.Events)
}

func TestRunsNewestFirst(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	older := sampleMeta()
	id1, err := store.RecordRun(ctx, older, sampleEvents())
	require.NoError(t, err)

	newer := RunMeta{
		Source:        "more-events.lhe",
		Process:       "H0minus",
		MatrixElement: "JHUGen",
		Production:    "ZZGG",
		GenLevel:      true,
		StartedAt:     time.Date(2026, 3, 1, 11, 30, 0, 0, time.UTC),
	}
	id2, err := store.RecordRun(ctx, newer, []types.EventResult{
		{
			Index: 0, NParticles: 7, Daughters: 4, Mothers: 2, MDaughters: 125.2,
			Values: []types.ObservableValue{
				{Scenario: "sm", Observable: "p", Value: 9.5},
			},
		},
	})
	require.NoError(t, err)

	runs, err := store.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, id2, runs[0].ID)
	assert.Equal(t, id1, runs[1].ID)
	assert.True(t, runs[0].GenLevel)
	assert.Equal(t, 1, runs[0].Events)
	assert.Equal(t, 0, runs[0].Failed)
	assert.Equal(t, 3, runs[1].Events)
	assert.Equal(t, 1, runs[1].Failed)
}

func TestRunNotFound(t *testing.T) {
	store := testStore(t)

	_, err := store.Run(context.Background(), "no-such-run")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "no-such-run")
}

func TestValuesFilters(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	id, err := store.RecordRun(ctx, sampleMeta(), sampleEvents())
	require.NoError(t, err)

	tests := []struct {
		name string
		opts QueryOptions
		want int
	}{
		{"all", QueryOptions{}, 8},
		{"by run", QueryOptions{RunID: id}, 8},
		{"unknown run", QueryOptions{RunID: "other"}, 0},
		{"by scenario", QueryOptions{Scenario: "sm"}, 4},
		{"by observable", QueryOptions{Observable: "prod_p"}, 4},
		{"scenario and observable", QueryOptions{Scenario: "ps", Observable: "p"}, 2},
		{"limited", QueryOptions{MaxResults: 3}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Values(ctx, tt.opts)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}

	// Filtered values come back in event order with full context.
	got, err := store.Values(ctx, QueryOptions{Scenario: "ps", Observable: "p"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, Value{RunID: id, EventIndex: 0, Scenario: "ps", Observable: "p", Value: 2.0}, got[0])
	assert.Equal(t, Value{RunID: id, EventIndex: 2, Scenario: "ps", Observable: "p", Value: 6.0}, got[1])
}

func TestExportYAML(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	id, err := store.RecordRun(ctx, sampleMeta(), sampleEvents())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, store.ExportYAML(ctx, &buf, id))

	var got ExportRun
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, id, got.Run.ID)
	require.Len(t, got.Events, 3)
	assert.Equal(t, "no decay daughters found", got.Events[1].Err)
	assert.Equal(t, types.ObservableValue{Scenario: "sm", Observable: "p", Value: 1.0}, got.Events[0].Values[0])
}

func TestExportJSON(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	id, err := store.RecordRun(ctx, sampleMeta(), sampleEvents())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, store.ExportJSON(ctx, &buf, id))

	var got ExportRun
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, id, got.Run.ID)
	assert.Equal(t, 3, got.Run.Events)
	require.Len(t, got.Events, 3)
	assert.Equal(t, 124.6, got.Events[2].MDaughters)
}

func TestExportUnknownRun(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	require.ErrorIs(t, store.ExportYAML(ctx, io.Discard, "missing"), ErrNotFound)
	require.ErrorIs(t, store.ExportJSON(ctx, io.Discard, "missing"), ErrNotFound)
	require.ErrorIs(t, store.WriteReport(ctx, io.Discard, "missing"), ErrNotFound)
}

func TestWriteReport(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	id, err := store.RecordRun(ctx, sampleMeta(), sampleEvents())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, store.WriteReport(ctx, &buf, id))
	report := buf.String()

	assert.Contains(t, report, "# Scan run "+id)
	assert.Contains(t, report, "- started: 2026-03-01T10:00:00Z")
	assert.Contains(t, report, "- source: events.lhe")
	assert.Contains(t, report, "- process: SelfDefine_spin0 / JHUGen / ZZGG")
	assert.Contains(t, report, "- events: 3 (1 failed)")
	assert.NotContains(t, report, "generator level")

	// Aggregates per scenario/observable pair, scenarios sorted.
	assert.Contains(t, report, "| scenario | observable | events | mean | min | max |")
	assert.Contains(t, report, "| ps | p | 2 | 4 | 2 | 6 |")
	assert.Contains(t, report, "| ps | prod_p | 2 | 6 | 4 | 8 |")
	assert.Contains(t, report, "| sm | p | 2 | 2 | 1 | 3 |")
	assert.Contains(t, report, "| sm | prod_p | 2 | 4 | 3 | 5 |")
}

func TestWriteReportNoValues(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	id, err := store.RecordRun(ctx, sampleMeta(), []types.EventResult{
		{Index: 0, NParticles: 5, Err: "no decay daughters found"},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, store.WriteReport(ctx, &buf, id))

	assert.Contains(t, buf.String(), "- events: 1 (1 failed)")
	assert.Contains(t, buf.String(), "No observable values recorded.")
}
