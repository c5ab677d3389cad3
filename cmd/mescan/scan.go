package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mvasilev/mescan/internal/couplings"
	"github.com/mvasilev/mescan/internal/engine"
	"github.com/mvasilev/mescan/internal/results"
	"github.com/mvasilev/mescan/internal/scan"
	"github.com/mvasilev/mescan/pkg/types"
)

const defaultWorkerCmd = "mela-worker"

var scanCmd = &cobra.Command{
	Use:   "scan [file]",
	Short: "Compute observables for each event across coupling scenarios",
	Long: `Scan runs the full pipeline: events are decoded and classified, handed
to matrix-element workers, and evaluated under every coupling scenario.
The results are recorded in the results database.

Without --scenarios the built-in scenario set is used (SM, pure anomalous
couplings, and mixtures). Use "-" to read events from standard input.`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().String("scenarios", "", "YAML file of named coupling scenarios (default: built-in set)")
	scanCmd.Flags().StringSlice("observables", []string{"p"}, "observables to compute: p, p_aux, prod_p, prod_dec_p, pm4l, d_cp, propagator")
	scanCmd.Flags().String("process", "SelfDefine_spin0", "process hypothesis")
	scanCmd.Flags().String("matrix-element", "JHUGen", "matrix element calculator")
	scanCmd.Flags().String("production", "ZZGG", "production mode")
	scanCmd.Flags().Int("workers", 1, "number of concurrent engine workers")
	scanCmd.Flags().Bool("gen-level", false, "treat input as generator-level (truth) events")
	scanCmd.Flags().Bool("skip-bad", false, "record malformed events and continue instead of aborting")
	scanCmd.Flags().Int("limit", 0, "stop after this many events (0 = all)")
	scanCmd.Flags().String("worker", "", "matrix-element worker binary (default: mela-worker)")
	scanCmd.Flags().StringArray("worker-arg", nil, "extra argument passed to the worker (repeatable)")
	scanCmd.Flags().Duration("startup-timeout", 0, "wait for the worker's ready line (default 30s)")

	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide an event file to scan (or - for stdin)")
	}
	source := args[0]

	scenarios, err := scanScenarios(cmd)
	if err != nil {
		return err
	}

	obsNames, _ := cmd.Flags().GetStringSlice("observables")
	observables, err := engine.ParseObservables(obsNames)
	if err != nil {
		return err
	}

	process, _ := cmd.Flags().GetString("process")
	matrixElement, _ := cmd.Flags().GetString("matrix-element")
	production, _ := cmd.Flags().GetString("production")
	proc := engine.ProcessConfig{
		Process:       engine.Process(process),
		MatrixElement: engine.MatrixElement(matrixElement),
		Production:    engine.Production(production),
	}
	if err := proc.Validate(); err != nil {
		return err
	}

	workers, _ := cmd.Flags().GetInt("workers")
	genLevel, _ := cmd.Flags().GetBool("gen-level")
	skipBad, _ := cmd.Flags().GetBool("skip-bad")
	limit, _ := cmd.Flags().GetInt("limit")

	workerArgs, _ := cmd.Flags().GetStringArray("worker-arg")
	startupTimeout, _ := cmd.Flags().GetDuration("startup-timeout")
	engCfg := types.EngineConfig{
		WorkerCmd:      stringSetting(cmd, "worker", defaultWorkerCmd),
		WorkerArgs:     workerArgs,
		StartupTimeout: startupTimeout,
	}

	in, err := openInput(source)
	if err != nil {
		return err
	}
	defer in.Close()

	scanner := &scan.Scanner{
		Factory:  func() (engine.Engine, error) { return engine.NewRemote(engCfg) },
		Progress: progressWriter(cmd),
		Opts: scan.Options{
			Workers:     workers,
			Process:     proc,
			Scenarios:   scenarios,
			Observables: observables,
			GenLevel:    genLevel,
			SkipBad:     skipBad,
			Limit:       limit,
		},
	}

	started := time.Now()
	summary, err := scanner.Run(context.Background(), in)
	if err != nil {
		return err
	}

	store, err := results.Open(databasePath(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := store.RecordRun(context.Background(), results.RunMeta{
		Source:        source,
		Process:       process,
		MatrixElement: matrixElement,
		Production:    production,
		GenLevel:      genLevel,
		StartedAt:     started,
	}, summary.Results)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Recorded run %s: %d events, %d values, %d failed\n",
		id, summary.Events, summary.Values, summary.Failed)
	return nil
}

func scanScenarios(cmd *cobra.Command) ([]couplings.Scenario, error) {
	path, _ := cmd.Flags().GetString("scenarios")
	if path == "" {
		return couplings.DefaultScenarios(), nil
	}
	return couplings.LoadScenarios(path)
}
