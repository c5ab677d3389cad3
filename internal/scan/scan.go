// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scan drives classified events through matrix-element engines
// across coupling scenarios and observables.
// Implements: prd005-scan (R1-R4);
//
//	docs/ARCHITECTURE § Scan.
package scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/mvasilev/mescan/internal/classify"
	"github.com/mvasilev/mescan/internal/couplings"
	"github.com/mvasilev/mescan/internal/engine"
	"github.com/mvasilev/mescan/internal/lhe"
	"github.com/mvasilev/mescan/pkg/types"
)

// Factory builds one engine. Each worker goroutine gets its own: engine
// state is configure-then-evaluate and must not be shared.
type Factory func() (engine.Engine, error)

// Options configure one scan run.
type Options struct {
	// Workers is the number of concurrent engines (default 1).
	Workers int

	// Process is sent to every engine once, before any event.
	Process engine.ProcessConfig

	// Scenarios are the coupling points evaluated per event.
	Scenarios []couplings.Scenario

	// Observables are computed per event and scenario.
	Observables []engine.Observable

	// GenLevel marks the input as truth-level kinematics.
	GenLevel bool

	// SkipBad records per-event failures and keeps going instead of
	// aborting the run. Undecodable input always aborts.
	SkipBad bool

	// Limit stops after this many events (0 = all).
	Limit int
}

// Scanner runs the scan pipeline: decode, classify, fan out to engine
// workers, collect results in input order.
type Scanner struct {
	Factory  Factory
	Progress io.Writer
	Opts     Options
}

// Summary aggregates a finished run.
type Summary struct {
	Events  int // events scanned
	Failed  int // events recorded as failed
	Values  int // observable values computed
	Results []types.EventResult
}

// HasFailures reports whether any event was recorded as failed.
func (s Summary) HasFailures() bool { return s.Failed > 0 }

type job struct {
	index int
	ev    types.Event
}

// Run decodes events from r and scans them. The first hard error cancels
// the run; per-event failures are recorded instead when SkipBad is set.
// Results come back sorted by event index.
func (s *Scanner) Run(ctx context.Context, r io.Reader) (Summary, error) {
	w := s.Progress
	if w == nil {
		w = io.Discard
	}
	if s.Factory == nil {
		return Summary{}, fmt.Errorf("no engine factory configured")
	}
	if len(s.Opts.Scenarios) == 0 {
		return Summary{}, fmt.Errorf("no scenarios to scan")
	}
	if len(s.Opts.Observables) == 0 {
		return Summary{}, fmt.Errorf("no observables to compute")
	}
	if err := s.Opts.Process.Validate(); err != nil {
		return Summary{}, err
	}

	workers := s.Opts.Workers
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan job)
	out := make(chan types.EventResult, workers)
	errc := make(chan error, workers+1)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.worker(ctx, jobs, out); err != nil {
				errc <- err
				cancel()
			}
		}()
	}

	// Decode and dispatch while results are collected below.
	go func() {
		defer close(jobs)
		dec := lhe.NewDecoder(r)
		for index := 0; ; index++ {
			if s.Opts.Limit > 0 && index >= s.Opts.Limit {
				return
			}
			ev, err := dec.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				errc <- fmt.Errorf("decoding input: %w", err)
				cancel()
				return
			}
			select {
			case jobs <- job{index: index, ev: ev}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(out)
	}()

	var summary Summary
	for res := range out {
		summary.Events++
		if res.Err != "" {
			summary.Failed++
			fmt.Fprintf(w, "event %d: failed (%s)\n", res.Index, res.Err)
		} else {
			summary.Values += len(res.Values)
			fmt.Fprintf(w, "event %d: %d values\n", res.Index, len(res.Values))
		}
		summary.Results = append(summary.Results, res)
	}

	// All senders are done once out closes.
	close(errc)
	var hard error
	for e := range errc {
		if hard == nil || (errors.Is(hard, context.Canceled) && !errors.Is(e, context.Canceled)) {
			hard = e
		}
	}
	if hard == nil {
		hard = ctx.Err()
	}
	if hard != nil {
		return Summary{}, hard
	}

	sort.Slice(summary.Results, func(i, j int) bool {
		return summary.Results[i].Index < summary.Results[j].Index
	})
	fmt.Fprintf(w, "\nScan summary: %d events, %d values, %d failed\n",
		summary.Events, summary.Values, summary.Failed)
	return summary, nil
}

// worker owns one engine for the lifetime of the run.
func (s *Scanner) worker(ctx context.Context, jobs <-chan job, out chan<- types.EventResult) error {
	eng, err := s.Factory()
	if err != nil {
		return fmt.Errorf("starting engine: %w", err)
	}
	defer eng.Close()

	if err := eng.SetProcess(ctx, s.Opts.Process); err != nil {
		return err
	}

	for j := range jobs {
		res, err := s.scanEvent(ctx, eng, j.index, j.ev)
		if err != nil {
			return fmt.Errorf("event %d: %w", j.index, err)
		}
		if res.Err != "" && !s.Opts.SkipBad {
			return fmt.Errorf("event %d: %s", j.index, res.Err)
		}
		select {
		case out <- res:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// scanEvent evaluates every scenario and observable for one event. A
// non-nil error is a hard failure; event-specific problems come back in
// the result's Err field instead. The engine consumes applied couplings
// on each compute, so they are re-applied before every Compute call.
func (s *Scanner) scanEvent(ctx context.Context, eng engine.Engine, index int, ev types.Event) (types.EventResult, error) {
	res := types.EventResult{Index: index, NParticles: ev.Header.NParticles}

	classified, err := classify.ClassifyEvent(ev)
	if err != nil {
		res.Err = err.Error()
		return res, nil
	}
	res.Daughters = len(classified.Daughters)
	res.Associated = len(classified.Associated)
	res.Mothers = len(classified.Mothers)
	if res.Daughters == 0 {
		res.Err = "no decay daughters found"
		return res, nil
	}
	p4 := classified.DaughterP4()
	res.MDaughters = p4.M()

	if err := eng.SetEvent(ctx, classified, s.Opts.GenLevel); err != nil {
		return res, err
	}

	for _, sc := range s.Opts.Scenarios {
		var set couplings.Set
		if err := sc.ApplyTo(&set); err != nil {
			return res, err
		}
		for _, obs := range s.Opts.Observables {
			if err := eng.ApplyCouplings(ctx, &set); err != nil {
				return res, err
			}
			v, err := eng.Compute(ctx, engine.Request{Observable: obs})
			if err != nil {
				var we *engine.WorkerError
				if errors.As(err, &we) {
					res.Err = we.Error()
					return res, nil
				}
				return res, err
			}
			res.Values = append(res.Values, types.ObservableValue{
				Scenario:   sc.Name,
				Observable: string(obs),
				Value:      v,
			})
		}
	}
	return res, nil
}
