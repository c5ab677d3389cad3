// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package engine defines the boundary to the external matrix-element
// worker and the subprocess adapter that speaks to it.
// Implements: prd004-engine-bridge (R1-R5);
//
//	docs/ARCHITECTURE § Engine Bridge.
package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/mvasilev/mescan/internal/couplings"
	"github.com/mvasilev/mescan/pkg/types"
)

// Process selects the signal hypothesis.
type Process string

// Processes understood by the worker.
const (
	HSMHiggs        Process = "HSMHiggs"
	H0Minus         Process = "H0minus"
	H0HPlus         Process = "H0hplus"
	SelfDefineSpin0 Process = "SelfDefine_spin0"
)

func (p Process) valid() bool {
	switch p {
	case HSMHiggs, H0Minus, H0HPlus, SelfDefineSpin0:
		return true
	}
	return false
}

// MatrixElement selects the matrix-element implementation inside the
// worker.
type MatrixElement string

const (
	JHUGen     MatrixElement = "JHUGen"
	MCFM       MatrixElement = "MCFM"
	Analytical MatrixElement = "Analytical"
)

func (m MatrixElement) valid() bool {
	switch m {
	case JHUGen, MCFM, Analytical:
		return true
	}
	return false
}

// Production selects the production mode.
type Production string

const (
	ZZGG          Production = "ZZGG"
	ZZQQB         Production = "ZZQQB"
	ZZIndependent Production = "ZZINDEPENDENT"
	LepZH         Production = "Lep_ZH"
	LepWH         Production = "Lep_WH"
	HadZH         Production = "Had_ZH"
	HadWH         Production = "Had_WH"
	JJVBF         Production = "JJVBF"
	JJQCD         Production = "JJQCD"
)

func (p Production) valid() bool {
	switch p {
	case ZZGG, ZZQQB, ZZIndependent, LepZH, LepWH, HadZH, HadWH, JJVBF, JJQCD:
		return true
	}
	return false
}

// ProcessConfig is the triple the worker needs before any computation:
// which hypothesis, which matrix element, which production mode.
type ProcessConfig struct {
	Process       Process       `json:"process" yaml:"process"`
	MatrixElement MatrixElement `json:"matrix_element" yaml:"matrix_element"`
	Production    Production    `json:"production" yaml:"production"`
}

// Validate checks all three members against the worker's constant surface.
func (c ProcessConfig) Validate() error {
	if !c.Process.valid() {
		return fmt.Errorf("unknown process %q", c.Process)
	}
	if !c.MatrixElement.valid() {
		return fmt.Errorf("unknown matrix element %q", c.MatrixElement)
	}
	if !c.Production.valid() {
		return fmt.Errorf("unknown production %q", c.Production)
	}
	return nil
}

// Observable names a quantity the worker can compute for the current
// event and couplings.
type Observable string

const (
	ObsP          Observable = "p"          // decay probability
	ObsPAux       Observable = "p_aux"      // auxiliary probability
	ObsProdP      Observable = "prod_p"     // production probability
	ObsProdDecP   Observable = "prod_dec_p" // combined production and decay
	ObsPM4l       Observable = "pm4l"       // four-lepton mass probability
	ObsDCP        Observable = "d_cp"       // CP discriminant
	ObsPropagator Observable = "propagator" // resonance propagator factor
)

var observables = []Observable{
	ObsP, ObsPAux, ObsProdP, ObsProdDecP, ObsPM4l, ObsDCP, ObsPropagator,
}

func (o Observable) valid() bool {
	for _, k := range observables {
		if o == k {
			return true
		}
	}
	return false
}

// ParseObservables maps the comma- or flag-separated CLI names onto the
// known observables.
func ParseObservables(names []string) ([]Observable, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("no observables requested")
	}
	out := make([]Observable, 0, len(names))
	for _, name := range names {
		o := Observable(strings.TrimSpace(name))
		if !o.valid() {
			return nil, fmt.Errorf("unknown observable %q (known: %s)", name, observableList())
		}
		out = append(out, o)
	}
	return out, nil
}

func observableList() string {
	names := make([]string, len(observables))
	for i, o := range observables {
		names[i] = string(o)
	}
	return strings.Join(names, ", ")
}

// PropagatorScheme selects how the propagator observable treats the
// resonance width.
type PropagatorScheme string

const (
	SchemeFixedWidth PropagatorScheme = "fixed_width"
	SchemeCPS        PropagatorScheme = "cps"
)

// Request is one computation order: which observable, and its modifiers.
// Scheme applies to the propagator observable only; empty means
// fixed_width.
type Request struct {
	Observable  Observable       `json:"observable"`
	UseConstant bool             `json:"use_constant,omitempty"`
	Scheme      PropagatorScheme `json:"scheme,omitempty"`
}

// Validate rejects unknown observables and schemes before they reach the
// worker.
func (r Request) Validate() error {
	if !r.Observable.valid() {
		return fmt.Errorf("unknown observable %q", r.Observable)
	}
	switch r.Scheme {
	case "", SchemeFixedWidth, SchemeCPS:
		return nil
	default:
		return fmt.Errorf("unknown propagator scheme %q", r.Scheme)
	}
}

// Angles are the decay-frame angles of the current event, in the
// worker's convention.
type Angles struct {
	QH           float64 `json:"qH"`
	M1           float64 `json:"m1"`
	M2           float64 `json:"m2"`
	CosTheta1    float64 `json:"costheta1"`
	CosTheta2    float64 `json:"costheta2"`
	Phi          float64 `json:"Phi"`
	CosThetaStar float64 `json:"costhetastar"`
	Phi1         float64 `json:"Phi1"`
}

// Engine is the narrow surface the scan pipeline drives. Implementations
// are stateful and single-caller: configure the process once, then per
// event set the event, apply couplings and compute. The worker consumes
// applied couplings on each compute, so couplings must be re-applied
// before every Compute call.
type Engine interface {
	// SetProcess configures the hypothesis, matrix element and
	// production mode for all following computations.
	SetProcess(ctx context.Context, cfg ProcessConfig) error

	// SetCoupling stages a single named coupling value.
	SetCoupling(ctx context.Context, name string, value complex128) error

	// ApplyCouplings stages a complete coupling configuration.
	ApplyCouplings(ctx context.Context, set *couplings.Set) error

	// SetEvent loads a classified event. genLevel marks truth-level
	// kinematics.
	SetEvent(ctx context.Context, ev types.ClassifiedEvent, genLevel bool) error

	// Compute evaluates one observable for the current event.
	Compute(ctx context.Context, req Request) (float64, error)

	// DecayAngles returns the decay-frame angles of the current event.
	DecayAngles(ctx context.Context) (Angles, error)

	// Close shuts the engine down. The engine is unusable afterwards.
	Close() error
}
