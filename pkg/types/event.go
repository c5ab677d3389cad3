// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "go-hep.org/x/hep/fmom"

// EventHeader carries the metadata line that opens an event block. The
// particle count is always parsed; the standard generator fields are filled
// when the header has the six-field layout, and anything else is kept
// verbatim in Extra. Per prd001-ingest R3.1-R3.2.
type EventHeader struct {
	// NParticles is the declared number of record lines in the block.
	NParticles int `json:"nparticles" yaml:"nparticles"`

	// ProcessID is the generator subprocess code (IDPRUP).
	ProcessID int `json:"process_id,omitempty" yaml:"process_id,omitempty"`

	// Weight is the event weight (XWGTUP).
	Weight float64 `json:"weight,omitempty" yaml:"weight,omitempty"`

	// Scale is the factorization scale in GeV (SCALUP).
	Scale float64 `json:"scale,omitempty" yaml:"scale,omitempty"`

	// AlphaQED and AlphaQCD are the couplings used for the event
	// (AQEDUP, AQCDUP).
	AlphaQED float64 `json:"alpha_qed,omitempty" yaml:"alpha_qed,omitempty"`
	AlphaQCD float64 `json:"alpha_qcd,omitempty" yaml:"alpha_qcd,omitempty"`

	// Extra holds header tokens that do not match the standard layout.
	Extra []string `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Event is one decoded event block: header plus particle records in input
// order.
type Event struct {
	// Header is the block's metadata line.
	Header EventHeader `json:"header" yaml:"header"`

	// Particles lists the records in input order. Mother indices address
	// this slice 1-based.
	Particles []ParticleRecord `json:"particles" yaml:"particles"`

	// Line is the 1-based input line number of the header, for error
	// reporting.
	Line int `json:"line,omitempty" yaml:"line,omitempty"`
}

// ClassifiedEvent is the output partition of one event: Higgs decay
// products, associated production particles, and the incoming beams.
// Within each group the input order is preserved.
// Per prd002-classification R1.1-R1.3.
type ClassifiedEvent struct {
	// Daughters are final-state particles of interest whose ancestry chain
	// reaches the Higgs resonance.
	Daughters []ParticleRecord `json:"daughters" yaml:"daughters"`

	// Associated are final-state particles of interest produced outside
	// the Higgs decay.
	Associated []ParticleRecord `json:"associated" yaml:"associated"`

	// Mothers are the incoming beam partons.
	Mothers []ParticleRecord `json:"mothers" yaml:"mothers"`
}

// DaughterP4 returns the summed four-momentum of the daughter system. Its
// invariant mass is the reconstructed resonance mass (m4l for H->4l).
func (c ClassifiedEvent) DaughterP4() fmom.PxPyPzE {
	var px, py, pz, e float64
	for _, d := range c.Daughters {
		px += d.P.Px()
		py += d.P.Py()
		pz += d.P.Pz()
		e += d.P.E()
	}
	return fmom.NewPxPyPzE(px, py, pz, e)
}
