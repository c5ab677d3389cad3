// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the mescan pipeline.
// Implements: prd001-ingest (ParticleRecord, Event, R2.1-R2.4);
//
//	prd002-classification (ClassifiedEvent, R1.1-R1.3);
//	prd005-scan (EventResult, R3.1-R3.3);
//
//	docs/ARCHITECTURE § Data Model.
package types

import "go-hep.org/x/hep/fmom"

// Generator status codes consumed by the classifier. Any other value marks
// an intermediate (decayed) record.
const (
	StatusIncoming   = -1
	StatusFinalState = 1
)

// ParticleRecord is one row of an event: a single particle with its
// generator bookkeeping and four-momentum.
// Per prd001-ingest R2.1-R2.3.
type ParticleRecord struct {
	// ID is the signed particle-type code; the magnitude identifies the
	// species, the sign distinguishes particle from antiparticle.
	ID int `json:"id" yaml:"id"`

	// Status is the generator status code: -1 incoming, 1 final state,
	// anything else intermediate.
	Status int `json:"status" yaml:"status"`

	// Mother1 and Mother2 are 1-based indices into the event's record list
	// naming the progenitor records. 0 marks an absent link.
	Mother1 int `json:"mother1" yaml:"mother1"`
	Mother2 int `json:"mother2" yaml:"mother2"`

	// Color1 and Color2 carry the color-flow tags from the 13-field form.
	// Opaque to classification.
	Color1 int `json:"color1,omitempty" yaml:"color1,omitempty"`
	Color2 int `json:"color2,omitempty" yaml:"color2,omitempty"`

	// P is the four-momentum (px, py, pz, e) in GeV.
	P fmom.PxPyPzE `json:"p4" yaml:"p4,flow"`

	// Mass is the declared mass column of the 13-field form, in GeV.
	Mass float64 `json:"mass,omitempty" yaml:"mass,omitempty"`

	// Lifetime is the invariant lifetime column (c*tau, mm).
	Lifetime float64 `json:"lifetime,omitempty" yaml:"lifetime,omitempty"`

	// Spin is the cosine of the angle between the particle's spin vector
	// and its mother's three-momentum.
	Spin float64 `json:"spin,omitempty" yaml:"spin,omitempty"`

	// Extended reports whether the record came from the 13-field form, so
	// the bookkeeping columns above are meaningful.
	Extended bool `json:"extended" yaml:"extended"`
}

// Incoming reports whether the record is an initial-state beam particle.
func (p ParticleRecord) Incoming() bool { return p.Status == StatusIncoming }

// FinalState reports whether the record is stable at generator level.
func (p ParticleRecord) FinalState() bool { return p.Status == StatusFinalState }
