// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ObservableValue is one engine evaluation: a named observable computed for
// one event under one coupling scenario.
type ObservableValue struct {
	// Scenario names the coupling scenario the engine was configured with.
	Scenario string `json:"scenario" yaml:"scenario"`

	// Observable names the computed quantity (e.g. "p", "prod_p", "p_aux").
	Observable string `json:"observable" yaml:"observable"`

	// Value is the computed result.
	Value float64 `json:"value" yaml:"value"`
}

// EventResult collects everything the scan produced for one event.
// Per prd005-scan R3.1-R3.3.
type EventResult struct {
	// Index is the zero-based position of the event in its source file.
	Index int `json:"index" yaml:"index"`

	// NParticles is the declared particle count from the event header.
	NParticles int `json:"nparticles" yaml:"nparticles"`

	// Daughters, Associated and Mothers are the classified group sizes.
	Daughters  int `json:"daughters" yaml:"daughters"`
	Associated int `json:"associated" yaml:"associated"`
	Mothers    int `json:"mothers" yaml:"mothers"`

	// MDaughters is the invariant mass of the summed daughter system in
	// GeV (the four-lepton mass for H->4l events).
	MDaughters float64 `json:"m_daughters" yaml:"m_daughters"`

	// Values lists the computed observables, one entry per
	// scenario/observable pair.
	Values []ObservableValue `json:"values,omitempty" yaml:"values,omitempty"`

	// Err records the classification or engine failure when the scan ran
	// with skip-bad; empty on success.
	Err string `json:"error,omitempty" yaml:"error,omitempty"`
}
