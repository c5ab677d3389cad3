package types

import "time"

// EngineConfig holds settings for the external matrix-element worker.
type EngineConfig struct {
	// WorkerCmd is the worker binary spawned by the engine adapter
	// (e.g. "mela-worker").
	WorkerCmd string `json:"worker_cmd" yaml:"worker_cmd"`

	// WorkerArgs are extra arguments passed to the worker.
	WorkerArgs []string `json:"worker_args,omitempty" yaml:"worker_args,omitempty"`

	// StartupTimeout bounds the wait for the worker's ready line (default 30s).
	StartupTimeout time.Duration `json:"startup_timeout" yaml:"startup_timeout"`
}

// ScanConfig holds settings for the scan stage.
type ScanConfig struct {
	// Workers is the number of concurrent engine workers (default 1).
	Workers int `json:"workers" yaml:"workers"`

	// Observables lists the quantities to compute per event and scenario
	// (default ["p"]).
	Observables []string `json:"observables" yaml:"observables"`

	// ScenarioFile is the YAML file of named coupling scenarios.
	ScenarioFile string `json:"scenario_file" yaml:"scenario_file"`

	// Process, MatrixElement and Production select the engine process mode.
	Process       string `json:"process" yaml:"process"`
	MatrixElement string `json:"matrix_element" yaml:"matrix_element"`
	Production    string `json:"production" yaml:"production"`

	// GenLevel marks the input as generator-level (truth) events.
	GenLevel bool `json:"gen_level" yaml:"gen_level"`

	// SkipBad records malformed events and continues instead of aborting.
	SkipBad bool `json:"skip_bad" yaml:"skip_bad"`

	// Limit stops after this many events (0 = all).
	Limit int `json:"limit" yaml:"limit"`
}

// ResultsConfig holds settings for the results store.
type ResultsConfig struct {
	// DBPath is the SQLite database file (default "mescan.db").
	DBPath string `json:"db_path" yaml:"db_path"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Engine  EngineConfig  `json:"engine" yaml:"engine"`
	Scan    ScanConfig    `json:"scan" yaml:"scan"`
	Results ResultsConfig `json:"results" yaml:"results"`
}
