// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package results persists scan output in a SQLite database and exports
// recorded runs.
// Implements: prd006-results (R1-R4);
//
//	docs/ARCHITECTURE § Results Store.
package results

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mvasilev/mescan/pkg/types"
)

// ErrNotFound reports a run ID with no stored run.
var ErrNotFound = errors.New("run not found")

// Store manages the scan results SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the results database at path. It creates the
// schema if it does not exist (R1.1, R1.2).
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			source TEXT,
			process TEXT,
			matrix_element TEXT,
			production TEXT,
			gen_level INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id),
			event_index INTEGER NOT NULL,
			nparticles INTEGER,
			daughters INTEGER,
			associated INTEGER,
			mothers INTEGER,
			m_daughters REAL,
			error TEXT,
			UNIQUE(run_id, event_index)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_run_id ON events(run_id)`,
		`CREATE TABLE IF NOT EXISTS obs_values (
			event_ref INTEGER NOT NULL REFERENCES events(rowid),
			scenario TEXT NOT NULL,
			observable TEXT NOT NULL,
			value REAL NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_obs_values_event_ref ON obs_values(event_ref)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// RunMeta describes a scan run to be recorded.
type RunMeta struct {
	// Source is the path of the event file that was scanned.
	Source string

	// Process, MatrixElement and Production describe the engine
	// configuration used for every event of the run.
	Process       string
	MatrixElement string
	Production    string

	// GenLevel records whether matrix elements were computed on
	// generator-level kinematics.
	GenLevel bool

	// StartedAt is when the scan began. Zero means now.
	StartedAt time.Time
}

// Run is a recorded scan run with its event counts.
type Run struct {
	ID            string    `json:"id" yaml:"id"`
	StartedAt     time.Time `json:"started_at" yaml:"started_at"`
	Source        string    `json:"source" yaml:"source"`
	Process       string    `json:"process" yaml:"process"`
	MatrixElement string    `json:"matrix_element" yaml:"matrix_element"`
	Production    string    `json:"production" yaml:"production"`
	GenLevel      bool      `json:"gen_level" yaml:"gen_level"`
	Events        int       `json:"events" yaml:"events"`
	Failed        int       `json:"failed" yaml:"failed"`
}

// RecordRun stores a completed scan run with its per-event results and
// observable values in one transaction (R2.1-R2.3). It returns the ID
// assigned to the run.
func (s *Store) RecordRun(ctx context.Context, meta RunMeta, events []types.EventResult) (string, error) {
	id := uuid.NewString()
	startedAt := meta.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, source, process, matrix_element, production, gen_level)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, startedAt.UTC().Format(time.RFC3339Nano),
		meta.Source, meta.Process, meta.MatrixElement, meta.Production, boolInt(meta.GenLevel),
	)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	evStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO events (run_id, event_index, nparticles, daughters, associated, mothers, m_daughters, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("preparing event insert: %w", err)
	}
	defer evStmt.Close()

	valStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO obs_values (event_ref, scenario, observable, value)
		 VALUES (?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("preparing value insert: %w", err)
	}
	defer valStmt.Close()

	for _, ev := range events {
		res, err := evStmt.ExecContext(ctx,
			id, ev.Index, ev.NParticles, ev.Daughters, ev.Associated, ev.Mothers,
			ev.MDaughters, ev.Err,
		)
		if err != nil {
			return "", fmt.Errorf("inserting event %d: %w", ev.Index, err)
		}
		ref, err := res.LastInsertId()
		if err != nil {
			return "", fmt.Errorf("resolving event %d row: %w", ev.Index, err)
		}
		for _, v := range ev.Values {
			if _, err := valStmt.ExecContext(ctx, ref, v.Scenario, v.Observable, v.Value); err != nil {
				return "", fmt.Errorf("inserting value for event %d: %w", ev.Index, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing run: %w", err)
	}
	return id, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

const runQuery = `
	SELECT r.id, r.started_at, r.source, r.process, r.matrix_element, r.production, r.gen_level,
		COUNT(e.rowid), COALESCE(SUM(CASE WHEN e.error != '' THEN 1 ELSE 0 END), 0)
	FROM runs r
	LEFT JOIN events e ON e.run_id = r.id`

// Run returns one recorded run by ID (R3.1). It returns ErrNotFound
// when no run with that ID exists.
func (s *Store) Run(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, runQuery+` WHERE r.id = ? GROUP BY r.id`, id)

	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return Run{}, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("querying run: %w", err)
	}
	return r, nil
}

// Runs lists all recorded runs, most recent first (R3.2).
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, runQuery+` GROUP BY r.id ORDER BY r.started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		r         Run
		startedAt string
		genLevel  int
	)
	if err := row.Scan(
		&r.ID, &startedAt, &r.Source, &r.Process, &r.MatrixElement, &r.Production,
		&genLevel, &r.Events, &r.Failed,
	); err != nil {
		return Run{}, err
	}
	if t, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
		r.StartedAt = t
	}
	r.GenLevel = genLevel != 0
	return r, nil
}

// Events returns the per-event results of a run in event order, with
// observable values attached in the order they were computed (R3.3).
func (s *Store) Events(ctx context.Context, runID string) ([]types.EventResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT e.rowid, e.event_index, e.nparticles, e.daughters, e.associated, e.mothers,
			e.m_daughters, e.error, v.scenario, v.observable, v.value
		FROM events e
		LEFT JOIN obs_values v ON v.event_ref = e.rowid
		WHERE e.run_id = ?
		ORDER BY e.event_index, v.rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var (
		events  []types.EventResult
		lastRef int64 = -1
	)
	for rows.Next() {
		var (
			ref        int64
			ev         types.EventResult
			errText    sql.NullString
			scenario   sql.NullString
			observable sql.NullString
			value      sql.NullFloat64
		)
		if err := rows.Scan(
			&ref, &ev.Index, &ev.NParticles, &ev.Daughters, &ev.Associated, &ev.Mothers,
			&ev.MDaughters, &errText, &scenario, &observable, &value,
		); err != nil {
			return nil, fmt.Errorf("scanning event row: %w", err)
		}

		if ref != lastRef {
			if errText.Valid {
				ev.Err = errText.String
			}
			events = append(events, ev)
			lastRef = ref
		}

		if scenario.Valid {
			last := &events[len(events)-1]
			last.Values = append(last.Values, types.ObservableValue{
				Scenario:   scenario.String,
				Observable: observable.String,
				Value:      value.Float64,
			})
		}
	}
	return events, rows.Err()
}

// QueryOptions filters observable value queries (R3.4).
type QueryOptions struct {
	// RunID restricts values to one run.
	RunID string

	// Scenario and Observable filter by name.
	Scenario   string
	Observable string

	// MaxResults limits the result count. Zero means no limit.
	MaxResults int
}

// Value is one stored observable value with its event context.
type Value struct {
	RunID      string  `json:"run_id" yaml:"run_id"`
	EventIndex int     `json:"event_index" yaml:"event_index"`
	Scenario   string  `json:"scenario" yaml:"scenario"`
	Observable string  `json:"observable" yaml:"observable"`
	Value      float64 `json:"value" yaml:"value"`
}

// Values queries stored observable values with optional filters (R3.4).
func (s *Store) Values(ctx context.Context, opts QueryOptions) ([]Value, error) {
	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(
		`SELECT e.run_id, e.event_index, v.scenario, v.observable, v.value
		FROM obs_values v
		JOIN events e ON e.rowid = v.event_ref
		WHERE 1=1`)

	if opts.RunID != "" {
		qb.WriteString(` AND e.run_id = ?`)
		args = append(args, opts.RunID)
	}
	if opts.Scenario != "" {
		qb.WriteString(` AND v.scenario = ?`)
		args = append(args, opts.Scenario)
	}
	if opts.Observable != "" {
		qb.WriteString(` AND v.observable = ?`)
		args = append(args, opts.Observable)
	}

	qb.WriteString(` ORDER BY e.run_id, e.event_index, v.rowid`)

	if opts.MaxResults > 0 {
		qb.WriteString(` LIMIT ?`)
		args = append(args, opts.MaxResults)
	}

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying values: %w", err)
	}
	defer rows.Close()

	var values []Value
	for rows.Next() {
		var v Value
		if err := rows.Scan(&v.RunID, &v.EventIndex, &v.Scenario, &v.Observable, &v.Value); err != nil {
			return nil, fmt.Errorf("scanning value row: %w", err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}
