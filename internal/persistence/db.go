// Package persistence provides SQLite-based storage for finished runs:
// patients, fortnightly visit records, and validation results.
package persistence

import (
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/maculab/amdsim/internal/engine"
	"github.com/maculab/amdsim/internal/patient"
	"github.com/maculab/amdsim/internal/validate"
)

// DB wraps a SQLite connection for simulation result storage.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		cohort_size INTEGER NOT NULL,
		horizon_fortnights INTEGER NOT NULL,
		mean_vision REAL NOT NULL,
		mean_change REAL NOT NULL,
		discontinued INTEGER NOT NULL,
		total_treatments INTEGER NOT NULL,
		total_events INTEGER NOT NULL,
		created_at TEXT NOT NULL DEFAULT (datetime('now'))
	);

	CREATE TABLE IF NOT EXISTS patients (
		run_id TEXT NOT NULL,
		id TEXT NOT NULL,
		idx INTEGER NOT NULL,
		baseline_vision REAL NOT NULL,
		final_vision REAL NOT NULL,
		ceiling REAL NOT NULL,
		disease_state TEXT NOT NULL,
		treatments_received INTEGER NOT NULL,
		discontinued INTEGER NOT NULL,
		discontinued_fortnight INTEGER,
		discontinuation_reason TEXT,
		characteristics_json TEXT,
		events_json TEXT,
		PRIMARY KEY (run_id, id)
	);

	CREATE TABLE IF NOT EXISTS visits (
		run_id TEXT NOT NULL,
		patient_id TEXT NOT NULL,
		fortnight INTEGER NOT NULL,
		vision REAL NOT NULL,
		disease_state TEXT NOT NULL,
		treated INTEGER NOT NULL,
		treatments_received INTEGER NOT NULL,
		PRIMARY KEY (run_id, patient_id, fortnight)
	);

	CREATE TABLE IF NOT EXISTS validation_results (
		run_id TEXT NOT NULL,
		name TEXT NOT NULL,
		expected REAL NOT NULL,
		tolerance REAL NOT NULL,
		actual REAL NOT NULL,
		pass INTEGER NOT NULL,
		PRIMARY KEY (run_id, name)
	);

	CREATE TABLE IF NOT EXISTS run_meta (
		run_id TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (run_id, key)
	);

	CREATE INDEX IF NOT EXISTS idx_visits_patient ON visits(run_id, patient_id);
	CREATE INDEX IF NOT EXISTS idx_patients_run ON patients(run_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveRun writes a finished simulation: run summary, every patient, and every
// visit record, in one transaction (full replace for the run id).
func (db *DB) SaveRun(sim *engine.Simulation) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM runs WHERE id = ?", sim.RunID); err != nil {
		return err
	}
	for _, table := range []string{"patients", "visits", "validation_results", "run_meta"} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE run_id = ?", sim.RunID); err != nil {
			return err
		}
	}

	_, err = tx.Exec(`INSERT INTO runs
		(id, seed, cohort_size, horizon_fortnights, mean_vision, mean_change, discontinued, total_treatments, total_events)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sim.RunID, sim.Config.Seed, len(sim.Cohort), sim.Config.HorizonFortnights,
		sim.Stats.MeanVision, sim.Stats.MeanChange, sim.Stats.Discontinued,
		sim.Stats.TotalTreatments, sim.Stats.TotalEvents)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	patientStmt, err := tx.Prepare(`INSERT INTO patients
		(run_id, id, idx, baseline_vision, final_vision, ceiling, disease_state,
		 treatments_received, discontinued, discontinued_fortnight, discontinuation_reason,
		 characteristics_json, events_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer patientStmt.Close()

	visitStmt, err := tx.Prepare(`INSERT INTO visits
		(run_id, patient_id, fortnight, vision, disease_state, treated, treatments_received)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer visitStmt.Close()

	for _, p := range sim.Cohort {
		charJSON, err := json.Marshal(p.Characteristics)
		if err != nil {
			return fmt.Errorf("marshal characteristics for %s: %w", p.ID, err)
		}
		eventsJSON, err := json.Marshal(p.Events)
		if err != nil {
			return fmt.Errorf("marshal events for %s: %w", p.ID, err)
		}

		_, err = patientStmt.Exec(
			sim.RunID, p.ID, p.Index, p.BaselineVision, p.CurrentVision, p.Ceiling,
			p.Disease.String(), p.TreatmentsReceived, p.Discontinued,
			p.DiscontinuedFortnight, p.DiscontinuationReason,
			string(charJSON), string(eventsJSON))
		if err != nil {
			return fmt.Errorf("insert patient %s: %w", p.ID, err)
		}

		for _, v := range p.Visits {
			_, err = visitStmt.Exec(sim.RunID, p.ID, v.Fortnight, v.Vision,
				v.Disease.String(), v.Treated, v.TreatmentsReceived)
			if err != nil {
				return fmt.Errorf("insert visit %s/%d: %w", p.ID, v.Fortnight, err)
			}
		}
	}

	return tx.Commit()
}

// SaveValidation writes the validation report for a run.
func (db *DB) SaveValidation(runID string, report *validate.Report) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM validation_results WHERE run_id = ?", runID); err != nil {
		return err
	}
	for _, r := range report.Results {
		_, err := tx.Exec(`INSERT INTO validation_results (run_id, name, expected, tolerance, actual, pass)
			VALUES (?, ?, ?, ?, ?, ?)`,
			runID, r.Name, r.Expected, r.Tolerance, r.Actual, r.Pass)
		if err != nil {
			return fmt.Errorf("insert validation result %s: %w", r.Name, err)
		}
	}
	return tx.Commit()
}

// SetMeta stores a key/value pair for a run.
func (db *DB) SetMeta(runID, key, value string) error {
	_, err := db.conn.Exec(
		`INSERT INTO run_meta (run_id, key, value) VALUES (?, ?, ?)
		 ON CONFLICT(run_id, key) DO UPDATE SET value = excluded.value`,
		runID, key, value)
	return err
}

// GetMeta retrieves a stored key for a run.
func (db *DB) GetMeta(runID, key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM run_meta WHERE run_id = ? AND key = ?", runID, key)
	return value, err
}

// RunSummary is a stored run's headline numbers.
type RunSummary struct {
	ID                string  `db:"id" json:"id"`
	Seed              int64   `db:"seed" json:"seed"`
	CohortSize        int     `db:"cohort_size" json:"cohort_size"`
	HorizonFortnights int     `db:"horizon_fortnights" json:"horizon_fortnights"`
	MeanVision        float64 `db:"mean_vision" json:"mean_vision"`
	MeanChange        float64 `db:"mean_change" json:"mean_change"`
	Discontinued      int     `db:"discontinued" json:"discontinued"`
	TotalTreatments   int     `db:"total_treatments" json:"total_treatments"`
	TotalEvents       int     `db:"total_events" json:"total_events"`
	CreatedAt         string  `db:"created_at" json:"created_at"`
}

// ListRuns returns stored run summaries, newest first.
func (db *DB) ListRuns() ([]RunSummary, error) {
	var runs []RunSummary
	err := db.conn.Select(&runs, "SELECT * FROM runs ORDER BY created_at DESC")
	return runs, err
}

// LoadVisits returns one patient's visit history for a run, in step order.
func (db *DB) LoadVisits(runID, patientID string) ([]patient.Visit, error) {
	rows, err := db.conn.Query(
		`SELECT fortnight, vision, disease_state, treated, treatments_received
		 FROM visits WHERE run_id = ? AND patient_id = ? ORDER BY fortnight`,
		runID, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var visits []patient.Visit
	for rows.Next() {
		var v patient.Visit
		var state string
		if err := rows.Scan(&v.Fortnight, &v.Vision, &state, &v.Treated, &v.TreatmentsReceived); err != nil {
			return nil, err
		}
		v.Disease = diseaseFromString(state)
		visits = append(visits, v)
	}
	return visits, rows.Err()
}

func diseaseFromString(s string) patient.DiseaseState {
	switch s {
	case "STABLE":
		return patient.StateStable
	case "ACTIVE":
		return patient.StateActive
	case "HIGHLY_ACTIVE":
		return patient.StateHighlyActive
	default:
		return patient.StateNaive
	}
}
