package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/adaptive-gen/go-engine/internal/experiment"
	"github.com/danielpatrickdp/adaptive-gen/go-engine/internal/pipeline"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS experiments (
	name                  TEXT PRIMARY KEY,
	total_concurrent_arms INTEGER,
	created_at            TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS trials (
	experiment  TEXT NOT NULL,
	trial_index INTEGER NOT NULL,
	status      TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	PRIMARY KEY (experiment, trial_index),
	FOREIGN KEY (experiment) REFERENCES experiments(name)
);

CREATE TABLE IF NOT EXISTS arms (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	experiment  TEXT NOT NULL,
	trial_index INTEGER NOT NULL,
	name        TEXT NOT NULL,
	params_json TEXT NOT NULL,
	FOREIGN KEY (experiment, trial_index) REFERENCES trials(experiment, trial_index)
);

CREATE TABLE IF NOT EXISTS generation_results (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	experiment  TEXT NOT NULL,
	round_id    TEXT NOT NULL,
	stage_name  TEXT NOT NULL,
	arm_count   INTEGER NOT NULL,
	arms_json   TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	FOREIGN KEY (experiment) REFERENCES experiments(name)
);

CREATE TABLE IF NOT EXISTS decision_log (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	experiment     TEXT NOT NULL,
	round_id       TEXT NOT NULL,
	stage_name     TEXT NOT NULL,
	constructor_id TEXT NOT NULL,
	purpose        TEXT NOT NULL,
	explicit_n     INTEGER,
	prior_arms     INTEGER NOT NULL DEFAULT 0,
	count          INTEGER NOT NULL DEFAULT 0,
	trial_index    INTEGER NOT NULL DEFAULT 0,
	created_at     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decision_log_round
ON decision_log(experiment, round_id);
`
// #endregion schema

// #region store-struct
// Store persists experiments, trials, and round results in SQLite.
type Store struct {
	db *sql.DB
}
// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}
// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}
// #endregion db-accessor

// #region save-experiment
// SaveExperiment upserts an experiment and replaces its trials and arms.
func (s *Store) SaveExperiment(exp *experiment.Experiment) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var tcaPtr interface{}
	if exp.TotalConcurrentArms != nil {
		tcaPtr = *exp.TotalConcurrentArms
	}

	_, err = tx.Exec(
		`INSERT INTO experiments (name, total_concurrent_arms, created_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET total_concurrent_arms = excluded.total_concurrent_arms`,
		exp.Name, tcaPtr, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert experiment: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM arms WHERE experiment = ?`, exp.Name); err != nil {
		return fmt.Errorf("clear arms: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM trials WHERE experiment = ?`, exp.Name); err != nil {
		return fmt.Errorf("clear trials: %w", err)
	}

	for _, t := range exp.Trials {
		createdAt := t.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		_, err = tx.Exec(
			`INSERT INTO trials (experiment, trial_index, status, created_at)
			 VALUES (?, ?, ?, ?)`,
			exp.Name, t.Index, string(t.Status), createdAt.Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("insert trial %d: %w", t.Index, err)
		}
		for _, a := range t.Arms {
			paramsJSON, err := json.Marshal(a.Parameters)
			if err != nil {
				return fmt.Errorf("marshal arm params: %w", err)
			}
			_, err = tx.Exec(
				`INSERT INTO arms (experiment, trial_index, name, params_json)
				 VALUES (?, ?, ?, ?)`,
				exp.Name, t.Index, a.Name, string(paramsJSON),
			)
			if err != nil {
				return fmt.Errorf("insert arm %s: %w", a.Name, err)
			}
		}
	}

	return tx.Commit()
}
// #endregion save-experiment

// #region load-experiment
// LoadExperiment reads an experiment with all trials and arms.
func (s *Store) LoadExperiment(name string) (*experiment.Experiment, error) {
	exp := &experiment.Experiment{Name: name}

	var tca sql.NullInt64
	err := s.db.QueryRow(
		`SELECT total_concurrent_arms FROM experiments WHERE name = ?`, name,
	).Scan(&tca)
	if err != nil {
		return nil, fmt.Errorf("load experiment %s: %w", name, err)
	}
	if tca.Valid {
		v := int(tca.Int64)
		exp.TotalConcurrentArms = &v
	}

	rows, err := s.db.Query(
		`SELECT trial_index, status, created_at FROM trials
		 WHERE experiment = ? ORDER BY trial_index ASC`, name,
	)
	if err != nil {
		return nil, fmt.Errorf("load trials: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t experiment.Trial
		var status, createdStr string
		if err := rows.Scan(&t.Index, &status, &createdStr); err != nil {
			return nil, fmt.Errorf("scan trial: %w", err)
		}
		t.Status = experiment.TrialStatus(status)
		t.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		exp.Trials = append(exp.Trials, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range exp.Trials {
		arms, err := s.loadArms(name, exp.Trials[i].Index)
		if err != nil {
			return nil, err
		}
		exp.Trials[i].Arms = arms
	}
	return exp, nil
}

func (s *Store) loadArms(expName string, trialIndex int) ([]experiment.Arm, error) {
	rows, err := s.db.Query(
		`SELECT name, params_json FROM arms
		 WHERE experiment = ? AND trial_index = ? ORDER BY id ASC`,
		expName, trialIndex,
	)
	if err != nil {
		return nil, fmt.Errorf("load arms: %w", err)
	}
	defer rows.Close()

	var arms []experiment.Arm
	for rows.Next() {
		var a experiment.Arm
		var paramsJSON string
		if err := rows.Scan(&a.Name, &paramsJSON); err != nil {
			return nil, fmt.Errorf("scan arm: %w", err)
		}
		if err := json.Unmarshal([]byte(paramsJSON), &a.Parameters); err != nil {
			return nil, fmt.Errorf("unmarshal arm params: %w", err)
		}
		arms = append(arms, a)
	}
	return arms, rows.Err()
}
// #endregion load-experiment

// #region add-trial
// AddTrial appends a trial with the next free index. Arms without names
// get generated ones.
func (s *Store) AddTrial(expName string, arms []experiment.Arm, status experiment.TrialStatus) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var maxIdx sql.NullInt64
	err = tx.QueryRow(
		`SELECT MAX(trial_index) FROM trials WHERE experiment = ?`, expName,
	).Scan(&maxIdx)
	if err != nil {
		return 0, fmt.Errorf("next trial index: %w", err)
	}
	idx := 0
	if maxIdx.Valid {
		idx = int(maxIdx.Int64) + 1
	}

	_, err = tx.Exec(
		`INSERT INTO trials (experiment, trial_index, status, created_at)
		 VALUES (?, ?, ?, ?)`,
		expName, idx, string(status), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert trial: %w", err)
	}

	for _, a := range arms {
		if a.Name == "" {
			a.Name = uuid.New().String()
		}
		paramsJSON, err := json.Marshal(a.Parameters)
		if err != nil {
			return 0, fmt.Errorf("marshal arm params: %w", err)
		}
		_, err = tx.Exec(
			`INSERT INTO arms (experiment, trial_index, name, params_json)
			 VALUES (?, ?, ?, ?)`,
			expName, idx, a.Name, string(paramsJSON),
		)
		if err != nil {
			return 0, fmt.Errorf("insert arm: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return idx, nil
}
// #endregion add-trial

// #region set-trial-status
// SetTrialStatus updates a single trial's status.
func (s *Store) SetTrialStatus(expName string, trialIndex int, status experiment.TrialStatus) error {
	res, err := s.db.Exec(
		`UPDATE trials SET status = ? WHERE experiment = ? AND trial_index = ?`,
		string(status), expName, trialIndex,
	)
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("trial %d not found on experiment %s", trialIndex, expName)
	}
	return nil
}
// #endregion set-trial-status

// #region record-round
// RecordRound persists all generation results of a round in one tx.
func (s *Store) RecordRound(expName string, rr pipeline.RoundResult) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, gr := range rr.Results {
		armsJSON, err := json.Marshal(gr.Arms)
		if err != nil {
			return fmt.Errorf("marshal arms: %w", err)
		}
		_, err = tx.Exec(
			`INSERT INTO generation_results
			 (experiment, round_id, stage_name, arm_count, arms_json, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			expName, rr.RoundID, gr.StageName, len(gr.Arms), string(armsJSON), now,
		)
		if err != nil {
			return fmt.Errorf("insert generation result: %w", err)
		}
	}
	return tx.Commit()
}
// #endregion record-round

// #region list-rounds
// RoundRow summarizes one stored generation result.
type RoundRow struct {
	RoundID   string
	StageName string
	ArmCount  int
	CreatedAt time.Time
}

// ListRounds returns the most recent generation results for an experiment.
func (s *Store) ListRounds(expName string, limit int) ([]RoundRow, error) {
	rows, err := s.db.Query(
		`SELECT round_id, stage_name, arm_count, created_at
		 FROM generation_results WHERE experiment = ?
		 ORDER BY id DESC LIMIT ?`, expName, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list rounds: %w", err)
	}
	defer rows.Close()

	var out []RoundRow
	for rows.Next() {
		var r RoundRow
		var createdStr string
		if err := rows.Scan(&r.RoundID, &r.StageName, &r.ArmCount, &createdStr); err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, r)
	}
	return out, rows.Err()
}
// #endregion list-rounds
