package logging

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/danielpatrickdp/adaptive-gen/go-engine/internal/pipeline"
)

// #region entry

// Entry is one row of the decision_log table: a single constructor
// dispatch with its inputs and result.
type Entry struct {
	Experiment  string
	RoundID     string
	StageName   string
	Constructor string
	Purpose     string
	ExplicitN   *int
	PriorArms   int
	Count       int
	TrialIndex  int
	CreatedAt   time.Time
}

// #endregion entry

// #region log-decision

// LogDecision writes a dispatch record to the decision_log table.
func LogDecision(db *sql.DB, entry Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	var nPtr interface{}
	if entry.ExplicitN != nil {
		nPtr = *entry.ExplicitN
	}

	_, err := db.Exec(
		`INSERT INTO decision_log
		 (experiment, round_id, stage_name, constructor_id, purpose, explicit_n,
		  prior_arms, count, trial_index, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Experiment,
		entry.RoundID,
		entry.StageName,
		entry.Constructor,
		entry.Purpose,
		nPtr,
		entry.PriorArms,
		entry.Count,
		entry.TrialIndex,
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}

// #endregion log-decision

// #region recent

// RecentDecisions reads the newest decision rows for an experiment,
// oldest first within the window.
func RecentDecisions(db *sql.DB, experimentName string, limit int) ([]Entry, error) {
	rows, err := db.Query(
		`SELECT experiment, round_id, stage_name, constructor_id, purpose,
		        explicit_n, prior_arms, count, trial_index, created_at
		 FROM decision_log WHERE experiment = ?
		 ORDER BY id DESC LIMIT ?`,
		experimentName, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("read decisions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var explicitN sql.NullInt64
		var createdStr string
		err := rows.Scan(
			&e.Experiment, &e.RoundID, &e.StageName, &e.Constructor, &e.Purpose,
			&explicitN, &e.PriorArms, &e.Count, &e.TrialIndex, &createdStr,
		)
		if err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		if explicitN.Valid {
			v := int(explicitN.Int64)
			e.ExplicitN = &v
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// reverse to chronological order
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// #endregion recent

// #region sink

// Sink adapts the decision log to the runner's DecisionSink interface.
type Sink struct {
	DB         *sql.DB
	Experiment string
}

// Record persists one runner decision.
func (s *Sink) Record(d pipeline.Decision) error {
	return LogDecision(s.DB, Entry{
		Experiment:  s.Experiment,
		RoundID:     d.RoundID,
		StageName:   d.StageName,
		Constructor: string(d.Constructor),
		Purpose:     string(d.Purpose),
		ExplicitN:   d.ExplicitN,
		PriorArms:   d.PriorArms,
		Count:       d.Count,
		TrialIndex:  d.TrialIndex,
		CreatedAt:   d.CreatedAt,
	})
}

// #endregion sink
