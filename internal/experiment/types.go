package experiment

import "time"

// #region trial-status

// TrialStatus is the lifecycle state of a trial.
type TrialStatus string

const (
	StatusCandidate    TrialStatus = "candidate"
	StatusStaged       TrialStatus = "staged"
	StatusRunning      TrialStatus = "running"
	StatusCompleted    TrialStatus = "completed"
	StatusEarlyStopped TrialStatus = "early_stopped"
	StatusAbandoned    TrialStatus = "abandoned"
	StatusFailed       TrialStatus = "failed"
)

// statusesExpectingData are the statuses in which a trial is expected to
// carry outcome data and may therefore anchor downstream generation.
var statusesExpectingData = map[TrialStatus]bool{
	StatusRunning:      true,
	StatusCompleted:    true,
	StatusEarlyStopped: true,
}

// ExpectingData reports whether a trial in this status is expected to
// carry outcome data.
func ExpectingData(s TrialStatus) bool {
	return statusesExpectingData[s]
}

// #endregion trial-status

// #region arm

// Arm is one candidate parameter assignment proposed for evaluation.
type Arm struct {
	Name       string
	Parameters map[string]any
}

// #endregion arm

// #region trial

// Trial is one evaluation unit: a batch of arms sharing a status.
type Trial struct {
	Index     int
	Status    TrialStatus
	Arms      []Arm
	CreatedAt time.Time
}

// #endregion trial

// #region experiment

// Experiment is the read-only view of an experiment consumed by the
// input-constructor engine. Trials are ordered by ascending Index.
// TotalConcurrentArms is an optional concurrency hint; when set it is
// authoritative for default-count resolution.
type Experiment struct {
	Name                string
	Trials              []Trial
	TotalConcurrentArms *int
}

// TrialStatuses returns a snapshot of index → status for diagnostics.
func (e *Experiment) TrialStatuses() map[int]TrialStatus {
	snap := make(map[int]TrialStatus, len(e.Trials))
	for _, t := range e.Trials {
		snap[t.Index] = t.Status
	}
	return snap
}

// #endregion experiment

// #region generation-result

// GenerationResult is a batch of arms produced by one stage earlier in
// the current round. The engine only reads the arm count.
type GenerationResult struct {
	StageName string
	Arms      []Arm
}

// #endregion generation-result

// #region fixed-features

// FixedFeatures carries contextual constraints injected into a stage's
// generation call: a parameterization (empty for target-trial anchoring)
// plus the index of the trial to condition on.
type FixedFeatures struct {
	Parameters map[string]any
	TrialIndex int
}

// #endregion fixed-features
