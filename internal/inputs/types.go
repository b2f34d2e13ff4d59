package inputs

import (
	"github.com/danielpatrickdp/adaptive-gen/go-engine/internal/experiment"
)

// #region constructor-id

// ConstructorID identifies one input constructor. The tokens are embedded
// in persisted pipeline definitions and must stay stable across versions;
// new constructors extend the set, existing tokens never change meaning.
type ConstructorID string

const (
	ConsumeAllN    ConstructorID = "consume_all_n"
	RepeatArmN     ConstructorID = "repeat_arm_n"
	RemainingN     ConstructorID = "remaining_n"
	SetTargetTrial ConstructorID = "set_target_trial"
)

// #endregion constructor-id

// #region purpose

// Purpose tags which family a constructor belongs to: count constructors
// resolve how many arms the next stage should produce, fixed-features
// constructors resolve contextual constraints for its generation call.
type Purpose string

const (
	PurposeCount         Purpose = "n"
	PurposeFixedFeatures Purpose = "fixed_features"
)

// #endregion purpose

// #region stage

// Stage is the view of a generation stage needed by input constructors.
type Stage interface {
	Name() string
	DefaultCountPerCall() int
}

// #endregion stage

// #region request

// Request bundles the inputs for one stage transition.
type Request struct {
	// PreviousStage is the stage being transitioned away from. May be nil;
	// carried for diagnostics only.
	PreviousStage Stage
	// NextStage is the stage whose inputs are being constructed.
	NextStage Stage
	// N is the explicit total count from the generation call, nil if the
	// caller supplied none.
	N *int
	// ResultsThisRound are batches already produced earlier in the current
	// round. Nil is treated as empty.
	ResultsThisRound []experiment.GenerationResult
	// Experiment is read-only here; never mutated.
	Experiment *experiment.Experiment
}

// #endregion request

// #region result

// Result is the output of one constructor invocation: an arm count or a
// set of fixed features, tagged by Purpose. Exactly one of Count / Fixed
// is meaningful.
type Result struct {
	Purpose Purpose
	Count   int
	Fixed   *experiment.FixedFeatures
}

// #endregion result
