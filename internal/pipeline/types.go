package pipeline

import (
	"time"

	"github.com/danielpatrickdp/adaptive-gen/go-engine/internal/experiment"
	"github.com/danielpatrickdp/adaptive-gen/go-engine/internal/inputs"
)

// #region defaults

// DefaultN is the pipeline-wide per-call arm count used when a stage
// declares no default of its own.
const DefaultN = 1

// #endregion defaults

// #region stage-spec

// StageSpec is one stage of a pipeline definition, as persisted.
// Constructors binds each purpose to the identifier token dispatched at
// the transition into this stage.
type StageSpec struct {
	Name           string
	PerCallDefault int // 0 means DefaultN
	Constructors   map[inputs.Purpose]inputs.ConstructorID
}

// stageHandle adapts a StageSpec to the view constructors consume.
type stageHandle struct {
	spec StageSpec
}

func (h stageHandle) Name() string { return h.spec.Name }

func (h stageHandle) DefaultCountPerCall() int {
	if h.spec.PerCallDefault > 0 {
		return h.spec.PerCallDefault
	}
	return DefaultN
}

// #endregion stage-spec

// #region definition

// Definition is a full pipeline definition: an ordered list of stages
// walked once per round.
type Definition struct {
	Name   string
	Stages []StageSpec
}

// #endregion definition

// #region generator

// Generator produces a batch of arms for one stage. External collaborator:
// the engine decides how many arms and with what fixed features, the
// generator decides what the arms are.
type Generator interface {
	Generate(stage StageSpec, n int, fixed *experiment.FixedFeatures) (experiment.GenerationResult, error)
}

// #endregion generator

// #region decision

// Decision records one constructor dispatch for provenance.
type Decision struct {
	RoundID     string
	StageName   string
	Constructor inputs.ConstructorID
	Purpose     inputs.Purpose
	ExplicitN   *int
	PriorArms   int
	Count       int // meaningful for PurposeCount
	TrialIndex  int // meaningful for PurposeFixedFeatures
	CreatedAt   time.Time
}

// DecisionSink receives dispatch decisions as they are made.
type DecisionSink interface {
	Record(d Decision) error
}

// #endregion decision

// #region round-plan

// StageAllocation is one stage's planned share of a round.
type StageAllocation struct {
	Stage       string
	Constructor inputs.ConstructorID
	Count       int
}

// RoundPlan is the dry-run allocation for a round, checked by the gate
// before any generation happens.
type RoundPlan struct {
	Requested   int
	Allocations []StageAllocation
}

// PlannedTotal returns the sum of all stage allocations.
func (p RoundPlan) PlannedTotal() int {
	total := 0
	for _, a := range p.Allocations {
		total += a.Count
	}
	return total
}

// #endregion round-plan

// #region round-result

// StageOutcome is one stage's resolved inputs and produced arms.
type StageOutcome struct {
	Stage       string
	Constructor inputs.ConstructorID
	Planned     int
	Fixed       *experiment.FixedFeatures
	Produced    int
}

// RoundResult is everything one round produced.
type RoundResult struct {
	RoundID   string
	Requested int
	Outcomes  []StageOutcome
	Results   []experiment.GenerationResult
}

// #endregion round-result
