package replay

import (
	"errors"
	"sort"

	"github.com/danielpatrickdp/adaptive-gen/go-engine/internal/experiment"
	"github.com/danielpatrickdp/adaptive-gen/go-engine/internal/inputs"
	"github.com/danielpatrickdp/adaptive-gen/go-engine/internal/pipeline"
)

// #region types

// Transition is a single recorded constructor dispatch with enough of its
// inputs to re-run it.
type Transition struct {
	RoundID             string
	Stage               string
	Constructor         inputs.ConstructorID
	ExplicitN           *int
	PriorArms           int
	TotalConcurrentArms *int
	PerCallDefault      int // 0 means pipeline.DefaultN
	TrialStatuses       map[int]experiment.TrialStatus

	// Expected outputs. ExpectedCount for count constructors,
	// ExpectedTrialIndex for fixed-features constructors.
	ExpectedCount      int
	ExpectedTrialIndex int
}

// ItemResult captures the outcome of replaying one transition.
type ItemResult struct {
	RoundID     string
	Stage       string
	Constructor inputs.ConstructorID
	Match       bool
	Got         int
	Want        int
	ErrMessage  string // non-empty when dispatch failed
}

// Summary provides aggregate stats from a replay run.
type Summary struct {
	Total      int
	Matches    int
	Mismatches int
	Errors     int
}

// #endregion types

// #region stage-stub

// replayStage reconstructs the stage view a recorded dispatch saw.
type replayStage struct {
	name    string
	perCall int
}

func (s replayStage) Name() string { return s.name }

func (s replayStage) DefaultCountPerCall() int {
	if s.perCall > 0 {
		return s.perCall
	}
	return pipeline.DefaultN
}

// #endregion stage-stub

// #region replay

// Replay re-runs each transition through the dispatcher and compares the
// result against the recorded output. A NoTargetTrialError on a
// transition that recorded a trial index counts as a mismatch; any other
// dispatch error counts as an error.
func Replay(transitions []Transition) (Summary, []ItemResult) {
	summary := Summary{Total: len(transitions)}
	results := make([]ItemResult, 0, len(transitions))

	for _, tr := range transitions {
		item := ItemResult{
			RoundID:     tr.RoundID,
			Stage:       tr.Stage,
			Constructor: tr.Constructor,
		}

		res, err := inputs.Dispatch(tr.Constructor, buildRequest(tr))
		if err != nil {
			var noTarget *inputs.NoTargetTrialError
			if errors.As(err, &noTarget) {
				item.Want = tr.ExpectedTrialIndex
				item.ErrMessage = err.Error()
				summary.Mismatches++
			} else {
				item.ErrMessage = err.Error()
				summary.Errors++
			}
			results = append(results, item)
			continue
		}

		switch res.Purpose {
		case inputs.PurposeCount:
			item.Got, item.Want = res.Count, tr.ExpectedCount
		case inputs.PurposeFixedFeatures:
			item.Got, item.Want = res.Fixed.TrialIndex, tr.ExpectedTrialIndex
		}
		item.Match = item.Got == item.Want
		if item.Match {
			summary.Matches++
		} else {
			summary.Mismatches++
		}
		results = append(results, item)
	}
	return summary, results
}

// buildRequest reconstructs the dispatch request a transition recorded.
func buildRequest(tr Transition) inputs.Request {
	exp := &experiment.Experiment{
		Name:                "replay",
		TotalConcurrentArms: tr.TotalConcurrentArms,
	}
	indices := make([]int, 0, len(tr.TrialStatuses))
	for idx := range tr.TrialStatuses {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	for _, idx := range indices {
		exp.Trials = append(exp.Trials, experiment.Trial{
			Index:  idx,
			Status: tr.TrialStatuses[idx],
		})
	}

	var prior []experiment.GenerationResult
	if tr.PriorArms > 0 {
		prior = []experiment.GenerationResult{{
			StageName: "prior",
			Arms:      make([]experiment.Arm, tr.PriorArms),
		}}
	}

	return inputs.Request{
		NextStage:        replayStage{name: tr.Stage, perCall: tr.PerCallDefault},
		N:                tr.ExplicitN,
		ResultsThisRound: prior,
		Experiment:       exp,
	}
}

// #endregion replay
