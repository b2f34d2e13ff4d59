package replay

import (
	"github.com/danielpatrickdp/adaptive-gen/go-engine/internal/experiment"
	"github.com/danielpatrickdp/adaptive-gen/go-engine/internal/inputs"
	"github.com/danielpatrickdp/adaptive-gen/go-engine/internal/logging"
)

// #region from-log

// TransitionsFromLog converts decision-log entries into replayable
// transitions, reconstructing experiment-level inputs from the experiment
// as it stands now. Trial statuses may have moved since the decisions
// were recorded; divergence on set_target_trial rows then reflects real
// state drift, which is what the operator is looking for.
func TransitionsFromLog(entries []logging.Entry, exp *experiment.Experiment) []Transition {
	statuses := exp.TrialStatuses()

	transitions := make([]Transition, 0, len(entries))
	for _, e := range entries {
		tr := Transition{
			RoundID:             e.RoundID,
			Stage:               e.StageName,
			Constructor:         inputs.ConstructorID(e.Constructor),
			ExplicitN:           e.ExplicitN,
			PriorArms:           e.PriorArms,
			TotalConcurrentArms: exp.TotalConcurrentArms,
			TrialStatuses:       statuses,
		}
		switch inputs.Purpose(e.Purpose) {
		case inputs.PurposeFixedFeatures:
			tr.ExpectedTrialIndex = e.TrialIndex
		default:
			tr.ExpectedCount = e.Count
		}
		transitions = append(transitions, tr)
	}
	return transitions
}

// #endregion from-log
