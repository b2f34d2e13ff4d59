package inputs

import (
	"math"

	"github.com/danielpatrickdp/adaptive-gen/go-engine/internal/experiment"
)

// #region default-count

// defaultMultiplier scales a stage's per-call default when no explicit
// count is available: these constructors serve multi-arm stages, not the
// single-arm per-call default.
const defaultMultiplier = 10

// defaultCount resolves the fallback total when the caller supplied no n.
// The experiment's TotalConcurrentArms hint is authoritative when set.
func defaultCount(exp *experiment.Experiment, next Stage) int {
	if exp != nil && exp.TotalConcurrentArms != nil {
		return *exp.TotalConcurrentArms
	}
	return next.DefaultCountPerCall() * defaultMultiplier
}

// resolveTotal returns the explicit n when present, else the default.
func resolveTotal(req Request) int {
	if req.N != nil {
		return *req.N
	}
	return defaultCount(req.Experiment, req.NextStage)
}

// #endregion default-count

// #region consume-all-n

// consumeAllN requests the entire total from the next stage. Used when a
// single stage is expected to satisfy the whole trial.
func consumeAllN(req Request) (Result, error) {
	return Result{Purpose: PurposeCount, Count: resolveTotal(req)}, nil
}

// #endregion consume-all-n

// #region repeat-arm-n

// repeatArmN allocates a small slice of the total to repeat arms:
// 0 below 6, 1 up to 10, then ceil(total/10). Repeats buy variance
// estimates and are not worth the allocation on small trials.
func repeatArmN(req Request) (Result, error) {
	total := resolveTotal(req)
	var n int
	switch {
	case total < 6:
		n = 0
	case total <= 10:
		n = 1
	default:
		n = int(math.Ceil(float64(total) / 10))
	}
	return Result{Purpose: PurposeCount, Count: n}, nil
}

// #endregion repeat-arm-n

// #region remaining-n

// remainingN requests whatever the round still owes: the resolved total
// minus arms already produced this round, floored at 0. A result of 0
// tells the pipeline this path is done for the round.
func remainingN(req Request) (Result, error) {
	total := resolveTotal(req)
	allocated := 0
	for _, gr := range req.ResultsThisRound {
		allocated += len(gr.Arms)
	}
	n := total - allocated
	if n < 0 {
		n = 0
	}
	return Result{Purpose: PurposeCount, Count: n}, nil
}

// #endregion remaining-n

// #region set-target-trial

// setTargetTrial anchors the next stage's generation on the target trial.
// No qualifying trial is a hard failure: silently anchoring to an
// arbitrary or stale trial would corrupt downstream generation.
func setTargetTrial(req Request) (Result, error) {
	idx, ok := experiment.TargetTrialIndex(req.Experiment)
	if !ok {
		return Result{}, &NoTargetTrialError{
			Stage:    req.NextStage.Name(),
			Statuses: req.Experiment.TrialStatuses(),
		}
	}
	return Result{
		Purpose: PurposeFixedFeatures,
		Fixed: &experiment.FixedFeatures{
			Parameters: map[string]any{},
			TrialIndex: idx,
		},
	}, nil
}

// #endregion set-target-trial
