package eval

import (
	"fmt"

	"github.com/danielpatrickdp/adaptive-gen/go-engine/internal/signals"
)

// #region config

// EvalConfig holds thresholds for post-round validation.
type EvalConfig struct {
	MinFillRate float32 // produced / requested must reach this
	MaxOverage  int     // produced may exceed requested by at most this
}

// DefaultEvalConfig returns sensible defaults.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		MinFillRate: 1.0,
		MaxOverage:  0,
	}
}

// #endregion config

// #region result

// EvalMetric is one named check with its value and pass flag.
type EvalMetric struct {
	Name  string
	Value float32
	Pass  bool
}

// EvalResult is the outcome of post-round validation.
type EvalResult struct {
	Passed      bool
	Metrics     []EvalMetric
	FailReasons []string
}

// #endregion result

// #region harness

// EvalHarness runs lightweight post-round validation on allocation stats.
type EvalHarness struct {
	config EvalConfig
}

// NewEvalHarness creates an eval harness with the given configuration.
func NewEvalHarness(config EvalConfig) *EvalHarness {
	return &EvalHarness{config: config}
}

// Run validates a completed round: fill rate, overage, and per-stage
// planned-vs-produced agreement.
func (h *EvalHarness) Run(stats signals.RoundStats) EvalResult {
	var metrics []EvalMetric
	passed := true
	var failReasons []string

	// 1. Fill rate
	fillPass := stats.FillRate >= h.config.MinFillRate
	metrics = append(metrics, EvalMetric{
		Name:  "fill_rate",
		Value: stats.FillRate,
		Pass:  fillPass,
	})
	if !fillPass {
		passed = false
		failReasons = append(failReasons, fmt.Sprintf(
			"fill rate %.2f below %.2f (shortfall %d)",
			stats.FillRate, h.config.MinFillRate, stats.Shortfall))
	}

	// 2. Overage
	overage := stats.Produced - stats.Requested
	if overage < 0 {
		overage = 0
	}
	overagePass := overage <= h.config.MaxOverage
	metrics = append(metrics, EvalMetric{
		Name:  "overage",
		Value: float32(overage),
		Pass:  overagePass,
	})
	if !overagePass {
		passed = false
		failReasons = append(failReasons, fmt.Sprintf(
			"produced %d exceeds requested %d by more than %d",
			stats.Produced, stats.Requested, h.config.MaxOverage))
	}

	// 3. Per-stage planned vs produced
	for _, st := range stats.Stages {
		stagePass := st.Produced == st.Planned
		metrics = append(metrics, EvalMetric{
			Name:  "stage_fill:" + st.Stage,
			Value: float32(st.Produced),
			Pass:  stagePass,
		})
		if !stagePass {
			passed = false
			failReasons = append(failReasons, fmt.Sprintf(
				"stage %s produced %d, planned %d", st.Stage, st.Produced, st.Planned))
		}
	}

	return EvalResult{
		Passed:      passed,
		Metrics:     metrics,
		FailReasons: failReasons,
	}
}

// #endregion harness
