package signals

import (
	"github.com/danielpatrickdp/adaptive-gen/go-engine/internal/inputs"
	"github.com/danielpatrickdp/adaptive-gen/go-engine/internal/pipeline"
)

// #region round-stats

// StageStat is one stage's planned vs produced allocation.
type StageStat struct {
	Stage       string
	Constructor inputs.ConstructorID
	Planned     int
	Produced    int
}

// RoundStats summarizes one round's allocation behavior for the gate,
// the eval harness, and logs.
type RoundStats struct {
	RoundID    string
	Requested  int
	Planned    int
	Produced   int
	RepeatArms int
	Shortfall  int     // max(Requested - Produced, 0)
	FillRate   float32 // Produced / Requested, 1 when Requested is 0
	Stages     []StageStat
}

// #endregion round-stats

// #region produce

// FromRound derives allocation stats from a completed round.
func FromRound(rr pipeline.RoundResult) RoundStats {
	stats := RoundStats{
		RoundID:   rr.RoundID,
		Requested: rr.Requested,
	}
	for _, o := range rr.Outcomes {
		stats.Planned += o.Planned
		stats.Produced += o.Produced
		if o.Constructor == inputs.RepeatArmN {
			stats.RepeatArms += o.Produced
		}
		stats.Stages = append(stats.Stages, StageStat{
			Stage:       o.Stage,
			Constructor: o.Constructor,
			Planned:     o.Planned,
			Produced:    o.Produced,
		})
	}
	if d := stats.Requested - stats.Produced; d > 0 {
		stats.Shortfall = d
	}
	if stats.Requested > 0 {
		stats.FillRate = float32(stats.Produced) / float32(stats.Requested)
	} else {
		stats.FillRate = 1
	}
	return stats
}

// #endregion produce
