package gate

import (
	"fmt"

	"github.com/danielpatrickdp/adaptive-gen/go-engine/internal/pipeline"
)

// #region gate-config

// GateConfig holds thresholds for round-plan checks.
type GateConfig struct {
	MaxArmsPerRound  int  // hard cap on total planned arms, 0 = unlimited
	RequireExactFill bool // planned total must equal the requested count
}

// DefaultGateConfig returns permissive defaults.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		MaxArmsPerRound:  0,
		RequireExactFill: false,
	}
}

// #endregion gate-config

// #region gate-decision

// Decision is the output of a plan check.
type Decision struct {
	Allow   bool
	Reasons []string // non-empty when rejected
}

// #endregion gate-decision

// #region gate

// Gate checks a round plan before any generation happens.
type Gate struct {
	config GateConfig
}

// NewGate creates a gate with the given configuration.
func NewGate(config GateConfig) *Gate {
	return &Gate{config: config}
}

// Check validates a round plan against the configured thresholds.
func (g *Gate) Check(plan pipeline.RoundPlan) Decision {
	var reasons []string

	// Constructors guarantee non-negative counts; a negative allocation
	// here means the registry invariant broke upstream.
	for _, a := range plan.Allocations {
		if a.Count < 0 {
			reasons = append(reasons, fmt.Sprintf(
				"stage %s planned negative count %d", a.Stage, a.Count))
		}
	}

	total := plan.PlannedTotal()
	if g.config.MaxArmsPerRound > 0 && total > g.config.MaxArmsPerRound {
		reasons = append(reasons, fmt.Sprintf(
			"planned total %d exceeds cap %d", total, g.config.MaxArmsPerRound))
	}
	if g.config.RequireExactFill && total != plan.Requested {
		reasons = append(reasons, fmt.Sprintf(
			"planned total %d does not fill requested %d", total, plan.Requested))
	}

	return Decision{Allow: len(reasons) == 0, Reasons: reasons}
}

// #endregion gate
