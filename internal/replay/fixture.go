package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/danielpatrickdp/adaptive-gen/go-engine/internal/experiment"
	"github.com/danielpatrickdp/adaptive-gen/go-engine/internal/inputs"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description string              `json:"description"`
	Transitions []FixtureTransition `json:"transitions"`
}

// FixtureTransition mirrors replay.Transition with JSON tags. Trial
// statuses are keyed by the trial index as a string.
type FixtureTransition struct {
	RoundID             string            `json:"round_id"`
	Stage               string            `json:"stage"`
	Constructor         string            `json:"constructor"`
	ExplicitN           *int              `json:"n,omitempty"`
	PriorArms           int               `json:"prior_arms"`
	TotalConcurrentArms *int              `json:"total_concurrent_arms,omitempty"`
	PerCallDefault      int               `json:"default_count_per_call,omitempty"`
	TrialStatuses       map[string]string `json:"trial_statuses,omitempty"`
	ExpectedCount       int               `json:"expected_count"`
	ExpectedTrialIndex  int               `json:"expected_trial_index"`
}

// #endregion fixture-types

// #region load

// LoadFixture reads a fixture file and converts it to transitions.
func LoadFixture(path string) ([]Transition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var fx Fixture
	if err := json.Unmarshal(raw, &fx); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}

	transitions := make([]Transition, 0, len(fx.Transitions))
	for i, ft := range fx.Transitions {
		tr := Transition{
			RoundID:             ft.RoundID,
			Stage:               ft.Stage,
			Constructor:         inputs.ConstructorID(ft.Constructor),
			ExplicitN:           ft.ExplicitN,
			PriorArms:           ft.PriorArms,
			TotalConcurrentArms: ft.TotalConcurrentArms,
			PerCallDefault:      ft.PerCallDefault,
			ExpectedCount:       ft.ExpectedCount,
			ExpectedTrialIndex:  ft.ExpectedTrialIndex,
		}
		if len(ft.TrialStatuses) > 0 {
			tr.TrialStatuses = make(map[int]experiment.TrialStatus, len(ft.TrialStatuses))
			for k, v := range ft.TrialStatuses {
				idx, err := strconv.Atoi(k)
				if err != nil {
					return nil, fmt.Errorf("fixture transition %d: bad trial index %q", i, k)
				}
				tr.TrialStatuses[idx] = experiment.TrialStatus(v)
			}
		}
		transitions = append(transitions, tr)
	}
	return transitions, nil
}

// #endregion load

// #region export

// ToFixture converts transitions into the serializable fixture form.
func ToFixture(description string, transitions []Transition) Fixture {
	fx := Fixture{Description: description}
	for _, tr := range transitions {
		ft := FixtureTransition{
			RoundID:             tr.RoundID,
			Stage:               tr.Stage,
			Constructor:         string(tr.Constructor),
			ExplicitN:           tr.ExplicitN,
			PriorArms:           tr.PriorArms,
			TotalConcurrentArms: tr.TotalConcurrentArms,
			PerCallDefault:      tr.PerCallDefault,
			ExpectedCount:       tr.ExpectedCount,
			ExpectedTrialIndex:  tr.ExpectedTrialIndex,
		}
		if len(tr.TrialStatuses) > 0 {
			ft.TrialStatuses = make(map[string]string, len(tr.TrialStatuses))
			for idx, st := range tr.TrialStatuses {
				ft.TrialStatuses[strconv.Itoa(idx)] = string(st)
			}
		}
		fx.Transitions = append(fx.Transitions, ft)
	}
	return fx
}

// WriteFixture writes a fixture as indented JSON.
func WriteFixture(path string, fx Fixture) error {
	raw, err := json.MarshalIndent(fx, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write fixture: %w", err)
	}
	return nil
}

// #endregion export
