package pipeline

import (
	"errors"
	"fmt"
	"testing"

	"github.com/danielpatrickdp/adaptive-gen/go-engine/internal/experiment"
	"github.com/danielpatrickdp/adaptive-gen/go-engine/internal/inputs"
)

// testGenerator produces exactly the requested number of arms and records
// the fixed features it was handed.
type testGenerator struct {
	calls []genCall
	fail  bool
}

type genCall struct {
	stage string
	n     int
	fixed *experiment.FixedFeatures
}

func (g *testGenerator) Generate(stage StageSpec, n int, fixed *experiment.FixedFeatures) (experiment.GenerationResult, error) {
	g.calls = append(g.calls, genCall{stage: stage.Name, n: n, fixed: fixed})
	if g.fail {
		return experiment.GenerationResult{}, fmt.Errorf("backend unavailable")
	}
	return experiment.GenerationResult{
		StageName: stage.Name,
		Arms:      make([]experiment.Arm, n),
	}, nil
}

// memorySink collects decisions for assertions.
type memorySink struct {
	decisions []Decision
}

func (s *memorySink) Record(d Decision) error {
	s.decisions = append(s.decisions, d)
	return nil
}

func testDefinition() Definition {
	return Definition{
		Name: "explore_then_refine",
		Stages: []StageSpec{
			{
				Name: "repeat",
				Constructors: map[inputs.Purpose]inputs.ConstructorID{
					inputs.PurposeCount: inputs.RepeatArmN,
				},
			},
			{
				Name: "refine",
				Constructors: map[inputs.Purpose]inputs.ConstructorID{
					inputs.PurposeCount:         inputs.RemainingN,
					inputs.PurposeFixedFeatures: inputs.SetTargetTrial,
				},
			},
		},
	}
}

func testExperiment() *experiment.Experiment {
	return &experiment.Experiment{
		Name: "exp",
		Trials: []experiment.Trial{
			{Index: 0, Status: experiment.StatusCandidate},
			{Index: 1, Status: experiment.StatusCompleted},
		},
	}
}

func TestRunRound_FullAllocation(t *testing.T) {
	gen := &testGenerator{}
	sink := &memorySink{}
	runner := NewRunner(testDefinition(), gen, sink)

	n := 20
	rr, err := runner.RunRound(testExperiment(), &n)
	if err != nil {
		t.Fatalf("RunRound: %v", err)
	}

	if rr.Requested != 20 {
		t.Errorf("requested %d, want 20", rr.Requested)
	}
	if len(rr.Outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(rr.Outcomes))
	}

	repeat := rr.Outcomes[0]
	if repeat.Planned != 2 || repeat.Produced != 2 {
		t.Errorf("repeat planned=%d produced=%d, want 2/2", repeat.Planned, repeat.Produced)
	}

	refine := rr.Outcomes[1]
	if refine.Planned != 18 || refine.Produced != 18 {
		t.Errorf("refine planned=%d produced=%d, want 18/18", refine.Planned, refine.Produced)
	}
	if refine.Fixed == nil {
		t.Fatal("refine should carry fixed features")
	}
	if refine.Fixed.TrialIndex != 1 {
		t.Errorf("anchor trial %d, want 1", refine.Fixed.TrialIndex)
	}

	// The generator saw the fixed features too.
	if len(gen.calls) != 2 {
		t.Fatalf("expected 2 generator calls, got %d", len(gen.calls))
	}
	if gen.calls[1].fixed == nil || gen.calls[1].fixed.TrialIndex != 1 {
		t.Error("generator did not receive the target-trial features")
	}

	// Three dispatches: repeat count, refine count, refine fixed features.
	if len(sink.decisions) != 3 {
		t.Fatalf("expected 3 recorded decisions, got %d", len(sink.decisions))
	}
	if sink.decisions[1].PriorArms != 2 {
		t.Errorf("refine dispatch saw prior=%d, want 2", sink.decisions[1].PriorArms)
	}
	if sink.decisions[2].Purpose != inputs.PurposeFixedFeatures {
		t.Errorf("third decision purpose %q", sink.decisions[2].Purpose)
	}
}

func TestRunRound_SkipsZeroAllocation(t *testing.T) {
	gen := &testGenerator{}
	runner := NewRunner(testDefinition(), gen, nil)

	// Below the repeat threshold: repeat resolves 0, refine takes it all.
	n := 5
	rr, err := runner.RunRound(testExperiment(), &n)
	if err != nil {
		t.Fatalf("RunRound: %v", err)
	}

	if rr.Outcomes[0].Planned != 0 {
		t.Errorf("repeat planned %d, want 0", rr.Outcomes[0].Planned)
	}
	if len(gen.calls) != 1 || gen.calls[0].stage != "refine" {
		t.Fatalf("expected only refine to generate, got %+v", gen.calls)
	}
	if gen.calls[0].n != 5 {
		t.Errorf("refine asked for %d, want 5", gen.calls[0].n)
	}
}

func TestRunRound_NoTargetTrial(t *testing.T) {
	runner := NewRunner(testDefinition(), &testGenerator{}, nil)

	exp := &experiment.Experiment{
		Name:   "exp",
		Trials: []experiment.Trial{{Index: 0, Status: experiment.StatusCandidate}},
	}
	n := 20
	_, err := runner.RunRound(exp, &n)
	if err == nil {
		t.Fatal("expected failure when no trial qualifies")
	}
	var noTarget *inputs.NoTargetTrialError
	if !errors.As(err, &noTarget) {
		t.Fatalf("expected NoTargetTrialError, got %v", err)
	}
	if noTarget.Stage != "refine" {
		t.Errorf("error names stage %q, want refine", noTarget.Stage)
	}
}

func TestRunRound_GeneratorFailure(t *testing.T) {
	runner := NewRunner(testDefinition(), &testGenerator{fail: true}, nil)
	n := 20
	_, err := runner.RunRound(testExperiment(), &n)
	if err == nil {
		t.Fatal("expected generator error to propagate")
	}
}

func TestRunRound_Disabled(t *testing.T) {
	t.Setenv("ENGINE_ENABLED", "false")
	gen := &testGenerator{}
	runner := NewRunner(testDefinition(), gen, nil)
	if runner.Enabled() {
		t.Fatal("runner should be disabled")
	}

	n := 20
	rr, err := runner.RunRound(testExperiment(), &n)
	if err != nil {
		t.Fatalf("RunRound: %v", err)
	}
	if len(gen.calls) != 0 {
		t.Errorf("disabled runner still generated: %+v", gen.calls)
	}
	if rr.Outcomes[0].Planned != 2 {
		t.Errorf("disabled runner should still plan, got %d", rr.Outcomes[0].Planned)
	}
}

func TestPlan(t *testing.T) {
	runner := NewRunner(testDefinition(), &testGenerator{}, nil)
	n := 20
	plan, err := runner.Plan(testExperiment(), &n)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan.Requested != 20 {
		t.Errorf("requested %d, want 20", plan.Requested)
	}
	if plan.PlannedTotal() != 20 {
		t.Errorf("planned total %d, want 20", plan.PlannedTotal())
	}
	if plan.Allocations[0].Count != 2 || plan.Allocations[1].Count != 18 {
		t.Errorf("allocations %+v", plan.Allocations)
	}
}

func TestPlan_DefaultTotal(t *testing.T) {
	runner := NewRunner(testDefinition(), &testGenerator{}, nil)
	plan, err := runner.Plan(testExperiment(), nil)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	// No explicit n, no concurrency hint: 10 x per-call default of 1.
	if plan.Requested != 10 {
		t.Errorf("requested %d, want 10", plan.Requested)
	}
	if plan.PlannedTotal() != 10 {
		t.Errorf("planned total %d, want 10", plan.PlannedTotal())
	}
}
