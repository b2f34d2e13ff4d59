package replay

import (
	"path/filepath"
	"testing"

	"github.com/danielpatrickdp/adaptive-gen/go-engine/internal/experiment"
	"github.com/danielpatrickdp/adaptive-gen/go-engine/internal/inputs"
	"github.com/danielpatrickdp/adaptive-gen/go-engine/internal/logging"
)

// TestFixture_AllocationRound replays the recorded allocation fixture and
// expects every transition to reproduce its recorded output. This is the
// regression net for the constructor semantics: a ladder or default-count
// change shows up here as divergence.
func TestFixture_AllocationRound(t *testing.T) {
	transitions, err := LoadFixture(filepath.Join("testdata", "allocation_round.json"))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	if len(transitions) != 5 {
		t.Fatalf("expected 5 transitions, got %d", len(transitions))
	}

	summary, results := Replay(transitions)
	for _, r := range results {
		if !r.Match {
			t.Errorf("diverged: %s/%s %s got %d want %d (%s)",
				r.RoundID, r.Stage, r.Constructor, r.Got, r.Want, r.ErrMessage)
		}
	}
	if summary.Matches != summary.Total {
		t.Fatalf("summary %+v", summary)
	}
}

func TestFixtureRoundTrip(t *testing.T) {
	n := 20
	tca := 30
	orig := []Transition{
		{
			RoundID: "r1", Stage: "repeat", Constructor: inputs.RepeatArmN,
			ExplicitN: &n, PriorArms: 1, ExpectedCount: 2,
		},
		{
			RoundID: "r1", Stage: "refine", Constructor: inputs.SetTargetTrial,
			TotalConcurrentArms: &tca,
			TrialStatuses: map[int]experiment.TrialStatus{
				2: experiment.StatusCompleted,
			},
			ExpectedTrialIndex: 2,
		},
	}

	path := filepath.Join(t.TempDir(), "fixture.json")
	if err := WriteFixture(path, ToFixture("round trip", orig)); err != nil {
		t.Fatalf("WriteFixture: %v", err)
	}
	got, err := LoadFixture(path)
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 transitions, got %d", len(got))
	}
	if got[0].ExplicitN == nil || *got[0].ExplicitN != 20 {
		t.Errorf("explicit n lost: %v", got[0].ExplicitN)
	}
	if got[1].TotalConcurrentArms == nil || *got[1].TotalConcurrentArms != 30 {
		t.Errorf("hint lost: %v", got[1].TotalConcurrentArms)
	}
	if got[1].TrialStatuses[2] != experiment.StatusCompleted {
		t.Errorf("statuses lost: %v", got[1].TrialStatuses)
	}
}

func TestTransitionsFromLog(t *testing.T) {
	n := 20
	tca := 25
	exp := &experiment.Experiment{
		Name:                "exp",
		TotalConcurrentArms: &tca,
		Trials: []experiment.Trial{
			{Index: 0, Status: experiment.StatusCompleted},
		},
	}
	entries := []logging.Entry{
		{
			RoundID: "r1", StageName: "repeat", Constructor: "repeat_arm_n",
			Purpose: "n", ExplicitN: &n, Count: 2,
		},
		{
			RoundID: "r1", StageName: "refine", Constructor: "set_target_trial",
			Purpose: "fixed_features", TrialIndex: 0,
		},
	}

	transitions := TransitionsFromLog(entries, exp)
	if len(transitions) != 2 {
		t.Fatalf("expected 2 transitions, got %d", len(transitions))
	}
	if transitions[0].ExpectedCount != 2 {
		t.Errorf("expected count %d", transitions[0].ExpectedCount)
	}
	if transitions[0].TotalConcurrentArms == nil || *transitions[0].TotalConcurrentArms != 25 {
		t.Error("hint not carried from experiment")
	}
	if transitions[1].ExpectedTrialIndex != 0 {
		t.Errorf("expected trial index %d", transitions[1].ExpectedTrialIndex)
	}

	// The reconstructed transitions replay cleanly against current state.
	summary, _ := Replay(transitions)
	if summary.Matches != 2 {
		t.Fatalf("summary %+v", summary)
	}
}
