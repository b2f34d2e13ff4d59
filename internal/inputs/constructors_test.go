package inputs

import (
	"testing"

	"github.com/danielpatrickdp/adaptive-gen/go-engine/internal/experiment"
)

// stubStage implements Stage for tests.
type stubStage struct {
	name    string
	perCall int
}

func (s stubStage) Name() string             { return s.name }
func (s stubStage) DefaultCountPerCall() int { return s.perCall }

func intPtr(v int) *int { return &v }

func baseRequest() Request {
	return Request{
		NextStage:  stubStage{name: "next", perCall: 1},
		Experiment: &experiment.Experiment{Name: "exp"},
	}
}

func priorResults(counts ...int) []experiment.GenerationResult {
	var out []experiment.GenerationResult
	for _, c := range counts {
		out = append(out, experiment.GenerationResult{
			StageName: "earlier",
			Arms:      make([]experiment.Arm, c),
		})
	}
	return out
}

func TestDefaultCount(t *testing.T) {
	tests := []struct {
		name       string
		concurrent *int
		perCall    int
		want       int
	}{
		{"hint-authoritative", intPtr(25), 1, 25},
		{"hint-overrides-multiplier", intPtr(3), 4, 3},
		{"fallback-multiplies-per-call", nil, 1, 10},
		{"fallback-per-call-2", nil, 2, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp := &experiment.Experiment{TotalConcurrentArms: tt.concurrent}
			got := defaultCount(exp, stubStage{perCall: tt.perCall})
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
			if got < 1 {
				t.Errorf("default count %d below 1", got)
			}
		})
	}
}

func TestConsumeAllN(t *testing.T) {
	t.Run("explicit-n-verbatim", func(t *testing.T) {
		req := baseRequest()
		req.N = intPtr(20)
		res, err := consumeAllN(req)
		if err != nil {
			t.Fatalf("consumeAllN: %v", err)
		}
		if res.Count != 20 {
			t.Errorf("got %d, want 20", res.Count)
		}
		if res.Purpose != PurposeCount {
			t.Errorf("purpose %q, want %q", res.Purpose, PurposeCount)
		}
	})

	t.Run("absent-n-uses-default", func(t *testing.T) {
		req := baseRequest()
		res, err := consumeAllN(req)
		if err != nil {
			t.Fatalf("consumeAllN: %v", err)
		}
		if res.Count != 10 {
			t.Errorf("got %d, want default 10", res.Count)
		}
	})

	t.Run("absent-n-uses-hint", func(t *testing.T) {
		req := baseRequest()
		req.Experiment.TotalConcurrentArms = intPtr(7)
		res, err := consumeAllN(req)
		if err != nil {
			t.Fatalf("consumeAllN: %v", err)
		}
		if res.Count != 7 {
			t.Errorf("got %d, want hint 7", res.Count)
		}
	})
}

func TestRepeatArmN_Ladder(t *testing.T) {
	tests := []struct {
		total int
		want  int
	}{
		{0, 0},
		{5, 0},
		{6, 1},
		{10, 1},
		{11, 2},
		{20, 2},
		{100, 10},
	}

	for _, tt := range tests {
		req := baseRequest()
		req.N = intPtr(tt.total)
		res, err := repeatArmN(req)
		if err != nil {
			t.Fatalf("repeatArmN(%d): %v", tt.total, err)
		}
		if res.Count != tt.want {
			t.Errorf("repeatArmN(%d) = %d, want %d", tt.total, res.Count, tt.want)
		}
	}
}

func TestRepeatArmN_Monotonic(t *testing.T) {
	prev := 0
	for total := 0; total <= 200; total++ {
		req := baseRequest()
		req.N = intPtr(total)
		res, err := repeatArmN(req)
		if err != nil {
			t.Fatalf("repeatArmN(%d): %v", total, err)
		}
		if res.Count < prev {
			t.Fatalf("repeatArmN not monotonic: f(%d)=%d after %d", total, res.Count, prev)
		}
		prev = res.Count
	}
}

func TestRemainingN(t *testing.T) {
	tests := []struct {
		name   string
		total  int
		counts []int
		want   int
	}{
		{"nothing-allocated", 10, nil, 10},
		{"partial", 10, []int{4}, 6},
		{"over-allocated", 10, []int{12}, 0},
		{"exactly-filled", 10, []int{4, 6}, 0},
		{"two-batches", 20, []int{5, 3}, 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := baseRequest()
			req.N = intPtr(tt.total)
			req.ResultsThisRound = priorResults(tt.counts...)
			res, err := remainingN(req)
			if err != nil {
				t.Fatalf("remainingN: %v", err)
			}
			if res.Count != tt.want {
				t.Errorf("got %d, want %d", res.Count, tt.want)
			}
		})
	}
}

func TestRemainingN_IdempotentWhenFilled(t *testing.T) {
	req := baseRequest()
	req.N = intPtr(10)
	req.ResultsThisRound = priorResults(12)

	for i := 0; i < 3; i++ {
		res, err := remainingN(req)
		if err != nil {
			t.Fatalf("remainingN: %v", err)
		}
		if res.Count != 0 {
			t.Fatalf("call %d: got %d, want stable 0", i, res.Count)
		}
	}
}

func TestSetTargetTrial(t *testing.T) {
	t.Run("no-qualifying-trial", func(t *testing.T) {
		req := baseRequest()
		req.Experiment.Trials = []experiment.Trial{
			{Index: 0, Status: experiment.StatusCandidate},
			{Index: 1, Status: experiment.StatusAbandoned},
		}
		_, err := setTargetTrial(req)
		if err == nil {
			t.Fatal("expected error when no trial qualifies")
		}
		noTarget, ok := err.(*NoTargetTrialError)
		if !ok {
			t.Fatalf("expected *NoTargetTrialError, got %T", err)
		}
		if noTarget.Stage != "next" {
			t.Errorf("stage %q, want %q", noTarget.Stage, "next")
		}
		if len(noTarget.Statuses) != 2 {
			t.Errorf("expected 2 statuses in snapshot, got %d", len(noTarget.Statuses))
		}
	})

	t.Run("single-qualifying-trial", func(t *testing.T) {
		req := baseRequest()
		req.Experiment.Trials = []experiment.Trial{
			{Index: 0, Status: experiment.StatusCandidate},
			{Index: 3, Status: experiment.StatusCompleted},
		}
		res, err := setTargetTrial(req)
		if err != nil {
			t.Fatalf("setTargetTrial: %v", err)
		}
		if res.Purpose != PurposeFixedFeatures {
			t.Errorf("purpose %q, want %q", res.Purpose, PurposeFixedFeatures)
		}
		if res.Fixed == nil {
			t.Fatal("expected fixed features")
		}
		if res.Fixed.TrialIndex != 3 {
			t.Errorf("trial index %d, want 3", res.Fixed.TrialIndex)
		}
		if len(res.Fixed.Parameters) != 0 {
			t.Errorf("expected empty parameters, got %v", res.Fixed.Parameters)
		}
	})
}
