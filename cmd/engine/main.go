package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"

	"github.com/danielpatrickdp/adaptive-gen/go-engine/internal/eval"
	"github.com/danielpatrickdp/adaptive-gen/go-engine/internal/experiment"
	"github.com/danielpatrickdp/adaptive-gen/go-engine/internal/gate"
	"github.com/danielpatrickdp/adaptive-gen/go-engine/internal/inputs"
	"github.com/danielpatrickdp/adaptive-gen/go-engine/internal/logging"
	"github.com/danielpatrickdp/adaptive-gen/go-engine/internal/pipeline"
	"github.com/danielpatrickdp/adaptive-gen/go-engine/internal/signals"
	"github.com/danielpatrickdp/adaptive-gen/go-engine/internal/store"
)

// #region main

func main() {
	configPath := flag.String("config", "", "path to pipeline definition YAML")
	dbPath := flag.String("db", "engine.db", "path to engine database")
	expName := flag.String("experiment", "default", "experiment name")
	rounds := flag.Int("rounds", 1, "number of rounds to run")
	n := flag.Int("n", 0, "explicit total arm count per round (0 = let the engine resolve)")
	concurrent := flag.Int("concurrent", 0, "total concurrent arms hint (0 = unset)")
	maxArms := flag.Int("max-arms", 0, "gate cap on planned arms per round (0 = unlimited)")
	seed := flag.Int64("seed", 0, "generator seed (0 = random)")
	flag.Parse()

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "usage: engine --config pipeline.yaml [--db engine.db] [--experiment name] [--rounds N] [--n K]")
		os.Exit(2)
	}

	if err := run(*configPath, *dbPath, *expName, *rounds, *n, *concurrent, *maxArms, *seed); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region run

func run(configPath, dbPath, expName string, rounds, n, concurrent, maxArms int, seed int64) error {
	def, err := pipeline.Load(configPath)
	if err != nil {
		return err
	}

	st, err := store.NewStore(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	exp, err := st.LoadExperiment(expName)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		exp = &experiment.Experiment{Name: expName}
		if concurrent > 0 {
			exp.TotalConcurrentArms = &concurrent
		}
		if err := st.SaveExperiment(exp); err != nil {
			return err
		}
		log.Printf("[ENGINE] created experiment %s", expName)
	}

	// Target-trial anchoring needs at least one data-bearing trial; on a
	// fresh experiment, seed a baseline trial so the first round can run.
	if _, ok := experiment.TargetTrialIndex(exp); !ok && needsTargetTrial(def) {
		baseline := []experiment.Arm{{
			Name:       "baseline",
			Parameters: map[string]any{"x1": 0.5, "x2": 0.5},
		}}
		idx, err := st.AddTrial(expName, baseline, experiment.StatusRunning)
		if err != nil {
			return fmt.Errorf("seed baseline trial: %w", err)
		}
		log.Printf("[ENGINE] seeded baseline trial %d", idx)
		if exp, err = st.LoadExperiment(expName); err != nil {
			return fmt.Errorf("reload experiment: %w", err)
		}
	}

	gen := newStubGenerator(seed)
	sink := &logging.Sink{DB: st.DB(), Experiment: expName}
	runner := pipeline.NewRunner(def, gen, sink)
	g := gate.NewGate(gate.GateConfig{MaxArmsPerRound: maxArms})
	harness := eval.NewEvalHarness(eval.DefaultEvalConfig())

	var explicitN *int
	if n > 0 {
		explicitN = &n
	}

	for i := 0; i < rounds; i++ {
		plan, err := runner.Plan(exp, explicitN)
		if err != nil {
			return fmt.Errorf("round %d plan: %w", i, err)
		}
		if dec := g.Check(plan); !dec.Allow {
			log.Printf("[ENGINE] round %d rejected by gate: %v", i, dec.Reasons)
			continue
		}

		rr, err := runner.RunRound(exp, explicitN)
		if err != nil {
			return fmt.Errorf("round %d: %w", i, err)
		}
		if err := st.RecordRound(expName, rr); err != nil {
			return fmt.Errorf("record round %d: %w", i, err)
		}

		stats := signals.FromRound(rr)
		res := harness.Run(stats)
		log.Printf("[ENGINE] round=%s requested=%d produced=%d fill=%.2f repeats=%d eval=%v",
			rr.RoundID, stats.Requested, stats.Produced, stats.FillRate, stats.RepeatArms, res.Passed)
		for _, reason := range res.FailReasons {
			log.Printf("[ENGINE]   eval: %s", reason)
		}

		if len(rr.Results) == 0 {
			continue
		}
		var arms []experiment.Arm
		for _, gr := range rr.Results {
			arms = append(arms, gr.Arms...)
		}
		idx, err := st.AddTrial(expName, arms, experiment.StatusRunning)
		if err != nil {
			return fmt.Errorf("add trial: %w", err)
		}
		log.Printf("[ENGINE] trial %d created with %d arms", idx, len(arms))

		exp, err = st.LoadExperiment(expName)
		if err != nil {
			return fmt.Errorf("reload experiment: %w", err)
		}
	}
	return nil
}

// #endregion run

// #region helpers

// needsTargetTrial reports whether any stage binds a fixed-features
// constructor.
func needsTargetTrial(def pipeline.Definition) bool {
	for _, s := range def.Stages {
		if _, ok := s.Constructors[inputs.PurposeFixedFeatures]; ok {
			return true
		}
	}
	return false
}

// #endregion helpers

// #region stub-generator

// stubGenerator produces uniform random arms over two parameters. It
// exists to exercise the engine loop; real candidate generation is the
// caller's business.
type stubGenerator struct {
	rng *rand.Rand
}

func newStubGenerator(seed int64) *stubGenerator {
	if seed == 0 {
		seed = rand.Int63()
	}
	return &stubGenerator{rng: rand.New(rand.NewSource(seed))}
}

func (g *stubGenerator) Generate(stage pipeline.StageSpec, n int, fixed *experiment.FixedFeatures) (experiment.GenerationResult, error) {
	gr := experiment.GenerationResult{StageName: stage.Name}
	for i := 0; i < n; i++ {
		arm := experiment.Arm{
			Name: fmt.Sprintf("%s_%d", stage.Name, i),
			Parameters: map[string]any{
				"x1": g.rng.Float64(),
				"x2": g.rng.Float64(),
			},
		}
		if fixed != nil {
			arm.Parameters["anchor_trial"] = fixed.TrialIndex
		}
		gr.Arms = append(gr.Arms, arm)
	}
	return gr, nil
}

// #endregion stub-generator
