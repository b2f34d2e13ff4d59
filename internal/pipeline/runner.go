package pipeline

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/danielpatrickdp/adaptive-gen/go-engine/internal/experiment"
	"github.com/danielpatrickdp/adaptive-gen/go-engine/internal/inputs"
)

// #region runner-struct

// Runner walks a pipeline definition's stage transitions for one round,
// dispatching each stage's input constructors and invoking the generator.
type Runner struct {
	def     Definition
	gen     Generator
	sink    DecisionSink // nil = no provenance logging
	enabled bool
}

// NewRunner creates a runner for the given definition and generator.
// Kill switch: set ENGINE_ENABLED=false to plan without generating.
func NewRunner(def Definition, gen Generator, sink DecisionSink) *Runner {
	enabled := true
	if v := os.Getenv("ENGINE_ENABLED"); v == "false" {
		enabled = false
	}
	return &Runner{def: def, gen: gen, sink: sink, enabled: enabled}
}

// Enabled returns whether the runner actually generates arms.
func (r *Runner) Enabled() bool {
	return r.enabled
}

// #endregion runner-struct

// #region plan

// Plan computes the round's allocations without generating anything,
// assuming each stage produces exactly what it is asked for. Used by the
// gate before committing to a round.
func (r *Runner) Plan(exp *experiment.Experiment, n *int) (RoundPlan, error) {
	plan := RoundPlan{}
	var simulated []experiment.GenerationResult
	var prev inputs.Stage

	for _, spec := range r.def.Stages {
		next := stageHandle{spec: spec}
		req := inputs.Request{
			PreviousStage:    prev,
			NextStage:        next,
			N:                n,
			ResultsThisRound: simulated,
			Experiment:       exp,
		}
		ctor := spec.Constructors[inputs.PurposeCount]
		res, err := inputs.Dispatch(ctor, req)
		if err != nil {
			return RoundPlan{}, fmt.Errorf("plan stage %q: %w", spec.Name, err)
		}
		if plan.Requested == 0 {
			plan.Requested = resolveRequested(req)
		}
		plan.Allocations = append(plan.Allocations, StageAllocation{
			Stage:       spec.Name,
			Constructor: ctor,
			Count:       res.Count,
		})
		if res.Count > 0 {
			simulated = append(simulated, experiment.GenerationResult{
				StageName: spec.Name,
				Arms:      make([]experiment.Arm, res.Count),
			})
		}
		prev = next
	}
	return plan, nil
}

// resolveRequested mirrors the constructors' total resolution so the plan
// can report the round's requested count.
func resolveRequested(req inputs.Request) int {
	res, err := inputs.Dispatch(inputs.ConsumeAllN, req)
	if err != nil {
		return 0
	}
	return res.Count
}

// #endregion plan

// #region run-round

// RunRound executes one round: dispatch, generate, accumulate. Stages
// whose resolved count is 0 are skipped; that is the terminal signal for
// allocation-driven stages. Fixed-features failure aborts the round.
func (r *Runner) RunRound(exp *experiment.Experiment, n *int) (RoundResult, error) {
	roundID := uuid.New().String()
	result := RoundResult{RoundID: roundID}
	// accum feeds later transitions; in disabled mode it carries simulated
	// batches that never reach result.Results.
	var accum []experiment.GenerationResult
	var prev inputs.Stage

	for _, spec := range r.def.Stages {
		next := stageHandle{spec: spec}
		req := inputs.Request{
			PreviousStage:    prev,
			NextStage:        next,
			N:                n,
			ResultsThisRound: accum,
			Experiment:       exp,
		}
		prev = next

		ctor := spec.Constructors[inputs.PurposeCount]
		res, err := inputs.Dispatch(ctor, req)
		if err != nil {
			return result, fmt.Errorf("stage %q count constructor: %w", spec.Name, err)
		}
		if result.Requested == 0 {
			result.Requested = resolveRequested(req)
		}
		r.record(roundID, spec.Name, ctor, req, res)

		outcome := StageOutcome{
			Stage:       spec.Name,
			Constructor: ctor,
			Planned:     res.Count,
		}

		if ffCtor, ok := spec.Constructors[inputs.PurposeFixedFeatures]; ok {
			ffRes, err := inputs.Dispatch(ffCtor, req)
			if err != nil {
				return result, fmt.Errorf("stage %q fixed features: %w", spec.Name, err)
			}
			r.record(roundID, spec.Name, ffCtor, req, ffRes)
			outcome.Fixed = ffRes.Fixed
		}

		if res.Count == 0 {
			log.Printf("[RUN] stage=%s resolved 0 arms, skipping", spec.Name)
			result.Outcomes = append(result.Outcomes, outcome)
			continue
		}

		if r.enabled {
			gr, err := r.gen.Generate(spec, res.Count, outcome.Fixed)
			if err != nil {
				return result, fmt.Errorf("stage %q generate: %w", spec.Name, err)
			}
			outcome.Produced = len(gr.Arms)
			accum = append(accum, gr)
			result.Results = append(result.Results, gr)
			log.Printf("[RUN] stage=%s ctor=%s planned=%d produced=%d",
				spec.Name, ctor, res.Count, outcome.Produced)
		} else {
			accum = append(accum, experiment.GenerationResult{
				StageName: spec.Name,
				Arms:      make([]experiment.Arm, res.Count),
			})
			log.Printf("[RUN] disabled, planned only: stage=%s n=%d", spec.Name, res.Count)
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}
	return result, nil
}

// #endregion run-round

// #region record

func (r *Runner) record(roundID, stage string, ctor inputs.ConstructorID, req inputs.Request, res inputs.Result) {
	if r.sink == nil {
		return
	}
	prior := 0
	for _, gr := range req.ResultsThisRound {
		prior += len(gr.Arms)
	}
	d := Decision{
		RoundID:     roundID,
		StageName:   stage,
		Constructor: ctor,
		Purpose:     res.Purpose,
		ExplicitN:   req.N,
		PriorArms:   prior,
		Count:       res.Count,
		CreatedAt:   time.Now().UTC(),
	}
	if res.Fixed != nil {
		d.TrialIndex = res.Fixed.TrialIndex
	}
	if err := r.sink.Record(d); err != nil {
		log.Printf("[RUN] failed to record decision: %v", err)
	}
}

// #endregion record
