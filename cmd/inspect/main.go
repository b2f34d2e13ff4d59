package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/adaptive-gen/go-engine/internal/experiment"
	"github.com/danielpatrickdp/adaptive-gen/go-engine/internal/logging"
	"github.com/danielpatrickdp/adaptive-gen/go-engine/internal/store"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to engine database")
	expName := flag.String("experiment", "default", "experiment name")
	last := flag.Int("last", 20, "show N most recent decisions and rounds")
	jsonOut := flag.Bool("json", false, "output as JSON instead of text")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/engine.db [--experiment name] [--last N] [--json]")
		os.Exit(2)
	}

	if err := run(*dbPath, *expName, *last, *jsonOut); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region report-types

type trialRow struct {
	Index  int    `json:"index"`
	Status string `json:"status"`
	Arms   int    `json:"arms"`
}

type decisionRow struct {
	RoundID     string `json:"round_id"`
	Stage       string `json:"stage"`
	Constructor string `json:"constructor"`
	Purpose     string `json:"purpose"`
	ExplicitN   *int   `json:"n,omitempty"`
	PriorArms   int    `json:"prior_arms"`
	Count       int    `json:"count"`
	TrialIndex  int    `json:"trial_index"`
}

type roundRow struct {
	RoundID  string `json:"round_id"`
	Stage    string `json:"stage"`
	ArmCount int    `json:"arm_count"`
}

type report struct {
	Experiment          string        `json:"experiment"`
	TotalConcurrentArms *int          `json:"total_concurrent_arms,omitempty"`
	Trials              []trialRow    `json:"trials"`
	TargetTrial         *int          `json:"target_trial,omitempty"`
	Rounds              []roundRow    `json:"rounds"`
	Decisions           []decisionRow `json:"decisions"`
}

// #endregion report-types

// #region run

func run(dbPath, expName string, last int, jsonOut bool) error {
	st, err := store.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer st.Close()

	exp, err := st.LoadExperiment(expName)
	if err != nil {
		return fmt.Errorf("load experiment: %w", err)
	}
	entries, err := logging.RecentDecisions(st.DB(), expName, last)
	if err != nil {
		return err
	}
	rounds, err := st.ListRounds(expName, last)
	if err != nil {
		return err
	}

	rep := report{
		Experiment:          exp.Name,
		TotalConcurrentArms: exp.TotalConcurrentArms,
	}
	for _, t := range exp.Trials {
		rep.Trials = append(rep.Trials, trialRow{
			Index:  t.Index,
			Status: string(t.Status),
			Arms:   len(t.Arms),
		})
	}
	if idx, ok := experiment.TargetTrialIndex(exp); ok {
		rep.TargetTrial = &idx
	}
	for _, r := range rounds {
		rep.Rounds = append(rep.Rounds, roundRow{
			RoundID:  r.RoundID,
			Stage:    r.StageName,
			ArmCount: r.ArmCount,
		})
	}
	for _, e := range entries {
		rep.Decisions = append(rep.Decisions, decisionRow{
			RoundID:     e.RoundID,
			Stage:       e.StageName,
			Constructor: e.Constructor,
			Purpose:     e.Purpose,
			ExplicitN:   e.ExplicitN,
			PriorArms:   e.PriorArms,
			Count:       e.Count,
			TrialIndex:  e.TrialIndex,
		})
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	printReport(rep)
	return nil
}

// #endregion run

// #region print

func printReport(rep report) {
	fmt.Printf("experiment: %s\n", rep.Experiment)
	if rep.TotalConcurrentArms != nil {
		fmt.Printf("total_concurrent_arms: %d\n", *rep.TotalConcurrentArms)
	}
	if rep.TargetTrial != nil {
		fmt.Printf("target_trial: %d\n", *rep.TargetTrial)
	} else {
		fmt.Println("target_trial: none (no trial in a data-bearing status)")
	}

	fmt.Printf("\ntrials (%d):\n", len(rep.Trials))
	for _, t := range rep.Trials {
		fmt.Printf("  %4d  %-14s %d arms\n", t.Index, t.Status, t.Arms)
	}

	fmt.Printf("\nrounds (%d most recent):\n", len(rep.Rounds))
	for _, r := range rep.Rounds {
		short := r.RoundID
		if len(short) > 8 {
			short = short[:8]
		}
		fmt.Printf("  %s  %-12s %d arms\n", short, r.Stage, r.ArmCount)
	}

	fmt.Printf("\ndecisions (%d most recent):\n", len(rep.Decisions))
	for _, d := range rep.Decisions {
		short := d.RoundID
		if len(short) > 8 {
			short = short[:8]
		}
		switch d.Purpose {
		case "fixed_features":
			fmt.Printf("  %s  %-12s %-18s -> trial %d\n", short, d.Stage, d.Constructor, d.TrialIndex)
		default:
			fmt.Printf("  %s  %-12s %-18s -> n=%d (prior=%d)\n", short, d.Stage, d.Constructor, d.Count, d.PriorArms)
		}
	}
}

// #endregion print
