package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/adaptive-gen/go-engine/internal/logging"
	"github.com/danielpatrickdp/adaptive-gen/go-engine/internal/replay"
	"github.com/danielpatrickdp/adaptive-gen/go-engine/internal/store"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to engine database")
	expName := flag.String("experiment", "default", "experiment name")
	last := flag.Int("last", 50, "number of most recent decisions to export")
	outPath := flag.String("out", "", "output fixture JSON path")
	flag.Parse()

	if *dbPath == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --db path/to/engine.db --out path/to/fixture.json [--experiment name] [--last N]")
		os.Exit(2)
	}

	if err := run(*dbPath, *expName, *last, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region run

func run(dbPath, expName string, last int, outPath string) error {
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
	if len(entries) == 0 {
		return fmt.Errorf("no decisions recorded for experiment %s", expName)
	}

	transitions := replay.TransitionsFromLog(entries, exp)
	desc := fmt.Sprintf("exported from %s, experiment %s, last %d decisions",
		dbPath, expName, len(transitions))
	if err := replay.WriteFixture(outPath, replay.ToFixture(desc, transitions)); err != nil {
		return err
	}

	fmt.Printf("wrote %d transitions to %s\n", len(transitions), outPath)
	return nil
}

// #endregion run
