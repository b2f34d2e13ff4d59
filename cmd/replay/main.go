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
	dbPath := flag.String("db", "", "path to engine database (DB mode)")
	expName := flag.String("experiment", "default", "experiment name (DB mode)")
	last := flag.Int("last", 100, "number of most recent decisions to replay (DB mode)")
	fixturePath := flag.String("fixture", "", "path to fixture JSON (fixture mode)")
	flag.Parse()

	if (*dbPath == "" && *fixturePath == "") || (*dbPath != "" && *fixturePath != "") {
		fmt.Fprintln(os.Stderr, "usage: replay --db path/to/engine.db [--experiment name] [--last N]")
		fmt.Fprintln(os.Stderr, "       replay --fixture path/to/fixture.json")
		os.Exit(2)
	}

	var exitCode int
	if *fixturePath != "" {
		exitCode = runFixtureMode(*fixturePath)
	} else {
		exitCode = runDBMode(*dbPath, *expName, *last)
	}
	os.Exit(exitCode)
}

// #endregion main

// #region db-mode

func runDBMode(dbPath, expName string, last int) int {
	st, err := store.NewStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		return 2
	}
	defer st.Close()

	exp, err := st.LoadExperiment(expName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load experiment: %v\n", err)
		return 2
	}
	entries, err := logging.RecentDecisions(st.DB(), expName, last)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read decisions: %v\n", err)
		return 2
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "no decisions recorded")
		return 0
	}

	return report(replay.Replay(replay.TransitionsFromLog(entries, exp)))
}

// #endregion db-mode

// #region fixture-mode

func runFixtureMode(fixturePath string) int {
	transitions, err := replay.LoadFixture(fixturePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}
	return report(replay.Replay(transitions))
}

// #endregion fixture-mode

// #region report

func report(summary replay.Summary, items []replay.ItemResult) int {
	for _, item := range items {
		switch {
		case item.ErrMessage != "":
			fmt.Printf("ERROR  %s/%s %s: %s\n",
				item.RoundID, item.Stage, item.Constructor, item.ErrMessage)
		case !item.Match:
			fmt.Printf("DIVERGE %s/%s %s: got %d want %d\n",
				item.RoundID, item.Stage, item.Constructor, item.Got, item.Want)
		}
	}
	fmt.Printf("replayed %d decisions: %d match, %d diverge, %d error\n",
		summary.Total, summary.Matches, summary.Mismatches, summary.Errors)

	if summary.Mismatches > 0 || summary.Errors > 0 {
		return 1
	}
	return 0
}

// #endregion report
