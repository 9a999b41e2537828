package main

import (
	"flag"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/MrDragar/LDPR-reports-generator/internal/replay"
)

// #region main

func main() {
	fixturePath := flag.String("fixture", "", "path to fixture JSON")
	verbose := flag.Bool("v", false, "print field errors for every step")
	flag.Parse()

	if *fixturePath == "" {
		fmt.Fprintln(os.Stderr, "usage: replay --fixture path/to/fixture.json [-v]")
		os.Exit(2)
	}
	os.Exit(runFixtureMode(*fixturePath, *verbose))
}

// #endregion main

// #region fixture-mode

func runFixtureMode(path string, verbose bool) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 2
	}
	start, err := f.StartReport()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 2
	}
	if f.Description != "" {
		fmt.Printf("%s\n\n", f.Description)
	}

	config := f.Config.ToReplayConfig()
	results, final := replay.Replay(start, f.DomainSteps())
	diverge := printComparison(results, f.Expected, verbose)

	summary := replay.Summarize(results, final, config)
	fmt.Printf("\nSteps: %d applied, %d rejected, %d no-op, %d attempts\n",
		summary.Applied, summary.Rejected, summary.NoOps, summary.Attempts)
	fmt.Printf("Gate:  %s (%s)\n", summary.Decision.Action, summary.Decision.Reason)
	if f.Final != nil && f.Final.Decision != summary.Decision.Action {
		fmt.Printf("Gate decision diverges: expected %s\n", f.Final.Decision)
		diverge++
	}

	if diverge > 0 {
		return 1
	}
	return 0
}

func printComparison(results []replay.ReplayResult, expected []replay.FixtureExpected, verbose bool) int {
	fmt.Printf("%-8s| %-10s| %-10s| %-7s| %s\n", "Step", "Expected", "Replayed", "Errors", "Match")
	fmt.Printf("%-8s+%-11s+%-11s+%-8s+%s\n", "--------", "-----------", "-----------", "--------", "------")

	diverge := 0
	for i, r := range results {
		exp := "-"
		match := "n/a"
		if i < len(expected) {
			e := expected[i]
			exp = e.Action
			if e.Action == r.Action && slices.Equal(e.Errors, r.Errors) {
				match = "ok"
			} else {
				match = "DIVERGE"
				diverge++
			}
		}
		fmt.Printf("%-8s| %-10s| %-10s| %-7d| %s\n", r.StepID, exp, r.Action, len(r.Errors), match)
		if r.Reason != "" {
			fmt.Printf("          reason: %s\n", r.Reason)
		}
		if verbose && len(r.Errors) > 0 {
			fmt.Printf("          errors: %s\n", strings.Join(r.Errors, ", "))
		}
	}
	if len(expected) != len(results) {
		fmt.Printf("expected %d results, replayed %d\n", len(expected), len(results))
		diverge++
	}
	fmt.Printf("\nSummary: %d total, %d match, %d diverge\n", len(results), len(results)-diverge, diverge)
	return diverge
}

// #endregion fixture-mode
