package replay

import (
	"reflect"
	"testing"

	"github.com/MrDragar/LDPR-reports-generator/internal/mutate"
	"github.com/MrDragar/LDPR-reports-generator/internal/report"
)

func edit(id string, op mutate.Op) Step { return Step{StepID: id, Op: op} }

func TestReplay_EmptySteps(t *testing.T) {
	results, final := Replay(report.Default(), nil)
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
	if !reflect.DeepEqual(final, report.Default()) {
		t.Fatal("final report should equal start")
	}
}

func TestReplay_AppendRemoveRoundTrip(t *testing.T) {
	steps := []Step{
		edit("a", mutate.Op{Kind: mutate.OpAppendListItem, List: "legislation"}),
		edit("b", mutate.Op{Kind: mutate.OpRemoveListItem, List: "legislation", Index: mutate.At(0)}),
	}
	results, final := Replay(report.Default(), steps)
	if results[0].Action != ActionApplied || results[1].Action != ActionApplied {
		t.Fatalf("unexpected actions %+v", results)
	}
	if !reflect.DeepEqual(final, report.Default()) {
		t.Fatal("append then remove should give back the start report")
	}
}

func TestReplay_RequiredOnlyAfterAttempt(t *testing.T) {
	results, _ := Replay(report.Default(), []Step{
		edit("a", mutate.Op{Kind: mutate.OpSetField, Section: "other_info", Value: "x"}),
		{StepID: "b", Attempt: true},
	})
	if len(results[0].Errors) != 0 {
		t.Fatalf("no required errors before an attempt, got %v", results[0].Errors)
	}
	if len(results[1].Errors) != 12 {
		t.Fatalf("expected six general_info and six session errors, got %v", results[1].Errors)
	}
}

func TestReplay_RejectedStepKeepsReport(t *testing.T) {
	results, final := Replay(report.Default(), []Step{
		edit("a", mutate.Op{Kind: mutate.OpRemoveStringListItem, Section: "general_info", Field: "links", Index: mutate.At(9)}),
		edit("b", mutate.Op{Kind: "bogus"}),
	})
	for _, r := range results {
		if r.Action != ActionRejected || r.Reason == "" {
			t.Errorf("step %s: expected rejection with a reason, got %+v", r.StepID, r)
		}
	}
	if !reflect.DeepEqual(final, report.Default()) {
		t.Fatal("rejected steps must not change the report")
	}
}

func TestSummarize_Counts(t *testing.T) {
	results := []ReplayResult{
		{Action: ActionApplied}, {Action: ActionApplied}, {Action: ActionRejected},
		{Action: ActionNoOp}, {Action: ActionAttempt},
	}
	s := Summarize(results, report.Default(), DefaultReplayConfig())
	if s.TotalSteps != 5 || s.Applied != 2 || s.Rejected != 1 || s.NoOps != 1 || s.Attempts != 1 {
		t.Errorf("unexpected summary %+v", s)
	}
	if s.Decision.Action != "reject" || !s.Decision.Vetoed {
		t.Errorf("an empty report should be vetoed, got %+v", s.Decision)
	}
}

func TestDecide_EndpointVeto(t *testing.T) {
	cfg := DefaultReplayConfig()
	cfg.Endpoint = ""
	d := Decide(report.Default(), cfg)
	last := d.VetoSignals[len(d.VetoSignals)-1]
	if last.Type != "endpoint" {
		t.Errorf("expected endpoint veto last, got %+v", last)
	}
}
