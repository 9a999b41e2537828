// Package replay re-runs recorded form sessions offline: each step is an
// edit or a submit attempt, and every step's outcome and field errors are
// compared against a fixture.
package replay

import (
	"reflect"

	"github.com/MrDragar/LDPR-reports-generator/internal/gate"
	"github.com/MrDragar/LDPR-reports-generator/internal/mutate"
	"github.com/MrDragar/LDPR-reports-generator/internal/normalize"
	"github.com/MrDragar/LDPR-reports-generator/internal/report"
	"github.com/MrDragar/LDPR-reports-generator/internal/reportsvc"
	"github.com/MrDragar/LDPR-reports-generator/internal/validate"
)

// Step actions.
const (
	ActionApplied  = "applied"
	ActionRejected = "rejected"
	ActionNoOp     = "no_op"
	ActionAttempt  = "attempt"
)

// #region types
// Step is one recorded user action.
type Step struct {
	StepID  string
	Op      mutate.Op
	Attempt bool
}

// ReplayConfig bundles the gate limits and the endpoint the final decision
// is taken against.
type ReplayConfig struct {
	GateConfig gate.GateConfig
	Endpoint   string
}

// DefaultReplayConfig uses the daemon's gate limits and a placeholder
// endpoint, so only field errors and payload size can veto.
func DefaultReplayConfig() ReplayConfig {
	return ReplayConfig{
		GateConfig: gate.DefaultGateConfig(),
		Endpoint:   "http://localhost:8000/",
	}
}

// ReplayResult captures the outcome of one step.
type ReplayResult struct {
	StepID string
	Action string
	Reason string
	Errors []string
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalSteps int
	Applied    int
	Rejected   int
	NoOps      int
	Attempts   int
	Final      report.Report
	Decision   gate.GateDecision
}
// #endregion types

// #region replay
// Replay runs steps against start in memory. It returns one result per step
// and the report after the last one.
func Replay(start report.Report, steps []Step) ([]ReplayResult, report.Report) {
	current := start
	var latch validate.Latch
	results := make([]ReplayResult, 0, len(steps))

	for _, s := range steps {
		res := ReplayResult{StepID: s.StepID}
		switch {
		case s.Attempt:
			latch.Set()
			res.Action = ActionAttempt
		default:
			next, err := mutate.Apply(current, s.Op)
			switch {
			case err != nil:
				res.Action = ActionRejected
				res.Reason = err.Error()
			case reflect.DeepEqual(next, current):
				res.Action = ActionNoOp
			default:
				res.Action = ActionApplied
				current = next
			}
		}
		res.Errors = validate.Validate(current, latch.Attempted()).Paths()
		results = append(results, res)
	}
	return results, current
}

// Decide runs the final report through normalization, encoding and the gate
// the way a submission would, with the latch set.
func Decide(final report.Report, config ReplayConfig) gate.GateDecision {
	errs := validate.Validate(final, true)
	normalized := normalize.Report(final)
	payload, err := reportsvc.EncodePayload(normalized)
	if err != nil {
		return gate.GateDecision{Action: "reject", Reason: err.Error(), Vetoed: true}
	}
	return gate.NewGate(config.GateConfig).Evaluate(errs, normalized, payload, config.Endpoint)
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult, final report.Report, config ReplayConfig) ReplaySummary {
	s := ReplaySummary{
		TotalSteps: len(results),
		Final:      final,
		Decision:   Decide(final, config),
	}
	for _, r := range results {
		switch r.Action {
		case ActionApplied:
			s.Applied++
		case ActionRejected:
			s.Rejected++
		case ActionNoOp:
			s.NoOps++
		case ActionAttempt:
			s.Attempts++
		}
	}
	return s
}
// #endregion replay
