package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/MrDragar/LDPR-reports-generator/internal/mutate"
	"github.com/MrDragar/LDPR-reports-generator/internal/report"
)

// #region fixture-types

// Fixture is the top-level JSON structure for an edit replay fixture.
type Fixture struct {
	Description string            `json:"description"`
	Start       json.RawMessage   `json:"start,omitempty"`
	Config      FixtureConfig     `json:"config"`
	Steps       []FixtureStep     `json:"steps"`
	Expected    []FixtureExpected `json:"expected_results"`
	Final       *FixtureFinal     `json:"final,omitempty"`
}

// FixtureStep is one recorded user action: an edit or a submit attempt.
type FixtureStep struct {
	StepID  string     `json:"step_id"`
	Op      *mutate.Op `json:"op,omitempty"`
	Attempt bool       `json:"attempt,omitempty"`
}

// FixtureExpected captures the expected outcome per step.
type FixtureExpected struct {
	StepID string   `json:"step_id"`
	Action string   `json:"action"`
	Errors []string `json:"errors"`
}

// FixtureFinal captures the expected gate decision after the last step.
type FixtureFinal struct {
	Decision string   `json:"decision"`
	Vetoes   []string `json:"vetoes"`
}

// FixtureConfig mirrors gate.GateConfig with JSON tags.
type FixtureConfig struct {
	MaxPayloadBytes int    `json:"max_payload_bytes"`
	Endpoint        string `json:"endpoint"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	for i, s := range f.Steps {
		if (s.Op == nil) == !s.Attempt {
			return nil, fmt.Errorf("parse fixture %s: step %d needs exactly one of op or attempt", path, i)
		}
	}
	return &f, nil
}

// StartReport merges the fixture's start document over the default report.
func (f *Fixture) StartReport() (report.Report, error) {
	if len(f.Start) == 0 {
		return report.Default(), nil
	}
	r, err := report.MergeLoaded(report.Default(), f.Start)
	if err != nil {
		return report.Report{}, fmt.Errorf("load start report: %w", err)
	}
	return r, nil
}

// ToStep converts a FixtureStep to a domain Step.
func (fs *FixtureStep) ToStep() Step {
	s := Step{StepID: fs.StepID, Attempt: fs.Attempt}
	if fs.Op != nil {
		s.Op = *fs.Op
	}
	return s
}

// ToReplayConfig converts a FixtureConfig to a domain ReplayConfig. Zero
// values fall back to the defaults.
func (fc *FixtureConfig) ToReplayConfig() ReplayConfig {
	cfg := DefaultReplayConfig()
	if fc.MaxPayloadBytes > 0 {
		cfg.GateConfig.MaxPayloadBytes = fc.MaxPayloadBytes
	}
	if fc.Endpoint != "" {
		cfg.Endpoint = fc.Endpoint
	}
	return cfg
}

// DomainSteps converts every fixture step.
func (f *Fixture) DomainSteps() []Step {
	out := make([]Step, len(f.Steps))
	for i := range f.Steps {
		out[i] = f.Steps[i].ToStep()
	}
	return out
}

// #endregion fixture-loader
