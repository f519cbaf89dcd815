package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/sentiment-gate/go-controller/internal/audit"
	"github.com/danielpatrickdp/sentiment-gate/go-controller/internal/gate"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description     string                  `json:"description"`
	Threshold       float64                 `json:"threshold"`
	Interactions    []FixtureInteraction    `json:"interactions"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results"`
}

// FixtureInteraction mirrors Interaction with JSON tags.
type FixtureInteraction struct {
	ID              string   `json:"id"`
	InputText       string   `json:"input_text"`
	ModelPrediction string   `json:"model_prediction,omitempty"`
	ModelConfidence *float64 `json:"model_confidence,omitempty"`
	UsedFallback    bool     `json:"used_fallback"`
}

// FixtureExpectedResult captures the expected action per interaction.
type FixtureExpectedResult struct {
	ID     string `json:"id"`
	Action string `json:"action"`
}

// Mismatch is one interaction whose replayed action differs from the fixture.
type Mismatch struct {
	ID       string
	Expected string
	Got      string
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
	if err := f.ReplayConfig().GateConfig.Validate(); err != nil {
		return nil, fmt.Errorf("fixture %s: %w", path, err)
	}
	return &f, nil
}

// WriteFixture stores f as indented JSON.
func WriteFixture(f *Fixture, path string) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// ToInteraction converts a FixtureInteraction to an Interaction.
func (fi *FixtureInteraction) ToInteraction() Interaction {
	in := Interaction{
		ID:              fi.ID,
		InputText:       fi.InputText,
		ModelPrediction: fi.ModelPrediction,
		UsedFallback:    fi.UsedFallback,
	}
	if fi.ModelConfidence != nil {
		in.ModelConfidence = *fi.ModelConfidence
		in.ModelKnown = true
	}
	return in
}

// ReplayConfig returns the gate settings recorded in the fixture.
func (f *Fixture) ReplayConfig() ReplayConfig {
	return ReplayConfig{GateConfig: gate.GateConfig{Threshold: f.Threshold}}
}

// ToInteractions converts every fixture interaction.
func (f *Fixture) ToInteractions() []Interaction {
	out := make([]Interaction, len(f.Interactions))
	for i := range f.Interactions {
		out[i] = f.Interactions[i].ToInteraction()
	}
	return out
}

// #endregion fixture-loader

// #region fixture-build

// BuildFixture captures decisions together with the route each one
// actually took, so a later replay at threshold can be checked against it.
func BuildFixture(description string, threshold float64, decisions []audit.Decision) *Fixture {
	f := &Fixture{
		Description:     description,
		Threshold:       threshold,
		Interactions:    make([]FixtureInteraction, len(decisions)),
		ExpectedResults: make([]FixtureExpectedResult, len(decisions)),
	}
	for i, d := range decisions {
		fi := FixtureInteraction{
			ID:           d.RunID,
			InputText:    d.InputText,
			UsedFallback: d.UsedFallback,
		}
		if d.ModelPrediction != "" {
			mc := d.ModelConfidence
			fi.ModelPrediction = d.ModelPrediction
			fi.ModelConfidence = &mc
		}
		action := ActionAuto
		if d.UsedFallback {
			action = ActionClarify
		}
		f.Interactions[i] = fi
		f.ExpectedResults[i] = FixtureExpectedResult{ID: d.RunID, Action: action}
	}
	return f
}

// #endregion fixture-build

// #region fixture-check

// Check replays the fixture and returns every interaction whose action
// differs from the expected one. A missing or extra result counts too.
func (f *Fixture) Check() ([]ReplayResult, []Mismatch) {
	results := Replay(f.ToInteractions(), f.ReplayConfig())

	got := make(map[string]string, len(results))
	for _, r := range results {
		got[r.ID] = r.Action
	}

	var mismatches []Mismatch
	seen := make(map[string]bool, len(f.ExpectedResults))
	for _, exp := range f.ExpectedResults {
		seen[exp.ID] = true
		if a, ok := got[exp.ID]; !ok || a != exp.Action {
			mismatches = append(mismatches, Mismatch{ID: exp.ID, Expected: exp.Action, Got: a})
		}
	}
	for _, r := range results {
		if !seen[r.ID] {
			mismatches = append(mismatches, Mismatch{ID: r.ID, Got: r.Action})
		}
	}
	return results, mismatches
}

// #endregion fixture-check
