package replay

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/sentiment-gate/go-controller/internal/audit"
	"github.com/danielpatrickdp/sentiment-gate/go-controller/internal/gate"
)

// csvPrecision is half the last digit the CSV log keeps.
const csvPrecision = 0.005

// Replay actions.
const (
	ActionAuto    = "auto"    // answered by the model
	ActionClarify = "clarify" // routed to the operator
	ActionManual  = "manual"  // operator answer, model confidence not recorded
)

// #region types
// Interaction is one recorded decision, reduced to what the gate needs.
type Interaction struct {
	ID              string
	InputText       string
	ModelPrediction string
	ModelConfidence float64
	ModelKnown      bool // false when only the forced 1.0 of a manual answer survives
	UsedFallback    bool

	// Rounded marks a confidence stored to 2 decimals, as the CSV log does.
	Rounded bool
}

// ReplayConfig holds the gate settings to replay under.
type ReplayConfig struct {
	GateConfig gate.GateConfig
}

// DefaultReplayConfig replays under the stock threshold.
func DefaultReplayConfig() ReplayConfig {
	return ReplayConfig{GateConfig: gate.DefaultGateConfig()}
}

// ReplayResult is the outcome of re-gating one interaction.
type ReplayResult struct {
	ID       string
	Action   string
	Previous string
	Changed  bool
	Reason   string

	// Gate is nil when the model confidence is unknown.
	Gate *gate.GateDecision
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	Total      int
	Auto       int
	Clarify    int
	Manual     int
	Changed    int
	Threshold  float64
	WasClarify int
}

// #endregion types

// #region sources
// FromEntries converts CSV rows. Rows answered by the operator carry the
// forced confidence of 1.0, so their model confidence is unknown.
func FromEntries(entries []audit.Entry) []Interaction {
	out := make([]Interaction, len(entries))
	for i, e := range entries {
		out[i] = Interaction{
			ID:              fmt.Sprintf("row-%d", i+1),
			InputText:       e.InputText,
			ModelPrediction: e.Prediction,
			ModelConfidence: e.Confidence,
			ModelKnown:      !e.UsedFallback,
			UsedFallback:    e.UsedFallback,
			Rounded:         true,
		}
	}
	return out
}

// FromDecisions converts SQLite rows, which keep the model's own answer.
func FromDecisions(decisions []audit.Decision) []Interaction {
	out := make([]Interaction, len(decisions))
	for i, d := range decisions {
		out[i] = Interaction{
			ID:              d.RunID,
			InputText:       d.InputText,
			ModelPrediction: d.ModelPrediction,
			ModelConfidence: d.ModelConfidence,
			ModelKnown:      d.ModelPrediction != "",
			UsedFallback:    d.UsedFallback,
		}
	}
	return out
}

// #endregion sources

// #region replay
// Replay re-runs the confidence gate over recorded interactions. It never
// calls a classifier or prompts anyone.
func Replay(interactions []Interaction, config ReplayConfig) []ReplayResult {
	g := gate.NewGate(config.GateConfig)
	results := make([]ReplayResult, 0, len(interactions))

	for _, inter := range interactions {
		previous := ActionAuto
		if inter.UsedFallback {
			previous = ActionClarify
		}

		if !inter.ModelKnown {
			results = append(results, ReplayResult{
				ID:       inter.ID,
				Action:   ActionManual,
				Previous: previous,
				Reason:   "manual answer, model confidence not recorded",
			})
			continue
		}

		decision := g.Evaluate(inter.ModelConfidence)
		action := ActionAuto
		if decision.Route == gate.RouteLowConfidence {
			action = ActionClarify
		}
		reason := decision.Reason
		if inter.Rounded && math.Abs(inter.ModelConfidence-decision.Threshold) <= csvPrecision {
			reason += "; confidence is rounded to 2 decimals, route at this threshold is uncertain"
		}

		results = append(results, ReplayResult{
			ID:       inter.ID,
			Action:   action,
			Previous: previous,
			Changed:  action != previous,
			Reason:   reason,
			Gate:     &decision,
		})
	}

	return results
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult, config ReplayConfig) ReplaySummary {
	s := ReplaySummary{
		Total:     len(results),
		Threshold: config.GateConfig.Threshold,
	}
	for _, r := range results {
		switch r.Action {
		case ActionAuto:
			s.Auto++
		case ActionClarify:
			s.Clarify++
		case ActionManual:
			s.Manual++
		}
		if r.Changed {
			s.Changed++
		}
		if r.Previous == ActionClarify {
			s.WasClarify++
		}
	}
	return s
}

// #endregion replay
