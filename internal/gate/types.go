package gate

import (
	"fmt"
	"math"
)

// #region route
// Route names the branch taken after inference.
type Route string

const (
	RouteHighConfidence Route = "high_confidence"
	RouteLowConfidence  Route = "low_confidence"
)

// #endregion route

// #region gate-config
// GateConfig holds the confidence gate threshold.
type GateConfig struct {
	Threshold float64 // inclusive: confidence >= Threshold is high confidence
}

// DefaultThreshold is the confidence below which the operator is asked.
const DefaultThreshold = 0.6

// DefaultGateConfig returns the stock threshold.
func DefaultGateConfig() GateConfig {
	return GateConfig{Threshold: DefaultThreshold}
}

// Validate rejects a threshold that is NaN or outside [0, 1]. A NaN
// threshold would route every input to the operator.
func (c GateConfig) Validate() error {
	if t := c.Threshold; math.IsNaN(t) || t < 0 || t > 1 {
		return fmt.Errorf("threshold %v outside [0, 1]", t)
	}
	return nil
}

// #endregion gate-config

// #region gate-decision
// GateDecision is the output of the gate evaluation.
type GateDecision struct {
	Route      Route
	Confidence float64
	Threshold  float64
	Reason     string
}

// #endregion gate-decision
