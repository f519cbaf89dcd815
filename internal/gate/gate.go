package gate

import "fmt"

// #region gate
// Gate routes a classification by its confidence. It holds no state
// beyond its configuration.
type Gate struct {
	config GateConfig
}

// NewGate creates a gate with the given configuration.
func NewGate(config GateConfig) *Gate {
	return &Gate{config: config}
}

// Threshold returns the configured threshold.
func (g *Gate) Threshold() float64 {
	return g.config.Threshold
}

// Route returns RouteHighConfidence when confidence >= threshold.
func (g *Gate) Route(confidence float64) Route {
	if confidence >= g.config.Threshold {
		return RouteHighConfidence
	}
	return RouteLowConfidence
}

// Evaluate is Route with the inputs attached, for logging and replay.
func (g *Gate) Evaluate(confidence float64) GateDecision {
	route := g.Route(confidence)

	var reason string
	if route == RouteHighConfidence {
		reason = fmt.Sprintf("confidence %.4f >= threshold %.4f", confidence, g.config.Threshold)
	} else {
		reason = fmt.Sprintf("confidence %.4f < threshold %.4f", confidence, g.config.Threshold)
	}

	return GateDecision{
		Route:      route,
		Confidence: confidence,
		Threshold:  g.config.Threshold,
		Reason:     reason,
	}
}

// #endregion gate
