package gate

import (
	"math"
	"strings"
	"testing"
)

func TestGateBoundaryIsInclusive(t *testing.T) {
	g := NewGate(DefaultGateConfig())

	if r := g.Route(0.6); r != RouteHighConfidence {
		t.Fatalf("expected high_confidence at exactly 0.6, got %s", r)
	}
}

func TestGateRoutesTable(t *testing.T) {
	g := NewGate(DefaultGateConfig())

	cases := []struct {
		confidence float64
		want       Route
	}{
		{0.0, RouteLowConfidence},
		{0.3, RouteLowConfidence},
		{0.55, RouteLowConfidence},
		{0.5999999, RouteLowConfidence},
		{0.6, RouteHighConfidence},
		{0.6000001, RouteHighConfidence},
		{0.92, RouteHighConfidence},
		{1.0, RouteHighConfidence},
	}

	for _, tc := range cases {
		if got := g.Route(tc.confidence); got != tc.want {
			t.Errorf("Route(%v) = %s, want %s", tc.confidence, got, tc.want)
		}
	}
}

func TestGateCustomThreshold(t *testing.T) {
	g := NewGate(GateConfig{Threshold: 0.8})

	if r := g.Route(0.75); r != RouteLowConfidence {
		t.Fatalf("expected low_confidence, got %s", r)
	}
	if r := g.Route(0.8); r != RouteHighConfidence {
		t.Fatalf("expected high_confidence, got %s", r)
	}
	if g.Threshold() != 0.8 {
		t.Fatalf("expected threshold 0.8, got %v", g.Threshold())
	}
}

func TestGateZeroThresholdNeverAsks(t *testing.T) {
	g := NewGate(GateConfig{Threshold: 0})

	if r := g.Route(0); r != RouteHighConfidence {
		t.Fatalf("expected high_confidence, got %s", r)
	}
}

func TestEvaluateCarriesInputs(t *testing.T) {
	g := NewGate(DefaultGateConfig())

	d := g.Evaluate(0.55)
	if d.Route != RouteLowConfidence {
		t.Fatalf("expected low_confidence, got %s", d.Route)
	}
	if d.Confidence != 0.55 || d.Threshold != DefaultThreshold {
		t.Fatalf("unexpected decision inputs: %+v", d)
	}
	if !strings.Contains(d.Reason, "<") {
		t.Errorf("expected reason to describe the comparison, got %q", d.Reason)
	}

	d = g.Evaluate(0.92)
	if d.Route != RouteHighConfidence {
		t.Fatalf("expected high_confidence, got %s", d.Route)
	}
	if !strings.Contains(d.Reason, ">=") {
		t.Errorf("expected reason to describe the comparison, got %q", d.Reason)
	}
}

func TestGateConfigValidate(t *testing.T) {
	for _, ok := range []float64{0, 0.6, 1} {
		if err := (GateConfig{Threshold: ok}).Validate(); err != nil {
			t.Errorf("threshold %v: unexpected error %v", ok, err)
		}
	}
	for _, bad := range []float64{-0.01, 1.01, math.NaN(), math.Inf(1)} {
		if err := (GateConfig{Threshold: bad}).Validate(); err == nil {
			t.Errorf("threshold %v: expected an error", bad)
		}
	}
}
