package graph

import (
	"context"

	"github.com/danielpatrickdp/sentiment-gate/go-controller/internal/gate"
)

// #region collaborators
// Score is one label's class-membership score as returned by a classifier.
type Score struct {
	Label string
	Score float64
}

// Classifier produces a score for every known label. Order is preserved
// and matters for tie-breaking.
type Classifier interface {
	Classify(ctx context.Context, text string) ([]Score, error)
}

// Normalizer maps raw labels to readable ones. It must be total.
type Normalizer interface {
	Normalize(raw string) string
}

// Clarifier asks an operator for the label of a low-confidence record.
type Clarifier interface {
	Clarify(ctx context.Context, rec Record) (string, error)
}

// #endregion collaborators

// #region record
// Record is the state threaded through the graph. Nodes derive new
// records with the With* methods and never modify one in place.
type Record struct {
	InputText    string
	Prediction   string
	Confidence   float64
	UsedFallback bool
}

// NewRecord starts a run for text.
func NewRecord(text string) Record {
	return Record{InputText: text}
}

// WithInference returns a copy carrying the model's answer.
func (r Record) WithInference(label string, confidence float64) Record {
	r.Prediction = label
	r.Confidence = confidence
	r.UsedFallback = false
	return r
}

// WithClarification returns a copy carrying the operator's answer.
// Manual answers are treated as certain.
func (r Record) WithClarification(label string) Record {
	r.Prediction = label
	r.Confidence = 1.0
	r.UsedFallback = true
	return r
}

// Complete reports whether a prediction has been set.
func (r Record) Complete() bool {
	return r.Prediction != ""
}

// #endregion record

// #region result
// Step is the record as it left one node. Route is set when the node's
// outgoing edge was conditional.
type Step struct {
	Node   string
	Record Record
	Route  string
}

// Result is the outcome of one engine run.
type Result struct {
	Record Record
	Steps  []Step
	Gate   gate.GateDecision
}

// Inferred returns the record produced by the inference node, before any
// clarification overwrote it.
func (r Result) Inferred() Record {
	for _, s := range r.Steps {
		if s.Node == NodeInference {
			return s.Record
		}
	}
	return r.Record
}

// #endregion result
