package graph

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/sentiment-gate/go-controller/internal/gate"
)

// Node names.
const (
	NodeInference = "Inference"
	NodeFallback  = "Fallback"
)

// #region engine
// Engine runs the confidence-gated decision graph:
//
//	Inference --high_confidence--> End
//	Inference --low_confidence---> Fallback --> End
//
// All collaborators are injected; the engine keeps no per-run state.
type Engine struct {
	classifier Classifier
	normalizer Normalizer
	gate       *gate.Gate
	clarifier  Clarifier
	logger     *zap.Logger
	compiled   *Compiled
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine wires the two nodes and compiles the graph.
func NewEngine(classifier Classifier, normalizer Normalizer, g *gate.Gate, clarifier Clarifier, opts ...Option) (*Engine, error) {
	if classifier == nil || normalizer == nil || g == nil || clarifier == nil {
		return nil, fmt.Errorf("new engine: classifier, normalizer, gate and clarifier are required")
	}

	e := &Engine{
		classifier: classifier,
		normalizer: normalizer,
		gate:       g,
		clarifier:  clarifier,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	gr := New()
	if err := gr.AddNode(NodeInference, e.inference); err != nil {
		return nil, err
	}
	if err := gr.AddNode(NodeFallback, e.fallback); err != nil {
		return nil, err
	}
	gr.SetEntry(NodeInference)
	gr.AddConditionalEdges(NodeInference, e.route, map[string]string{
		string(gate.RouteHighConfidence): End,
		string(gate.RouteLowConfidence):  NodeFallback,
	})
	gr.AddEdge(NodeFallback, End)

	compiled, err := gr.Compile()
	if err != nil {
		return nil, fmt.Errorf("compile graph: %w", err)
	}
	e.compiled = compiled
	return e, nil
}

// Threshold returns the gate threshold in force.
func (e *Engine) Threshold() float64 {
	return e.gate.Threshold()
}

// #endregion engine

// #region run
// Run classifies text. A *CapabilityError means the classifier failed and
// no clarification was attempted; a *ClarificationError means the operator
// never gave a valid answer.
func (e *Engine) Run(ctx context.Context, text string) (Result, error) {
	final, steps, err := e.compiled.Invoke(ctx, NewRecord(text))
	if err != nil {
		return Result{}, err
	}
	if !final.Complete() {
		return Result{}, fmt.Errorf("run finished without a prediction")
	}

	res := Result{Record: final, Steps: steps}
	res.Gate = e.gate.Evaluate(res.Inferred().Confidence)

	e.logger.Info("classification complete",
		zap.String("label", final.Prediction),
		zap.Float64("confidence", final.Confidence),
		zap.Bool("used_fallback", final.UsedFallback),
		zap.String("route", string(res.Gate.Route)),
	)
	return res, nil
}

// #endregion run

// #region nodes
func (e *Engine) inference(ctx context.Context, rec Record) (Record, error) {
	scores, err := e.classifier.Classify(ctx, rec.InputText)
	if err != nil {
		return rec, &CapabilityError{Err: err}
	}

	best, err := SelectBest(scores)
	if err != nil {
		return rec, &CapabilityError{Err: err}
	}

	label := e.normalizer.Normalize(best.Label)
	e.logger.Debug("inference",
		zap.Int("text_len", len(rec.InputText)),
		zap.String("raw_label", best.Label),
		zap.String("label", label),
		zap.Float64("confidence", best.Score),
	)
	return rec.WithInference(label, best.Score), nil
}

func (e *Engine) route(rec Record) string {
	d := e.gate.Evaluate(rec.Confidence)
	e.logger.Debug("confidence gate",
		zap.String("route", string(d.Route)),
		zap.Float64("confidence", d.Confidence),
		zap.Float64("threshold", d.Threshold),
	)
	return string(d.Route)
}

func (e *Engine) fallback(ctx context.Context, rec Record) (Record, error) {
	e.logger.Info("low confidence, asking operator",
		zap.String("model_label", rec.Prediction),
		zap.Float64("confidence", rec.Confidence),
	)
	label, err := e.clarifier.Clarify(ctx, rec)
	if err != nil {
		return rec, &ClarificationError{Err: err}
	}
	return rec.WithClarification(label), nil
}

// #endregion nodes

// #region select
// SelectBest returns the highest score. Among equal maxima the first one in
// classifier order wins.
func SelectBest(scores []Score) (Score, error) {
	if len(scores) == 0 {
		return Score{}, ErrNoScores
	}

	best := -1
	for i, s := range scores {
		if math.IsNaN(s.Score) || s.Score < 0 || s.Score > 1 {
			return Score{}, fmt.Errorf("%w: %s=%v", ErrInvalidScore, s.Label, s.Score)
		}
		if best < 0 || s.Score > scores[best].Score {
			best = i
		}
	}
	return scores[best], nil
}

// #endregion select
