package cli

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/sentiment-gate/go-controller/internal/audit"
	"github.com/danielpatrickdp/sentiment-gate/go-controller/internal/clarify"
	"github.com/danielpatrickdp/sentiment-gate/go-controller/internal/console"
	"github.com/danielpatrickdp/sentiment-gate/go-controller/internal/graph"
)

// #region interfaces
// Runner runs one classification through the decision graph.
type Runner interface {
	Run(ctx context.Context, text string) (graph.Result, error)
}

// RecordLog is the CSV audit destination.
type RecordLog interface {
	Initialize() error
	Append(rec graph.Record) error
}

// DecisionStore is the optional SQLite mirror.
type DecisionStore interface {
	Append(ctx context.Context, d audit.Decision) (string, error)
}

// #endregion interfaces

// #region session
// Session drives the read loop. Audit writes are best effort: a failure is
// shown as a warning and never hides the classification result.
type Session struct {
	engine  Runner
	console *console.Console
	log     RecordLog
	store   DecisionStore
	logger  *zap.Logger
	now     func() time.Time
}

// NewSession wires a session. store may be nil.
func NewSession(engine Runner, con *console.Console, log RecordLog, store DecisionStore, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		engine:  engine,
		console: con,
		log:     log,
		store:   store,
		logger:  logger,
		now:     time.Now,
	}
}

// Init prepares the CSV log. A failure is reported, not returned.
func (s *Session) Init() {
	if err := s.log.Initialize(); err != nil {
		s.warn("audit log initialization failed", err)
	}
}

// #endregion session

// #region loop
// Loop reads lines until exit, quit or end of input. Capability failures
// are reported and the loop continues.
func (s *Session) Loop(ctx context.Context) error {
	s.console.Println()
	s.console.Println("Welcome to the sentiment classifier CLI!")
	s.console.Println("Type a sentence to classify (or type 'exit' to quit):")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := s.console.Ask(ctx, "> ")
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.console.Println("Bye!")
				return nil
			}
			return err
		}
		if line == "" {
			continue
		}
		if IsExit(line) {
			s.console.Println("Bye!")
			return nil
		}

		if _, err := s.Classify(ctx, line); err != nil {
			switch {
			case graph.IsCapabilityError(err):
				continue
			case errors.Is(err, clarify.ErrInputClosed):
				s.console.Println("Bye!")
				return nil
			case errors.Is(err, clarify.ErrAttemptsExhausted):
				continue
			default:
				return err
			}
		}
	}
}

// IsExit reports whether line is a reserved exit token.
func IsExit(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "exit", "quit":
		return true
	}
	return false
}

// #endregion loop

// #region classify
// Classify runs text through the engine, displays the result and records
// it. A classifier failure is printed distinctly from low confidence and
// nothing is recorded for it.
func (s *Session) Classify(ctx context.Context, text string) (graph.Result, error) {
	runID := uuid.New().String()
	logger := s.logger.With(zap.String("run_id", runID))

	s.console.Println()
	s.console.Println("Classifying input text...")

	res, err := s.engine.Run(ctx, text)
	if err != nil {
		var clarErr *graph.ClarificationError
		switch {
		case graph.IsCapabilityError(err):
			logger.Error("classification failed", zap.Error(err))
			s.console.Printf("classification failed: %v\n", err)
		case errors.As(err, &clarErr):
			logger.Warn("clarification abandoned", zap.Error(err))
			s.console.Printf("\nno answer recorded: %v\n", err)
		default:
			logger.Error("run failed", zap.Error(err))
		}
		return graph.Result{}, err
	}

	s.display(res.Record)
	s.record(ctx, runID, res, logger)
	return res, nil
}

func (s *Session) display(rec graph.Record) {
	s.console.Println()
	s.console.Println("=== Classification Result ===")
	s.console.Printf("Label:         %s\n", rec.Prediction)
	s.console.Printf("Confidence:    %.2f\n", rec.Confidence)
	s.console.Printf("Used Fallback: %s\n", audit.FormatBool(rec.UsedFallback))
	s.console.Println("============================")
	s.console.Println()
}

func (s *Session) record(ctx context.Context, runID string, res graph.Result, logger *zap.Logger) {
	if err := s.log.Append(res.Record); err != nil {
		s.warn("audit log write failed", err)
	}
	if s.store == nil {
		return
	}
	if _, err := s.store.Append(ctx, audit.DecisionFromResult(runID, res, s.now())); err != nil {
		s.warn("decision store write failed", err)
		return
	}
	logger.Debug("decision stored")
}

func (s *Session) warn(msg string, err error) {
	s.logger.Warn(msg, zap.Error(err))
	s.console.Printf("warning: %s: %v\n", msg, err)
}

// #endregion classify
