package clarify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/sentiment-gate/go-controller/internal/graph"
)

var (
	// ErrAttemptsExhausted is returned when MaxAttempts invalid answers were given.
	ErrAttemptsExhausted = errors.New("no valid answer within the attempt limit")
	// ErrInputClosed is returned when the operator's input ends mid-prompt.
	ErrInputClosed = errors.New("operator input closed")
)

// DefaultChoices is the binary sentiment vocabulary.
var DefaultChoices = []string{"POSITIVE", "NEGATIVE"}

// #region types
// Asker reads one answer after showing a prompt.
type Asker interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

// Config controls the collector. MaxAttempts of 0 means ask until a valid
// answer arrives.
type Config struct {
	Choices     []string
	MaxAttempts int
}

// DefaultConfig returns the unbounded binary prompt.
func DefaultConfig() Config {
	return Config{Choices: append([]string(nil), DefaultChoices...)}
}

// Collector asks the operator for a label and accepts only the configured
// choices, compared case-insensitively.
type Collector struct {
	asker       Asker
	choices     []string
	allowed     map[string]bool
	maxAttempts int
	logger      *zap.Logger
}

// #endregion types

// #region constructor
// NewCollector builds a collector. Choices are uppercased; an empty list
// falls back to DefaultChoices.
func NewCollector(asker Asker, cfg Config, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	src := cfg.Choices
	if len(src) == 0 {
		src = DefaultChoices
	}

	choices := make([]string, 0, len(src))
	allowed := make(map[string]bool, len(src))
	for _, c := range src {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c == "" || allowed[c] {
			continue
		}
		allowed[c] = true
		choices = append(choices, c)
	}

	return &Collector{
		asker:       asker,
		choices:     choices,
		allowed:     allowed,
		maxAttempts: cfg.MaxAttempts,
		logger:      logger,
	}
}

// #endregion constructor

// #region clarify
// Clarify blocks until the operator types one of the choices and returns it
// uppercased. It never returns a label outside the choices.
func (c *Collector) Clarify(ctx context.Context, rec graph.Record) (string, error) {
	prompt := fmt.Sprintf("\nConfidence is low (%s at %.2f). Let's clarify before deciding.\nDid you mean this to be a %s statement?\n> ",
		rec.Prediction, rec.Confidence, joinChoices(c.choices, "or"))
	retry := fmt.Sprintf("Please type either %s:\n> ", joinChoices(quoted(c.choices), "or"))

	for attempt := 1; c.maxAttempts <= 0 || attempt <= c.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		line, err := c.asker.Ask(ctx, prompt)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", ErrInputClosed
			}
			return "", fmt.Errorf("read answer: %w", err)
		}

		answer := strings.ToUpper(strings.TrimSpace(line))
		if c.allowed[answer] {
			c.logger.Debug("clarification accepted", zap.String("label", answer), zap.Int("attempt", attempt))
			return answer, nil
		}

		c.logger.Debug("clarification rejected", zap.String("input", line), zap.Int("attempt", attempt))
		prompt = retry
	}

	return "", fmt.Errorf("%w (%d)", ErrAttemptsExhausted, c.maxAttempts)
}

// ChoicesFor orders a label vocabulary for the prompt: DefaultChoices that
// appear in it come first, in their usual order, then the rest as given.
func ChoicesFor(vocabulary []string) []string {
	present := make(map[string]bool, len(vocabulary))
	for _, v := range vocabulary {
		present[strings.ToUpper(v)] = true
	}

	out := make([]string, 0, len(vocabulary))
	used := make(map[string]bool, len(vocabulary))
	for _, d := range DefaultChoices {
		if present[d] {
			out = append(out, d)
			used[d] = true
		}
	}
	for _, v := range vocabulary {
		v = strings.ToUpper(v)
		if !used[v] {
			out = append(out, v)
			used[v] = true
		}
	}
	return out
}

// Choices returns the accepted labels.
func (c *Collector) Choices() []string {
	return append([]string(nil), c.choices...)
}

// #endregion clarify

// #region helpers
// joinChoices renders "A or B", "A, B or C".
func joinChoices(items []string, conj string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}
	return strings.Join(items[:len(items)-1], ", ") + " " + conj + " " + items[len(items)-1]
}

func quoted(items []string) []string {
	out := make([]string, len(items))
	for i, s := range items {
		out[i] = "'" + s + "'"
	}
	return out
}

// #endregion helpers
