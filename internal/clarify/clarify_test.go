package clarify

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/sentiment-gate/go-controller/internal/console"
	"github.com/danielpatrickdp/sentiment-gate/go-controller/internal/graph"
)

// #region helpers
type scriptedAsker struct {
	answers []string
	prompts []string
	err     error
}

func (s *scriptedAsker) Ask(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if len(s.answers) == 0 {
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	}
	a := s.answers[0]
	s.answers = s.answers[1:]
	return a, nil
}

var lowRecord = graph.Record{InputText: "meh", Prediction: "POSITIVE", Confidence: 0.55}

// #endregion helpers

func TestClarifyAcceptsLowercase(t *testing.T) {
	a := &scriptedAsker{answers: []string{"positive"}}
	c := NewCollector(a, DefaultConfig(), nil)

	label, err := c.Clarify(context.Background(), lowRecord)
	require.NoError(t, err)
	assert.Equal(t, "POSITIVE", label)
	require.Len(t, a.prompts, 1)
	assert.Contains(t, a.prompts[0], "Did you mean this to be a POSITIVE or NEGATIVE statement?")
}

func TestClarifyRepromptsOnInvalid(t *testing.T) {
	a := &scriptedAsker{answers: []string{"maybe", "NEGATIVE"}}
	c := NewCollector(a, DefaultConfig(), nil)

	label, err := c.Clarify(context.Background(), lowRecord)
	require.NoError(t, err)
	assert.Equal(t, "NEGATIVE", label)
	require.Len(t, a.prompts, 2)
	assert.Equal(t, "Please type either 'POSITIVE' or 'NEGATIVE':\n> ", a.prompts[1])
}

func TestClarifyManyInvalidThenValid(t *testing.T) {
	answers := []string{"", "pos", "NEG", "yes", "  ", "POSITIVE!", " negative "}
	a := &scriptedAsker{answers: answers}
	c := NewCollector(a, DefaultConfig(), nil)

	label, err := c.Clarify(context.Background(), lowRecord)
	require.NoError(t, err)
	assert.Equal(t, "NEGATIVE", label)
	assert.Len(t, a.prompts, len(answers))
}

func TestClarifyAttemptLimit(t *testing.T) {
	a := &scriptedAsker{answers: []string{"a", "b", "c", "POSITIVE"}}
	c := NewCollector(a, Config{MaxAttempts: 3}, nil)

	_, err := c.Clarify(context.Background(), lowRecord)
	require.ErrorIs(t, err, ErrAttemptsExhausted)
	assert.Len(t, a.prompts, 3)
}

func TestClarifyInputClosed(t *testing.T) {
	a := &scriptedAsker{answers: []string{"nope"}}
	c := NewCollector(a, DefaultConfig(), nil)

	_, err := c.Clarify(context.Background(), lowRecord)
	require.ErrorIs(t, err, ErrInputClosed)
}

func TestClarifyReadError(t *testing.T) {
	broken := errors.New("tty gone")
	a := &scriptedAsker{err: broken}
	c := NewCollector(a, DefaultConfig(), nil)

	_, err := c.Clarify(context.Background(), lowRecord)
	require.ErrorIs(t, err, broken)
}

func TestClarifyCancelledContext(t *testing.T) {
	a := &scriptedAsker{answers: []string{"POSITIVE"}}
	c := NewCollector(a, DefaultConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Clarify(ctx, lowRecord)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, a.prompts)
}

func TestClarifyCustomChoices(t *testing.T) {
	a := &scriptedAsker{answers: []string{"positive", "neutral"}}
	c := NewCollector(a, Config{Choices: []string{"negative", "neutral", "positive", "NEUTRAL"}}, nil)

	assert.Equal(t, []string{"NEGATIVE", "NEUTRAL", "POSITIVE"}, c.Choices())
	label, err := c.Clarify(context.Background(), lowRecord)
	require.NoError(t, err)
	assert.Equal(t, "POSITIVE", label)
	assert.Contains(t, a.prompts[0], "NEGATIVE, NEUTRAL or POSITIVE")
}

func TestClarifyThroughConsole(t *testing.T) {
	var out bytes.Buffer
	con := console.New(strings.NewReader("maybe\nnegative\n"), &out)
	c := NewCollector(con, DefaultConfig(), nil)

	label, err := c.Clarify(context.Background(), lowRecord)
	require.NoError(t, err)
	assert.Equal(t, "NEGATIVE", label)
	assert.Contains(t, out.String(), "Confidence is low")
	assert.Contains(t, out.String(), "Please type either")
}

func TestClarifyInterruptedWhileWaiting(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	c := NewCollector(console.New(pr, io.Discard), DefaultConfig(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.Clarify(ctx, lowRecord)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestJoinChoices(t *testing.T) {
	assert.Equal(t, "", joinChoices(nil, "or"))
	assert.Equal(t, "A", joinChoices([]string{"A"}, "or"))
	assert.Equal(t, "A or B", joinChoices([]string{"A", "B"}, "or"))
	assert.Equal(t, "A, B or C", joinChoices([]string{"A", "B", "C"}, "or"))
}

func TestChoicesFor(t *testing.T) {
	assert.Equal(t, []string{"POSITIVE", "NEGATIVE"}, ChoicesFor([]string{"NEGATIVE", "POSITIVE"}))
	assert.Equal(t, []string{"POSITIVE", "NEGATIVE", "NEUTRAL"}, ChoicesFor([]string{"NEGATIVE", "NEUTRAL", "POSITIVE"}))
	assert.Equal(t, []string{"ANGRY", "HAPPY"}, ChoicesFor([]string{"angry", "HAPPY", "happy"}))
	assert.Empty(t, ChoicesFor(nil))
}
