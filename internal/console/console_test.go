package console

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAskTrimsAndWritesPrompt(t *testing.T) {
	var out bytes.Buffer
	c := New(strings.NewReader("  hello world \r\nsecond\n"), &out)

	line, err := c.Ask(context.Background(), "> ")
	require.NoError(t, err)
	assert.Equal(t, "hello world", line)

	line, err = c.Ask(context.Background(), "> ")
	require.NoError(t, err)
	assert.Equal(t, "second", line)
	assert.Equal(t, "> > ", out.String())
}

func TestAskLastLineWithoutNewline(t *testing.T) {
	c := New(strings.NewReader("tail"), io.Discard)

	line, err := c.Ask(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "tail", line)

	_, err = c.Ask(context.Background(), "")
	assert.ErrorIs(t, err, io.EOF)
}

func TestPrintHelpers(t *testing.T) {
	var out bytes.Buffer
	c := New(strings.NewReader(""), &out)

	c.Printf("%s=%d\n", "a", 1)
	c.Println("done")
	assert.Equal(t, "a=1\ndone\n", out.String())
}

func TestAskReturnsWhenContextCancelled(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	c := New(pr, io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Ask(ctx, "> ")
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Ask still blocked after cancellation")
	}
}

func TestAskKeepsLineReadAfterCancellation(t *testing.T) {
	pr, pw := io.Pipe()
	c := New(pr, io.Discard)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Ask(ctx, "")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	go func() {
		_, _ = io.WriteString(pw, "late answer\n")
		pw.Close()
	}()

	line, err := c.Ask(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "late answer", line)

	_, err = c.Ask(context.Background(), "")
	assert.ErrorIs(t, err, io.EOF)
}

func TestAskCancelledBeforePrompt(t *testing.T) {
	var out bytes.Buffer
	c := New(strings.NewReader("unused\n"), &out)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Ask(ctx, "> ")
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out.String())
}
