// Package console is the line-oriented terminal shared by the read loop and
// the clarification prompt. Both must read through the same buffered reader
// or one would swallow the other's input.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// #region console
// Console reads lines from in and writes prompts to out. It is not safe for
// concurrent use.
type Console struct {
	in  *bufio.Reader
	out io.Writer

	// pending is the in-flight read abandoned by a cancelled Ask; the next
	// Ask receives its line.
	pending chan readResult
}

type readResult struct {
	line string
	err  error
}

// New wraps in and out.
func New(in io.Reader, out io.Writer) *Console {
	return &Console{in: bufio.NewReader(in), out: out}
}

// Ask writes prompt and returns the next line with surrounding whitespace
// trimmed. It returns io.EOF once input is exhausted and nothing was read,
// and ctx.Err() as soon as ctx is done, even while the read is blocked.
func (c *Console) Ask(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if prompt != "" {
		if _, err := io.WriteString(c.out, prompt); err != nil {
			return "", fmt.Errorf("write prompt: %w", err)
		}
	}

	if c.pending == nil {
		ch := make(chan readResult, 1)
		c.pending = ch
		go func() {
			line, err := c.readLine()
			ch <- readResult{line: line, err: err}
		}()
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-c.pending:
		c.pending = nil
		return r.line, r.err
	}
}

func (c *Console) readLine() (string, error) {
	line, err := c.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Printf writes formatted output.
func (c *Console) Printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

// Println writes a line.
func (c *Console) Println(args ...any) {
	fmt.Fprintln(c.out, args...)
}

// #endregion console
