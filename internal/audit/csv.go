package audit

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/danielpatrickdp/sentiment-gate/go-controller/internal/graph"
)

// #region logger-struct
// Logger appends completed decisions to a CSV file. Appends are serialized
// and each row goes out in a single write on an O_APPEND descriptor, so rows
// never interleave and earlier rows are never touched.
type Logger struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// LoggerOption configures a Logger.
type LoggerOption func(*Logger)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) LoggerOption {
	return func(l *Logger) { l.now = now }
}

// NewLogger returns a logger for path. Nothing is created until Initialize
// or the first Append.
func NewLogger(path string, opts ...LoggerOption) *Logger {
	l := &Logger{path: path, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Path returns the destination file.
func (l *Logger) Path() string {
	return l.path
}

// #endregion logger-struct

// #region initialize
// Initialize creates the file with the header row. An existing file is left
// untouched, so calling it repeatedly yields exactly one header.
func (l *Logger) Initialize() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.initializeLocked()
}

func (l *Logger) initializeLocked() error {
	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil
		}
		return fmt.Errorf("create audit log: %w", err)
	}

	row, err := encodeRow(Header)
	if err != nil {
		f.Close()
		return err
	}
	if _, err := f.Write(row); err != nil {
		f.Close()
		return fmt.Errorf("write audit header: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close audit log: %w", err)
	}
	return nil
}

// #endregion initialize

// #region append
// Append stamps rec with the current local time and writes one row.
func (l *Logger) Append(rec graph.Record) error {
	return l.AppendEntry(EntryFromRecord(rec, l.now()))
}

// AppendEntry writes e as one row, creating the file with its header first
// if it does not exist yet.
func (l *Logger) AppendEntry(e Entry) error {
	row, err := encodeRow(e.fields())
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.initializeLocked(); err != nil {
		return err
	}

	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	if _, err := f.Write(row); err != nil {
		f.Close()
		return fmt.Errorf("append audit row: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close audit log: %w", err)
	}
	return nil
}

// #endregion append

// #region read
// ReadEntries parses the whole log back into entries, in file order.
// A missing file reads as empty.
func (l *Logger) ReadEntries() ([]Entry, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()
	return ReadEntries(f)
}

// ReadEntries parses CSV audit rows from r. The first row must be the header.
func ReadEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)

	head, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read audit header: %w", err)
	}
	for i := range Header {
		if head[i] != Header[i] {
			return nil, fmt.Errorf("unexpected audit header %q", head)
		}
	}

	var entries []Entry
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read audit row %d: %w", line, err)
		}
		e, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("audit row %d: %w", line, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// #endregion read

// #region helpers
// FormatBool spells a flag the way the fallback column does: True/False,
// the spelling existing logs already use.
func FormatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// fields renders e in column order.
func (e Entry) fields() []string {
	return []string{
		e.Timestamp.Format(TimestampLayout),
		e.InputText,
		e.Prediction,
		strconv.FormatFloat(e.Confidence, 'f', 2, 64),
		FormatBool(e.UsedFallback),
	}
}

func parseRow(row []string) (Entry, error) {
	ts, err := time.ParseInLocation(TimestampLayout, row[0], time.Local)
	if err != nil {
		return Entry{}, fmt.Errorf("timestamp: %w", err)
	}
	conf, err := strconv.ParseFloat(row[3], 64)
	if err != nil {
		return Entry{}, fmt.Errorf("confidence: %w", err)
	}
	fallback, err := strconv.ParseBool(row[4])
	if err != nil {
		return Entry{}, fmt.Errorf("used fallback: %w", err)
	}
	return Entry{
		Timestamp:    ts,
		InputText:    row[1],
		Prediction:   row[2],
		Confidence:   conf,
		UsedFallback: fallback,
	}, nil
}

func encodeRow(fields []string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(fields); err != nil {
		return nil, fmt.Errorf("encode audit row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encode audit row: %w", err)
	}
	return buf.Bytes(), nil
}

// #endregion helpers
