package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS decisions (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id           TEXT NOT NULL UNIQUE,
	input_text       TEXT NOT NULL,
	prediction       TEXT NOT NULL,
	confidence       REAL NOT NULL,
	used_fallback    INTEGER NOT NULL,
	model_prediction TEXT,
	model_confidence REAL,
	threshold        REAL NOT NULL,
	route            TEXT,
	created_at       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_decisions_created ON decisions(created_at);
`

// #endregion schema

// #region store-struct
// Store mirrors completed decisions into SQLite. Rows are only ever inserted.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if dbPath == ":memory:" {
		// Each pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion constructor

// #region append
// Append inserts d. An empty RunID gets a fresh UUID and a zero CreatedAt
// is set to now. The stored run id is returned.
func (s *Store) Append(ctx context.Context, d Decision) (string, error) {
	if d.RunID == "" {
		d.RunID = uuid.New().String()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO decisions (run_id, input_text, prediction, confidence, used_fallback,
		                        model_prediction, model_confidence, threshold, route, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.RunID,
		d.InputText,
		d.Prediction,
		d.Confidence,
		boolToInt(d.UsedFallback),
		nullIfEmpty(d.ModelPrediction),
		d.ModelConfidence,
		d.Threshold,
		nullIfEmpty(d.Route),
		d.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("insert decision: %w", err)
	}
	return d.RunID, nil
}

// #endregion append

// #region list
// ListRecent returns up to n decisions, oldest first. n <= 0 returns all.
func (s *Store) ListRecent(ctx context.Context, n int) ([]Decision, error) {
	query := `SELECT run_id, input_text, prediction, confidence, used_fallback,
	                 model_prediction, model_confidence, threshold, route, created_at
	          FROM decisions ORDER BY id DESC`
	args := []any{}
	if n > 0 {
		query += ` LIMIT ?`
		args = append(args, n)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var out []Decision
	for rows.Next() {
		var (
			d         Decision
			fallback  int
			modelPred sql.NullString
			modelConf sql.NullFloat64
			route     sql.NullString
			createdAt string
		)
		if err := rows.Scan(&d.RunID, &d.InputText, &d.Prediction, &d.Confidence, &fallback,
			&modelPred, &modelConf, &d.Threshold, &route, &createdAt); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		d.UsedFallback = fallback != 0
		d.ModelPrediction = modelPred.String
		d.ModelConfidence = modelConf.Float64
		d.Route = route.String
		d.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decisions: %w", err)
	}

	// Reverse DESC order for chronological output.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// #endregion list

// #region stats
// Stats aggregates every stored decision.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	st := Stats{PredictionBreakdown: map[string]int{}}

	var mean sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(used_fallback), 0), AVG(model_confidence) FROM decisions`,
	).Scan(&st.Total, &st.Fallbacks, &mean)
	if err != nil {
		return Stats{}, fmt.Errorf("aggregate decisions: %w", err)
	}
	st.MeanModelConfidence = mean.Float64

	rows, err := s.db.QueryContext(ctx, `SELECT prediction, COUNT(*) FROM decisions GROUP BY prediction`)
	if err != nil {
		return Stats{}, fmt.Errorf("breakdown: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var label string
		var count int
		if err := rows.Scan(&label, &count); err != nil {
			return Stats{}, fmt.Errorf("scan breakdown: %w", err)
		}
		st.PredictionBreakdown[label] = count
	}
	return st, rows.Err()
}

// #endregion stats

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// #endregion helpers
