package audit

import (
	"time"

	"github.com/danielpatrickdp/sentiment-gate/go-controller/internal/graph"
)

// TimestampLayout is the local-time format of the CSV Timestamp column.
const TimestampLayout = "2006-01-02 15:04:05"

// Header is the CSV header row, written once at creation.
var Header = []string{"Timestamp", "Input Text", "Prediction", "Confidence", "Used Fallback"}

// #region entry
// Entry is one row of the CSV audit log.
type Entry struct {
	Timestamp    time.Time
	InputText    string
	Prediction   string
	Confidence   float64 // rounded to two decimals when written
	UsedFallback bool
}

// EntryFromRecord stamps rec with at.
func EntryFromRecord(rec graph.Record, at time.Time) Entry {
	return Entry{
		Timestamp:    at,
		InputText:    rec.InputText,
		Prediction:   rec.Prediction,
		Confidence:   rec.Confidence,
		UsedFallback: rec.UsedFallback,
	}
}

// #endregion entry

// #region decision
// Decision is one row of the SQLite decision store. It keeps the model's own
// answer next to the final one so overridden predictions stay traceable.
type Decision struct {
	RunID           string
	InputText       string
	Prediction      string
	Confidence      float64
	UsedFallback    bool
	ModelPrediction string
	ModelConfidence float64
	Threshold       float64
	Route           string
	CreatedAt       time.Time
}

// DecisionFromResult flattens an engine result.
func DecisionFromResult(runID string, res graph.Result, at time.Time) Decision {
	inferred := res.Inferred()
	return Decision{
		RunID:           runID,
		InputText:       res.Record.InputText,
		Prediction:      res.Record.Prediction,
		Confidence:      res.Record.Confidence,
		UsedFallback:    res.Record.UsedFallback,
		ModelPrediction: inferred.Prediction,
		ModelConfidence: inferred.Confidence,
		Threshold:       res.Gate.Threshold,
		Route:           string(res.Gate.Route),
		CreatedAt:       at,
	}
}

// Stats aggregates the decision store.
type Stats struct {
	Total               int
	Fallbacks           int
	MeanModelConfidence float64
	PredictionBreakdown map[string]int
}

// #endregion decision

// #region entry-stats
// StatsFromEntries aggregates CSV rows. Operator answers carry the forced
// confidence, so only model answers feed the mean.
func StatsFromEntries(entries []Entry) Stats {
	s := Stats{Total: len(entries), PredictionBreakdown: make(map[string]int)}
	var sum float64
	var n int
	for _, e := range entries {
		s.PredictionBreakdown[e.Prediction]++
		if e.UsedFallback {
			s.Fallbacks++
			continue
		}
		sum += e.Confidence
		n++
	}
	if n > 0 {
		s.MeanModelConfidence = sum / float64(n)
	}
	return s
}

// #endregion entry-stats
