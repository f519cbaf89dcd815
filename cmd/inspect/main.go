package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/sentiment-gate/go-controller/internal/audit"
)

var inspectFlags struct {
	dbPath  string
	csvPath string
	last    int
	jsonOut bool
}

var rootCmd = &cobra.Command{
	Use:          "inspect",
	Short:        "Show recorded classifier decisions",
	Long:         "inspect lists recent decisions from the SQLite store (--db) or the CSV\naudit log (--csv) and prints aggregate stats.",
	SilenceUsage: true,
	RunE:         runInspect,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&inspectFlags.dbPath, "db", "", "path to the SQLite decision store")
	f.StringVar(&inspectFlags.csvPath, "csv", "", "path to the CSV audit log")
	f.IntVar(&inspectFlags.last, "last", 20, "show N most recent decisions (0 = all)")
	f.BoolVar(&inspectFlags.jsonOut, "json", false, "output as JSON instead of a table")

	rootCmd.MarkFlagsMutuallyExclusive("db", "csv")
	rootCmd.MarkFlagsOneRequired("db", "csv")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// #region rows
type row struct {
	ID              string   `json:"id"`
	Time            string   `json:"time"`
	InputText       string   `json:"input_text"`
	Prediction      string   `json:"prediction"`
	Confidence      float64  `json:"confidence"`
	UsedFallback    bool     `json:"used_fallback"`
	ModelPrediction string   `json:"model_prediction,omitempty"`
	ModelConfidence *float64 `json:"model_confidence,omitempty"`
	Route           string   `json:"route,omitempty"`
}

type output struct {
	Rows  []row       `json:"rows"`
	Stats audit.Stats `json:"stats"`
}

func fromDecisions(ds []audit.Decision) []row {
	rows := make([]row, len(ds))
	for i, d := range ds {
		mc := d.ModelConfidence
		rows[i] = row{
			ID:              d.RunID,
			Time:            d.CreatedAt.Format(audit.TimestampLayout),
			InputText:       d.InputText,
			Prediction:      d.Prediction,
			Confidence:      d.Confidence,
			UsedFallback:    d.UsedFallback,
			ModelPrediction: d.ModelPrediction,
			ModelConfidence: &mc,
			Route:           d.Route,
		}
	}
	return rows
}

func fromEntries(es []audit.Entry) []row {
	rows := make([]row, len(es))
	for i, e := range es {
		rows[i] = row{
			ID:           fmt.Sprintf("row-%d", i+1),
			Time:         e.Timestamp.Format(audit.TimestampLayout),
			InputText:    e.InputText,
			Prediction:   e.Prediction,
			Confidence:   e.Confidence,
			UsedFallback: e.UsedFallback,
		}
	}
	return rows
}

// #endregion rows

// #region load
func runInspect(cmd *cobra.Command, _ []string) error {
	if inspectFlags.last < 0 {
		return errors.New("--last must not be negative")
	}

	var (
		out output
		err error
	)
	if inspectFlags.dbPath != "" {
		out, err = loadStore(cmd.Context(), inspectFlags.dbPath, inspectFlags.last)
	} else {
		out, err = loadCSV(inspectFlags.csvPath, inspectFlags.last)
	}
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if inspectFlags.jsonOut {
		return printJSON(w, out)
	}
	if len(out.Rows) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "no decisions found")
		return nil
	}
	printTable(w, out)
	return nil
}

func loadStore(ctx context.Context, path string, last int) (output, error) {
	if _, err := os.Stat(path); err != nil {
		return output{}, fmt.Errorf("open db: %w", err)
	}
	store, err := audit.NewStore(path)
	if err != nil {
		return output{}, err
	}
	defer store.Close()

	ds, err := store.ListRecent(ctx, last)
	if err != nil {
		return output{}, err
	}
	st, err := store.Stats(ctx)
	if err != nil {
		return output{}, err
	}
	return output{Rows: fromDecisions(ds), Stats: st}, nil
}

func loadCSV(path string, last int) (output, error) {
	entries, err := audit.NewLogger(path).ReadEntries()
	if err != nil {
		return output{}, err
	}
	st := audit.StatsFromEntries(entries)
	if last > 0 && len(entries) > last {
		entries = entries[len(entries)-last:]
	}
	return output{Rows: fromEntries(entries), Stats: st}, nil
}

// #endregion load

// #region render
func printTable(w io.Writer, out output) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Time", "Input", "Label", "Conf", "Fallback", "Model", "Model Conf"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, WidthMax: 40},
		{Number: 5, Align: text.AlignRight},
		{Number: 8, Align: text.AlignRight},
	})

	for _, r := range out.Rows {
		model, modelConf := "-", "-"
		if r.ModelConfidence != nil {
			model = r.ModelPrediction
			modelConf = fmt.Sprintf("%.4f", *r.ModelConfidence)
		}
		t.AppendRow(table.Row{
			shortID(r.ID), r.Time, r.InputText, r.Prediction,
			fmt.Sprintf("%.4f", r.Confidence), r.UsedFallback, model, modelConf,
		})
	}
	t.Render()

	st := out.Stats
	fmt.Fprintf(w, "\nTotal:      %d\n", st.Total)
	fmt.Fprintf(w, "Fallbacks:  %d\n", st.Fallbacks)
	fmt.Fprintf(w, "Mean model confidence: %.4f\n", st.MeanModelConfidence)

	labels := make([]string, 0, len(st.PredictionBreakdown))
	for l := range st.PredictionBreakdown {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	for _, l := range labels {
		fmt.Fprintf(w, "  %-10s %d\n", l, st.PredictionBreakdown[l])
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion render
