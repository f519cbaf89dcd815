package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/sentiment-gate/go-controller/internal/audit"
	"github.com/danielpatrickdp/sentiment-gate/go-controller/internal/gate"
	"github.com/danielpatrickdp/sentiment-gate/go-controller/internal/replay"
)

var replayFlags struct {
	dbPath    string
	csvPath   string
	fixture   string
	threshold float64
	changed   bool
	jsonOut   bool
}

var rootCmd = &cobra.Command{
	Use:   "replay",
	Short: "Re-run the confidence gate over recorded decisions",
	Long: "replay applies a different confidence threshold to recorded decisions and\n" +
		"reports which would have been answered by the model and which would\n" +
		"have gone to the operator. It never calls the classifier.",
	SilenceUsage: true,
	RunE:         runReplay,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&replayFlags.dbPath, "db", "", "path to the SQLite decision store")
	f.StringVar(&replayFlags.csvPath, "csv", "", "path to the CSV audit log (confidences are rounded to 2 decimals there)")
	f.StringVar(&replayFlags.fixture, "fixture", "", "path to a fixture JSON; fails on any mismatch")
	f.Float64Var(&replayFlags.threshold, "threshold", gate.DefaultThreshold, "confidence threshold to replay under")
	f.BoolVar(&replayFlags.changed, "changed", false, "only show entries whose route changes")
	f.BoolVar(&replayFlags.jsonOut, "json", false, "output as JSON instead of a table")

	rootCmd.MarkFlagsMutuallyExclusive("db", "csv", "fixture")
	rootCmd.MarkFlagsOneRequired("db", "csv", "fixture")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// #region replay
func runReplay(cmd *cobra.Command, _ []string) error {
	if err := (gate.GateConfig{Threshold: replayFlags.threshold}).Validate(); err != nil {
		return fmt.Errorf("--%w", err)
	}

	if replayFlags.fixture != "" {
		return runFixture(cmd)
	}

	interactions, err := load(cmd)
	if err != nil {
		return err
	}

	cfg := replay.ReplayConfig{GateConfig: gate.GateConfig{Threshold: replayFlags.threshold}}
	results := replay.Replay(interactions, cfg)
	summary := replay.Summarize(results, cfg)

	if replayFlags.changed {
		kept := results[:0]
		for _, r := range results {
			if r.Changed {
				kept = append(kept, r)
			}
		}
		results = kept
	}

	w := cmd.OutOrStdout()
	if replayFlags.jsonOut {
		return printJSON(w, struct {
			Results []replay.ReplayResult `json:"results"`
			Summary replay.ReplaySummary  `json:"summary"`
		}{results, summary})
	}
	printTable(w, interactions, results, summary)
	return nil
}

func load(cmd *cobra.Command) ([]replay.Interaction, error) {
	if replayFlags.csvPath != "" {
		entries, err := audit.NewLogger(replayFlags.csvPath).ReadEntries()
		if err != nil {
			return nil, err
		}
		return replay.FromEntries(entries), nil
	}

	if _, err := os.Stat(replayFlags.dbPath); err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	store, err := audit.NewStore(replayFlags.dbPath)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	decisions, err := store.ListRecent(cmd.Context(), 0)
	if err != nil {
		return nil, err
	}
	return replay.FromDecisions(decisions), nil
}

func runFixture(cmd *cobra.Command) error {
	f, err := replay.LoadFixture(replayFlags.fixture)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("threshold") {
		f.Threshold = replayFlags.threshold
	}

	results, mismatches := f.Check()
	cfg := f.ReplayConfig()

	w := cmd.OutOrStdout()
	printTable(w, f.ToInteractions(), results, replay.Summarize(results, cfg))

	if len(mismatches) == 0 {
		fmt.Fprintf(w, "\nPASS: %d/%d interactions match\n", len(results), len(f.ExpectedResults))
		return nil
	}
	for _, m := range mismatches {
		fmt.Fprintf(w, "MISMATCH %s: expected=%q got=%q\n", m.ID, m.Expected, m.Got)
	}
	return fmt.Errorf("fixture %s: %d mismatches", replayFlags.fixture, len(mismatches))
}

// #endregion replay

// #region render
func printTable(w io.Writer, interactions []replay.Interaction, results []replay.ReplayResult, s replay.ReplaySummary) {
	texts := make(map[string]string, len(interactions))
	for _, in := range interactions {
		texts[in.ID] = in.InputText
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Input", "Model Conf", "Was", "Now", ""})
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, WidthMax: 40}})

	for _, r := range results {
		conf := "-"
		if r.Gate != nil {
			conf = fmt.Sprintf("%.4f", r.Gate.Confidence)
		}
		mark := ""
		if r.Changed {
			mark = "*"
		}
		t.AppendRow(table.Row{shortID(r.ID), texts[r.ID], conf, r.Previous, r.Action, mark})
	}
	t.AppendFooter(table.Row{"", "", "", "", fmt.Sprintf("%d changed", s.Changed), ""})
	t.Render()

	fmt.Fprintf(w, "\nThreshold: %.2f\n", s.Threshold)
	fmt.Fprintf(w, "Total: %d | auto: %d | clarify: %d | manual: %d\n", s.Total, s.Auto, s.Clarify, s.Manual)
	fmt.Fprintf(w, "Previously clarified: %d\n", s.WasClarify)
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
