package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/sentiment-gate/go-controller/internal/audit"
	"github.com/danielpatrickdp/sentiment-gate/go-controller/internal/replay"
)

var exportFlags struct {
	dbPath      string
	outPath     string
	last        int
	description string
}

var rootCmd = &cobra.Command{
	Use:   "fixture-export",
	Short: "Export recent decisions as a replay fixture",
	Long: "fixture-export reads the most recent decisions from the SQLite store and\n" +
		"writes them, with the route each actually took, as a JSON fixture for\n" +
		"replay --fixture.",
	SilenceUsage: true,
	RunE:         runExport,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&exportFlags.dbPath, "db", "", "path to the SQLite decision store (required)")
	f.StringVar(&exportFlags.outPath, "out", "", "output fixture JSON path (required)")
	f.IntVar(&exportFlags.last, "last", 20, "number of most recent decisions to export")
	f.StringVar(&exportFlags.description, "description", "", "fixture description")

	_ = rootCmd.MarkFlagRequired("db")
	_ = rootCmd.MarkFlagRequired("out")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// #region export

func runExport(cmd *cobra.Command, _ []string) error {
	if exportFlags.last <= 0 {
		return errors.New("--last must be positive")
	}
	if _, err := os.Stat(exportFlags.dbPath); err != nil {
		return fmt.Errorf("open db: %w", err)
	}

	store, err := audit.NewStore(exportFlags.dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	decisions, err := store.ListRecent(cmd.Context(), exportFlags.last)
	if err != nil {
		return err
	}
	if len(decisions) == 0 {
		return errors.New("no decisions to export")
	}

	threshold, err := recordedThreshold(decisions)
	if err != nil {
		return err
	}

	desc := exportFlags.description
	if desc == "" {
		desc = fmt.Sprintf("%d decisions exported from %s", len(decisions), exportFlags.dbPath)
	}

	if err := replay.WriteFixture(replay.BuildFixture(desc, threshold, decisions), exportFlags.outPath); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d interactions (threshold %.2f) to %s\n",
		len(decisions), threshold, exportFlags.outPath)
	return nil
}

// recordedThreshold returns the threshold shared by every decision. Mixed
// thresholds cannot be expressed in one fixture.
func recordedThreshold(decisions []audit.Decision) (float64, error) {
	t := decisions[0].Threshold
	for _, d := range decisions[1:] {
		if d.Threshold != t {
			return 0, fmt.Errorf("decisions span thresholds %.2f and %.2f; narrow --last", t, d.Threshold)
		}
	}
	return t, nil
}

// #endregion export
