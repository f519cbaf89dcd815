package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	configPath string
	backend    string
	addr       string
	threshold  float64
	csvPath    string
	dbPath     string
	logLevel   string
}

var rootCmd = &cobra.Command{
	Use:   "classifier",
	Short: "Confidence-gated sentiment classifier with operator fallback",
	Long: "classifier labels sentences as POSITIVE or NEGATIVE. Answers below the\n" +
		"confidence threshold are sent to the operator for clarification, and\n" +
		"every decision is appended to a CSV audit log.",
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	RunE: runInteractive,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&rootFlags.configPath, "config", "", "YAML config file")
	f.StringVar(&rootFlags.backend, "backend", "", "classifier backend: grpc or lexicon")
	f.StringVar(&rootFlags.addr, "addr", "", "inference service address")
	f.Float64Var(&rootFlags.threshold, "threshold", 0, "confidence threshold in [0, 1]")
	f.StringVar(&rootFlags.csvPath, "log", "", "CSV audit log path")
	f.StringVar(&rootFlags.dbPath, "db", "", "SQLite decision store path (empty disables)")
	f.StringVar(&rootFlags.logLevel, "log-level", "", "zap level: debug, info, warn, error")

	rootCmd.AddCommand(classifyCmd)
	rootCmd.Version = version
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		// A second interrupt falls through to the default handler.
		<-ctx.Done()
		stop()
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// #region commands
func runInteractive(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.session.Loop(cmd.Context()); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(cmd.OutOrStdout(), "\nBye!")
			return nil
		}
		return err
	}
	return nil
}

var classifyCmd = &cobra.Command{
	Use:   "classify <text>...",
	Short: "Classify one sentence and exit",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runClassify,
}

func runClassify(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	_, err = a.session.Classify(cmd.Context(), joinArgs(args))
	return err
}

// #endregion commands
