package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/sentiment-gate/go-controller/internal/audit"
	"github.com/danielpatrickdp/sentiment-gate/go-controller/internal/clarify"
	"github.com/danielpatrickdp/sentiment-gate/go-controller/internal/cli"
	"github.com/danielpatrickdp/sentiment-gate/go-controller/internal/codec"
	"github.com/danielpatrickdp/sentiment-gate/go-controller/internal/config"
	"github.com/danielpatrickdp/sentiment-gate/go-controller/internal/console"
	"github.com/danielpatrickdp/sentiment-gate/go-controller/internal/gate"
	"github.com/danielpatrickdp/sentiment-gate/go-controller/internal/graph"
	"github.com/danielpatrickdp/sentiment-gate/go-controller/internal/labels"
	"github.com/danielpatrickdp/sentiment-gate/go-controller/internal/lexicon"
	"github.com/danielpatrickdp/sentiment-gate/go-controller/internal/logging"
)

// app holds the wired components of one invocation.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	session *cli.Session
	closers []func() error
}

// #region wiring
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger}

	classifier, err := a.classifier()
	if err != nil {
		a.Close()
		return nil, err
	}

	con := console.New(cmd.InOrStdin(), cmd.OutOrStdout())
	collector := clarify.NewCollector(con, clarify.Config{
		Choices:     cfg.Clarify.Choices,
		MaxAttempts: cfg.Clarify.MaxAttempts,
	}, logger)

	engine, err := graph.NewEngine(classifier,
		labels.NewNormalizer(cfg.Labels),
		gate.NewGate(gate.GateConfig{Threshold: cfg.Gate.Threshold}),
		collector,
		graph.WithLogger(logger))
	if err != nil {
		a.Close()
		return nil, err
	}

	var store cli.DecisionStore
	if cfg.Audit.DBPath != "" {
		s, err := audit.NewStore(cfg.Audit.DBPath)
		if err != nil {
			// The mirror is optional; the CSV log still records decisions.
			logger.Warn("decision store disabled", zap.String("path", cfg.Audit.DBPath), zap.Error(err))
		} else {
			store = s
			a.closers = append(a.closers, s.Close)
		}
	}

	csvLog := audit.NewLogger(cfg.Audit.CSVPath)
	a.session = cli.NewSession(engine, con, csvLog, store, logger)
	a.session.Init()

	logger.Info("classifier ready",
		zap.String("backend", cfg.Backend),
		zap.Float64("threshold", cfg.Gate.Threshold),
		zap.Strings("choices", collector.Choices()),
		zap.String("csv_path", csvLog.Path()))
	return a, nil
}

func (a *app) classifier() (graph.Classifier, error) {
	switch a.cfg.Backend {
	case config.BackendLexicon:
		return lexicon.New(), nil
	default:
		client, err := codec.NewClassifierClient(a.cfg.Codec.Addr, a.cfg.Codec.Timeout)
		if err != nil {
			return nil, fmt.Errorf("connect to classifier at %s: %w", a.cfg.Codec.Addr, err)
		}
		a.closers = append(a.closers, client.Close)
		return codec.NewRetrying(client,
			codec.WithMaxRetries(a.cfg.Codec.Retries),
			codec.WithRetryLogger(a.logger)), nil
	}
}

// Close releases connections in reverse order and flushes the logger.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	_ = a.logger.Sync()
	return errors.Join(errs...)
}

// #endregion wiring

// #region config
// loadConfig layers explicitly set flags over file and environment.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(rootFlags.configPath)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Backend = rootFlags.backend
	}
	if flags.Changed("addr") {
		cfg.Codec.Addr = rootFlags.addr
	}
	if flags.Changed("threshold") {
		cfg.Gate.Threshold = rootFlags.threshold
	}
	if flags.Changed("log") {
		cfg.Audit.CSVPath = rootFlags.csvPath
	}
	if flags.Changed("db") {
		cfg.Audit.DBPath = rootFlags.dbPath
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = rootFlags.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// #endregion config
