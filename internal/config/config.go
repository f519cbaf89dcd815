package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/sentiment-gate/go-controller/internal/clarify"
	"github.com/danielpatrickdp/sentiment-gate/go-controller/internal/gate"
	"github.com/danielpatrickdp/sentiment-gate/go-controller/internal/labels"
)

// Environment overrides, applied after the config file.
const (
	EnvBackend   = "CLASSIFIER_BACKEND"
	EnvAddr      = "CLASSIFIER_ADDR"
	EnvThreshold = "CLASSIFIER_THRESHOLD"
	EnvCSVPath   = "CLASSIFIER_LOG"
	EnvDBPath    = "CLASSIFIER_DB"
	EnvLogLevel  = "CLASSIFIER_LOG_LEVEL"
)

// Classifier backends.
const (
	BackendGRPC    = "grpc"
	BackendLexicon = "lexicon"
)

// #region types
// Config is the root configuration of the classifier CLI.
type Config struct {
	Backend string          `yaml:"backend"`
	Codec   CodecConfig     `yaml:"codec"`
	Gate    GateConfig      `yaml:"gate"`
	Labels  labels.LabelMap `yaml:"labels"`
	Clarify ClarifyConfig   `yaml:"clarify"`
	Audit   AuditConfig     `yaml:"audit"`
	Log     LogConfig       `yaml:"log"`
}

// CodecConfig locates the Python inference service.
type CodecConfig struct {
	Addr    string        `yaml:"addr"`
	Timeout time.Duration `yaml:"timeout"`
	Retries int           `yaml:"retries"` // retries while the service is unavailable
}

// GateConfig holds the confidence threshold.
type GateConfig struct {
	Threshold float64 `yaml:"threshold"`
}

// ClarifyConfig controls the operator prompt.
type ClarifyConfig struct {
	Choices     []string `yaml:"choices"`
	MaxAttempts int      `yaml:"max_attempts"`
}

// AuditConfig locates the audit destinations. An empty DBPath disables the
// SQLite mirror.
type AuditConfig struct {
	CSVPath string `yaml:"csv_path"`
	DBPath  string `yaml:"db_path"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// #endregion types

// #region defaults
// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Backend: BackendGRPC,
		Codec: CodecConfig{
			Addr:    "localhost:50051",
			Timeout: 30 * time.Second,
			Retries: 2,
		},
		Gate:   GateConfig{Threshold: gate.DefaultThreshold},
		Labels: labels.DefaultLabelMap(),
		Clarify: ClarifyConfig{
			Choices: clarify.ChoicesFor(labels.NewNormalizer(labels.DefaultLabelMap()).Vocabulary()),
		},
		Audit: AuditConfig{CSVPath: "classifier_log.csv"},
		Log:   LogConfig{Level: "warn"},
	}
}

// #endregion defaults

// #region load
// Load reads path over the defaults (an empty path skips the file), applies
// environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := Parse(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML into cfg. Keys absent from data keep their current
// values; a labels table, when present, replaces the default one and, unless
// clarify.choices is also given, sets the clarification choices to its
// vocabulary.
func Parse(data []byte, cfg *Config) error {
	var probe struct {
		Labels  labels.LabelMap `yaml:"labels"`
		Clarify struct {
			Choices []string `yaml:"choices"`
		} `yaml:"clarify"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if probe.Labels != nil {
		cfg.Labels = nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if probe.Labels != nil && probe.Clarify.Choices == nil {
		cfg.Clarify.Choices = clarify.ChoicesFor(labels.NewNormalizer(cfg.Labels).Vocabulary())
	}
	return nil
}

// ApplyEnv overrides fields from the environment. getenv is os.Getenv in
// production.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	envOr := func(key, fallback string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return fallback
	}

	c.Backend = envOr(EnvBackend, c.Backend)
	c.Codec.Addr = envOr(EnvAddr, c.Codec.Addr)
	c.Audit.CSVPath = envOr(EnvCSVPath, c.Audit.CSVPath)
	c.Audit.DBPath = envOr(EnvDBPath, c.Audit.DBPath)
	c.Log.Level = envOr(EnvLogLevel, c.Log.Level)

	if v := getenv(EnvThreshold); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvThreshold, err)
		}
		c.Gate.Threshold = t
	}
	return nil
}

// #endregion load

// #region validate
// Validate checks the settings the engine cannot run without.
func (c *Config) Validate() error {
	var errs []error

	if c.Backend != BackendGRPC && c.Backend != BackendLexicon {
		errs = append(errs, fmt.Errorf("backend %q: want %q or %q", c.Backend, BackendGRPC, BackendLexicon))
	}
	if c.Backend == BackendGRPC && c.Codec.Addr == "" {
		errs = append(errs, errors.New("codec.addr is required for the grpc backend"))
	}
	if c.Codec.Timeout < 0 {
		errs = append(errs, errors.New("codec.timeout must not be negative"))
	}
	if c.Codec.Retries < 0 {
		errs = append(errs, errors.New("codec.retries must not be negative"))
	}
	if err := (gate.GateConfig{Threshold: c.Gate.Threshold}).Validate(); err != nil {
		errs = append(errs, fmt.Errorf("gate.%w", err))
	}
	if len(c.Labels) == 0 {
		errs = append(errs, errors.New("labels must map at least one raw label"))
	}
	if len(c.Clarify.Choices) < 2 {
		errs = append(errs, errors.New("clarify.choices needs at least two labels"))
	}
	if c.Clarify.MaxAttempts < 0 {
		errs = append(errs, errors.New("clarify.max_attempts must not be negative"))
	}
	if c.Audit.CSVPath == "" {
		errs = append(errs, errors.New("audit.csv_path is required"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// #endregion validate
