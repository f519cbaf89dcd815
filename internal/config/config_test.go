package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/sentiment-gate/go-controller/internal/labels"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 0.6, cfg.Gate.Threshold)
	assert.Equal(t, labels.DefaultLabelMap(), cfg.Labels)
	assert.Equal(t, []string{"POSITIVE", "NEGATIVE"}, cfg.Clarify.Choices)
	assert.Equal(t, "classifier_log.csv", cfg.Audit.CSVPath)
	assert.Zero(t, cfg.Clarify.MaxAttempts)
}

func TestLoadWithoutFile(t *testing.T) {
	for _, k := range []string{EnvBackend, EnvAddr, EnvThreshold, EnvCSVPath, EnvDBPath, EnvLogLevel} {
		t.Setenv(k, "")
	}
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Codec.Addr, cfg.Codec.Addr)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	for _, k := range []string{EnvBackend, EnvAddr, EnvThreshold, EnvCSVPath, EnvDBPath, EnvLogLevel} {
		t.Setenv(k, "")
	}
	path := filepath.Join(t.TempDir(), "classifier.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend: lexicon
codec:
  timeout: 5s
  retries: 0
gate:
  threshold: 0.75
clarify:
  max_attempts: 4
audit:
  db_path: decisions.db
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendLexicon, cfg.Backend)
	assert.Equal(t, 5*time.Second, cfg.Codec.Timeout)
	assert.Equal(t, 0, cfg.Codec.Retries)
	assert.Equal(t, "localhost:50051", cfg.Codec.Addr, "unset keys keep defaults")
	assert.Equal(t, 0.75, cfg.Gate.Threshold)
	assert.Equal(t, 4, cfg.Clarify.MaxAttempts)
	assert.Equal(t, "decisions.db", cfg.Audit.DBPath)
	assert.Equal(t, labels.DefaultLabelMap(), cfg.Labels)
}

func TestParseLabelsReplaceDefaults(t *testing.T) {
	cfg := Default()
	require.NoError(t, Parse([]byte(`
labels:
  neg: NEGATIVE
  pos: POSITIVE
`), &cfg))

	assert.Equal(t, labels.LabelMap{"neg": "NEGATIVE", "pos": "POSITIVE"}, cfg.Labels)
}

func TestParseExtendedLabelsDeriveChoices(t *testing.T) {
	cfg := Default()
	require.NoError(t, Parse([]byte(`
labels:
  LABEL_0: NEGATIVE
  LABEL_1: POSITIVE
  LABEL_2: NEUTRAL
`), &cfg))

	assert.Equal(t, []string{"POSITIVE", "NEGATIVE", "NEUTRAL"}, cfg.Clarify.Choices)
	require.NoError(t, cfg.Validate())
}

func TestParseExplicitChoicesWin(t *testing.T) {
	cfg := Default()
	require.NoError(t, Parse([]byte(`
labels:
  LABEL_0: NEGATIVE
  LABEL_1: POSITIVE
  LABEL_2: NEUTRAL
clarify:
  choices: [POSITIVE, NEGATIVE]
`), &cfg))

	assert.Equal(t, []string{"POSITIVE", "NEGATIVE"}, cfg.Clarify.Choices)
}

func TestThresholdNaNRejected(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(envMap(map[string]string{EnvThreshold: "NaN"})))
	require.Error(t, cfg.Validate())
}

func TestParseRejectsBadYAML(t *testing.T) {
	cfg := Default()
	require.Error(t, Parse([]byte("gate: [unclosed"), &cfg))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(envMap(map[string]string{
		EnvBackend:   "lexicon",
		EnvAddr:      "inference:6000",
		EnvThreshold: "0.8",
		EnvCSVPath:   "/tmp/x.csv",
		EnvDBPath:    "/tmp/x.db",
		EnvLogLevel:  "debug",
	}))
	require.NoError(t, err)
	assert.Equal(t, "lexicon", cfg.Backend)
	assert.Equal(t, "inference:6000", cfg.Codec.Addr)
	assert.Equal(t, 0.8, cfg.Gate.Threshold)
	assert.Equal(t, "/tmp/x.csv", cfg.Audit.CSVPath)
	assert.Equal(t, "/tmp/x.db", cfg.Audit.DBPath)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestApplyEnvBadThreshold(t *testing.T) {
	cfg := Default()
	require.Error(t, cfg.ApplyEnv(envMap(map[string]string{EnvThreshold: "high"})))
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"unknown backend":    func(c *Config) { c.Backend = "onnx" },
		"missing addr":       func(c *Config) { c.Codec.Addr = "" },
		"negative timeout":   func(c *Config) { c.Codec.Timeout = -time.Second },
		"negative retries":   func(c *Config) { c.Codec.Retries = -1 },
		"threshold too high": func(c *Config) { c.Gate.Threshold = 1.5 },
		"threshold negative": func(c *Config) { c.Gate.Threshold = -0.1 },
		"threshold NaN":      func(c *Config) { c.Gate.Threshold = math.NaN() },
		"no labels":          func(c *Config) { c.Labels = nil },
		"one choice":         func(c *Config) { c.Clarify.Choices = []string{"POSITIVE"} },
		"negative attempts":  func(c *Config) { c.Clarify.MaxAttempts = -1 },
		"no csv path":        func(c *Config) { c.Audit.CSVPath = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateLexiconNeedsNoAddr(t *testing.T) {
	cfg := Default()
	cfg.Backend = BackendLexicon
	cfg.Codec.Addr = ""
	assert.NoError(t, cfg.Validate())
}
