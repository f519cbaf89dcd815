package replay

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/sentiment-gate/go-controller/internal/audit"
)

// #region fixture-tests

// TestFixture_Session replays the recorded session and compares each
// interaction's action against the expected one.
func TestFixture_Session(t *testing.T) {
	f, err := LoadFixture(filepath.Join("testdata", "session.json"))
	require.NoError(t, err)

	results, mismatches := f.Check()
	require.Len(t, results, len(f.ExpectedResults))
	assert.Empty(t, mismatches)
	for _, r := range results {
		assert.False(t, r.Changed, "%s should keep its recorded route", r.ID)
	}
}

// TestFixture_SessionStricterThreshold shows the boundary turn moving to
// clarification once the threshold rises above it.
func TestFixture_SessionStricterThreshold(t *testing.T) {
	f, err := LoadFixture(filepath.Join("testdata", "session.json"))
	require.NoError(t, err)
	f.Threshold = 0.61

	_, mismatches := f.Check()
	want := []Mismatch{{ID: "t3", Expected: ActionAuto, Got: ActionClarify}}
	if diff := cmp.Diff(want, mismatches); diff != "" {
		t.Fatalf("mismatches (-want +got):\n%s", diff)
	}
}

func TestFixture_MissingAndExtraResults(t *testing.T) {
	mc := 0.9
	f := &Fixture{
		Threshold:       0.6,
		Interactions:    []FixtureInteraction{{ID: "a", ModelConfidence: &mc}},
		ExpectedResults: []FixtureExpectedResult{{ID: "b", Action: ActionAuto}},
	}

	_, mismatches := f.Check()
	want := []Mismatch{
		{ID: "b", Expected: ActionAuto},
		{ID: "a", Got: ActionAuto},
	}
	if diff := cmp.Diff(want, mismatches); diff != "" {
		t.Fatalf("mismatches (-want +got):\n%s", diff)
	}
}

func TestBuildFixtureRoundTrip(t *testing.T) {
	at := time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)
	decisions := []audit.Decision{
		{RunID: "r1", InputText: "superb", Prediction: "POSITIVE", Confidence: 0.9,
			ModelPrediction: "POSITIVE", ModelConfidence: 0.9, Threshold: 0.6, CreatedAt: at},
		{RunID: "r2", InputText: "meh", Prediction: "NEGATIVE", Confidence: 1.0, UsedFallback: true,
			ModelPrediction: "POSITIVE", ModelConfidence: 0.52, Threshold: 0.6, CreatedAt: at},
	}

	path := filepath.Join(t.TempDir(), "fixture.json")
	require.NoError(t, WriteFixture(BuildFixture("exported", 0.6, decisions), path))

	f, err := LoadFixture(path)
	require.NoError(t, err)
	assert.Equal(t, "exported", f.Description)
	require.Len(t, f.Interactions, 2)
	require.NotNil(t, f.Interactions[1].ModelConfidence)
	assert.Equal(t, 0.52, *f.Interactions[1].ModelConfidence)

	_, mismatches := f.Check()
	assert.Empty(t, mismatches)
}

func TestLoadFixtureErrors(t *testing.T) {
	_, err := LoadFixture(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, WriteFixture(&Fixture{Threshold: 2}, path))
	_, err = LoadFixture(path)
	require.ErrorContains(t, err, "outside [0, 1]")
}

// #endregion fixture-tests
