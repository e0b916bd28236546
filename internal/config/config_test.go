package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clickpredict/internal/evaluation"
	"clickpredict/internal/preprocessing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "AGREEMENT_RK", cfg.Dataset.IDColumn)
	assert.Equal(t, "TARGET", cfg.Dataset.TargetColumn)
	assert.Equal(t, 0.20, cfg.Preprocessing.TestSize)
	assert.Equal(t, int64(42), cfg.Preprocessing.Seed)
	assert.Equal(t, 500, cfg.Training.MaxIter)
	assert.Equal(t, evaluation.Accuracy, cfg.Metric())
	assert.Equal(t, "model_weights.mw", cfg.Artifacts.Model)
	assert.Equal(t, "importances.csv", cfg.Artifacts.Importances)

	opts := cfg.PreprocessOptions()
	assert.Equal(t, preprocessing.DefaultOptions(), opts)
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
dataset:
  path: data/bank.csv
preprocessing:
  scaler: standardized
  stratify: true
training:
  metric: recall
  max_iter: 50
artifacts:
  runs_db: runs.db
server:
  addr: ":9090"
experiment:
  c_values: [0.5, 2]
  scalers: [minmax]
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "data/bank.csv", cfg.Dataset.Path)
	assert.Equal(t, "TARGET", cfg.Dataset.TargetColumn, "untouched keys keep defaults")
	assert.Equal(t, evaluation.Recall, cfg.Metric())
	assert.Equal(t, 50, cfg.Training.MaxIter)
	assert.Equal(t, 1.0, cfg.Training.C)
	assert.Equal(t, "runs.db", cfg.Artifacts.RunsDB)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, []float64{0.5, 2}, cfg.Experiment.CValues)

	opts := cfg.PreprocessOptions()
	assert.Equal(t, preprocessing.Standard, opts.Scaler)
	assert.True(t, opts.Stratify)

	scalers, err := cfg.ExperimentScalers()
	require.NoError(t, err)
	assert.Equal(t, []preprocessing.ScaleKind{preprocessing.MinMax}, scalers)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"malformed yaml":  "training: [",
		"test size":       "preprocessing:\n  test_size: 1.2\n",
		"zero test size":  "preprocessing:\n  test_size: 0\n",
		"scaler":          "preprocessing:\n  scaler: log\n",
		"max iter":        "training:\n  max_iter: 0\n",
		"c":               "training:\n  c: -1\n",
		"metric":          "training:\n  metric: f1\n",
		"target":          "dataset:\n  target_column: \"\"\n",
		"artifact":        "artifacts:\n  model: \"\"\n",
		"cache":           "server:\n  cache_size: -1\n",
		"experiment c":    "experiment:\n  c_values: [1, 0]\n",
		"experiment kind": "experiment:\n  scalers: [robust]\n",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}
