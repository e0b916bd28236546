package commander

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clickpredict/internal/persistence"
	"clickpredict/internal/profile"
	"clickpredict/internal/testutil"
)

type workspace struct {
	dir        string
	configPath string
}

func newWorkspace(t *testing.T, rows int) workspace {
	t.Helper()
	dir := t.TempDir()
	dataset := testutil.WriteBankCSV(t, rows, 21)

	cfg := fmt.Sprintf(`dataset:
  path: %q
artifacts:
  model: %q
  importances: %q
  metadata: %q
  runs_db: %q
experiment:
  c_values: [0.1, 1]
  scalers: [minmax]
  output: %q
log:
  level: error
`, dataset,
		filepath.Join(dir, "model_weights.mw"),
		filepath.Join(dir, "importances.csv"),
		filepath.Join(dir, "model_weights.txt"),
		filepath.Join(dir, "runs.db"),
		filepath.Join(dir, "experiment_results.csv"))

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return workspace{dir: dir, configPath: path}
}

func (w workspace) run(args ...string) (string, error) {
	c := NewCommander()
	root := c.NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", w.configPath}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestTrainThenPredict(t *testing.T) {
	w := newWorkspace(t, 300)

	out, err := w.run("train")
	require.NoError(t, err)
	assert.Contains(t, out, "Training complete")
	assert.Contains(t, out, "Train/test rows: 240 / 60")
	assert.Contains(t, out, "Accuracy: ")
	assert.Contains(t, out, "Run ")

	out, err = w.run("predict", "--gender", "male", "--age", "25", "--income", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "Prediction Results:")
	assert.Contains(t, out, "PERSONAL_INCOME: 0")
	assert.Contains(t, out, "Confidence Level:")
}

func TestTrainOverrides(t *testing.T) {
	w := newWorkspace(t, 200)

	out, err := w.run("train", "--metric", "recall", "--max-iter", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Recall: ")

	out, err = w.run("train", "--evaluate=false")
	require.NoError(t, err)
	assert.NotContains(t, out, "Accuracy: ")
}

func TestPredictBeforeTraining(t *testing.T) {
	w := newWorkspace(t, 50)

	_, err := w.run("predict")
	assert.ErrorIs(t, err, persistence.ErrModelNotFound)
	assert.Contains(t, NewCommander().describe(err), "Run 'clickpredict train' first")
}

func TestPredictRejectsInvalidProfile(t *testing.T) {
	w := newWorkspace(t, 50)

	_, err := w.run("predict", "--age", "150")
	assert.Error(t, err)

	_, err = w.run("predict", "--income", "NaN")
	assert.ErrorIs(t, err, profile.ErrInvalidProfile)
}

func TestImportancesCommand(t *testing.T) {
	w := newWorkspace(t, 200)
	_, err := w.run("train")
	require.NoError(t, err)

	out, err := w.run("importances", "-n", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Top 3 most important features:")
	assert.Contains(t, out, "  3. ")
	assert.NotContains(t, out, "  4. ")

	out, err = w.run("importances", "--direction", "least", "--top", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Top 2 least important features:")

	_, err = w.run("importances", "--direction", "sideways")
	assert.Error(t, err)
}

func TestRunsCommand(t *testing.T) {
	w := newWorkspace(t, 120)

	out, err := w.run("runs")
	require.NoError(t, err)
	assert.Contains(t, out, "No training runs recorded yet")

	_, err = w.run("train")
	require.NoError(t, err)
	_, err = w.run("train")
	require.NoError(t, err)

	out, err = w.run("runs", "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "Training Runs:")
	assert.Equal(t, 2, bytes.Count([]byte(out), []byte("accuracy")))

	out, err = w.run("runs", "--latest")
	require.NoError(t, err)
	assert.Contains(t, out, "Latest Training Run:")
	assert.Contains(t, out, "Rows:        96 train / 24 test")
}

func TestRunsLatestBeforeTraining(t *testing.T) {
	w := newWorkspace(t, 50)

	_, err := w.run("runs", "--latest")
	assert.ErrorIs(t, err, persistence.ErrModelNotFound)
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "0123abcd", shortID("0123abcd-ef45-6789"))
	assert.Equal(t, "run7", shortID("run7"))
	assert.Empty(t, shortID(""))
}

func TestExperimentCommand(t *testing.T) {
	w := newWorkspace(t, 200)

	out, err := w.run("experiment")
	require.NoError(t, err)
	assert.Contains(t, out, "Running 2 experiments")
	assert.Contains(t, out, "Best by accuracy:")

	_, err = os.Stat(filepath.Join(w.dir, "experiment_results.csv"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(w.dir, "model_weights.mw"))
	assert.True(t, os.IsNotExist(err), "experiments never write the model")
}

func TestInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("training:\n  metric: f1\n"), 0o644))

	_, err := workspace{configPath: path}.run("train")
	assert.Error(t, err)
}
