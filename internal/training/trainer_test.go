package training

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"clickpredict/internal/config"
	"clickpredict/internal/data"
	"clickpredict/internal/evaluation"
	"clickpredict/internal/models"
	"clickpredict/internal/persistence"
	"clickpredict/internal/preprocessing"
	"clickpredict/internal/testutil"
)

func testConfig(t *testing.T, rows int) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Dataset.Path = testutil.WriteBankCSV(t, rows, 11)
	cfg.Artifacts.Model = filepath.Join(dir, "model_weights.mw")
	cfg.Artifacts.Importances = filepath.Join(dir, "importances.csv")
	cfg.Artifacts.Metadata = filepath.Join(dir, "model_weights.txt")
	return cfg
}

type recorderFunc func(context.Context, *persistence.TrainingRun) error

func (f recorderFunc) Record(ctx context.Context, run *persistence.TrainingRun) error {
	return f(ctx, run)
}

func TestRunBankScenario(t *testing.T) {
	cfg := testConfig(t, 1000)

	result, err := Run(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	assert.Len(t, result.Model.Coefficients(), 9)
	assert.Equal(t, 800, result.Bundle.Metadata.TrainSize)
	assert.Equal(t, 200, result.Bundle.Metadata.TestSize)
	assert.True(t, result.Evaluated)
	assert.Equal(t, evaluation.Accuracy, result.Metric)
	assert.GreaterOrEqual(t, result.Score, 0.0)
	assert.LessOrEqual(t, result.Score, 1.0)
	if result.Warning != nil {
		assert.ErrorIs(t, result.Warning, models.ErrNotConverged)
	}

	all, err := persistence.ReadImportances(cfg.Artifacts.Importances)
	require.NoError(t, err)
	assert.Len(t, all, 9)

	top, err := persistence.LoadImportances(cfg.Artifacts.Importances, 5, persistence.Most)
	require.NoError(t, err)
	require.Len(t, top, 5)
	for i := 1; i < len(top); i++ {
		assert.GreaterOrEqual(t, math.Abs(top[i-1].Weight), math.Abs(top[i].Weight))
	}

	bundle, err := persistence.LoadModelBundle(cfg.Artifacts.Model)
	require.NoError(t, err)
	assert.Equal(t, result.Model.Coef, bundle.Model.Coef)
	assert.Equal(t, testutil.BankHeader[2:], bundle.Metadata.Features)

	_, err = os.Stat(cfg.Artifacts.Metadata)
	assert.NoError(t, err)
}

func TestRunLearnsIncomeSignal(t *testing.T) {
	cfg := testConfig(t, 1000)

	result, err := Run(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	assert.Greater(t, result.Score, 0.7)
	weights := map[string]float64{}
	for _, row := range result.Importances {
		weights[row.Feature] = row.Weight
	}
	assert.Greater(t, weights["PERSONAL_INCOME"], 0.0)
	assert.Less(t, weights["AGE"], 0.0)
}

func TestRunWithoutEvaluation(t *testing.T) {
	cfg := testConfig(t, 200)
	cfg.Training.Evaluate = false

	result, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.False(t, result.Evaluated)
	assert.Zero(t, result.Score)
}

func TestRunIterationBudgetIsAWarning(t *testing.T) {
	cfg := testConfig(t, 300)
	cfg.Training.MaxIter = 1
	cfg.Training.Tolerance = 1e-12

	result, err := Run(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	require.Error(t, result.Warning)
	assert.True(t, errors.Is(result.Warning, models.ErrNotConverged))

	_, err = persistence.LoadModelBundle(cfg.Artifacts.Model)
	assert.NoError(t, err, "artifacts are written despite the warning")
}

func TestRunRecordsHistory(t *testing.T) {
	cfg := testConfig(t, 200)
	cfg.Artifacts.RunsDB = filepath.Join(t.TempDir(), "runs.db")

	result, err := Run(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, result.Run)

	store, err := persistence.OpenRunStore(cfg.Artifacts.RunsDB)
	require.NoError(t, err)
	defer store.Close()

	latest, err := store.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, result.Run.ID, latest.ID)
	assert.Equal(t, 160, latest.TrainRows)
	assert.Equal(t, cfg.Artifacts.Model, latest.ModelPath)
}

func TestRunErrors(t *testing.T) {
	cfg := testConfig(t, 50)
	cfg.Dataset.Path = filepath.Join(t.TempDir(), "absent.csv")
	_, err := Run(context.Background(), cfg, nil)
	assert.Error(t, err)

	cfg = testConfig(t, 50)
	cfg.Preprocessing.TestSize = 1.5
	_, err = Run(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	cfg = testConfig(t, 50)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Run(ctx, cfg, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTrainerRecorderFailureIsNotFatal(t *testing.T) {
	cfg := testConfig(t, 200)
	split := mustSplit(t, cfg)

	recorder := recorderFunc(func(context.Context, *persistence.TrainingRun) error {
		return errors.New("disk full")
	})
	result, err := NewTrainer(recorder, zap.NewNop()).Fit(context.Background(), split, OptionsFromConfig(cfg))
	require.NoError(t, err)
	assert.Nil(t, result.Run)
}

func TestTrainerRejectsSingleClass(t *testing.T) {
	cfg := testConfig(t, 200)
	split := mustSplit(t, cfg)
	for i := range split.YTrain {
		split.YTrain[i] = 1
	}

	_, err := NewTrainer(nil, nil).Fit(context.Background(), split, OptionsFromConfig(cfg))
	assert.Error(t, err)

	_, err = NewTrainer(nil, nil).Fit(context.Background(), nil, OptionsFromConfig(cfg))
	assert.Error(t, err)
}

func TestComputeImportances(t *testing.T) {
	rows, err := ComputeImportances([]string{"a", "b", "c", "d"}, []float64{0.1, -3, 2, -0.1})
	require.NoError(t, err)

	names := make([]string, len(rows))
	for i, row := range rows {
		names[i] = row.Feature
	}
	assert.Equal(t, []string{"b", "c", "a", "d"}, names)
	assert.Equal(t, -3.0, rows[0].Weight)

	_, err = ComputeImportances([]string{"a"}, nil)
	assert.Error(t, err)
}

func mustSplit(t *testing.T, cfg *config.Config) *preprocessing.Split {
	t.Helper()
	table, err := data.NewCSVReader(cfg.Dataset.Path).LoadTable()
	require.NoError(t, err)
	split, err := preprocessing.Preprocess(table, cfg.PreprocessOptions())
	require.NoError(t, err)
	return split
}
