package experiment

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"go.uber.org/zap"

	"clickpredict/internal/data"
	"clickpredict/internal/evaluation"
	"clickpredict/internal/models"
	"clickpredict/internal/preprocessing"
)

// Grid is the set of settings swept by a Runner. Every scaler is paired
// with every regularisation strength.
type Grid struct {
	CValues []float64
	Scalers []preprocessing.ScaleKind
}

type ExperimentRunner struct {
	logger *zap.Logger
}

type ExperimentResult struct {
	Dataset        string
	Scaler         string
	C              float64
	Iterations     int
	Converged      bool
	Accuracy       float64
	Precision      float64
	Recall         float64
	F1Score        float64
	TrainingTimeMs int64
}

func (r ExperimentResult) Score(m evaluation.Metric) float64 {
	switch m {
	case evaluation.Precision:
		return r.Precision
	case evaluation.Recall:
		return r.Recall
	default:
		return r.Accuracy
	}
}

func NewRunner(logger *zap.Logger) *ExperimentRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExperimentRunner{logger: logger}
}

// RunAllExperiments splits the table once per scaler and fits one model per
// C value on that split. Nothing is persisted.
func (r *ExperimentRunner) RunAllExperiments(ctx context.Context, table *data.Table, base preprocessing.Options, model models.ModelConfig, grid Grid) ([]ExperimentResult, error) {
	if len(grid.CValues) == 0 || len(grid.Scalers) == 0 {
		return nil, fmt.Errorf("experiment grid is empty")
	}

	var results []ExperimentResult
	for _, kind := range grid.Scalers {
		opts := base
		opts.Scaler = kind
		split, err := preprocessing.Preprocess(table, opts)
		if err != nil {
			return nil, err
		}

		for _, c := range grid.CValues {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			cfg := model
			cfg.C = c
			result, err := r.evaluateModel(cfg, split)
			if err != nil {
				return nil, fmt.Errorf("scaler %s, c=%g: %w", kind, c, err)
			}
			result.Dataset = table.Source
			result.Scaler = string(kind)
			results = append(results, result)

			r.logger.Debug("experiment finished",
				zap.String("scaler", result.Scaler),
				zap.Float64("c", c),
				zap.Float64("accuracy", result.Accuracy),
				zap.Bool("converged", result.Converged))
		}
	}
	return results, nil
}

func (r *ExperimentRunner) evaluateModel(cfg models.ModelConfig, split *preprocessing.Split) (ExperimentResult, error) {
	result := ExperimentResult{C: cfg.C}

	lr, err := models.CreateModel(cfg)
	if err != nil {
		return result, err
	}
	var model models.Model = lr

	startTime := time.Now()
	err = model.Fit(split.XTrain, split.YTrain)
	result.TrainingTimeMs = time.Since(startTime).Milliseconds()
	if err != nil && !errors.Is(err, models.ErrNotConverged) {
		return result, err
	}
	result.Iterations = lr.NIter
	result.Converged = lr.Converged

	cm, err := evaluation.NewConfusionMatrix(split.YTest, model.Predict(split.XTest))
	if err != nil {
		return result, err
	}
	r.logger.Debug("confusion matrix", zap.Float64("c", cfg.C), zap.String("metrics", cm.FormatMetrics()))
	result.Accuracy = cm.Accuracy()
	result.Precision = cm.Precision()
	result.Recall = cm.Recall()
	result.F1Score = cm.F1Score()
	return result, nil
}

// Ranked orders results by the metric, best first. Ties keep grid order.
func Ranked(results []ExperimentResult, metric evaluation.Metric) []ExperimentResult {
	ranked := append([]ExperimentResult(nil), results...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score(metric) > ranked[j].Score(metric)
	})
	return ranked
}

func ExportResults(results []ExperimentResult, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filename, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	writer.Write([]string{
		"Dataset", "Scaler", "C", "Iterations", "Converged",
		"Accuracy", "Precision", "Recall", "F1Score", "TrainingTimeMs",
	})

	for _, result := range results {
		writer.Write([]string{
			result.Dataset,
			result.Scaler,
			fmt.Sprintf("%g", result.C),
			fmt.Sprintf("%d", result.Iterations),
			fmt.Sprintf("%t", result.Converged),
			fmt.Sprintf("%.4f", result.Accuracy),
			fmt.Sprintf("%.4f", result.Precision),
			fmt.Sprintf("%.4f", result.Recall),
			fmt.Sprintf("%.4f", result.F1Score),
			fmt.Sprintf("%d", result.TrainingTimeMs),
		})
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	return file.Close()
}
