package training

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"clickpredict/internal/data"
	"clickpredict/internal/evaluation"
	"clickpredict/internal/models"
	"clickpredict/internal/persistence"
	"clickpredict/internal/preprocessing"
)

type Artifacts struct {
	Model       string
	Importances string
	Metadata    string
}

type Options struct {
	Model     models.ModelConfig
	Evaluate  bool
	Metric    evaluation.Metric
	Dataset   string
	Artifacts Artifacts
}

type Result struct {
	Model       *models.LogisticRegression
	Bundle      *persistence.ModelBundle
	Importances []persistence.Importance
	Metric      evaluation.Metric
	Score       float64
	Evaluated   bool
	// Warning wraps models.ErrNotConverged when the iteration budget ran out.
	Warning error
	Run     *persistence.TrainingRun
}

type RunRecorder interface {
	Record(ctx context.Context, run *persistence.TrainingRun) error
}

type Trainer struct {
	recorder RunRecorder
	logger   *zap.Logger
}

// NewTrainer accepts a nil recorder when no run history is kept.
func NewTrainer(recorder RunRecorder, logger *zap.Logger) *Trainer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Trainer{recorder: recorder, logger: logger}
}

// Fit trains on split, evaluates when asked, and writes the bundle and the
// importance table.
func (t *Trainer) Fit(ctx context.Context, split *preprocessing.Split, opts Options) (*Result, error) {
	if split == nil {
		return nil, fmt.Errorf("no split to train on")
	}
	if err := data.NewDataValidator().ValidateLabels(split.YTrain); err != nil {
		return nil, fmt.Errorf("training labels: %w", err)
	}

	model, err := models.CreateModel(opts.Model)
	if err != nil {
		return nil, err
	}

	startTime := time.Now()
	result := &Result{Model: model, Metric: opts.Metric}

	if err := model.Fit(split.XTrain, split.YTrain); err != nil {
		if !errors.Is(err, models.ErrNotConverged) {
			return nil, fmt.Errorf("training failed: %w", err)
		}
		result.Warning = err
		t.logger.Warn("convergence warning, using partially optimised weights",
			zap.Int("iterations", model.NIter),
			zap.String("status", model.Status),
			zap.Error(err))
	}
	trainingTime := time.Since(startTime)

	t.logger.Info("model trained",
		zap.String("model", model.GetName()),
		zap.Int("train_rows", len(split.XTrain)),
		zap.Int("iterations", model.NIter),
		zap.Bool("converged", model.Converged),
		zap.Duration("elapsed", trainingTime))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if opts.Evaluate {
		predictions := model.Predict(split.XTest)
		score, err := opts.Metric.Score(split.YTest, predictions)
		if err != nil {
			return nil, fmt.Errorf("evaluation failed: %w", err)
		}
		result.Score = score
		result.Evaluated = true
		t.logger.Info(fmt.Sprintf("%s: %.3f", opts.Metric.Title(), math.Round(score*1000)/1000),
			zap.Int("test_rows", len(split.XTest)))
	}

	importances, err := ComputeImportances(split.Features, model.Coefficients())
	if err != nil {
		return nil, err
	}
	result.Importances = importances

	bundle := persistence.NewModelBundle(model, split.Scaler, split.Features)
	bundle.Metadata.Dataset = opts.Dataset
	bundle.Metadata.Metric = opts.Metric.Title()
	bundle.Metadata.Score = result.Score
	bundle.Metadata.Evaluated = result.Evaluated
	bundle.Metadata.TrainSize = len(split.XTrain)
	bundle.Metadata.TestSize = len(split.XTest)
	bundle.Metadata.TrainingTime = trainingTime
	result.Bundle = bundle

	if err := bundle.Save(opts.Artifacts.Model); err != nil {
		return nil, fmt.Errorf("failed to save model: %w", err)
	}
	t.logger.Info("model was saved", zap.String("path", opts.Artifacts.Model))

	if err := persistence.SaveImportances(importances, opts.Artifacts.Importances); err != nil {
		return nil, fmt.Errorf("failed to save importances: %w", err)
	}
	t.logger.Info("importances were saved", zap.String("path", opts.Artifacts.Importances))

	if opts.Artifacts.Metadata != "" {
		if err := bundle.SaveMetadata(opts.Artifacts.Metadata); err != nil {
			t.logger.Warn("failed to save metadata", zap.String("path", opts.Artifacts.Metadata), zap.Error(err))
		}
	}

	if t.recorder != nil {
		run := &persistence.TrainingRun{
			Dataset:         opts.Dataset,
			Metric:          opts.Metric.String(),
			Score:           result.Score,
			Evaluated:       result.Evaluated,
			TrainRows:       len(split.XTrain),
			TestRows:        len(split.XTest),
			Iterations:      model.NIter,
			Converged:       model.Converged,
			ModelPath:       opts.Artifacts.Model,
			ImportancesPath: opts.Artifacts.Importances,
			DurationMillis:  trainingTime.Milliseconds(),
		}
		if err := t.recorder.Record(ctx, run); err != nil {
			t.logger.Warn("failed to record training run", zap.Error(err))
		} else {
			result.Run = run
		}
	}

	return result, nil
}
