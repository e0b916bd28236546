package training

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"clickpredict/internal/config"
	"clickpredict/internal/data"
	"clickpredict/internal/models"
	"clickpredict/internal/persistence"
	"clickpredict/internal/preprocessing"
)

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Model: models.ModelConfig{
			Algorithm: "logistic",
			C:         cfg.Training.C,
			MaxIter:   cfg.Training.MaxIter,
			Tolerance: cfg.Training.Tolerance,
			Seed:      cfg.Preprocessing.Seed,
		},
		Evaluate: cfg.Training.Evaluate,
		Metric:   cfg.Metric(),
		Dataset:  cfg.Dataset.Path,
		Artifacts: Artifacts{
			Model:       cfg.Artifacts.Model,
			Importances: cfg.Artifacts.Importances,
			Metadata:    cfg.Artifacts.Metadata,
		},
	}
}

// Run loads the configured dataset, preprocesses it and trains.
func Run(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	table, err := data.NewCSVReader(cfg.Dataset.Path).LoadTable()
	if err != nil {
		return nil, err
	}
	logger.Info("dataset loaded",
		zap.String("path", cfg.Dataset.Path),
		zap.Int("rows", table.Len()),
		zap.Int("columns", len(table.Columns)),
		zap.Int("skipped", table.Skipped))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	split, err := preprocessing.Preprocess(table, cfg.PreprocessOptions())
	if err != nil {
		return nil, err
	}
	logger.Info("dataset split",
		zap.Int("train", len(split.XTrain)),
		zap.Int("test", len(split.XTest)),
		zap.Strings("features", split.Features))

	var recorder RunRecorder
	if cfg.Artifacts.RunsDB != "" {
		store, err := persistence.OpenRunStore(cfg.Artifacts.RunsDB)
		if err != nil {
			return nil, fmt.Errorf("run history: %w", err)
		}
		defer store.Close()
		recorder = store
	}

	return NewTrainer(recorder, logger).Fit(ctx, split, OptionsFromConfig(cfg))
}
