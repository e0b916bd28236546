package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"clickpredict/internal/evaluation"
	"clickpredict/internal/preprocessing"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Dataset struct {
		Path         string `yaml:"path"`
		IDColumn     string `yaml:"id_column"`
		TargetColumn string `yaml:"target_column"`
	} `yaml:"dataset"`
	Preprocessing struct {
		TestSize float64 `yaml:"test_size"`
		Seed     int64   `yaml:"seed"`
		Scaler   string  `yaml:"scaler"`
		Stratify bool    `yaml:"stratify"`
	} `yaml:"preprocessing"`
	Training struct {
		MaxIter   int     `yaml:"max_iter"`
		C         float64 `yaml:"c"`
		Tolerance float64 `yaml:"tolerance"`
		Evaluate  bool    `yaml:"evaluate"`
		Metric    string  `yaml:"metric"`
	} `yaml:"training"`
	Artifacts struct {
		Model       string `yaml:"model"`
		Importances string `yaml:"importances"`
		Metadata    string `yaml:"metadata"`
		RunsDB      string `yaml:"runs_db"`
	} `yaml:"artifacts"`
	Server struct {
		Addr      string `yaml:"addr"`
		CacheSize int    `yaml:"cache_size"`
	} `yaml:"server"`
	Experiment struct {
		CValues []float64 `yaml:"c_values"`
		Scalers []string  `yaml:"scalers"`
		Output  string    `yaml:"output"`
	} `yaml:"experiment"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		File   string `yaml:"file"`
	} `yaml:"log"`
}

func Default() *Config {
	cfg := &Config{}
	cfg.Dataset.Path = "dataset.csv"
	cfg.Dataset.IDColumn = "AGREEMENT_RK"
	cfg.Dataset.TargetColumn = "TARGET"
	cfg.Preprocessing.TestSize = 0.20
	cfg.Preprocessing.Seed = 42
	cfg.Preprocessing.Scaler = string(preprocessing.MinMax)
	cfg.Training.MaxIter = 500
	cfg.Training.C = 1.0
	cfg.Training.Tolerance = 1e-4
	cfg.Training.Evaluate = true
	cfg.Training.Metric = evaluation.Accuracy.String()
	cfg.Artifacts.Model = "model_weights.mw"
	cfg.Artifacts.Importances = "importances.csv"
	cfg.Artifacts.Metadata = "model_weights.txt"
	cfg.Server.Addr = ":8080"
	cfg.Server.CacheSize = 256
	cfg.Experiment.CValues = []float64{0.01, 0.1, 1, 10}
	cfg.Experiment.Scalers = []string{string(preprocessing.MinMax), string(preprocessing.Standard)}
	cfg.Experiment.Output = "experiment_results.csv"
	cfg.Log.Level = "info"
	cfg.Log.Format = "console"
	return cfg
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Dataset.TargetColumn == "" {
		return fmt.Errorf("%w: dataset.target_column is required", ErrInvalidConfig)
	}
	if c.Preprocessing.TestSize <= 0 || c.Preprocessing.TestSize >= 1 {
		return fmt.Errorf("%w: preprocessing.test_size must be in (0, 1), got %v", ErrInvalidConfig, c.Preprocessing.TestSize)
	}
	if _, err := preprocessing.ParseScaleKind(c.Preprocessing.Scaler); err != nil {
		return fmt.Errorf("%w: preprocessing.scaler: %v", ErrInvalidConfig, err)
	}
	if c.Training.MaxIter < 1 {
		return fmt.Errorf("%w: training.max_iter must be at least 1", ErrInvalidConfig)
	}
	if c.Training.C <= 0 {
		return fmt.Errorf("%w: training.c must be positive", ErrInvalidConfig)
	}
	if _, err := evaluation.ParseMetric(c.Training.Metric); err != nil {
		return fmt.Errorf("%w: training.metric: %v", ErrInvalidConfig, err)
	}
	if c.Artifacts.Model == "" || c.Artifacts.Importances == "" {
		return fmt.Errorf("%w: artifacts.model and artifacts.importances are required", ErrInvalidConfig)
	}
	if c.Server.CacheSize < 0 {
		return fmt.Errorf("%w: server.cache_size must not be negative", ErrInvalidConfig)
	}
	for _, v := range c.Experiment.CValues {
		if v <= 0 {
			return fmt.Errorf("%w: experiment.c_values must be positive, got %v", ErrInvalidConfig, v)
		}
	}
	if _, err := c.ExperimentScalers(); err != nil {
		return err
	}
	return nil
}

func (c *Config) PreprocessOptions() preprocessing.Options {
	kind, _ := preprocessing.ParseScaleKind(c.Preprocessing.Scaler)
	return preprocessing.Options{
		IDColumn:     c.Dataset.IDColumn,
		TargetColumn: c.Dataset.TargetColumn,
		TestSize:     c.Preprocessing.TestSize,
		Seed:         c.Preprocessing.Seed,
		Scaler:       kind,
		Stratify:     c.Preprocessing.Stratify,
	}
}

func (c *Config) Metric() evaluation.Metric {
	m, _ := evaluation.ParseMetric(c.Training.Metric)
	return m
}

func (c *Config) ExperimentScalers() ([]preprocessing.ScaleKind, error) {
	kinds := make([]preprocessing.ScaleKind, 0, len(c.Experiment.Scalers))
	for _, name := range c.Experiment.Scalers {
		kind, err := preprocessing.ParseScaleKind(name)
		if err != nil {
			return nil, fmt.Errorf("%w: experiment.scalers: %v", ErrInvalidConfig, err)
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}
