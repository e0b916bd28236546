package models

import (
	"fmt"
)

type ModelConfig struct {
	Algorithm string
	C         float64
	MaxIter   int
	Tolerance float64
	Seed      int64
}

func CreateModel(config ModelConfig) (*LogisticRegression, error) {
	switch config.Algorithm {
	case "logistic", "logreg", "":
		if config.C <= 0 {
			config.C = 1.0
		}
		if config.MaxIter <= 0 {
			config.MaxIter = 500
		}
		if config.Tolerance <= 0 {
			config.Tolerance = 1e-4
		}
		return NewLogisticRegression(config.C, config.MaxIter, config.Tolerance, config.Seed), nil

	default:
		return nil, fmt.Errorf("unknown algorithm: %s", config.Algorithm)
	}
}

func DefaultConfig() ModelConfig {
	return ModelConfig{
		Algorithm: "logistic",
		C:         1.0,
		MaxIter:   500,
		Tolerance: 1e-4,
		Seed:      42,
	}
}
