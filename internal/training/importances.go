package training

import (
	"fmt"
	"math"
	"sort"

	"clickpredict/internal/persistence"
)

// ComputeImportances pairs features with their weights, sorted by absolute
// weight descending. Equal magnitudes keep column order.
func ComputeImportances(features []string, weights []float64) ([]persistence.Importance, error) {
	if len(features) != len(weights) {
		return nil, fmt.Errorf("%d feature names for %d weights", len(features), len(weights))
	}

	rows := make([]persistence.Importance, len(features))
	for i, name := range features {
		rows[i] = persistence.Importance{Feature: name, Weight: weights[i]}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return math.Abs(rows[i].Weight) > math.Abs(rows[j].Weight)
	})
	return rows, nil
}
