package data

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type DataValidator struct{}

func NewDataValidator() *DataValidator {
	return &DataValidator{}
}

func (dv *DataValidator) ValidateDataset(X [][]decimal.Decimal, y []int) error {
	if len(X) == 0 {
		return fmt.Errorf("dataset is empty")
	}

	if len(X) != len(y) {
		return fmt.Errorf("feature matrix and labels have different lengths: %d vs %d", len(X), len(y))
	}

	nFeatures := len(X[0])
	if nFeatures == 0 {
		return fmt.Errorf("features cannot be empty")
	}

	for i, sample := range X {
		if len(sample) != nFeatures {
			return fmt.Errorf("inconsistent feature count at sample %d: expected %d, got %d", i, nFeatures, len(sample))
		}
	}

	return nil
}

// ValidateLabels requires binary 0/1 labels with both classes present.
func (dv *DataValidator) ValidateLabels(y []int) error {
	if len(y) == 0 {
		return fmt.Errorf("labels are empty")
	}

	classCount := make(map[int]int)
	for i, label := range y {
		if label != 0 && label != 1 {
			return fmt.Errorf("label %d at sample %d is not binary", label, i)
		}
		classCount[label]++
	}

	if len(classCount) < 2 {
		return fmt.Errorf("dataset must have at least 2 classes, found %d", len(classCount))
	}

	return nil
}

func (dv *DataValidator) ValidateTrainTestSplit(XTrain, XTest [][]decimal.Decimal, yTrain, yTest []int) error {
	if err := dv.ValidateDataset(XTrain, yTrain); err != nil {
		return fmt.Errorf("training set validation failed: %w", err)
	}

	if err := dv.ValidateDataset(XTest, yTest); err != nil {
		return fmt.Errorf("test set validation failed: %w", err)
	}

	if len(XTrain[0]) != len(XTest[0]) {
		return fmt.Errorf("train and test sets have different feature counts: %d vs %d", len(XTrain[0]), len(XTest[0]))
	}

	return nil
}

type FeatureStats struct {
	Name string          `json:"name"`
	Min  decimal.Decimal `json:"min"`
	Max  decimal.Decimal `json:"max"`
	Mean decimal.Decimal `json:"mean"`
}

type Summary struct {
	Samples           int            `json:"samples"`
	Skipped           int            `json:"skipped"`
	Features          []FeatureStats `json:"features"`
	ClassDistribution map[int]int    `json:"class_distribution"`
}

// Summarize describes every column of the table except the id column. The
// target column feeds the class distribution instead of the feature stats.
func (dv *DataValidator) Summarize(t *Table, idColumn, targetColumn string) (*Summary, error) {
	if t == nil || t.Len() == 0 {
		return nil, fmt.Errorf("%w: table is empty", ErrDataAccess)
	}

	summary := &Summary{
		Samples:           t.Len(),
		Skipped:           t.Skipped,
		ClassDistribution: make(map[int]int),
	}

	for j, name := range t.Columns {
		if name == idColumn {
			continue
		}

		values := make([]decimal.Decimal, len(t.Rows))
		for i, row := range t.Rows {
			values[i] = row[j]
		}

		if name == targetColumn {
			for _, v := range values {
				summary.ClassDistribution[int(v.IntPart())]++
			}
			continue
		}

		summary.Features = append(summary.Features, FeatureStats{
			Name: name,
			Min:  findMin(values),
			Max:  findMax(values),
			Mean: calculateMean(values),
		})
	}

	return summary, nil
}

func findMin(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	min := values[0]
	for _, v := range values[1:] {
		if v.LessThan(min) {
			min = v
		}
	}
	return min
}

func findMax(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	max := values[0]
	for _, v := range values[1:] {
		if v.GreaterThan(max) {
			max = v
		}
	}
	return max
}

func calculateMean(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}
	return sum.Div(decimal.NewFromInt(int64(len(values))))
}
