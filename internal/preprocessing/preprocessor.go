package preprocessing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"clickpredict/internal/data"
	"clickpredict/internal/evaluation"
)

type Options struct {
	IDColumn     string
	TargetColumn string
	TestSize     float64
	Seed         int64
	Scaler       ScaleKind
	Stratify     bool
}

func DefaultOptions() Options {
	return Options{
		IDColumn:     "AGREEMENT_RK",
		TargetColumn: "TARGET",
		TestSize:     0.20,
		Seed:         42,
		Scaler:       MinMax,
	}
}

// Split is the scaled train/test partition of a table. The scaler was fitted
// on the training rows only.
type Split struct {
	Features     []string
	XTrain       [][]decimal.Decimal
	XTest        [][]decimal.Decimal
	YTrain       []int
	YTest        []int
	TrainIndices []int
	TestIndices  []int
	Scaler       *Scaler
}

func (s *Split) TrainFraction() float64 {
	total := len(s.TrainIndices) + len(s.TestIndices)
	if total == 0 {
		return 0
	}
	return float64(len(s.TrainIndices)) / float64(total)
}

func Preprocess(table *data.Table, opts Options) (*Split, error) {
	if table == nil || table.Len() == 0 {
		return nil, fmt.Errorf("%w: empty table", data.ErrDataAccess)
	}

	labels, err := table.Column(opts.TargetColumn)
	if err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}
	targetIdx, _ := table.ColumnIndex(opts.TargetColumn)
	idIdx, hasID := table.ColumnIndex(opts.IDColumn)
	if opts.IDColumn != "" && !hasID {
		return nil, fmt.Errorf("%w: id column %q not found", data.ErrDataAccess, opts.IDColumn)
	}

	var features []string
	var featureIdx []int
	for j, name := range table.Columns {
		if j == targetIdx || (hasID && j == idIdx) {
			continue
		}
		features = append(features, name)
		featureIdx = append(featureIdx, j)
	}
	if len(features) == 0 {
		return nil, fmt.Errorf("%w: no feature columns besides id and target", data.ErrDataAccess)
	}

	X := make([][]decimal.Decimal, table.Len())
	y := make([]int, table.Len())
	for i, row := range table.Rows {
		label := labels[i]
		if !label.Equal(decimal.Zero) && !label.Equal(decimal.NewFromInt(1)) {
			return nil, fmt.Errorf("%w: target %s at row %d is not 0 or 1", data.ErrDataAccess, label, i)
		}
		y[i] = int(label.IntPart())

		X[i] = make([]decimal.Decimal, len(featureIdx))
		for k, j := range featureIdx {
			X[i][k] = row[j]
		}
	}

	validator := data.NewDataValidator()
	if err := validator.ValidateDataset(X, y); err != nil {
		return nil, fmt.Errorf("%w: %v", data.ErrDataAccess, err)
	}

	splitter := evaluation.NewTrainTestSplitter(opts.TestSize, opts.Seed, true)
	var trainIdx, testIdx []int
	if opts.Stratify {
		trainIdx, testIdx, err = splitter.StratifiedSplit(y)
	} else {
		trainIdx, testIdx, err = splitter.Split(len(X))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to split data: %w", err)
	}

	XTrain, yTrain := gather(X, y, trainIdx)
	XTest, yTest := gather(X, y, testIdx)
	if err := validator.ValidateTrainTestSplit(XTrain, XTest, yTrain, yTest); err != nil {
		return nil, fmt.Errorf("%w: %v", data.ErrDataAccess, err)
	}

	scaler := NewScaler(opts.Scaler)
	XTrainScaled, err := scaler.FitTransform(XTrain)
	if err != nil {
		return nil, fmt.Errorf("failed to scale training data: %w", err)
	}
	XTestScaled, err := scaler.Transform(XTest)
	if err != nil {
		return nil, fmt.Errorf("failed to scale test data: %w", err)
	}

	return &Split{
		Features:     features,
		XTrain:       XTrainScaled,
		XTest:        XTestScaled,
		YTrain:       yTrain,
		YTest:        yTest,
		TrainIndices: trainIdx,
		TestIndices:  testIdx,
		Scaler:       scaler,
	}, nil
}

func gather(X [][]decimal.Decimal, y []int, indices []int) ([][]decimal.Decimal, []int) {
	outX := make([][]decimal.Decimal, len(indices))
	outY := make([]int, len(indices))
	for i, idx := range indices {
		outX[i] = make([]decimal.Decimal, len(X[idx]))
		copy(outX[i], X[idx])
		outY[i] = y[idx]
	}
	return outX, outY
}
