package preprocessing

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

type ScaleKind string

const (
	MinMax   ScaleKind = "minmax"
	Standard ScaleKind = "standard"
)

func ParseScaleKind(s string) (ScaleKind, error) {
	switch s {
	case "minmax", "normalized", "":
		return MinMax, nil
	case "standard", "standardized":
		return Standard, nil
	default:
		return "", fmt.Errorf("unknown scale type: %s", s)
	}
}

// Scaler holds range parameters learned from the training partition. Values
// outside the learned range are not clipped.
type Scaler struct {
	ScaleType   ScaleKind
	IsFitted    bool
	FeatureMin  []decimal.Decimal
	FeatureMax  []decimal.Decimal
	FeatureMean []decimal.Decimal
	FeatureStd  []decimal.Decimal
}

func NewScaler(scaleType ScaleKind) *Scaler {
	return &Scaler{
		ScaleType: scaleType,
		IsFitted:  false,
	}
}

func (s *Scaler) NumFeatures() int {
	switch s.ScaleType {
	case Standard:
		return len(s.FeatureMean)
	default:
		return len(s.FeatureMin)
	}
}

func (s *Scaler) Fit(X [][]decimal.Decimal) error {
	if len(X) == 0 {
		return fmt.Errorf("empty dataset")
	}

	nFeatures := len(X[0])
	s.FeatureMin = make([]decimal.Decimal, nFeatures)
	s.FeatureMax = make([]decimal.Decimal, nFeatures)
	s.FeatureMean = make([]decimal.Decimal, nFeatures)
	s.FeatureStd = make([]decimal.Decimal, nFeatures)

	switch s.ScaleType {
	case MinMax:
		s.fitMinMax(X)
	case Standard:
		s.fitStandard(X)
	default:
		return fmt.Errorf("unknown scale type: %s", s.ScaleType)
	}

	s.IsFitted = true
	return nil
}

func (s *Scaler) Transform(X [][]decimal.Decimal) ([][]decimal.Decimal, error) {
	result := make([][]decimal.Decimal, len(X))
	for i := range X {
		row, err := s.TransformRow(X[i])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		result[i] = row
	}
	return result, nil
}

func (s *Scaler) TransformRow(x []decimal.Decimal) ([]decimal.Decimal, error) {
	if !s.IsFitted {
		return nil, fmt.Errorf("scaler must be fitted before transform")
	}
	if len(x) != s.NumFeatures() {
		return nil, fmt.Errorf("expected %d features, got %d", s.NumFeatures(), len(x))
	}

	row := make([]decimal.Decimal, len(x))
	for j, v := range x {
		switch s.ScaleType {
		case MinMax:
			row[j] = s.transformMinMax(v, j)
		case Standard:
			row[j] = s.transformStandard(v, j)
		}
	}
	return row, nil
}

func (s *Scaler) FitTransform(X [][]decimal.Decimal) ([][]decimal.Decimal, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

func (s *Scaler) fitMinMax(X [][]decimal.Decimal) {
	nFeatures := len(X[0])

	for j := 0; j < nFeatures; j++ {
		s.FeatureMin[j] = X[0][j]
		s.FeatureMax[j] = X[0][j]

		for i := 1; i < len(X); i++ {
			if X[i][j].LessThan(s.FeatureMin[j]) {
				s.FeatureMin[j] = X[i][j]
			}
			if X[i][j].GreaterThan(s.FeatureMax[j]) {
				s.FeatureMax[j] = X[i][j]
			}
		}
	}
}

func (s *Scaler) fitStandard(X [][]decimal.Decimal) {
	nFeatures := len(X[0])
	nSamples := decimal.NewFromInt(int64(len(X)))

	for j := 0; j < nFeatures; j++ {
		sum := decimal.Zero
		for i := 0; i < len(X); i++ {
			sum = sum.Add(X[i][j])
		}
		s.FeatureMean[j] = sum.Div(nSamples)
	}

	for j := 0; j < nFeatures; j++ {
		variance := decimal.Zero
		for i := 0; i < len(X); i++ {
			diff := X[i][j].Sub(s.FeatureMean[j])
			variance = variance.Add(diff.Mul(diff))
		}
		variance = variance.Div(nSamples)

		varFloat, _ := variance.Float64()
		s.FeatureStd[j] = decimal.NewFromFloat(math.Sqrt(varFloat))

		if s.FeatureStd[j].IsZero() {
			s.FeatureStd[j] = decimal.NewFromInt(1)
		}
	}
}

// Zero-range columns are shifted but not divided.
func (s *Scaler) transformMinMax(value decimal.Decimal, featureIndex int) decimal.Decimal {
	range_ := s.FeatureMax[featureIndex].Sub(s.FeatureMin[featureIndex])
	if range_.IsZero() {
		return value.Sub(s.FeatureMin[featureIndex])
	}
	return value.Sub(s.FeatureMin[featureIndex]).Div(range_)
}

func (s *Scaler) transformStandard(value decimal.Decimal, featureIndex int) decimal.Decimal {
	return value.Sub(s.FeatureMean[featureIndex]).Div(s.FeatureStd[featureIndex])
}
