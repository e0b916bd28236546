package models

import (
	"errors"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/mat"
)

// ErrNotConverged is reported when the optimizer stops before convergence.
// The fitted weights are still usable.
var ErrNotConverged = errors.New("optimizer did not converge")

type Model interface {
	Fit(X [][]decimal.Decimal, y []int) error
	Predict(X [][]decimal.Decimal) []int
	PredictProba(X [][]decimal.Decimal) [][]float64
	GetType() string
	GetName() string
	GetParams() map[string]any
	GetClasses() []int
	Reset()
}

type BaseModel struct {
	Name    string
	Params  map[string]any
	Classes []int
}

func (bm *BaseModel) GetType() string {
	return bm.Name
}

func (bm *BaseModel) GetName() string {
	return bm.Name
}

func (bm *BaseModel) GetParams() map[string]any {
	return bm.Params
}

func (bm *BaseModel) GetClasses() []int {
	return bm.Classes
}

// ToDense copies a decimal matrix into a gonum matrix.
func ToDense(X [][]decimal.Decimal) *mat.Dense {
	if len(X) == 0 || len(X[0]) == 0 {
		return nil
	}

	rows, cols := len(X), len(X[0])
	values := make([]float64, 0, rows*cols)
	for _, row := range X {
		for _, v := range row {
			f, _ := v.Float64()
			values = append(values, f)
		}
	}
	return mat.NewDense(rows, cols, values)
}

func ToFloats(x []decimal.Decimal) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i], _ = v.Float64()
	}
	return out
}
