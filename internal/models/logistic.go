package models

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// LogisticRegression is a binary linear classifier over classes {0, 1}.
// The objective is 0.5*||w||^2 + C*sum(logloss); the intercept is not
// penalised.
type LogisticRegression struct {
	BaseModel
	C         float64
	MaxIter   int
	Tolerance float64
	Seed      int64

	Coef      []float64
	Intercept float64
	NIter     int
	Converged bool
	Status    string
}

func NewLogisticRegression(c float64, maxIter int, tolerance float64, seed int64) *LogisticRegression {
	if c <= 0 {
		c = 1.0
	}
	if maxIter <= 0 {
		maxIter = 500
	}
	if tolerance <= 0 {
		tolerance = 1e-4
	}

	return &LogisticRegression{
		C:         c,
		MaxIter:   maxIter,
		Tolerance: tolerance,
		Seed:      seed,
		BaseModel: BaseModel{
			Name: "LogisticRegression",
			Params: map[string]any{
				"c":            c,
				"max_iter":     maxIter,
				"tol":          tolerance,
				"random_state": seed,
				"solver":       "lbfgs",
			},
		},
	}
}

// Fit returns an error wrapping ErrNotConverged when the iteration budget
// runs out; the partially optimised weights are kept in that case.
func (lr *LogisticRegression) Fit(X [][]decimal.Decimal, y []int) error {
	if len(X) == 0 {
		return fmt.Errorf("empty training set")
	}
	if len(X) != len(y) {
		return fmt.Errorf("x and y must have the same length: %d vs %d", len(X), len(y))
	}
	for i, label := range y {
		if label != 0 && label != 1 {
			return fmt.Errorf("label %d at sample %d is not binary", label, i)
		}
	}

	return lr.FitDense(ToDense(X), y)
}

func (lr *LogisticRegression) FitDense(X *mat.Dense, y []int) error {
	if X == nil {
		return fmt.Errorf("empty training set")
	}
	rows, cols := X.Dims()
	if rows != len(y) {
		return fmt.Errorf("x and y must have the same length: %d vs %d", rows, len(y))
	}

	target := make([]float64, rows)
	for i, label := range y {
		target[i] = float64(label)
	}

	obj := &logisticObjective{
		X:      X,
		y:      mat.NewVecDense(rows, target),
		c:      lr.C,
		cols:   cols,
		z:      mat.NewVecDense(rows, nil),
		resid:  mat.NewVecDense(rows, nil),
		gradXt: mat.NewVecDense(cols, nil),
	}

	problem := optimize.Problem{
		Func: obj.value,
		Grad: obj.gradient,
	}
	settings := &optimize.Settings{
		GradientThreshold: lr.Tolerance,
		MajorIterations:   lr.MaxIter,
	}

	result, err := optimize.Minimize(problem, make([]float64, cols+1), settings, &optimize.LBFGS{})
	if result == nil {
		return fmt.Errorf("optimizer failed: %w", err)
	}

	theta := result.Location.X
	for _, v := range theta {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("optimizer diverged: status %s", result.Status)
		}
	}

	lr.Coef = append([]float64(nil), theta[:cols]...)
	lr.Intercept = theta[cols]
	lr.NIter = result.Stats.MajorIterations
	lr.Status = result.Status.String()
	lr.Classes = []int{0, 1}
	lr.Converged = err == nil && converged(result.Status)

	if !lr.Converged {
		if err != nil {
			return fmt.Errorf("%w after %d iterations (%s): %v", ErrNotConverged, lr.NIter, lr.Status, err)
		}
		return fmt.Errorf("%w after %d iterations (%s)", ErrNotConverged, lr.NIter, lr.Status)
	}
	return nil
}

func converged(status optimize.Status) bool {
	switch status {
	case optimize.Success, optimize.GradientThreshold, optimize.FunctionConvergence,
		optimize.FunctionThreshold, optimize.StepConvergence, optimize.MethodConverge:
		return true
	default:
		return false
	}
}

func (lr *LogisticRegression) IsFitted() bool {
	return len(lr.Coef) > 0
}

func (lr *LogisticRegression) NumFeatures() int {
	return len(lr.Coef)
}

func (lr *LogisticRegression) Coefficients() []float64 {
	return append([]float64(nil), lr.Coef...)
}

func (lr *LogisticRegression) DecisionFunction(x []float64) float64 {
	return lr.Intercept + floats.Dot(lr.Coef, x)
}

// ProbaRow returns [P(0), P(1)] for one sample.
func (lr *LogisticRegression) ProbaRow(x []float64) [2]float64 {
	p := sigmoid(lr.DecisionFunction(x))
	return [2]float64{1 - p, p}
}

func (lr *LogisticRegression) PredictRow(x []float64) int {
	if lr.DecisionFunction(x) > 0 {
		return 1
	}
	return 0
}

func (lr *LogisticRegression) Predict(X [][]decimal.Decimal) []int {
	predictions := make([]int, len(X))
	for i, sample := range X {
		predictions[i] = lr.PredictRow(ToFloats(sample))
	}
	return predictions
}

func (lr *LogisticRegression) PredictProba(X [][]decimal.Decimal) [][]float64 {
	proba := make([][]float64, len(X))
	for i, sample := range X {
		p := lr.ProbaRow(ToFloats(sample))
		proba[i] = p[:]
	}
	return proba
}

func (lr *LogisticRegression) Reset() {
	lr.Coef = nil
	lr.Intercept = 0
	lr.NIter = 0
	lr.Converged = false
	lr.Status = ""
	lr.Classes = nil
}

type logisticObjective struct {
	X    *mat.Dense
	y    *mat.VecDense
	c    float64
	cols int

	z      *mat.VecDense
	resid  *mat.VecDense
	gradXt *mat.VecDense
}

func (o *logisticObjective) margins(theta []float64) {
	w := mat.NewVecDense(o.cols, theta[:o.cols])
	o.z.MulVec(o.X, w)
	b := theta[o.cols]
	for i := 0; i < o.z.Len(); i++ {
		o.z.SetVec(i, o.z.AtVec(i)+b)
	}
}

func (o *logisticObjective) value(theta []float64) float64 {
	o.margins(theta)

	loss := 0.0
	for i := 0; i < o.z.Len(); i++ {
		zi := o.z.AtVec(i)
		loss += softplus(zi) - o.y.AtVec(i)*zi
	}

	w := theta[:o.cols]
	return 0.5*floats.Dot(w, w) + o.c*loss
}

func (o *logisticObjective) gradient(grad, theta []float64) {
	o.margins(theta)

	sum := 0.0
	for i := 0; i < o.z.Len(); i++ {
		r := sigmoid(o.z.AtVec(i)) - o.y.AtVec(i)
		o.resid.SetVec(i, r)
		sum += r
	}

	o.gradXt.MulVec(o.X.T(), o.resid)
	for j := 0; j < o.cols; j++ {
		grad[j] = theta[j] + o.c*o.gradXt.AtVec(j)
	}
	grad[o.cols] = o.c * sum
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// softplus computes log(1 + exp(z)) without overflow.
func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}
